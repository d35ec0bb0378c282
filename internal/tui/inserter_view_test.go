package tui

import (
	"strings"
	"testing"

	"reblock-cli/internal/editor"
	"reblock-cli/internal/inserter"
	"reblock-cli/internal/model"

	xansi "github.com/charmbracelet/x/ansi"
)

type staticSource []model.ReusableBlock

func (s staticSource) List() []model.ReusableBlock { return s }
func (s staticSource) FetchAll()                   {}

func newTestInserterView(width int, source inserter.ReusableSource) *inserterView {
	doc := editor.NewDocument("", nil)
	menu := inserter.New(doc, source, inserter.WithClipboard(func() (string, error) { return "", nil }))
	menu.Open()
	menu.Resize(width)
	return newInserterView(menu)
}

func TestInserterView_MovesByGridRows(t *testing.T) {
	iv := newTestInserterView(80, nil)
	cols := iv.columns()
	if cols < 3 {
		t.Fatalf("expected at least the minimum columns; got %d", cols)
	}

	iv.move(0, 1)
	if iv.cursor != cols {
		t.Fatalf("down should move one row (%d); got %d", cols, iv.cursor)
	}
	iv.move(1, 0)
	if iv.cursor != cols+1 {
		t.Fatalf("right should move one cell; got %d", iv.cursor)
	}
	iv.move(0, -5)
	if iv.cursor != 0 {
		t.Fatalf("expected clamp at the first item; got %d", iv.cursor)
	}
	iv.move(100, 0)
	if n := len(iv.menu.VisibleItems()); iv.cursor != n-1 {
		t.Fatalf("expected clamp at the last item (%d); got %d", n-1, iv.cursor)
	}
}

func TestInserterView_TabsAndQueryResetCursor(t *testing.T) {
	iv := newTestInserterView(80, staticSource{{ID: "rb-1", Title: "Footer"}})

	iv.move(2, 0)
	iv.nextTab()
	if iv.menu.Tab() != inserter.TabReusable || iv.cursor != 0 {
		t.Fatalf("expected reusable tab with cursor reset; got %q/%d", iv.menu.Tab(), iv.cursor)
	}
	item, ok := iv.current()
	if !ok || item.Title != "Footer" {
		t.Fatalf("expected Footer; got %+v", item)
	}
	iv.nextTab()
	if iv.menu.Tab() != inserter.TabBlocks {
		t.Fatalf("expected tabs to cycle back to blocks")
	}

	iv.move(1, 0)
	iv.setQuery("zzzz")
	if iv.cursor != 0 {
		t.Fatalf("expected cursor reset on query change")
	}
	if _, ok := iv.current(); ok {
		t.Fatalf("expected no match")
	}
	if out := xansi.Strip(iv.render(80)); !strings.Contains(out, "No blocks found.") {
		t.Fatalf("expected empty notice; got:\n%s", out)
	}
}

func TestInserterView_NoTabsWithoutReusableBlocks(t *testing.T) {
	iv := newTestInserterView(80, staticSource{})
	iv.nextTab()
	if iv.menu.Tab() != inserter.TabBlocks {
		t.Fatalf("expected to stay on blocks tab")
	}
	if out := xansi.Strip(iv.render(80)); strings.Contains(out, "Reusable") {
		t.Fatalf("expected no tab headers; got:\n%s", out)
	}
}

func TestInserterView_RenderFitsWidth(t *testing.T) {
	setGlyphs(glyphSetUnicode)
	for _, width := range []int{30, 60, 120} {
		iv := newTestInserterView(width-4, staticSource{{ID: "rb-1", Title: "A very long reusable block title"}})
		for _, tab := range []inserter.Tab{inserter.TabBlocks, inserter.TabReusable} {
			iv.menu.SetTab(tab)
			for i, ln := range strings.Split(iv.render(width), "\n") {
				if w := xansi.StringWidth(ln); w > width {
					t.Fatalf("width %d tab %s: line %d is %d cells: %q", width, tab, i, w, ln)
				}
			}
		}
	}
}
