package tui

import (
	"strings"

	"reblock-cli/internal/inserter"
	"reblock-cli/internal/model"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

// inserterView is the grid overlay on top of an open inserter.Menu.
type inserterView struct {
	menu   *inserter.Menu
	filter textinput.Model
	cursor int
}

func newInserterView(menu *inserter.Menu) *inserterView {
	ti := textinput.New()
	ti.Placeholder = "Search for a block"
	ti.Prompt = "/ "
	ti.CharLimit = 80
	ti.Focus()
	return &inserterView{menu: menu, filter: ti}
}

func (iv *inserterView) columns() int {
	if l, ok := iv.menu.Layout(); ok && l.Columns > 0 {
		return l.Columns
	}
	return 1
}

// move shifts the cursor by dx cells and dy rows, clamped to the visible items.
func (iv *inserterView) move(dx, dy int) {
	n := len(iv.menu.VisibleItems())
	if n == 0 {
		iv.cursor = 0
		return
	}
	next := iv.cursor + dx + dy*iv.columns()
	if next < 0 {
		next = 0
	}
	if next >= n {
		next = n - 1
	}
	iv.cursor = next
}

func (iv *inserterView) clampCursor() {
	iv.move(0, 0)
}

// nextTab cycles through the menu's tabs. It is a no-op with a single tab.
func (iv *inserterView) nextTab() {
	tabs := iv.menu.Tabs()
	if len(tabs) < 2 {
		return
	}
	cur := iv.menu.Tab()
	for i, t := range tabs {
		if t == cur {
			iv.menu.SetTab(tabs[(i+1)%len(tabs)])
			break
		}
	}
	iv.cursor = 0
}

func (iv *inserterView) setQuery(q string) {
	if q == iv.menu.Query() {
		return
	}
	iv.menu.SetQuery(q)
	iv.cursor = 0
}

func (iv *inserterView) current() (model.InserterItem, bool) {
	items := iv.menu.VisibleItems()
	if iv.cursor < 0 || iv.cursor >= len(items) {
		return model.InserterItem{}, false
	}
	return items[iv.cursor], true
}

func tabLabel(t inserter.Tab) string {
	switch t {
	case inserter.TabReusable:
		return "Reusable"
	default:
		return "Blocks"
	}
}

func (iv *inserterView) render(width int) string {
	if width < 20 {
		width = 20
	}
	inner := width - 4
	content := inner - 2

	var tabs []string
	for _, t := range iv.menu.Tabs() {
		label := " " + tabLabel(t) + " "
		if t == iv.menu.Tab() {
			tabs = append(tabs, styleSelected().Bold(true).Render(label))
		} else {
			tabs = append(tabs, styleMuted().Render(label))
		}
	}

	lines := []string{}
	if len(tabs) > 0 {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	}
	lines = append(lines, renderInputLine(content, iv.filter.View()))

	items := iv.menu.VisibleItems()
	if len(items) == 0 {
		lines = append(lines, styleMuted().Render("No blocks found."))
		return stylePanel().Width(inner).Render(strings.Join(lines, "\n"))
	}

	cols := iv.columns()
	cellW := 1
	if l, ok := iv.menu.Layout(); ok {
		cellW = l.ItemCells()
	}
	pad := int(inserter.GridOptions.ItemPadding)
	for start := 0; start < len(items); start += cols {
		end := start + cols
		if end > len(items) {
			end = len(items)
		}
		var row []string
		for i := start; i < end; i++ {
			row = append(row, iv.renderCell(items[i], cellW, pad, i == iv.cursor))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	lines = append(lines, styleMuted().Render("arrows: move   tab: switch tab   enter: insert   esc: close"))
	return stylePanel().Width(inner).Render(strings.Join(lines, "\n"))
}

func (iv *inserterView) renderCell(it model.InserterItem, cellW, pad int, focused bool) string {
	label := blockIcon(it.Icon)
	if label != "" {
		label += " "
	}
	label += it.Title
	labelW := cellW - 2*pad
	if labelW < 1 {
		labelW, pad = cellW, 0
	}
	label = truncate.StringWithTail(label, uint(labelW), glyphEllipsis())

	// cellW already includes the item padding.
	st := lipgloss.NewStyle().Width(cellW).Padding(0, pad)
	if focused {
		st = st.Inherit(styleSelected()).Bold(true)
	}
	return st.Render(label)
}
