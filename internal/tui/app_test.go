package tui

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"reblock-cli/internal/blocks"
	"reblock-cli/internal/docstore"
	"reblock-cli/internal/model"
	"reblock-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
)

const (
	testOwner    = "act-owner"
	testStranger = "act-stranger"

	footerContent = "<!-- wp:paragraph -->\n<p>Footer text</p>\n<!-- /wp:paragraph -->"
	docContent    = "<!-- wp:paragraph -->\n<p>Hello</p>\n<!-- /wp:paragraph -->\n\n<!-- wp:block {\"ref\":\"rb-1\"} /-->"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Setenv("REBLOCK_TUI_MD_STYLE", "dark")
	os.Exit(m.Run())
}

func newTestWorkspace(t *testing.T, content string) store.Store {
	t.Helper()
	st := store.Store{Dir: t.TempDir()}
	ctx := context.Background()
	for _, a := range []model.Actor{
		{ID: testOwner, Kind: model.ActorKindHuman, Name: "Owner"},
		{ID: testStranger, Kind: model.ActorKindHuman, Name: "Stranger"},
	} {
		if err := st.PutActor(ctx, a); err != nil {
			t.Fatalf("put actor: %v", err)
		}
	}
	if _, err := st.PutReusableBlock(ctx, model.ReusableBlock{
		ID:           "rb-1",
		Title:        "Footer",
		Content:      footerContent,
		OwnerActorID: testOwner,
	}); err != nil {
		t.Fatalf("put reusable block: %v", err)
	}
	if _, err := st.PutDocument(ctx, model.Document{ID: "doc-1", Title: "Home", Content: content}); err != nil {
		t.Fatalf("put document: %v", err)
	}
	return st
}

func newTestApp(t *testing.T, st store.Store, actorID string) (appModel, *docstore.Service) {
	t.Helper()
	svc := docstore.New(st, docstore.WithActor(actorID))
	m, err := newAppModel(context.Background(), st, svc, actorID)
	if err != nil {
		t.Fatalf("newAppModel: %v", err)
	}
	m.width = 100
	m.height = 40
	m.readClipboard = func() (string, error) { return "", nil }
	m.writeClipboard = func(string) error { return nil }
	t.Cleanup(func() {
		svc.Unsubscribe(m.sub)
		svc.Wait()
	})
	return m, svc
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+v":
		return tea.KeyMsg{Type: tea.KeyCtrlV}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m appModel, keys ...string) appModel {
	t.Helper()
	for _, k := range keys {
		mm, _ := m.Update(key(k))
		m = mm.(appModel)
	}
	return m
}

// pump feeds store changes into the model until one of kind arrives.
func pump(t *testing.T, m appModel, kind docstore.ChangeKind) appModel {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ch, ok := <-m.sub.C:
			if !ok {
				t.Fatalf("subscription closed while waiting for %s", kind)
			}
			mm, _ := m.Update(storeChangeMsg{change: ch, ok: true})
			m = mm.(appModel)
			if ch.Kind == kind {
				return m
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func plainView(m appModel) string {
	return xansi.Strip(m.View())
}

func reusableClientID(t *testing.T, m appModel) string {
	t.Helper()
	for _, r := range m.blockRows() {
		if r.block.Name == blocks.ReusableBlockName {
			return r.block.ClientID
		}
	}
	t.Fatalf("no reusable block in document")
	return ""
}

func TestApp_PreviewsReusableBlockOnceFetched(t *testing.T) {
	st := newTestWorkspace(t, docContent)
	m, _ := newTestApp(t, st, testOwner)

	if got := len(m.views); got != 1 {
		t.Fatalf("expected one reusable view; got %d", got)
	}
	m = pump(t, m, docstore.ChangeFetched)

	out := plainView(m)
	for _, want := range []string{"Home", "Hello", "Footer", "Footer text", "Disabled", "Edit"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected view to contain %q; got:\n%s", want, out)
		}
	}
}

func TestApp_MissingReusableBlockShowsNotice(t *testing.T) {
	st := newTestWorkspace(t, "<!-- wp:block {\"ref\":\"rb-gone\"} /-->")
	m, _ := newTestApp(t, st, testOwner)
	m = pump(t, m, docstore.ChangeMissing)

	if out := plainView(m); !strings.Contains(out, "Block has been deleted or is unavailable.") {
		t.Fatalf("expected missing notice; got:\n%s", out)
	}
}

func TestApp_FailedFetchStopsLoading(t *testing.T) {
	st := newTestWorkspace(t, docContent)
	svc := docstore.New(store.Store{Dir: "/dev/null/reblock"}, docstore.WithActor(testOwner))
	m, err := newAppModel(context.Background(), st, svc, testOwner)
	if err != nil {
		t.Fatalf("newAppModel: %v", err)
	}
	m.width = 100
	m.height = 40
	t.Cleanup(func() {
		svc.Unsubscribe(m.sub)
		svc.Wait()
	})

	m = pump(t, m, docstore.ChangeFailed)

	out := plainView(m)
	if strings.Contains(out, "Loading") {
		t.Fatalf("expected loading state to end after a failed fetch; got:\n%s", out)
	}
	if !strings.Contains(out, "Block has been deleted or is unavailable.") {
		t.Fatalf("expected unavailable notice; got:\n%s", out)
	}
	if !m.isError || !strings.HasPrefix(m.status, "fetch rb-1: ") {
		t.Fatalf("expected fetch error status; got %q", m.status)
	}
}

func TestApp_EditAndSaveReusableBlock(t *testing.T) {
	st := newTestWorkspace(t, docContent)
	m, svc := newTestApp(t, st, testOwner)
	m = pump(t, m, docstore.ChangeFetched)

	m = press(t, m, "down", "e")
	id := reusableClientID(t, m)
	if m.editing != id {
		t.Fatalf("expected editing %q; got %q", id, m.editing)
	}
	if got := m.views[id].title.Value(); got != "Footer" {
		t.Fatalf("expected title input seeded with Footer; got %q", got)
	}

	m.views[id].title.SetValue("Site footer")
	m = press(t, m, "enter")
	if m.editing != "" || m.views[id].ctrl.IsEditing() {
		t.Fatalf("expected editing to stop after save")
	}
	svc.Wait()

	rb, err := st.GetReusableBlock(context.Background(), "rb-1")
	if err != nil {
		t.Fatalf("get reusable block: %v", err)
	}
	if rb.Title != "Site footer" {
		t.Fatalf("expected saved title; got %q", rb.Title)
	}
}

func TestApp_EditCancelKeepsStoredBlock(t *testing.T) {
	st := newTestWorkspace(t, docContent)
	m, _ := newTestApp(t, st, testOwner)
	m = pump(t, m, docstore.ChangeFetched)

	m = press(t, m, "down", "e", "x", "esc")
	if m.editing != "" {
		t.Fatalf("expected esc to stop editing")
	}
	rb, err := st.GetReusableBlock(context.Background(), "rb-1")
	if err != nil {
		t.Fatalf("get reusable block: %v", err)
	}
	if rb.Title != "Footer" {
		t.Fatalf("expected stored title unchanged; got %q", rb.Title)
	}
	if m.doc.Count() != 2 {
		t.Fatalf("keys typed while editing must not reach the document")
	}
}

func TestApp_EditRequiresPermission(t *testing.T) {
	st := newTestWorkspace(t, docContent)
	m, _ := newTestApp(t, st, testStranger)
	m = pump(t, m, docstore.ChangeFetched)

	m = press(t, m, "down", "e")
	if m.editing != "" {
		t.Fatalf("expected stranger not to enter editing")
	}
	if !strings.Contains(m.status, "permission") {
		t.Fatalf("expected permission status; got %q", m.status)
	}
}

func TestApp_ConvertToReusableStartsEditingAndPersistsOnSave(t *testing.T) {
	st := newTestWorkspace(t, docContent)
	m, svc := newTestApp(t, st, testOwner)

	m = press(t, m, "R")
	first := m.doc.Blocks()[0]
	if first.Name != blocks.ReusableBlockName {
		t.Fatalf("expected paragraph to become a reusable reference; got %s", first.Name)
	}
	if m.editing != first.ClientID {
		t.Fatalf("expected the new reusable block to start in editing mode")
	}
	if got := m.views[first.ClientID].title.Value(); got != "Untitled Reusable Block" {
		t.Fatalf("unexpected seeded title %q", got)
	}

	m = press(t, m, "enter")
	svc.Wait()

	list, err := st.ListReusableBlocks(context.Background())
	if err != nil {
		t.Fatalf("list reusable blocks: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected the temporary block to be persisted; got %d blocks", len(list))
	}
}

func TestApp_ConvertToStaticInlinesFragment(t *testing.T) {
	st := newTestWorkspace(t, docContent)
	m, _ := newTestApp(t, st, testOwner)
	m = pump(t, m, docstore.ChangeFetched)

	m = press(t, m, "down", "c")
	if len(m.views) != 0 {
		t.Fatalf("expected reusable view to be closed; got %d", len(m.views))
	}
	got := m.doc.Blocks()
	if len(got) != 2 || got[1].Name != "core/paragraph" || blocks.PlainText(got[1]) != "Footer text" {
		t.Fatalf("unexpected blocks after convert: %+v", got)
	}
	if m.doc.SelectionEnd() != got[1].ClientID {
		t.Fatalf("expected the inlined block to be selected")
	}
}

func TestApp_InserterFiltersAndInserts(t *testing.T) {
	st := newTestWorkspace(t, docContent)
	m, _ := newTestApp(t, st, testOwner)

	m = press(t, m, "i")
	if m.ins == nil {
		t.Fatalf("expected inserter to open")
	}
	if out := plainView(m); !strings.Contains(out, "Paragraph") || !strings.Contains(out, "insert here") {
		t.Fatalf("expected grid and insertion point; got:\n%s", out)
	}

	m = press(t, m, "h", "e", "a", "d")
	item, ok := m.ins.current()
	if !ok || item.Name != "core/heading" {
		t.Fatalf("expected heading to be the first match; got %+v", item)
	}
	m = press(t, m, "enter")
	if m.ins != nil {
		t.Fatalf("expected inserter to close after insert")
	}
	got := m.doc.Blocks()
	if len(got) != 3 || got[1].Name != "core/heading" {
		t.Fatalf("expected heading after the selected paragraph; got %+v", got)
	}
	if !m.dirty {
		t.Fatalf("expected document to be dirty")
	}
}

func TestApp_InserterReusableTabRecordsRecent(t *testing.T) {
	st := newTestWorkspace(t, "")
	m, _ := newTestApp(t, st, testOwner)

	m = press(t, m, "i")
	m = pump(t, m, docstore.ChangeFetched)
	m = press(t, m, "tab")
	if tab := m.ins.menu.Tab(); tab != "reusable" {
		t.Fatalf("expected reusable tab; got %q", tab)
	}
	m = press(t, m, "enter")

	got := m.doc.Blocks()
	if len(got) != 1 || got[0].Name != blocks.ReusableBlockName {
		t.Fatalf("expected a reusable reference; got %+v", got)
	}
	if len(m.state.RecentReusableIDs) == 0 || m.state.RecentReusableIDs[0] != "rb-1" {
		t.Fatalf("expected rb-1 in recent list; got %v", m.state.RecentReusableIDs)
	}
	if m.state.InserterTab != "reusable" {
		t.Fatalf("expected inserter tab to be remembered; got %q", m.state.InserterTab)
	}
	if len(m.views) != 1 {
		t.Fatalf("expected a view for the inserted reference")
	}
}

func TestApp_ReplaceThenCloseLeavesDefaultBlock(t *testing.T) {
	st := newTestWorkspace(t, docContent)
	m, _ := newTestApp(t, st, testOwner)

	m = press(t, m, "down", "r")
	if len(m.views) != 0 {
		t.Fatalf("expected replaced reference's view to close")
	}
	m = press(t, m, "esc")
	got := m.doc.Blocks()
	if len(got) != 2 || got[1].Name != blocks.DefaultBlockName {
		t.Fatalf("expected default block in place of the replaced one; got %+v", got)
	}
}

func TestApp_RemoveAndQuitSavesDocument(t *testing.T) {
	st := newTestWorkspace(t, docContent)
	m, _ := newTestApp(t, st, testOwner)

	m = press(t, m, "x")
	if m.doc.Count() != 1 {
		t.Fatalf("expected one block left; got %d", m.doc.Count())
	}
	mm, cmd := m.Update(key("q"))
	m = mm.(appModel)
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}

	ctx := context.Background()
	doc, err := st.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	parsed := blocks.Parse(doc.Content)
	if len(parsed) != 1 || parsed[0].Name != blocks.ReusableBlockName {
		t.Fatalf("unexpected saved content %q", doc.Content)
	}
	evs, err := st.ReadEventsForEntity(ctx, "doc-1", 10)
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	found := false
	for _, ev := range evs {
		found = found || ev.Type == "document.update"
	}
	if !found {
		t.Fatalf("expected document.update event; got %+v", evs)
	}

	state, err := st.LoadTUIState()
	if err != nil {
		t.Fatalf("load tui state: %v", err)
	}
	if state.OpenDocumentID != "doc-1" {
		t.Fatalf("expected open document to be remembered; got %q", state.OpenDocumentID)
	}
}

func TestApp_CopySelectedBlock(t *testing.T) {
	st := newTestWorkspace(t, docContent)
	m, _ := newTestApp(t, st, testOwner)
	var copied string
	m.writeClipboard = func(s string) error { copied = s; return nil }

	m = press(t, m, "y")
	if !strings.Contains(copied, "<p>Hello</p>") {
		t.Fatalf("expected serialized paragraph on the clipboard; got %q", copied)
	}
}

func TestApp_NewWorkspaceCreatesDocument(t *testing.T) {
	st := store.Store{Dir: t.TempDir()}
	if err := st.PutActor(context.Background(), model.Actor{ID: testOwner, Kind: model.ActorKindHuman, Name: "Owner"}); err != nil {
		t.Fatalf("put actor: %v", err)
	}
	m, _ := newTestApp(t, st, testOwner)
	if m.docRecord.ID == "" || m.docRecord.Title != defaultDocumentTitle {
		t.Fatalf("unexpected document %+v", m.docRecord)
	}
	if out := plainView(m); !strings.Contains(out, "Empty document") {
		t.Fatalf("expected empty hint; got:\n%s", out)
	}
}

func TestApp_ViewLinesFitWidth(t *testing.T) {
	st := newTestWorkspace(t, docContent)
	m, _ := newTestApp(t, st, testOwner)
	m = pump(t, m, docstore.ChangeFetched)

	for _, width := range []int{40, 80, 120} {
		m.width = width
		for _, view := range []appModel{m, press(t, m, "i")} {
			lines := strings.Split(view.View(), "\n")
			if len(lines) > m.height {
				t.Fatalf("width %d: view has %d lines; height %d", width, len(lines), m.height)
			}
			for i, ln := range lines {
				if w := xansi.StringWidth(ln); w > width {
					t.Fatalf("width %d: line %d is %d cells wide: %q", width, i, w, ln)
				}
			}
		}
	}
}
