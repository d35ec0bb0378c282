package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reblock-cli/internal/blocks"
	"reblock-cli/internal/docstore"
	"reblock-cli/internal/editor"
	"reblock-cli/internal/inserter"
	"reblock-cli/internal/model"
	"reblock-cli/internal/perm"
	"reblock-cli/internal/store"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

const defaultDocumentTitle = "Untitled"

type storeChangeMsg struct {
	change docstore.Change
	ok     bool
}

// waitForChange delivers the next store change as a message.
func waitForChange(sub *docstore.Subscription) tea.Cmd {
	return func() tea.Msg {
		ch, ok := <-sub.C
		return storeChangeMsg{change: ch, ok: ok}
	}
}

type appModel struct {
	store   store.Store
	svc     *docstore.Service
	sub     *docstore.Subscription
	actorID string

	docRecord model.Document
	doc       *editor.Document
	dirty     bool
	state     *store.TUIState

	width  int
	height int

	// marked holds extra blocks picked with space for convert-to-reusable.
	marked map[string]bool

	views   map[string]*reusableView
	editing string

	ins        *inserterView
	minColumns int

	confirm *confirmDelete

	spinner spinner.Model
	status  string
	isError bool

	readClipboard  func() (string, error)
	writeClipboard func(string) error

	debugEnabled bool
	debugLogPath string
}

func newAppModel(ctx context.Context, st store.Store, svc *docstore.Service, actorID string) (appModel, error) {
	state, err := st.LoadTUIState()
	if err != nil || state == nil {
		state = &store.TUIState{Version: 1}
	}
	rec, err := openDocument(ctx, st, state.OpenDocumentID)
	if err != nil {
		return appModel{}, err
	}
	state.OpenDocumentID = rec.ID

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	if glyphs() == glyphSetASCII {
		sp.Spinner = spinner.Line
	}
	sp.Style = styleMuted()

	m := appModel{
		store:          st,
		svc:            svc,
		sub:            svc.Subscribe(),
		actorID:        actorID,
		docRecord:      rec,
		doc:            editor.NewDocument(rec.Content, nil),
		state:          state,
		marked:         map[string]bool{},
		views:          map[string]*reusableView{},
		spinner:        sp,
		readClipboard:  clipboard.ReadAll,
		writeClipboard: clipboard.WriteAll,
		debugLogPath:   debugLogPathFromEnv(),
	}
	m.debugEnabled = m.debugLogPath != ""
	if rows := m.blockRows(); len(rows) > 0 {
		_ = m.doc.Select(rows[0].block.ClientID)
	}
	m.syncReusableViews()
	return m, nil
}

// openDocument loads id, falling back to the most recent document and then to a new
// empty one.
func openDocument(ctx context.Context, st store.Store, id string) (model.Document, error) {
	if strings.TrimSpace(id) != "" {
		d, err := st.GetDocument(ctx, id)
		if err == nil {
			return d, nil
		}
		var nf store.NotFoundError
		if !errors.As(err, &nf) {
			return model.Document{}, err
		}
	}
	docs, err := st.ListDocuments(ctx)
	if err != nil {
		return model.Document{}, err
	}
	if len(docs) > 0 {
		return docs[0], nil
	}
	newID, err := st.NewID(ctx, "doc")
	if err != nil {
		return model.Document{}, err
	}
	return st.PutDocument(ctx, model.Document{ID: newID, Title: defaultDocumentTitle})
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.sub), m.spinner.Tick)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.ins != nil {
			m.ins.menu.Resize(m.inserterWidth())
			m.ins.clampCursor()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case storeChangeMsg:
		if !msg.ok {
			return m, nil
		}
		m.debugLogf("store change kind=%s id=%s err=%v", msg.change.Kind, msg.change.ID, msg.change.Err)
		for _, v := range m.views {
			v.ctrl.Refresh()
		}
		if msg.change.Kind == docstore.ChangeFailed && msg.change.Err != nil {
			m.setError(errors.New(msg.change.Describe()))
		}
		if m.ins != nil {
			m.ins.clampCursor()
		}
		return m, waitForChange(m.sub)

	case tea.KeyMsg:
		switch {
		case m.confirm != nil:
			return m.updateConfirm(msg)
		case m.ins != nil:
			return m.updateInserter(msg)
		case m.editing != "":
			return m.updateEditing(msg)
		default:
			return m.updateDocument(msg)
		}
	}
	return m, nil
}

func (m appModel) updateDocument(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status, m.isError = "", false
	sel := m.doc.SelectionEnd()

	switch msg.String() {
	case "ctrl+c", "q":
		if err := m.saveDocument(); err != nil {
			m.debugLogf("save on quit: %v", err)
		}
		m.close()
		return m, tea.Quit

	case "up", "k":
		m.moveSelection(-1)
	case "down", "j":
		m.moveSelection(1)

	case "i", "a":
		m.openInserter("")
	case "r":
		if sel != "" {
			m.openInserter(sel)
		}

	case "x", "delete":
		m.removeSelected()

	case " ":
		if sel != "" {
			m.marked[sel] = !m.marked[sel]
			if !m.marked[sel] {
				delete(m.marked, sel)
			}
		}

	case "e", "enter":
		v := m.views[sel]
		if v == nil {
			break
		}
		if !v.ctrl.CanPersist() {
			m.setStatus("You do not have permission to edit this block.")
			break
		}
		if err := v.ctrl.StartEditing(); err != nil {
			m.setError(err)
			break
		}
		m.editing = sel
		v.beginEditing()

	case "c":
		m.convertToStatic(sel)
	case "R":
		m.convertToReusable()
	case "D":
		m.deleteReusable(sel)

	case "y":
		if b, ok := m.doc.Get(sel); ok {
			if err := m.writeClipboard(blocks.Serialize([]model.Block{b})); err != nil {
				m.setError(err)
			} else {
				m.setStatus("Copied block.")
			}
		}

	case "ctrl+s":
		if err := m.saveDocument(); err != nil {
			m.setError(err)
		} else {
			m.setStatus("Saved.")
		}
	}
	return m, nil
}

func (m appModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.views[m.editing]
	if v == nil || !v.ctrl.IsEditing() {
		m.editing = ""
		return m, nil
	}
	switch msg.String() {
	case "esc":
		v.ctrl.StopEditing()
		v.endEditing()
		m.editing = ""
		return m, nil

	case "enter", "ctrl+s":
		v.ctrl.SetTitle(strings.TrimSpace(v.title.Value()))
		err := v.ctrl.Save()
		v.endEditing()
		m.editing = ""
		if err != nil {
			m.setError(err)
		} else {
			m.setStatus("Saving reusable block" + glyphEllipsis())
		}
		return m, nil

	case "ctrl+v":
		pasted, err := pasteBlocks(m.readClipboard)
		if err != nil {
			m.setError(err)
			return m, nil
		}
		if len(pasted) == 0 {
			return m, nil
		}
		next := append(append([]model.Block{}, v.ctrl.Blocks()...), pasted...)
		v.ctrl.SetBlocks(next)
		m.setStatus(fmt.Sprintf("Pasted %d block(s).", len(pasted)))
		return m, nil
	}

	var cmd tea.Cmd
	v.title, cmd = v.title.Update(msg)
	return m, cmd
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.confirm
	switch msg.String() {
	case "esc", "ctrl+g", "n":
		m.confirm = nil
	case "tab", "shift+tab", "left", "right":
		if c.focus == confirmFocusConfirm {
			c.focus = confirmFocusCancel
		} else {
			c.focus = confirmFocusConfirm
		}
	case "enter", "y":
		m.confirm = nil
		if msg.String() == "enter" && c.focus == confirmFocusCancel {
			return m, nil
		}
		if err := m.svc.Delete(context.Background(), c.ref); err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus("Deleted reusable block " + c.ref + ".")
	}
	return m, nil
}

func (m appModel) updateInserter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	iv := m.ins
	switch msg.String() {
	case "esc", "ctrl+g":
		iv.menu.Close()
		m.ins = nil
		m.syncReusableViews()
		return m, nil
	case "left":
		iv.move(-1, 0)
	case "right":
		iv.move(1, 0)
	case "up":
		iv.move(0, -1)
	case "down":
		iv.move(0, 1)
	case "tab":
		iv.nextTab()
	case "enter":
		item, ok := iv.current()
		if !ok {
			return m, nil
		}
		if _, err := iv.menu.Select(item); err != nil {
			m.setError(err)
			return m, nil
		}
		if ref, ok := item.InitialAttributes["ref"].(string); ok {
			m.state.TouchRecentReusable(ref)
		}
		m.state.InserterTab = string(iv.menu.Tab())
		m.ins = nil
		m.dirty = true
		m.syncReusableViews()
		m.debugLogf("inserted %s", item.ID)
		return m, nil
	default:
		var cmd tea.Cmd
		iv.filter, cmd = iv.filter.Update(msg)
		iv.setQuery(iv.filter.Value())
		return m, cmd
	}
	return m, nil
}

func (m *appModel) openInserter(replace string) {
	opts := []inserter.Option{
		inserter.WithClipboard(m.readClipboard),
		inserter.WithMinColumns(m.minColumns),
	}
	if replace != "" {
		opts = append(opts, inserter.WithReplace(replace))
	}
	menu := inserter.New(m.doc, m.svc, opts...)
	if m.state.InserterTab != "" {
		menu.SetTab(inserter.Tab(m.state.InserterTab))
	}
	menu.Open()
	menu.Resize(m.inserterWidth())
	if replace != "" {
		m.dirty = true
		m.syncReusableViews()
	}

	m.ins = newInserterView(menu)
	if menu.Tab() == inserter.TabReusable && len(m.state.RecentReusableIDs) > 0 {
		recent := m.state.RecentReusableIDs[0]
		for i, it := range menu.VisibleItems() {
			if it.InitialAttributes["ref"] == recent {
				m.ins.cursor = i
				break
			}
		}
	}
}

func (m appModel) inserterWidth() int {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m *appModel) moveSelection(delta int) {
	rows := m.blockRows()
	if len(rows) == 0 {
		return
	}
	cur := m.doc.SelectionEnd()
	idx := -1
	for i, r := range rows {
		if r.block.ClientID == cur {
			idx = i
			break
		}
	}
	next := idx + delta
	if idx < 0 {
		next = 0
	}
	if next < 0 {
		next = 0
	}
	if next >= len(rows) {
		next = len(rows) - 1
	}
	_ = m.doc.Select(rows[next].block.ClientID)
}

func (m *appModel) removeSelected() {
	sel := m.doc.SelectionEnd()
	if sel == "" {
		return
	}
	rows := m.blockRows()
	neighbor := ""
	for i, r := range rows {
		if r.block.ClientID != sel {
			continue
		}
		if i+1 < len(rows) && rows[i+1].depth <= r.depth {
			neighbor = rows[i+1].block.ClientID
		} else if i > 0 {
			neighbor = rows[i-1].block.ClientID
		}
		break
	}
	if err := m.doc.Remove(sel); err != nil {
		m.setError(err)
		return
	}
	delete(m.marked, sel)
	if neighbor != "" {
		_ = m.doc.Select(neighbor)
	}
	m.dirty = true
	m.syncReusableViews()
}

func (m *appModel) convertToStatic(clientID string) {
	v := m.views[clientID]
	if v == nil {
		return
	}
	frag, ok := m.svc.GetFragment(v.ref())
	if !ok {
		m.setStatus("Block is not loaded yet.")
		return
	}
	if err := m.doc.ConvertToStatic(clientID, blocks.Parse(frag.Content)); err != nil {
		m.setError(err)
		return
	}
	m.dirty = true
	m.syncReusableViews()
}

func (m *appModel) convertToReusable() {
	var ids []string
	for _, r := range m.blockRows() {
		if m.marked[r.block.ClientID] {
			ids = append(ids, r.block.ClientID)
		}
	}
	if len(ids) == 0 {
		if sel := m.doc.SelectionEnd(); sel != "" {
			ids = []string{sel}
		}
	}
	if len(ids) == 0 {
		return
	}
	rb, err := m.doc.ConvertToReusable(context.Background(), m.svc, ids)
	if err != nil {
		m.setError(err)
		return
	}
	m.marked = map[string]bool{}
	m.dirty = true
	m.syncReusableViews()
	m.debugLogf("converted %d block(s) to %s", len(ids), rb.ID)
}

// deleteReusable asks before deleting the fragment behind a reference. An unsaved
// fragment is discarded together with its reference right away.
func (m *appModel) deleteReusable(clientID string) {
	v := m.views[clientID]
	if v == nil {
		return
	}
	if v.isTemporary() {
		m.svc.Discard(v.ref())
		_ = m.doc.Remove(clientID)
		m.dirty = true
		m.syncReusableViews()
		return
	}
	if !m.svc.CanUser(perm.ActionDelete, v.ref()) {
		m.setStatus("You do not have permission to delete this block.")
		return
	}
	m.confirm = &confirmDelete{clientID: clientID, ref: v.ref(), title: v.ctrl.DisplayTitle()}
}

// syncReusableViews keeps one view per core/block in the document, retargeting
// views whose ref changed and closing views whose block is gone.
func (m *appModel) syncReusableViews() {
	seen := map[string]bool{}
	var walk func([]model.Block)
	walk = func(list []model.Block) {
		for _, b := range list {
			if ref, ok := editor.ReusableRef(b); ok {
				seen[b.ClientID] = true
				v := m.views[b.ClientID]
				if v == nil {
					v = newReusableView(b.ClientID, ref, m.svc)
					m.views[b.ClientID] = v
				} else {
					v.ctrl.Retarget(ref)
				}
				v.ctrl.Mount()
				if v.ctrl.IsEditing() && m.editing == "" {
					m.editing = b.ClientID
					_ = m.doc.Select(b.ClientID)
					v.beginEditing()
				}
			}
			walk(b.InnerBlocks)
		}
	}
	walk(m.doc.Blocks())

	for id, v := range m.views {
		if !seen[id] {
			v.ctrl.Close()
			delete(m.views, id)
			if m.editing == id {
				m.editing = ""
			}
		}
	}
}

func (m *appModel) saveDocument() error {
	ctx := context.Background()
	if m.dirty {
		m.docRecord.Content = m.doc.Serialize()
		saved, err := m.store.PutDocument(ctx, m.docRecord)
		if err != nil {
			return err
		}
		m.docRecord = saved
		m.dirty = false
		payload := map[string]any{"title": saved.Title, "blocks": m.doc.Count()}
		if err := m.store.AppendEventContext(ctx, m.actorID, "document.update", saved.ID, payload); err != nil {
			m.debugLogf("document event: %v", err)
		}
	}
	return m.store.SaveTUIState(m.state)
}

func (m *appModel) close() {
	for id, v := range m.views {
		v.ctrl.Close()
		delete(m.views, id)
	}
	m.svc.Unsubscribe(m.sub)
}

func (m *appModel) setStatus(s string) {
	m.status, m.isError = s, false
}

func (m *appModel) setError(err error) {
	m.status, m.isError = err.Error(), true
	m.debugLogf("error: %v", err)
}

type docRow struct {
	block     model.Block
	depth     int
	insertion bool
}

// rows flattens the document into display rows, including the insertion point.
func (m appModel) rows() []docRow {
	ip, hasIP := m.doc.InsertionPoint()
	var out []docRow
	var walk func(list []model.Block, root string, depth int)
	walk = func(list []model.Block, root string, depth int) {
		for i, b := range list {
			if hasIP && ip.RootClientID == root && ip.Index == i {
				out = append(out, docRow{depth: depth, insertion: true})
			}
			out = append(out, docRow{block: b, depth: depth})
			walk(b.InnerBlocks, b.ClientID, depth+1)
		}
		if hasIP && ip.RootClientID == root && ip.Index >= len(list) {
			out = append(out, docRow{depth: depth, insertion: true})
		}
	}
	walk(m.doc.Blocks(), "", 0)
	return out
}

func (m appModel) blockRows() []docRow {
	var out []docRow
	for _, r := range m.rows() {
		if !r.insertion {
			out = append(out, r)
		}
	}
	return out
}

func (m appModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	title := m.docRecord.Title
	if strings.TrimSpace(title) == "" {
		title = defaultDocumentTitle
	}
	if m.dirty {
		title += " *"
	}
	header := styleAccent().Render(" reblock ") + " " + lipgloss.NewStyle().Bold(true).Render(title) +
		"  " + styleMuted().Render(m.actorID)

	footer := m.helpLine()
	if m.status != "" {
		footer = styleMuted().Render(m.status)
		if m.isError {
			footer = styleError().Render(m.status)
		}
	}

	bodyH := m.height - 2
	var overlay string
	switch {
	case m.confirm != nil:
		body := fmt.Sprintf("Delete %q (%s) for every document that uses it?", m.confirm.title, m.confirm.ref)
		overlay = renderConfirmModal(m.width, "Delete reusable block", body, "Delete", "Cancel", m.confirm.focus)
	case m.ins != nil:
		overlay = m.ins.render(m.width)
	}
	if overlay != "" {
		bodyH -= lipgloss.Height(overlay)
	}
	if bodyH < 1 {
		bodyH = 1
	}

	lines, selLine := m.bodyLines()
	start := 0
	if selLine >= bodyH {
		start = selLine - bodyH + 1
	}
	if start > len(lines) {
		start = len(lines)
	}
	body := normalizePane(strings.Join(lines[start:], "\n"), m.width, bodyH)

	parts := []string{fitCells(header, m.width), body}
	if overlay != "" {
		parts = append(parts, overlay)
	}
	parts = append(parts, fitCells(footer, m.width))
	return strings.Join(parts, "\n")
}

// bodyLines renders the document rows; selLine is the last line of the selected
// block so scrolling keeps it visible.
func (m appModel) bodyLines() ([]string, int) {
	sel := m.doc.SelectionEnd()
	reg := m.doc.Registry()
	var lines []string
	selLine := 0

	rows := m.rows()
	if len(rows) == 0 {
		lines = append(lines, styleMuted().Render("  Empty document. Press i to insert a block."))
	}
	for _, r := range rows {
		indent := strings.Repeat("  ", r.depth)
		if r.insertion {
			lines = append(lines, "  "+indent+styleAccent().Render(glyphInsertionPoint()))
			continue
		}
		cursor := "  "
		if r.block.ClientID == sel {
			cursor = glyphCursor() + " "
		}
		mark := " "
		if m.marked[r.block.ClientID] {
			mark = "*"
		}
		name := r.block.Name
		icon := ""
		if bt, ok := reg.Get(r.block.Name); ok {
			name = bt.Title
			icon = blockIcon(bt.Icon)
		}
		text := strings.ReplaceAll(blocks.PlainText(r.block), "\n", " ")
		line := cursor + mark + indent + icon + " " + name
		if text != "" && r.block.Name != blocks.ReusableBlockName {
			line += "  " + styleMuted().Render(text)
		}
		if r.block.ClientID == sel {
			line = styleSelected().Render(xansi.Truncate(line, m.width, ""))
		}
		lines = append(lines, line)

		if v := m.views[r.block.ClientID]; v != nil {
			w := m.width - 4 - 2*r.depth
			panel := v.render(w, r.block.ClientID == sel, m.spinner)
			for _, pl := range strings.Split(panel, "\n") {
				lines = append(lines, "    "+indent+pl)
			}
		}
		if r.block.ClientID == sel {
			selLine = len(lines) - 1
		}
	}
	return lines, selLine
}

func (m appModel) helpLine() string {
	switch {
	case m.editing != "":
		return styleMuted().Render("enter: save   esc: cancel   ctrl+v: paste blocks")
	case m.ins != nil, m.confirm != nil:
		return ""
	}
	return styleMuted().Render("i: insert  r: replace  x: remove  space: mark  R: make reusable  c: convert to blocks  e: edit  D: delete reusable  y: copy  ctrl+s: save  q: quit")
}

