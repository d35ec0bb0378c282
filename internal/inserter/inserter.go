package inserter

import (
	"errors"
	"strings"

	"reblock-cli/internal/blocks"
	"reblock-cli/internal/editor"
	"reblock-cli/internal/grid"
	"reblock-cli/internal/model"

	"github.com/atotto/clipboard"
	"github.com/sahilm/fuzzy"
)

type Tab string

const (
	TabBlocks   Tab = "blocks"
	TabReusable Tab = "reusable"
)

// ClipboardItemID identifies the item built from the system clipboard.
const ClipboardItemID = "clipboard"

// GridOptions is the inserter grid geometry in terminal cells.
var GridOptions = grid.Options{
	MinColumns:         grid.DefaultMinColumns,
	HorizontalPadding:  2,
	ItemIntrinsicWidth: 14,
	ItemPadding:        1,
}

// ReusableSource lists known reusable blocks and can refresh them in the background.
type ReusableSource interface {
	List() []model.ReusableBlock
	FetchAll()
}

type Option func(*Menu)

// WithRootClientID fixes the destination root instead of deriving it from the selection.
func WithRootClientID(id string) Option {
	return func(m *Menu) { m.rootClientID = id; m.hasRoot = true }
}

// WithReplace makes the menu replace clientID with the chosen block.
func WithReplace(clientID string) Option {
	return func(m *Menu) { m.replaceClientID = clientID }
}

// WithClipboard overrides how the clipboard is read.
func WithClipboard(read func() (string, error)) Option {
	return func(m *Menu) { m.readClipboard = read }
}

func WithMinColumns(n int) Option {
	return func(m *Menu) {
		if n > 0 {
			m.tracker.Options.MinColumns = n
		}
	}
}

// Menu is one opening of the block inserter for a document.
type Menu struct {
	doc           *editor.Document
	source        ReusableSource
	readClipboard func() (string, error)
	tracker       *grid.Tracker

	rootClientID    string
	hasRoot         bool
	replaceClientID string

	open      bool
	destRoot  string
	index     int
	tab       Tab
	query     string
	clipboard []model.Block
}

func New(doc *editor.Document, source ReusableSource, opts ...Option) *Menu {
	m := &Menu{
		doc:           doc,
		source:        source,
		readClipboard: clipboard.ReadAll,
		tracker:       grid.NewTracker(GridOptions),
		tab:           TabBlocks,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Menu) IsOpen() bool { return m.open }

// DestinationRoot is the root client id new blocks are inserted under.
func (m *Menu) DestinationRoot() string {
	if m.hasRoot {
		return m.rootClientID
	}
	if m.replaceClientID != "" {
		return m.doc.RootClientID(m.replaceClientID)
	}
	if sel := m.doc.SelectionEnd(); sel != "" {
		return m.doc.RootClientID(sel)
	}
	return ""
}

// InsertionIndex is where the next block lands under the destination root.
func (m *Menu) InsertionIndex() int {
	root := m.DestinationRoot()
	if m.replaceClientID != "" {
		if i := m.doc.Index(m.replaceClientID); i >= 0 {
			return i
		}
	}
	if sel := m.doc.SelectionEnd(); sel != "" && m.doc.RootClientID(sel) == root {
		if i := m.doc.Index(sel); i >= 0 {
			return i + 1
		}
	}
	return len(m.doc.BlockOrder(root))
}

// Open shows the insertion point, removes the block being replaced and starts
// fetching reusable blocks.
func (m *Menu) Open() {
	if m.open {
		return
	}
	m.destRoot = m.DestinationRoot()
	m.index = m.InsertionIndex()
	m.open = true
	m.doc.ShowInsertionPoint(m.destRoot, m.index)

	if m.replaceClientID != "" {
		if m.destRoot == "" && m.doc.Count() == 1 {
			m.doc.Reset(nil)
		} else {
			_ = m.doc.Remove(m.replaceClientID)
		}
	}
	if m.source != nil {
		m.source.FetchAll()
	}
	m.clipboard = m.clipboardBlocks()
}

func (m *Menu) clipboardBlocks() []model.Block {
	if m.readClipboard == nil {
		return nil
	}
	raw, err := m.readClipboard()
	if err != nil || strings.TrimSpace(raw) == "" {
		return nil
	}
	parsed := blocks.RawHandler(raw)
	if len(parsed) == 0 {
		return nil
	}
	rootName := m.doc.Name(m.destRoot)
	for _, b := range parsed {
		if !m.doc.Registry().CanInsertBlockType(b.Name, rootName) {
			return nil
		}
	}
	return parsed
}

// Close hides the insertion point. Closing a replacing menu without a selection
// leaves a default block in place of the removed one.
func (m *Menu) Close() {
	m.close(false)
}

func (m *Menu) close(selected bool) {
	if !m.open {
		return
	}
	m.open = false
	m.doc.HideInsertionPoint()
	if m.replaceClientID != "" && !selected {
		_, _ = m.doc.InsertDefault(m.destRoot, m.index)
	}
}

// Items returns every insertable item: allowed block types followed by reusable blocks.
func (m *Menu) Items() []model.InserterItem {
	reg := m.doc.Registry()
	rootName := m.doc.Name(m.destRootOrCurrent())

	var out []model.InserterItem
	for _, bt := range reg.Types() {
		if !bt.Inserter || !reg.CanInsertBlockType(bt.Name, rootName) {
			continue
		}
		out = append(out, model.InserterItem{
			ID:       bt.Name,
			Name:     bt.Name,
			Title:    bt.Title,
			Icon:     bt.Icon,
			Category: bt.Category,
		})
	}
	if m.source == nil || !reg.CanInsertBlockType(blocks.ReusableBlockName, rootName) {
		return out
	}
	icon := ""
	if bt, ok := reg.Get(blocks.ReusableBlockName); ok {
		icon = bt.Icon
	}
	for _, rb := range m.source.List() {
		out = append(out, model.InserterItem{
			ID:                blocks.ReusableBlockName + "/" + rb.ID,
			Name:              blocks.ReusableBlockName,
			Title:             rb.Title,
			Icon:              icon,
			Category:          blocks.CategoryReusable,
			InitialAttributes: map[string]any{"ref": rb.ID},
		})
	}
	return out
}

func (m *Menu) destRootOrCurrent() string {
	if m.open {
		return m.destRoot
	}
	return m.DestinationRoot()
}

// TabItems returns the items shown on tab, after the current filter.
func (m *Menu) TabItems(tab Tab) []model.InserterItem {
	var out []model.InserterItem
	if tab == TabBlocks && len(m.clipboard) > 0 {
		out = append(out, model.InserterItem{
			ID:          ClipboardItemID,
			Name:        ClipboardItemID,
			Title:       "Clipboard",
			Icon:        "⎘",
			Category:    ClipboardItemID,
			InnerBlocks: m.clipboard,
		})
	}
	for _, it := range m.Items() {
		if (it.Category == blocks.CategoryReusable) == (tab == TabReusable) {
			out = append(out, it)
		}
	}
	return Filter(out, m.query)
}

// Tabs returns the tab headers to show; nil when there are no reusable items.
func (m *Menu) Tabs() []Tab {
	for _, it := range m.Items() {
		if it.Category == blocks.CategoryReusable {
			return []Tab{TabBlocks, TabReusable}
		}
	}
	return nil
}

func (m *Menu) Tab() Tab {
	if m.tab == TabReusable && m.Tabs() == nil {
		return TabBlocks
	}
	return m.tab
}

func (m *Menu) SetTab(t Tab) { m.tab = t }

// VisibleItems returns the items of the active tab.
func (m *Menu) VisibleItems() []model.InserterItem { return m.TabItems(m.Tab()) }

func (m *Menu) Query() string { return m.query }

func (m *Menu) SetQuery(q string) { m.query = q }

// Resize recomputes the grid for a container width; the bool reports a column change.
func (m *Menu) Resize(width int) (grid.Layout, bool) {
	return m.tracker.Update(float64(width))
}

func (m *Menu) Layout() (grid.Layout, bool) { return m.tracker.Layout() }

// ListKey identifies the current grid shape.
func (m *Menu) ListKey() string { return m.tracker.ListKey(string(m.Tab())) }

// Select inserts item at the insertion index and closes the menu. It returns the
// client id of the last inserted block.
func (m *Menu) Select(item model.InserterItem) (string, error) {
	if !m.open {
		return "", errors.New("inserter is closed")
	}
	var toInsert []model.Block
	if item.ID == ClipboardItemID {
		toInsert = blocks.AssignClientIDs(item.InnerBlocks)
	} else {
		toInsert = []model.Block{blocks.CreateBlock(item.Name, item.InitialAttributes, item.InnerBlocks)}
	}
	if len(toInsert) == 0 {
		return "", errors.New("nothing to insert")
	}

	last := ""
	for i, b := range toInsert {
		if err := m.doc.Insert(b, m.index+i, m.destRoot); err != nil {
			return "", err
		}
		last = b.ClientID
	}
	m.close(true)
	return last, nil
}

type itemTitles []model.InserterItem

func (it itemTitles) String(i int) string { return it[i].Title }
func (it itemTitles) Len() int            { return len(it) }

// Filter keeps the items whose title fuzzily matches query, best matches first.
func Filter(items []model.InserterItem, query string) []model.InserterItem {
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}
	matches := fuzzy.FindFrom(query, itemTitles(items))
	out := make([]model.InserterItem, 0, len(matches))
	for _, mt := range matches {
		out = append(out, items[mt.Index])
	}
	return out
}
