package reusable

import (
	"errors"

	"reblock-cli/internal/model"
)

// ErrNotLoaded is returned when an operation needs the fragment but the store has none.
var ErrNotLoaded = errors.New("reusable block is not loaded")

// Edits is the update sent to the document store on save.
type Edits struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// DocumentStore is the store a controller reads fragments from and saves them to.
//
// FetchFragment is asynchronous: the fragment becomes visible through GetFragment
// later, and the host calls Refresh when the store notifies it.
type DocumentStore interface {
	FetchFragment(id string)
	IsFetching(id string) bool
	GetFragment(id string) (*model.ReusableBlock, bool)
	UpdateAndPersist(id string, edits Edits) error
	CanUser(action, id string) bool
}

// Serializer converts between serialized content and block trees.
type Serializer interface {
	Parse(content string) []model.Block
	Serialize(blocks []model.Block) string
}

type savingStore interface {
	IsSaving(id string) bool
}

type Phase int

const (
	PhaseUnloaded Phase = iota
	PhasePreviewing
	PhaseEditing
)

func (p Phase) String() string {
	switch p {
	case PhaseUnloaded:
		return "unloaded"
	case PhasePreviewing:
		return "previewing"
	case PhaseEditing:
		return "editing"
	default:
		return "unknown"
	}
}

// Snapshot is what a view renders from.
type Snapshot struct {
	IsEditing  bool          `json:"isEditing"`
	Title      string        `json:"title"`
	HasTitle   bool          `json:"hasTitle"`
	Blocks     []model.Block `json:"blocks"`
	CanPersist bool          `json:"canPersist"`
}

type Option func(*Controller)

// WithSubscription hands the controller a store subscription to release on Close.
func WithSubscription(release func()) Option {
	return func(c *Controller) { c.release = release }
}

// Controller manages the edit lifecycle of one reusable block reference.
//
// It is not safe for concurrent use; hosts drive it from their update loop.
type Controller struct {
	id         string
	store      DocumentStore
	serializer Serializer

	isEditing bool
	// title == nil means nothing has been loaded from the fragment yet. In that state
	// blocks is empty and isEditing is false.
	title  *string
	blocks []model.Block

	fetchRequested bool
	lastSeen       *model.ReusableBlock

	release func()
	closed  bool
}

// New creates a controller for the fragment id. When the store already has the
// fragment (it was just created locally), state is seeded from it and a temporary
// fragment starts in editing mode.
func New(id string, store DocumentStore, serializer Serializer, opts ...Option) *Controller {
	c := &Controller{id: id, store: store, serializer: serializer}
	for _, opt := range opts {
		opt(c)
	}
	if frag, ok := store.GetFragment(id); ok && frag != nil {
		c.isEditing = frag.IsTemporary
		c.load(frag)
	}
	return c
}

func (c *Controller) load(frag *model.ReusableBlock) {
	title := frag.Title
	c.title = &title
	c.blocks = c.serializer.Parse(frag.Content)
	c.lastSeen = frag
}

func (c *Controller) fragment() (*model.ReusableBlock, bool) {
	frag, ok := c.store.GetFragment(c.id)
	if !ok || frag == nil {
		return nil, false
	}
	return frag, true
}

func (c *Controller) ID() string { return c.id }

// Mount requests the fragment from the store if it is not available. Only the first
// call per identity fetches; later calls are no-ops.
func (c *Controller) Mount() {
	if c.closed || c.fetchRequested {
		return
	}
	if _, ok := c.fragment(); ok {
		return
	}
	c.fetchRequested = true
	c.store.FetchFragment(c.id)
}

// Retarget points the controller at another fragment. If nothing was loaded yet the
// controller goes back to the unloaded state and the next Mount fetches again.
func (c *Controller) Retarget(id string) {
	if id == c.id {
		return
	}
	c.id = id
	c.fetchRequested = false
	if c.title == nil {
		c.reset()
		c.lastSeen = nil
	}
}

// Refresh picks up a fragment the store delivered since the last call. It only loads
// when nothing is loaded yet; isEditing is left alone. It reports whether state changed.
func (c *Controller) Refresh() bool {
	if c.closed {
		return false
	}
	frag, _ := c.fragment()
	if frag == c.lastSeen {
		return false
	}
	c.lastSeen = frag
	if frag == nil || c.title != nil {
		return false
	}
	c.load(frag)
	return true
}

// StartEditing always reloads from the store's current fragment, discarding any
// abandoned local edits.
func (c *Controller) StartEditing() error {
	frag, ok := c.fragment()
	if !ok {
		return ErrNotLoaded
	}
	c.isEditing = true
	c.load(frag)
	return nil
}

// StopEditing cancels editing and forgets the loaded title and blocks.
func (c *Controller) StopEditing() {
	c.reset()
}

func (c *Controller) reset() {
	c.isEditing = false
	c.title = nil
	c.blocks = nil
}

func (c *Controller) SetBlocks(blocks []model.Block) { c.blocks = blocks }

func (c *Controller) SetTitle(title string) { c.title = &title }

// Save serializes the blocks and hands them to the store, then resets like
// StopEditing. The reset happens even when the store rejects the update, so a failed
// save drops the local edits; the store's error is returned.
func (c *Controller) Save() error {
	edits := Edits{
		Title:   c.DisplayTitle(),
		Content: c.serializer.Serialize(c.blocks),
	}
	err := c.store.UpdateAndPersist(c.id, edits)
	c.reset()
	return err
}

func (c *Controller) IsEditing() bool { return c.isEditing }

// Title returns the controller's own title; ok is false while unloaded.
func (c *Controller) Title() (string, bool) {
	if c.title == nil {
		return "", false
	}
	return *c.title, true
}

func (c *Controller) Blocks() []model.Block { return c.blocks }

func (c *Controller) Phase() Phase {
	switch {
	case c.isEditing:
		return PhaseEditing
	case c.title == nil:
		return PhaseUnloaded
	default:
		return PhasePreviewing
	}
}

// CanPersist reports whether the fragment exists, has been persisted before and the
// current actor may update it.
func (c *Controller) CanPersist() bool {
	frag, ok := c.fragment()
	if !ok || frag.IsTemporary {
		return false
	}
	return c.store.CanUser("update", c.id)
}

// HasFragment reports whether the store currently has the fragment.
func (c *Controller) HasFragment() bool {
	_, ok := c.fragment()
	return ok
}

func (c *Controller) IsFetching() bool { return c.store.IsFetching(c.id) }

func (c *Controller) IsSaving() bool {
	if s, ok := c.store.(savingStore); ok {
		return s.IsSaving(c.id)
	}
	return false
}

// DisplayTitle is the title shown in the edit panel: the local one while loaded,
// otherwise the fragment's.
func (c *Controller) DisplayTitle() string {
	if c.title != nil {
		return *c.title
	}
	if frag, ok := c.fragment(); ok {
		return frag.Title
	}
	return ""
}

func (c *Controller) Snapshot() Snapshot {
	title, ok := c.Title()
	return Snapshot{
		IsEditing:  c.isEditing,
		Title:      title,
		HasTitle:   ok,
		Blocks:     c.blocks,
		CanPersist: c.CanPersist(),
	}
}

// Close releases the store subscription. Refresh and Mount are no-ops afterwards.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.release != nil {
		c.release()
		c.release = nil
	}
}
