package editor

import (
	"context"
	"errors"
	"fmt"

	"reblock-cli/internal/blocks"
	"reblock-cli/internal/model"
)

// DefaultReusableTitle is the title given to blocks converted to a reusable block.
const DefaultReusableTitle = "Untitled Reusable Block"

var ErrBlockNotFound = errors.New("block not found")

// InsertionPoint marks where the inserter will place a new block.
type InsertionPoint struct {
	RootClientID string
	Index        int
}

// TemporaryCreator creates unsaved reusable blocks.
type TemporaryCreator interface {
	CreateTemporary(ctx context.Context, title, content string) (*model.ReusableBlock, error)
}

// Document is an editable block tree. Every node carries a client id; the empty
// root client id addresses the top level.
type Document struct {
	registry *blocks.Registry
	blocks   []model.Block

	selectionEnd   string
	insertionPoint *InsertionPoint
}

// NewDocument parses content into an editable tree.
func NewDocument(content string, registry *blocks.Registry) *Document {
	if registry == nil {
		registry = blocks.DefaultRegistry()
	}
	return &Document{
		registry: registry,
		blocks:   blocks.AssignClientIDs(blocks.Parse(content)),
	}
}

func (d *Document) Registry() *blocks.Registry { return d.registry }

// Blocks returns the top-level blocks.
func (d *Document) Blocks() []model.Block { return d.blocks }

func (d *Document) Serialize() string { return blocks.Serialize(d.blocks) }

// Count returns the number of top-level blocks.
func (d *Document) Count() int { return len(d.blocks) }

// Reset replaces the whole tree. Blocks without client ids get fresh ones.
func (d *Document) Reset(bs []model.Block) {
	d.blocks = ensureClientIDs(bs)
	if _, ok := d.Get(d.selectionEnd); !ok {
		d.selectionEnd = ""
	}
}

func ensureClientIDs(bs []model.Block) []model.Block {
	if len(bs) == 0 {
		return []model.Block{}
	}
	out := make([]model.Block, len(bs))
	for i, b := range bs {
		if b.ClientID == "" {
			b.ClientID = blocks.NewClientID()
		}
		b.InnerBlocks = ensureClientIDs(b.InnerBlocks)
		if len(b.InnerBlocks) == 0 {
			b.InnerBlocks = nil
		}
		out[i] = b
	}
	return out
}

// Get returns a copy of the block with clientID.
func (d *Document) Get(clientID string) (model.Block, bool) {
	if clientID == "" {
		return model.Block{}, false
	}
	b, _, ok := find(d.blocks, clientID, "")
	if !ok {
		return model.Block{}, false
	}
	return *b, true
}

// Name returns the block type name of clientID ("" when unknown).
func (d *Document) Name(clientID string) string {
	b, ok := d.Get(clientID)
	if !ok {
		return ""
	}
	return b.Name
}

// RootClientID returns the client id of the block containing clientID ("" for top level).
func (d *Document) RootClientID(clientID string) string {
	_, root, _ := find(d.blocks, clientID, "")
	return root
}

// BlockOrder returns the client ids of the direct children of root.
func (d *Document) BlockOrder(root string) []string {
	list, ok := d.children(root)
	if !ok {
		return nil
	}
	out := make([]string, len(*list))
	for i, b := range *list {
		out[i] = b.ClientID
	}
	return out
}

// Index returns the position of clientID among its siblings.
func (d *Document) Index(clientID string) int {
	for i, id := range d.BlockOrder(d.RootClientID(clientID)) {
		if id == clientID {
			return i
		}
	}
	return -1
}

func find(list []model.Block, clientID, root string) (*model.Block, string, bool) {
	for i := range list {
		if list[i].ClientID == clientID {
			return &list[i], root, true
		}
		if b, r, ok := find(list[i].InnerBlocks, clientID, list[i].ClientID); ok {
			return b, r, true
		}
	}
	return nil, "", false
}

func (d *Document) children(root string) (*[]model.Block, bool) {
	if root == "" {
		return &d.blocks, true
	}
	b, _, ok := find(d.blocks, root, "")
	if !ok {
		return nil, false
	}
	return &b.InnerBlocks, true
}

// Insert places b at index under root (clamped to the valid range). The block type
// must be insertable there.
func (d *Document) Insert(b model.Block, index int, root string) error {
	list, ok := d.children(root)
	if !ok {
		return fmt.Errorf("insert: root %s: %w", root, ErrBlockNotFound)
	}
	if !d.registry.CanInsertBlockType(b.Name, d.Name(root)) {
		return fmt.Errorf("insert: %s is not allowed in %q", b.Name, d.Name(root))
	}
	if b.ClientID == "" {
		b.ClientID = blocks.NewClientID()
	}
	if index < 0 || index > len(*list) {
		index = len(*list)
	}
	next := make([]model.Block, 0, len(*list)+1)
	next = append(next, (*list)[:index]...)
	next = append(next, b)
	next = append(next, (*list)[index:]...)
	*list = next
	d.selectionEnd = b.ClientID
	return nil
}

// InsertDefault inserts an empty default block (a paragraph) and returns its client id.
func (d *Document) InsertDefault(root string, index int) (string, error) {
	b := blocks.CreateBlock(blocks.DefaultBlockName, nil, nil)
	if err := d.Insert(b, index, root); err != nil {
		return "", err
	}
	return b.ClientID, nil
}

// Remove deletes clientID and its inner blocks.
func (d *Document) Remove(clientID string) error {
	root := d.RootClientID(clientID)
	list, ok := d.children(root)
	if !ok {
		return ErrBlockNotFound
	}
	for i := range *list {
		if (*list)[i].ClientID == clientID {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			if d.selectionEnd == clientID {
				d.selectionEnd = ""
			} else if _, ok := d.Get(d.selectionEnd); !ok {
				d.selectionEnd = ""
			}
			return nil
		}
	}
	return ErrBlockNotFound
}

func (d *Document) Select(clientID string) error {
	if _, ok := d.Get(clientID); !ok {
		return ErrBlockNotFound
	}
	d.selectionEnd = clientID
	return nil
}

// SelectionEnd returns the selected block's client id ("" when nothing is selected).
func (d *Document) SelectionEnd() string { return d.selectionEnd }

func (d *Document) ClearSelection() { d.selectionEnd = "" }

func (d *Document) ShowInsertionPoint(root string, index int) {
	d.insertionPoint = &InsertionPoint{RootClientID: root, Index: index}
}

func (d *Document) HideInsertionPoint() { d.insertionPoint = nil }

func (d *Document) InsertionPoint() (InsertionPoint, bool) {
	if d.insertionPoint == nil {
		return InsertionPoint{}, false
	}
	return *d.insertionPoint, true
}

// ConvertToStatic replaces the reusable reference clientID with a copy of the
// fragment's blocks.
func (d *Document) ConvertToStatic(clientID string, fragment []model.Block) error {
	ref, ok := d.Get(clientID)
	if !ok {
		return ErrBlockNotFound
	}
	if ref.Name != blocks.ReusableBlockName {
		return fmt.Errorf("convert to static: %s is a %s block", clientID, ref.Name)
	}
	root := d.RootClientID(clientID)
	list, _ := d.children(root)
	idx := d.Index(clientID)

	inserted := blocks.AssignClientIDs(fragment)
	next := make([]model.Block, 0, len(*list)-1+len(inserted))
	next = append(next, (*list)[:idx]...)
	next = append(next, inserted...)
	next = append(next, (*list)[idx+1:]...)
	*list = next

	d.selectionEnd = ""
	if len(inserted) > 0 {
		d.selectionEnd = inserted[len(inserted)-1].ClientID
	}
	return nil
}

// ConvertToReusable moves the given sibling blocks into a new temporary reusable
// block and puts a reference to it where the first of them was.
func (d *Document) ConvertToReusable(ctx context.Context, creator TemporaryCreator, clientIDs []string) (*model.ReusableBlock, error) {
	if len(clientIDs) == 0 {
		return nil, errors.New("convert to reusable: no blocks selected")
	}
	root := d.RootClientID(clientIDs[0])
	want := map[string]bool{}
	for _, id := range clientIDs {
		if _, ok := d.Get(id); !ok {
			return nil, fmt.Errorf("convert to reusable: %s: %w", id, ErrBlockNotFound)
		}
		if d.RootClientID(id) != root {
			return nil, errors.New("convert to reusable: blocks must share a parent")
		}
		want[id] = true
	}

	list, _ := d.children(root)
	var selected []model.Block
	first := -1
	for i, b := range *list {
		if want[b.ClientID] {
			if first < 0 {
				first = i
			}
			selected = append(selected, b)
		}
	}

	rb, err := creator.CreateTemporary(ctx, DefaultReusableTitle, blocks.Serialize(selected))
	if err != nil {
		return nil, err
	}

	ref := blocks.CreateBlock(blocks.ReusableBlockName, map[string]any{"ref": rb.ID}, nil)
	next := make([]model.Block, 0, len(*list)-len(selected)+1)
	for i, b := range *list {
		if i == first {
			next = append(next, ref)
		}
		if !want[b.ClientID] {
			next = append(next, b)
		}
	}
	*list = next
	d.selectionEnd = ref.ClientID
	return rb, nil
}

// ReusableRef returns the referenced reusable block id of a core/block node.
func ReusableRef(b model.Block) (string, bool) {
	if b.Name != blocks.ReusableBlockName {
		return "", false
	}
	switch v := b.Attributes["ref"].(type) {
	case string:
		return v, v != ""
	case float64:
		return fmt.Sprintf("%.0f", v), true
	}
	return "", false
}
