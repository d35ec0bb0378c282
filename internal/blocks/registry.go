package blocks

import (
	"sort"
	"strings"
	"sync"
)

const (
	CategoryText     = "text"
	CategoryMedia    = "media"
	CategoryDesign   = "design"
	CategoryReusable = "reusable"

	// ReusableBlockName is the block that references a reusable block by its "ref" attribute.
	ReusableBlockName = "core/block"
	DefaultBlockName  = "core/paragraph"
)

// BlockType describes a registered block.
type BlockType struct {
	Name     string
	Title    string
	Icon     string
	Category string

	// Parent restricts where the block may be inserted. Empty means anywhere
	// a parent's AllowedBlocks permits.
	Parent []string
	// AllowedBlocks restricts children. Nil means any block; empty means none.
	AllowedBlocks []string

	// Inserter controls whether the type is offered directly in the inserter.
	Inserter bool
}

// Registry holds block types by name.
type Registry struct {
	mu    sync.RWMutex
	types map[string]BlockType
	order []string
}

func NewRegistry() *Registry {
	return &Registry{types: map[string]BlockType{}}
}

// DefaultRegistry returns a registry with the built-in block types.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, bt := range builtinTypes() {
		r.Register(bt)
	}
	return r
}

func builtinTypes() []BlockType {
	return []BlockType{
		{Name: "core/paragraph", Title: "Paragraph", Icon: "¶", Category: CategoryText, Inserter: true},
		{Name: "core/heading", Title: "Heading", Icon: "H", Category: CategoryText, Inserter: true},
		{Name: "core/list", Title: "List", Icon: "•", Category: CategoryText, Inserter: true},
		{Name: "core/quote", Title: "Quote", Icon: "❝", Category: CategoryText, Inserter: true},
		{Name: "core/code", Title: "Code", Icon: "</>", Category: CategoryText, Inserter: true},
		{Name: "core/html", Title: "Custom HTML", Icon: "<>", Category: CategoryText, Inserter: true},
		{Name: "core/image", Title: "Image", Icon: "▣", Category: CategoryMedia, Inserter: true},
		{Name: "core/separator", Title: "Separator", Icon: "—", Category: CategoryDesign, Inserter: true},
		{Name: "core/group", Title: "Group", Icon: "▢", Category: CategoryDesign, Inserter: true},
		{Name: "core/columns", Title: "Columns", Icon: "▥", Category: CategoryDesign, AllowedBlocks: []string{"core/column"}, Inserter: true},
		{Name: "core/column", Title: "Column", Icon: "▯", Category: CategoryDesign, Parent: []string{"core/columns"}, Inserter: true},
		{Name: ReusableBlockName, Title: "Reusable block", Icon: "⟳", Category: CategoryReusable, AllowedBlocks: []string{}},
		{Name: freeformName, Title: "Classic", Icon: "≡", Category: CategoryText},
		{Name: "core/missing", Title: "Unsupported", Icon: "?", Category: CategoryText},
	}
}

// Register adds or replaces a block type. Names without a namespace get "core/".
func (r *Registry) Register(bt BlockType) {
	bt.Name = normalizeName(strings.TrimSpace(bt.Name))
	if bt.Name == defaultNamespace {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[bt.Name]; !ok {
		r.order = append(r.order, bt.Name)
	}
	r.types[bt.Name] = bt
}

func (r *Registry) Get(name string) (BlockType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bt, ok := r.types[name]
	return bt, ok
}

// Types returns all types in registration order.
func (r *Registry) Types() []BlockType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]BlockType, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.types[n])
	}
	return out
}

// ChildBlockNames lists types that declare parent as an allowed parent.
func (r *Registry) ChildBlockNames(parent string) []string {
	if parent == "" {
		return nil
	}
	var out []string
	for _, bt := range r.Types() {
		if containsString(bt.Parent, parent) {
			out = append(out, bt.Name)
		}
	}
	sort.Strings(out)
	return out
}

// CanInsertBlockType reports whether a block of the given type may be inserted
// under a root block named rootName ("" is the document root).
func (r *Registry) CanInsertBlockType(name, rootName string) bool {
	bt, ok := r.Get(name)
	if !ok {
		return false
	}
	if len(bt.Parent) > 0 && !containsString(bt.Parent, rootName) {
		return false
	}
	if rootName == "" {
		return true
	}
	root, ok := r.Get(rootName)
	if !ok {
		return false
	}
	if root.AllowedBlocks != nil && !containsString(root.AllowedBlocks, name) {
		return false
	}
	return true
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
