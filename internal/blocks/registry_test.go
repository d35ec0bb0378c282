package blocks

import (
	"reflect"
	"strings"
	"testing"
)

func TestRegistry_CanInsertBlockType(t *testing.T) {
	r := DefaultRegistry()

	cases := []struct {
		name string
		root string
		want bool
	}{
		{"core/paragraph", "", true},
		{"core/column", "", false},
		{"core/column", "core/columns", true},
		{"core/paragraph", "core/columns", false},
		{"core/paragraph", "core/group", true},
		{"core/paragraph", ReusableBlockName, false},
		{"core/unknown", "", false},
		{"core/paragraph", "core/unknown", false},
	}
	for _, tc := range cases {
		if got := r.CanInsertBlockType(tc.name, tc.root); got != tc.want {
			t.Fatalf("CanInsertBlockType(%q, %q)=%v; want %v", tc.name, tc.root, got, tc.want)
		}
	}
}

func TestRegistry_ChildBlockNames(t *testing.T) {
	r := DefaultRegistry()
	if got := r.ChildBlockNames("core/columns"); !reflect.DeepEqual(got, []string{"core/column"}) {
		t.Fatalf("unexpected child names: %v", got)
	}
	if got := r.ChildBlockNames(""); got != nil {
		t.Fatalf("expected no child names for the document root, got %v", got)
	}
}

func TestRegistry_RegisterNormalizesAndKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(BlockType{Name: "alpha", Title: "Alpha", Inserter: true})
	r.Register(BlockType{Name: "acme/beta", Title: "Beta"})
	r.Register(BlockType{Name: "core/alpha", Title: "Alpha v2", Inserter: true})

	types := r.Types()
	if len(types) != 2 {
		t.Fatalf("expected 2 types, got %d", len(types))
	}
	if types[0].Name != "core/alpha" || types[0].Title != "Alpha v2" {
		t.Fatalf("expected re-registration to replace in place, got %+v", types[0])
	}
	if types[1].Name != "acme/beta" {
		t.Fatalf("expected namespaced name kept, got %q", types[1].Name)
	}
}

func TestCreateBlock_AssignsFreshClientIDs(t *testing.T) {
	inner := Parse("<!-- wp:paragraph --><p>a</p><!-- /wp:paragraph -->")
	attrs := map[string]any{"ref": "rb-1"}

	a := CreateBlock("group", attrs, inner)
	b := CreateBlock("group", attrs, inner)

	if a.Name != "core/group" {
		t.Fatalf("expected normalized name, got %q", a.Name)
	}
	if a.ClientID == "" || a.ClientID == b.ClientID {
		t.Fatalf("expected unique client ids, got %q and %q", a.ClientID, b.ClientID)
	}
	if !strings.HasPrefix(a.InnerBlocks[0].ClientID, "blk-") {
		t.Fatalf("expected inner block client id, got %q", a.InnerBlocks[0].ClientID)
	}
	if inner[0].ClientID != "" {
		t.Fatalf("CreateBlock must not mutate its inputs")
	}

	a.Attributes["ref"] = "changed"
	if attrs["ref"] != "rb-1" {
		t.Fatalf("CreateBlock must copy attributes")
	}
}
