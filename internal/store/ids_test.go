package store

import (
	"context"
	"strings"
	"testing"
)

func TestNewRandomID_StableLength(t *testing.T) {
	id, err := newRandomID("rb")
	if err != nil {
		t.Fatalf("newRandomID: %v", err)
	}
	if !strings.HasPrefix(id, "rb-") {
		t.Fatalf("expected rb prefix, got %q", id)
	}
	suffix := strings.TrimPrefix(id, "rb-")
	if got, want := len(suffix), 8; got != want {
		t.Fatalf("expected id suffix len %d, got %d (%q)", want, got, suffix)
	}
}

func TestNewID_Unique(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id, err := s.NewID(ctx, "doc")
		if err != nil {
			t.Fatalf("NewID: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
