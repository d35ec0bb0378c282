package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"reblock-cli/internal/model"
)

func TestReusableBlocks_CRUD(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	ctx := context.Background()

	list, err := s.ListReusableBlocks(ctx)
	if err != nil {
		t.Fatalf("ListReusableBlocks: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}

	created, err := s.PutReusableBlock(ctx, model.ReusableBlock{
		ID:           "rb-1",
		Title:        "footer",
		Content:      "<!-- wp:separator /-->",
		OwnerActorID: "act-a",
		IsTemporary:  true,
	})
	if err != nil {
		t.Fatalf("PutReusableBlock: %v", err)
	}
	if created.IsTemporary {
		t.Fatalf("stored blocks are never temporary")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps, got %+v", created)
	}

	if _, err := s.PutReusableBlock(ctx, model.ReusableBlock{ID: "rb-2", Title: "Alpha", OwnerActorID: "act-a"}); err != nil {
		t.Fatalf("PutReusableBlock(rb-2): %v", err)
	}

	time.Sleep(2 * time.Millisecond)
	created.Title = "Footer"
	updated, err := s.PutReusableBlock(ctx, created)
	if err != nil {
		t.Fatalf("PutReusableBlock(update): %v", err)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created at changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("expected updated at to advance")
	}

	got, err := s.GetReusableBlock(ctx, "rb-1")
	if err != nil {
		t.Fatalf("GetReusableBlock: %v", err)
	}
	if got.Title != "Footer" || got.Content != "<!-- wp:separator /-->" || got.OwnerActorID != "act-a" {
		t.Fatalf("unexpected block: %+v", got)
	}

	list, err = s.ListReusableBlocks(ctx)
	if err != nil {
		t.Fatalf("ListReusableBlocks: %v", err)
	}
	if len(list) != 2 || list[0].ID != "rb-2" || list[1].ID != "rb-1" {
		t.Fatalf("expected title order, got %+v", list)
	}

	if err := s.DeleteReusableBlock(ctx, "rb-1"); err != nil {
		t.Fatalf("DeleteReusableBlock: %v", err)
	}
	var nf NotFoundError
	if _, err := s.GetReusableBlock(ctx, "rb-1"); !errors.As(err, &nf) || nf.Kind != "reusable block" {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if err := s.DeleteReusableBlock(ctx, "rb-1"); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError on second delete, got %v", err)
	}
}

func TestDocuments_PutGetList(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	ctx := context.Background()

	if _, err := s.GetDocument(ctx, "doc-1"); !errors.As(err, &NotFoundError{}) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if _, err := s.PutDocument(ctx, model.Document{ID: "doc-1", Title: "Home", Content: "<!-- wp:paragraph -->\n<p>x</p>\n<!-- /wp:paragraph -->"}); err != nil {
		t.Fatalf("PutDocument: %v", err)
	}
	got, err := s.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Title != "Home" {
		t.Fatalf("unexpected document: %+v", got)
	}
	docs, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected one document, got %d", len(docs))
	}
}

func TestActors_LoadAndCurrent(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	ctx := context.Background()

	human := "act-human"
	if err := s.PutActor(ctx, model.Actor{ID: human, Kind: model.ActorKindHuman, Name: "Ana"}); err != nil {
		t.Fatalf("PutActor(human): %v", err)
	}
	if err := s.PutActor(ctx, model.Actor{ID: "act-agent", Kind: model.ActorKindAgent, Name: "bot", UserID: &human}); err != nil {
		t.Fatalf("PutActor(agent): %v", err)
	}
	if err := s.SetCurrentActor(ctx, "act-missing"); !errors.As(err, &NotFoundError{}) {
		t.Fatalf("expected NotFoundError for unknown actor, got %v", err)
	}
	if err := s.SetCurrentActor(ctx, human); err != nil {
		t.Fatalf("SetCurrentActor: %v", err)
	}

	db, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if db.CurrentActorID != human {
		t.Fatalf("expected current actor %q, got %q", human, db.CurrentActorID)
	}
	if len(db.Actors) != 2 {
		t.Fatalf("expected 2 actors, got %d", len(db.Actors))
	}
	if h, ok := db.HumanUserIDForActor("act-agent"); !ok || h != human {
		t.Fatalf("expected agent to map to %q, got %q (%v)", human, h, ok)
	}
}

func TestEvents_AppendAndRead(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	ctx := context.Background()

	before := AppendEventCount()
	if err := s.AppendEvent("act-a", "reusable_block.create", "rb-1", map[string]any{"title": "x"}); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := s.AppendEvent("act-a", "reusable_block.update", "rb-1", map[string]any{"title": "y"}); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := s.AppendEvent("act-a", "document.update", "doc-1", nil); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := s.AppendEvent("act-a", "bogus.update", "x", nil); err == nil {
		t.Fatalf("expected unknown entity kind to fail")
	}
	if got := AppendEventCount() - before; got != 3 {
		t.Fatalf("expected 3 appended events, got %d", got)
	}

	all, err := s.ReadEvents(ctx, 0)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}

	last, err := s.ReadEvents(ctx, 1)
	if err != nil {
		t.Fatalf("ReadEvents(1): %v", err)
	}
	if len(last) != 1 || last[0].Type != "document.update" {
		t.Fatalf("expected newest event, got %+v", last)
	}

	forRB, err := s.ReadEventsForEntity(ctx, "rb-1", 0)
	if err != nil {
		t.Fatalf("ReadEventsForEntity: %v", err)
	}
	if len(forRB) != 2 || forRB[0].Type != "reusable_block.create" || forRB[1].Type != "reusable_block.update" {
		t.Fatalf("unexpected entity events: %+v", forRB)
	}
}
