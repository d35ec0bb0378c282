package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"reblock-cli/internal/model"
)

// PutActor inserts or replaces an actor.
func (s Store) PutActor(ctx context.Context, a model.Actor) error {
	a.ID = strings.TrimSpace(a.ID)
	if a.ID == "" {
		return errors.New("actor id is empty")
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `INSERT OR REPLACE INTO actors(id, json, updated_at_unixms) VALUES(?, ?, ?)`,
		a.ID, string(raw), time.Now().UTC().UnixMilli())
	return err
}

// SetCurrentActor records the workspace's default actor. The actor must exist.
func (s Store) SetCurrentActor(ctx context.Context, actorID string) error {
	actorID = strings.TrimSpace(actorID)
	st, err := s.LoadContext(ctx)
	if err != nil {
		return err
	}
	if _, ok := st.FindActor(actorID); !ok {
		return NotFoundError{Kind: "actor", ID: actorID}
	}

	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return writeMeta(ctx, db, "current_actor_id", actorID)
}
