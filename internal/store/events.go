package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"reblock-cli/internal/model"
)

// EntityKind is the stream an event belongs to. It is the prefix of the event type
// ("reusable_block.update" => reusable_block).
type EntityKind string

const (
	EntityKindActor         EntityKind = "actor"
	EntityKindReusableBlock EntityKind = "reusable_block"
	EntityKindDocument      EntityKind = "document"
)

func (k EntityKind) valid() bool {
	switch k {
	case EntityKindActor, EntityKindReusableBlock, EntityKindDocument:
		return true
	}
	return false
}

func inferEntityKindFromType(typ string) EntityKind {
	typ = strings.TrimSpace(typ)
	if i := strings.IndexByte(typ, '.'); i > 0 {
		return EntityKind(typ[:i])
	}
	return EntityKind(typ)
}

var appendEventCount atomic.Uint64

// AppendEventCount is the number of events appended by this process.
func AppendEventCount() uint64 { return appendEventCount.Load() }

func (s Store) AppendEvent(actorID, typ, entityID string, payload any) error {
	return s.AppendEventContext(context.Background(), actorID, typ, entityID, payload)
}

// AppendEventContext appends one event to the entity's ordered stream.
func (s Store) AppendEventContext(ctx context.Context, actorID, typ, entityID string, payload any) error {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return errors.New("event: missing type")
	}
	kind := inferEntityKindFromType(typ)
	if !kind.valid() {
		return fmt.Errorf("event: invalid entity kind for type %q", typ)
	}
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return errors.New("event: missing entity id")
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return errors.New("event: missing actor id")
	}

	pb, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	eventID, err := newUUIDv4()
	if err != nil {
		return err
	}

	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	wsID, err := ensureMetaUUID(ctx, db, "workspace_id")
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(entity_seq), 0) + 1 FROM events WHERE entity_kind = ? AND entity_id = ?`,
		string(kind), entityID).Scan(&seq); err != nil {
		return err
	}

	nowMs := time.Now().UTC().UnixMilli()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO events(
			event_id, workspace_id,
			entity_kind, entity_id, entity_seq,
			type, issued_at_unixms, actor_id, payload_json, created_at_unixms
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, eventID, wsID, string(kind), entityID, seq, typ, nowMs, actorID, string(pb), nowMs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	appendEventCount.Add(1)
	return nil
}

// ReadEvents returns the newest limit events (all when limit <= 0), oldest first.
func (s Store) ReadEvents(ctx context.Context, limit int) ([]model.Event, error) {
	q := `SELECT event_id, issued_at_unixms, actor_id, type, entity_id, payload_json FROM (
		SELECT rowid AS rid, * FROM events ORDER BY created_at_unixms DESC, rid DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	q += `) ORDER BY created_at_unixms ASC, rid ASC`
	return s.queryEvents(ctx, q, args...)
}

// ReadEventsForEntity returns one entity's events in stream order.
func (s Store) ReadEventsForEntity(ctx context.Context, entityID string, limit int) ([]model.Event, error) {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return []model.Event{}, nil
	}
	q := `SELECT event_id, issued_at_unixms, actor_id, type, entity_id, payload_json
	      FROM events
	      WHERE entity_id = ?
	      ORDER BY entity_seq ASC`
	args := []any{entityID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryEvents(ctx, q, args...)
}

func (s Store) queryEvents(ctx context.Context, q string, args ...any) ([]model.Event, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Event{}
	for rows.Next() {
		var id, actor, typ, entityID, payloadJSON string
		var tsMs int64
		if err := rows.Scan(&id, &tsMs, &actor, &typ, &entityID, &payloadJSON); err != nil {
			return nil, err
		}
		var payload any
		_ = json.Unmarshal([]byte(payloadJSON), &payload)
		out = append(out, model.Event{
			ID:       id,
			TS:       time.UnixMilli(tsMs).UTC(),
			ActorID:  actor,
			Type:     typ,
			EntityID: entityID,
			Payload:  payload,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
