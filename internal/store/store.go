package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reblock-cli/internal/model"
)

const sqliteFileName = "reblock.sqlite"

// NotFoundError is returned by lookups of a missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// DB is the actor state of a workspace: who exists and who is acting.
//
// Reusable blocks and documents are read row by row; they are not part of DB.
type DB struct {
	CurrentActorID string        `json:"currentActorId,omitempty"`
	Actors         []model.Actor `json:"actors"`
}

type Store struct {
	Dir string
}

// WorkspaceDir returns the registered root for name, falling back to
// <config dir>/workspaces/<name>.
func WorkspaceDir(name string) (string, error) {
	name, err := NormalizeWorkspaceName(name)
	if err != nil {
		return "", err
	}
	if cfg, err := LoadConfig(); err == nil {
		if ref, ok := cfg.Workspaces[name]; ok && strings.TrimSpace(ref.Path) != "" {
			return filepath.Clean(strings.TrimSpace(ref.Path)), nil
		}
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "workspaces", name), nil
}

func (s Store) Ensure() error {
	return os.MkdirAll(s.Dir, 0o755)
}

// DBPath is the SQLite file backing the workspace.
func (s Store) DBPath() string {
	return filepath.Join(filepath.Clean(s.Dir), sqliteFileName)
}

// Load reads the actor state.
func (s Store) Load() (*DB, error) {
	return s.LoadContext(context.Background())
}

func (s Store) LoadContext(ctx context.Context) (*DB, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	out := &DB{}
	out.CurrentActorID, err = readMeta(ctx, db, "current_actor_id")
	if err != nil {
		return nil, err
	}
	actors, err := readJSONRows[model.Actor](ctx, db, `SELECT json FROM actors ORDER BY id`)
	if err != nil {
		return nil, err
	}
	if actors == nil {
		actors = []model.Actor{}
	}
	out.Actors = actors
	return out, nil
}

func (db *DB) FindActor(id string) (*model.Actor, bool) {
	for i := range db.Actors {
		if db.Actors[i].ID == id {
			return &db.Actors[i], true
		}
	}
	return nil, false
}

// HumanUserIDForActor returns the owning human user id for an actor.
// - human actor => itself
// - agent actor => actor.UserID (required)
func (db *DB) HumanUserIDForActor(actorID string) (string, bool) {
	a, ok := db.FindActor(actorID)
	if !ok {
		return "", false
	}
	switch a.Kind {
	case model.ActorKindHuman:
		return a.ID, true
	case model.ActorKindAgent:
		if a.UserID == nil || *a.UserID == "" {
			return "", false
		}
		return *a.UserID, true
	default:
		return "", false
	}
}

func NormalizeActorKind(s string) (model.ActorKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "human":
		return model.ActorKindHuman, nil
	case "agent":
		return model.ActorKindAgent, nil
	default:
		return "", fmt.Errorf("invalid actor kind: %q (expected human|agent)", s)
	}
}
