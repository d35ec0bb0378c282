package docstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"

	"reblock-cli/internal/model"
	"reblock-cli/internal/perm"
	"reblock-cli/internal/reusable"
	"reblock-cli/internal/store"
)

// ErrTemporary is returned for store operations a never-persisted block cannot take part in.
var ErrTemporary = errors.New("reusable block is temporary")

type PermissionError struct {
	ActorID string
	Action  string
	ID      string
}

func (e PermissionError) Error() string {
	return fmt.Sprintf("permission denied: actor %s cannot %s reusable block %s", e.ActorID, e.Action, e.ID)
}

type ChangeKind string

const (
	ChangeFetched ChangeKind = "fetched"
	ChangeMissing ChangeKind = "missing"
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeSaved   ChangeKind = "saved"
	ChangeDeleted ChangeKind = "deleted"
	ChangeFailed  ChangeKind = "failed"
)

// Change is published to subscribers after the cache changed.
type Change struct {
	Kind ChangeKind
	// ID is empty for bulk reloads.
	ID string
	// Op names the failed operation for ChangeFailed.
	Op  Op
	Err error
}

type Op string

const (
	OpFetch    Op = "fetch"
	OpFetchAll Op = "fetch all"
	OpSave     Op = "save"
)

// Describe renders a failed change as a short status line.
func (c Change) Describe() string {
	if c.Err == nil {
		return ""
	}
	op := c.Op
	if op == "" {
		op = "update"
	}
	if c.ID == "" {
		return fmt.Sprintf("%s reusable blocks: %v", op, c.Err)
	}
	return fmt.Sprintf("%s %s: %v", op, c.ID, c.Err)
}

type Option func(*Service)

// WithLogger sets where background fetch/persist failures are reported.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithActor sets the actor used for permission checks and event attribution.
func WithActor(actorID string) Option {
	return func(s *Service) { s.actorID = strings.TrimSpace(actorID) }
}

// Service is the process-wide reusable block store. It caches fragments loaded from
// the workspace, tracks in-flight fetches and saves, and notifies subscribers.
//
// Cached records are never mutated in place; every change stores a new pointer so
// holders can detect changes by identity.
type Service struct {
	st      store.Store
	actorID string
	logger  *log.Logger

	mu       sync.Mutex
	cache    map[string]*model.ReusableBlock
	fetching map[string]bool
	saving   map[string]bool
	pending  map[string]saveJob
	missing  map[string]bool
	actors   *store.DB
	subs     map[*Subscription]struct{}

	wg sync.WaitGroup
}

var _ reusable.DocumentStore = (*Service)(nil)

func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		st:       st,
		logger:   log.New(io.Discard, "", 0),
		cache:    map[string]*model.ReusableBlock{},
		fetching: map[string]bool{},
		saving:   map[string]bool{},
		pending:  map[string]saveJob{},
		missing:  map[string]bool{},
		subs:     map[*Subscription]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ActorID() string { return s.actorID }

// Wait blocks until background fetches and saves have finished.
func (s *Service) Wait() { s.wg.Wait() }

// FetchFragment loads id in the background. Concurrent requests for the same id
// share one load.
func (s *Service) FetchFragment(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	s.mu.Lock()
	if s.fetching[id] {
		s.mu.Unlock()
		return
	}
	s.fetching[id] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.load(context.Background(), id)
	}()
}

func (s *Service) load(ctx context.Context, id string) {
	rb, err := s.st.GetReusableBlock(ctx, id)

	s.mu.Lock()
	delete(s.fetching, id)
	var ch Change
	switch {
	case err == nil:
		delete(s.missing, id)
		if s.replaceLocked(rb) {
			ch = Change{Kind: ChangeFetched, ID: id}
		}
	case errors.As(err, &store.NotFoundError{}):
		s.missing[id] = true
		if cur, ok := s.cache[id]; ok && !cur.IsTemporary {
			delete(s.cache, id)
		}
		ch = Change{Kind: ChangeMissing, ID: id}
	default:
		s.logger.Printf("docstore: fetch %s: %v", id, err)
		ch = Change{Kind: ChangeFailed, ID: id, Op: OpFetch, Err: err}
	}
	s.mu.Unlock()

	if ch.Kind != "" {
		s.publish(ch)
	}
}

// replaceLocked stores rb unless an equal record is cached. It never replaces a
// temporary block or one with a save in flight.
func (s *Service) replaceLocked(rb model.ReusableBlock) bool {
	if cur, ok := s.cache[rb.ID]; ok {
		if cur.IsTemporary || s.saving[rb.ID] {
			return false
		}
		if cur.Title == rb.Title && cur.Content == rb.Content && cur.OwnerActorID == rb.OwnerActorID && cur.UpdatedAt.Equal(rb.UpdatedAt) {
			return false
		}
	}
	next := rb
	s.cache[rb.ID] = &next
	return true
}

// FetchAll loads every persisted reusable block in the background.
func (s *Service) FetchAll() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Reload(context.Background()); err != nil {
			s.logger.Printf("docstore: fetch all: %v", err)
			s.publish(Change{Kind: ChangeFailed, Op: OpFetchAll, Err: err})
		}
	}()
}

// Reload synchronously refreshes the cache and actor state from the workspace.
// Temporary blocks are kept; persisted blocks that disappeared are dropped.
func (s *Service) Reload(ctx context.Context) error {
	list, err := s.st.ListReusableBlocks(ctx)
	if err != nil {
		return err
	}
	actors, err := s.st.LoadContext(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.actors = actors
	changed := false
	seen := map[string]bool{}
	for _, rb := range list {
		seen[rb.ID] = true
		delete(s.missing, rb.ID)
		if s.replaceLocked(rb) {
			changed = true
		}
	}
	for id, cur := range s.cache {
		if !cur.IsTemporary && !seen[id] && !s.saving[id] {
			delete(s.cache, id)
			s.missing[id] = true
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.publish(Change{Kind: ChangeFetched})
	}
	return nil
}

func (s *Service) IsFetching(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetching[id]
}

func (s *Service) IsSaving(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving[id]
}

// IsMissing reports whether the last fetch of id found nothing.
func (s *Service) IsMissing(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missing[id]
}

func (s *Service) GetFragment(id string) (*model.ReusableBlock, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rb, ok := s.cache[id]
	return rb, ok
}

// List returns the cached blocks ordered by title.
func (s *Service) List() []model.ReusableBlock {
	s.mu.Lock()
	out := make([]model.ReusableBlock, 0, len(s.cache))
	for _, rb := range s.cache {
		out = append(out, *rb)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Title), strings.ToLower(out[j].Title)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Service) actorState(ctx context.Context) (*store.DB, error) {
	s.mu.Lock()
	db := s.actors
	s.mu.Unlock()
	if db != nil {
		return db, nil
	}
	db, err := s.st.LoadContext(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.actors = db
	s.mu.Unlock()
	return db, nil
}

// CanUser reports whether the service's actor may perform action on the block id.
func (s *Service) CanUser(action, id string) bool {
	db, err := s.actorState(context.Background())
	if err != nil {
		s.logger.Printf("docstore: load actors: %v", err)
		return false
	}
	rb, _ := s.GetFragment(id)
	return perm.CanUser(db, action, s.actorID, rb)
}

// CreateTemporary adds a local, unsaved reusable block owned by the service's actor.
func (s *Service) CreateTemporary(ctx context.Context, title, content string) (*model.ReusableBlock, error) {
	if !s.CanUser(perm.ActionCreate, "") {
		return nil, PermissionError{ActorID: s.actorID, Action: perm.ActionCreate}
	}
	id, err := s.st.NewID(ctx, "rb")
	if err != nil {
		return nil, err
	}
	rb := &model.ReusableBlock{
		ID:           id,
		Title:        title,
		Content:      content,
		IsTemporary:  true,
		OwnerActorID: s.actorID,
	}
	s.mu.Lock()
	s.cache[id] = rb
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeCreated, ID: id})
	return rb, nil
}

// UpdateAndPersist applies edits to the cached block right away and saves it in the
// background. Saving a temporary block makes it permanent. Errors returned here are
// the synchronous ones; a failed background save is logged and published as
// ChangeFailed.
//
// Saves of one id are written in call order. An edit made while a save is running
// waits for it, and only the newest waiting edit is written.
func (s *Service) UpdateAndPersist(id string, edits reusable.Edits) error {
	cur, ok := s.GetFragment(id)
	if !ok {
		return store.NotFoundError{Kind: "reusable block", ID: id}
	}
	if !s.CanUser(perm.ActionUpdate, id) {
		return PermissionError{ActorID: s.actorID, Action: perm.ActionUpdate, ID: id}
	}

	next := *cur
	next.Title = edits.Title
	next.Content = edits.Content
	job := saveJob{rb: next, wasTemporary: cur.IsTemporary}

	s.mu.Lock()
	s.cache[id] = &next
	running := s.saving[id]
	if running {
		if prev, ok := s.pending[id]; ok {
			job.wasTemporary = job.wasTemporary || prev.wasTemporary
		}
		s.pending[id] = job
	} else {
		s.saving[id] = true
	}
	s.mu.Unlock()
	s.publish(Change{Kind: ChangeUpdated, ID: id})

	if running {
		return nil
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.drainSaves(context.Background(), job)
	}()
	return nil
}

type saveJob struct {
	rb           model.ReusableBlock
	wasTemporary bool
}

// drainSaves writes job, then whatever edit queued up behind it, until none is left.
func (s *Service) drainSaves(ctx context.Context, job saveJob) {
	id := job.rb.ID
	created := false
	for {
		saved, err := s.persist(ctx, job.rb, job.wasTemporary && !created)
		if err == nil && job.wasTemporary {
			created = true
		}

		s.mu.Lock()
		next, more := s.pending[id]
		delete(s.pending, id)
		if !more {
			delete(s.saving, id)
		}
		if err == nil {
			delete(s.missing, id)
			if !more {
				rec := saved
				s.cache[id] = &rec
			}
		}
		s.mu.Unlock()

		switch {
		case err != nil:
			s.logger.Printf("docstore: save %s: %v", id, err)
			s.publish(Change{Kind: ChangeFailed, ID: id, Op: OpSave, Err: err})
		case !more:
			s.publish(Change{Kind: ChangeSaved, ID: id})
		}
		if !more {
			return
		}
		job = next
	}
}

func (s *Service) persist(ctx context.Context, rb model.ReusableBlock, create bool) (model.ReusableBlock, error) {
	saved, err := s.st.PutReusableBlock(ctx, rb)
	if err != nil {
		return model.ReusableBlock{}, err
	}
	typ := "reusable_block.update"
	if create {
		typ = "reusable_block.create"
	}
	if evErr := s.st.AppendEventContext(ctx, s.actorID, typ, saved.ID, map[string]any{"title": saved.Title}); evErr != nil {
		s.logger.Printf("docstore: event %s: %v", saved.ID, evErr)
	}
	return saved, nil
}

// Delete removes a persisted block from the workspace. Temporary blocks return
// ErrTemporary; use Discard for those.
func (s *Service) Delete(ctx context.Context, id string) error {
	if cur, ok := s.GetFragment(id); ok && cur.IsTemporary {
		return ErrTemporary
	}
	if _, ok := s.GetFragment(id); !ok {
		rb, err := s.st.GetReusableBlock(ctx, id)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.replaceLocked(rb)
		s.mu.Unlock()
	}
	if !s.CanUser(perm.ActionDelete, id) {
		return PermissionError{ActorID: s.actorID, Action: perm.ActionDelete, ID: id}
	}
	if err := s.st.DeleteReusableBlock(ctx, id); err != nil {
		return err
	}
	if err := s.st.AppendEventContext(ctx, s.actorID, "reusable_block.delete", id, nil); err != nil {
		s.logger.Printf("docstore: event %s: %v", id, err)
	}

	s.mu.Lock()
	delete(s.cache, id)
	s.missing[id] = true
	s.mu.Unlock()
	s.publish(Change{Kind: ChangeDeleted, ID: id})
	return nil
}

// Discard drops a temporary block from the cache.
func (s *Service) Discard(id string) bool {
	s.mu.Lock()
	cur, ok := s.cache[id]
	if ok && cur.IsTemporary {
		delete(s.cache, id)
	}
	s.mu.Unlock()
	if ok && cur.IsTemporary {
		s.publish(Change{Kind: ChangeDeleted, ID: id})
		return true
	}
	return false
}
