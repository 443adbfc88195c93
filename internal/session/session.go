// Package session implements the mutation dispatcher: the single path every
// state change takes. A local edit is applied to the store optimistically,
// persisted, published to the room, and optionally recorded in the action
// history. A remote edit re-enters through the apply-only path, which touches
// the store and nothing else, so it neither loops back to its origin nor
// becomes undoable on the receiving side.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/liverylab/easel/internal/history"
	"github.com/liverylab/easel/internal/store"
	"github.com/liverylab/easel/pkg/types"
)

// Publisher sends one mutation envelope to the room. Implemented by
// broadcast.Channel; tests substitute a recorder.
type Publisher interface {
	Publish(event string, data any) error
}

// Config wires a session's collaborators.
type Config struct {
	Persistence types.Persistence
	Publisher   Publisher
	UserID      int64
	Logger      *slog.Logger

	// OnError is the single user-visible message surface. Persistence and
	// publish failures are reported here and swallowed; optimistic local
	// state is never rolled back.
	OnError func(error)

	// OnSchemeDeleted is invoked when a peer deletes the open scheme.
	OnSchemeDeleted func(schemeID int64)
}

// Session owns the working state of one open scheme and dispatches every
// mutation against it. Created when a project is opened, closed with it.
type Session struct {
	store   *store.Store
	history *history.Stack
	persist types.Persistence
	pub     Publisher
	userID  int64
	log     *slog.Logger

	onError         func(error)
	onSchemeDeleted func(int64)

	pending sync.WaitGroup
}

// New creates a session. Load must be called before dispatching mutations.
func New(cfg Config) *Session {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Session{
		store:           store.New(),
		persist:         cfg.Persistence,
		pub:             cfg.Publisher,
		userID:          cfg.UserID,
		log:             log,
		onError:         cfg.OnError,
		onSchemeDeleted: cfg.OnSchemeDeleted,
	}
	s.history = history.New(s)
	return s
}

// Store exposes the session's entity store for read access.
func (s *Session) Store() *store.Store { return s.store }

// History exposes the session's action history.
func (s *Session) History() *history.Stack { return s.history }

// Load fetches the scheme and its layers and installs them as the working
// copy.
func (s *Session) Load(ctx context.Context, schemeID int64) error {
	project, err := s.persist.GetProject(ctx, schemeID)
	if err != nil {
		return fmt.Errorf("load project %d: %w", schemeID, err)
	}
	s.store.SetScheme(project.Scheme)
	s.store.SetLayers(project.Layers)
	return nil
}

// Reload discards local state and refetches the project. Used when the sync
// gap is unbounded (relay restart, carmake layer renewal); there is nothing
// to reconcile incrementally.
func (s *Session) Reload(ctx context.Context) error {
	scheme, ok := s.store.Scheme()
	if !ok {
		return types.ErrSchemeMissing
	}
	return s.Load(ctx, scheme.ID)
}

// Undo traverses the action history one step back.
func (s *Session) Undo(ctx context.Context) error {
	return s.history.Undo(ctx)
}

// Redo traverses the action history one step forward.
func (s *Session) Redo(ctx context.Context) error {
	return s.history.Redo(ctx)
}

// Wait blocks until every in-flight asynchronous persistence call has
// finished. Called on teardown.
func (s *Session) Wait() {
	s.pending.Wait()
}

// fail reports an error on the user-visible surface and swallows it. No
// mutation handler lets an error escape.
func (s *Session) fail(op string, err error) {
	wrapped := fmt.Errorf("%s: %w", op, err)
	s.log.Warn("mutation error", "op", op, "err", err)
	if s.onError != nil {
		s.onError(wrapped)
	}
}

// publish sends an envelope to the room, reporting failures on the error
// surface. Publishing is best effort; local state is already committed.
func (s *Session) publish(event string, data any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(event, data); err != nil {
		s.fail("publish "+event, err)
	}
}

// persistAsync runs a persistence call without gating the caller on its
// completion. Failures surface as a message; the optimistic local mutation
// stands. The call is detached from the caller's context: an in-flight
// request is never aborted, a slow one simply finishes late.
func (s *Session) persistAsync(ctx context.Context, op string, call func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := call(ctx); err != nil {
			s.fail(op, err)
		}
	}()
}
