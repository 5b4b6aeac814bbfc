// Package engine keeps a session's todo list and the tracker in agreement.
//
// Reconcile drives the tracker toward a given todo list and records the
// todo -> issue correspondence in the mapping store. Recover rebuilds a todo
// list from the tracker using that correspondence. Both are idempotent and
// tolerate partial failures of earlier passes: maintenance failures (update,
// close) are logged and absorbed, creation failures abort the pass and are
// returned, and the mapping is saved at the end of every reconcile pass
// either way.
//
// An Engine serializes its passes, so concurrent calls on one Engine never
// lose each other's mapping updates. Separate processes sharing a mapping
// file can still overwrite each other's saves.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mesh-intelligence/todosync/pkg/types"
)

// Engine runs reconciliation and recovery passes against one mapping store
// and one tracker.
type Engine struct {
	mu      sync.Mutex
	store   types.MappingStore
	tracker types.Tracker
	log     *slog.Logger
	now     func() time.Time
}

// New returns an Engine. A nil logger discards diagnostics.
func New(store types.MappingStore, tracker types.Tracker, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		store:   store,
		tracker: tracker,
		log:     logger,
		now:     time.Now,
	}
}

// Snapshot returns the currently stored mapping.
func (e *Engine) Snapshot(ctx context.Context) *types.Mapping {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.load(ctx)
}

// load reads the mapping, falling back to an empty one when the store is
// unreadable.
func (e *Engine) load(ctx context.Context) *types.Mapping {
	m, err := e.store.Load(ctx)
	if err != nil {
		e.log.Warn("mapping unreadable, starting from empty mapping", "error", err)
	}
	if m == nil {
		m = types.NewMapping()
	}
	return m
}

// swallow logs a maintenance failure that the pass absorbs. Failures that
// usually mean the tracker is already in the desired state are logged at
// debug level.
func (e *Engine) swallow(op string, err error, attrs ...any) {
	level := slog.LevelWarn
	if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrTrackerRejected) {
		level = slog.LevelDebug
	}
	attrs = append(attrs, "op", op, "error", err)
	e.log.Log(context.Background(), level, "tracker call failed, continuing", attrs...)
}
