package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/mesh-intelligence/todosync/internal/engine"
	"github.com/mesh-intelligence/todosync/internal/logging"
	"github.com/mesh-intelligence/todosync/internal/mapping"
	"github.com/mesh-intelligence/todosync/internal/tracker"
	"github.com/mesh-intelligence/todosync/pkg/types"
)

// app bundles the components a command works with.
type app struct {
	cfg     types.Config
	log     *slog.Logger
	store   types.MappingStore
	tracker types.Tracker
	engine  *engine.Engine
}

// newApp loads configuration and wires the store, tracker, and engine.
// Diagnostics go to stderr.
func (o *options) newApp(stderr io.Writer) (*app, error) {
	cfg, _, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	store := newStore(cfg)
	trk := newTracker(cfg)
	logger.Debug("configuration loaded",
		"data_dir", cfg.DataDir,
		"store", cfg.Store.Backend,
		"mapping", cfg.MappingPath(),
		"tracker", cfg.Tracker.Backend)

	return &app{
		cfg:     cfg,
		log:     logger,
		store:   store,
		tracker: trk,
		engine:  engine.New(store, trk, logger),
	}, nil
}

// newStore returns the mapping store selected by cfg.
func newStore(cfg types.Config) types.MappingStore {
	switch cfg.Store.Backend {
	case types.StoreYAML:
		return mapping.NewFileStore(cfg.MappingPath(), mapping.YAMLCodec{})
	case types.StoreSQLite:
		return mapping.NewSQLiteStore(cfg.MappingPath())
	case types.StoreMemory:
		return mapping.NewMemoryStore()
	default:
		return mapping.NewFileStore(cfg.MappingPath(), mapping.JSONCodec{})
	}
}

// newTracker returns the tracker gateway selected by cfg.
func newTracker(cfg types.Config) types.Tracker {
	if cfg.Tracker.Backend == types.TrackerMemory {
		return tracker.NewMemory("mem")
	}
	return tracker.NewBD(cfg.Tracker.Command, cfg.TrackerDir(), cfg.Tracker.Timeout)
}

// epicOf returns the recorded epic of sessionID, or "".
func (a *app) epicOf(ctx context.Context, sessionID string) string {
	id, _ := a.engine.Snapshot(ctx).Epic(sessionID)
	return id
}
