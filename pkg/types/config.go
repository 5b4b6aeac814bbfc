package types

import (
	"errors"
	"path/filepath"
	"time"
)

// Config holds the resolved settings of a todosync process.
type Config struct {
	// DataDir is the tracker's data directory; the mapping lives inside it.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	Store   StoreConfig   `json:"store" yaml:"store"`
	Tracker TrackerConfig `json:"tracker" yaml:"tracker"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// StoreConfig selects the mapping store backend.
type StoreConfig struct {
	Backend string `json:"backend" yaml:"backend"`
	// File is the mapping file name within DataDir. Empty selects the
	// backend's default name.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// TrackerConfig selects and parameterizes the tracker gateway.
type TrackerConfig struct {
	Backend string `json:"backend" yaml:"backend"`
	Command string `json:"command" yaml:"command"`
	// Dir is the working directory for tracker commands. Empty means the
	// parent of DataDir.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// Timeout bounds each tracker call. Zero means no limit.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// LogConfig controls diagnostics output.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Supported backend names.
const (
	StoreJSON   = "json"
	StoreYAML   = "yaml"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"

	TrackerBD     = "bd"
	TrackerMemory = "memory"
)

// Default mapping file names per store backend.
const (
	DefaultMappingFile       = "opencode-todo-mapping.json"
	DefaultMappingFileYAML   = "opencode-todo-mapping.yaml"
	DefaultMappingFileSQLite = "opencode-todo-mapping.db"
)

// DefaultTrackerCommand is the tracker CLI binary name.
const DefaultTrackerCommand = "bd"

// Config validation errors.
var (
	ErrStoreBackendUnknown   = errors.New("unknown store backend")
	ErrTrackerBackendUnknown = errors.New("unknown tracker backend")
	ErrTrackerCommandEmpty   = errors.New("tracker command must not be empty")
	ErrTimeoutNegative       = errors.New("tracker timeout must not be negative")
	ErrLogLevelUnknown       = errors.New("unknown log level")
	ErrLogFormatUnknown      = errors.New("unknown log format")
)

var (
	knownStores   = map[string]bool{StoreJSON: true, StoreYAML: true, StoreSQLite: true, StoreMemory: true}
	knownTrackers = map[string]bool{TrackerBD: true, TrackerMemory: true}
	knownLevels   = map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}
	knownFormats  = map[string]bool{"": true, "text": true, "json": true}
)

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if !knownStores[c.Store.Backend] {
		return ErrStoreBackendUnknown
	}
	if !knownTrackers[c.Tracker.Backend] {
		return ErrTrackerBackendUnknown
	}
	if c.Tracker.Backend == TrackerBD && c.Tracker.Command == "" {
		return ErrTrackerCommandEmpty
	}
	if c.Tracker.Timeout < 0 {
		return ErrTimeoutNegative
	}
	if !knownLevels[c.Log.Level] {
		return ErrLogLevelUnknown
	}
	if !knownFormats[c.Log.Format] {
		return ErrLogFormatUnknown
	}
	return nil
}

// MappingPath returns the location of the mapping document.
func (c Config) MappingPath() string {
	name := c.Store.File
	if name == "" {
		switch c.Store.Backend {
		case StoreYAML:
			name = DefaultMappingFileYAML
		case StoreSQLite:
			name = DefaultMappingFileSQLite
		default:
			name = DefaultMappingFile
		}
	}
	return filepath.Join(c.DataDir, name)
}

// TrackerDir returns the working directory for tracker commands.
func (c Config) TrackerDir() string {
	if c.Tracker.Dir != "" {
		return c.Tracker.Dir
	}
	return filepath.Dir(c.DataDir)
}
