package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/todosync/internal/paths"
	"github.com/mesh-intelligence/todosync/pkg/types"
)

const (
	configFileType = "yaml"
	configFileName = "config.yaml"
)

// Config keys.
const (
	cfgKeyDataDir        = "data_dir"
	cfgKeyStoreBackend   = "store.backend"
	cfgKeyStoreFile      = "store.file"
	cfgKeyTrackerBackend = "tracker.backend"
	cfgKeyTrackerCommand = "tracker.command"
	cfgKeyTrackerDir     = "tracker.dir"
	cfgKeyTrackerTimeout = "tracker.timeout"
	cfgKeyLogLevel       = "log.level"
	cfgKeyLogFormat      = "log.format"
)

// envBindings maps config keys to their environment overrides. data_dir is
// absent: its environment variable ranks below config.yaml and is applied
// by paths.ResolveDataDir.
var envBindings = map[string]string{
	cfgKeyStoreBackend:   "TODOSYNC_STORE_BACKEND",
	cfgKeyStoreFile:      "TODOSYNC_STORE_FILE",
	cfgKeyTrackerBackend: "TODOSYNC_TRACKER_BACKEND",
	cfgKeyTrackerCommand: "TODOSYNC_TRACKER_COMMAND",
	cfgKeyTrackerDir:     "TODOSYNC_TRACKER_DIR",
	cfgKeyTrackerTimeout: "TODOSYNC_TRACKER_TIMEOUT",
	cfgKeyLogLevel:       "TODOSYNC_LOG_LEVEL",
	cfgKeyLogFormat:      "TODOSYNC_LOG_FORMAT",
}

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# todosync configuration

# Tracker data directory (optional; overridable by --data-dir)
# data_dir: .beads

store:
  # json, yaml, or sqlite
  backend: json

tracker:
  # bd, or memory for a dry run
  backend: bd
  command: bd
  # Seconds per tracker call; 0 disables the limit.
  timeout: 0

log:
  level: warn
  format: text
`

// loadConfig resolves directories and reads config.yaml using Viper. The
// per-user config.yaml, when present, is read first and the project file is
// merged over it. A default project config.yaml is created on first run.
func (o *options) loadConfig() (types.Config, string, error) {
	configDir, err := paths.ResolveConfigDir(o.configDir)
	if err != nil {
		return types.Config{}, "", fmt.Errorf("resolve config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return types.Config{}, "", fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetConfigType(configFileType)
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return types.Config{}, "", fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if userDir, err := paths.UserConfigDir(); err == nil {
		if err := mergeConfigFile(v, filepath.Join(userDir, configFileName)); err != nil {
			return types.Config{}, "", err
		}
	}
	if err := mergeConfigFile(v, filepath.Join(configDir, configFileName)); err != nil {
		return types.Config{}, "", err
	}

	dataDir, err := paths.ResolveDataDir(o.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, "", fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := types.Config{
		DataDir: dataDir,
		Store: types.StoreConfig{
			Backend: v.GetString(cfgKeyStoreBackend),
			File:    v.GetString(cfgKeyStoreFile),
		},
		Tracker: types.TrackerConfig{
			Backend: v.GetString(cfgKeyTrackerBackend),
			Command: v.GetString(cfgKeyTrackerCommand),
			Dir:     v.GetString(cfgKeyTrackerDir),
			Timeout: time.Duration(v.GetFloat64(cfgKeyTrackerTimeout) * float64(time.Second)),
		},
		Log: types.LogConfig{
			Level:  v.GetString(cfgKeyLogLevel),
			Format: v.GetString(cfgKeyLogFormat),
		},
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, "", &usageError{err: fmt.Errorf("invalid configuration: %w", err)}
	}
	return cfg, configDir, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(cfgKeyStoreBackend, types.StoreJSON)
	v.SetDefault(cfgKeyTrackerBackend, types.TrackerBD)
	v.SetDefault(cfgKeyTrackerCommand, types.DefaultTrackerCommand)
	v.SetDefault(cfgKeyTrackerTimeout, 0)
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetDefault(cfgKeyLogFormat, "text")
}

// mergeConfigFile merges path into v. A missing file is not an error.
func mergeConfigFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// ensureDefaultConfigFile creates the config directory and a default
// config.yaml if the file does not exist.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileName)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
