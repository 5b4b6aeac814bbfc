package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/todosync/internal/paths"
	"github.com/mesh-intelligence/todosync/pkg/types"
)

// configFile is the structure init writes to config.yaml.
type configFile struct {
	DataDir string `yaml:"data_dir,omitempty"`
	Store   struct {
		Backend string `yaml:"backend"`
	} `yaml:"store"`
	Tracker struct {
		Backend string `yaml:"backend"`
		Command string `yaml:"command"`
		Timeout int    `yaml:"timeout"`
	} `yaml:"tracker"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func newInitCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize todosync in the current project",
		Long: "Write config.yaml if missing, create the data directory, and write an\n" +
			"empty mapping document listed in the data directory's .gitignore.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts)
		},
	}
}

func runInit(cmd *cobra.Command, opts *options) error {
	configDir, err := paths.ResolveConfigDir(opts.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	configPath := filepath.Join(configDir, configFileName)
	if err := writeConfigIfMissing(configPath, opts.dataDir); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	a, err := opts.newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	mappingPath := a.cfg.MappingPath()
	if a.cfg.Store.Backend != types.StoreMemory {
		if _, err := os.Stat(mappingPath); errors.Is(err, os.ErrNotExist) {
			if err := a.store.Save(cmd.Context(), types.NewMapping()); err != nil {
				return fmt.Errorf("write mapping: %w", err)
			}
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "todosync initialized\nconfig:  %s\nmapping: %s\n", configPath, mappingPath)
	return nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. If it already exists, the function returns nil.
func writeConfigIfMissing(path, dataDir string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	var cfg configFile
	cfg.DataDir = dataDir
	cfg.Store.Backend = types.StoreJSON
	cfg.Tracker.Backend = types.TrackerBD
	cfg.Tracker.Command = types.DefaultTrackerCommand
	cfg.Log.Level = "warn"
	cfg.Log.Format = "text"

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
