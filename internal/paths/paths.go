// Package paths resolves the todosync configuration and data directories.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// CWD-relative directory names. The data directory is the tracker's own
// directory; the mapping file lives beside the tracker database.
const (
	DefaultConfigDirName = ".todosync"
	DefaultDataDirName   = ".beads"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "TODOSYNC_CONFIG_DIR"
	EnvDataDir   = "TODOSYNC_DATA_DIR"
)

const appName = "todosync"

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// UserConfigDir returns the per-user configuration directory. It is searched
// for config.yaml after the project directory.
//
// Linux:   $XDG_CONFIG_HOME/todosync (fallback ~/.config/todosync)
// macOS:   ~/Library/Application Support/todosync
// Windows: %APPDATA%/todosync
func UserConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > TODOSYNC_CONFIG_DIR env > $(CWD)/.todosync.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return cwdJoin(DefaultConfigDirName)
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configValue > TODOSYNC_DATA_DIR env > $(CWD)/.beads.
func ResolveDataDir(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	return cwdJoin(DefaultDataDirName)
}

func cwdJoin(name string) (string, error) {
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, name), nil
}
