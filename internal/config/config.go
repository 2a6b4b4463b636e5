// Package config handles daemon configuration loading, validation, and
// defaults for expandd.
//
// This is the daemon's own configuration (devices, paths, timeouts), not
// the espanso match files - those are owned by internal/matchfile.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version"`

	// Match configures rule loading.
	Match MatchConfig `toml:"match"`

	// Input configures keyboard capture.
	Input InputConfig `toml:"input"`

	// Output configures text injection.
	Output OutputConfig `toml:"output"`

	// Vars configures variable resolution.
	Vars VarsConfig `toml:"vars"`

	// Logging configures the daemon log.
	Logging LoggingConfig `toml:"logging"`

	// IPC configures the control socket.
	IPC IPCConfig `toml:"ipc"`

	// History configures the expansion history store.
	History HistoryConfig `toml:"history"`

	// Notify configures desktop notifications.
	Notify NotifyConfig `toml:"notify"`

	// Reload configures match-file hot reload.
	Reload ReloadConfig `toml:"reload"`
}

// MatchConfig holds rule loading configuration.
type MatchConfig struct {
	// Dirs are the directories searched recursively for match files.
	Dirs []string `toml:"dirs"`

	// Strict makes schema violations in match files fatal.
	Strict bool `toml:"strict"`
}

// InputConfig holds keyboard capture configuration.
type InputConfig struct {
	// Devices pins explicit /dev/input paths; empty autodetects.
	Devices []string `toml:"devices"`

	// SuppressMs is how long device input is discarded after an
	// injection, so synthesized keystrokes do not re-enter the buffer.
	SuppressMs int `toml:"suppress_ms"`
}

// OutputConfig holds text injection configuration.
type OutputConfig struct {
	// Backend selects the sink: "wtype" or "log" (dry run).
	Backend string `toml:"backend"`

	// DelayMs is the pause before injecting, giving the focused
	// application time to process the trigger's final keystroke.
	DelayMs int `toml:"delay_ms"`
}

// VarsConfig holds variable resolution configuration.
type VarsConfig struct {
	// ShellTimeoutSec bounds one shell or clipboard resolution.
	ShellTimeoutSec int `toml:"shell_timeout_sec"`

	// Shell is the shell binary for command variables.
	Shell string `toml:"shell"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Output     string `toml:"output"`
	File       string `toml:"file"`
	MaxSizeMB  int64  `toml:"max_size_mb"`
	MaxAgeDays int    `toml:"max_age_days"`
	MaxBackups int    `toml:"max_backups"`
	Compress   bool   `toml:"compress"`
}

// IPCConfig holds control socket configuration.
type IPCConfig struct {
	Enabled bool   `toml:"enabled"`
	Socket  string `toml:"socket"`
}

// HistoryConfig holds expansion history configuration.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// NotifyConfig holds desktop notification configuration.
type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
}

// ReloadConfig holds hot-reload configuration.
type ReloadConfig struct {
	Enabled    bool `toml:"enabled"`
	DebounceMs int  `toml:"debounce_ms"`
}

// ConfigDir returns the XDG config directory for expandd.
func ConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "expandd")
}

// StateDir returns the XDG state directory for expandd.
func StateDir() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, _ := os.UserHomeDir()
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "expandd")
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DefaultSocketPath returns the default IPC socket path.
func DefaultSocketPath() string {
	if runtime := os.Getenv("XDG_RUNTIME_DIR"); runtime != "" {
		return filepath.Join(runtime, "expandd.sock")
	}
	return filepath.Join(StateDir(), "expandd.sock")
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: Version,
		Match: MatchConfig{
			Dirs: []string{filepath.Join(ConfigDir(), "match")},
		},
		Input: InputConfig{
			SuppressMs: 150,
		},
		Output: OutputConfig{
			Backend: "wtype",
			DelayMs: 10,
		},
		Vars: VarsConfig{
			ShellTimeoutSec: 5,
			Shell:           "sh",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			File:       filepath.Join(StateDir(), "expandd.log"),
			MaxSizeMB:  20,
			MaxAgeDays: 14,
			MaxBackups: 3,
			Compress:   true,
		},
		IPC: IPCConfig{
			Enabled: true,
			Socket:  DefaultSocketPath(),
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(StateDir(), "history.db"),
		},
		Notify: NotifyConfig{
			Enabled: true,
		},
		Reload: ReloadConfig{
			Enabled:    true,
			DebounceMs: 500,
		},
	}
}

// Load reads the config file at path, or the default path when empty.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("EXPANDD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("EXPANDD_SOCKET"); v != "" {
		c.IPC.Socket = v
	}
	if v := os.Getenv("EXPANDD_MATCH_DIR"); v != "" {
		c.Match.Dirs = []string{v}
	}
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}
