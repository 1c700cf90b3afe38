package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/historylens/config.yaml"

// Config holds all historylens configuration.
type Config struct {
	Retention RetentionConfig `yaml:"retention"`
	Capture   CaptureConfig   `yaml:"capture"`
	Storage   StorageConfig   `yaml:"storage"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type RetentionConfig struct {
	UnknownDays        int `yaml:"unknown_days"`
	SweepIntervalHours int `yaml:"sweep_interval_hours"`
}

type CaptureConfig struct {
	SuppressWindowMS   int      `yaml:"suppress_window_ms"`
	MaxBodyChars       int      `yaml:"max_body_chars"`
	KeepBodyForUnknown bool     `yaml:"keep_body_for_unknown"`
	DenylistDomains    []string `yaml:"denylist_domains"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

type DaemonConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	AuthToken      string `yaml:"auth_token"`
	MaxRequestSize int64  `yaml:"max_request_size"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Pretty   bool   `yaml:"pretty"`
	AuditLog bool   `yaml:"audit_log"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read, contains invalid YAML, or
// holds out-of-range values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	if c.Retention.UnknownDays < 1 {
		return fmt.Errorf("retention.unknown_days must be at least 1, got %d", c.Retention.UnknownDays)
	}
	if c.Retention.SweepIntervalHours < 1 {
		return fmt.Errorf("retention.sweep_interval_hours must be at least 1, got %d", c.Retention.SweepIntervalHours)
	}
	if c.Capture.SuppressWindowMS < 0 {
		return fmt.Errorf("capture.suppress_window_ms cannot be negative")
	}
	if c.Capture.MaxBodyChars < 0 {
		return fmt.Errorf("capture.max_body_chars cannot be negative")
	}
	if c.Daemon.Port < 1 || c.Daemon.Port > 65535 {
		return fmt.Errorf("daemon.port out of range: %d", c.Daemon.Port)
	}
	if c.Daemon.MaxRequestSize <= 0 {
		return fmt.Errorf("daemon.max_request_size must be positive")
	}
	return nil
}

// UnknownRetention is how long an unclassified entry survives without a visit.
func (c *Config) UnknownRetention() time.Duration {
	return time.Duration(c.Retention.UnknownDays) * 24 * time.Hour
}

// SweepInterval is the period between retention sweeps.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Retention.SweepIntervalHours) * time.Hour
}

// SuppressWindow is how long a suppressed URL stays unrecorded.
func (c *Config) SuppressWindow() time.Duration {
	return time.Duration(c.Capture.SuppressWindowMS) * time.Millisecond
}

// Addr is the daemon listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Daemon.Host, strconv.Itoa(c.Daemon.Port))
}

// DBPath returns the expanded path of the SQLite database file.
func (c *Config) DBPath() (string, error) {
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
