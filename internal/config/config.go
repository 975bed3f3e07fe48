// Package config handles configuration loading and validation for tidyup.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"tidyup/internal/category"
	"tidyup/internal/fileops"
)

// ConfigErrorType represents the type of configuration error.
type ConfigErrorType string

const (
	FileNotFound    ConfigErrorType = "FILE_NOT_FOUND"
	InvalidTOML     ConfigErrorType = "INVALID_TOML"
	ValidationError ConfigErrorType = "VALIDATION_ERROR"
)

// ConfigError represents an error that occurred during configuration loading.
type ConfigError struct {
	Type    ConfigErrorType
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	switch e.Type {
	case FileNotFound:
		if e.Message != "" {
			return fmt.Sprintf("configuration file not readable: %s: %s", e.Path, e.Message)
		}
		return fmt.Sprintf("configuration file not found: %s", e.Path)
	case InvalidTOML:
		return fmt.Sprintf("invalid TOML in configuration file %s: %s", e.Path, e.Message)
	case ValidationError:
		return fmt.Sprintf("configuration validation error: %s", e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

// History backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Log formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

const appName = "tidyup"

// WatchConfig tunes watch mode.
type WatchConfig struct {
	DebounceMS int `toml:"debounce_ms"` // quiet period after the last event before organizing
	StableMS   int `toml:"stable_ms"`   // minimum age of a file's last write before it is moved
}

// Debounce returns the debounce interval.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// Stable returns the settle interval.
func (w WatchConfig) Stable() time.Duration {
	return time.Duration(w.StableMS) * time.Millisecond
}

// Config holds all settings for tidyup.
type Config struct {
	HistoryBackend  string          `toml:"history_backend"`
	HistoryPath     string          `toml:"history_path"`
	LogDir          string          `toml:"log_dir"`
	LogLevel        string          `toml:"log_level"`
	LogFormat       string          `toml:"log_format"`
	LogKeep         int             `toml:"log_keep"` // invocation logs to keep; -1 keeps all
	DefaultCategory string          `toml:"default_category"`
	Categories      []category.Rule `toml:"categories"`
	IgnorePatterns  []string        `toml:"ignore_patterns"`
	ScheduleFile    string          `toml:"schedule_file"`
	MetricsAddr     string          `toml:"metrics_addr"`
	Watch           WatchConfig     `toml:"watch"`

	unknownKeys []string
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values with defaults. An explicitly empty
// category list is treated as unset.
func (c *Config) ApplyDefaults() {
	dataDir := DataDir()

	if c.HistoryBackend == "" {
		c.HistoryBackend = BackendJSON
	}
	if c.HistoryPath == "" {
		name := "history.json"
		if c.HistoryBackend == BackendSQLite {
			name = "history.db"
		}
		c.HistoryPath = filepath.Join(dataDir, name)
	}
	if c.LogDir == "" {
		c.LogDir = filepath.Join(dataDir, "logs")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = FormatConsole
	}
	if c.LogKeep == 0 {
		c.LogKeep = 30
	}
	if c.DefaultCategory == "" {
		c.DefaultCategory = category.DefaultCategory
	}
	if len(c.Categories) == 0 {
		c.Categories = category.DefaultRuleSet()
	}
	if c.ScheduleFile == "" {
		c.ScheduleFile = filepath.Join(dataDir, "schedule.json")
	}
	if c.Watch.DebounceMS == 0 {
		c.Watch.DebounceMS = 2000
	}
	if c.Watch.StableMS == 0 {
		c.Watch.StableMS = 1000
	}
}

// Validate returns the first validation error, if any.
func (c *Config) Validate() error {
	result := ValidateConfig(c)
	if result.Valid {
		return nil
	}
	first := result.Errors[0]
	return &ConfigError{
		Type:    ValidationError,
		Message: fmt.Sprintf("%s: %s", first.Field, first.Message),
	}
}

// Rules builds the category rule set described by the configuration.
func (c *Config) Rules() *category.Rules {
	return category.NewRules(c.Categories, c.DefaultCategory)
}

// UnknownKeys lists keys present in the loaded file that tidyup does not use.
func (c *Config) UnknownKeys() []string {
	return c.unknownKeys
}

// DefaultPath returns $XDG_CONFIG_HOME/tidyup/config.toml, falling back to
// ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, appName, "config.toml")
}

// DataDir returns $XDG_DATA_HOME/tidyup, falling back to ~/.local/share.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, ".local", "share", appName)
}

// Load reads, defaults and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{Type: FileNotFound, Path: path}
		}
		return nil, &ConfigError{Type: FileNotFound, Path: path, Message: err.Error()}
	}
	return parse(path, data)
}

// LoadOrDefault loads the file at path, or returns defaults if it does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Type == FileNotFound && cfgErr.Message == "" {
		return Default(), nil
	}
	return cfg, err
}

func parse(path string, data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, &ConfigError{Type: InvalidTOML, Path: path, Message: err.Error()}
	}
	for _, key := range md.Undecoded() {
		cfg.unknownKeys = append(cfg.unknownKeys, key.String())
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path as TOML, creating parent directories.
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return &ConfigError{Type: InvalidTOML, Path: path, Message: err.Error()}
	}
	if err := fileops.WriteFileAtomic(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

// Init writes a default configuration to path. It refuses to replace an
// existing file.
func Init(path string) (*Config, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("config file already exists at %s", path)
	}
	cfg := Default()
	if err := Save(cfg, path); err != nil {
		return nil, fmt.Errorf("initializing config: %w", err)
	}
	return cfg, nil
}
