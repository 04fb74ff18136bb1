// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/cassette/domain/module"
	"gopkg.in/yaml.v3"
)

// Cache drivers.
const (
	CacheDriverSQLite = "sqlite"
	CacheDriverYAML   = "yaml"
	CacheDriverNone   = "none"
)

// DefaultCacheDirName is the cache directory created inside the source
// directory when cache_dir is not set. Dot-directories are never scanned.
const DefaultCacheDirName = ".cassette-cache"

// Config is the root configuration structure.
type Config struct {
	SourceDir string        `yaml:"source_dir"`
	CacheDir  string        `yaml:"cache_dir"`
	Cache     CacheConfig   `yaml:"cache"`
	Kinds     []string      `yaml:"kinds"`
	Server    ServerConfig  `yaml:"server"`
	Logging   LoggingConfig `yaml:"logging"`
	Metrics   MetricsConfig `yaml:"metrics"`
	Watch     WatchConfig   `yaml:"watch"`
}

// CacheConfig configures how module caches persist manifests.
type CacheConfig struct {
	Driver   string `yaml:"driver"`   // "sqlite", "yaml" or "none"
	Filename string `yaml:"filename"` // file inside each kind's cache directory
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"` // Enable /metrics endpoint
}

// WatchConfig configures source watching.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Relative directories are relative to the config file.
	base := filepath.Dir(path)
	cfg.SourceDir = resolve(base, cfg.SourceDir)
	cfg.CacheDir = resolve(base, cfg.CacheDir)

	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	CASSETTE_SOURCE_DIR       - Source directory (required)
//	CASSETTE_CACHE_DIR        - Cache directory (default: <source>/.cassette-cache)
//	CASSETTE_CACHE_DRIVER     - sqlite, yaml or none (default: sqlite)
//	CASSETTE_KINDS            - Comma separated kinds (default: all)
//	CASSETTE_SERVER_HOST      - Admin server host (default: 127.0.0.1)
//	CASSETTE_SERVER_PORT      - Admin server port (default: 8088)
//	CASSETTE_LOG_LEVEL        - Log level: debug, info, warn, error (default: info)
//	CASSETTE_LOG_FORMAT       - Log format: json or console (default: json)
//	CASSETTE_METRICS_ENABLED  - Enable /metrics endpoint (default: false)
//	CASSETTE_WATCH_DEBOUNCE   - Quiet period before a rebuild (default: 250ms)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if HasEnvConfig() {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set CASSETTE_SOURCE_DIR")
}

// ForSource creates configuration for a source directory given on the
// command line. Environment variables still apply, except for the source
// directory itself.
func ForSource(dir string) (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	cfg.SourceDir = dir
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv("CASSETTE_SOURCE_DIR") != ""
}

// ModuleKinds returns the enabled kinds, parsed and without duplicates.
func (c *Config) ModuleKinds() ([]module.Kind, error) {
	seen := make(map[module.Kind]bool, len(c.Kinds))
	kinds := make([]module.Kind, 0, len(c.Kinds))
	for _, raw := range c.Kinds {
		kind, err := module.ParseKind(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// Addr returns the admin server listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// applyEnvOverrides applies CASSETTE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CASSETTE_SOURCE_DIR"); v != "" {
		cfg.SourceDir = v
	}
	if v := os.Getenv("CASSETTE_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("CASSETTE_CACHE_DRIVER"); v != "" {
		cfg.Cache.Driver = v
	}
	if v := os.Getenv("CASSETTE_KINDS"); v != "" {
		cfg.Kinds = strings.Split(v, ",")
	}

	if v := os.Getenv("CASSETTE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("CASSETTE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("CASSETTE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CASSETTE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("CASSETTE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}

	if v := os.Getenv("CASSETTE_WATCH_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Watch.Debounce = d
		}
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func resolve(base, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}

func setDefaults(cfg *Config) {
	if cfg.CacheDir == "" && cfg.SourceDir != "" {
		cfg.CacheDir = filepath.Join(cfg.SourceDir, DefaultCacheDirName)
	}
	if cfg.Cache.Driver == "" {
		cfg.Cache.Driver = CacheDriverSQLite
	}
	if len(cfg.Kinds) == 0 {
		for _, k := range module.Kinds() {
			cfg.Kinds = append(cfg.Kinds, string(k))
		}
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8088
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 250 * time.Millisecond
	}
}

func validate(cfg *Config) error {
	if cfg.SourceDir == "" {
		return fmt.Errorf("source_dir is required")
	}

	validDrivers := map[string]bool{CacheDriverSQLite: true, CacheDriverYAML: true, CacheDriverNone: true}
	if !validDrivers[cfg.Cache.Driver] {
		return fmt.Errorf("cache.driver must be one of: sqlite, yaml, none, got %q", cfg.Cache.Driver)
	}

	if _, err := cfg.ModuleKinds(); err != nil {
		return fmt.Errorf("kinds: %w", err)
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", cfg.Server.Port)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}

	return nil
}
