// Package config loads habitsync settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// HABITSYNC_* environment variables. Command-line flags are applied by the
// caller, which should call Validate again afterwards.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HABITSYNC_"

// MemoryStorage as storage_path keeps all state in process memory.
const MemoryStorage = ":memory:"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full client configuration.
type Config struct {
	APIBaseURL  string `yaml:"api_base_url" env:"API_BASE_URL"`
	APIToken    string `yaml:"api_token" env:"API_TOKEN"`
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH"`

	// OfflineQueue defers writes made while offline instead of failing them.
	OfflineQueue bool `yaml:"offline_queue" env:"OFFLINE_QUEUE"`

	// SettleDelay of zero retires optimistic edits only on a confirmed read.
	SettleDelay time.Duration `yaml:"settle_delay" env:"SETTLE_DELAY"`

	CacheTTL             time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
	TrackerCacheTTL      time.Duration `yaml:"tracker_cache_ttl" env:"TRACKER_CACHE_TTL"`
	TrackerCacheCapacity int           `yaml:"tracker_cache_capacity" env:"TRACKER_CACHE_CAPACITY"`
	MaxRetries           int           `yaml:"max_retries" env:"MAX_RETRIES"`
	RequestTimeout       time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`

	// ProbeInterval of zero disables the background health probe.
	ProbeInterval time.Duration `yaml:"probe_interval" env:"PROBE_INTERVAL"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIBaseURL:           "http://localhost:8080/api",
		StoragePath:          "habitsync.db",
		OfflineQueue:         true,
		SettleDelay:          500 * time.Millisecond,
		CacheTTL:             5 * time.Minute,
		TrackerCacheTTL:      5 * time.Minute,
		TrackerCacheCapacity: 10,
		MaxRetries:           3,
		RequestTimeout:       10 * time.Second,
		LogLevel:             "info",
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeFile overlays the fields present in a YAML file. Unknown keys are
// rejected.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level. Unknown names map to Info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
