package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/concord/pkg/database"
	"github.com/JaimeStill/concord/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvConcordEnv             = "CONCORD_ENV"
	EnvConcordShutdownTimeout = "CONCORD_SHUTDOWN_TIMEOUT"
	EnvConcordVersion         = "CONCORD_VERSION"
	EnvConcordLogLevel        = "CONCORD_LOG_LEVEL"
)

var databaseEnv = &database.Env{
	Driver:          "CONCORD_DB_DRIVER",
	Path:            "CONCORD_DB_PATH",
	Host:            "CONCORD_DB_HOST",
	Port:            "CONCORD_DB_PORT",
	Name:            "CONCORD_DB_NAME",
	User:            "CONCORD_DB_USER",
	Password:        "CONCORD_DB_PASSWORD",
	SSLMode:         "CONCORD_DB_SSL_MODE",
	MaxOpenConns:    "CONCORD_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "CONCORD_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "CONCORD_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "CONCORD_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "CONCORD_STORAGE_PROVIDER",
	ContainerName:    "CONCORD_STORAGE_CONTAINER_NAME",
	ConnectionString: "CONCORD_STORAGE_CONNECTION_STRING",
	Bucket:           "CONCORD_STORAGE_BUCKET",
	Region:           "CONCORD_STORAGE_REGION",
	Endpoint:         "CONCORD_STORAGE_ENDPOINT",
}

// Config is the root configuration for the concord service and CLI.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Database        database.Config  `toml:"database"`
	Storage         storage.Config   `toml:"storage"`
	API             APIConfig        `toml:"api"`
	Corpus          CorpusConfig     `toml:"corpus"`
	Ledger          LedgerConfig     `toml:"ledger"`
	Classifier      ClassifierConfig `toml:"classifier"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
	LogLevel        string           `toml:"log_level"`
}

// Env returns the CONCORD_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvConcordEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Level returns LogLevel as a slog.Level.
func (c *Config) Level() slog.Level {
	var l slog.Level
	_ = l.UnmarshalText([]byte(c.LogLevel))
	return l
}

// Load reads config.toml from the working directory (if present), applies any
// environment overlay, and finalizes all values. If no config.toml exists,
// defaults and environment variables provide all configuration.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit base file. The overlay is looked up next
// to it. An empty path falls back to an optional config.toml.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	base := path
	if base == "" {
		base = BaseConfigFile
	}

	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if path != "" {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if overlay := overlayPath(filepath.Dir(base)); overlay != "" {
		loaded, err := load(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(loaded)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Corpus.Merge(&overlay.Corpus)
	c.Ledger.Merge(&overlay.Ledger)
	c.Classifier.Merge(&overlay.Classifier)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Corpus.Finalize(); err != nil {
		return fmt.Errorf("corpus: %w", err)
	}
	if err := c.Ledger.Finalize(); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	if err := c.Classifier.Finalize(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvConcordShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvConcordVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvConcordLogLevel); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(dir string) string {
	if env := os.Getenv(EnvConcordEnv); env != "" {
		path := filepath.Join(dir, fmt.Sprintf(OverlayConfigPattern, env))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
