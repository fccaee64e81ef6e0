// Package config loads the server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            int      `yaml:"port"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
		ShutdownSeconds int      `yaml:"shutdown_seconds"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Locking struct {
		// Backend is "memory" (single process) or "redis".
		Backend        string `yaml:"backend"`
		TimeoutMillis  int    `yaml:"timeout_ms"`
		TTLSeconds     int    `yaml:"ttl_seconds"`
		RetryMillis    int    `yaml:"retry_ms"`
		RedisKeyPrefix string `yaml:"redis_key_prefix"`
	} `yaml:"locking"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json or console
	} `yaml:"logging"`

	Audit struct {
		Enabled         bool `yaml:"enabled"`
		IntervalMinutes int  `yaml:"interval_minutes"`
	} `yaml:"audit"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`
}

// Load reads the YAML file at path, expanding ${ENV_VAR} placeholders.
// Variables from envFile (if it exists) are loaded into the environment
// first. A missing config file is not an error when path is empty: the
// defaults apply.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	explicit := path != ""
	if !explicit {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Support ${ENV_VAR} placeholders in YAML config.
		data = []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	cfg.applyDefaults()

	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, err
		}
	}
	return &cfg, cfg.Validate()
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Server.ShutdownSeconds <= 0 {
		c.Server.ShutdownSeconds = 10
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/concierge.db"
	}
	if c.Locking.Backend == "" {
		c.Locking.Backend = "memory"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Audit.IntervalMinutes <= 0 {
		c.Audit.IntervalMinutes = 60
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Locking.Backend {
	case "memory":
	case "redis":
		if c.Redis.Address == "" {
			return errors.New("locking.backend redis requires redis.address")
		}
	default:
		return fmt.Errorf("unknown locking.backend %q", c.Locking.Backend)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) LockTimeout() time.Duration {
	if c.Locking.TimeoutMillis <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Locking.TimeoutMillis) * time.Millisecond
}

func (c *Config) LockTTL() time.Duration {
	if c.Locking.TTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Locking.TTLSeconds) * time.Second
}

func (c *Config) LockRetry() time.Duration {
	if c.Locking.RetryMillis <= 0 {
		return 25 * time.Millisecond
	}
	return time.Duration(c.Locking.RetryMillis) * time.Millisecond
}

func (c *Config) AuditInterval() time.Duration {
	return time.Duration(c.Audit.IntervalMinutes) * time.Minute
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownSeconds) * time.Second
}
