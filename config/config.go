// Package config provides unified configuration loading for the memkit
// engine: defaults, then a YAML file, then environment variable
// overrides for deployment-sensitive fields.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seedchat/memkit/budget"
	"github.com/seedchat/memkit/internal/cache"
	"github.com/seedchat/memkit/memory"
)

// Config is the complete engine configuration.
type Config struct {
	// Memory tunes scoring thresholds and the capacity bound.
	Memory memory.UseCaseConfig `yaml:"memory" json:"memory"`

	// Budget tunes context history selection.
	Budget budget.Config `yaml:"budget" json:"budget"`

	// Cache configures the optional redis context cache.
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Database configures the relational store.
	Database DatabaseConfig `yaml:"database" json:"database"`
}

// CacheConfig wraps the redis cache settings with an enable switch; the
// engine runs fine without a cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	cache.Config `yaml:",inline" json:",inline"`
}

// DatabaseConfig selects and configures the persistence backend.
type DatabaseConfig struct {
	// Driver is one of sqlite, postgres, mongodb, memory.
	Driver string `yaml:"driver" json:"driver"`

	// DSN is the driver-specific connection string.
	DSN string `yaml:"dsn" json:"dsn"`
}

// Default returns the engine defaults.
func Default() Config {
	return Config{
		Memory: memory.DefaultUseCaseConfig(),
		Budget: budget.DefaultConfig(),
		Cache: CacheConfig{
			Enabled: false,
			Config:  cache.DefaultConfig(),
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "memkit.db",
		},
	}
}

// Load reads a YAML file over the defaults and then applies environment
// overrides. A missing file is not an error; the defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot honor.
func (c *Config) Validate() error {
	if c.Memory.CreationThreshold < 0 || c.Memory.CreationThreshold > 1 {
		return fmt.Errorf("memory.creation_threshold must be in [0,1], got %v", c.Memory.CreationThreshold)
	}
	if c.Memory.SimilarityThreshold < 0 || c.Memory.SimilarityThreshold > 1 {
		return fmt.Errorf("memory.similarity_threshold must be in [0,1], got %v", c.Memory.SimilarityThreshold)
	}
	if c.Memory.Capacity < 0 {
		return fmt.Errorf("memory.capacity must be non-negative, got %d", c.Memory.Capacity)
	}
	if c.Budget.ContextRatio < 0 || c.Budget.ContextRatio > 1 {
		return fmt.Errorf("budget.context_ratio must be in [0,1], got %v", c.Budget.ContextRatio)
	}
	switch c.Database.Driver {
	case "", "sqlite", "postgres", "mongodb", "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	return nil
}

// applyEnv overrides deployment-sensitive fields from the environment.
// Tuning knobs stay file-only on purpose.
func applyEnv(cfg *Config) {
	if v := os.Getenv("MEMKIT_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("MEMKIT_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("MEMKIT_REDIS_ADDR"); v != "" {
		cfg.Cache.Addr = v
		cfg.Cache.Enabled = true
	}
	if v := os.Getenv("MEMKIT_REDIS_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("MEMKIT_CACHE_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = ttl
		}
	}
	if v := os.Getenv("MEMKIT_MEMORY_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Memory.Capacity = n
		}
	}
}
