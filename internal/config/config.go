package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MEALBASKET_SERVER_PORT
const EnvPrefix = "MEALBASKET"

// Config holds all configuration for the MCP server
type Config struct {
	Auth      AuthConfig      `mapstructure:"auth"`
	Server    ServerConfig    `mapstructure:"server"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Data      DataConfig      `mapstructure:"data"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Baskets   BasketsConfig   `mapstructure:"baskets"`
	Basket    BasketConfig    `mapstructure:"basket"`
}

type AuthConfig struct {
	Token string `mapstructure:"token"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// CatalogConfig selects the catalog backend and where the catalog file comes from.
// An empty URL means the embedded seed catalog is written to the data dir.
type CatalogConfig struct {
	Backend string        `mapstructure:"backend"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DataConfig holds the catalog file lifecycle settings
type DataConfig struct {
	Dir                  string `mapstructure:"dir"`
	CatalogPath          string `mapstructure:"catalog_path"`
	MetadataPath         string `mapstructure:"metadata_path"`
	LockFile             string `mapstructure:"lock_file"`
	RefreshIntervalHours int    `mapstructure:"refresh_interval_hours"`
	DisableRemoteCheck   bool   `mapstructure:"disable_remote_check"`
	IgnoreLock           bool   `mapstructure:"ignore_lock"`
}

// RateLimitConfig is a token bucket applied to /mcp; zero requests per minute disables it
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type BasketsConfig struct {
	Max int `mapstructure:"max"`
}

type BasketConfig struct {
	DefaultStore string `mapstructure:"default_store"`
}

// Load reads the optional YAML config file and MEALBASKET_* environment overrides.
// A missing config file is fine; every key has a default.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("mealbasket")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/mealbasket")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("auth.token", "super-secret-token")
	v.SetDefault("server.port", "8080")

	v.SetDefault("catalog.backend", "memory")
	v.SetDefault("catalog.url", "")
	v.SetDefault("catalog.timeout", "2s")

	// paths left empty are derived from data.dir
	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.catalog_path", "")
	v.SetDefault("data.metadata_path", "")
	v.SetDefault("data.lock_file", "")
	v.SetDefault("data.refresh_interval_hours", 24)
	v.SetDefault("data.disable_remote_check", false)
	v.SetDefault("data.ignore_lock", false)

	v.SetDefault("ratelimit.requests_per_minute", 120)
	v.SetDefault("ratelimit.burst", 20)

	v.SetDefault("baskets.max", 100)
	v.SetDefault("basket.default_store", "")
}

func (c *Config) resolvePaths() {
	if c.Data.CatalogPath == "" {
		c.Data.CatalogPath = filepath.Join(c.Data.Dir, "catalog.json")
	}
	if c.Data.MetadataPath == "" {
		c.Data.MetadataPath = filepath.Join(c.Data.Dir, "metadata.json")
	}
	if c.Data.LockFile == "" {
		c.Data.LockFile = filepath.Join(c.Data.Dir, "refresh.lock")
	}
}

// Validate rejects settings the server can't run with
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	switch strings.ToLower(c.Catalog.Backend) {
	case "memory", "duckdb", "mock":
	default:
		return fmt.Errorf("catalog.backend must be memory, duckdb or mock, got %q", c.Catalog.Backend)
	}
	if c.Catalog.Timeout < 0 {
		return errors.New("catalog.timeout must not be negative")
	}
	if c.Data.RefreshIntervalHours < 0 {
		return errors.New("data.refresh_interval_hours must not be negative")
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return errors.New("ratelimit values must not be negative")
	}
	if c.Baskets.Max < 1 {
		return errors.New("baskets.max must be at least 1")
	}
	return nil
}

// RefreshInterval returns the refresh interval as a duration
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Data.RefreshIntervalHours) * time.Hour
}

// RemoteCatalog reports whether the catalog file is downloaded rather than seeded
func (c *Config) RemoteCatalog() bool {
	return c.Catalog.URL != ""
}
