package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"stockyard/browser/internal/domain"
)

// Config holds all configuration for the application
type Config struct {
	Service ServiceConfig `mapstructure:"service"`
	Browser BrowserConfig `mapstructure:"browser"`
	Session SessionConfig `mapstructure:"session"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServiceConfig holds inventory service connection configuration
type ServiceConfig struct {
	// Endpoints lists the service base URLs. More than one enables
	// round-robin across mirrors.
	Endpoints            []string      `mapstructure:"endpoints"`
	ProbePath            string        `mapstructure:"probe_path"`
	Timeout              time.Duration `mapstructure:"timeout"`
	MaxWorkers           int           `mapstructure:"max_workers"`
	MaxRequestsPerSecond int           `mapstructure:"max_requests_per_second"`
	QuotaCooldown        time.Duration `mapstructure:"quota_cooldown"`
	PerPage              int           `mapstructure:"per_page"`
}

// BrowserConfig holds tree behavior configuration
type BrowserConfig struct {
	// ExclusiveLevels names tiers where expanding one sibling collapses
	// the others. Empty means every tier allows multiple open siblings.
	ExclusiveLevels []string      `mapstructure:"exclusive_levels"`
	RestoreOnStart  bool          `mapstructure:"restore_on_start"`
	SyncMinInterval time.Duration `mapstructure:"sync_min_interval"`
}

// SessionConfig holds session state persistence configuration
type SessionConfig struct {
	// Backend selects the store: badger, redis, or memory.
	Backend   string        `mapstructure:"backend"`
	Namespace string        `mapstructure:"namespace"`
	TTL       time.Duration `mapstructure:"ttl"`
	Badger    BadgerConfig  `mapstructure:"badger"`
	Redis     RedisConfig   `mapstructure:"redis"`
}

// BadgerConfig holds on-disk store configuration
type BadgerConfig struct {
	Path       string `mapstructure:"path"`
	SyncWrites bool   `mapstructure:"sync_writes"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	// File receives log output. The terminal is occupied by the tree view,
	// so logs never go to stderr while the browser runs.
	File string `mapstructure:"file"`
}

// Load loads configuration from YAML file with environment variable overrides
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config.yaml: defaults plus environment overrides apply.
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate rejects configurations the container cannot wire.
func (c *Config) Validate() error {
	if len(c.Service.Endpoints) == 0 {
		return fmt.Errorf("service.endpoints must list at least one base URL")
	}
	if c.Service.PerPage <= 0 {
		return fmt.Errorf("service.per_page must be positive, got %d", c.Service.PerPage)
	}
	if c.Service.MaxRequestsPerSecond <= 0 {
		return fmt.Errorf("service.max_requests_per_second must be positive, got %d", c.Service.MaxRequestsPerSecond)
	}
	if c.Service.MaxWorkers <= 0 {
		return fmt.Errorf("service.max_workers must be positive, got %d", c.Service.MaxWorkers)
	}

	switch c.Session.Backend {
	case "badger", "redis", "memory":
	default:
		return fmt.Errorf("session.backend must be badger, redis or memory, got %q", c.Session.Backend)
	}
	if c.Session.Backend == "badger" && c.Session.Badger.Path == "" {
		return fmt.Errorf("session.badger.path is required for the badger backend")
	}

	for _, name := range c.Browser.ExclusiveLevels {
		if _, ok := domain.ParseLevel(name); !ok {
			return fmt.Errorf("browser.exclusive_levels: unknown level %q", name)
		}
	}

	return nil
}

// ExclusiveLevels resolves the configured names onto tiers.
func (c *Config) ExclusiveLevels() map[domain.Level]bool {
	out := make(map[domain.Level]bool, len(c.Browser.ExclusiveLevels))
	for _, name := range c.Browser.ExclusiveLevels {
		if level, ok := domain.ParseLevel(name); ok {
			out[level] = true
		}
	}
	return out
}

func setDefaults() {
	viper.SetDefault("service.endpoints", []string{"http://localhost:8080"})
	viper.SetDefault("service.probe_path", "/api/categories?page=1&per_page=1")
	viper.SetDefault("service.timeout", "15s")
	viper.SetDefault("service.max_workers", 4)
	viper.SetDefault("service.max_requests_per_second", 10)
	viper.SetDefault("service.quota_cooldown", "30s")
	viper.SetDefault("service.per_page", 20)

	viper.SetDefault("browser.exclusive_levels", []string{})
	viper.SetDefault("browser.restore_on_start", true)
	viper.SetDefault("browser.sync_min_interval", "5s")

	viper.SetDefault("session.backend", "badger")
	viper.SetDefault("session.namespace", "default")
	viper.SetDefault("session.ttl", "720h")
	viper.SetDefault("session.badger.path", "./data/session")
	viper.SetDefault("session.badger.sync_writes", false)

	viper.SetDefault("session.redis.host", "localhost")
	viper.SetDefault("session.redis.port", 6379)
	viper.SetDefault("session.redis.password", "")
	viper.SetDefault("session.redis.database", 0)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "./stockyard.log")
}
