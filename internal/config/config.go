package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the binsight server and worker.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Provider  ProviderConfig
	Reconcile ReconcileConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// ProviderConfig configures the batch classification provider client.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ReconcileConfig configures the scheduled reconciliation pass.
type ReconcileConfig struct {
	// CronSpec controls how often the worker enqueues a reconciliation pass.
	CronSpec string
	// Concurrency bounds the asynq worker pool.
	Concurrency int
	// StatusTTL is how long job statuses are mirrored in the cache.
	StatusTTL time.Duration
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("BINSIGHT_PORT", 8080),
			Env:  envString("BINSIGHT_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Provider: ProviderConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Timeout: envDuration("OPENAI_TIMEOUT", 30*time.Second),
		},
		Reconcile: ReconcileConfig{
			CronSpec:    envString("RECONCILE_CRON", "*/10 * * * *"),
			Concurrency: envInt("RECONCILE_CONCURRENCY", 10),
			StatusTTL:   envDuration("RECONCILE_STATUS_TTL", 30*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Provider.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if !strings.HasPrefix(c.Provider.BaseURL, "http://") && !strings.HasPrefix(c.Provider.BaseURL, "https://") {
		return fmt.Errorf("OPENAI_BASE_URL must start with http:// or https://, got %q", c.Provider.BaseURL)
	}

	if len(strings.Fields(c.Reconcile.CronSpec)) != 5 {
		return fmt.Errorf("RECONCILE_CRON must be a five-field cron spec, got %q", c.Reconcile.CronSpec)
	}
	if c.Reconcile.Concurrency < 1 {
		return fmt.Errorf("RECONCILE_CONCURRENCY must be at least 1")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
