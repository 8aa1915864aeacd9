// ABOUTME: Configuration management for the application with environment variable support
// ABOUTME: Defines configuration structures for server, storage, cache, fetching and sources

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"listings-aggregator-api/pkg/utils/duration"
)

// Config holds all application configuration
type Config struct {
	// Server contains HTTP server configuration
	Server ServerConfig

	// Store selects and configures the canonical listing store
	Store StoreConfig

	// Cache contains cache configuration
	Cache CacheConfig

	// Fetch contains upstream request policy
	Fetch FetchConfig

	// Aggregation contains refresh and merge policy
	Aggregation AggregationConfig

	// Log contains logger configuration
	Log LogConfig

	// Sources is the upstream catalogue, credentials still unresolved
	Sources []SourceSpec
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	// Port is the HTTP server port
	Port string

	// RateLimit is the sustained requests per second allowed per client IP
	RateLimit float64

	// RateBurst is the burst size allowed per client IP
	RateBurst int
}

// StoreConfig holds listing store configuration
type StoreConfig struct {
	// Type specifies the store backend (memory/sqlite/postgres)
	Type string

	// SQLitePath is the database file used by the sqlite store
	SQLitePath string

	// PostgresDSN is the connection string used by the postgres store
	PostgresDSN string

	// PostgresMaxConns caps the pgx pool size
	PostgresMaxConns int
}

// CacheConfig holds cache backend configuration
type CacheConfig struct {
	// Type specifies the cache backend (redis/memory/sqlite)
	Type string

	// SQLitePath is the database file used by the sqlite cache
	SQLitePath string

	// Redis contains Redis-specific configuration
	Redis RedisConfig

	// Memory contains in-memory cache configuration
	Memory MemoryConfig
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Address is the Redis server address
	Address string

	// Password is the Redis authentication password
	Password string

	// DB is the Redis database number
	DB int
}

// MemoryConfig holds in-memory cache configuration
type MemoryConfig struct {
	// CleanupInterval is how often expired entries are purged
	CleanupInterval time.Duration
}

// FetchConfig holds upstream request policy
type FetchConfig struct {
	// Timeout bounds a single fetch attempt
	Timeout time.Duration

	// Attempts is the total number of attempts per fetch
	Attempts int

	// Backoff is the fixed delay between attempts
	Backoff time.Duration

	// HealthTimeout bounds a single health probe
	HealthTimeout time.Duration
}

// AggregationConfig holds refresh and merge policy
type AggregationConfig struct {
	// CacheDuration is how long stored listings are considered fresh
	CacheDuration time.Duration

	// RefreshDeadline is the wall-clock ceiling for one full refresh pass
	RefreshDeadline time.Duration

	// MergePolicy is "overwrite" or "preserve_nonempty"
	MergePolicy string

	// SyntheticIDMode is "random" or "content"
	SyntheticIDMode string
}

// LogConfig holds logger configuration
type LogConfig struct {
	// Level is a logrus level name
	Level string

	// Format is "text" or "json"
	Format string

	// File enables rotating file output when set
	File string

	// MaxSizeMB, MaxBackups and MaxAgeDays configure rotation
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// LoadFromEnv loads configuration from a .env file (if present) and environment variables
func LoadFromEnv() (*Config, error) {
	// A missing .env file is normal outside development
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:      getEnvOrDefault("PORT", "4000"),
			RateLimit: getEnvAsFloatOrDefault("RATE_LIMIT", 5),
			RateBurst: getEnvAsIntOrDefault("RATE_BURST", 10),
		},
		Store: StoreConfig{
			Type:             getEnvOrDefault("STORE_TYPE", "memory"),
			SQLitePath:       getEnvOrDefault("SQLITE_PATH", "listings.db"),
			PostgresDSN:      getEnvOrDefault("POSTGRES_DSN", ""),
			PostgresMaxConns: getEnvAsIntOrDefault("POSTGRES_MAX_CONNS", 4),
		},
		Cache: CacheConfig{
			Type:       getEnvOrDefault("CACHE_TYPE", "memory"),
			SQLitePath: getEnvOrDefault("CACHE_SQLITE_PATH", "cache.db"),
			Redis: RedisConfig{
				Address:  getEnvOrDefault("REDIS_ADDRESS", "localhost:6379"),
				Password: getEnvOrDefault("REDIS_PASSWORD", ""),
				DB:       getEnvAsIntOrDefault("REDIS_DB", 0),
			},
			Memory: MemoryConfig{
				CleanupInterval: getEnvAsDurationOrDefault("MEMORY_CACHE_CLEANUP", 10*time.Minute),
			},
		},
		Fetch: FetchConfig{
			Timeout:       getEnvAsDurationOrDefault("FETCH_TIMEOUT", 10*time.Second),
			Attempts:      getEnvAsIntOrDefault("FETCH_ATTEMPTS", 3),
			Backoff:       getEnvAsDurationOrDefault("FETCH_BACKOFF", time.Second),
			HealthTimeout: getEnvAsDurationOrDefault("HEALTH_TIMEOUT", 5*time.Second),
		},
		Aggregation: AggregationConfig{
			CacheDuration:   getEnvAsDurationOrDefault("CACHE_DURATION", 300*time.Second),
			RefreshDeadline: getEnvAsDurationOrDefault("REFRESH_DEADLINE", 30*time.Second),
			MergePolicy:     getEnvOrDefault("MERGE_POLICY", "overwrite"),
			SyntheticIDMode: getEnvOrDefault("SYNTHETIC_ID_MODE", "random"),
		},
		Log: LogConfig{
			Level:      getEnvOrDefault("LOG_LEVEL", "info"),
			Format:     getEnvOrDefault("LOG_FORMAT", "text"),
			File:       getEnvOrDefault("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsIntOrDefault("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsIntOrDefault("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvAsIntOrDefault("LOG_MAX_AGE_DAYS", 28),
		},
	}

	sources, err := LoadSources(getEnvOrDefault("SOURCES_FILE", ""))
	if err != nil {
		return nil, err
	}
	cfg.Sources = sources

	return cfg, nil
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault returns the environment variable as int or a default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault accepts Go durations ("1500ms") or whole seconds ("10")
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := duration.Parse(value); err == nil {
		return d
	}
	return defaultValue
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("port cannot be empty")
	}

	switch c.Store.Type {
	case "memory":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return errors.New("sqlite path cannot be empty when using sqlite store")
		}
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return errors.New("postgres dsn cannot be empty when using postgres store")
		}
	default:
		return errors.New("store type must be 'memory', 'sqlite' or 'postgres'")
	}

	switch c.Cache.Type {
	case "memory", "redis":
	case "sqlite":
		if c.Cache.SQLitePath == "" {
			return errors.New("sqlite path cannot be empty when using sqlite cache")
		}
	default:
		return errors.New("cache type must be 'redis', 'memory' or 'sqlite'")
	}

	if c.Cache.Type == "redis" && c.Cache.Redis.Address == "" {
		return errors.New("redis address cannot be empty when using redis cache")
	}

	if c.Fetch.Attempts < 1 {
		return errors.New("fetch attempts must be at least 1")
	}

	if c.Fetch.Timeout <= 0 || c.Fetch.HealthTimeout <= 0 {
		return errors.New("fetch and health timeouts must be positive")
	}

	if c.Fetch.Backoff < 0 {
		return errors.New("fetch backoff cannot be negative")
	}

	if c.Aggregation.RefreshDeadline <= 0 {
		return errors.New("refresh deadline must be positive")
	}

	if c.Aggregation.MergePolicy != "overwrite" && c.Aggregation.MergePolicy != "preserve_nonempty" {
		return errors.New("merge policy must be 'overwrite' or 'preserve_nonempty'")
	}

	if c.Aggregation.SyntheticIDMode != "random" && c.Aggregation.SyntheticIDMode != "content" {
		return errors.New("synthetic id mode must be 'random' or 'content'")
	}

	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s.Name == "" || s.URL == "" {
			return errors.New("every source needs a name and a url")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate source name %q", s.Name)
		}
		seen[s.Name] = true
	}

	return nil
}
