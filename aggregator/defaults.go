// ABOUTME: Default implementations for library dependencies
// ABOUTME: Provides factory functions for stores, caches, loggers and the source catalogue

package aggregator

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"listings-aggregator-api/core/interfaces"
	memcache "listings-aggregator-api/infrastructure/cache/memory"
	httpInfra "listings-aggregator-api/infrastructure/http/standard"
	"listings-aggregator-api/infrastructure/logger/structured"
	"listings-aggregator-api/infrastructure/store/memory"
	"listings-aggregator-api/infrastructure/store/postgres"
	"listings-aggregator-api/infrastructure/store/sqlite"
	"listings-aggregator-api/pkg/config"
)

// DefaultHTTPClient creates a default HTTP client; per-attempt timeouts come from the fetch policy
func DefaultHTTPClient() interfaces.HTTPClient {
	return httpInfra.NewStandardHTTPClient(30 * time.Second)
}

// DefaultMemoryCache creates a default in-memory cache
func DefaultMemoryCache() interfaces.Cache {
	return memcache.NewMemoryCache(10 * time.Minute)
}

// DefaultMemoryStore creates a process-local listing store
func DefaultMemoryStore() interfaces.ListingStore {
	return memory.NewStore()
}

// DefaultSources returns the built-in upstream catalogue
func DefaultSources() []Source {
	specs := config.DefaultSources()
	out := make([]Source, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.Descriptor())
	}
	return out
}

// DefaultLogger creates a structured logger that writes JSON to stdout
func DefaultLogger() interfaces.Logger {
	l, err := structured.New(config.LogConfig{Level: "info", Format: "json"})
	if err != nil {
		return QuietLogger()
	}
	return l
}

// QuietLogger creates a logger that discards all output
func QuietLogger() interfaces.Logger {
	return &quietLogger{}
}

type quietLogger struct{}

func (q *quietLogger) Debug(msg string, fields map[string]interface{}) {}
func (q *quietLogger) Info(msg string, fields map[string]interface{})  {}
func (q *quietLogger) Warn(msg string, fields map[string]interface{})  {}
func (q *quietLogger) Error(msg string, fields map[string]interface{}) {}

// StoreType represents the kind of listing store
type StoreType string

const (
	StoreTypeMemory   StoreType = "memory"
	StoreTypeSQLite   StoreType = "sqlite"
	StoreTypePostgres StoreType = "postgres"
)

// StoreOption represents store configuration options
type StoreOption struct {
	Type     StoreType
	FilePath string // SQLite
	DSN      string // Postgres
	MaxConns int    // Postgres
}

// WithStoreOption creates a store based on the provided options
func WithStoreOption(opt StoreOption) Option {
	return func(c *Config) error {
		switch opt.Type {
		case StoreTypeMemory, "":
			c.Store = DefaultMemoryStore()
		case StoreTypeSQLite:
			if opt.FilePath == "" {
				opt.FilePath = "listings.db"
			}
			store, err := sqlite.NewStore(opt.FilePath)
			if err != nil {
				return NewError(ErrorTypeConfiguration, "open sqlite store").WithCause(err)
			}
			c.Store = store
		case StoreTypePostgres:
			if opt.DSN == "" {
				return NewError(ErrorTypeConfiguration, "postgres store requires a DSN")
			}
			store, err := postgres.NewStore(context.Background(), opt.DSN, opt.MaxConns)
			if err != nil {
				return NewError(ErrorTypeConfiguration, "open postgres store").WithCause(err)
			}
			c.Store = store
		default:
			return NewError(ErrorTypeConfiguration, "invalid store type").
				WithContext("type", string(opt.Type))
		}
		return nil
	}
}

// WithDefaultLogger configures structured JSON logging to stdout
func WithDefaultLogger() Option {
	return func(c *Config) error {
		c.Logger = DefaultLogger()
		return nil
	}
}

// WithDebugLogging writes debug-level JSON logs to stderr
func WithDebugLogging() Option {
	return func(c *Config) error {
		c.Logger = structured.NewWithWriter(os.Stderr, logrus.DebugLevel)
		return nil
	}
}
