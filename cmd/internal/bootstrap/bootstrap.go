// ABOUTME: Shared wiring for the API server and the CLI
// ABOUTME: Turns a validated Config into a ready listing service plus the resources to close

package bootstrap

import (
	"context"
	"errors"
	"io"
	"os"

	"listings-aggregator-api/core/fetch"
	"listings-aggregator-api/core/interfaces"
	"listings-aggregator-api/core/listing"
	"listings-aggregator-api/core/normalize"
	"listings-aggregator-api/core/reconcile"
	"listings-aggregator-api/core/registry"
	memcache "listings-aggregator-api/infrastructure/cache/memory"
	"listings-aggregator-api/infrastructure/cache/redis"
	sqlitecache "listings-aggregator-api/infrastructure/cache/sqlite"
	stdhttp "listings-aggregator-api/infrastructure/http/standard"
	"listings-aggregator-api/infrastructure/store/memory"
	"listings-aggregator-api/infrastructure/store/postgres"
	"listings-aggregator-api/infrastructure/store/sqlite"
	"listings-aggregator-api/pkg/config"
	"listings-aggregator-api/pkg/featureflags"
)

// App holds the wired service and everything that must be released on exit
type App struct {
	Deps     interfaces.Dependencies
	Registry *registry.Registry
	Service  *listing.Service

	closers []io.Closer
}

// Build opens the configured store and cache and wires the listing service
func Build(ctx context.Context, cfg *config.Config, logger interfaces.Logger, flags featureflags.Manager) (*App, error) {
	app := &App{}

	store, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if c, ok := store.(io.Closer); ok {
		app.closers = append(app.closers, c)
	}

	cache := OpenCache(cfg.Cache, logger)
	if c, ok := cache.(io.Closer); ok {
		app.closers = append(app.closers, c)
	}

	app.Deps = interfaces.Dependencies{
		Cache:      cache,
		HTTPClient: stdhttp.NewStandardHTTPClient(cfg.Fetch.Timeout),
		Logger:     logger,
		Store:      store,
	}
	app.Registry = registry.New(cfg.SourceDescriptors(), os.LookupEnv)

	for name, problem := range app.Registry.Problems() {
		logger.Warn("Source misconfigured", map[string]interface{}{
			"source": name,
			"error":  problem.Error(),
		})
	}

	svcCfg := ServiceConfig(cfg)
	svcCfg.Flags = flags
	app.Service = listing.NewService(app.Deps, app.Registry, svcCfg)

	return app, nil
}

// ServiceConfig maps configuration onto the listing service settings
func ServiceConfig(cfg *config.Config) listing.Config {
	return listing.Config{
		Fetch: fetch.Policy{
			Timeout:       cfg.Fetch.Timeout,
			Attempts:      cfg.Fetch.Attempts,
			Backoff:       cfg.Fetch.Backoff,
			HealthTimeout: cfg.Fetch.HealthTimeout,
		},
		MergePolicy:     reconcile.MergePolicy(cfg.Aggregation.MergePolicy),
		IDMode:          normalize.IDMode(cfg.Aggregation.SyntheticIDMode),
		CacheDuration:   cfg.Aggregation.CacheDuration,
		RefreshDeadline: cfg.Aggregation.RefreshDeadline,
	}
}

// OpenStore opens the configured listing store
func OpenStore(ctx context.Context, cfg config.StoreConfig) (interfaces.ListingStore, error) {
	switch cfg.Type {
	case "sqlite":
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory", "":
		return memory.NewStore(), nil
	default:
		return nil, errors.New("unknown store type: " + cfg.Type)
	}
}

// OpenCache opens the configured cache, falling back to memory when the backend is unavailable
func OpenCache(cfg config.CacheConfig, logger interfaces.Logger) interfaces.Cache {
	switch cfg.Type {
	case "redis":
		cache, err := redis.NewRedisCache(cfg.Redis)
		if err == nil {
			logger.Info("Using Redis cache", map[string]interface{}{"address": cfg.Redis.Address})
			return cache
		}
		logger.Error("Failed to create Redis cache, falling back to memory", map[string]interface{}{
			"error": err.Error(),
		})
	case "sqlite":
		cache, err := sqlitecache.NewSQLiteCache(cfg.SQLitePath, cfg.Memory.CleanupInterval)
		if err == nil {
			logger.Info("Using SQLite cache", map[string]interface{}{"path": cfg.SQLitePath})
			return cache
		}
		logger.Error("Failed to create SQLite cache, falling back to memory", map[string]interface{}{
			"error": err.Error(),
		})
	}

	logger.Info("Using memory cache", nil)
	return memcache.NewMemoryCache(cfg.Memory.CleanupInterval)
}

// Close releases the store and cache in reverse order of opening
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
