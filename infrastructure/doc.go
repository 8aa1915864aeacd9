// Package infrastructure provides concrete implementations of the interfaces
// defined in the core package. These implementations handle external concerns
// such as persistence, caching, HTTP communication, and logging.
//
// The infrastructure package is organized by technical concern:
//
// - store/memory: Process-local listing store with a secondary identity index
// - store/sqlite: Durable single-node listing store (go-sqlite3)
// - store/postgres: Shared listing store for multi-replica deployments (pgx)
// - store/sqlbuilder: Parameterized query builder shared by the SQL stores
// - store/storetest: Conformance suite every store must pass
// - cache/memory: In-memory cache backed by go-cache
// - cache/redis: Redis cache shared across replicas
// - cache/sqlite: File-backed cache that survives restarts
// - http/standard: Single-attempt net/http client; retries live in core/fetch
// - logger/structured: logrus logger with optional lumberjack rotation
//
// # Stores
//
//	store, err := sqlite.NewStore("listings.db")
//	created, err := store.Create(ctx, listing)
//	active, err := store.ListActive(ctx)
//
// # Cache Implementations
//
// Memory Cache Example:
//
//	cache := memory.NewMemoryCache(10 * time.Minute)
//	err := cache.Set(ctx, "key", []byte("value"), 1*time.Hour)
//	value, err := cache.Get(ctx, "key")
//
// Redis Cache Example:
//
//	cache, err := redis.NewRedisCache(config.RedisConfig{
//	    Address: "localhost:6379",
//	})
//
// A zero TTL means the entry never expires; misses return interfaces.ErrCacheMiss.
//
// # HTTP Client
//
//	client := standard.NewStandardHTTPClient(10 * time.Second)
//	resp, err := client.Get(ctx, "https://example.com", map[string]string{"X-Key": "secret"})
//	if err != nil {
//	    // Handle error
//	}
//	defer resp.Body().Close()
//
// # Logger
//
// The logger supports structured logging with fields:
//
//	logger, err := structured.New(config.LogConfig{Level: "info", Format: "json"})
//	logger.Info("Refresh completed", map[string]interface{}{
//	    "created": 12,
//	    "failed":  0,
//	})
package infrastructure
