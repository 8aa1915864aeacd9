package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listings-aggregator-api/core/normalize"
	"listings-aggregator-api/core/reconcile"
	memcache "listings-aggregator-api/infrastructure/cache/memory"
	sqlitecache "listings-aggregator-api/infrastructure/cache/sqlite"
	"listings-aggregator-api/infrastructure/store/memory"
	"listings-aggregator-api/infrastructure/store/sqlite"
	"listings-aggregator-api/pkg/config"
)

type nopLogger struct{}

func (nopLogger) Debug(string, map[string]interface{}) {}
func (nopLogger) Info(string, map[string]interface{})  {}
func (nopLogger) Warn(string, map[string]interface{})  {}
func (nopLogger) Error(string, map[string]interface{}) {}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{Type: "memory"},
		Cache: config.CacheConfig{Type: "memory", Memory: config.MemoryConfig{CleanupInterval: time.Minute}},
		Fetch: config.FetchConfig{Timeout: time.Second, Attempts: 2, Backoff: time.Millisecond, HealthTimeout: time.Second},
		Aggregation: config.AggregationConfig{
			CacheDuration:   time.Minute,
			RefreshDeadline: 5 * time.Second,
			MergePolicy:     "preserve_nonempty",
			SyntheticIDMode: "content",
		},
		Sources: []config.SourceSpec{{Name: "local", URL: "https://local.example.com/list"}},
	}
}

func TestServiceConfig(t *testing.T) {
	cfg := testConfig(t)
	got := ServiceConfig(cfg)

	assert.Equal(t, 2, got.Fetch.Attempts)
	assert.Equal(t, time.Millisecond, got.Fetch.Backoff)
	assert.Equal(t, reconcile.PolicyPreserveNonEmpty, got.MergePolicy)
	assert.Equal(t, normalize.IDContent, got.IDMode)
	assert.Equal(t, time.Minute, got.CacheDuration)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	store, err := OpenStore(ctx, config.StoreConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)

	store, err = OpenStore(ctx, config.StoreConfig{Type: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "l.db")})
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, store)
	require.NoError(t, store.(*sqlite.Store).Close())

	_, err = OpenStore(ctx, config.StoreConfig{Type: "mongo"})
	assert.Error(t, err)
}

func TestOpenCache(t *testing.T) {
	cache := OpenCache(config.CacheConfig{Type: "memory"}, nopLogger{})
	assert.IsType(t, &memcache.MemoryCache{}, cache)

	cache = OpenCache(config.CacheConfig{Type: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "c.db")}, nopLogger{})
	require.IsType(t, &sqlitecache.Client{}, cache)
	require.NoError(t, cache.(*sqlitecache.Client).Close())

	// An unreachable Redis falls back to memory
	cache = OpenCache(config.CacheConfig{Type: "redis", Redis: config.RedisConfig{Address: "127.0.0.1:1"}}, nopLogger{})
	assert.IsType(t, &memcache.MemoryCache{}, cache)
}

func TestBuild(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = config.StoreConfig{Type: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "l.db")}

	app, err := Build(context.Background(), cfg, nopLogger{}, nil)
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.Service)
	assert.Equal(t, []string{"local"}, app.Registry.Names())

	stats, err := app.Service.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}
