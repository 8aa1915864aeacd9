package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"listings-aggregator-api/core/interfaces"
	"listings-aggregator-api/pkg/config"
)

// Set REDIS_TEST_ADDRESS to run these integration tests against a disposable Redis
func newTestCache(t *testing.T) *RedisCache {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDRESS")
	if addr == "" {
		t.Skip("Skipping Redis integration tests - set REDIS_TEST_ADDRESS to run")
	}

	cache, err := NewRedisCache(config.RedisConfig{Address: addr, DB: 15})
	if err != nil {
		t.Fatalf("NewRedisCache returned error: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestNewRedisCache_InvalidAddress(t *testing.T) {
	cache, err := NewRedisCache(config.RedisConfig{})

	if err == nil {
		t.Error("NewRedisCache should return error for empty address")
	}
	if cache != nil {
		t.Error("NewRedisCache should return nil cache on error")
	}
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	_, err := NewRedisCache(config.RedisConfig{Address: "127.0.0.1:1"})
	if err == nil {
		t.Error("NewRedisCache should fail when Redis is unreachable")
	}
}

func TestRedisCache_RoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	key := "test:health:" + t.Name()

	if err := cache.Set(ctx, key, []byte("healthy"), time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	got, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(got) != "healthy" {
		t.Errorf("Get returned %s", got)
	}

	if err := cache.Delete(ctx, key); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := cache.Get(ctx, key); !errors.Is(err, interfaces.ErrCacheMiss) {
		t.Errorf("Get after delete error = %v, want ErrCacheMiss", err)
	}
}

func TestRedisCache_Set_AppliesTTL(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	key := "test:ttl:" + t.Name()

	if err := cache.Set(ctx, key, []byte("x"), 100*time.Millisecond); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	time.Sleep(250 * time.Millisecond)

	if _, err := cache.Get(ctx, key); !errors.Is(err, interfaces.ErrCacheMiss) {
		t.Errorf("expired key error = %v, want ErrCacheMiss", err)
	}
}

func TestRedisCache_Delete_NonExistentKey(t *testing.T) {
	cache := newTestCache(t)

	if err := cache.Delete(context.Background(), "test:never-set"); err != nil {
		t.Errorf("Delete of missing key returned error: %v", err)
	}
}
