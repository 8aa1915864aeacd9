// ABOUTME: SQLite-based cache implementation for persistent caching
// ABOUTME: Keeps refresh markers and health snapshots across restarts of a single node

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"listings-aggregator-api/core/interfaces"
	"listings-aggregator-api/infrastructure/store/sqlbuilder"
)

const (
	table  = "cache"
	schema = `
		CREATE TABLE IF NOT EXISTS cache (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expiry INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_expiry ON cache(expiry);
	`
	maxKeyLength = 255
)

// Client implements the Cache interface using SQLite. An expiry of zero never expires.
type Client struct {
	db   *sql.DB
	stop chan struct{}
	once sync.Once
}

// NewSQLiteCache opens the cache database and starts the expiry sweeper
func NewSQLiteCache(filePath string, cleanupInterval time.Duration) (*Client, error) {
	if filePath == "" {
		filePath = "cache.db"
	}

	db, err := sql.Open("sqlite3", filePath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	client := &Client{
		db:   db,
		stop: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go client.cleanupRoutine(cleanupInterval)
	}
	return client, nil
}

func validateKey(key string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("key exceeds %d bytes", maxKeyLength)
	}
	return nil
}

// Get retrieves a value from the cache
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	query, args, err := sqlbuilder.NewQueryBuilder(sqlbuilder.Question).
		Select(table, "value", "expiry").
		Where("key", "=", key).
		Build()
	if err != nil {
		return nil, err
	}

	var value []byte
	var expiry int64
	err = c.db.QueryRowContext(ctx, query, args...).Scan(&value, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get value: %w", err)
	}

	if expiry != 0 && expiry <= time.Now().UnixNano() {
		return nil, interfaces.ErrCacheMiss
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

// Set stores a value in the cache; a ttl of zero or less never expires
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}

	var expiry int64
	if ttl > 0 {
		expiry = time.Now().Add(ttl).UnixNano()
	}

	query, args, err := sqlbuilder.NewQueryBuilder(sqlbuilder.Question).
		Insert(table, []string{"key", "value", "expiry"}, []interface{}{key, value, expiry}).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, expiry = excluded.expiry").
		Build()
	if err != nil {
		return err
	}

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to set value: %w", err)
	}
	return nil
}

// Delete removes a value from the cache
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	query, args, err := sqlbuilder.NewQueryBuilder(sqlbuilder.Question).
		Delete(table).
		Where("key", "=", key).
		Build()
	if err != nil {
		return err
	}

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete value: %w", err)
	}
	return nil
}

func (c *Client) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.cleanup(context.Background())
		case <-c.stop:
			return
		}
	}
}

// cleanup removes expired entries
func (c *Client) cleanup(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM cache WHERE expiry != 0 AND expiry <= ?", time.Now().UnixNano())
	return err
}

// Close stops the sweeper and closes the database connection
func (c *Client) Close() error {
	c.once.Do(func() { close(c.stop) })
	return c.db.Close()
}
