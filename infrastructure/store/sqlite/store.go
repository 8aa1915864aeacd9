// ABOUTME: SQLite-backed listing store for durable single-node deployments
// ABOUTME: A unique index on (source, external_id) enforces one record per external identity

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"listings-aggregator-api/core/domain"
	coreerrors "listings-aggregator-api/core/errors"
	"listings-aggregator-api/infrastructure/store/sqlbuilder"
)

const schema = `
	CREATE TABLE IF NOT EXISTS listings (
		seq           INTEGER PRIMARY KEY AUTOINCREMENT,
		id            TEXT NOT NULL UNIQUE,
		source        TEXT NOT NULL,
		external_id   TEXT NOT NULL,
		address       TEXT NOT NULL DEFAULT '',
		city          TEXT NOT NULL DEFAULT '',
		state         TEXT NOT NULL DEFAULT '',
		zip_code      TEXT NOT NULL DEFAULT '',
		price         REAL,
		bedrooms      INTEGER,
		bathrooms     REAL,
		square_feet   INTEGER,
		description   TEXT NOT NULL DEFAULT '',
		images        TEXT NOT NULL DEFAULT '[]',
		property_type TEXT NOT NULL DEFAULT '',
		year_built    INTEGER,
		lot_size      INTEGER,
		listing_date  DATETIME,
		raw_data      TEXT,
		active        BOOLEAN NOT NULL DEFAULT 1,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_listings_identity ON listings(source, external_id);
	CREATE INDEX IF NOT EXISTS idx_listings_active_created ON listings(active, created_at);
`

// driverName is go-sqlite3 with the Unicode case folding function the
// query builder emits for case-insensitive filters
const driverName = "sqlite3_listings"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(sqlbuilder.FoldFunction, strings.ToLower, true)
		},
	})
}

// Store implements interfaces.ListingStore on SQLite
type Store struct {
	db       *sql.DB
	filePath string
}

// NewStore opens (or creates) the database at filePath and applies the schema
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		filePath = "listings.db"
	}

	db, err := sql.Open(driverName, filePath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// One writer at a time keeps read-modify-write updates atomic
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, filePath: filePath}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new listing
func (s *Store) Create(ctx context.Context, listing *domain.Listing) (*domain.Listing, error) {
	if listing == nil {
		return nil, &coreerrors.ValidationError{Field: "listing", Message: "is required"}
	}

	record := listing.Clone()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}
	if record.Images == nil {
		record.Images = []string{}
	}

	values, err := sqlbuilder.Values(record)
	if err != nil {
		return nil, err
	}
	query, params, err := sqlbuilder.NewQueryBuilder(sqlbuilder.Question).
		Insert(sqlbuilder.Table, sqlbuilder.Columns, values).
		Build()
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, query, params...); err != nil {
		if isUniqueViolation(err) {
			return nil, coreerrors.ErrDuplicate
		}
		return nil, fmt.Errorf("failed to insert listing: %w", err)
	}

	return record, nil
}

// Update applies update to the listing with the given ID inside a transaction
func (s *Store) Update(ctx context.Context, id string, update domain.ListingUpdate) (*domain.Listing, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	record, err := s.findByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	update.Apply(record)

	values, err := sqlbuilder.MutableValues(record)
	if err != nil {
		return nil, err
	}
	query, params, err := sqlbuilder.NewQueryBuilder(sqlbuilder.Question).
		Update(sqlbuilder.Table, sqlbuilder.MutableColumns, values).
		Where("id", "=", id).
		Build()
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, query, params...); err != nil {
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}
	return record, nil
}

// FindByID returns the listing with the given ID
func (s *Store) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	return s.findByID(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *Store) findByID(ctx context.Context, q queryer, id string) (*domain.Listing, error) {
	query, params, err := sqlbuilder.NewQueryBuilder(sqlbuilder.Question).
		Select(sqlbuilder.Table, sqlbuilder.Columns...).
		Where("id", "=", id).
		Build()
	if err != nil {
		return nil, err
	}

	l, err := sqlbuilder.ScanListing(q.QueryRowContext(ctx, query, params...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &coreerrors.NotFoundError{Resource: "listing", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

// FindBy returns listings matching filter, most recent first
func (s *Store) FindBy(ctx context.Context, filter domain.ListingFilter) ([]*domain.Listing, error) {
	query, params, err := sqlbuilder.FindQuery(sqlbuilder.Question, filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	listings := make([]*domain.Listing, 0)
	for rows.Next() {
		l, err := sqlbuilder.ScanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// Count returns the number of stored listings
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM listings").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return n, nil
}

// ListActive returns every active listing, most recent first
func (s *Store) ListActive(ctx context.Context) ([]*domain.Listing, error) {
	return s.FindBy(ctx, domain.ListingFilter{})
}

// CountBySource returns the number of listings per source
func (s *Store) CountBySource(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT source, COUNT(*) FROM listings GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, err
		}
		counts[source] = n
	}
	return counts, rows.Err()
}

// DeleteBySource removes every listing of source
func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	query, params, err := sqlbuilder.NewQueryBuilder(sqlbuilder.Question).
		Delete(sqlbuilder.Table).
		Where("source", "=", source).
		Build()
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete listings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Stats reports the database file and its size
func (s *Store) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{
		"backend":   "sqlite",
		"file_path": s.filePath,
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("read page count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("read page size: %w", err)
	}
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
