// ABOUTME: Postgres-backed listing store using a pgx connection pool
// ABOUTME: Updates lock the row with SELECT ... FOR UPDATE so each record changes atomically

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"listings-aggregator-api/core/domain"
	coreerrors "listings-aggregator-api/core/errors"
	"listings-aggregator-api/infrastructure/store/sqlbuilder"
)

const uniqueViolation = "23505"

// Schema creates the listings table and indexes
const Schema = `
	CREATE TABLE IF NOT EXISTS listings (
		seq           BIGSERIAL PRIMARY KEY,
		id            TEXT NOT NULL UNIQUE,
		source        TEXT NOT NULL,
		external_id   TEXT NOT NULL,
		address       TEXT NOT NULL DEFAULT '',
		city          TEXT NOT NULL DEFAULT '',
		state         TEXT NOT NULL DEFAULT '',
		zip_code      TEXT NOT NULL DEFAULT '',
		price         DOUBLE PRECISION,
		bedrooms      INTEGER,
		bathrooms     DOUBLE PRECISION,
		square_feet   INTEGER,
		description   TEXT NOT NULL DEFAULT '',
		images        TEXT NOT NULL DEFAULT '[]',
		property_type TEXT NOT NULL DEFAULT '',
		year_built    INTEGER,
		lot_size      INTEGER,
		listing_date  TIMESTAMPTZ,
		raw_data      TEXT,
		active        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_listings_identity ON listings(source, external_id);
	CREATE INDEX IF NOT EXISTS idx_listings_active_created ON listings(active, created_at DESC);
`

// Store implements interfaces.ListingStore on Postgres
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn, limits the pool to maxConns and applies the schema
func NewStore(ctx context.Context, dsn string, maxConns int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres DSN: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 4
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
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
	query, params, err := sqlbuilder.NewQueryBuilder(sqlbuilder.Dollar).
		Insert(sqlbuilder.Table, sqlbuilder.Columns, values).
		Build()
	if err != nil {
		return nil, err
	}

	if _, err := s.pool.Exec(ctx, query, params...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, coreerrors.ErrDuplicate
		}
		return nil, fmt.Errorf("failed to insert listing: %w", err)
	}

	return record, nil
}

// Update applies update to the listing with the given ID
func (s *Store) Update(ctx context.Context, id string, update domain.ListingUpdate) (*domain.Listing, error) {
	var record *domain.Listing

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		query, params, err := sqlbuilder.NewQueryBuilder(sqlbuilder.Dollar).
			Select(sqlbuilder.Table, sqlbuilder.Columns...).
			Where("id", "=", id).
			Suffix("FOR UPDATE").
			Build()
		if err != nil {
			return err
		}

		record, err = scanOne(tx.QueryRow(ctx, query, params...), id)
		if err != nil {
			return err
		}
		update.Apply(record)

		values, err := sqlbuilder.MutableValues(record)
		if err != nil {
			return err
		}
		query, params, err = sqlbuilder.NewQueryBuilder(sqlbuilder.Dollar).
			Update(sqlbuilder.Table, sqlbuilder.MutableColumns, values).
			Where("id", "=", id).
			Build()
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, query, params...)
		return err
	})
	if err != nil {
		if coreerrors.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}
	return record, nil
}

// FindByID returns the listing with the given ID
func (s *Store) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	query, params, err := sqlbuilder.NewQueryBuilder(sqlbuilder.Dollar).
		Select(sqlbuilder.Table, sqlbuilder.Columns...).
		Where("id", "=", id).
		Build()
	if err != nil {
		return nil, err
	}
	return scanOne(s.pool.QueryRow(ctx, query, params...), id)
}

func scanOne(row pgx.Row, id string) (*domain.Listing, error) {
	l, err := sqlbuilder.ScanListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &coreerrors.NotFoundError{Resource: "listing", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

// FindBy returns listings matching filter, most recent first
func (s *Store) FindBy(ctx context.Context, filter domain.ListingFilter) ([]*domain.Listing, error) {
	query, params, err := sqlbuilder.FindQuery(sqlbuilder.Dollar, filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, params...)
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
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM listings").Scan(&n); err != nil {
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
	rows, err := s.pool.Query(ctx, "SELECT source, COUNT(*) FROM listings GROUP BY source")
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
	query, params, err := sqlbuilder.NewQueryBuilder(sqlbuilder.Dollar).
		Delete(sqlbuilder.Table).
		Where("source", "=", source).
		Build()
	if err != nil {
		return 0, err
	}

	tag, err := s.pool.Exec(ctx, query, params...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete listings: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
