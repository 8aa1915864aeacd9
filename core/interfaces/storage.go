// ABOUTME: Storage interface for the canonical listing store
// ABOUTME: The core depends only on this contract so memory and durable stores are interchangeable

package interfaces

import (
	"context"

	"listings-aggregator-api/core/domain"
)

// ListingStore is the repository the core reads from and writes to.
// Every method must be safe for concurrent use, and Update must be atomic
// per record so readers never observe a partially-updated listing.
type ListingStore interface {
	// Create inserts a new listing, assigning ID and timestamps when unset.
	// Returns errors.ErrDuplicate if (source, external_id) already exists.
	Create(ctx context.Context, listing *domain.Listing) (*domain.Listing, error)

	// Update applies the mutable fields to the listing with the given ID.
	// Returns a NotFoundError if the ID is unknown.
	Update(ctx context.Context, id string, update domain.ListingUpdate) (*domain.Listing, error)

	// FindByID returns the listing with the given ID or a NotFoundError
	FindByID(ctx context.Context, id string) (*domain.Listing, error)

	// FindBy returns every listing matching the filter, most recent first
	FindBy(ctx context.Context, filter domain.ListingFilter) ([]*domain.Listing, error)

	// Count returns the number of stored listings, active or not
	Count(ctx context.Context) (int, error)

	// ListActive returns every active listing, most recent first
	ListActive(ctx context.Context) ([]*domain.Listing, error)

	// CountBySource returns the number of stored listings per source
	CountBySource(ctx context.Context) (map[string]int, error)

	// DeleteBySource physically removes every listing of a source
	DeleteBySource(ctx context.Context, source string) (int, error)
}

// StorageReporter is implemented by stores that can describe their backend,
// e.g. the database file and its size
type StorageReporter interface {
	Stats(ctx context.Context) (map[string]interface{}, error)
}
