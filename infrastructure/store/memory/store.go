// ABOUTME: In-memory listing store backed by an arena of records and hash indexes
// ABOUTME: A single RWMutex makes every update atomic per record for concurrent readers

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"listings-aggregator-api/core/domain"
	coreerrors "listings-aggregator-api/core/errors"
)

type entry struct {
	listing *domain.Listing
	seq     uint64
}

// Store implements interfaces.ListingStore in process memory
type Store struct {
	mu      sync.RWMutex
	arena   []entry
	byID    map[string]int
	byKey   map[domain.ExternalKey]int
	nextSeq uint64
	newID   func() string
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		byID:  make(map[string]int),
		byKey: make(map[domain.ExternalKey]int),
		newID: func() string { return uuid.NewString() },
	}
}

// Create inserts a new listing
func (s *Store) Create(ctx context.Context, listing *domain.Listing) (*domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, &coreerrors.ValidationError{Field: "listing", Message: "is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := listing.Key()
	if _, exists := s.byKey[key]; exists {
		return nil, coreerrors.ErrDuplicate
	}

	record := listing.Clone()
	if record.ID == "" {
		record.ID = s.newID()
	}
	if _, exists := s.byID[record.ID]; exists {
		return nil, coreerrors.ErrDuplicate
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}
	if record.Images == nil {
		record.Images = []string{}
	}

	s.nextSeq++
	s.arena = append(s.arena, entry{listing: record, seq: s.nextSeq})
	idx := len(s.arena) - 1
	s.byID[record.ID] = idx
	s.byKey[key] = idx

	return record.Clone(), nil
}

// Update applies update to the listing with the given ID
func (s *Store) Update(ctx context.Context, id string, update domain.ListingUpdate) (*domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, &coreerrors.NotFoundError{Resource: "listing", ID: id}
	}

	// Readers hold clones, so mutating a fresh copy and swapping it in keeps updates atomic
	record := s.arena[idx].listing.Clone()
	update.Apply(record)
	s.arena[idx].listing = record

	return record.Clone(), nil
}

// FindByID returns the listing with the given ID
func (s *Store) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, &coreerrors.NotFoundError{Resource: "listing", ID: id}
	}
	return s.arena[idx].listing.Clone(), nil
}

// FindBy returns listings matching filter, most recent first
func (s *Store) FindBy(ctx context.Context, filter domain.ListingFilter) ([]*domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter.Source != "" && filter.ExternalID != "" {
		idx, ok := s.byKey[domain.ExternalKey{Source: filter.Source, ExternalID: filter.ExternalID}]
		if !ok || !filter.Matches(s.arena[idx].listing) {
			return []*domain.Listing{}, nil
		}
		return []*domain.Listing{s.arena[idx].listing.Clone()}, nil
	}

	matched := make([]entry, 0)
	for _, e := range s.arena {
		if filter.Matches(e.listing) {
			matched = append(matched, e)
		}
	}
	return recentFirst(matched), nil
}

// Count returns the number of stored listings
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.arena), nil
}

// ListActive returns every active listing, most recent first
func (s *Store) ListActive(ctx context.Context) ([]*domain.Listing, error) {
	return s.FindBy(ctx, domain.ListingFilter{})
}

// CountBySource returns the number of listings per source
func (s *Store) CountBySource(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range s.arena {
		counts[e.listing.Source]++
	}
	return counts, nil
}

// DeleteBySource removes every listing of source and compacts the arena
func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.arena[:0]
	deleted := 0
	for _, e := range s.arena {
		if e.listing.Source == source {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(s.arena); i++ {
		s.arena[i] = entry{}
	}
	s.arena = kept

	if deleted > 0 {
		s.reindex()
	}
	return deleted, nil
}

func (s *Store) reindex() {
	s.byID = make(map[string]int, len(s.arena))
	s.byKey = make(map[domain.ExternalKey]int, len(s.arena))
	for i, e := range s.arena {
		s.byID[e.listing.ID] = i
		s.byKey[e.listing.Key()] = i
	}
}

// recentFirst orders by created_at descending, newest insertion first on ties
func recentFirst(entries []entry) []*domain.Listing {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.listing.CreatedAt.Equal(b.listing.CreatedAt) {
			return a.listing.CreatedAt.After(b.listing.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]*domain.Listing, len(entries))
	for i, e := range entries {
		out[i] = e.listing.Clone()
	}
	return out
}
