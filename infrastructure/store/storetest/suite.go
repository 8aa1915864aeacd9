// ABOUTME: Shared behaviour tests every ListingStore implementation must pass
// ABOUTME: Store packages call Run from their own tests with a constructor for a fresh store

package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listings-aggregator-api/core/domain"
	coreerrors "listings-aggregator-api/core/errors"
	"listings-aggregator-api/core/interfaces"
)

// Factory returns an empty store for one subtest
type Factory func(t *testing.T) interfaces.ListingStore

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Listing builds a fixture with the given identity and created_at offset in minutes
func Listing(source, externalID string, minutes int) *domain.Listing {
	created := base.Add(time.Duration(minutes) * time.Minute)
	return &domain.Listing{
		Source:     source,
		ExternalID: externalID,
		Address:    externalID + " Main St",
		Images:     []string{},
		RawData:    json.RawMessage(fmt.Sprintf(`{"id":%q}`, externalID)),
		Active:     true,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

// Run exercises the full ListingStore contract
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAssignsIDAndRoundTrips", func(t *testing.T) { testCreate(t, newStore(t)) })
	t.Run("CreateRejectsDuplicateKey", func(t *testing.T) { testDuplicate(t, newStore(t)) })
	t.Run("UpdateMutatesOnlySuppliedFields", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("UpdateUnknownIDIsNotFound", func(t *testing.T) { testUpdateNotFound(t, newStore(t)) })
	t.Run("FindByIDUnknownIsNotFound", func(t *testing.T) { testFindByIDNotFound(t, newStore(t)) })
	t.Run("FindByFilters", func(t *testing.T) { testFindBy(t, newStore(t)) })
	t.Run("FindByFoldsNonASCII", func(t *testing.T) { testFindByNonASCII(t, newStore(t)) })
	t.Run("ListActiveOrdersByRecency", func(t *testing.T) { testListActive(t, newStore(t)) })
	t.Run("CountsAndPurge", func(t *testing.T) { testCountsAndPurge(t, newStore(t)) })
	t.Run("ConcurrentUpdatesAreAtomic", func(t *testing.T) { testConcurrentUpdates(t, newStore(t)) })
}

func testCreate(t *testing.T, s interfaces.ListingStore) {
	ctx := context.Background()
	in := Listing("a", "1", 0)
	in.Price = domain.Float(500000)
	in.Bedrooms = domain.Int(3)
	in.Bathrooms = domain.Float(2.5)
	in.Images = []string{"https://img/1.jpg"}
	listed := base.Add(-24 * time.Hour)
	in.ListingDate = &listed

	created, err := s.Create(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Source)
	assert.Equal(t, "1", got.ExternalID)
	assert.Equal(t, 500000.0, *got.Price)
	assert.Equal(t, 3, *got.Bedrooms)
	assert.Equal(t, 2.5, *got.Bathrooms)
	assert.Nil(t, got.SquareFeet)
	assert.Equal(t, []string{"https://img/1.jpg"}, got.Images)
	assert.True(t, got.ListingDate.Equal(listed))
	assert.JSONEq(t, `{"id":"1"}`, string(got.RawData))
	assert.True(t, got.Active)
	assert.True(t, got.CreatedAt.Equal(in.CreatedAt))

	got.Images[0] = "mutated"
	again, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://img/1.jpg", again.Images[0], "callers must not share store state")
}

func testDuplicate(t *testing.T, s interfaces.ListingStore) {
	ctx := context.Background()
	_, err := s.Create(ctx, Listing("a", "1", 0))
	require.NoError(t, err)

	_, err = s.Create(ctx, Listing("a", "1", 1))
	assert.True(t, errors.Is(err, coreerrors.ErrDuplicate), "got %v", err)

	_, err = s.Create(ctx, Listing("b", "1", 1))
	assert.NoError(t, err, "the same external id under another source is distinct")

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testUpdate(t *testing.T, s interfaces.ListingStore) {
	ctx := context.Background()
	in := Listing("a", "1", 0)
	in.Price = domain.Float(100)
	in.Description = "old"
	created, err := s.Create(ctx, in)
	require.NoError(t, err)

	later := base.Add(time.Hour)
	updated, err := s.Update(ctx, created.ID, domain.ListingUpdate{
		Price:     domain.Float(200),
		Images:    &[]string{"x.jpg", "y.jpg"},
		UpdatedAt: later,
	})
	require.NoError(t, err)
	assert.Equal(t, 200.0, *updated.Price)

	got, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 200.0, *got.Price)
	assert.Equal(t, "old", got.Description)
	assert.Equal(t, []string{"x.jpg", "y.jpg"}, got.Images)
	assert.JSONEq(t, `{"id":"1"}`, string(got.RawData))
	assert.True(t, got.CreatedAt.Equal(in.CreatedAt))
	assert.True(t, got.UpdatedAt.Equal(later))

	_, err = s.Update(ctx, created.ID, domain.ListingUpdate{ClearAbsent: true, UpdatedAt: later})
	require.NoError(t, err)
	got, err = s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Price)
	assert.Empty(t, got.Description)
	assert.Empty(t, got.Images)
}

func testUpdateNotFound(t *testing.T, s interfaces.ListingStore) {
	_, err := s.Update(context.Background(), "missing", domain.ListingUpdate{UpdatedAt: base})
	assert.True(t, coreerrors.IsNotFound(err), "got %v", err)
}

func testFindByIDNotFound(t *testing.T, s interfaces.ListingStore) {
	_, err := s.FindByID(context.Background(), "missing")
	assert.True(t, coreerrors.IsNotFound(err), "got %v", err)
}

func testFindBy(t *testing.T, s interfaces.ListingStore) {
	ctx := context.Background()

	a := Listing("a", "1", 0)
	a.City, a.State, a.PropertyType = "Los Angeles", "CA", "Condo"
	a.Price, a.Bedrooms, a.Bathrooms = domain.Float(450000), domain.Int(2), domain.Float(1.5)

	b := Listing("a", "2", 1)
	b.City, b.State, b.PropertyType = "San Francisco", "ca", "single_family"
	b.Price, b.Bedrooms, b.Bathrooms = domain.Float(1200000), domain.Int(4), domain.Float(3)

	c := Listing("b", "3", 2)
	c.City, c.State = "Angelsville", "NV"

	d := Listing("b", "4", 3)
	d.City, d.State = "Los Angeles", "CA"
	d.Price = domain.Float(300000)
	d.Active = false

	for _, l := range []*domain.Listing{a, b, c, d} {
		_, err := s.Create(ctx, l)
		require.NoError(t, err)
	}

	i64 := func(v int64) *int64 { return &v }
	ids := func(f domain.ListingFilter) []string {
		got, err := s.FindBy(ctx, f)
		require.NoError(t, err)
		out := make([]string, 0, len(got))
		for _, l := range got {
			out = append(out, l.ExternalID)
		}
		return out
	}
	crit := func(c domain.SearchCriteria) domain.ListingFilter { return domain.ListingFilter{SearchCriteria: c} }

	assert.Equal(t, []string{"3", "2", "1"}, ids(domain.ListingFilter{}))
	assert.Equal(t, []string{"4", "3", "2", "1"}, ids(crit(domain.SearchCriteria{IncludeInactive: true})))
	assert.Equal(t, []string{"1"}, ids(crit(domain.SearchCriteria{City: "angeles"})))
	assert.Equal(t, []string{"2", "1"}, ids(crit(domain.SearchCriteria{State: "CA"})))
	assert.Equal(t, []string{"2"}, ids(crit(domain.SearchCriteria{PropertyType: "SINGLE_FAMILY"})))
	assert.Equal(t, []string{}, ids(crit(domain.SearchCriteria{PropertyType: "single"})), "property type is exact")
	assert.Equal(t, []string{"1"}, ids(crit(domain.SearchCriteria{MaxPrice: i64(600000)})))
	assert.Equal(t, []string{"2"}, ids(crit(domain.SearchCriteria{MinPrice: i64(450001)})))
	assert.Equal(t, []string{"2", "1"}, ids(crit(domain.SearchCriteria{MinPrice: i64(450000), MaxPrice: i64(1200000)})))
	assert.Equal(t, []string{"2"}, ids(crit(domain.SearchCriteria{MinBedrooms: i64(3)})))
	assert.Equal(t, []string{"1"}, ids(crit(domain.SearchCriteria{MaxBedrooms: i64(2)})))
	assert.Equal(t, []string{"1"}, ids(crit(domain.SearchCriteria{MaxBathrooms: i64(2)})))
	assert.Equal(t, []string{"2"}, ids(crit(domain.SearchCriteria{MinBathrooms: i64(2)})))
	assert.Equal(t, []string{"1"}, ids(crit(domain.SearchCriteria{State: "ca", MaxBedrooms: i64(3)})))
	assert.Equal(t, []string{"4"}, ids(domain.ListingFilter{
		SearchCriteria: domain.SearchCriteria{IncludeInactive: true, MaxPrice: i64(400000)},
	}))
	assert.Equal(t, []string{"3"}, ids(domain.ListingFilter{Source: "b"}))
	assert.Equal(t, []string{"2"}, ids(domain.ListingFilter{Source: "a", ExternalID: "2"}))
	assert.Equal(t, []string{}, ids(domain.ListingFilter{Source: "b", ExternalID: "4"}), "inactive is excluded by default")
	assert.Equal(t, []string{"4"}, ids(domain.ListingFilter{
		SearchCriteria: domain.SearchCriteria{IncludeInactive: true},
		Source:         "b",
		ExternalID:     "4",
	}))
}

func testFindByNonASCII(t *testing.T, s interfaces.ListingStore) {
	ctx := context.Background()

	l := Listing("eu", "m1", 0)
	l.City, l.State, l.PropertyType = "MÜNCHEN", "ÎLE", "WOHNUNG_ÄLT"
	_, err := s.Create(ctx, l)
	require.NoError(t, err)

	for _, c := range []domain.SearchCriteria{
		{City: "münchen"},
		{City: "ünch"},
		{State: "île"},
		{PropertyType: "wohnung_ält"},
	} {
		got, err := s.FindBy(ctx, domain.ListingFilter{SearchCriteria: c})
		require.NoError(t, err)
		require.Len(t, got, 1, "criteria %+v", c)
		assert.True(t, domain.ListingFilter{SearchCriteria: c}.Matches(l), "criteria %+v", c)
	}
}

func testListActive(t *testing.T, s interfaces.ListingStore) {
	ctx := context.Background()
	for i, id := range []string{"old", "new", "mid"} {
		offset := []int{0, 10, 5}[i]
		_, err := s.Create(ctx, Listing("a", id, offset))
		require.NoError(t, err)
	}
	inactive := Listing("a", "gone", 20)
	inactive.Active = false
	_, err := s.Create(ctx, inactive)
	require.NoError(t, err)

	got, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "new", got[0].ExternalID)
	assert.Equal(t, "mid", got[1].ExternalID)
	assert.Equal(t, "old", got[2].ExternalID)
}

func testCountsAndPurge(t *testing.T, s interfaces.ListingStore) {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, Listing("a", fmt.Sprint(i), i))
		require.NoError(t, err)
	}
	kept, err := s.Create(ctx, Listing("b", "x", 10))
	require.NoError(t, err)

	counts, err := s.CountBySource(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 3, "b": 1}, counts)

	deleted, err := s.DeleteBySource(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.FindByID(ctx, kept.ID)
	require.NoError(t, err, "surviving records stay addressable after a purge")
	assert.Equal(t, "x", got.ExternalID)

	_, err = s.Create(ctx, Listing("a", "0", 0))
	assert.NoError(t, err, "a purged key can be created again")

	deleted, err = s.DeleteBySource(ctx, "unknown")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func testConcurrentUpdates(t *testing.T, s interfaces.ListingStore) {
	ctx := context.Background()
	created, err := s.Create(ctx, Listing("a", "1", 0))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(2)
		go func(v int) {
			defer wg.Done()
			desc := fmt.Sprintf("d%d", v)
			_, err := s.Update(ctx, created.ID, domain.ListingUpdate{
				Price:       domain.Float(float64(v)),
				Description: &desc,
				UpdatedAt:   base.Add(time.Duration(v) * time.Second),
			})
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			got, err := s.FindByID(ctx, created.ID)
			if assert.NoError(t, err) && got.Price != nil {
				assert.Equal(t, fmt.Sprintf("d%d", int(*got.Price)), got.Description, "price and description must change together")
			}
		}()
	}
	wg.Wait()
}
