package reconcile

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
	"listings-aggregator-api/infrastructure/store/memory"
)

// steppingClock advances one minute on every call
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newSteppingClock() *steppingClock {
	return &steppingClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

func candidate(source, id string, price float64) *domain.Listing {
	return &domain.Listing{
		Address:     "1 Elm",
		City:        "Springfield",
		Price:       domain.Float(price),
		Description: "Sunny",
		Images:      []string{"a.jpg"},
		Source:      source,
		ExternalID:  id,
		RawData:     json.RawMessage(fmt.Sprintf(`{"id":%q,"price":%v}`, id, price)),
	}
}

func newEngine(store interfaces.ListingStore, logger interfaces.Logger, policy MergePolicy) *Engine {
	return NewEngine(interfaces.Dependencies{Store: store, Logger: logger}, policy)
}

func TestReconcile_CreatesThenUpdates(t *testing.T) {
	store := memory.NewStore()
	clock := newSteppingClock()
	engine := newEngine(store, &mockLogger{}, PolicyOverwrite).WithClock(clock.Now)
	ctx := context.Background()

	first := engine.Reconcile(ctx, []*domain.Listing{candidate("a", "1", 500000)})
	assert.Equal(t, domain.ReconcileResult{Created: 1}, first)

	stored, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	created := stored[0]

	second := engine.Reconcile(ctx, []*domain.Listing{candidate("a", "1", 500000)})
	assert.Equal(t, domain.ReconcileResult{Updated: 1}, second)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "re-sighting must not duplicate")

	again, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, again.CreatedAt.Equal(created.CreatedAt), "created_at must be stable")
	assert.True(t, again.UpdatedAt.After(created.UpdatedAt), "updated_at must advance")
	assert.Equal(t, created.Address, again.Address)
	assert.Equal(t, *created.Price, *again.Price)
	assert.JSONEq(t, string(created.RawData), string(again.RawData))
}

func TestReconcile_UpdateRefreshesMutableFieldsOnly(t *testing.T) {
	store := memory.NewStore()
	engine := newEngine(store, nil, PolicyOverwrite)
	ctx := context.Background()

	engine.Reconcile(ctx, []*domain.Listing{candidate("a", "1", 500000)})

	changed := candidate("a", "1", 450000)
	changed.Address = "2 Oak"
	changed.City = "Shelbyville"
	changed.Description = "Price drop"
	changed.Images = []string{"b.jpg", "c.jpg"}
	result := engine.Reconcile(ctx, []*domain.Listing{changed})
	assert.Equal(t, 1, result.Updated)

	got, err := store.FindBy(ctx, domain.ListingFilter{Source: "a", ExternalID: "1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	l := got[0]
	assert.Equal(t, 450000.0, *l.Price)
	assert.Equal(t, "Price drop", l.Description)
	assert.Equal(t, []string{"b.jpg", "c.jpg"}, l.Images)
	assert.JSONEq(t, `{"id":"1","price":450000}`, string(l.RawData))
	assert.Equal(t, "1 Elm", l.Address, "identity fields are untouched")
	assert.Equal(t, "Springfield", l.City)
}

func TestReconcile_MergePolicies(t *testing.T) {
	ctx := context.Background()
	sparse := &domain.Listing{Source: "a", ExternalID: "1"}

	t.Run("overwrite clears absent fields", func(t *testing.T) {
		store := memory.NewStore()
		engine := newEngine(store, nil, PolicyOverwrite)
		engine.Reconcile(ctx, []*domain.Listing{candidate("a", "1", 500000)})
		engine.Reconcile(ctx, []*domain.Listing{sparse})

		got, err := store.FindBy(ctx, domain.ListingFilter{Source: "a", ExternalID: "1"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Nil(t, got[0].Price)
		assert.Empty(t, got[0].Description)
		assert.Empty(t, got[0].Images)
		assert.NotEmpty(t, got[0].RawData, "raw data is only replaced when supplied")
	})

	t.Run("preserve_nonempty keeps stored values", func(t *testing.T) {
		store := memory.NewStore()
		engine := newEngine(store, nil, PolicyPreserveNonEmpty)
		engine.Reconcile(ctx, []*domain.Listing{candidate("a", "1", 500000)})
		engine.Reconcile(ctx, []*domain.Listing{sparse})

		got, err := store.FindBy(ctx, domain.ListingFilter{Source: "a", ExternalID: "1"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.NotNil(t, got[0].Price)
		assert.Equal(t, 500000.0, *got[0].Price)
		assert.Equal(t, "Sunny", got[0].Description)
		assert.Equal(t, []string{"a.jpg"}, got[0].Images)
	})

	t.Run("unknown policy falls back to overwrite", func(t *testing.T) {
		engine := newEngine(memory.NewStore(), nil, MergePolicy("bogus"))
		assert.Equal(t, PolicyOverwrite, engine.Policy())
	})
}

func TestReconcile_CountsAndLogsFailures(t *testing.T) {
	logger := &mockLogger{}
	store := &mockStore{
		ListingStore: memory.NewStore(),
		createFunc: func(ctx context.Context, l *domain.Listing) (*domain.Listing, error) {
			if l.ExternalID == "bad" {
				return nil, errors.New("constraint violation")
			}
			return nil, nil
		},
	}
	engine := newEngine(store, logger, PolicyOverwrite)

	result := engine.Reconcile(context.Background(), []*domain.Listing{
		candidate("a", "1", 1),
		candidate("a", "bad", 2),
		candidate("a", "3", 3),
	})

	assert.Equal(t, domain.ReconcileResult{Created: 2, Failed: 1}, result)
	assert.Equal(t, 1, logger.errorCount())
}

func TestReconcile_InvalidCandidatesFail(t *testing.T) {
	logger := &mockLogger{}
	engine := newEngine(memory.NewStore(), logger, PolicyOverwrite)

	result := engine.Reconcile(context.Background(), []*domain.Listing{
		nil,
		{Source: "a"},
		{ExternalID: "1"},
		candidate("a", "ok", 1),
	})

	assert.Equal(t, domain.ReconcileResult{Created: 1, Failed: 3}, result)
	assert.Equal(t, 3, logger.errorCount())
}

func TestReconcile_NoStore(t *testing.T) {
	engine := newEngine(nil, nil, PolicyOverwrite)
	result := engine.Reconcile(context.Background(), []*domain.Listing{candidate("a", "1", 1)})
	assert.Equal(t, 1, result.Failed)
}

func TestReconcile_LookupErrorIsPerRecord(t *testing.T) {
	store := &mockStore{
		ListingStore: memory.NewStore(),
		findByFunc: func(ctx context.Context, f domain.ListingFilter) ([]*domain.Listing, error) {
			return nil, errors.New("connection reset")
		},
	}
	engine := newEngine(store, nil, PolicyOverwrite)

	result := engine.Reconcile(context.Background(), []*domain.Listing{
		candidate("a", "1", 1),
		candidate("a", "2", 2),
	})
	assert.Equal(t, domain.ReconcileResult{Failed: 2}, result)
}

func TestReconcile_DuplicateRaceFallsBackToUpdate(t *testing.T) {
	inner := memory.NewStore()
	ctx := context.Background()

	// Another writer inserts the record between our lookup and our insert
	store := &mockStore{ListingStore: inner}
	store.createFunc = func(ctx context.Context, l *domain.Listing) (*domain.Listing, error) {
		rival := l.Clone()
		rival.Description = "from rival"
		if _, err := inner.Create(ctx, rival); err != nil {
			return nil, err
		}
		return nil, coreerrors.ErrDuplicate
	}
	engine := newEngine(store, nil, PolicyOverwrite)

	result := engine.Reconcile(ctx, []*domain.Listing{candidate("a", "1", 100)})
	assert.Equal(t, domain.ReconcileResult{Updated: 1}, result)

	got, err := inner.FindBy(ctx, domain.ListingFilter{Source: "a", ExternalID: "1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Sunny", got[0].Description)
}

func TestReconcile_CanceledContextCountsRemaining(t *testing.T) {
	logger := &mockLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	store := &mockStore{
		ListingStore: memory.NewStore(),
		createFunc: func(c context.Context, l *domain.Listing) (*domain.Listing, error) {
			calls++
			cancel()
			return l, nil
		},
	}
	engine := newEngine(store, logger, PolicyOverwrite)

	result := engine.Reconcile(ctx, []*domain.Listing{
		candidate("a", "1", 1),
		candidate("a", "2", 2),
		candidate("a", "3", 3),
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, domain.ReconcileResult{Created: 1, Failed: 2}, result)
	assert.Equal(t, 1, logger.errorCount())
}

func TestReconcile_SoftDeletedIsNotReactivated(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	engine := newEngine(store, nil, PolicyOverwrite)

	engine.Reconcile(ctx, []*domain.Listing{candidate("a", "1", 1)})
	all, err := store.FindBy(ctx, domain.ListingFilter{Source: "a", ExternalID: "1"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	_, err = store.Update(ctx, all[0].ID, domain.ListingUpdate{Active: new(bool), UpdatedAt: time.Now()})
	require.NoError(t, err)

	result := engine.Reconcile(ctx, []*domain.Listing{candidate("a", "1", 2)})
	assert.Equal(t, domain.ReconcileResult{Updated: 1}, result)

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReconcile_ConcurrentBatchesShareKeys(t *testing.T) {
	store := memory.NewStore()
	engine := newEngine(store, nil, PolicyOverwrite)
	ctx := context.Background()

	const workers = 8
	const keys = 20

	var wg sync.WaitGroup
	results := make([]domain.ReconcileResult, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			batch := make([]*domain.Listing, 0, keys)
			for k := 0; k < keys; k++ {
				batch = append(batch, candidate("a", fmt.Sprintf("%d", k), float64(w+1)))
			}
			results[w] = engine.Reconcile(ctx, batch)
		}(w)
	}
	wg.Wait()

	var total domain.ReconcileResult
	for _, r := range results {
		total.Add(r)
	}
	assert.Equal(t, keys, total.Created)
	assert.Equal(t, keys*(workers-1), total.Updated)
	assert.Zero(t, total.Failed)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, keys, count)
}

func TestKeyLocks_SerializeSameKey(t *testing.T) {
	locks := &keyLocks{}
	var mu sync.Mutex
	inside := 0
	maxInside := 0

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("a/1")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
}
