package reconcile

import (
	"context"
	"sync"

	"listings-aggregator-api/core/domain"
	"listings-aggregator-api/core/interfaces"
)

// mockStore delegates to an inner store unless a function field overrides the call
type mockStore struct {
	interfaces.ListingStore

	createFunc func(ctx context.Context, l *domain.Listing) (*domain.Listing, error)
	updateFunc func(ctx context.Context, id string, u domain.ListingUpdate) (*domain.Listing, error)
	findByFunc func(ctx context.Context, f domain.ListingFilter) ([]*domain.Listing, error)
}

func (m *mockStore) Create(ctx context.Context, l *domain.Listing) (*domain.Listing, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, l)
	}
	return m.ListingStore.Create(ctx, l)
}

func (m *mockStore) Update(ctx context.Context, id string, u domain.ListingUpdate) (*domain.Listing, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, u)
	}
	return m.ListingStore.Update(ctx, id, u)
}

func (m *mockStore) FindBy(ctx context.Context, f domain.ListingFilter) ([]*domain.Listing, error) {
	if m.findByFunc != nil {
		return m.findByFunc(ctx, f)
	}
	return m.ListingStore.FindBy(ctx, f)
}

// mockLogger records error messages
type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (m *mockLogger) Debug(msg string, fields map[string]interface{}) {}
func (m *mockLogger) Info(msg string, fields map[string]interface{})  {}
func (m *mockLogger) Warn(msg string, fields map[string]interface{})  {}

func (m *mockLogger) Error(msg string, fields map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}
