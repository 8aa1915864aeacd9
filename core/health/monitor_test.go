package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listings-aggregator-api/core/domain"
	"listings-aggregator-api/core/interfaces"
	"listings-aggregator-api/core/registry"
)

type mockProber struct {
	mu    sync.Mutex
	calls []string
	probe func(ctx context.Context, src domain.Source) domain.HealthReport
}

func (m *mockProber) HealthCheck(ctx context.Context, src domain.Source) domain.HealthReport {
	m.mu.Lock()
	m.calls = append(m.calls, src.Name)
	m.mu.Unlock()
	return m.probe(ctx, src)
}

type mockCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	setErr error
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, interfaces.ErrCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type mockLogger struct {
	mu    sync.Mutex
	warns int
}

func (m *mockLogger) Debug(msg string, fields map[string]interface{}) {}
func (m *mockLogger) Info(msg string, fields map[string]interface{})  {}
func (m *mockLogger) Error(msg string, fields map[string]interface{}) {}
func (m *mockLogger) Warn(msg string, fields map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns++
}

func testRegistry() *registry.Registry {
	lookup := func(key string) (string, bool) {
		if key == "GOOD_KEY" {
			return "secret", true
		}
		return "", false
	}
	return registry.New([]domain.Source{
		{Name: "fast", URL: "https://fast.example.com", Headers: map[string]string{"Key": "${GOOD_KEY}"}},
		{Name: "slow", URL: "https://slow.example.com", Headers: map[string]string{"Key": "${GOOD_KEY}"}},
		{Name: "broken", URL: "https://broken.example.com", Headers: map[string]string{"Key": "${GOOD_KEY}"}},
		{Name: "nokey", URL: "https://nokey.example.com", Headers: map[string]string{"Key": "${MISSING_KEY}"}},
	}, lookup)
}

func TestCheckAll_ReportsEverySourceIndependently(t *testing.T) {
	prober := &mockProber{probe: func(ctx context.Context, src domain.Source) domain.HealthReport {
		switch src.Name {
		case "slow":
			select {
			case <-time.After(50 * time.Millisecond):
			case <-ctx.Done():
			}
			return domain.HealthReport{Status: domain.HealthUnavailable, Detail: "timeout"}
		case "broken":
			return domain.HealthReport{Status: domain.HealthError, Detail: "HTTP 403"}
		default:
			return domain.HealthReport{Status: domain.HealthHealthy}
		}
	}}
	logger := &mockLogger{}
	monitor := NewMonitor(interfaces.Dependencies{Cache: newMockCache(), Logger: logger}, testRegistry(), prober)

	reports := monitor.CheckAll(context.Background())

	require.Len(t, reports, 4)
	assert.Equal(t, domain.HealthHealthy, reports["fast"].Status)
	assert.Equal(t, domain.HealthUnavailable, reports["slow"].Status)
	assert.Equal(t, domain.HealthError, reports["broken"].Status)
	assert.Equal(t, domain.HealthError, reports["nokey"].Status)
	assert.Contains(t, reports["nokey"].Detail, "MISSING_KEY")
	for name, r := range reports {
		assert.Equal(t, name, r.Source)
		assert.False(t, r.CheckedAt.IsZero())
	}

	assert.ElementsMatch(t, []string{"fast", "slow", "broken"}, prober.calls, "misconfigured sources are not contacted")
	assert.Equal(t, 3, logger.warns)
}

func TestCheckAll_RunsConcurrently(t *testing.T) {
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(3)
	prober := &mockProber{probe: func(ctx context.Context, src domain.Source) domain.HealthReport {
		started.Done()
		<-release
		return domain.HealthReport{Status: domain.HealthHealthy}
	}}
	monitor := NewMonitor(interfaces.Dependencies{}, testRegistry(), prober)

	done := make(chan map[string]domain.HealthReport)
	go func() { done <- monitor.CheckAll(context.Background()) }()

	// Every probe must be in flight at once before any is released
	started.Wait()
	close(release)

	select {
	case reports := <-done:
		assert.Len(t, reports, 4)
	case <-time.After(2 * time.Second):
		t.Fatal("CheckAll did not finish")
	}
}

func TestLastHealth(t *testing.T) {
	cache := newMockCache()
	prober := &mockProber{probe: func(ctx context.Context, src domain.Source) domain.HealthReport {
		return domain.HealthReport{Status: domain.HealthHealthy}
	}}
	monitor := NewMonitor(interfaces.Dependencies{Cache: cache}, testRegistry(), prober)
	ctx := context.Background()

	assert.Empty(t, monitor.LastHealth(ctx))

	report, ok := monitor.Check(ctx, "fast")
	require.True(t, ok)
	assert.Equal(t, domain.HealthHealthy, report.Status)

	last := monitor.LastHealth(ctx)
	require.Len(t, last, 1)
	assert.Equal(t, domain.HealthHealthy, last["fast"].Status)
	assert.True(t, last["fast"].CheckedAt.Equal(report.CheckedAt))

	_, ok = monitor.Check(ctx, "unknown")
	assert.False(t, ok)
}

func TestLastHealth_ReflectsMostRecentProbe(t *testing.T) {
	status := domain.HealthHealthy
	prober := &mockProber{probe: func(ctx context.Context, src domain.Source) domain.HealthReport {
		return domain.HealthReport{Status: status}
	}}
	monitor := NewMonitor(interfaces.Dependencies{Cache: newMockCache()}, testRegistry(), prober)
	ctx := context.Background()

	monitor.Check(ctx, "fast")
	status = domain.HealthUnavailable
	monitor.Check(ctx, "fast")

	assert.Equal(t, domain.HealthUnavailable, monitor.LastHealth(ctx)["fast"].Status)
}

func TestCheck_CacheFailureStillReports(t *testing.T) {
	cache := newMockCache()
	cache.setErr = errors.New("redis down")
	logger := &mockLogger{}
	prober := &mockProber{probe: func(ctx context.Context, src domain.Source) domain.HealthReport {
		return domain.HealthReport{Status: domain.HealthHealthy}
	}}
	monitor := NewMonitor(interfaces.Dependencies{Cache: cache, Logger: logger}, testRegistry(), prober)

	report, ok := monitor.Check(context.Background(), "fast")
	require.True(t, ok)
	assert.Equal(t, domain.HealthHealthy, report.Status)
	assert.Equal(t, 1, logger.warns)
}

func TestCheck_NoProber(t *testing.T) {
	monitor := NewMonitor(interfaces.Dependencies{}, testRegistry(), nil)
	report, ok := monitor.Check(context.Background(), "fast")
	require.True(t, ok)
	assert.Equal(t, domain.HealthUnavailable, report.Status)
}
