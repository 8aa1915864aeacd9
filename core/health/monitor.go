// ABOUTME: Health monitor probes every registered source concurrently
// ABOUTME: The latest report per source is kept in the cache so it outlives a single request

package health

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"listings-aggregator-api/core/domain"
	"listings-aggregator-api/core/interfaces"
	"listings-aggregator-api/core/registry"
)

// KeyPrefix namespaces health snapshots in the cache
const KeyPrefix = "health:"

// Prober performs a single health probe, typically fetch.Client
type Prober interface {
	HealthCheck(ctx context.Context, src domain.Source) domain.HealthReport
}

// Monitor checks upstream sources independently of the fetch path
type Monitor struct {
	registry *registry.Registry
	prober   Prober
	cache    interfaces.Cache
	logger   interfaces.Logger
	now      func() time.Time
}

// NewMonitor creates a monitor. deps.Cache is optional; without it LastHealth is always empty.
func NewMonitor(deps interfaces.Dependencies, reg *registry.Registry, prober Prober) *Monitor {
	return &Monitor{
		registry: reg,
		prober:   prober,
		cache:    deps.Cache,
		logger:   deps.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CheckAll probes every source in parallel. A misconfigured source reports
// error without being contacted. One slow source never delays the others
// beyond its own probe timeout.
func (m *Monitor) CheckAll(ctx context.Context) map[string]domain.HealthReport {
	sources := m.registry.Sources()
	reports := make(map[string]domain.HealthReport, len(sources))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src domain.Source) {
			defer wg.Done()
			report := m.check(ctx, src)

			mu.Lock()
			reports[src.Name] = report
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	return reports
}

// Check probes a single source by name
func (m *Monitor) Check(ctx context.Context, name string) (domain.HealthReport, bool) {
	src, ok := m.registry.Lookup(name)
	if !ok {
		return domain.HealthReport{}, false
	}
	return m.check(ctx, src), true
}

func (m *Monitor) check(ctx context.Context, src domain.Source) domain.HealthReport {
	var report domain.HealthReport
	switch {
	case m.registry.Problem(src.Name) != nil:
		report = domain.HealthReport{
			Source:    src.Name,
			Status:    domain.HealthError,
			Detail:    m.registry.Problem(src.Name).Error(),
			CheckedAt: m.now(),
		}
	case m.prober == nil:
		report = domain.HealthReport{
			Source:    src.Name,
			Status:    domain.HealthUnavailable,
			Detail:    "no prober configured",
			CheckedAt: m.now(),
		}
	default:
		report = m.prober.HealthCheck(ctx, src)
		report.Source = src.Name
		if report.CheckedAt.IsZero() {
			report.CheckedAt = m.now()
		}
	}

	if report.Status != domain.HealthHealthy && m.logger != nil {
		m.logger.Warn("Source health check failed", map[string]interface{}{
			"source": src.Name,
			"status": string(report.Status),
			"detail": report.Detail,
		})
	}

	m.remember(ctx, report)
	return report
}

func (m *Monitor) remember(ctx context.Context, report domain.HealthReport) {
	if m.cache == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		return
	}
	// Snapshots outlive the probe context so a cancelled request still records its result
	if err := m.cache.Set(context.WithoutCancel(ctx), KeyPrefix+report.Source, data, 0); err != nil && m.logger != nil {
		m.logger.Warn("Failed to store health snapshot", map[string]interface{}{
			"source": report.Source,
			"error":  err.Error(),
		})
	}
}

// LastHealth returns the most recent stored report for every source that has been probed
func (m *Monitor) LastHealth(ctx context.Context) map[string]domain.HealthReport {
	out := make(map[string]domain.HealthReport)
	if m.cache == nil {
		return out
	}

	for _, name := range m.registry.Names() {
		data, err := m.cache.Get(ctx, KeyPrefix+name)
		if err != nil {
			if !errors.Is(err, interfaces.ErrCacheMiss) && m.logger != nil {
				m.logger.Warn("Failed to read health snapshot", map[string]interface{}{
					"source": name,
					"error":  err.Error(),
				})
			}
			continue
		}
		var report domain.HealthReport
		if err := json.Unmarshal(data, &report); err != nil {
			continue
		}
		out[name] = report
	}
	return out
}
