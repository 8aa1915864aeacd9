// ABOUTME: Listing service drives aggregation passes and answers reads from the canonical store
// ABOUTME: Each source is fetched, normalized and reconciled on its own goroutine under one overall deadline

package listing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"listings-aggregator-api/core/domain"
	coreerrors "listings-aggregator-api/core/errors"
	"listings-aggregator-api/core/fetch"
	"listings-aggregator-api/core/health"
	"listings-aggregator-api/core/interfaces"
	"listings-aggregator-api/core/normalize"
	"listings-aggregator-api/core/query"
	"listings-aggregator-api/core/reconcile"
	"listings-aggregator-api/core/registry"
	"listings-aggregator-api/pkg/featureflags"
)

// RefreshMarkerKey holds the time of the last pass in which any source succeeded.
// It expires after the cache duration, which is what makes stored data stale.
const RefreshMarkerKey = "listings:last_refresh"

// Config tunes the service. Zero values fall back to the defaults below.
type Config struct {
	Fetch           fetch.Policy
	MergePolicy     reconcile.MergePolicy
	IDMode          normalize.IDMode
	CacheDuration   time.Duration
	RefreshDeadline time.Duration

	// Flags overrides the manager carried by the request context
	Flags featureflags.Manager

	// Sleeper replaces the delay between fetch attempts
	Sleeper fetch.Sleeper
}

// DefaultConfig returns a 300s cache duration, 30s refresh deadline and the default fetch policy
func DefaultConfig() Config {
	return Config{
		Fetch:           fetch.DefaultPolicy(),
		MergePolicy:     reconcile.PolicyOverwrite,
		IDMode:          normalize.IDRandom,
		CacheDuration:   300 * time.Second,
		RefreshDeadline: 30 * time.Second,
	}
}

// Service is the entry point used by the HTTP layer, the CLI and embedded clients
type Service struct {
	deps       interfaces.Dependencies
	registry   *registry.Registry
	fetcher    *fetch.Client
	normalizer *normalize.Normalizer
	engine     *reconcile.Engine
	query      *query.Engine
	monitor    *health.Monitor
	cfg        Config
	group      singleflight.Group
	now        func() time.Time
}

// NewService wires the pipeline components over deps
func NewService(deps interfaces.Dependencies, reg *registry.Registry, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.Fetch.Attempts == 0 {
		cfg.Fetch = defaults.Fetch
	}
	if cfg.CacheDuration <= 0 {
		cfg.CacheDuration = defaults.CacheDuration
	}
	if cfg.RefreshDeadline <= 0 {
		cfg.RefreshDeadline = defaults.RefreshDeadline
	}
	if reg == nil {
		reg = registry.New(nil, nil)
	}

	fetcher := fetch.NewClient(deps, cfg.Fetch)
	if cfg.Sleeper != nil {
		fetcher.WithSleeper(cfg.Sleeper)
	}

	return &Service{
		deps:       deps,
		registry:   reg,
		fetcher:    fetcher,
		normalizer: normalize.New(deps.Logger, cfg.IDMode),
		engine:     reconcile.NewEngine(deps, cfg.MergePolicy),
		query:      query.NewEngine(deps),
		monitor:    health.NewMonitor(deps, reg, fetcher),
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Sources returns every registered source descriptor
func (s *Service) Sources() []domain.Source {
	return s.registry.Sources()
}

// FetchAndReconcileAll runs one aggregation pass across every registered source.
// Sources run concurrently and never affect each other; the pass ends when
// every source has finished or the refresh deadline has passed.
func (s *Service) FetchAndReconcileAll(ctx context.Context) domain.RefreshSummary {
	summary := domain.RefreshSummary{
		StartedAt: s.now(),
		Sources:   make(map[string]domain.SourceOutcome),
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RefreshDeadline)
	defer cancel()

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, src := range s.registry.Sources() {
		wg.Add(1)
		go func(src domain.Source) {
			defer wg.Done()
			outcome := s.refreshSource(ctx, src)

			mu.Lock()
			summary.Sources[src.Name] = outcome
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	summary.FinishedAt = s.now()

	if summary.AnySucceeded() {
		s.markRefreshed(ctx, summary.FinishedAt)
	}

	totals := summary.Totals()
	s.logInfo("Refresh completed", map[string]interface{}{
		"sources":  len(summary.Sources),
		"created":  totals.Created,
		"updated":  totals.Updated,
		"failed":   totals.Failed,
		"failures": strings.Join(summary.Failed(), ","),
		"duration": summary.FinishedAt.Sub(summary.StartedAt).String(),
	})

	return summary
}

// RefreshListings triggers a full aggregation pass on demand
func (s *Service) RefreshListings(ctx context.Context) domain.RefreshSummary {
	return s.FetchAndReconcileAll(ctx)
}

func (s *Service) refreshSource(ctx context.Context, src domain.Source) (outcome domain.SourceOutcome) {
	start := time.Now()
	outcome.Source = src.Name
	defer func() {
		outcome.Duration = time.Since(start)
	}()

	fail := func(kind domain.OutcomeKind, err error) domain.SourceOutcome {
		outcome.Kind = kind
		outcome.Error = err.Error()
		s.logError("Source refresh failed", map[string]interface{}{
			"source": src.Name,
			"kind":   string(kind),
			"error":  err.Error(),
		})
		return outcome
	}

	if problem := s.registry.Problem(src.Name); problem != nil {
		return fail(domain.OutcomeMisconfigured, problem)
	}

	body, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		return fail(classify(ctx, err), err)
	}

	candidates, err := s.normalizer.Normalize(body, src)
	if err != nil {
		return fail(domain.OutcomeMalformed, err)
	}
	outcome.Fetched = len(candidates)

	outcome.ReconcileResult = s.engine.Reconcile(ctx, candidates)
	outcome.Kind = domain.OutcomeOK

	s.logInfo("Source refreshed", map[string]interface{}{
		"source":  src.Name,
		"fetched": outcome.Fetched,
		"created": outcome.Created,
		"updated": outcome.Updated,
		"failed":  outcome.Failed,
	})
	return outcome
}

// classify maps a fetch error onto an outcome kind
func classify(ctx context.Context, err error) domain.OutcomeKind {
	switch {
	case coreerrors.IsConfiguration(err):
		return domain.OutcomeMisconfigured
	case coreerrors.IsExternalAPI(err) && !coreerrors.IsSourceUnreachable(err):
		return domain.OutcomeRejected
	case errors.Is(ctx.Err(), context.Canceled):
		return domain.OutcomeCanceled
	default:
		return domain.OutcomeUnreachable
	}
}

func (s *Service) markRefreshed(ctx context.Context, at time.Time) {
	if s.deps.Cache == nil {
		return
	}
	err := s.deps.Cache.Set(context.WithoutCancel(ctx), RefreshMarkerKey, []byte(at.Format(time.RFC3339Nano)), s.cfg.CacheDuration)
	if err != nil {
		s.logWarn("Failed to store refresh marker", map[string]interface{}{"error": err.Error()})
	}
}

// LastRefresh returns when the store was last refreshed, if that is still within the cache duration
func (s *Service) LastRefresh(ctx context.Context) (time.Time, bool) {
	if s.deps.Cache == nil {
		return time.Time{}, false
	}
	data, err := s.deps.Cache.Get(ctx, RefreshMarkerKey)
	if err != nil {
		return time.Time{}, false
	}
	at, err := time.Parse(time.RFC3339Nano, string(data))
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

// GetAllActive returns every active listing, most recent first.
// An empty store triggers one shared refresh first; with stale_refresh enabled
// an expired refresh marker does too. Stored data is returned whatever the refresh outcome.
func (s *Service) GetAllActive(ctx context.Context) ([]*domain.Listing, error) {
	if s.deps.Store == nil {
		return nil, errors.New("store not configured")
	}

	count, err := s.deps.Store.Count(ctx)
	if err != nil {
		return nil, coreerrors.WrapError(err, "count listings")
	}

	switch {
	case count == 0:
		s.sharedRefresh(ctx, "empty")
	case s.flagEnabled(ctx, featureflags.StaleRefresh):
		if _, fresh := s.LastRefresh(ctx); !fresh {
			s.sharedRefresh(ctx, "stale")
		}
	}

	listings, err := s.deps.Store.ListActive(ctx)
	if err != nil {
		return nil, coreerrors.WrapError(err, "list active listings")
	}
	if listings == nil {
		listings = []*domain.Listing{}
	}
	return listings, nil
}

// sharedRefresh collapses concurrent refresh triggers into a single pass
func (s *Service) sharedRefresh(ctx context.Context, reason string) {
	s.logInfo("Refreshing listings on read", map[string]interface{}{"reason": reason})
	_, _, _ = s.group.Do("refresh", func() (interface{}, error) {
		return s.FetchAndReconcileAll(context.WithoutCancel(ctx)), nil
	})
}

func (s *Service) flagEnabled(ctx context.Context, flag featureflags.FeatureFlag) bool {
	if s.cfg.Flags != nil {
		return s.cfg.Flags.IsEnabled(ctx, flag)
	}
	return featureflags.IsEnabled(ctx, flag)
}

// Search validates raw criteria and returns matching listings
func (s *Service) Search(ctx context.Context, criteria map[string]string) ([]*domain.Listing, error) {
	return s.query.Search(ctx, criteria)
}

// Find runs already-typed criteria
func (s *Service) Find(ctx context.Context, criteria domain.SearchCriteria) ([]*domain.Listing, error) {
	return s.query.Find(ctx, criteria)
}

// GetByID returns a single listing, soft-deleted ones included
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &coreerrors.ValidationError{Field: "id", Message: "id is required"}
	}
	if s.deps.Store == nil {
		return nil, errors.New("store not configured")
	}
	return s.deps.Store.FindByID(ctx, id)
}

// HealthCheckAll probes every source and returns the status per source
func (s *Service) HealthCheckAll(ctx context.Context) map[string]domain.HealthReport {
	return s.monitor.CheckAll(ctx)
}

// HealthCheck probes one registered source
func (s *Service) HealthCheck(ctx context.Context, source string) (domain.HealthReport, error) {
	report, ok := s.monitor.Check(ctx, strings.TrimSpace(source))
	if !ok {
		return domain.HealthReport{}, &coreerrors.NotFoundError{Resource: "source", ID: source}
	}
	return report, nil
}

// LastHealth returns the most recent probe result per source
func (s *Service) LastHealth(ctx context.Context) map[string]domain.HealthReport {
	return s.monitor.LastHealth(ctx)
}

// PurgeSource physically removes every listing of one source
func (s *Service) PurgeSource(ctx context.Context, source string) (int, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return 0, &coreerrors.ValidationError{Field: "source", Message: "source is required"}
	}
	if s.deps.Store == nil {
		return 0, errors.New("store not configured")
	}

	deleted, err := s.deps.Store.DeleteBySource(ctx, source)
	if err != nil {
		return 0, coreerrors.WrapError(err, "purge source")
	}

	s.logInfo("Source purged", map[string]interface{}{
		"source":  source,
		"deleted": deleted,
	})
	return deleted, nil
}

// Stats summarizes the store contents
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	if s.deps.Store == nil {
		return domain.Stats{}, errors.New("store not configured")
	}

	total, err := s.deps.Store.Count(ctx)
	if err != nil {
		return domain.Stats{}, coreerrors.WrapError(err, "count listings")
	}
	active, err := s.deps.Store.ListActive(ctx)
	if err != nil {
		return domain.Stats{}, coreerrors.WrapError(err, "list active listings")
	}
	bySource, err := s.deps.Store.CountBySource(ctx)
	if err != nil {
		return domain.Stats{}, coreerrors.WrapError(err, "count by source")
	}

	stats := domain.Stats{Total: total, Active: len(active), BySource: bySource}
	if reporter, ok := s.deps.Store.(interfaces.StorageReporter); ok {
		storage, err := reporter.Stats(ctx)
		if err != nil {
			s.logWarn("Failed to read storage statistics", map[string]interface{}{"error": err.Error()})
		} else {
			stats.Storage = storage
		}
	}
	return stats, nil
}

func (s *Service) logInfo(msg string, fields map[string]interface{}) {
	if s.deps.Logger != nil {
		s.deps.Logger.Info(msg, fields)
	}
}

func (s *Service) logWarn(msg string, fields map[string]interface{}) {
	if s.deps.Logger != nil {
		s.deps.Logger.Warn(msg, fields)
	}
}

func (s *Service) logError(msg string, fields map[string]interface{}) {
	if s.deps.Logger != nil {
		s.deps.Logger.Error(msg, fields)
	}
}
