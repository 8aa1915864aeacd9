// ABOUTME: Public types for the embeddable aggregator client
// ABOUTME: Aliases the domain models so callers never import core packages directly

package aggregator

import "listings-aggregator-api/core/domain"

// Listing is one canonical listing record
type Listing = domain.Listing

// Source describes one upstream provider
type Source = domain.Source

// RefreshSummary is the per-source outcome of a refresh pass
type RefreshSummary = domain.RefreshSummary

// SourceOutcome is the result for one source within a pass
type SourceOutcome = domain.SourceOutcome

// HealthReport is the latest probe result for one source
type HealthReport = domain.HealthReport

// Stats summarizes the store contents
type Stats = domain.Stats

// Criteria is a raw search request keyed by query parameter name
type Criteria map[string]string
