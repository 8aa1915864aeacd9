// ABOUTME: Mappers for converting between domain models and API DTOs
// ABOUTME: Provides clean separation between business logic and API layer

package mappers

import (
	"encoding/json"
	"time"

	"listings-aggregator-api/api/dto/responses"
	"listings-aggregator-api/core/domain"
	"listings-aggregator-api/core/normalize"
)

// ToListingResponse converts a domain Listing to a ListingResponse DTO
func ToListingResponse(l *domain.Listing) *responses.ListingResponse {
	if l == nil {
		return nil
	}

	images := l.Images
	if images == nil {
		images = []string{}
	}

	resp := &responses.ListingResponse{
		ID:           l.ID,
		Address:      l.Address,
		City:         l.City,
		State:        l.State,
		ZipCode:      l.ZipCode,
		Price:        l.Price,
		Bedrooms:     l.Bedrooms,
		Bathrooms:    l.Bathrooms,
		SquareFeet:   l.SquareFeet,
		Description:  l.Description,
		Images:       images,
		PropertyType: l.PropertyType,
		YearBuilt:    l.YearBuilt,
		LotSize:      l.LotSize,
		ListingDate:  l.ListingDate,
		Source:       l.Source,
		ExternalID:   l.ExternalID,
		SyntheticID:  normalize.IsSynthetic(l.Source, l.ExternalID),
		Active:       l.Active,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}

	if len(l.RawData) > 0 {
		var raw interface{}
		if err := json.Unmarshal(l.RawData, &raw); err == nil {
			resp.RawData = raw
		}
	}

	return resp
}

// ToListingsEnvelope converts listings into the list envelope
func ToListingsEnvelope(listings []*domain.Listing) responses.ListingsEnvelope {
	data := make([]responses.ListingResponse, 0, len(listings))
	for _, l := range listings {
		if r := ToListingResponse(l); r != nil {
			data = append(data, *r)
		}
	}
	return responses.ListingsEnvelope{Success: true, Count: len(data), Data: data}
}

// ToRefreshEnvelope converts a refresh summary
func ToRefreshEnvelope(summary domain.RefreshSummary) responses.RefreshEnvelope {
	totals := summary.Totals()
	data := responses.RefreshResponse{
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Created:    totals.Created,
		Updated:    totals.Updated,
		Failed:     totals.Failed,
		Sources:    make(map[string]responses.SourceOutcomeResponse, len(summary.Sources)),
	}
	for name, o := range summary.Sources {
		data.Sources[name] = responses.SourceOutcomeResponse{
			Kind:       string(o.Kind),
			Fetched:    o.Fetched,
			Created:    o.Created,
			Updated:    o.Updated,
			Failed:     o.Failed,
			Error:      o.Error,
			DurationMS: o.Duration.Milliseconds(),
		}
	}
	return responses.RefreshEnvelope{Success: summary.AnySucceeded(), Data: data}
}

// ToHealthEnvelope converts per-source health reports
func ToHealthEnvelope(reports map[string]domain.HealthReport) responses.HealthEnvelope {
	sources := make(map[string]responses.SourceHealthResponse, len(reports))
	for name, r := range reports {
		sources[name] = responses.SourceHealthResponse{
			Status:    string(r.Status),
			Detail:    r.Detail,
			CheckedAt: r.CheckedAt,
		}
	}
	return responses.HealthEnvelope{
		Success: true,
		Data:    responses.HealthResponse{Status: "ok", Sources: sources},
	}
}

// ToStatsEnvelope converts store statistics
func ToStatsEnvelope(stats domain.Stats, lastRefresh time.Time, fresh bool) responses.StatsEnvelope {
	bySource := stats.BySource
	if bySource == nil {
		bySource = map[string]int{}
	}
	data := responses.StatsResponse{
		Total:    stats.Total,
		Active:   stats.Active,
		BySource: bySource,
		Storage:  stats.Storage,
	}
	if fresh {
		at := lastRefresh
		data.LastRefresh = &at
	}
	return responses.StatsEnvelope{Success: true, Data: data}
}
