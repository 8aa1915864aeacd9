// ABOUTME: Response DTOs for the listings API
// ABOUTME: Every body is wrapped in the {success, data} envelope

package responses

import "time"

// ListingResponse is the API view of a stored listing
type ListingResponse struct {
	ID           string      `json:"id"`
	Address      string      `json:"address,omitempty"`
	City         string      `json:"city,omitempty"`
	State        string      `json:"state,omitempty"`
	ZipCode      string      `json:"zip_code,omitempty"`
	Price        *float64    `json:"price,omitempty"`
	Bedrooms     *int        `json:"bedrooms,omitempty"`
	Bathrooms    *float64    `json:"bathrooms,omitempty"`
	SquareFeet   *int        `json:"square_feet,omitempty"`
	Description  string      `json:"description,omitempty"`
	Images       []string    `json:"images"`
	PropertyType string      `json:"property_type,omitempty"`
	YearBuilt    *int        `json:"year_built,omitempty"`
	LotSize      *int        `json:"lot_size,omitempty"`
	ListingDate  *time.Time  `json:"listing_date,omitempty"`
	Source       string      `json:"source"`
	ExternalID   string      `json:"external_id"`
	SyntheticID  bool        `json:"synthetic_id,omitempty"`
	RawData      interface{} `json:"raw_data,omitempty"`
	Active       bool        `json:"active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ListingsEnvelope wraps a list of listings
type ListingsEnvelope struct {
	Success bool              `json:"success"`
	Count   int               `json:"count"`
	Data    []ListingResponse `json:"data"`
}

// ListingEnvelope wraps a single listing
type ListingEnvelope struct {
	Success bool            `json:"success"`
	Data    ListingResponse `json:"data"`
}

// SourceOutcomeResponse reports one source of a refresh pass
type SourceOutcomeResponse struct {
	Kind       string `json:"kind"`
	Fetched    int    `json:"fetched"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// RefreshResponse summarizes a refresh pass
type RefreshResponse struct {
	StartedAt  time.Time                        `json:"started_at"`
	FinishedAt time.Time                        `json:"finished_at"`
	Created    int                              `json:"created"`
	Updated    int                              `json:"updated"`
	Failed     int                              `json:"failed"`
	Sources    map[string]SourceOutcomeResponse `json:"sources"`
}

// RefreshEnvelope wraps a refresh summary. Success is false only when no source completed.
type RefreshEnvelope struct {
	Success bool            `json:"success"`
	Data    RefreshResponse `json:"data"`
}

// SourceHealthResponse is the latest probe of one source
type SourceHealthResponse struct {
	Status    string    `json:"status" enum:"healthy,error,unavailable"`
	Detail    string    `json:"detail,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// HealthResponse reports service and per-source health
type HealthResponse struct {
	Status  string                          `json:"status"`
	Sources map[string]SourceHealthResponse `json:"sources"`
}

// HealthEnvelope wraps a health response
type HealthEnvelope struct {
	Success bool           `json:"success"`
	Data    HealthResponse `json:"data"`
}

// StatsResponse summarizes the store
type StatsResponse struct {
	Total       int            `json:"total"`
	Active      int            `json:"active"`
	BySource    map[string]int `json:"by_source"`
	LastRefresh *time.Time     `json:"last_refresh,omitempty"`

	Storage map[string]interface{} `json:"storage,omitempty"`
}

// StatsEnvelope wraps store statistics
type StatsEnvelope struct {
	Success bool          `json:"success"`
	Data    StatsResponse `json:"data"`
}

// PurgeResponse reports an administrative purge
type PurgeResponse struct {
	Source  string `json:"source"`
	Deleted int    `json:"deleted"`
}

// PurgeEnvelope wraps a purge result
type PurgeEnvelope struct {
	Success bool          `json:"success"`
	Data    PurgeResponse `json:"data"`
}
