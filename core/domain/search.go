// ABOUTME: Search criteria and store filters for the query engine
// ABOUTME: ListingFilter.Matches is the reference semantics every store must reproduce

package domain

import "strings"

// SearchCriteria is the validated form of a search request.
// Nil bounds and empty strings are not applied.
type SearchCriteria struct {
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PropertyType string `json:"property_type,omitempty"`

	MinPrice     *int64 `json:"min_price,omitempty"`
	MaxPrice     *int64 `json:"max_price,omitempty"`
	MinBedrooms  *int64 `json:"min_bedrooms,omitempty"`
	MaxBedrooms  *int64 `json:"max_bedrooms,omitempty"`
	MinBathrooms *int64 `json:"min_bathrooms,omitempty"`
	MaxBathrooms *int64 `json:"max_bathrooms,omitempty"`

	// IncludeInactive also returns soft-deleted listings
	IncludeInactive bool `json:"include_inactive,omitempty"`
}

// ListingFilter is the predicate handed to a store's FindBy
type ListingFilter struct {
	SearchCriteria

	// Source restricts to one upstream when set
	Source string

	// ExternalID restricts to one external identity when set
	ExternalID string
}

// Matches reports whether l satisfies every supplied predicate
func (f ListingFilter) Matches(l *Listing) bool {
	if l == nil {
		return false
	}
	if !f.IncludeInactive && !l.Active {
		return false
	}
	if f.Source != "" && l.Source != f.Source {
		return false
	}
	if f.ExternalID != "" && l.ExternalID != f.ExternalID {
		return false
	}
	if f.City != "" && !strings.Contains(strings.ToLower(l.City), strings.ToLower(f.City)) {
		return false
	}
	if f.State != "" && strings.ToLower(l.State) != strings.ToLower(f.State) {
		return false
	}
	if f.PropertyType != "" && strings.ToLower(l.PropertyType) != strings.ToLower(f.PropertyType) {
		return false
	}
	if !floatWithin(l.Price, f.MinPrice, f.MaxPrice) {
		return false
	}
	if !intWithin(l.Bedrooms, f.MinBedrooms, f.MaxBedrooms) {
		return false
	}
	if !floatWithin(l.Bathrooms, f.MinBathrooms, f.MaxBathrooms) {
		return false
	}
	return true
}

// An absent value never satisfies a bound
func floatWithin(v *float64, min, max *int64) bool {
	if min == nil && max == nil {
		return true
	}
	if v == nil {
		return false
	}
	if min != nil && *v < float64(*min) {
		return false
	}
	if max != nil && *v > float64(*max) {
		return false
	}
	return true
}

func intWithin(v *int, min, max *int64) bool {
	if min == nil && max == nil {
		return true
	}
	if v == nil {
		return false
	}
	if min != nil && int64(*v) < *min {
		return false
	}
	if max != nil && int64(*v) > *max {
		return false
	}
	return true
}
