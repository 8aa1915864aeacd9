// ABOUTME: Listing domain model is the canonical record produced from every upstream source
// ABOUTME: Optional attributes are pointers so "unknown" stays distinct from zero

package domain

import (
	"encoding/json"
	"time"
)

// Listing is the canonical property listing held in the store
type Listing struct {
	// ID is assigned locally by the store and is unique within it
	ID string `json:"id"`

	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`

	Price      *float64 `json:"price,omitempty"`
	Bedrooms   *int     `json:"bedrooms,omitempty"`
	Bathrooms  *float64 `json:"bathrooms,omitempty"`
	SquareFeet *int     `json:"square_feet,omitempty"`

	Description  string     `json:"description,omitempty"`
	Images       []string   `json:"images"`
	PropertyType string     `json:"property_type,omitempty"`
	YearBuilt    *int       `json:"year_built,omitempty"`
	LotSize      *int       `json:"lot_size,omitempty"`
	ListingDate  *time.Time `json:"listing_date,omitempty"`

	// Source names the upstream that produced the listing
	Source string `json:"source"`

	// ExternalID is the identity of the listing within Source
	ExternalID string `json:"external_id"`

	// RawData is the original per-element payload, kept verbatim
	RawData json.RawMessage `json:"raw_data,omitempty"`

	// Active is false for soft-deleted listings
	Active bool `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the external identity of the listing
func (l *Listing) Key() ExternalKey {
	return ExternalKey{Source: l.Source, ExternalID: l.ExternalID}
}

// Clone returns a deep copy so callers never share mutable state with a store
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	c := *l
	c.Price = cloneFloat(l.Price)
	c.Bathrooms = cloneFloat(l.Bathrooms)
	c.Bedrooms = cloneInt(l.Bedrooms)
	c.SquareFeet = cloneInt(l.SquareFeet)
	c.YearBuilt = cloneInt(l.YearBuilt)
	c.LotSize = cloneInt(l.LotSize)
	if l.ListingDate != nil {
		t := *l.ListingDate
		c.ListingDate = &t
	}
	if l.Images != nil {
		c.Images = append([]string(nil), l.Images...)
	}
	if l.RawData != nil {
		c.RawData = append(json.RawMessage(nil), l.RawData...)
	}
	return &c
}

// ExternalKey is the (source, external_id) pair used to deduplicate across fetches
type ExternalKey struct {
	Source     string
	ExternalID string
}

// String renders the key for logs and lock maps
func (k ExternalKey) String() string {
	return k.Source + "/" + k.ExternalID
}

// ListingUpdate carries the mutable fields refreshed on a re-sighting.
// Nil fields are left untouched by the store.
type ListingUpdate struct {
	Price        *float64
	Description  *string
	Images       *[]string
	PropertyType *string
	YearBuilt    *int
	LotSize      *int
	ListingDate  *time.Time
	RawData      json.RawMessage
	Active       *bool

	// ClearAbsent clears optional fields whose update value is nil
	// instead of leaving them untouched
	ClearAbsent bool

	// UpdatedAt is always applied
	UpdatedAt time.Time
}

// Apply writes the update onto l. Stores call this while holding their write lock.
func (u ListingUpdate) Apply(l *Listing) {
	if u.Price != nil || u.ClearAbsent {
		l.Price = cloneFloat(u.Price)
	}
	if u.Description != nil {
		l.Description = *u.Description
	} else if u.ClearAbsent {
		l.Description = ""
	}
	if u.Images != nil {
		l.Images = append([]string{}, (*u.Images)...)
	} else if u.ClearAbsent {
		l.Images = []string{}
	}
	if u.PropertyType != nil {
		l.PropertyType = *u.PropertyType
	} else if u.ClearAbsent {
		l.PropertyType = ""
	}
	if u.YearBuilt != nil || u.ClearAbsent {
		l.YearBuilt = cloneInt(u.YearBuilt)
	}
	if u.LotSize != nil || u.ClearAbsent {
		l.LotSize = cloneInt(u.LotSize)
	}
	if u.ListingDate != nil {
		t := *u.ListingDate
		l.ListingDate = &t
	} else if u.ClearAbsent {
		l.ListingDate = nil
	}
	if u.RawData != nil {
		l.RawData = append(json.RawMessage(nil), u.RawData...)
	}
	if u.Active != nil {
		l.Active = *u.Active
	}
	l.UpdatedAt = u.UpdatedAt
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }

// String returns a pointer to v
func String(v string) *string { return &v }
