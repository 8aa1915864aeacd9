package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestListing_Clone_IsDeep(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	original := &Listing{
		ID:          "abc",
		Price:       Float(500000),
		Bedrooms:    Int(3),
		Images:      []string{"a.jpg"},
		ListingDate: &date,
		RawData:     json.RawMessage(`{"id":"1"}`),
	}

	clone := original.Clone()
	*clone.Price = 1
	*clone.Bedrooms = 9
	clone.Images[0] = "b.jpg"
	clone.RawData[2] = 'X'
	*clone.ListingDate = time.Time{}

	if *original.Price != 500000 {
		t.Errorf("Price was shared: %v", *original.Price)
	}
	if *original.Bedrooms != 3 {
		t.Errorf("Bedrooms was shared: %v", *original.Bedrooms)
	}
	if original.Images[0] != "a.jpg" {
		t.Errorf("Images was shared: %v", original.Images)
	}
	if string(original.RawData) != `{"id":"1"}` {
		t.Errorf("RawData was shared: %s", original.RawData)
	}
	if !original.ListingDate.Equal(date) {
		t.Errorf("ListingDate was shared: %v", original.ListingDate)
	}
}

func TestListing_Clone_Nil(t *testing.T) {
	var l *Listing
	if l.Clone() != nil {
		t.Error("Clone of nil listing should be nil")
	}
}

func TestListingUpdate_Apply(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	l := &Listing{
		ID:         "id-1",
		Address:    "1 Elm",
		Price:      Float(100),
		Source:     "a",
		ExternalID: "1",
		RawData:    json.RawMessage(`{"old":true}`),
		CreatedAt:  created,
		UpdatedAt:  created,
	}

	ListingUpdate{
		Price:       Float(200),
		Description: String("fresh"),
		Images:      &[]string{"x.jpg"},
		UpdatedAt:   updated,
	}.Apply(l)

	if *l.Price != 200 {
		t.Errorf("Price = %v, want 200", *l.Price)
	}
	if l.Description != "fresh" {
		t.Errorf("Description = %q, want fresh", l.Description)
	}
	if len(l.Images) != 1 || l.Images[0] != "x.jpg" {
		t.Errorf("Images = %v", l.Images)
	}
	if string(l.RawData) != `{"old":true}` {
		t.Errorf("RawData should be untouched without new raw data, got %s", l.RawData)
	}
	if l.Address != "1 Elm" || l.Source != "a" || l.ExternalID != "1" {
		t.Error("identity fields must not change")
	}
	if !l.CreatedAt.Equal(created) {
		t.Error("CreatedAt must not change")
	}
	if !l.UpdatedAt.Equal(updated) {
		t.Errorf("UpdatedAt = %v, want %v", l.UpdatedAt, updated)
	}
}

func TestListingUpdate_ApplyClearAbsent(t *testing.T) {
	l := &Listing{
		Price:        Float(100),
		Description:  "old",
		Images:       []string{"a.jpg"},
		PropertyType: "condo",
		YearBuilt:    Int(1990),
		RawData:      json.RawMessage(`{"old":true}`),
		Active:       true,
	}

	ListingUpdate{ClearAbsent: true, RawData: json.RawMessage(`{}`)}.Apply(l)

	if l.Price != nil || l.YearBuilt != nil {
		t.Error("absent numeric fields should be cleared")
	}
	if l.Description != "" || l.PropertyType != "" || len(l.Images) != 0 {
		t.Errorf("absent text fields should be cleared, got %+v", l)
	}
	if string(l.RawData) != `{}` {
		t.Errorf("RawData = %s", l.RawData)
	}
	if !l.Active {
		t.Error("Active is never cleared")
	}
}

func TestExternalKey_String(t *testing.T) {
	k := ExternalKey{Source: "zillow", ExternalID: "42"}
	if k.String() != "zillow/42" {
		t.Errorf("String() = %q", k.String())
	}
}
