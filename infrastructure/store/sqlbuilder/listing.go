// ABOUTME: Listing row mapping shared by the SQL stores
// ABOUTME: Translates ListingFilter into WHERE clauses with the same semantics as ListingFilter.Matches

package sqlbuilder

import (
	"encoding/json"
	"fmt"
	"time"

	"listings-aggregator-api/core/domain"
)

// Table is the listings table name
const Table = "listings"

// Columns lists the listing columns in scan order
var Columns = []string{
	"id", "source", "external_id",
	"address", "city", "state", "zip_code",
	"price", "bedrooms", "bathrooms", "square_feet",
	"description", "images", "property_type", "year_built", "lot_size", "listing_date",
	"raw_data", "active", "created_at", "updated_at",
}

// MutableColumns are rewritten by Update
var MutableColumns = []string{
	"price", "description", "images", "property_type", "year_built", "lot_size",
	"listing_date", "raw_data", "active", "updated_at",
}

// Scanner is satisfied by *sql.Row, *sql.Rows and pgx.Row
type Scanner interface {
	Scan(dest ...interface{}) error
}

// ScanListing reads one row selected with Columns
func ScanListing(row Scanner) (*domain.Listing, error) {
	l := &domain.Listing{}
	var images string
	var raw *string

	err := row.Scan(
		&l.ID, &l.Source, &l.ExternalID,
		&l.Address, &l.City, &l.State, &l.ZipCode,
		&l.Price, &l.Bedrooms, &l.Bathrooms, &l.SquareFeet,
		&l.Description, &images, &l.PropertyType, &l.YearBuilt, &l.LotSize, &l.ListingDate,
		&raw, &l.Active, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Images = []string{}
	if images != "" {
		if err := json.Unmarshal([]byte(images), &l.Images); err != nil {
			return nil, fmt.Errorf("decode images of %s: %w", l.ID, err)
		}
	}
	if raw != nil {
		l.RawData = json.RawMessage(*raw)
	}
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	if l.ListingDate != nil {
		t := l.ListingDate.UTC()
		l.ListingDate = &t
	}
	return l, nil
}

// Values returns l's column values in Columns order
func Values(l *domain.Listing) ([]interface{}, error) {
	mutable, err := MutableValues(l)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		l.ID, l.Source, l.ExternalID,
		l.Address, l.City, l.State, l.ZipCode,
		mutable[0], l.Bedrooms, l.Bathrooms, l.SquareFeet,
		mutable[1], mutable[2], mutable[3], mutable[4], mutable[5], mutable[6],
		mutable[7], mutable[8], l.CreatedAt.UTC(), mutable[9],
	}, nil
}

// MutableValues returns l's values in MutableColumns order
func MutableValues(l *domain.Listing) ([]interface{}, error) {
	images := l.Images
	if images == nil {
		images = []string{}
	}
	encoded, err := json.Marshal(images)
	if err != nil {
		return nil, err
	}

	var raw *string
	if l.RawData != nil {
		s := string(l.RawData)
		raw = &s
	}

	var listed *time.Time
	if l.ListingDate != nil {
		t := l.ListingDate.UTC()
		listed = &t
	}

	return []interface{}{
		l.Price, l.Description, string(encoded), l.PropertyType, l.YearBuilt, l.LotSize,
		listed, raw, l.Active, l.UpdatedAt.UTC(),
	}, nil
}

// ApplyFilter adds the conditions of f to qb
func ApplyFilter(qb *QueryBuilder, f domain.ListingFilter) *QueryBuilder {
	if !f.IncludeInactive {
		qb.Where("active", "=", true)
	}
	if f.Source != "" {
		qb.Where("source", "=", f.Source)
	}
	if f.ExternalID != "" {
		qb.Where("external_id", "=", f.ExternalID)
	}
	if f.City != "" {
		qb.WhereContainsFold("city", f.City)
	}
	if f.State != "" {
		qb.WhereFold("state", f.State)
	}
	if f.PropertyType != "" {
		qb.WhereFold("property_type", f.PropertyType)
	}
	qb.WhereBetween("price", f.MinPrice, f.MaxPrice)
	qb.WhereBetween("bedrooms", f.MinBedrooms, f.MaxBedrooms)
	qb.WhereBetween("bathrooms", f.MinBathrooms, f.MaxBathrooms)
	return qb
}

// FindQuery selects listings matching f, most recent first
func FindQuery(dialect Dialect, f domain.ListingFilter) (string, []interface{}, error) {
	qb := NewQueryBuilder(dialect).Select(Table, Columns...)
	ApplyFilter(qb, f)
	qb.OrderBy("created_at DESC", "seq DESC")
	return qb.Build()
}
