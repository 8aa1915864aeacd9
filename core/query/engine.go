// ABOUTME: Query engine validates raw search criteria and runs them against the listing store
// ABOUTME: Every validation problem is reported together; nothing runs until the criteria are valid

package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"listings-aggregator-api/core/domain"
	coreerrors "listings-aggregator-api/core/errors"
	"listings-aggregator-api/core/interfaces"
	"listings-aggregator-api/pkg/utils/parse"
)

// Allowed filter keys. Anything else in a raw criteria map is ignored.
const (
	KeyCity            = "city"
	KeyState           = "state"
	KeyPropertyType    = "property_type"
	KeyMinPrice        = "min_price"
	KeyMaxPrice        = "max_price"
	KeyMinBedrooms     = "min_bedrooms"
	KeyMaxBedrooms     = "max_bedrooms"
	KeyMinBathrooms    = "min_bathrooms"
	KeyMaxBathrooms    = "max_bathrooms"
	KeyIncludeInactive = "include_inactive"
)

// AllowedKeys lists every recognised filter key in reporting order
var AllowedKeys = []string{
	KeyCity, KeyState, KeyPropertyType,
	KeyMinPrice, KeyMaxPrice,
	KeyMinBedrooms, KeyMaxBedrooms,
	KeyMinBathrooms, KeyMaxBathrooms,
	KeyIncludeInactive,
}

type bound struct {
	min, max string
	minDst   func(*domain.SearchCriteria) **int64
	maxDst   func(*domain.SearchCriteria) **int64
}

var bounds = []bound{
	{
		min: KeyMinPrice, max: KeyMaxPrice,
		minDst: func(c *domain.SearchCriteria) **int64 { return &c.MinPrice },
		maxDst: func(c *domain.SearchCriteria) **int64 { return &c.MaxPrice },
	},
	{
		min: KeyMinBedrooms, max: KeyMaxBedrooms,
		minDst: func(c *domain.SearchCriteria) **int64 { return &c.MinBedrooms },
		maxDst: func(c *domain.SearchCriteria) **int64 { return &c.MaxBedrooms },
	},
	{
		min: KeyMinBathrooms, max: KeyMaxBathrooms,
		minDst: func(c *domain.SearchCriteria) **int64 { return &c.MinBathrooms },
		maxDst: func(c *domain.SearchCriteria) **int64 { return &c.MaxBathrooms },
	},
}

// Engine answers search requests from the canonical store
type Engine struct {
	store  interfaces.ListingStore
	logger interfaces.Logger
}

// NewEngine creates a query engine over deps.Store
func NewEngine(deps interfaces.Dependencies) *Engine {
	return &Engine{store: deps.Store, logger: deps.Logger}
}

// ParseCriteria turns raw request parameters into validated criteria.
// Empty values are treated as absent. Numeric bounds must be non-negative
// integers, and a min above its max is rejected.
func ParseCriteria(raw map[string]string) (domain.SearchCriteria, error) {
	var c domain.SearchCriteria
	var problems []string

	get := func(key string) string {
		return strings.TrimSpace(raw[key])
	}

	c.City = get(KeyCity)
	c.State = get(KeyState)
	c.PropertyType = get(KeyPropertyType)

	if v := get(KeyIncludeInactive); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			problems = append(problems, KeyIncludeInactive+" must be true or false")
		} else {
			c.IncludeInactive = b
		}
	}

	for _, b := range bounds {
		for _, side := range []struct {
			key string
			dst **int64
		}{
			{b.min, b.minDst(&c)},
			{b.max, b.maxDst(&c)},
		} {
			v := get(side.key)
			if v == "" {
				continue
			}
			n, ok := parseBound(v)
			if !ok {
				problems = append(problems, side.key+" must be a valid number")
				continue
			}
			*side.dst = &n
		}
	}

	problems = append(problems, rangeProblems(c)...)

	if len(problems) > 0 {
		return domain.SearchCriteria{}, &coreerrors.ValidationError{
			Field:    "criteria",
			Message:  problems[0],
			Problems: problems,
		}
	}
	return c, nil
}

// Validate checks already-typed criteria, as built by the CLI or embedded clients
func Validate(c domain.SearchCriteria) error {
	var problems []string
	for _, b := range bounds {
		for _, side := range []struct {
			key string
			v   *int64
		}{
			{b.min, *b.minDst(&c)},
			{b.max, *b.maxDst(&c)},
		} {
			if side.v != nil && *side.v < 0 {
				problems = append(problems, side.key+" must be a valid number")
			}
		}
	}
	problems = append(problems, rangeProblems(c)...)
	if len(problems) > 0 {
		return &coreerrors.ValidationError{Field: "criteria", Message: problems[0], Problems: problems}
	}
	return nil
}

func rangeProblems(c domain.SearchCriteria) []string {
	var problems []string
	for _, b := range bounds {
		lo, hi := *b.minDst(&c), *b.maxDst(&c)
		if lo != nil && hi != nil && *lo > *hi {
			problems = append(problems, fmt.Sprintf("%s cannot be greater than %s", b.min, b.max))
		}
	}
	return problems
}

func parseBound(v string) (int64, bool) {
	if !parse.Digits(v) {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Search validates raw criteria and returns the matching listings, most recent first
func (e *Engine) Search(ctx context.Context, raw map[string]string) ([]*domain.Listing, error) {
	criteria, err := ParseCriteria(raw)
	if err != nil {
		return nil, err
	}
	return e.Find(ctx, criteria)
}

// Find runs typed criteria after validating them
func (e *Engine) Find(ctx context.Context, criteria domain.SearchCriteria) ([]*domain.Listing, error) {
	if err := Validate(criteria); err != nil {
		return nil, err
	}
	if e.store == nil {
		return nil, errors.New("store not configured")
	}

	results, err := e.store.FindBy(ctx, domain.ListingFilter{SearchCriteria: criteria})
	if err != nil {
		if e.logger != nil {
			e.logger.Error("Search failed", map[string]interface{}{"error": err.Error()})
		}
		return nil, coreerrors.WrapError(err, "search listings")
	}
	if results == nil {
		results = []*domain.Listing{}
	}
	return results, nil
}
