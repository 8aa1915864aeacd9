// ABOUTME: Reconciliation engine merges candidate listings into the canonical store
// ABOUTME: Create-if-absent and update-if-present keyed by (source, external_id), best-effort per record

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listings-aggregator-api/core/domain"
	coreerrors "listings-aggregator-api/core/errors"
	"listings-aggregator-api/core/interfaces"
)

// MergePolicy decides how a re-sighted listing's mutable fields are refreshed
type MergePolicy string

const (
	// PolicyOverwrite replaces every mutable field with the candidate's value,
	// clearing fields the candidate does not carry
	PolicyOverwrite MergePolicy = "overwrite"

	// PolicyPreserveNonEmpty only replaces fields the candidate actually carries
	PolicyPreserveNonEmpty MergePolicy = "preserve_nonempty"
)

// Engine reconciles candidate batches against the store
type Engine struct {
	store  interfaces.ListingStore
	logger interfaces.Logger
	policy MergePolicy
	locks  *keyLocks
	now    func() time.Time
}

// NewEngine creates an engine over deps.Store. An unknown policy falls back to PolicyOverwrite.
func NewEngine(deps interfaces.Dependencies, policy MergePolicy) *Engine {
	if policy != PolicyPreserveNonEmpty {
		policy = PolicyOverwrite
	}
	return &Engine{
		store:  deps.Store,
		logger: deps.Logger,
		policy: policy,
		locks:  &keyLocks{},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used for updated_at
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Policy returns the active merge policy
func (e *Engine) Policy() MergePolicy {
	return e.policy
}

// Reconcile merges candidates into the store and reports what happened.
// Per-candidate failures are logged and counted, never returned.
func (e *Engine) Reconcile(ctx context.Context, candidates []*domain.Listing) domain.ReconcileResult {
	var result domain.ReconcileResult

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			remaining := len(candidates) - i
			result.Failed += remaining
			e.log("Reconciliation interrupted", map[string]interface{}{
				"remaining": remaining,
				"error":     err.Error(),
			})
			break
		}

		created, err := e.reconcileOne(ctx, c)
		if err != nil {
			result.Failed++
			rerr := &coreerrors.ReconciliationError{Cause: err}
			if c != nil {
				rerr.Source, rerr.ExternalID = c.Source, c.ExternalID
			}
			e.log("Failed to reconcile listing", map[string]interface{}{
				"source":      rerr.Source,
				"external_id": rerr.ExternalID,
				"error":       rerr.Error(),
			})
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	return result
}

// reconcileOne reports true when the candidate was inserted
func (e *Engine) reconcileOne(ctx context.Context, c *domain.Listing) (bool, error) {
	if c == nil {
		return false, errors.New("nil candidate")
	}
	if c.Source == "" || c.ExternalID == "" {
		return false, errors.New("candidate has no external identity")
	}
	if e.store == nil {
		return false, errors.New("store not configured")
	}

	unlock := e.locks.lock(c.Key().String())
	defer unlock()

	existing, err := e.find(ctx, c.Key())
	if err != nil {
		return false, err
	}

	if existing == nil {
		record := c.Clone()
		record.ID = ""
		record.Active = true
		now := e.now()
		record.CreatedAt = now
		record.UpdatedAt = now

		_, err := e.store.Create(ctx, record)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, coreerrors.ErrDuplicate) {
			return false, err
		}

		// Another writer sharing the store inserted the key first
		existing, err = e.find(ctx, c.Key())
		if err != nil {
			return false, err
		}
		if existing == nil {
			return false, fmt.Errorf("duplicate reported but %s not found", c.Key())
		}
	}

	if _, err := e.store.Update(ctx, existing.ID, e.buildUpdate(c)); err != nil {
		return false, err
	}
	return false, nil
}

func (e *Engine) find(ctx context.Context, key domain.ExternalKey) (*domain.Listing, error) {
	matches, err := e.store.FindBy(ctx, domain.ListingFilter{
		SearchCriteria: domain.SearchCriteria{IncludeInactive: true},
		Source:         key.Source,
		ExternalID:     key.ExternalID,
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

// buildUpdate maps the candidate's mutable fields onto an update under the engine's policy
func (e *Engine) buildUpdate(c *domain.Listing) domain.ListingUpdate {
	u := domain.ListingUpdate{
		Price:       c.Price,
		YearBuilt:   c.YearBuilt,
		LotSize:     c.LotSize,
		ListingDate: c.ListingDate,
		UpdatedAt:   e.now(),
	}

	if e.policy == PolicyOverwrite {
		u.ClearAbsent = true
		u.Description = domain.String(c.Description)
		u.PropertyType = domain.String(c.PropertyType)
		images := append([]string{}, c.Images...)
		u.Images = &images
		u.RawData = c.RawData
		return u
	}

	if c.Description != "" {
		u.Description = domain.String(c.Description)
	}
	if c.PropertyType != "" {
		u.PropertyType = domain.String(c.PropertyType)
	}
	if len(c.Images) > 0 {
		images := append([]string{}, c.Images...)
		u.Images = &images
	}
	if len(c.RawData) > 0 {
		u.RawData = c.RawData
	}
	return u
}

func (e *Engine) log(msg string, fields map[string]interface{}) {
	if e.logger != nil {
		e.logger.Error(msg, fields)
	}
}
