// ABOUTME: Aggregation outcome types summarizing one refresh pass
// ABOUTME: Failures are recorded per source so sibling sources are never hidden

package domain

import (
	"sort"
	"time"
)

// OutcomeKind classifies how a source fared in a refresh pass
type OutcomeKind string

const (
	OutcomeOK            OutcomeKind = "ok"
	OutcomeUnreachable   OutcomeKind = "unreachable"
	OutcomeRejected      OutcomeKind = "rejected"
	OutcomeMalformed     OutcomeKind = "malformed"
	OutcomeMisconfigured OutcomeKind = "misconfigured"
	OutcomeCanceled      OutcomeKind = "canceled"
)

// ReconcileResult counts what happened to one batch of candidates
type ReconcileResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// Add accumulates other into r
func (r *ReconcileResult) Add(other ReconcileResult) {
	r.Created += other.Created
	r.Updated += other.Updated
	r.Failed += other.Failed
}

// SourceOutcome is the result of fetching, normalizing and reconciling one source
type SourceOutcome struct {
	Source  string      `json:"source"`
	Kind    OutcomeKind `json:"kind"`
	Fetched int         `json:"fetched"`
	ReconcileResult
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// OK reports whether the source completed without a source-level failure
func (o SourceOutcome) OK() bool {
	return o.Kind == OutcomeOK
}

// RefreshSummary is the per-source outcome of one aggregation pass
type RefreshSummary struct {
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Sources    map[string]SourceOutcome `json:"sources"`
}

// Totals sums reconciliation counts across every source
func (s RefreshSummary) Totals() ReconcileResult {
	var total ReconcileResult
	for _, o := range s.Sources {
		total.Add(o.ReconcileResult)
	}
	return total
}

// Failed returns the names of sources that did not complete, sorted
func (s RefreshSummary) Failed() []string {
	var names []string
	for name, o := range s.Sources {
		if !o.OK() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// AnySucceeded reports whether at least one source completed
func (s RefreshSummary) AnySucceeded() bool {
	for _, o := range s.Sources {
		if o.OK() {
			return true
		}
	}
	return false
}

// Stats summarizes the contents of the store
type Stats struct {
	Total    int            `json:"total"`
	Active   int            `json:"active"`
	BySource map[string]int `json:"by_source"`

	// Storage holds backend details when the store reports them
	Storage map[string]interface{} `json:"storage,omitempty"`
}
