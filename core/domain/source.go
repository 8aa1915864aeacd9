// ABOUTME: Source descriptor and health types for upstream listing providers
// ABOUTME: Descriptors are opaque to the core beyond what the fetch path needs

package domain

import "time"

// Source describes one upstream listing provider
type Source struct {
	// Name identifies the source and is stamped on every listing it produces
	Name string `json:"name"`

	// URL is the endpoint queried on every fetch and health probe
	URL string `json:"url"`

	// Headers are sent with every request, credentials already resolved
	Headers map[string]string `json:"-"`

	// Params are encoded as the request query string
	Params map[string]string `json:"params,omitempty"`

	// ListKey is an optional response-shape hint: the object key holding the
	// listing collection, tried before the built-in keys
	ListKey string `json:"list_key,omitempty"`

	// IDField is an optional payload key holding the listing identity,
	// tried before the built-in identity keys
	IDField string `json:"id_field,omitempty"`
}

// HealthStatus is the tri-state result of probing a source
type HealthStatus string

const (
	// HealthHealthy means the source answered with a 2xx status
	HealthHealthy HealthStatus = "healthy"

	// HealthError means the source answered but rejected the request,
	// or the source is misconfigured
	HealthError HealthStatus = "error"

	// HealthUnavailable means the source could not be reached in time
	HealthUnavailable HealthStatus = "unavailable"
)

// HealthReport is the most recent probe result for one source
type HealthReport struct {
	Source    string       `json:"source"`
	Status    HealthStatus `json:"status"`
	Detail    string       `json:"detail,omitempty"`
	CheckedAt time.Time    `json:"checked_at"`
}
