// ABOUTME: Configuration options for the aggregator client
// ABOUTME: Provides functional options pattern for flexible client configuration

package aggregator

import (
	"time"

	"listings-aggregator-api/core/fetch"
	"listings-aggregator-api/core/interfaces"
	"listings-aggregator-api/core/listing"
	"listings-aggregator-api/core/normalize"
	"listings-aggregator-api/core/reconcile"
	"listings-aggregator-api/core/registry"
	"listings-aggregator-api/pkg/featureflags"
)

// Option is a functional option for configuring the client
type Option func(*Config) error

// WithCache sets a custom cache implementation
func WithCache(cache interfaces.Cache) Option {
	return func(c *Config) error {
		c.Cache = cache
		return nil
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client interfaces.HTTPClient) Option {
	return func(c *Config) error {
		c.HTTPClient = client
		return nil
	}
}

// WithLogger sets a custom logger
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithStore sets the listing store
func WithStore(store interfaces.ListingStore) Option {
	return func(c *Config) error {
		c.Store = store
		return nil
	}
}

// WithSources replaces the default source catalogue
func WithSources(sources ...Source) Option {
	return func(c *Config) error {
		c.Sources = sources
		return nil
	}
}

// WithCredentialLookup sets how ${VAR} placeholders in source headers are resolved
func WithCredentialLookup(lookup registry.LookupFunc) Option {
	return func(c *Config) error {
		c.Lookup = lookup
		return nil
	}
}

// WithFetchPolicy sets timeouts and retries for upstream calls
func WithFetchPolicy(policy fetch.Policy) Option {
	return func(c *Config) error {
		if policy.Attempts < 1 {
			return NewError(ErrorTypeConfiguration, "fetch attempts must be at least 1").
				WithContext("attempts", policy.Attempts)
		}
		c.Service.Fetch = policy
		return nil
	}
}

// WithMergePolicy sets how absent optional fields are handled on update
func WithMergePolicy(policy reconcile.MergePolicy) Option {
	return func(c *Config) error {
		switch policy {
		case reconcile.PolicyOverwrite, reconcile.PolicyPreserveNonEmpty:
			c.Service.MergePolicy = policy
			return nil
		default:
			return NewError(ErrorTypeConfiguration, "invalid merge policy").
				WithContext("policy", string(policy))
		}
	}
}

// WithSyntheticIDMode sets how external ids are derived for records that lack one
func WithSyntheticIDMode(mode normalize.IDMode) Option {
	return func(c *Config) error {
		switch mode {
		case normalize.IDRandom, normalize.IDContent:
			c.Service.IDMode = mode
			return nil
		default:
			return NewError(ErrorTypeConfiguration, "invalid synthetic id mode").
				WithContext("mode", string(mode))
		}
	}
}

// WithCacheDuration sets how long stored data counts as fresh
func WithCacheDuration(d time.Duration) Option {
	return func(c *Config) error {
		c.Service.CacheDuration = d
		return nil
	}
}

// WithRefreshDeadline bounds one whole refresh pass
func WithRefreshDeadline(d time.Duration) Option {
	return func(c *Config) error {
		c.Service.RefreshDeadline = d
		return nil
	}
}

// WithFlags sets the feature flag manager
func WithFlags(manager featureflags.Manager) Option {
	return func(c *Config) error {
		c.Service.Flags = manager
		return nil
	}
}

// ListOption is a functional option for listing reads
type ListOption func(*ListOptions)

// ListOptions holds options for listing reads
type ListOptions struct {
	Pagination *PaginationOptions
}

// PaginationOptions holds pagination parameters
type PaginationOptions struct {
	Page         int
	ItemsPerPage int
}

// WithPagination sets pagination options
func WithPagination(page, itemsPerPage int) ListOption {
	return func(o *ListOptions) {
		o.Pagination = &PaginationOptions{
			Page:         page,
			ItemsPerPage: itemsPerPage,
		}
	}
}

// defaultConfig returns the default client configuration
func defaultConfig() Config {
	return Config{
		Cache:      DefaultMemoryCache(),
		HTTPClient: DefaultHTTPClient(),
		Logger:     QuietLogger(),
		Store:      DefaultMemoryStore(),
		Sources:    DefaultSources(),
		Service:    listing.DefaultConfig(),
	}
}
