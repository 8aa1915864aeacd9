// ABOUTME: Main client for the aggregator library providing listing refresh and search
// ABOUTME: Offers a clean API for embedding the pipeline without the HTTP server

package aggregator

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"listings-aggregator-api/core/interfaces"
	"listings-aggregator-api/core/listing"
	"listings-aggregator-api/core/registry"
)

// Client is the main entry point for the aggregator library
type Client struct {
	service *listing.Service
	config  Config

	mu     sync.RWMutex
	closed bool
}

// Config holds the configuration for the client
type Config struct {
	Cache      interfaces.Cache
	HTTPClient interfaces.HTTPClient
	Logger     interfaces.Logger
	Store      interfaces.ListingStore

	// Sources is the upstream catalogue; headers may carry ${VAR} placeholders
	Sources []Source

	// Lookup resolves placeholders, os.LookupEnv when nil
	Lookup registry.LookupFunc

	Service listing.Config
}

// NewClient creates a new client with the given options
func NewClient(options ...Option) (*Client, error) {
	config := defaultConfig()

	for _, opt := range options {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	lookup := config.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	deps := interfaces.Dependencies{
		Cache:      config.Cache,
		HTTPClient: config.HTTPClient,
		Logger:     config.Logger,
		Store:      config.Store,
	}

	return &Client{
		service: listing.NewService(deps, registry.New(config.Sources, lookup), config.Service),
		config:  config,
	}, nil
}

// Close releases the store. Further calls return ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if closer, ok := c.config.Store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

// Sources returns the registered source descriptors
func (c *Client) Sources() []Source {
	return c.service.Sources()
}

// Refresh runs one aggregation pass over every source
func (c *Client) Refresh(ctx context.Context) (RefreshSummary, error) {
	if err := c.checkOpen(); err != nil {
		return RefreshSummary{}, err
	}
	return c.service.FetchAndReconcileAll(ctx), nil
}

// Listings returns active listings, refreshing first when the store is empty or stale
func (c *Client) Listings(ctx context.Context, opts ...ListOption) ([]*Listing, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	listings, err := c.service.GetAllActive(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return paginate(listings, opts), nil
}

// Search filters stored listings by the given criteria
func (c *Client) Search(ctx context.Context, criteria Criteria, opts ...ListOption) ([]*Listing, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	listings, err := c.service.Search(ctx, criteria)
	if err != nil {
		return nil, translate(err)
	}
	return paginate(listings, opts), nil
}

// Get returns one listing by id, including soft-deleted ones
func (c *Client) Get(ctx context.Context, id string) (*Listing, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	l, err := c.service.GetByID(ctx, id)
	return l, translate(err)
}

// Health probes every source concurrently
func (c *Client) Health(ctx context.Context) (map[string]HealthReport, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	return c.service.HealthCheckAll(ctx), nil
}

// Stats summarizes the store and reports the last successful refresh, if still fresh
func (c *Client) Stats(ctx context.Context) (Stats, time.Time, error) {
	if err := c.checkOpen(); err != nil {
		return Stats{}, time.Time{}, err
	}
	stats, err := c.service.Stats(ctx)
	if err != nil {
		return Stats{}, time.Time{}, translate(err)
	}
	at, _ := c.service.LastRefresh(ctx)
	return stats, at, nil
}

// Purge physically removes every listing from source
func (c *Client) Purge(ctx context.Context, source string) (int, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	n, err := c.service.PurgeSource(ctx, source)
	return n, translate(err)
}

// Service exposes the underlying listing service for mounting the HTTP API
func (c *Client) Service() *listing.Service {
	return c.service
}

func paginate(listings []*Listing, opts []ListOption) []*Listing {
	var options ListOptions
	for _, opt := range opts {
		opt(&options)
	}
	p := options.Pagination
	if p == nil || p.ItemsPerPage <= 0 {
		return listings
	}

	page := p.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * p.ItemsPerPage
	if start >= len(listings) {
		return []*Listing{}
	}
	end := start + p.ItemsPerPage
	if end > len(listings) {
		end = len(listings)
	}
	return listings[start:end]
}

// validateConfig validates the client configuration
func validateConfig(config *Config) error {
	if config.HTTPClient == nil {
		return NewError(ErrorTypeConfiguration, "HTTP client is required")
	}
	if config.Cache == nil {
		return NewError(ErrorTypeConfiguration, "cache is required")
	}
	if config.Logger == nil {
		return NewError(ErrorTypeConfiguration, "logger is required")
	}
	if config.Store == nil {
		return NewError(ErrorTypeConfiguration, "store is required")
	}
	return nil
}
