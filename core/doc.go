// Package core contains the business logic for the Listings Aggregator API.
// It is designed to be framework-agnostic and can be used independently
// of any web framework or infrastructure concerns.
//
// The core package is organized into several sub-packages:
//
// - domain: Pure domain models (Listing, Source, outcomes, health reports)
// - registry: The immutable source catalogue with resolved credentials
// - fetch: Bounded, retrying upstream fetches and health probes
// - normalize: Provider payloads to canonical listing candidates
// - reconcile: Create-or-update against the store, serialized per external identity
// - query: Search criteria parsing, validation and execution
// - health: Concurrent source probes and the last-known snapshot
// - listing: The service that drives aggregation passes and answers reads
// - errors: Custom error types for better error handling
// - interfaces: Contracts for external dependencies (cache, HTTP, logger, store)
//
// # Design Principles
//
// The core package follows clean architecture principles:
// - No external framework dependencies
// - All external dependencies are injected via interfaces
// - Business logic is testable in isolation
// - A failing source is reported, never allowed to hide the others
//
// # Usage Example
//
//	import (
//	    "listings-aggregator-api/core/interfaces"
//	    "listings-aggregator-api/core/listing"
//	    "listings-aggregator-api/core/registry"
//	)
//
//	deps := interfaces.Dependencies{
//	    Cache:      myCache,      // implements interfaces.Cache
//	    HTTPClient: myHTTPClient, // implements interfaces.HTTPClient
//	    Logger:     myLogger,     // implements interfaces.Logger
//	    Store:      myStore,      // implements interfaces.ListingStore
//	}
//
//	reg := registry.New(sources, os.LookupEnv)
//	svc := listing.NewService(deps, reg, listing.DefaultConfig())
//
//	summary := svc.FetchAndReconcileAll(ctx)
//	results, err := svc.Search(ctx, map[string]string{"city": "austin"})
package core
