// ABOUTME: Dependencies container provides dependency injection for core services
// ABOUTME: Defines the contract for dependencies required by the core business logic

package interfaces

// Dependencies holds all external dependencies required by the core business logic
type Dependencies struct {
	// Cache holds the refresh marker and health snapshots
	Cache Cache

	// HTTPClient performs single upstream requests
	HTTPClient HTTPClient

	// Logger provides structured logging
	Logger Logger

	// Store is the canonical listing store
	Store ListingStore
}
