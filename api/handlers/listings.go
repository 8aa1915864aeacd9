// ABOUTME: Listing handlers for the Huma API
// ABOUTME: Provides HTTP endpoints for reading, searching and refreshing listings

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"listings-aggregator-api/api/dto/mappers"
	"listings-aggregator-api/api/dto/requests"
	"listings-aggregator-api/api/dto/responses"
	"listings-aggregator-api/core/domain"
)

// ListingService defines the methods needed from the listing service
type ListingService interface {
	GetAllActive(ctx context.Context) ([]*domain.Listing, error)
	Search(ctx context.Context, criteria map[string]string) ([]*domain.Listing, error)
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	RefreshListings(ctx context.Context) domain.RefreshSummary
	Stats(ctx context.Context) (domain.Stats, error)
	LastRefresh(ctx context.Context) (time.Time, bool)
}

// ListingHandler handles listing-related HTTP requests
type ListingHandler struct {
	service ListingService
}

// NewListingHandler creates a new listing handler
func NewListingHandler(service ListingService) *ListingHandler {
	return &ListingHandler{service: service}
}

// RegisterRoutes registers all listing-related routes.
// Static paths are registered before /listings/{id} so every router resolves them first.
func (h *ListingHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listListings",
		Method:      http.MethodGet,
		Path:        "/listings",
		Summary:     "List active listings",
		Description: "Returns every active listing, most recent first. An empty or stale store is refreshed first.",
		Tags:        []string{"Listings"},
	}, h.ListListings)

	huma.Register(api, huma.Operation{
		OperationID: "searchListings",
		Method:      http.MethodGet,
		Path:        "/listings/search",
		Summary:     "Search listings",
		Description: "Filters listings by location, price, rooms and property type. All filters are combined with AND.",
		Tags:        []string{"Listings"},
	}, h.SearchListings)

	huma.Register(api, huma.Operation{
		OperationID: "refreshListings",
		Method:      http.MethodPost,
		Path:        "/listings/refresh",
		Summary:     "Refresh listings",
		Description: "Fetches every source and reconciles the results into the store",
		Tags:        []string{"Listings"},
	}, h.RefreshListings)

	huma.Register(api, huma.Operation{
		OperationID: "getListing",
		Method:      http.MethodGet,
		Path:        "/listings/{id}",
		Summary:     "Get a listing",
		Tags:        []string{"Listings"},
	}, h.GetListing)

	huma.Register(api, huma.Operation{
		OperationID: "getStats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Store statistics",
		Tags:        []string{"Listings"},
	}, h.GetStats)
}

// ListingsOutput is the output for list and search operations
type ListingsOutput struct {
	Body responses.ListingsEnvelope
}

// ListListings handles GET /listings
func (h *ListingHandler) ListListings(ctx context.Context, _ *struct{}) (*ListingsOutput, error) {
	listings, err := h.service.GetAllActive(ctx)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &ListingsOutput{Body: mappers.ToListingsEnvelope(listings)}, nil
}

// SearchListings handles GET /listings/search
func (h *ListingHandler) SearchListings(ctx context.Context, input *requests.SearchQuery) (*ListingsOutput, error) {
	listings, err := h.service.Search(ctx, input.Criteria())
	if err != nil {
		return nil, toHumaError(err)
	}
	return &ListingsOutput{Body: mappers.ToListingsEnvelope(listings)}, nil
}

// GetListingInput defines the input for GetListing
type GetListingInput struct {
	ID string `path:"id" doc:"Listing identifier"`
}

// GetListingOutput defines the output for GetListing
type GetListingOutput struct {
	Body responses.ListingEnvelope
}

// GetListing handles GET /listings/{id}
func (h *ListingHandler) GetListing(ctx context.Context, input *GetListingInput) (*GetListingOutput, error) {
	listing, err := h.service.GetByID(ctx, input.ID)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &GetListingOutput{
		Body: responses.ListingEnvelope{Success: true, Data: *mappers.ToListingResponse(listing)},
	}, nil
}

// RefreshOutput defines the output for RefreshListings
type RefreshOutput struct {
	Body responses.RefreshEnvelope
}

// RefreshListings handles POST /listings/refresh
func (h *ListingHandler) RefreshListings(ctx context.Context, _ *struct{}) (*RefreshOutput, error) {
	summary := h.service.RefreshListings(ctx)
	return &RefreshOutput{Body: mappers.ToRefreshEnvelope(summary)}, nil
}

// StatsOutput defines the output for GetStats
type StatsOutput struct {
	Body responses.StatsEnvelope
}

// GetStats handles GET /stats
func (h *ListingHandler) GetStats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	stats, err := h.service.Stats(ctx)
	if err != nil {
		return nil, toHumaError(err)
	}
	at, fresh := h.service.LastRefresh(ctx)
	return &StatsOutput{Body: mappers.ToStatsEnvelope(stats, at, fresh)}, nil
}
