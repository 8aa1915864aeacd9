// ABOUTME: Health handler reports service liveness and per-source probe results
// ABOUTME: Probes run on every request unless the cached snapshot is requested

package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"listings-aggregator-api/api/dto/mappers"
	"listings-aggregator-api/api/dto/responses"
	"listings-aggregator-api/core/domain"
)

// HealthService defines the methods needed from the listing service
type HealthService interface {
	HealthCheckAll(ctx context.Context) map[string]domain.HealthReport
	LastHealth(ctx context.Context) map[string]domain.HealthReport
}

// HealthHandler handles health requests
type HealthHandler struct {
	service HealthService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service HealthService) *HealthHandler {
	return &HealthHandler{service: service}
}

// RegisterRoutes registers the health route
func (h *HealthHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Service and source health",
		Tags:        []string{"Health"},
	}, h.Health)
}

// HealthInput defines the input for Health
type HealthInput struct {
	Cached bool `query:"cached" doc:"Return the last probe per source instead of probing now"`
}

// HealthOutput defines the output for Health
type HealthOutput struct {
	Body responses.HealthEnvelope
}

// Health handles GET /health
func (h *HealthHandler) Health(ctx context.Context, input *HealthInput) (*HealthOutput, error) {
	var reports map[string]domain.HealthReport
	if input.Cached {
		reports = h.service.LastHealth(ctx)
	} else {
		reports = h.service.HealthCheckAll(ctx)
	}
	return &HealthOutput{Body: mappers.ToHealthEnvelope(reports)}, nil
}
