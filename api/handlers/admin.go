// ABOUTME: Admin handlers for destructive maintenance operations
// ABOUTME: Every route is refused unless the admin_enabled feature flag is on

package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"listings-aggregator-api/api/dto/responses"
	"listings-aggregator-api/pkg/featureflags"
)

// AdminService defines the methods needed from the listing service
type AdminService interface {
	PurgeSource(ctx context.Context, source string) (int, error)
}

// AdminHandler handles admin requests
type AdminHandler struct {
	service AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(service AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

// RegisterRoutes registers admin routes
func (h *AdminHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "purgeSource",
		Method:      http.MethodDelete,
		Path:        "/admin/sources/{source}",
		Summary:     "Purge a source",
		Description: "Physically removes every listing produced by the source",
		Tags:        []string{"Admin"},
	}, h.PurgeSource)
}

// PurgeSourceInput defines the input for PurgeSource
type PurgeSourceInput struct {
	Source string `path:"source" doc:"Source name"`
}

// PurgeSourceOutput defines the output for PurgeSource
type PurgeSourceOutput struct {
	Body responses.PurgeEnvelope
}

// PurgeSource handles DELETE /admin/sources/{source}
func (h *AdminHandler) PurgeSource(ctx context.Context, input *PurgeSourceInput) (*PurgeSourceOutput, error) {
	if !featureflags.IsEnabled(ctx, featureflags.AdminEnabled) {
		return nil, huma.Error403Forbidden("admin endpoints are disabled")
	}

	deleted, err := h.service.PurgeSource(ctx, input.Source)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &PurgeSourceOutput{
		Body: responses.PurgeEnvelope{
			Success: true,
			Data:    responses.PurgeResponse{Source: input.Source, Deleted: deleted},
		},
	}, nil
}
