// ABOUTME: Error handling utilities for API handlers
// ABOUTME: Converts domain errors to appropriate HTTP responses

package handlers

import (
	stderrors "errors"

	"github.com/danielgtaylor/huma/v2"

	"listings-aggregator-api/core/errors"
)

// toHumaError converts domain errors to appropriate Huma HTTP errors
func toHumaError(err error) error {
	if err == nil {
		return nil
	}

	if errors.IsNotFound(err) {
		return huma.Error404NotFound(err.Error())
	}

	var verr *errors.ValidationError
	if stderrors.As(err, &verr) {
		details := make([]error, 0, len(verr.Problems))
		for _, p := range verr.Problems {
			details = append(details, &huma.ErrorDetail{Message: p, Location: "query"})
		}
		return huma.Error400BadRequest(err.Error(), details...)
	}

	return huma.Error500InternalServerError("Internal server error", err)
}
