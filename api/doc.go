// Package api provides the HTTP API layer for the listings aggregator.
// It uses the Huma framework to provide automatic OpenAPI documentation,
// request validation, and a clean handler interface.
//
// # Architecture
//
//   - server.go: Huma API configuration and setup
//   - handlers/: HTTP request handlers
//   - dto/: Data Transfer Objects for requests and responses
//   - middleware/: request logging, rate limiting and feature flags
//
// # Usage Example
//
//	humaAPI, router := api.NewAPIWithMiddleware(api.APIConfig{
//	    Logger:    logger,
//	    Flags:     featureflags.NewEnvManager(""),
//	    RateLimit: 5,
//	    RateBurst: 10,
//	})
//	api.RegisterRoutes(humaAPI, listingService)
//	http.ListenAndServe(":4000", router)
//
// # Error Handling
//
// Errors use the RFC 7807 problem format. Validation errors map to 400 with
// one entry per problem, missing listings to 404, and anything else to 500.
package api
