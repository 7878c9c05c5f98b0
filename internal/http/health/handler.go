// Package health exposes liveness and readiness probes on the ops API.
package health

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Readiness reports whether the greeter is serving.
type Readiness interface {
	Ready() bool
}

// Response is the body returned by the health endpoints.
type Response struct {
	Status string `json:"status" doc:"Probe result" example:"healthy"`
}

// Output wraps Response for huma.
type Output struct {
	Body Response
}

// Register adds GET /health and GET /ready.
func Register(api huma.API, state Readiness) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Liveness probe",
		Tags:        []string{"Health"},
	}, func(context.Context, *struct{}) (*Output, error) {
		return &Output{Body: Response{Status: "healthy"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-ready",
		Method:      http.MethodGet,
		Path:        "/ready",
		Summary:     "Readiness probe",
		Description: "Returns 200 while the greeter listener is serving and 503 before startup completes or during shutdown.",
		Tags:        []string{"Health"},
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(context.Context, *struct{}) (*Output, error) {
		if !state.Ready() {
			return nil, huma.Error503ServiceUnavailable("greeter is not ready")
		}
		return &Output{Body: Response{Status: "ready"}}, nil
	})
}
