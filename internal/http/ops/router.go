// Package ops builds the admin router: probes, greeting metadata and API docs.
package ops

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"

	"github.com/janisto/greeter/internal/http/v1/routes"
	applog "github.com/janisto/greeter/internal/platform/logging"
	appmiddleware "github.com/janisto/greeter/internal/platform/middleware"
	"github.com/janisto/greeter/internal/platform/respond"
)

const docsPath = "/api-docs"

// NewRouter returns the ops API handler.
func NewRouter(deps routes.Deps) http.Handler {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())
	router.Use(
		appmiddleware.Security(docsPath),
		appmiddleware.Vary(),
		appmiddleware.RequestID(),
		applog.RequestLogger(),
		respond.Recoverer(),
	)

	cfg := huma.DefaultConfig("Greeter Ops API", deps.Version)
	cfg.DocsPath = docsPath
	api := humachi.New(router, cfg)
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation, advertiseCBOR)

	routes.Register(api, deps)
	return router
}

// advertiseCBOR documents application/cbor wherever JSON is offered.
func advertiseCBOR(_ *huma.OpenAPI, op *huma.Operation) {
	if op.RequestBody != nil && op.RequestBody.Content != nil {
		if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
			op.RequestBody.Content["application/cbor"] = jsonContent
		}
	}
	for _, resp := range op.Responses {
		if resp.Content == nil {
			continue
		}
		if jsonContent, ok := resp.Content["application/json"]; ok {
			resp.Content["application/cbor"] = jsonContent
		}
	}
}
