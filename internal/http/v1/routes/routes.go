package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/greeter/internal/greeting"
	"github.com/janisto/greeter/internal/http/health"
	greetinghandler "github.com/janisto/greeter/internal/http/v1/greeting"
)

// Deps are the values the ops API reports on.
type Deps struct {
	Greeting  greeting.Greeting
	Version   string
	Readiness health.Readiness
}

// Register wires the probes at the root and versioned routes under /v1.
func Register(api huma.API, deps Deps) {
	health.Register(api, deps.Readiness)

	v1 := huma.NewGroup(api, "/v1")
	greetinghandler.Register(v1, deps.Greeting, deps.Version)
}
