// Package greeter serves the configured greeting on every path.
package greeter

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/janisto/greeter/internal/greeting"
	applog "github.com/janisto/greeter/internal/platform/logging"
	appmiddleware "github.com/janisto/greeter/internal/platform/middleware"
	"github.com/janisto/greeter/internal/platform/respond"
)

type options struct {
	accessLog bool
	rateLimit float64
	rateBurst int
}

// Option configures NewHandler.
type Option func(*options)

// WithAccessLog enables one log line per request.
func WithAccessLog(enabled bool) Option {
	return func(o *options) { o.accessLog = enabled }
}

// WithRateLimit caps the process-wide request rate. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		o.rateLimit = rps
		o.rateBurst = burst
	}
}

// NewHandler returns a handler answering GET and HEAD on any path with g.
// Other methods get 405.
func NewHandler(g greeting.Greeting, opts ...Option) http.Handler {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	stack := []func(http.Handler) http.Handler{
		appmiddleware.Security(),
		appmiddleware.CORS(http.MethodGet, http.MethodHead),
		appmiddleware.RequestID(),
		applog.RequestLogger(),
	}
	if o.accessLog {
		stack = append(stack, applog.AccessLogger())
	}
	stack = append(stack,
		appmiddleware.RateLimit(o.rateLimit, o.rateBurst),
		respond.Recoverer(),
	)
	router.Use(stack...)

	serve := serveGreeting(g)
	router.Get("/*", serve)
	router.Head("/*", serve)
	return router
}

func serveGreeting(g greeting.Greeting) http.HandlerFunc {
	body := g.Body()
	length := strconv.Itoa(len(body))
	contentType := g.ContentType()
	return func(w http.ResponseWriter, _ *http.Request) {
		h := w.Header()
		h.Set("Content-Type", contentType)
		h.Set("Content-Length", length)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}
