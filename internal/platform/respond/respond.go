// Package respond writes plaintext error responses and recovers handler panics.
package respond

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	applog "github.com/janisto/greeter/internal/platform/logging"
)

const (
	msgNotFound         = "not found"
	msgMethodNotAllowed = "method not allowed"
	msgInternalError    = "internal server error"
)

// candidateMethods is probed, in order, when building the Allow header.
var candidateMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// Text writes msg followed by a newline as a text/plain response.
func Text(w http.ResponseWriter, status int, msg string) {
	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = fmt.Fprintln(w, msg)
}

// NotFoundHandler answers unmatched paths with a plaintext 404.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logStatus(r.Context(), http.StatusNotFound, msgNotFound, nil, zap.String("path", r.URL.Path))
		Text(w, http.StatusNotFound, msgNotFound)
	}
}

// MethodNotAllowedHandler answers with 405 and an Allow header listing the
// methods chi can route for the requested path.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		allow := allowedMethods(r)
		if len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
		}
		logStatus(r.Context(), http.StatusMethodNotAllowed, msgMethodNotAllowed, nil,
			zap.String("method", r.Method), zap.String("path", r.URL.Path))
		Text(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	}
}

// Recoverer converts panics into plaintext 500 responses. http.ErrAbortHandler
// is re-panicked so net/http can abort the connection. Nothing is written when
// the handler already sent a status line.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				var err error
				switch v := rec.(type) {
				case error:
					err = v
				default:
					err = fmt.Errorf("%v", v)
				}
				logStatus(r.Context(), http.StatusInternalServerError, "panic recovered", err,
					zap.ByteString("stack", debug.Stack()))
				if !rw.wroteHeader {
					Text(rw, http.StatusInternalServerError, msgInternalError)
				}
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

// responseWriter records whether the status line has been sent.
type responseWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// allowedMethods inspects chi's routing context to discover allowed methods.
func allowedMethods(r *http.Request) []string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return nil
	}

	routePath := rctx.RoutePath
	if routePath == "" {
		routePath = r.URL.RawPath
		if routePath == "" {
			routePath = r.URL.Path
		}
		if routePath == "" {
			routePath = "/"
		}
	}

	allowed := make([]string, 0, len(candidateMethods))
	for _, method := range candidateMethods {
		if rctx.Routes.Match(chi.NewRouteContext(), method, routePath) {
			allowed = append(allowed, method)
		}
	}
	return allowed
}

// logStatus logs server errors at error severity. Client errors stay at debug
// so a stray POST does not add lines to stdout.
func logStatus(ctx context.Context, status int, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Int("status", status))
	if status >= 500 {
		applog.LogError(ctx, msg, err, fields...)
		return
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	applog.LoggerFromContext(ctx).Debug(msg, fields...)
}
