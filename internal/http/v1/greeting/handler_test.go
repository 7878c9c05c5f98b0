package greeting

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	domain "github.com/janisto/greeter/internal/greeting"
	applog "github.com/janisto/greeter/internal/platform/logging"
	appmiddleware "github.com/janisto/greeter/internal/platform/middleware"
	"github.com/janisto/greeter/internal/platform/respond"
)

var loadedAt = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func newTestRouter() chi.Router {
	router := chi.NewRouter()
	router.Use(
		appmiddleware.RequestID(),
		applog.RequestLogger(),
		respond.Recoverer(),
	)
	api := humachi.New(router, huma.DefaultConfig("GreetingTest", "test"))
	Register(api, domain.New("Hello from ArgoCD!", domain.SourceStatic, loadedAt), "1.2.3")
	return router
}

func TestGetJSON(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/greeting", nil)
	req.Header.Set(chimiddleware.RequestIDHeader, "greeting-get-json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}

	var got Data
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if got.Body != "Hello from ArgoCD!" || got.ContentType != "text/plain" || got.Length != 18 {
		t.Errorf("unexpected payload description %+v", got)
	}
	if got.Source != "static" || got.Version != "1.2.3" {
		t.Errorf("unexpected source/version %+v", got)
	}
	if !got.LoadedAt.Equal(loadedAt) {
		t.Errorf("expected loadedAt %v, got %v", loadedAt, got.LoadedAt.Time)
	}

	var raw map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &raw); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if raw["loadedAt"] != "2024-01-15T10:30:00.000Z" {
		t.Errorf("expected millisecond timestamp, got %v", raw["loadedAt"])
	}
}

func TestGetCBOR(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/greeting", nil)
	req.Header.Set("Accept", "application/cbor")
	req.Header.Set(chimiddleware.RequestIDHeader, "greeting-get-cbor")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/cbor" {
		t.Errorf("expected application/cbor, got %s", ct)
	}

	var got Data
	if err := cbor.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("cbor unmarshal: %v", err)
	}
	if got.Body != "Hello from ArgoCD!" {
		t.Errorf("expected greeting body, got %q", got.Body)
	}
	if !got.LoadedAt.Equal(loadedAt) {
		t.Errorf("expected loadedAt %v, got %v", loadedAt, got.LoadedAt.Time)
	}
}

func TestPostNotAllowed(t *testing.T) {
	router := newTestRouter()

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/greeting", nil))

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}
