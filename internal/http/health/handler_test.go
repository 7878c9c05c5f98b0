package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"

	"github.com/janisto/greeter/internal/platform/readiness"
)

func newTestRouter(state Readiness) chi.Router {
	router := chi.NewRouter()
	api := humachi.New(router, huma.DefaultConfig("HealthTest", "test"))
	Register(api, state)
	return router
}

func TestHealthJSON(t *testing.T) {
	router := newTestRouter(readiness.New())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
	var h Response
	if err := json.Unmarshal(resp.Body.Bytes(), &h); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if h.Status != "healthy" {
		t.Fatalf("expected status 'healthy', got %s", h.Status)
	}
}

func TestHealthCBOR(t *testing.T) {
	router := newTestRouter(readiness.New())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Accept", "application/cbor")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if ct := resp.Header().Get("Content-Type"); ct != "application/cbor" {
		t.Fatalf("expected application/cbor, got %s", ct)
	}
	var h Response
	if err := cbor.Unmarshal(resp.Body.Bytes(), &h); err != nil {
		t.Fatalf("cbor unmarshal: %v", err)
	}
	if h.Status != "healthy" {
		t.Fatalf("expected status 'healthy', got %s", h.Status)
	}
}

func TestReadyFollowsState(t *testing.T) {
	state := readiness.New()
	router := newTestRouter(state)

	get := func() *httptest.ResponseRecorder {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/ready", nil))
		return resp
	}

	resp := get()
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before ready, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("expected problem details, got %q", ct)
	}

	state.SetReady(true)
	resp = get()
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 when ready, got %d", resp.Code)
	}
	var h Response
	if err := json.Unmarshal(resp.Body.Bytes(), &h); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if h.Status != "ready" {
		t.Fatalf("expected status 'ready', got %s", h.Status)
	}

	state.SetReady(false)
	if resp = get(); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after shutdown began, got %d", resp.Code)
	}
}
