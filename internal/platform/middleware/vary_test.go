package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVaryMiddlewareSetsHeader(t *testing.T) {
	h := Vary()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	if vary := resp.Header().Get("Vary"); vary != "Accept" {
		t.Fatalf("expected Vary: Accept, got %q", vary)
	}
}

func TestVaryMiddlewareKeepsExistingValues(t *testing.T) {
	h := Vary()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	resp := httptest.NewRecorder()
	resp.Header().Add("Vary", "Origin")
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	values := resp.Header().Values("Vary")
	if len(values) != 2 || values[0] != "Origin" || values[1] != "Accept" {
		t.Fatalf("expected [Origin Accept], got %v", values)
	}
}
