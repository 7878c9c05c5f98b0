package greeting

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStaticLoad(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	src := &Static{Body: DefaultBody, now: func() time.Time { return fixed }}

	g, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.String() != "Hello from ArgoCD!" {
		t.Fatalf("unexpected body %q", g.String())
	}
	if g.ContentType() != "text/plain" {
		t.Fatalf("unexpected content type %q", g.ContentType())
	}
	if g.Source() != SourceStatic {
		t.Fatalf("unexpected source %q", g.Source())
	}
	if !g.LoadedAt().Equal(fixed) {
		t.Fatalf("unexpected loadedAt %v", g.LoadedAt())
	}
	if g.Len() != len(DefaultBody) {
		t.Fatalf("unexpected length %d", g.Len())
	}
}

func TestStaticLoadAllowsEmptyBody(t *testing.T) {
	g, err := NewStatic("").Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Len() != 0 {
		t.Fatalf("expected empty body, got %q", g.String())
	}
}

func TestStaticLoadVariantBody(t *testing.T) {
	g, err := NewStatic("Hello from ArgoCD! ArgoCD hello From!").Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.String() != "Hello from ArgoCD! ArgoCD hello From!" {
		t.Fatalf("unexpected body %q", g.String())
	}
}

func TestGreetingBodyIsImmutable(t *testing.T) {
	g := New("abc", SourceStatic, time.Now())

	b := g.Body()
	b[0] = 'x'

	if g.String() != "abc" {
		t.Fatalf("mutating a returned body changed the greeting: %q", g.String())
	}
}

func TestNewConvertsLoadedAtToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	g := New("x", SourceStatic, time.Date(2026, 1, 1, 12, 0, 0, 0, loc))
	if g.LoadedAt().Location() != time.UTC {
		t.Fatalf("expected UTC, got %v", g.LoadedAt().Location())
	}
}

func TestValidateDocumentPath(t *testing.T) {
	tests := []struct {
		path  string
		valid bool
	}{
		{"greetings/default", true},
		{"tenants/a/greetings/default", true},
		{"greetings", false},
		{"greetings/default/extra", false},
		{"greetings//", false},
		{"/default", false},
		{"", false},
	}
	for _, tt := range tests {
		err := ValidateDocumentPath(tt.path)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateDocumentPath(%q) error = %v, want valid=%v", tt.path, err, tt.valid)
		}
	}
}

func TestNewFirestoreSourceRejectsBadPath(t *testing.T) {
	if _, err := NewFirestoreSource(nil, "greetings"); err == nil {
		t.Fatal("expected error for collection-only path")
	}
}

func TestCategorizeError(t *testing.T) {
	if got := categorizeError(ErrNotFound); got != "not_found" {
		t.Fatalf("expected not_found, got %s", got)
	}
	if got := categorizeError(errors.New("boom")); got != "internal_error" {
		t.Fatalf("expected internal_error, got %s", got)
	}
}
