// Package greeting resolves the immutable payload served by the greeter.
package greeting

import (
	"context"
	"errors"
	"time"
)

// ContentType is the media type of every greeting response.
const ContentType = "text/plain"

// DefaultBody is served when no greeting is configured.
const DefaultBody = "Hello from ArgoCD!"

// Source kinds.
const (
	SourceStatic    = "static"
	SourceFirestore = "firestore"
)

// ErrNotFound is returned when a stored greeting does not exist or has no body.
var ErrNotFound = errors.New("greeting not found")

// Greeting is resolved once at startup and never mutated afterwards.
type Greeting struct {
	body     []byte
	source   string
	loadedAt time.Time
}

// New returns a Greeting holding a private copy of body.
func New(body, source string, loadedAt time.Time) Greeting {
	return Greeting{body: []byte(body), source: source, loadedAt: loadedAt.UTC()}
}

// Body returns a copy of the payload bytes.
func (g Greeting) Body() []byte {
	return append([]byte(nil), g.body...)
}

// String returns the payload as text.
func (g Greeting) String() string {
	return string(g.body)
}

// Len is the payload size in bytes.
func (g Greeting) Len() int {
	return len(g.body)
}

// ContentType returns the payload media type.
func (g Greeting) ContentType() string {
	return ContentType
}

// Source names where the payload came from.
func (g Greeting) Source() string {
	return g.source
}

// LoadedAt is when the payload was resolved.
func (g Greeting) LoadedAt() time.Time {
	return g.loadedAt
}

// Source loads the greeting. It is called once, before the listener binds.
type Source interface {
	Load(ctx context.Context) (Greeting, error)
}

// Static serves a literal configured body.
type Static struct {
	Body string
	now  func() time.Time
}

// NewStatic returns a Static source for body.
func NewStatic(body string) *Static {
	return &Static{Body: body, now: time.Now}
}

// Load implements Source. An empty body is allowed.
func (s *Static) Load(_ context.Context) (Greeting, error) {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	return New(s.Body, SourceStatic, now()), nil
}

var _ Source = (*Static)(nil)
