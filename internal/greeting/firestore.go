package greeting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	applog "github.com/janisto/greeter/internal/platform/logging"
)

// DefaultDocument is the Firestore document read when none is configured.
const DefaultDocument = "greetings/default"

// firestoreGreeting maps to the stored document.
type firestoreGreeting struct {
	Body      string    `firestore:"body"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// FirestoreSource reads the greeting body from a single Firestore document.
type FirestoreSource struct {
	client *firestore.Client
	path   string
}

// NewFirestoreSource returns a source reading the "collection/doc" at path.
func NewFirestoreSource(client *firestore.Client, path string) (*FirestoreSource, error) {
	if err := ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	return &FirestoreSource{client: client, path: path}, nil
}

// ValidateDocumentPath checks that path has an even, non-zero number of non-empty segments.
func ValidateDocumentPath(path string) error {
	parts := strings.Split(path, "/")
	if len(parts) < 2 || len(parts)%2 != 0 {
		return fmt.Errorf("document path %q must be collection/doc", path)
	}
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("document path %q has an empty segment", path)
		}
	}
	return nil
}

func categorizeError(err error) string {
	if errors.Is(err, ErrNotFound) {
		return "not_found"
	}
	return "internal_error"
}

// Load implements Source.
func (s *FirestoreSource) Load(ctx context.Context) (Greeting, error) {
	g, err := s.load(ctx)
	if err != nil {
		applog.LogAuditEvent(ctx, applog.AuditEvent{
			Action:       "load",
			Actor:        "system",
			ResourceType: "greeting",
			ResourceID:   s.path,
			Result:       "failure",
			Details:      map[string]any{"error": categorizeError(err)},
		})
		return Greeting{}, err
	}
	applog.LogAuditEvent(ctx, applog.AuditEvent{
		Action:       "load",
		Actor:        "system",
		ResourceType: "greeting",
		ResourceID:   s.path,
		Result:       "success",
	})
	return g, nil
}

func (s *FirestoreSource) load(ctx context.Context) (Greeting, error) {
	doc, err := s.client.Doc(s.path).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Greeting{}, fmt.Errorf("%s: %w", s.path, ErrNotFound)
		}
		return Greeting{}, fmt.Errorf("read %s: %w", s.path, err)
	}

	var fg firestoreGreeting
	if err := doc.DataTo(&fg); err != nil {
		return Greeting{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if fg.Body == "" {
		return Greeting{}, fmt.Errorf("%s has no body: %w", s.path, ErrNotFound)
	}
	return New(fg.Body, SourceFirestore, time.Now()), nil
}

// Put stores body at the source's document. Used to seed environments.
func (s *FirestoreSource) Put(ctx context.Context, body string) error {
	_, err := s.client.Doc(s.path).Set(ctx, firestoreGreeting{Body: body, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

var _ Source = (*FirestoreSource)(nil)
