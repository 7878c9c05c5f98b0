package greeting

import "github.com/janisto/greeter/internal/platform/timeutil"

// Data describes the payload the greeter port is serving.
type Data struct {
	Body        string        `json:"body"        doc:"Exact response body served on the greeter port" example:"Hello from ArgoCD!"`
	ContentType string        `json:"contentType" doc:"Content-Type of greeter responses"             example:"text/plain"`
	Length      int           `json:"length"      doc:"Body size in bytes"                            example:"18"`
	Source      string        `json:"source"      doc:"Where the greeting was loaded from"            enum:"static,firestore"`
	LoadedAt    timeutil.Time `json:"loadedAt"    doc:"When the greeting was resolved"                example:"2024-01-15T10:30:00.000Z"`
	Version     string        `json:"version"     doc:"Server build version"                          example:"dev"`
}

// GetOutput wraps Data for huma.
type GetOutput struct {
	Body Data
}
