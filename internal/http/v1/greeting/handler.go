// Package greeting exposes the served greeting as structured data.
package greeting

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/janisto/greeter/internal/greeting"
	"github.com/janisto/greeter/internal/platform/timeutil"
)

// Register adds GET /greeting. g is captured by value and never changes.
func Register(api huma.API, g domain.Greeting, version string) {
	data := Data{
		Body:        g.String(),
		ContentType: g.ContentType(),
		Length:      g.Len(),
		Source:      g.Source(),
		LoadedAt:    timeutil.NewTime(g.LoadedAt()),
		Version:     version,
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-greeting",
		Method:      http.MethodGet,
		Path:        "/greeting",
		Summary:     "Describe the served greeting",
		Tags:        []string{"Greeting"},
	}, func(context.Context, *struct{}) (*GetOutput, error) {
		return &GetOutput{Body: data}, nil
	})
}
