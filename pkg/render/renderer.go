package render

import (
	"context"
)

// Renderer converts a FormView into a byte representation (HTML, a terminal
// session transcript, etc.).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, form FormView, options RenderOptions) ([]byte, error)
}

// PageRenderer is implemented by renderers that can also draw the console's
// tables, formsets and page chrome.
type PageRenderer interface {
	Renderer
	RenderTable(ctx context.Context, table TableView, options RenderOptions) ([]byte, error)
	RenderFormset(ctx context.Context, formset FormsetView, options RenderOptions) ([]byte, error)
	RenderPage(ctx context.Context, page PageView, options RenderOptions) ([]byte, error)
}

// Collector is implemented by interactive renderers that gather field values
// from a person instead of producing markup.
type Collector interface {
	Renderer
	Collect(ctx context.Context, form FormView) (map[string]any, error)
}
