package render

import theme "github.com/goliatone/go-theme"

// RenderOptions describe per-request data that renderers can use to customise
// their output without mutating the view.
type RenderOptions struct {
	// Theme carries resolved tokens and CSS variables for the page shell.
	Theme *theme.RendererConfig
	// Partial skips the page chrome; handlers set it for fragment requests.
	Partial bool
}
