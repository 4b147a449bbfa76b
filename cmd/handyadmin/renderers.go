package main

import (
	"fmt"
	"io"

	"github.com/goliatone/go-handyadmin/pkg/render"
	"github.com/goliatone/go-handyadmin/pkg/renderers/html"
	"github.com/goliatone/go-handyadmin/pkg/renderers/tui"
)

// newRenderers registers the HTML and terminal renderers. Terminal prompts are
// written to prompts.
func newRenderers(prompts io.Writer) (*render.Registry, error) {
	pages, err := html.New()
	if err != nil {
		return nil, fmt.Errorf("failed to build html renderer: %w", err)
	}
	terminal, err := tui.New(tui.WithOutput(prompts))
	if err != nil {
		return nil, fmt.Errorf("failed to build terminal renderer: %w", err)
	}

	reg := render.NewRegistry()
	for _, renderer := range []render.Renderer{pages, terminal} {
		if err := reg.Register(renderer); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
