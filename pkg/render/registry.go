package render

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores renderers by name. The CLI registers the HTML renderer and
// the terminal renderer once, then serve looks up "html" and fill looks up
// "tui".
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		renderers: make(map[string]Renderer),
	}
}

// Register adds a renderer by its Name(). Duplicate names return an error.
func (r *Registry) Register(renderer Renderer) error {
	if renderer == nil {
		return fmt.Errorf("render: renderer is required")
	}
	name := renderer.Name()
	if name == "" {
		return fmt.Errorf("render: renderer name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.renderers[name]; exists {
		return fmt.Errorf("render: renderer %q already registered", name)
	}

	r.renderers[name] = renderer
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(renderer Renderer) {
	if err := r.Register(renderer); err != nil {
		panic(err)
	}
}

// Get retrieves a renderer by name.
func (r *Registry) Get(name string) (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	renderer, ok := r.renderers[name]
	if !ok {
		return nil, fmt.Errorf("render: renderer %q not found", name)
	}
	return renderer, nil
}

// Page retrieves a renderer that can also draw tables and pages.
func (r *Registry) Page(name string) (PageRenderer, error) {
	renderer, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	page, ok := renderer.(PageRenderer)
	if !ok {
		return nil, fmt.Errorf("render: renderer %q cannot render pages", name)
	}
	return page, nil
}

// Collector retrieves a renderer that can prompt for field values.
func (r *Registry) Collector(name string) (Collector, error) {
	renderer, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	collector, ok := renderer.(Collector)
	if !ok {
		return nil, fmt.Errorf("render: renderer %q cannot collect values", name)
	}
	return collector, nil
}

// List returns a sorted list of renderer names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.renderers))
	for name := range r.renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
