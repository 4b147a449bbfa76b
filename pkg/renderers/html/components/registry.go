package components

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-handyadmin/pkg/render"
	rendertemplate "github.com/goliatone/go-handyadmin/pkg/render/template"
)

// Renderer writes the HTML of one control into buf.
type Renderer func(buf *bytes.Buffer, field render.FieldView, data ComponentData) error

// ComponentData carries the template engine and theme overrides.
type ComponentData struct {
	Template rendertemplate.TemplateRenderer
	// Partials maps partial keys such as "forms.input" to template paths
	// supplied by the active theme.
	Partials map[string]string
}

// Descriptor bundles a renderer with the stylesheets it needs.
type Descriptor struct {
	Name        string
	Renderer    Renderer
	Stylesheets []string
}

// Registry tracks component descriptors keyed by name. Callers can register
// new components or override defaults.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		components: make(map[string]Descriptor),
	}
}

// Clone returns a copy of the registry to allow isolated mutations.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cloned := New()
	for name, descriptor := range r.components {
		cloned.components[name] = cloneDescriptor(descriptor)
	}
	return cloned
}

// Register associates a descriptor with the provided name. Existing entries
// are replaced.
func (r *Registry) Register(name string, descriptor Descriptor) error {
	if name = normalize(name); name == "" {
		return fmt.Errorf("components: component name is required")
	}
	if descriptor.Renderer == nil {
		return fmt.Errorf("components: renderer for %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	descriptor.Name = name
	r.components[name] = cloneDescriptor(descriptor)
	return nil
}

// MustRegister mirrors Register but panics on error.
func (r *Registry) MustRegister(name string, descriptor Descriptor) {
	if err := r.Register(name, descriptor); err != nil {
		panic(err)
	}
}

// Descriptor fetches a descriptor by name.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descriptor, ok := r.components[normalize(name)]
	if !ok {
		return Descriptor{}, false
	}
	return cloneDescriptor(descriptor), true
}

// Names returns a sorted slice of registered component names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Stylesheets aggregates the stylesheets of the named components without
// duplicates.
func (r *Registry) Stylesheets(names []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	seen := make(map[string]struct{})
	for _, name := range names {
		descriptor, ok := r.components[normalize(name)]
		if !ok {
			continue
		}
		for _, href := range descriptor.Stylesheets {
			if href == "" {
				continue
			}
			if _, exists := seen[href]; exists {
				continue
			}
			seen[href] = struct{}{}
			out = append(out, href)
		}
	}
	return out
}

// Render writes the control of field using the component its kind and input
// type select.
func (r *Registry) Render(buf *bytes.Buffer, field render.FieldView, data ComponentData) error {
	name, err := Resolve(field)
	if err != nil {
		return fmt.Errorf("components: %w", err)
	}
	descriptor, ok := r.Descriptor(name)
	if !ok {
		return fmt.Errorf("components: no component registered for %q", name)
	}
	return descriptor.Renderer(buf, field, data)
}

// Resolve picks the component name for a field.
func Resolve(field render.FieldView) (string, error) {
	var pick componentPicker
	if err := field.Accept(&pick); err != nil {
		return "", err
	}
	return pick.name, nil
}

type componentPicker struct{ name string }

func (p *componentPicker) VisitSelect(render.FieldView) error {
	p.name = NameSelect
	return nil
}

func (p *componentPicker) VisitInput(field render.FieldView) error {
	switch field.InputType {
	case "checkbox":
		p.name = NameCheckbox
	case "textarea":
		p.name = NameTextarea
	case "file":
		p.name = NameFile
	default:
		p.name = NameInput
	}
	return nil
}

func cloneDescriptor(src Descriptor) Descriptor {
	return Descriptor{
		Name:        src.Name,
		Renderer:    src.Renderer,
		Stylesheets: slices.Clone(src.Stylesheets),
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
