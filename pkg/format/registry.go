package format

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry resolves formatters by name. Catalog loaders consult it while
// building field schemas.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
}

// NewRegistry constructs a registry with the built-in formatters registered.
func NewRegistry() *Registry {
	reg := &Registry{formatters: make(map[string]Formatter)}
	for _, f := range []Formatter{Phone{}, Callout{}, Status{}, Boolean{}} {
		reg.formatters[f.Name()] = f
	}
	return reg
}

// Register adds or replaces a formatter.
func (r *Registry) Register(f Formatter) error {
	if f == nil {
		return fmt.Errorf("format: formatter is required")
	}
	name := normalize(f.Name())
	if name == "" {
		return fmt.Errorf("format: formatter name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[name] = f
	return nil
}

// Lookup returns the named formatter. An empty name resolves to nil, true so
// callers can treat "no formatter" uniformly.
func (r *Registry) Lookup(name string) (Formatter, bool) {
	name = normalize(name)
	if name == "" {
		return nil, true
	}
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formatters[name]
	return f, ok
}

// Names lists registered formatter names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
