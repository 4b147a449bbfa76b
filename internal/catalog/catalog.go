package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/goliatone/go-handyadmin/pkg/schema"
)

// ErrUnknownResource is returned when a resource name is not in the catalog.
var ErrUnknownResource = errors.New("catalog: unknown resource")

// Catalog is an ordered, read-only set of resources.
type Catalog struct {
	resources []schema.Resource
	byName    map[string]int
}

// New builds a catalog from resources, rejecting duplicate names.
func New(resources ...schema.Resource) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]int, len(resources))}
	for _, res := range resources {
		if err := c.add(res, ""); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(res schema.Resource, source string) error {
	if _, exists := c.byName[res.Name]; exists {
		if source != "" {
			return fmt.Errorf("catalog: duplicate resource %q (file %s)", res.Name, source)
		}
		return fmt.Errorf("catalog: duplicate resource %q", res.Name)
	}
	c.byName[res.Name] = len(c.resources)
	c.resources = append(c.resources, res)
	return nil
}

// Resources returns every resource in declaration order.
func (c *Catalog) Resources() []schema.Resource {
	if c == nil {
		return nil
	}
	return append([]schema.Resource(nil), c.resources...)
}

// Resource returns the named resource.
func (c *Catalog) Resource(name string) (schema.Resource, error) {
	if c != nil {
		if idx, ok := c.byName[name]; ok {
			return c.resources[idx], nil
		}
	}
	return schema.Resource{}, fmt.Errorf("%w: %q", ErrUnknownResource, name)
}

// Names lists resource names sorted alphabetically.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.resources))
	for _, res := range c.resources {
		names = append(names, res.Name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every resource and reports all violations together.
func (c *Catalog) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	for _, res := range c.resources {
		if err := res.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
