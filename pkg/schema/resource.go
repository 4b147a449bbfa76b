package schema

import (
	"errors"
	"fmt"
	"strings"
)

// UpdateType selects how existing rows are edited from a table.
type UpdateType string

const (
	// UpdateModal edits the row in a dialog on the table page.
	UpdateModal UpdateType = "modal"
	// UpdatePage navigates to a dedicated edit route.
	UpdatePage UpdateType = "page"
)

// LookupSpec describes a related collection used to resolve foreign keys.
type LookupSpec struct {
	Route      string `json:"route" yaml:"route"`
	ValueField string `json:"valueField,omitempty" yaml:"valueField"`
	LabelField string `json:"labelField,omitempty" yaml:"labelField"`
}

// Value returns the configured value key, defaulting to "id".
func (l LookupSpec) Value() string {
	if l.ValueField == "" {
		return "id"
	}
	return l.ValueField
}

// Label returns the configured label key, defaulting to "name".
func (l LookupSpec) Label() string {
	if l.LabelField == "" {
		return "name"
	}
	return l.LabelField
}

// Formset describes a nested one-to-many resource attached to a parent id.
type Formset struct {
	Entity string `json:"entity"`
	Title  string `json:"title,omitempty"`
	// Route is the nested collection route, e.g. "supplier/address". Children
	// are listed and created under "{Route}/{parentID}/" and addressed as
	// "{Route}/{parentID}/{childID}/".
	Route  string  `json:"route"`
	Fields []Field `json:"fields"`
	// NewEntityOnly skips listing: children are always created fresh.
	NewEntityOnly bool `json:"newEntityOnly,omitempty"`
	// ParentKey is the field carrying the parent id in child payloads.
	ParentKey string `json:"parentKey,omitempty"`
	// RefreshParent re-fetches the parent after a child changes, for parents
	// whose computed fields (totals) depend on their children.
	RefreshParent bool `json:"refreshParent,omitempty"`
}

// CollectionPath returns the nested collection path for a parent id.
func (f Formset) CollectionPath(parentID string) string {
	return JoinRoute(f.Route, parentID)
}

// ItemPath returns the path of one child under a parent.
func (f Formset) ItemPath(parentID, childID string) string {
	return JoinRoute(f.Route, parentID, childID)
}

// Messages are the toast texts shown after successful mutations.
type Messages struct {
	Created string `json:"created,omitempty" yaml:"created"`
	Updated string `json:"updated,omitempty" yaml:"updated"`
	Deleted string `json:"deleted,omitempty" yaml:"deleted"`
}

// Resource describes one CRUD entity of the console.
type Resource struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	// Route is the collection route on the upstream API, e.g. "supplier".
	Route  string  `json:"route"`
	Fields []Field `json:"fields"`
	// Columns restricts the table to a subset of fields, in order.
	Columns    []string              `json:"columns,omitempty"`
	Lookups    map[string]LookupSpec `json:"lookups,omitempty"`
	UpdateType UpdateType            `json:"updateType,omitempty"`
	Formsets   []Formset             `json:"formsets,omitempty"`
	Messages   Messages              `json:"messages,omitempty"`
	// ReadOnly hides create/update/delete actions.
	ReadOnly bool `json:"readOnly,omitempty"`
}

// CollectionPath returns "{route}/".
func (r Resource) CollectionPath() string {
	return JoinRoute(r.Route)
}

// ItemPath returns "{route}/{id}/".
func (r Resource) ItemPath(id string) string {
	return JoinRoute(r.Route, id)
}

// Field returns the named field.
func (r Resource) Field(name string) (Field, bool) {
	for _, field := range r.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// TableFields returns the fields shown as table columns.
func (r Resource) TableFields() []Field {
	if len(r.Columns) == 0 {
		return append([]Field(nil), r.Fields...)
	}
	out := make([]Field, 0, len(r.Columns))
	for _, name := range r.Columns {
		if field, ok := r.Field(name); ok {
			out = append(out, field)
		}
	}
	return out
}

// Formset returns the named formset.
func (r Resource) Formset(entity string) (Formset, bool) {
	for _, fs := range r.Formsets {
		if fs.Entity == entity {
			return fs, true
		}
	}
	return Formset{}, false
}

// CreatedMessage returns the create toast, defaulting to "<Title> successfully created!".
func (r Resource) CreatedMessage() string {
	return messageOr(r.Messages.Created, r.singular(), "created")
}

// UpdatedMessage returns the update toast.
func (r Resource) UpdatedMessage() string {
	return messageOr(r.Messages.Updated, r.singular(), "updated")
}

// DeletedMessage returns the delete toast.
func (r Resource) DeletedMessage() string {
	return messageOr(r.Messages.Deleted, r.singular(), "deleted")
}

func (r Resource) singular() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

func messageOr(custom, title, verb string) string {
	if custom != "" {
		return custom
	}
	return fmt.Sprintf("%s successfully %s!", title, verb)
}

// Validate checks the resource, its fields and formsets.
func (r Resource) Validate() error {
	var errs []error
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, errors.New("schema: resource name is required"))
	}
	if strings.TrimSpace(r.Route) == "" {
		errs = append(errs, fmt.Errorf("schema: resource %q: route is required", r.Name))
	}
	switch r.UpdateType {
	case "", UpdateModal, UpdatePage:
	default:
		errs = append(errs, fmt.Errorf("schema: resource %q: unknown update type %q", r.Name, r.UpdateType))
	}
	if err := ValidateFields(r.Fields); err != nil {
		errs = append(errs, fmt.Errorf("schema: resource %q: %w", r.Name, err))
	}
	for _, column := range r.Columns {
		if _, ok := r.Field(column); !ok {
			errs = append(errs, fmt.Errorf("schema: resource %q: column %q is not a field", r.Name, column))
		}
	}
	for _, field := range r.Fields {
		if field.Lookup == "" {
			continue
		}
		if _, ok := r.Lookups[field.Lookup]; !ok {
			errs = append(errs, fmt.Errorf("schema: resource %q: field %q references unknown lookup %q", r.Name, field.Name, field.Lookup))
		}
	}
	for _, fs := range r.Formsets {
		if fs.Entity == "" || fs.Route == "" {
			errs = append(errs, fmt.Errorf("schema: resource %q: formset requires entity and route", r.Name))
			continue
		}
		if err := ValidateFields(fs.Fields); err != nil {
			errs = append(errs, fmt.Errorf("schema: resource %q formset %q: %w", r.Name, fs.Entity, err))
		}
	}
	return errors.Join(errs...)
}

// JoinRoute joins route segments with "/" and a trailing slash, the
// convention the upstream API uses for every endpoint.
func JoinRoute(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = strings.Trim(strings.TrimSpace(segment), "/")
		if segment == "" {
			continue
		}
		parts = append(parts, segment)
	}
	if len(parts) == 0 {
		return "/"
	}
	return strings.Join(parts, "/") + "/"
}
