package render

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Names of the hidden inputs understood by the console's form handlers.
const (
	MethodFieldName   = "_method"
	DraftFieldName    = "_draft"
	RedirectFieldName = "_next"
	// NestedFieldPrefix precedes the entity name of a nested draft marker.
	NestedFieldPrefix = "_nested_"
)

// HiddenField represents a hidden form input emitted alongside the visible
// schema.
type HiddenField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{
		Name:  strings.TrimSpace(name),
		Value: fmt.Sprint(value),
	}
}

// MethodOverride carries verbs browsers cannot submit (PATCH, PUT, DELETE)
// through a POST form. GET and POST need no override and yield an empty field.
func MethodOverride(method string) HiddenField {
	method = strings.ToUpper(strings.TrimSpace(method))
	switch method {
	case "", http.MethodGet, http.MethodPost:
		return HiddenField{}
	default:
		return Hidden(MethodFieldName, method)
	}
}

// DraftID identifies an unsaved formset row.
func DraftID(id string) HiddenField {
	return Hidden(DraftFieldName, id)
}

// NestedDraft marks the draft of entity submitted inside a parent form.
func NestedDraft(entity, id string) HiddenField {
	return Hidden(NestedFieldPrefix+entity, id)
}

// RedirectTo tells the handler where to send the browser after success.
func RedirectTo(path string) HiddenField {
	return Hidden(RedirectFieldName, path)
}

// EffectiveMethod resolves the verb of a browser submission, honouring the
// MethodOverride field on POST requests.
func EffectiveMethod(r *http.Request) string {
	if r.Method != http.MethodPost {
		return r.Method
	}
	override := strings.ToUpper(strings.TrimSpace(r.FormValue(MethodFieldName)))
	switch override {
	case http.MethodPatch, http.MethodPut, http.MethodDelete:
		return override
	default:
		return r.Method
	}
}

// MergeHiddenFields returns a copy of base with the provided fields applied.
// Empty names are ignored; later fields win on name collisions.
func MergeHiddenFields(base map[string]string, fields ...HiddenField) map[string]string {
	if len(base) == 0 && len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(fields))
	for key, value := range base {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			out[trimmed] = value
		}
	}
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			continue
		}
		out[name] = field.Value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedHiddenFields normalises and sorts hidden fields for deterministic
// rendering. Empty names are dropped.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	clean := make(map[string]string, len(fields))
	for name, value := range fields {
		key := strings.TrimSpace(name)
		if key == "" {
			continue
		}
		if _, seen := clean[key]; !seen {
			names = append(names, key)
		}
		clean[key] = value
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)

	result := make([]HiddenField, 0, len(names))
	for _, name := range names {
		result = append(result, HiddenField{Name: name, Value: clean[name]})
	}
	return result
}
