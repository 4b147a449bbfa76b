package render

import (
	"encoding/json"
	"sort"
	"strings"
)

// NonFieldKey holds messages that do not belong to a single field.
const NonFieldKey = "non_field_errors"

// Messages used when an error body cannot be interpreted.
const (
	UnknownErrorMessage    = "Unknown error"
	UnexpectedErrorMessage = "An unexpected error occured."
)

// ErrorMap maps field names (or NonFieldKey) to ordered, human readable
// messages. It is produced from a failed response and cleared on the next
// submission attempt.
type ErrorMap map[string][]string

// For returns the messages attached to a field.
func (m ErrorMap) For(field string) []string {
	if m == nil {
		return nil
	}
	return m[field]
}

// NonField returns the form-level messages.
func (m ErrorMap) NonField() []string {
	return m.For(NonFieldKey)
}

// Empty reports whether no messages are present.
func (m ErrorMap) Empty() bool {
	return len(m) == 0
}

// Fields returns the keys carrying messages, sorted, without NonFieldKey.
func (m ErrorMap) Fields() []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		if key == NonFieldKey {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Add appends a message for a field, skipping blanks and duplicates.
func (m ErrorMap) Add(field, message string) {
	if m == nil {
		return
	}
	m[field] = normalizeMessages(append(m[field], message))
	if len(m[field]) == 0 {
		delete(m, field)
	}
}

// UnexpectedError is the ErrorMap reported for network failures and bodies
// without a recognised shape.
func UnexpectedError() ErrorMap {
	return ErrorMap{NonFieldKey: {UnexpectedErrorMessage}}
}

// TranslateErrorBody converts an upstream error body into an ErrorMap. A JSON
// object maps each key to its messages: lists of strings are kept, single
// strings become one-element lists and any other shape becomes
// ["Unknown error"]. Empty bodies and anything that is not a JSON object
// produce UnexpectedError.
func TranslateErrorBody(body []byte) ErrorMap {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return UnexpectedError()
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil || len(payload) == 0 {
		return UnexpectedError()
	}

	out := make(ErrorMap, len(payload))
	for rawKey, value := range payload {
		key := canonicalKey(rawKey)
		messages := translateValue(value)
		out[key] = append(out[key], messages...)
	}
	return out
}

func translateValue(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []any:
		if len(v) == 0 {
			return []string{UnknownErrorMessage}
		}
		messages := make([]string, 0, len(v))
		for _, item := range v {
			text, ok := item.(string)
			if !ok {
				return []string{UnknownErrorMessage}
			}
			messages = append(messages, text)
		}
		return messages
	default:
		return []string{UnknownErrorMessage}
	}
}

func canonicalKey(raw string) string {
	if isFormLevelKey(raw) {
		return NonFieldKey
	}
	return strings.TrimSpace(raw)
}

// ErrorMapping splits an ErrorMap into messages addressed to known fields and
// form-level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MapErrors resolves the keys of errs against the provided field names. Keys
// may arrive as dotted, slash or JSON-pointer paths, optionally wrapped in
// "body"/"data" segments; they map to the longest matching field name. Keys
// that match nothing are folded into form-level messages so they are never
// lost.
func MapErrors(fieldNames []string, errs ErrorMap) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	if len(errs) == 0 {
		mapping.Fields = nil
		return mapping
	}

	known := make(map[string]struct{}, len(fieldNames))
	for _, name := range fieldNames {
		if name = strings.TrimSpace(name); name != "" {
			known[name] = struct{}{}
		}
	}

	keys := make([]string, 0, len(errs))
	for key := range errs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, rawPath := range keys {
		messages := normalizeMessages(errs[rawPath])
		if len(messages) == 0 {
			continue
		}
		mapped, formLevel := mapErrorPath(rawPath, known)
		if formLevel {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		mapping.Fields[mapped] = append(mapping.Fields[mapped], messages...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func mapErrorPath(raw string, known map[string]struct{}) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", true
	}
	if _, ok := known[trimmed]; ok {
		return trimmed, false
	}

	segments := dropWrapperSegments(parsePathSegments(trimmed))
	for end := len(segments); end > 0; end-- {
		candidate := strings.Join(segments[:end], ".")
		if _, ok := known[candidate]; ok {
			return candidate, false
		}
	}
	if len(segments) > 0 {
		if _, ok := known[segments[0]]; ok {
			return segments[0], false
		}
	}
	return "", true
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = clean[1:]
	}

	replacer := strings.NewReplacer("[", ".", "]", "", "//", "/")
	clean = strings.Trim(replacer.Replace(clean), "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func dropWrapperSegments(segments []string) []string {
	wrappers := map[string]struct{}{
		"body":       {},
		"request":    {},
		"payload":    {},
		"data":       {},
		"attributes": {},
	}

	out := segments
	for len(out) > 0 {
		if _, ok := wrappers[strings.ToLower(out[0])]; ok {
			out = out[1:]
			continue
		}
		break
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "detail", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
