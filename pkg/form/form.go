package form

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-handyadmin/pkg/client"
	"github.com/goliatone/go-handyadmin/pkg/render"
	"github.com/goliatone/go-handyadmin/pkg/schema"
)

var (
	// ErrSubmitInProgress is returned when Submit is called while a previous
	// submission of the same form is still in flight. No request is issued.
	ErrSubmitInProgress = errors.New("form: submit already in progress")
	// ErrDeleteFailed is returned for failed deletions. Deletions never carry
	// field errors; callers show a generic toast.
	ErrDeleteFailed = errors.New("form: delete failed")
	// ErrInvalid is returned when a local validator rejects the record. No
	// request is issued.
	ErrInvalid = errors.New("form: validation failed")
)

// State is the submission state of a form.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Submitter issues one mutation against the API. *client.Client satisfies it.
type Submitter interface {
	Submit(ctx context.Context, method, path string, payload client.Payload) (client.Record, error)
}

// Validator checks a record before submission and reports messages keyed by
// field name.
type Validator func(record Record) render.ErrorMap

// Option configures a Form.
type Option func(*Form)

// WithRecord seeds the record, typically with a fetched resource.
func WithRecord(record map[string]any) Option {
	return func(f *Form) {
		f.values = newValues(Record(record))
	}
}

// WithOnSuccess registers the callback invoked with the response record after
// a successful submission.
func WithOnSuccess(fn func(result client.Record)) Option {
	return func(f *Form) {
		f.onSuccess = fn
	}
}

// WithValidator adds a local check run before each submission.
func WithValidator(v Validator) Option {
	return func(f *Form) {
		if v != nil {
			f.validators = append(f.validators, v)
		}
	}
}

// WithChoices supplies select options resolved at render time (lookups).
func WithChoices(field string, choices []schema.Choice) Option {
	return func(f *Form) {
		if f.choices == nil {
			f.choices = make(map[string][]schema.Choice)
		}
		f.choices[field] = choices
	}
}

// WithExtra adds a value sent with every submission that has no control, such
// as the parent key of a nested row.
func WithExtra(key string, value any) Option {
	return func(f *Form) {
		if f.extra == nil {
			f.extra = make(map[string]any)
		}
		f.extra[key] = value
	}
}

// WithID sets the DOM id of the rendered form.
func WithID(id string) Option {
	return func(f *Form) { f.id = id }
}

// WithTitle sets the heading shown above the form.
func WithTitle(title string) Option {
	return func(f *Form) { f.title = title }
}

// WithAction sets the browser-facing URL the form posts to.
func WithAction(action string) Option {
	return func(f *Form) { f.action = action }
}

// WithSubmitLabel overrides the submit button text.
func WithSubmitLabel(label string) Option {
	return func(f *Form) { f.submitLabel = label }
}

// WithHidden adds hidden inputs to the rendered form.
func WithHidden(fields ...render.HiddenField) Option {
	return func(f *Form) { f.hidden = append(f.hidden, fields...) }
}

// WithPrefix namespaces input names so several forms can share one HTML form.
func WithPrefix(prefix string) Option {
	return func(f *Form) { f.prefix = prefix }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Form) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Form assembles controls from a field list and manages one submission at a
// time. The HTTP method and path are fixed per instance.
type Form struct {
	mu sync.Mutex

	api    Submitter
	method string
	path   string
	fields []schema.Field

	values     *Values
	errs       render.ErrorMap
	state      State
	onSuccess  func(client.Record)
	validators []Validator
	choices    map[string][]schema.Choice
	extra      map[string]any

	id          string
	title       string
	action      string
	submitLabel string
	hidden      []render.HiddenField
	prefix      string
	readOnly    bool
	logger      *zap.Logger
}

// New builds a form that submits fields to path with method.
func New(api Submitter, method, path string, fields []schema.Field, opts ...Option) *Form {
	f := &Form{
		api:    api,
		method: strings.ToUpper(strings.TrimSpace(method)),
		path:   path,
		fields: append([]schema.Field(nil), fields...),
		values: newValues(nil),
		logger: zap.NewNop(),
	}
	if f.method == "" {
		f.method = http.MethodPost
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Method returns the HTTP method used on submit.
func (f *Form) Method() string { return f.method }

// Path returns the API path used on submit.
func (f *Form) Path() string { return f.path }

// Fields returns the field list.
func (f *Form) Fields() []schema.Field {
	return append([]schema.Field(nil), f.fields...)
}

// Control returns the control bound to the named field.
func (f *Form) Control(name string) (Control, bool) {
	for _, field := range f.fields {
		if field.Name == name {
			return NewControl(field, f.values), true
		}
	}
	return Control{}, false
}

// SetChoices replaces the options of a select field, for lookups resolved
// after the form was built.
func (f *Form) SetChoices(field string, choices []schema.Choice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.choices == nil {
		f.choices = make(map[string][]schema.Choice)
	}
	f.choices[field] = choices
}

// Set writes one value through the named control.
func (f *Form) Set(name string, raw any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	control, ok := f.Control(name)
	if !ok {
		return fmt.Errorf("form: unknown field %q", name)
	}
	control.Set(raw)
	return nil
}

// Bind copies browser form values into the record. Absent checkboxes read as
// false; absent text inputs keep their current value. Disabled fields are
// never bound.
func (f *Form) Bind(values url.Values, files map[string][]*multipart.FileHeader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, field := range f.fields {
		if field.Disabled {
			continue
		}
		key := f.prefix + field.Name
		control := NewControl(field, f.values)
		switch {
		case field.IsFile():
			uploads, err := ReadFiles(files[key])
			if err != nil {
				return err
			}
			if len(uploads) > 0 {
				control.Set(uploads)
			}
		case field.IsCheckbox():
			control.Set(values.Get(key))
		default:
			if _, ok := values[key]; ok {
				control.Set(values.Get(key))
			}
		}
	}
	return nil
}

// Touched reports whether any control holds a non-empty value or file.
func (f *Form) Touched() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, field := range f.fields {
		if field.IsFile() {
			if len(f.values.Files[field.Name]) > 0 {
				return true
			}
			continue
		}
		if field.IsCheckbox() {
			continue
		}
		if s, ok := client.Stringify(f.values.Record[field.Name]); ok && strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

// Record returns a copy of the current record.
func (f *Form) Record() Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values.Record.Clone()
}

// Reset replaces the record, clears files and errors and returns to Idle.
func (f *Form) Reset(record map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = newValues(Record(record))
	f.errs = nil
	f.state = StateIdle
}

// Errors returns the messages of the last failed attempt.
func (f *Form) Errors() render.ErrorMap {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneErrors(f.errs)
}

// State reports the submission state. A failed attempt stays Failed until the
// next attempt clears its errors.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Payload packages the record for submission. Disabled fields are omitted.
func (f *Form) Payload() client.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payloadLocked()
}

func (f *Form) payloadLocked() client.Payload {
	payload := client.Payload{
		Values: make(map[string]any, len(f.fields)+len(f.extra)),
		Files:  make(map[string][]client.File),
	}
	for _, field := range f.fields {
		if field.Disabled {
			continue
		}
		if field.IsFile() {
			if files := f.values.Files[field.Name]; len(files) > 0 {
				payload.Files[field.Name] = append([]client.File(nil), files...)
			}
			continue
		}
		if value, ok := f.values.Record[field.Name]; ok && value != nil {
			payload.Values[field.Name] = value
		}
	}
	for key, value := range f.extra {
		payload.Values[key] = value
	}
	return payload
}

// Submit runs local validators, then issues exactly one request. On success
// the record and errors are cleared, the form returns to Idle and the
// OnSuccess callback runs (the state reads Succeeded while it does). On
// failure the record is kept and the response body is translated into the
// form errors.
func (f *Form) Submit(ctx context.Context) (client.Record, error) {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	f.errs = nil
	for _, validate := range f.validators {
		for key, messages := range validate(f.values.Record.Clone()) {
			for _, message := range messages {
				if f.errs == nil {
					f.errs = make(render.ErrorMap)
				}
				f.errs.Add(key, message)
			}
		}
	}
	if !f.errs.Empty() {
		f.state = StateFailed
		f.mu.Unlock()
		return nil, ErrInvalid
	}
	f.state = StateSubmitting
	payload := f.payloadLocked()
	f.mu.Unlock()

	if f.api == nil {
		f.finishFailed(render.UnexpectedError())
		return nil, errors.New("form: no submitter configured")
	}

	result, err := f.api.Submit(ctx, f.method, f.path, payload)
	if err != nil {
		f.logger.Debug("form submission failed",
			zap.String("method", f.method),
			zap.String("path", f.path),
			zap.Error(err),
		)
		if f.method == http.MethodDelete {
			f.finishFailed(nil)
			return nil, fmt.Errorf("%w: %w", ErrDeleteFailed, err)
		}
		f.finishFailed(TranslateError(err))
		return nil, fmt.Errorf("form: %s %s: %w", f.method, f.path, err)
	}

	f.mu.Lock()
	f.values = newValues(nil)
	f.errs = nil
	f.state = StateSucceeded
	callback := f.onSuccess
	f.mu.Unlock()

	if callback != nil {
		callback(result)
	}

	f.mu.Lock()
	if f.state == StateSucceeded {
		f.state = StateIdle
	}
	f.mu.Unlock()
	return result, nil
}

func (f *Form) finishFailed(errs render.ErrorMap) {
	f.mu.Lock()
	f.errs = errs
	f.state = StateFailed
	f.mu.Unlock()
}

// TranslateError converts a submission error into an ErrorMap. Structured
// API bodies are translated; anything else is an unexpected error.
func TranslateError(err error) render.ErrorMap {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return render.TranslateErrorBody(apiErr.Body)
	}
	return render.UnexpectedError()
}

// View returns the render snapshot of the form.
func (f *Form) View() render.FormView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewLocked()
}

func (f *Form) viewLocked() render.FormView {
	names := make([]string, 0, len(f.fields))
	for _, field := range f.fields {
		names = append(names, field.Name)
	}
	mapping := render.MapErrors(names, f.errs)

	view := render.FormView{
		ID:          f.id,
		Title:       f.title,
		Action:      f.action,
		Method:      http.MethodPost,
		Errors:      mapping.Form,
		SubmitLabel: f.submitLabel,
		Submitting:  f.state == StateSubmitting,
		Multipart:   true,
	}
	if f.method == http.MethodGet {
		view.Method = http.MethodGet
	}
	if view.SubmitLabel == "" {
		view.SubmitLabel = defaultSubmitLabel(f.method)
	}

	hidden := []render.HiddenField{render.MethodOverride(f.method)}
	hidden = append(hidden, f.hidden...)
	view.Hidden = render.SortedHiddenFields(render.MergeHiddenFields(nil, hidden...))

	view.Fields = make([]render.FieldView, 0, len(f.fields))
	for _, field := range f.fields {
		control := NewControl(field, f.values)
		view.Fields = append(view.Fields, control.View(f.prefix, f.choices[field.Name], mapping.Fields[field.Name], f.readOnly))
	}
	return view
}

func defaultSubmitLabel(method string) string {
	switch method {
	case http.MethodDelete:
		return "Delete"
	case http.MethodPatch, http.MethodPut:
		return "Update"
	default:
		return "Submit"
	}
}

func cloneErrors(errs render.ErrorMap) render.ErrorMap {
	if errs == nil {
		return nil
	}
	out := make(render.ErrorMap, len(errs))
	for key, messages := range errs {
		out[key] = append([]string(nil), messages...)
	}
	return out
}
