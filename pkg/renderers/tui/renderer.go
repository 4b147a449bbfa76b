package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-handyadmin/pkg/render"
)

// Name identifies the terminal renderer.
const Name = "tui"

const noneOption = "(none)"

// Renderer implements render.Renderer for terminal-driven sessions. It walks
// a FormView, prompts for every editable control and serializes the answers.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	submitTransformer SubmitTransformer
	theme             Theme
	out               io.Writer
}

var _ render.Collector = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
	}

	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}

	if r.driver == nil {
		r.driver = newSurveyDriver(r.out)
	}

	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return Name
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Render prompts for the form's editable fields and serializes the answers
// in the configured output format.
func (r *Renderer) Render(ctx context.Context, form render.FormView, _ render.RenderOptions) ([]byte, error) {
	values, err := r.Collect(ctx, form)
	if err != nil {
		return nil, err
	}
	return r.serialize(values)
}

// Collect prompts for each editable field and returns the answers keyed by
// field name. Select answers carry the choice value, checkboxes a bool,
// number inputs a float64 and file inputs the path typed by the user.
// Optional fields left blank are omitted.
func (r *Renderer) Collect(ctx context.Context, form render.FormView) (map[string]any, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.driver == nil {
		return nil, errors.New("tui: prompt driver is nil")
	}
	if form.ReadOnly {
		return nil, ErrReadOnly
	}

	if form.Title != "" {
		if err := r.driver.Info(ctx, r.theme.PromptPrefix+form.Title); err != nil {
			return nil, err
		}
	}
	for _, msg := range form.Errors {
		if err := r.driver.Info(ctx, r.theme.ErrorPrefix+msg); err != nil {
			return nil, err
		}
	}

	values := make(map[string]any)
	editable := 0
	for _, field := range form.Fields {
		if field.ReadOnly || field.Disabled {
			continue
		}
		editable++
		for _, msg := range field.Errors {
			if err := r.driver.Info(ctx, fmt.Sprintf("%s%s: %s", r.theme.ErrorPrefix, displayLabel(field), msg)); err != nil {
				return nil, err
			}
		}
		value, ok, err := r.promptField(ctx, field)
		if err != nil {
			return nil, err
		}
		if ok {
			values[field.Name] = value
		}
	}
	if editable == 0 && len(form.Fields) > 0 {
		return nil, ErrReadOnly
	}

	if r.submitTransformer != nil {
		var err error
		values, err = r.submitTransformer(values)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	return values, nil
}

func (r *Renderer) promptField(ctx context.Context, field render.FieldView) (any, bool, error) {
	p := &fieldPrompt{r: r, ctx: ctx}
	if err := field.Accept(p); err != nil {
		return nil, false, fmt.Errorf("tui: %w", err)
	}
	return p.value, p.ok, nil
}

// fieldPrompt asks for one field and keeps the answer.
type fieldPrompt struct {
	r     *Renderer
	ctx   context.Context
	value any
	ok    bool
}

func (p *fieldPrompt) VisitSelect(field render.FieldView) (err error) {
	p.value, p.ok, err = p.r.promptSelect(p.ctx, field)
	return err
}

func (p *fieldPrompt) VisitInput(field render.FieldView) (err error) {
	switch field.InputType {
	case "checkbox":
		p.value, p.ok, err = p.r.promptCheckbox(p.ctx, field)
	case "number":
		p.value, p.ok, err = p.r.promptNumber(p.ctx, field)
	default:
		p.value, p.ok, err = p.r.promptString(p.ctx, field)
	}
	return err
}

func (r *Renderer) promptString(ctx context.Context, field render.FieldView) (any, bool, error) {
	label := displayLabel(field)
	rules := rulesFor(field)

	for {
		var response string
		var err error
		switch field.InputType {
		case "password":
			response, err = r.driver.Password(ctx, InputConfig{Message: label})
		case "textarea":
			response, err = r.driver.TextArea(ctx, TextAreaConfig{
				Message: label,
				Default: field.Value,
			})
		default:
			response, err = r.driver.Input(ctx, InputConfig{
				Message: label,
				Default: field.Value,
				Help:    helpFor(field),
			})
		}
		if err != nil {
			return nil, false, err
		}

		if strings.TrimSpace(response) == "" && !rules.required {
			return nil, false, nil
		}
		if err := rules.validateString(response); err != nil {
			if infoErr := r.invalid(ctx, field, err); infoErr != nil {
				return nil, false, infoErr
			}
			continue
		}
		return response, true, nil
	}
}

func (r *Renderer) promptCheckbox(ctx context.Context, field render.FieldView) (any, bool, error) {
	resp, err := r.driver.Confirm(ctx, ConfirmConfig{
		Message: displayLabel(field),
		Default: field.Checked,
	})
	if err != nil {
		return nil, false, err
	}
	return resp, true, nil
}

func (r *Renderer) promptNumber(ctx context.Context, field render.FieldView) (any, bool, error) {
	rules := rulesFor(field)

	for {
		input, err := r.driver.Input(ctx, InputConfig{
			Message: displayLabel(field),
			Default: field.Value,
			Help:    helpFor(field),
		})
		if err != nil {
			return nil, false, err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			if rules.required {
				if infoErr := r.invalid(ctx, field, errors.New("required")); infoErr != nil {
					return nil, false, infoErr
				}
				continue
			}
			return nil, false, nil
		}

		parsed, err := strconv.ParseFloat(input, 64)
		if err != nil {
			if infoErr := r.invalid(ctx, field, errors.New("must be a number")); infoErr != nil {
				return nil, false, infoErr
			}
			continue
		}
		if err := rules.validateNumber(parsed); err != nil {
			if infoErr := r.invalid(ctx, field, err); infoErr != nil {
				return nil, false, infoErr
			}
			continue
		}
		return parsed, true, nil
	}
}

func (r *Renderer) promptSelect(ctx context.Context, field render.FieldView) (any, bool, error) {
	options := make([]string, 0, len(field.Choices)+1)
	values := make([]string, 0, len(field.Choices)+1)
	if !field.Required {
		options = append(options, noneOption)
		values = append(values, "")
	}
	for _, choice := range field.Choices {
		options = append(options, choice.Label)
		values = append(values, choice.Value)
	}
	if len(field.Choices) == 0 {
		if field.Required {
			return nil, false, fmt.Errorf("tui: %s has no choices", field.Name)
		}
		return nil, false, nil
	}

	defaultIdx := indexOf(values, field.Value)
	for _, choice := range field.Choices {
		if choice.Selected {
			defaultIdx = indexOf(values, choice.Value)
			break
		}
	}

	for {
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      displayLabel(field),
			Options:      options,
			DefaultIndex: defaultIdx,
		})
		if err != nil {
			return nil, false, err
		}
		if idx < 0 || idx >= len(options) {
			if infoErr := r.invalid(ctx, field, errors.New("invalid selection")); infoErr != nil {
				return nil, false, infoErr
			}
			continue
		}
		if values[idx] == "" {
			return nil, false, nil
		}
		return values[idx], true, nil
	}
}

func (r *Renderer) invalid(ctx context.Context, field render.FieldView, err error) error {
	return r.driver.Info(ctx, fmt.Sprintf("%sInvalid %s: %v", r.theme.ErrorPrefix, field.Name, err))
}

func (r *Renderer) serialize(values map[string]any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(values)), nil
	default:
		return json.Marshal(values)
	}
}

func displayLabel(field render.FieldView) string {
	label := field.Label
	if label == "" {
		label = field.Name
	}
	if field.Required {
		label += " *"
	}
	return label
}

func helpFor(field render.FieldView) string {
	if field.Formatter == "phone" {
		return "digits only, formatted as D (DDD) DDD-DDDD"
	}
	if field.InputType == "file" {
		return "path to a local file"
	}
	return ""
}

type validationRules struct {
	required  bool
	minLength *int
	maxLength *int
	min       *float64
	max       *float64
}

func rulesFor(field render.FieldView) validationRules {
	return validationRules{
		required:  field.Required,
		minLength: field.MinLength,
		maxLength: field.MaxLength,
		min:       field.Min,
		max:       field.Max,
	}
}

func (r validationRules) validateString(value string) error {
	if r.required && strings.TrimSpace(value) == "" {
		return errors.New("required")
	}
	length := utf8.RuneCountInString(value)
	if r.minLength != nil && length < *r.minLength {
		return fmt.Errorf("must be at least %d characters", *r.minLength)
	}
	if r.maxLength != nil && length > *r.maxLength {
		return fmt.Errorf("must be at most %d characters", *r.maxLength)
	}
	return nil
}

func (r validationRules) validateNumber(value float64) error {
	if r.min != nil && value < *r.min {
		return fmt.Errorf("must be >= %s", strconv.FormatFloat(*r.min, 'f', -1, 64))
	}
	if r.max != nil && value > *r.max {
		return fmt.Errorf("must be <= %s", strconv.FormatFloat(*r.max, 'f', -1, 64))
	}
	return nil
}

func flattenForm(values map[string]any) string {
	flattened := url.Values{}
	for key, val := range values {
		flattened.Set(key, stringify(val))
	}
	return flattened.Encode()
}

func prettyPrint(values map[string]any) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s=%s\n", key, stringify(values[key]))
	}
	return b.String()
}

func stringify(value any) string {
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
