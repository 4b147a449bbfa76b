// Package table renders a collection resource as rows and composes the
// create, update and delete forms that act on it.
package table

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-handyadmin/pkg/client"
	"github.com/goliatone/go-handyadmin/pkg/format"
	"github.com/goliatone/go-handyadmin/pkg/schema"
)

// NotAvailable is shown for foreign keys a lookup cannot resolve.
const NotAvailable = "N/A"

// Cell classes for boolean status text.
const (
	ClassPositive = "text-green-600"
	ClassNegative = "text-red-600"
)

// Lister fetches collections. *client.Client satisfies it.
type Lister interface {
	List(ctx context.Context, path string) ([]client.Record, error)
}

// Cell is one rendered value.
type Cell struct {
	Field   string
	Display string
	Class   string
}

// Row is one rendered record.
type Row struct {
	ID     string
	Record client.Record
	Cells  []Cell
}

// Option configures a Table.
type Option func(*Table)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Table) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithBasePath sets the browser route of the resource, "/{name}" by default.
func WithBasePath(path string) Option {
	return func(t *Table) {
		t.basePath = "/" + strings.Trim(path, "/")
	}
}

// Table owns one fetched collection and the lookup lists used to resolve its
// foreign keys.
type Table struct {
	mu sync.RWMutex

	api      Lister
	resource schema.Resource
	basePath string
	logger   *zap.Logger

	records []client.Record
	lookups map[string][]client.Record
	loadErr error
}

// New builds a table for resource.
func New(api Lister, resource schema.Resource, opts ...Option) *Table {
	t := &Table{
		api:      api,
		resource: resource,
		basePath: "/" + strings.Trim(resource.Name, "/"),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Resource returns the table's resource description.
func (t *Table) Resource() schema.Resource { return t.resource }

// Load fetches the collection and every lookup list concurrently. A lookup
// that fails is logged and leaves its keys unresolved; a failed collection
// fetch is returned.
func (t *Table) Load(ctx context.Context) error {
	var records []client.Record
	lookups := make(map[string][]client.Record, len(t.resource.Lookups))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		list, err := t.api.List(egCtx, t.resource.CollectionPath())
		if err != nil {
			return fmt.Errorf("table: load %s: %w", t.resource.Name, err)
		}
		records = list
		return nil
	})
	t.fetchLookups(egCtx, eg, lookups)

	err := eg.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.loadErr = err
	if err != nil {
		t.records = nil
		return err
	}
	t.records = records
	t.lookups = lookups
	return nil
}

// LoadLookups fetches the lookup lists only, for pages that show forms
// without the collection.
func (t *Table) LoadLookups(ctx context.Context) {
	lookups := make(map[string][]client.Record, len(t.resource.Lookups))
	eg, egCtx := errgroup.WithContext(ctx)
	t.fetchLookups(egCtx, eg, lookups)
	_ = eg.Wait()

	t.mu.Lock()
	t.lookups = lookups
	t.mu.Unlock()
}

// fetchLookups schedules one fetch per lookup on eg. Failures are logged and
// never cancel the group.
func (t *Table) fetchLookups(ctx context.Context, eg *errgroup.Group, into map[string][]client.Record) {
	var mu sync.Mutex
	for name, spec := range t.resource.Lookups {
		eg.Go(func() error {
			list, err := t.api.List(ctx, schema.JoinRoute(spec.Route))
			if err != nil {
				t.logger.Warn("lookup fetch failed",
					zap.String("resource", t.resource.Name),
					zap.String("lookup", name),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			into[name] = list
			mu.Unlock()
			return nil
		})
	}
}

// Err returns the error of the last Load.
func (t *Table) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loadErr
}

// Records returns the fetched collection.
func (t *Table) Records() []client.Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]client.Record(nil), t.records...)
}

// Record returns the fetched record with the given id.
func (t *Table) Record(id string) (client.Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, record := range t.records {
		if recordID(record) == id {
			return record, true
		}
	}
	return nil, false
}

// Choices returns the options a lookup offers to select fields, sorted by
// label.
func (t *Table) Choices(lookup string) []schema.Choice {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return lookupChoices(t.resource.Lookups[lookup], t.lookups[lookup])
}

// LookupChoices returns the resolved choices of every lookup.
func (t *Table) LookupChoices() map[string][]schema.Choice {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string][]schema.Choice, len(t.lookups))
	for name, list := range t.lookups {
		out[name] = lookupChoices(t.resource.Lookups[name], list)
	}
	return out
}

func lookupChoices(spec schema.LookupSpec, list []client.Record) []schema.Choice {
	choices := make([]schema.Choice, 0, len(list))
	for _, item := range list {
		value, ok := client.Stringify(item[spec.Value()])
		if !ok {
			continue
		}
		label, _ := client.Stringify(item[spec.Label()])
		choices = append(choices, schema.Choice{Value: value, Label: label})
	}
	sort.SliceStable(choices, func(i, j int) bool {
		return choices[i].Label < choices[j].Label
	})
	return choices
}

// Rows renders every record with the resource's table fields.
func (t *Table) Rows() []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()

	fields := t.resource.TableFields()
	rows := make([]Row, 0, len(t.records))
	for _, record := range t.records {
		row := Row{ID: recordID(record), Record: record, Cells: make([]Cell, 0, len(fields))}
		for _, field := range fields {
			row.Cells = append(row.Cells, t.cell(field, record[field.Name]))
		}
		rows = append(rows, row)
	}
	return rows
}

func (t *Table) cell(field schema.Field, value any) Cell {
	cell := Cell{Field: field.Name}

	if field.Lookup != "" {
		cell.Display = t.resolve(field.Lookup, value)
		return cell
	}

	formatter := field.FormatterName()
	switch {
	case formatter == format.NameCallout:
		cell.Display = field.Formatter.Display(value)
		return cell
	case field.IsCheckbox() || formatter == format.NameStatus || formatter == format.NameBoolean || isBool(value):
		if format.Truthy(value) {
			cell.Class = ClassPositive
		} else {
			cell.Class = ClassNegative
		}
		if field.Name == "is_active" || formatter == format.NameStatus {
			cell.Display = format.Status{}.Display(value)
		} else {
			cell.Display = format.Boolean{}.Display(value)
		}
		return cell
	case field.Formatter != nil:
		cell.Display = field.Formatter.Display(value)
		return cell
	}

	text, ok := client.Stringify(value)
	if !ok {
		return cell
	}
	if field.Kind == schema.ElementSelect {
		if label, found := field.ChoiceLabel(text); found {
			text = label
		}
	}
	cell.Display = sanitizeText(text)
	return cell
}

func (t *Table) resolve(lookup string, value any) string {
	key, ok := client.Stringify(value)
	if !ok || key == "" {
		return NotAvailable
	}
	spec := t.resource.Lookups[lookup]
	for _, item := range t.lookups[lookup] {
		candidate, ok := client.Stringify(item[spec.Value()])
		if ok && candidate == key {
			if label, ok := client.Stringify(item[spec.Label()]); ok && label != "" {
				return sanitizeText(label)
			}
			return NotAvailable
		}
	}
	return NotAvailable
}

func isBool(value any) bool {
	_, ok := value.(bool)
	return ok
}

func recordID(record client.Record) string {
	id, _ := client.Stringify(record["id"])
	return id
}

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// sanitizeText strips markup from upstream strings before they reach a cell.
// Entities are decoded again because templates escape on output.
func sanitizeText(raw string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(raw)))
}
