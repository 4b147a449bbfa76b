package table

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/goliatone/go-handyadmin/pkg/form"
	"github.com/goliatone/go-handyadmin/pkg/render"
	"github.com/goliatone/go-handyadmin/pkg/schema"
)

// ActionKind names a CRUD action.
type ActionKind string

const (
	ActionCreate ActionKind = "create"
	ActionUpdate ActionKind = "update"
	ActionDelete ActionKind = "delete"
)

// Action describes how a CRUD trigger behaves: the modal it opens (or the page
// it navigates to), the browser URL its form posts to and the upstream call.
type Action struct {
	Kind ActionKind
	// Modal is true when the form renders inside a dialog on the table page.
	Modal bool
	// URL is the browser target: the form action for modals, the edit page
	// otherwise.
	URL string
	// Method is the upstream verb, carried as a method override in HTML.
	Method string
	// APIPath is the upstream path the form submits to.
	APIPath string
}

// CreateAction opens the create dialog and posts to the collection.
func (t *Table) CreateAction() Action {
	return Action{
		Kind:    ActionCreate,
		Modal:   true,
		URL:     t.basePath + "/",
		Method:  http.MethodPost,
		APIPath: t.resource.CollectionPath(),
	}
}

// UpdateAction edits one row inline or on its own page depending on the
// resource's update type.
func (t *Table) UpdateAction(id string) Action {
	action := Action{
		Kind:    ActionUpdate,
		Modal:   t.resource.UpdateType != schema.UpdatePage,
		URL:     t.itemURL(id),
		Method:  http.MethodPatch,
		APIPath: t.resource.ItemPath(id),
	}
	if !action.Modal {
		action.URL = t.itemURL(id) + "edit"
	}
	return action
}

// DeleteAction confirms and deletes one row.
func (t *Table) DeleteAction(id string) Action {
	return Action{
		Kind:    ActionDelete,
		Modal:   true,
		URL:     t.itemURL(id),
		Method:  http.MethodDelete,
		APIPath: t.resource.ItemPath(id),
	}
}

func (t *Table) itemURL(id string) string {
	return t.basePath + "/" + url.PathEscape(id) + "/"
}

// CreateForm builds the form behind the create action.
func (t *Table) CreateForm(api form.Submitter, opts ...form.Option) *form.Form {
	action := t.CreateAction()
	base := []form.Option{
		form.WithID(t.resource.Name + "-create"),
		form.WithTitle("Create " + t.resource.Title),
		form.WithAction(action.URL),
		form.WithSubmitLabel("Create"),
	}
	return form.New(api, action.Method, action.APIPath, t.resource.Fields, append(append(base, t.choiceOptions()...), opts...)...)
}

// UpdateForm builds the form behind a row's update action, seeded with record.
func (t *Table) UpdateForm(api form.Submitter, id string, record map[string]any, opts ...form.Option) *form.Form {
	action := t.UpdateAction(id)
	target := t.itemURL(id)
	base := []form.Option{
		form.WithID(t.resource.Name + "-update-" + id),
		form.WithTitle("Update " + t.resource.Title),
		form.WithAction(target),
		form.WithRecord(record),
	}
	return form.New(api, action.Method, action.APIPath, t.resource.Fields, append(append(base, t.choiceOptions()...), opts...)...)
}

// DeleteForm builds the confirmation form behind a row's delete action.
func (t *Table) DeleteForm(api form.Submitter, id string, opts ...form.Option) *form.Form {
	action := t.DeleteAction(id)
	base := []form.Option{
		form.WithID(t.resource.Name + "-delete-" + id),
		form.WithTitle("Delete " + t.resource.Title),
		form.WithAction(action.URL),
	}
	return form.New(api, action.Method, action.APIPath, nil, append(base, opts...)...)
}

func (t *Table) choiceOptions() []form.Option {
	var opts []form.Option
	for _, field := range t.resource.Fields {
		if field.Lookup == "" {
			continue
		}
		opts = append(opts, form.WithChoices(field.Name, t.Choices(field.Lookup)))
	}
	return opts
}

// View renders the table with its action forms. Read-only resources carry no
// forms.
func (t *Table) View() render.TableView {
	view := render.TableView{
		Resource:   t.resource.Name,
		Title:      t.resource.Title,
		UpdateType: string(t.resource.UpdateType),
		ReadOnly:   t.resource.ReadOnly,
	}
	if view.UpdateType == "" {
		view.UpdateType = string(schema.UpdateModal)
	}
	if t.Err() != nil {
		view.Errors = []string{render.UnexpectedErrorMessage}
	}
	for _, field := range t.resource.TableFields() {
		view.Columns = append(view.Columns, render.ColumnView{Name: field.Name, Label: field.Label})
	}

	if !t.resource.ReadOnly {
		create := t.CreateForm(nil).View()
		view.Create = &create
	}

	for _, row := range t.Rows() {
		rv := render.RowView{ID: row.ID}
		for _, cell := range row.Cells {
			rv.Cells = append(rv.Cells, render.CellView{Field: cell.Field, Display: cell.Display, Class: cell.Class})
		}
		if !t.resource.ReadOnly && row.ID != "" {
			update := t.UpdateAction(row.ID)
			if update.Modal {
				uv := t.UpdateForm(nil, row.ID, row.Record).View()
				rv.Update = &uv
			} else {
				rv.EditURL = update.URL
			}
			dv := t.DeleteForm(nil, row.ID).View()
			dv.Confirm = fmt.Sprintf("Are you sure you want to delete this %s?", t.resource.Title)
			rv.Delete = &dv
		}
		view.Rows = append(view.Rows, rv)
	}
	return view
}
