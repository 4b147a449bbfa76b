package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/goliatone/go-handyadmin/internal/auth"
	"github.com/goliatone/go-handyadmin/pkg/client"
	"github.com/goliatone/go-handyadmin/pkg/form"
	"github.com/goliatone/go-handyadmin/pkg/render"
	"github.com/goliatone/go-handyadmin/pkg/schema"
	"github.com/goliatone/go-handyadmin/pkg/table"
)

// DeleteFailedMessage is the toast shown when the API refuses a delete.
const DeleteFailedMessage = "Something went wrong while deleting. Please try again."

// tableState carries what a failed mutation re-renders on the table page.
type tableState struct {
	status int
	toasts []render.Toast
	create *form.Form
	drafts []*form.FormSet
	// update replaces the modal form of row updateID.
	updateID string
	update   *form.Form
}

// editState carries what a failed mutation re-renders on the edit page.
type editState struct {
	status int
	toasts []render.Toast
	update *form.Form
	// parent is a record fetched moments ago; nil fetches it.
	parent client.Record
	// formsets replaces the loaded formset of an entity, keeping the
	// failed draft or row with its errors.
	formsets map[string]*form.FormSet
}

func (s *Server) resource(w http.ResponseWriter, r *http.Request) (schema.Resource, bool) {
	res, err := s.catalog.Resource(chi.URLParam(r, "resource"))
	if err != nil {
		s.handleNotFound(w, r)
		return schema.Resource{}, false
	}
	if res.ReadOnly {
		http.Error(w, fmt.Sprintf("%s is read-only", res.Title), http.StatusMethodNotAllowed)
		return schema.Resource{}, false
	}
	return res, true
}

// unauthorized ends the session when the API rejects the token.
func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	if !client.IsUnauthorized(err) {
		return false
	}
	s.auth.ClearCookies(w)
	s.sessionExpired(w, r, auth.ErrTokenExpired)
	return true
}

func failureStatus(err error) int {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, form.ErrInvalid):
		return http.StatusUnprocessableEntity
	case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// nextURL returns the local redirect carried by the form, or fallback.
func nextURL(r *http.Request, fallback string) string {
	next := r.FormValue(render.RedirectFieldName)
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.Contains(next, `\`) {
		return next
	}
	return fallback
}

func listURL(res schema.Resource) string {
	return "/" + res.Name
}

func editURL(res schema.Resource, id string) string {
	return "/" + res.Name + "/" + url.PathEscape(id) + "/edit"
}

func (s *Server) newTable(res schema.Resource) *table.Table {
	return table.New(s.api, res, table.WithLogger(s.logger))
}

// applyChoices feeds resolved lookups to the select fields of f.
func applyChoices(tbl *table.Table, f *form.Form) {
	for _, field := range f.Fields() {
		if field.Lookup != "" {
			f.SetChoices(field.Name, tbl.Choices(field.Lookup))
		}
	}
}

func applyFormsetChoices(tbl *table.Table, fs *form.FormSet) {
	for _, row := range fs.Rows() {
		applyChoices(tbl, row.Form)
	}
	for _, draft := range fs.Drafts() {
		applyChoices(tbl, draft.Form)
	}
}

// createDrafts builds one unsaved formset per nested entity of res for the
// create dialog, each holding one draft. With a request, the drafts named
// by the nested markers are restored and bound.
func (s *Server) createDrafts(res schema.Resource, r *http.Request) ([]*form.FormSet, error) {
	sets := make([]*form.FormSet, 0, len(res.Formsets))
	for _, spec := range res.Formsets {
		fs := form.NewFormSet(s.api, spec, "", form.WithFormSetLogger(s.logger))
		var id string
		if r != nil {
			id = r.FormValue(render.NestedFieldPrefix + spec.Entity)
		}
		if id == "" {
			fs.AddDraft()
		} else if err := fs.RestoreDraft(id).Bind(r.Form, multipartFiles(r)); err != nil {
			return nil, err
		}
		sets = append(sets, fs)
	}
	return sets, nil
}

// attachNested embeds drafts in a create form. Nested fields are optional
// as a group: untouched drafts are discarded on save.
func attachNested(view *render.FormView, sets []*form.FormSet) {
	for _, fs := range sets {
		for _, id := range fs.DraftIDs() {
			nested, ok := fs.Inline(id)
			if !ok {
				continue
			}
			for i := range nested.Fields {
				nested.Fields[i].Required = false
			}
			view.Nested = append(view.Nested, nested)
			view.Hidden = append(view.Hidden, render.NestedDraft(fs.Spec().Entity, id))
		}
	}
}

func (s *Server) renderTable(w http.ResponseWriter, r *http.Request, res schema.Resource, st tableState) {
	tbl := s.newTable(res)
	if err := tbl.Load(r.Context()); err != nil {
		if s.unauthorized(w, r, err) {
			return
		}
		s.logger.Warn("table load failed", zap.String("resource", res.Name), zap.Error(err))
	}

	view := tbl.View()
	if view.Create != nil {
		if st.create != nil {
			applyChoices(tbl, st.create)
			create := st.create.View()
			view.Create = &create
		}
		drafts := st.drafts
		if drafts == nil {
			var err error
			if drafts, err = s.createDrafts(res, nil); err != nil {
				s.fail(w, r, err)
				return
			}
		}
		for _, fs := range drafts {
			applyFormsetChoices(tbl, fs)
		}
		attachNested(view.Create, drafts)
	}
	if st.update != nil {
		applyChoices(tbl, st.update)
		for i := range view.Rows {
			if view.Rows[i].ID == st.updateID {
				update := st.update.View()
				view.Rows[i].Update = &update
			}
		}
	}

	body, err := s.renderer.RenderTable(r.Context(), view, s.renderOptions(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writePage(w, r, shell{title: res.Title, status: st.status, toasts: st.toasts}, body)
}

// handleCreate creates a record and then any nested drafts submitted with
// it, under the new record's id.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resource(w, r)
	if !ok {
		return
	}
	if err := parseForm(r); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	create := s.newTable(res).CreateForm(s.api, form.WithLogger(s.logger))
	if err := create.Bind(r.Form, multipartFiles(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	drafts, err := s.createDrafts(res, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := create.Submit(r.Context())
	if err != nil {
		if s.unauthorized(w, r, err) {
			return
		}
		s.renderTable(w, r, res, tableState{status: failureStatus(err), create: create, drafts: drafts})
		return
	}

	id := form.Record(result).String("id")
	if id == "" && hasNested(res, r) {
		s.logger.Warn("created record has no id, nested drafts dropped", zap.String("resource", res.Name))
		setFlash(w,
			success(res.CreatedMessage()),
			failure("The related details could not be saved."),
		)
		redirect(w, r, listURL(res))
		return
	}
	if failed, err := s.saveNested(r.Context(), res, id, r); err != nil {
		s.logger.Warn("nested create failed",
			zap.String("resource", res.Name),
			zap.String("id", id),
			zap.String("entity", failed),
			zap.Error(err),
		)
		setFlash(w,
			success(res.CreatedMessage()),
			failure(fmt.Sprintf("The %s could not be saved.", failed)),
		)
		redirect(w, r, editURL(res, id))
		return
	}

	setFlash(w, success(res.CreatedMessage()))
	redirect(w, r, listURL(res))
}

// hasNested reports whether the request carries a touched nested draft.
func hasNested(res schema.Resource, r *http.Request) bool {
	for _, spec := range res.Formsets {
		id := r.FormValue(render.NestedFieldPrefix + spec.Entity)
		if id == "" {
			continue
		}
		prefix := spec.Entity + "-" + id + "-"
		for key, values := range r.Form {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			for _, v := range values {
				if strings.TrimSpace(v) != "" {
					return true
				}
			}
		}
		if files := multipartFiles(r); files != nil {
			for key := range files {
				if strings.HasPrefix(key, prefix) {
					return true
				}
			}
		}
	}
	return false
}

// saveNested posts the touched nested drafts of a create request under
// parentID. It reports the entity that failed.
func (s *Server) saveNested(ctx context.Context, res schema.Resource, parentID string, r *http.Request) (string, error) {
	if parentID == "" {
		return "", nil
	}
	for _, spec := range res.Formsets {
		id := r.FormValue(render.NestedFieldPrefix + spec.Entity)
		if id == "" {
			continue
		}
		// The browser goes back to the list, so nothing is re-read here.
		fs := s.newFormSet(res, spec, parentID, form.WithoutRefresh())
		if err := fs.RestoreDraft(id).Bind(r.Form, multipartFiles(r)); err != nil {
			return spec.Entity, err
		}
		if err := fs.SaveDrafts(ctx); err != nil {
			return spec.Entity, err
		}
	}
	return "", nil
}

// handleItem updates or deletes one record, as selected by the method
// override.
func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resource(w, r)
	if !ok {
		return
	}
	if err := parseForm(r); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")

	switch render.EffectiveMethod(r) {
	case http.MethodPatch, http.MethodPut:
		s.updateItem(w, r, res, id)
	case http.MethodDelete:
		s.deleteItem(w, r, res, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request, res schema.Resource, id string) {
	opts := []form.Option{form.WithLogger(s.logger)}
	if next := nextURL(r, ""); next != "" {
		opts = append(opts, form.WithHidden(render.RedirectTo(next)))
	}
	update := s.newTable(res).UpdateForm(s.api, id, nil, opts...)
	if err := update.Bind(r.Form, multipartFiles(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := update.Submit(r.Context()); err != nil {
		if s.unauthorized(w, r, err) {
			return
		}
		status := failureStatus(err)
		if res.UpdateType == schema.UpdatePage {
			s.renderEdit(w, r, res, id, editState{status: status, update: update})
			return
		}
		s.renderTable(w, r, res, tableState{status: status, updateID: id, update: update})
		return
	}
	setFlash(w, success(res.UpdatedMessage()))
	redirect(w, r, nextURL(r, listURL(res)))
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request, res schema.Resource, id string) {
	del := s.newTable(res).DeleteForm(s.api, id, form.WithLogger(s.logger))
	if _, err := del.Submit(r.Context()); err != nil {
		if s.unauthorized(w, r, err) {
			return
		}
		setFlash(w, failure(DeleteFailedMessage))
		redirect(w, r, listURL(res))
		return
	}
	setFlash(w, success(res.DeletedMessage()))
	redirect(w, r, listURL(res))
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resource(w, r)
	if !ok {
		return
	}
	s.renderEdit(w, r, res, chi.URLParam(r, "id"), editState{})
}

// renderEdit draws the update form of one record followed by its formsets.
// Drafts listed in the query string are restored and the "edit" parameter
// ("entity:childID") opens one row for editing.
func (s *Server) renderEdit(w http.ResponseWriter, r *http.Request, res schema.Resource, id string, st editState) {
	ctx := r.Context()
	record := st.parent
	var err error
	if record == nil {
		record, err = s.api.Get(ctx, res.ItemPath(id))
	}
	if err != nil {
		if s.unauthorized(w, r, err) {
			return
		}
		if client.IsNotFound(err) {
			s.handleNotFound(w, r)
			return
		}
		s.logger.Warn("record fetch failed", zap.String("resource", res.Name), zap.String("id", id), zap.Error(err))
		s.writePage(w, r, shell{title: res.Title, status: http.StatusBadGateway, toasts: []render.Toast{failure(render.UnexpectedErrorMessage)}}, nil)
		return
	}

	tbl := s.newTable(res)
	tbl.LoadLookups(ctx)

	update := st.update
	if update == nil {
		update = tbl.UpdateForm(s.api, id, record,
			form.WithHidden(render.RedirectTo(editURL(res, id))),
			form.WithLogger(s.logger),
		)
	}
	applyChoices(tbl, update)
	view := update.View()
	del := tbl.DeleteForm(nil, id).View()
	del.Confirm = fmt.Sprintf("Are you sure you want to delete this %s?", res.Title)
	view.Delete = &del

	opts := s.renderOptions(r)
	body, err := s.renderer.Render(ctx, view, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	query := r.URL.Query()
	editEntity, editChild, _ := strings.Cut(query.Get("edit"), ":")
	for _, spec := range res.Formsets {
		fs, ok := st.formsets[spec.Entity]
		if !ok {
			fs = s.newFormSet(res, spec, id).FormSet
			for _, draftID := range query[spec.Entity] {
				fs.RestoreDraft(draftID)
			}
			if editEntity == spec.Entity && editChild != "" {
				fs.Edit(editChild)
			}
			if err := fs.Load(ctx); err != nil {
				if s.unauthorized(w, r, err) {
					return
				}
				s.logger.Warn("formset load failed", zap.String("entity", spec.Entity), zap.Error(err))
			}
		}
		applyFormsetChoices(tbl, fs)
		out, err := s.renderer.RenderFormset(ctx, fs.View(), opts)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		body = append(body, out...)
	}

	s.writePage(w, r, shell{title: "Update " + res.Title, status: st.status, toasts: st.toasts}, body)
}
