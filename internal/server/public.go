package server

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/goliatone/go-handyadmin/internal/auth"
	"github.com/goliatone/go-handyadmin/internal/site"
	"github.com/goliatone/go-handyadmin/pkg/client"
	"github.com/goliatone/go-handyadmin/pkg/form"
	"github.com/goliatone/go-handyadmin/pkg/schema"
)

// maxUploadMemory bounds the in-memory part of multipart bodies.
const maxUploadMemory = 32 << 20

func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxUploadMemory)
	}
	return r.ParseForm()
}

func multipartFiles(r *http.Request) map[string][]*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	return r.MultipartForm.File
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.renderSitePage(w, r, "home")
}

// handleIndex serves a resource table to logged-in users and a marketing
// page to everyone else.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "resource")
	if res, err := s.catalog.Resource(name); err == nil {
		s.auth.Guard(s.sessionExpired)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.renderTable(w, r, res, tableState{})
		})).ServeHTTP(w, r)
		return
	}
	s.renderSitePage(w, r, name)
}

func (s *Server) renderSitePage(w http.ResponseWriter, r *http.Request, slug string) {
	page, ok := s.pages.Page(slug)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	body := `<article class="ha-page">` + page.HTML + `</article>`
	s.writePage(w, r, shell{title: page.Title, public: true}, []byte(body))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writePage(w, r, shell{title: "Not found", public: true, status: http.StatusNotFound},
		[]byte(`<article class="ha-page"><h1>Page not found</h1><p><a href="/">Back to home</a></p></article>`))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	resources := s.catalog.Resources()
	if len(resources) == 0 {
		s.handleNotFound(w, r)
		return
	}
	redirect(w, r, "/"+resources[0].Name)
}

// serviceChoices lists services for the contact form. A failed lookup leaves
// the select empty rather than failing the page.
func (s *Server) serviceChoices(ctx context.Context) []schema.Choice {
	choices, err := site.ServiceChoices(ctx, s.api)
	if err != nil {
		s.logger.Warn("service lookup failed", zap.Error(err))
		return nil
	}
	return choices
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	contact := site.NewContactForm(s.api, s.serviceChoices(r.Context()), form.WithLogger(s.logger))
	s.renderContact(w, r, contact, http.StatusOK)
}

func (s *Server) handleContactSubmit(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	contact := site.NewContactForm(s.api, s.serviceChoices(r.Context()), form.WithLogger(s.logger))
	if err := contact.Bind(r.Form, multipartFiles(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := contact.Submit(r.Context()); err != nil {
		s.renderContact(w, r, contact, http.StatusUnprocessableEntity)
		return
	}
	setFlash(w, success(site.ContactSuccessToast))
	redirect(w, r, "/contact")
}

func (s *Server) renderContact(w http.ResponseWriter, r *http.Request, contact *form.Form, status int) {
	body, err := s.renderer.Render(r.Context(), contact.View(), s.renderOptions(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writePage(w, r, shell{title: "Contact Us", public: true, status: status}, body)
}

// loginSubmitter adapts the token exchange to form.Submitter so the login
// form gets the usual error translation.
type loginSubmitter struct {
	auth *auth.Service
}

func (l loginSubmitter) Submit(ctx context.Context, _ string, _ string, payload client.Payload) (client.Record, error) {
	username, _ := client.Stringify(payload.Values["username"])
	password, _ := client.Stringify(payload.Values["password"])
	tokens, err := l.auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return client.Record{"access": tokens.Access, "refresh": tokens.Refresh}, nil
}

func loginFields() []schema.Field {
	username := schema.Input("username", "Username", schema.InputText)
	username.Required = true
	password := schema.Input("password", "Password", schema.InputPassword)
	password.Required = true
	return []schema.Field{username, password}
}

func (s *Server) loginForm() *form.Form {
	return form.New(loginSubmitter{auth: s.auth}, http.MethodPost, auth.TokenPath, loginFields(),
		form.WithID("login"),
		form.WithTitle("Log in"),
		form.WithAction(s.auth.Config().LoginPath),
		form.WithSubmitLabel("Log in"),
		form.WithLogger(s.logger),
	)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.renderLogin(w, r, s.loginForm(), http.StatusOK)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	login := s.loginForm()
	if err := login.Bind(r.Form, nil); err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := login.Submit(r.Context())
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			status = http.StatusBadGateway
		}
		// The password never survives a failed attempt.
		_ = login.Set("password", "")
		s.renderLogin(w, r, login, status)
		return
	}
	access, _ := client.Stringify(result["access"])
	refresh, _ := client.Stringify(result["refresh"])
	s.auth.SetCookies(w, auth.Tokens{Access: access, Refresh: refresh})
	s.logger.Info("login", zap.String("user", auth.ProfileFromToken(access).Display()))
	redirect(w, r, "/dashboard")
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, login *form.Form, status int) {
	body, err := s.renderer.Render(r.Context(), login.View(), s.renderOptions(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writePage(w, r, shell{title: "Log in", public: true, status: status}, body)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.ClearCookies(w)
	setFlash(w, success("You have been logged out."))
	redirect(w, r, s.auth.Config().LoginPath)
}
