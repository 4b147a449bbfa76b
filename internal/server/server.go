// Package server exposes the handyman console over HTTP: the public site,
// the contact form, login and the catalog-driven admin pages.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	theme "github.com/goliatone/go-theme"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-handyadmin/internal/auth"
	"github.com/goliatone/go-handyadmin/internal/catalog"
	"github.com/goliatone/go-handyadmin/internal/site"
	"github.com/goliatone/go-handyadmin/pkg/client"
	"github.com/goliatone/go-handyadmin/pkg/form"
	"github.com/goliatone/go-handyadmin/pkg/render"
	"github.com/goliatone/go-handyadmin/pkg/renderers/html"
)

// API is the upstream surface the console needs. *client.Client satisfies
// it.
type API interface {
	form.API
	auth.TokenAPI
	Get(ctx context.Context, path string) (client.Record, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRenderer replaces the HTML renderer.
func WithRenderer(renderer render.PageRenderer) Option {
	return func(s *Server) { s.renderer = renderer }
}

// WithTheme sets the page shell theme.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(s *Server) { s.theme = cfg }
}

// WithPages replaces the embedded marketing pages.
func WithPages(pages *site.Pages) Option {
	return func(s *Server) { s.pages = pages }
}

// Server routes browser requests to forms, tables and pages.
type Server struct {
	api      API
	catalog  *catalog.Catalog
	auth     *auth.Service
	pages    *site.Pages
	renderer render.PageRenderer
	theme    *theme.RendererConfig
	logger   *zap.Logger
	router   chi.Router
}

// New builds the server and its routes.
func New(api API, cat *catalog.Catalog, authSvc *auth.Service, opts ...Option) (*Server, error) {
	if api == nil {
		return nil, errors.New("server: api is required")
	}
	if cat == nil {
		return nil, errors.New("server: catalog is required")
	}
	if authSvc == nil {
		return nil, errors.New("server: auth service is required")
	}
	s := &Server{
		api:     api,
		catalog: cat,
		auth:    authSvc,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.renderer == nil {
		renderer, err := html.New()
		if err != nil {
			return nil, fmt.Errorf("server: html renderer: %w", err)
		}
		s.renderer = renderer
	}
	if s.pages == nil {
		pages, err := site.LoadPages(site.PagesFS())
		if err != nil {
			return nil, fmt.Errorf("server: load pages: %w", err)
		}
		s.pages = pages
	}
	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.NotFound(s.handleNotFound)

	r.Handle(StaticPrefix+"/*", http.StripPrefix(StaticPrefix+"/", http.FileServer(http.FS(html.AssetsFS()))))

	r.Get("/", s.handleHome)
	r.Get("/contact", s.handleContact)
	r.Post("/contact", s.handleContactSubmit)
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	// Marketing pages and resource tables share the first path segment.
	r.Get("/{resource}", s.handleIndex)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Guard(s.sessionExpired))
		r.Get("/dashboard", s.handleDashboard)
		r.Post("/{resource}", s.handleCreate)
		r.Post("/{resource}/{id}", s.handleItem)
		r.Get("/{resource}/{id}/edit", s.handleEdit)
		r.Post("/{resource}/{id}/{entity}", s.handleDraft)
		r.Post("/{resource}/{id}/{entity}/{child}", s.handleChild)
	})
	return r
}

func (s *Server) sessionExpired(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, auth.ErrTokenExpired) {
		setFlash(w, failure(auth.SessionExpiredMessage))
	}
	http.Redirect(w, r, s.auth.Config().LoginPath, http.StatusSeeOther)
}

// shell describes the chrome around a rendered body.
type shell struct {
	title  string
	public bool
	status int
	toasts []render.Toast
}

func (s *Server) renderOptions(r *http.Request) render.RenderOptions {
	return render.RenderOptions{
		Theme:   s.theme,
		Partial: r.URL.Query().Get("partial") == "1",
	}
}

// writePage wraps body in the page shell, draining pending flash toasts.
func (s *Server) writePage(w http.ResponseWriter, r *http.Request, sh shell, body []byte) {
	page := render.PageView{
		Title:  sh.title,
		Public: sh.public,
		Toasts: append(takeFlash(w, r), sh.toasts...),
		Body:   string(body),
	}
	if sh.public {
		page.Nav = s.publicNav(r)
	} else {
		page.Nav = s.adminNav(r)
	}
	if session, ok := auth.SessionFromContext(r.Context()); ok {
		page.Profile = session.Profile.Display()
	} else if session, ok := s.auth.Optional(r); ok {
		page.Profile = session.Profile.Display()
	}

	out, err := s.renderer.RenderPage(r.Context(), page, s.renderOptions(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := sh.status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", s.renderer.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request handling failed",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	http.Error(w, render.UnexpectedErrorMessage, http.StatusInternalServerError)
}

func (s *Server) adminNav(r *http.Request) []render.NavItem {
	resources := s.catalog.Resources()
	nav := make([]render.NavItem, 0, len(resources))
	for _, res := range resources {
		href := "/" + res.Name
		nav = append(nav, render.NavItem{
			Label:  res.Title,
			Href:   href,
			Active: r.URL.Path == href || strings.HasPrefix(r.URL.Path, href+"/"),
		})
	}
	return nav
}

func (s *Server) publicNav(r *http.Request) []render.NavItem {
	pages := s.pages.List()
	nav := make([]render.NavItem, 0, len(pages)+2)
	for _, page := range pages {
		href := "/" + page.Slug
		if page.Slug == "home" {
			href = "/"
		}
		nav = append(nav, render.NavItem{Label: page.Title, Href: href, Active: r.URL.Path == href})
	}
	nav = append(nav, render.NavItem{Label: "Contact", Href: "/contact", Active: r.URL.Path == "/contact"})
	if _, ok := s.auth.Optional(r); ok {
		nav = append(nav, render.NavItem{Label: "Dashboard", Href: "/dashboard"})
	} else {
		login := s.auth.Config().LoginPath
		nav = append(nav, render.NavItem{Label: "Log in", Href: login, Active: r.URL.Path == login})
	}
	return nav
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen %s: %w", addr, err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
