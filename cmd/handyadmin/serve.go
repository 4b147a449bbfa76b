package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-handyadmin/internal/auth"
	"github.com/goliatone/go-handyadmin/internal/catalog"
	"github.com/goliatone/go-handyadmin/internal/server"
	"github.com/goliatone/go-handyadmin/pkg/format"
	"github.com/goliatone/go-handyadmin/pkg/renderers/html"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web console",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	themeCfg, err := server.ThemeFromConfig(cfg.Theme)
	if err != nil {
		return err
	}
	authSvc := auth.NewService(api, auth.Config{
		AccessCookie:  cfg.Auth.AccessCookie,
		RefreshCookie: cfg.Auth.RefreshCookie,
		LoginPath:     cfg.Auth.LoginPath,
		Secure:        cfg.Auth.SecureCookies,
	}, auth.WithLogger(logger))

	renderers, err := newRenderers(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	pages, err := renderers.Page(html.Name)
	if err != nil {
		return err
	}

	srv, err := server.New(api, cat, authSvc,
		server.WithLogger(logger),
		server.WithTheme(themeCfg),
		server.WithRenderer(pages),
	)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.ListenAndServe(ctx, cfg.Listen, srv, logger)
}

// loadCatalog reads the configured catalog directory, or the embedded
// catalog when none is set.
func loadCatalog() (*catalog.Catalog, error) {
	formats := format.NewRegistry()
	if cfg.Catalog.Path == "" {
		return catalog.Default(formats)
	}
	return catalog.LoadFS(os.DirFS(cfg.Catalog.Path), formats)
}
