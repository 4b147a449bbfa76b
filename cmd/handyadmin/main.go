// Command handyadmin serves the admin console and offers terminal helpers
// for the same resource catalog.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-handyadmin/internal/config"
	"github.com/goliatone/go-handyadmin/internal/logging"
	"github.com/goliatone/go-handyadmin/pkg/client"
)

var (
	// Global flags
	configPath string
	listenAddr string
	apiURL     string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	api    *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "handyadmin",
	Short: "Admin console for a handyman business",
	Long: `handyadmin renders tables and forms for every resource in its catalog
and forwards every change to the upstream REST API.

Run "handyadmin serve" to start the web console.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if listenAddr != "" {
			cfg.Listen = listenAddr
		}
		if apiURL != "" {
			cfg.API.BaseURL = apiURL
		}
		if verbose {
			cfg.Log.Level = "debug"
		}

		logger, err = logging.New(cfg.Log.Level, cfg.Log.Development)
		if err != nil {
			return err
		}
		api, err = client.New(cfg.API.BaseURL,
			client.WithTimeout(cfg.APITimeout()),
			client.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("failed to build api client: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "handyadmin.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "addr", "", "listen address, overrides the config")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "upstream API base URL, overrides the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, fillCmd, catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
