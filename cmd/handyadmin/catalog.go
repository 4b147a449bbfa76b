package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-handyadmin/internal/catalog"
	"github.com/goliatone/go-handyadmin/pkg/format"
)

var components []string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and generate resource catalogs",
}

var catalogLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate the configured catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d resources ok: %v\n", len(cat.Names()), cat.Names())
		return nil
	},
}

var catalogImportCmd = &cobra.Command{
	Use:   "import [openapi-file]",
	Short: "Derive catalog entries from an OpenAPI document",
	Long: `Reads the component schemas of an OpenAPI 3 document and prints a YAML
catalog document. Review the output before dropping it into the catalog
directory: titles, table columns and lookups usually need a hand edit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		out, err := catalog.Import(cmd.Context(), data, catalog.ImportOptions{
			Components: components,
			Formats:    format.NewRegistry(),
		})
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	catalogImportCmd.Flags().StringSliceVar(&components, "component", nil, "component schema to import (repeatable)")
	catalogCmd.AddCommand(catalogLintCmd, catalogImportCmd)
}
