package main

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-handyadmin/pkg/client"
	"github.com/goliatone/go-handyadmin/pkg/form"
	"github.com/goliatone/go-handyadmin/pkg/renderers/tui"
	"github.com/goliatone/go-handyadmin/pkg/schema"
	"github.com/goliatone/go-handyadmin/pkg/table"
)

// TokenEnv holds the access token used by fill when --token is not set.
const TokenEnv = "HANDYADMIN_TOKEN"

const maxFillAttempts = 3

var accessToken string

var fillCmd = &cobra.Command{
	Use:   "fill [resource]",
	Short: "Create a record by answering prompts in the terminal",
	Long: `Prompts for every field of the resource's create form and submits it to
the upstream API. Validation errors returned by the API are shown and the
prompts repeat, up to three attempts.

The access token is read from --token or the HANDYADMIN_TOKEN environment
variable.`,
	Args: cobra.ExactArgs(1),
	RunE: runFill,
}

func init() {
	fillCmd.Flags().StringVar(&accessToken, "token", "", "access token for the upstream API")
}

func runFill(cmd *cobra.Command, args []string) error {
	token := accessToken
	if token == "" {
		token = os.Getenv(TokenEnv)
	}
	if token == "" {
		return fmt.Errorf("an access token is required: pass --token or set %s", TokenEnv)
	}
	ctx := client.ContextWithToken(cmd.Context(), token)

	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	res, err := cat.Resource(args[0])
	if err != nil {
		return err
	}
	if res.ReadOnly {
		return fmt.Errorf("%s is read-only", res.Name)
	}

	tbl := table.New(api, res, table.WithLogger(logger))
	tbl.LoadLookups(ctx)

	renderers, err := newRenderers(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	prompts, err := renderers.Collector(tui.Name)
	if err != nil {
		return err
	}

	created := tbl.CreateForm(api, form.WithOnSuccess(func(result client.Record) {
		logger.Debug("record created", zap.String("resource", res.Name), zap.Any("id", result["id"]))
	}))

	for attempt := 1; ; attempt++ {
		values, err := prompts.Collect(ctx, created.View())
		if err != nil {
			return err
		}
		if err := setValues(created, res, values); err != nil {
			return err
		}
		result, err := created.Submit(ctx)
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (id %v)\n", res.CreatedMessage(), result["id"])
			return nil
		}
		if client.IsUnauthorized(err) {
			return errors.New("the access token was rejected by the API")
		}
		if attempt >= maxFillAttempts || created.Errors().Empty() {
			return err
		}
	}
}

// setValues writes collected answers into the form. File answers are paths
// read from disk.
func setValues(f *form.Form, res schema.Resource, values map[string]any) error {
	for name, value := range values {
		field, ok := res.Field(name)
		if !ok {
			continue
		}
		if field.IsFile() {
			path, _ := value.(string)
			if path == "" {
				continue
			}
			file, err := readFile(path)
			if err != nil {
				return err
			}
			value = file
		}
		if err := f.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

func readFile(path string) (client.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return client.File{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return client.File{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}
