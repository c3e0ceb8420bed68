package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/prisma-engine/internal/cli/ui"
	"github.com/satishbabariya/prisma-engine/internal/core/query/builder"
	"github.com/satishbabariya/prisma-engine/internal/core/query/document"
)

func newValidateCommand(g *globals) *cobra.Command {
	var file string
	var plan bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a schema and optionally a query document",
		Long: `Validate a schema file. With --file the query document is built
against the schema without touching a database; --plan prints the
query graph of every operation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			s, err := loadSchema(cfg.SchemaPath)
			if err != nil {
				return err
			}
			printer := ui.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
			printer.Success("schema %s is valid (%d models, %d enums)", cfg.SchemaPath, len(s.Models), len(s.Enums))
			if file == "" {
				return nil
			}

			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			doc, err := document.ParseGraphQL(string(raw), nil)
			if err != nil {
				return err
			}
			failed := 0
			for _, q := range builder.New(s).Build(doc) {
				if q.Err != nil {
					failed++
					printer.Error("%s: %v", q.Key, q.Err)
					continue
				}
				if plan {
					printer.Plan(q.Key, q.Graph.String())
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d operation(s) are invalid", failed, len(doc.Operations))
			}
			printer.Success("%d operation(s) are valid", len(doc.Operations))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Query document to validate")
	cmd.Flags().BoolVar(&plan, "plan", false, "Print the query graph of each operation")
	return cmd
}
