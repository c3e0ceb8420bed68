package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/satishbabariya/prisma-engine/internal/cli/ui"
	"github.com/satishbabariya/prisma-engine/internal/core/query/document"
	"github.com/satishbabariya/prisma-engine/internal/watch"
)

type queryOptions struct {
	file   string
	vars   []string
	format string
	watch  bool
	push   bool
}

func newQueryCommand(g *globals) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query [document]",
		Short: "Execute a query document",
		Long: `Execute a query document and print one response per operation.

The document is read from --file or given as the only argument. With
--watch the file is executed again every time it changes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, g, opts, args)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "File containing the query document")
	f.StringArrayVar(&opts.vars, "var", nil, "Variable as name=value; values are parsed as YAML scalars")
	f.StringVar(&opts.format, "format", ui.FormatJSON, "Output format: json or table")
	f.BoolVar(&opts.watch, "watch", false, "Re-run when --file changes")
	f.BoolVar(&opts.push, "push", false, "Create the schema's tables before running")
	return cmd
}

func runQuery(cmd *cobra.Command, g *globals, opts *queryOptions, args []string) error {
	if (opts.file == "") == (len(args) == 0) {
		return fmt.Errorf("give either --file or a document argument")
	}
	if opts.watch && opts.file == "" {
		return fmt.Errorf("--watch needs --file")
	}
	variables, err := parseVars(opts.vars)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := g.boot(ctx, cmd)
	if err != nil {
		return err
	}
	defer c.Close(context.WithoutCancel(ctx))
	if opts.push {
		if err := c.Push(ctx); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	printer := ui.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
	run := func(ctx context.Context) error {
		src := ""
		if opts.file != "" {
			raw, err := os.ReadFile(opts.file)
			if err != nil {
				return err
			}
			src = string(raw)
		} else {
			src = args[0]
		}
		doc, err := document.ParseGraphQL(src, variables)
		if err != nil {
			return err
		}
		responses, err := c.Executor().Execute(ctx, doc, c.Schema())
		if err != nil {
			return err
		}
		return printer.Responses(responses, opts.format)
	}

	if !opts.watch {
		return run(ctx)
	}
	w, err := watch.New(opts.file, func(ctx context.Context) error {
		if err := run(ctx); err != nil {
			printer.Error("%v", err)
		}
		return nil
	}, watch.WithLogger(c.Logger()))
	if err != nil {
		return err
	}
	printer.Info("watching %s", opts.file)
	return w.Run(ctx)
}

// parseVars reads name=value pairs. Values are YAML scalars, so 5 is an
// integer, true a boolean, null a null and anything else a string.
func parseVars(pairs []string) (map[string]any, error) {
	vars := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q, want name=value", pair)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("invalid --var %q: %w", pair, err)
		}
		if i, ok := v.(int); ok {
			v = int64(i)
		}
		vars[name] = v
	}
	return vars, nil
}
