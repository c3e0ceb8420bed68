// Package commands implements the prisma-engine command line.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/prisma-engine/internal/cli/ui"
	"github.com/satishbabariya/prisma-engine/internal/config"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
	"github.com/satishbabariya/prisma-engine/internal/utils/container"
)

// globals holds the persistent flags shared by every command.
type globals struct {
	configFile  string
	schemaPath  string
	provider    string
	databaseURL string
	logLevel    string
	logFormat   string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "prisma-engine",
		Short:         "Run Prisma queries against a database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&g.configFile, "config", "", "Config file (default .prisma-engine.yaml)")
	flags.StringVarP(&g.schemaPath, "schema", "s", "", "Path to schema file")
	flags.StringVar(&g.provider, "provider", "", "Backend: sqlite, postgresql, mysql, memory or memory-document")
	flags.StringVar(&g.databaseURL, "database-url", "", "Database connection URL")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&g.logFormat, "log-format", "", "Log format: text or json")

	root.AddCommand(
		newQueryCommand(g),
		newServeCommand(g),
		newValidateCommand(g),
	)
	return root
}

// Execute runs the CLI.
func Execute() error {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		ui.New(os.Stdout, os.Stderr).Error("%v", err)
		return err
	}
	return nil
}

// loadConfig reads the configuration and applies flag overrides.
func (g *globals) loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader().Load(g.configFile)
	if err != nil {
		return nil, err
	}
	if g.schemaPath != "" {
		cfg.SchemaPath = g.schemaPath
	}
	if g.provider != "" {
		cfg.Provider = g.provider
	}
	if g.databaseURL != "" {
		cfg.DatabaseURL = g.databaseURL
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	return cfg, nil
}

func loadSchema(path string) (*schema.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema: %w", err)
	}
	defer f.Close()
	return schema.Parse(path, f)
}

// boot loads configuration and schema and wires the engine.
func (g *globals) boot(ctx context.Context, cmd *cobra.Command) (*container.Container, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	s, err := loadSchema(cfg.SchemaPath)
	if err != nil {
		return nil, err
	}
	return container.New(ctx, cfg, s, container.WithLogOutput(cmd.ErrOrStderr()))
}
