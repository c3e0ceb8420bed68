// Package container wires the engine's dependencies from configuration.
package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/satishbabariya/prisma-engine/internal/adapters/connector"
	"github.com/satishbabariya/prisma-engine/internal/adapters/connector/memory"
	"github.com/satishbabariya/prisma-engine/internal/adapters/connector/sqlconnector"
	"github.com/satishbabariya/prisma-engine/internal/adapters/telemetry"
	"github.com/satishbabariya/prisma-engine/internal/config"
	"github.com/satishbabariya/prisma-engine/internal/core/query/executor"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
	"github.com/satishbabariya/prisma-engine/internal/debug"
)

// Container holds all engine dependencies.
type Container struct {
	config *config.Config
	schema *schema.Schema

	logger    *slog.Logger
	telemetry *telemetry.Provider
	connector connector.Connector
	executor  *executor.InterpretingExecutor
}

// Option configures a Container.
type Option func(*options)

type options struct {
	logOutput io.Writer
	connector connector.Connector
}

// WithLogOutput redirects log output.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithConnector uses c instead of opening one from the configuration.
func WithConnector(c connector.Connector) Option {
	return func(o *options) { o.connector = c }
}

// New creates a container for schema s.
func New(ctx context.Context, cfg *config.Config, s *schema.Schema, opts ...Option) (*Container, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger, err := debug.New(debug.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: o.logOutput})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tp, err := telemetry.Setup(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	c := &Container{config: cfg, schema: s, logger: logger, telemetry: tp, connector: o.connector}
	if c.connector == nil {
		c.connector, err = createConnector(ctx, cfg, s, logger)
		if err != nil {
			_ = tp.Shutdown(ctx)
			return nil, fmt.Errorf("failed to create connector: %w", err)
		}
	}

	c.executor = executor.NewInterpretingExecutor(c.connector,
		executor.WithLogger(logger),
		executor.WithTracer(tp.Tracer()))
	logger.Debug("engine ready", "connector", c.connector.Name(), "models", len(s.Models))
	return c, nil
}

// Provider resolves the backend: configuration wins over the schema
// datasource.
func Provider(cfg *config.Config, s *schema.Schema) string {
	if cfg.Provider != "" {
		return cfg.Provider
	}
	return s.Provider
}

func createConnector(ctx context.Context, cfg *config.Config, s *schema.Schema, logger *slog.Logger) (connector.Connector, error) {
	provider := Provider(cfg, s)
	switch provider {
	case "":
		return nil, errors.New("no provider configured and the schema has no datasource")
	case "memory":
		return memory.New(memory.WithLogger(logger)), nil
	case "memory-document":
		return memory.New(memory.WithDocumentMode(), memory.WithLogger(logger)), nil
	}
	cc := cfg.Connector()
	cc.Provider = provider
	return sqlconnector.Open(ctx, cc, sqlconnector.WithLogger(logger))
}

// Config returns the configuration.
func (c *Container) Config() *config.Config { return c.config }

// Schema returns the loaded schema.
func (c *Container) Schema() *schema.Schema { return c.schema }

// Logger returns the engine logger.
func (c *Container) Logger() *slog.Logger { return c.logger }

// Connector returns the primary connector.
func (c *Container) Connector() connector.Connector { return c.connector }

// Executor returns the query executor.
func (c *Container) Executor() *executor.InterpretingExecutor { return c.executor }

// Push creates the schema's tables on SQL backends. It is a no-op for
// in-memory stores.
func (c *Container) Push(ctx context.Context) error {
	sc, ok := c.connector.(*sqlconnector.Connector)
	if !ok {
		return nil
	}
	return sc.CreateTables(ctx, c.schema)
}

// Close releases the connector and flushes traces.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if closer, ok := c.connector.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	errs = append(errs, c.telemetry.Shutdown(ctx))
	return errors.Join(errs...)
}
