// Package memory implements an in-memory connector. Each transaction works
// on a private snapshot of the store and publishes it on commit; a commit
// fails with a write conflict when another transaction committed writes in
// between.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/satishbabariya/prisma-engine/internal/adapters/connector"
	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
	"github.com/satishbabariya/prisma-engine/internal/core/query/filter"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

// Connector is an in-memory backend.
type Connector struct {
	name   string
	mode   filter.NullMode
	logger *slog.Logger

	mu      sync.Mutex
	state   *state
	version uint64
}

// Option configures a Connector.
type Option func(*Connector)

// WithDocumentMode makes the store behave like a document database: fields
// missing from written data stay absent instead of becoming null.
func WithDocumentMode() Option {
	return func(c *Connector) {
		c.mode = filter.Document
		if c.name == "memory" {
			c.name = "memory-document"
		}
	}
}

// WithName overrides the connector name.
func WithName(name string) Option {
	return func(c *Connector) { c.name = name }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connector) { c.logger = l }
}

// New creates an empty store.
func New(opts ...Option) *Connector {
	c := &Connector{
		name:   "memory",
		mode:   filter.Relational,
		logger: slog.New(slog.DiscardHandler),
		state:  newState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ connector.Connector = (*Connector)(nil)

// Name implements connector.Connector.
func (c *Connector) Name() string { return c.name }

// Mode reports how absent fields are treated.
func (c *Connector) Mode() filter.NullMode { return c.mode }

// GetConnection implements connector.Connector.
func (c *Connector) GetConnection(ctx context.Context) (connector.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Connection{connector: c}, nil
}

// Seed inserts records outside of any transaction, generating defaults the
// same way CreateRecord does. Intended for fixtures.
func (c *Connector) Seed(model *schema.Model, records ...value.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.state.clone()
	for _, rec := range records {
		if _, err := next.insert(model, rec, c.mode); err != nil {
			return fmt.Errorf("seed %s: %w", model.Name, err)
		}
	}
	c.state = next
	c.version++
	return nil
}

// Records returns a copy of the committed records of model.
func (c *Connector) Records(model *schema.Model) []value.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows := c.state.tables[model.Name]
	out := make([]value.Record, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

func (c *Connector) snapshot() (*state, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone(), c.version
}

func (c *Connector) publish(next *state, base uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != base {
		return coreerrors.Executionf(coreerrors.CodeWriteConflict,
			"Transaction failed due to a write conflict or a deadlock. Please retry your transaction").
			WithCause(coreerrors.ErrWriteConflict)
	}
	c.state = next
	c.version++
	return nil
}

// Connection is a session on the store.
type Connection struct {
	connector *Connector

	mu     sync.Mutex
	closed bool
	open   *Transaction
}

var _ connector.Connection = (*Connection)(nil)

// StartTransaction implements connector.Connection.
func (c *Connection) StartTransaction(ctx context.Context) (connector.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, coreerrors.Connectorf(coreerrors.CodeConnectionClosed, "connection closed").WithCause(connector.ErrConnectionClosed)
	}
	if c.open != nil && !c.open.isClosed() {
		return nil, coreerrors.Connectorf(coreerrors.CodeTransaction, "a transaction is already open on this connection")
	}
	st, version := c.connector.snapshot()
	tx := &Transaction{connector: c.connector, state: st, base: version}
	c.open = tx
	c.connector.logger.Debug("memory transaction started", "connector", c.connector.name, "version", version)
	return tx, nil
}

// Close implements connector.Connection. An open transaction is rolled
// back.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open != nil {
		c.open.discard()
	}
	c.closed = true
	return nil
}
