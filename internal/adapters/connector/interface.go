// Package connector defines the capability interfaces a storage backend
// implements to run query graphs.
package connector

import (
	"context"
	"errors"
	"time"

	"github.com/satishbabariya/prisma-engine/internal/core/query/domain"
	"github.com/satishbabariya/prisma-engine/internal/core/query/filter"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

var (
	// ErrTransactionClosed is returned by primitives called after Commit or Rollback.
	ErrTransactionClosed = errors.New("transaction already closed")

	// ErrConnectionClosed is returned when a closed connection is used.
	ErrConnectionClosed = errors.New("connection closed")
)

// Connector hands out connections to one backend.
type Connector interface {
	// Name identifies the backend, e.g. "sqlite" or "memory".
	Name() string

	// GetConnection acquires a connection for the duration of one request.
	GetConnection(ctx context.Context) (Connection, error)
}

// Connection is a session that can open transactions, one at a time.
type Connection interface {
	// StartTransaction opens a transaction.
	StartTransaction(ctx context.Context) (Transaction, error)

	// Close releases the connection.
	Close() error
}

// Transaction runs node primitives atomically. After Commit or Rollback it
// is closed; Rollback is always safe to call, including after a failed
// Commit or a previous Rollback.
type Transaction interface {
	// Commit makes the transaction's writes durable.
	Commit(ctx context.Context) error

	// Rollback discards the transaction's writes.
	Rollback(ctx context.Context) error

	// ReadRecords returns the records of model matching args.
	ReadRecords(ctx context.Context, model *schema.Model, args ReadArgs) ([]value.Record, error)

	// CreateRecord inserts data and returns the stored record with every
	// scalar field, including connector-generated values.
	CreateRecord(ctx context.Context, model *schema.Model, data value.Record) (value.Record, error)

	// UpdateRecords sets data on the records matching where and returns
	// the number of affected records.
	UpdateRecords(ctx context.Context, model *schema.Model, where filter.Predicate, data value.Record) (int, error)

	// DeleteRecords removes the records matching where and returns the
	// number of removed records.
	DeleteRecords(ctx context.Context, model *schema.Model, where filter.Predicate) (int, error)
}

// ReadArgs selects and pages records. Records are returned in OrderBy
// order; ties keep the backend's natural order.
type ReadArgs struct {
	Filter  filter.Predicate
	OrderBy []domain.OrderBy
	Skip    int
	Take    *int
	Fields  []string
}

// Config holds backend connection settings.
type Config struct {
	Provider        string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}
