// Package sqlconnector implements the connector interfaces over
// database/sql for SQLite, PostgreSQL and MySQL.
package sqlconnector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/satishbabariya/prisma-engine/internal/adapters/connector"
	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
)

const defaultConnectTimeout = 5 * time.Second

// Connector hands out connections from a database/sql pool.
type Connector struct {
	db      *sql.DB
	dialect *Dialect
	logger  *slog.Logger
}

// Option configures a Connector.
type Option func(*Connector)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connector) { c.logger = l }
}

// New wraps an open pool.
func New(db *sql.DB, dialect *Dialect, opts ...Option) *Connector {
	c := &Connector{db: db, dialect: dialect, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open connects to the database described by cfg and verifies the
// connection.
func Open(ctx context.Context, cfg connector.Config, opts ...Option) (*Connector, error) {
	dialect, err := DialectFor(cfg.Provider)
	if err != nil {
		return nil, err
	}

	dsn := cfg.URL
	if dialect == MySQL {
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == SQLite {
		// SQLite serializes writers; one connection avoids SQLITE_BUSY
		// between our own transactions.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, classify(nil, fmt.Errorf("failed to ping database: %w", err))
	}

	if dialect == SQLite {
		if _, err := db.ExecContext(pingCtx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	return New(db, dialect, opts...), nil
}

// mysqlDSN enables the driver options the connector relies on: time
// parsing, and matched rather than changed rows in RowsAffected.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql url: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

var _ connector.Connector = (*Connector)(nil)

// Name implements connector.Connector.
func (c *Connector) Name() string { return c.dialect.Name }

// Dialect returns the SQL dialect.
func (c *Connector) Dialect() *Dialect { return c.dialect }

// DB returns the underlying pool.
func (c *Connector) DB() *sql.DB { return c.db }

// Close closes the pool.
func (c *Connector) Close() error {
	return c.db.Close()
}

// GetConnection implements connector.Connector.
func (c *Connector) GetConnection(ctx context.Context) (connector.Connection, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, classify(nil, err)
	}
	return &Connection{connector: c, conn: conn}, nil
}

// Connection pins one pooled connection.
type Connection struct {
	connector *Connector
	conn      *sql.Conn
	open      *Transaction
}

var _ connector.Connection = (*Connection)(nil)

// StartTransaction implements connector.Connection.
func (c *Connection) StartTransaction(ctx context.Context) (connector.Transaction, error) {
	if c.conn == nil {
		return nil, coreerrors.Connectorf(coreerrors.CodeConnectionClosed, "connection closed").WithCause(connector.ErrConnectionClosed)
	}
	if c.open != nil && !c.open.closed {
		return nil, coreerrors.Connectorf(coreerrors.CodeTransaction, "a transaction is already open on this connection")
	}
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(nil, err)
	}
	c.open = &Transaction{connector: c.connector, tx: tx}
	c.connector.logger.Debug("sql transaction started", "connector", c.connector.Name())
	return c.open, nil
}

// Close implements connector.Connection. An open transaction is rolled
// back.
func (c *Connection) Close() error {
	if c.conn == nil {
		return nil
	}
	if c.open != nil && !c.open.closed {
		_ = c.open.Rollback(context.Background())
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
