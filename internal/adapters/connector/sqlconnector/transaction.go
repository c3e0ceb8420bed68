package sqlconnector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/satishbabariya/prisma-engine/internal/adapters/connector"
	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
	"github.com/satishbabariya/prisma-engine/internal/core/query/filter"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

// Transaction wraps a database/sql transaction. It is used by one
// goroutine at a time.
type Transaction struct {
	connector *Connector
	tx        *sql.Tx
	closed    bool
}

var _ connector.Transaction = (*Transaction)(nil)

func (t *Transaction) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.closed {
		return coreerrors.Connectorf(coreerrors.CodeTransaction, "transaction already closed").WithCause(connector.ErrTransactionClosed)
	}
	return nil
}

func (t *Transaction) logQuery(q *Query) {
	t.connector.logger.Debug("sql query", "connector", t.connector.Name(), "sql", q.SQL, "args", len(q.Args))
}

// Commit implements connector.Transaction.
func (t *Transaction) Commit(ctx context.Context) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	t.closed = true
	if err := t.tx.Commit(); err != nil {
		return classify(nil, err)
	}
	t.connector.logger.Debug("sql transaction committed", "connector", t.connector.Name())
	return nil
}

// Rollback implements connector.Transaction.
func (t *Transaction) Rollback(context.Context) error {
	t.closed = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return classify(nil, err)
	}
	t.connector.logger.Debug("sql transaction rolled back", "connector", t.connector.Name())
	return nil
}

// ReadRecords implements connector.Transaction.
func (t *Transaction) ReadRecords(ctx context.Context, model *schema.Model, args connector.ReadArgs) ([]value.Record, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	q := newGenerator(t.connector.dialect, model).Select(args)
	t.logQuery(q)

	rows, err := t.tx.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, classify(model, err)
	}
	defer rows.Close()

	var out []value.Record
	for rows.Next() {
		rec, err := scanRecord(model, rows)
		if err != nil {
			return nil, err
		}
		if len(args.Fields) > 0 {
			rec = rec.Project(args.Fields)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(model, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row holding every scalar column of model.
func scanRecord(model *schema.Model, row scanner) (value.Record, error) {
	fields := model.ScalarFields()
	raw := make([]any, len(fields))
	dest := make([]any, len(fields))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := row.Scan(dest...); err != nil {
		return nil, classify(model, err)
	}
	rec := make(value.Record, len(fields))
	for i, f := range fields {
		v, err := value.FromDriver(raw[i], f.Scalar)
		if err != nil {
			return nil, coreerrors.Executionf("", "cannot read %s.%s: %v", model.Name, f.Name, err).
				WithModel(model.Name).WithField(f.Name).WithCause(err)
		}
		rec[f.Name] = v
	}
	return rec, nil
}

// CreateRecord implements connector.Transaction.
func (t *Transaction) CreateRecord(ctx context.Context, model *schema.Model, data value.Record) (value.Record, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	q := newGenerator(t.connector.dialect, model).Insert(data)
	t.logQuery(q)

	if t.connector.dialect.Returning {
		rec, err := scanRecord(model, t.tx.QueryRowContext(ctx, q.SQL, q.Args...))
		if err != nil {
			return nil, err
		}
		return rec, nil
	}

	res, err := t.tx.ExecContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, classify(model, err)
	}
	id := model.ID()
	key, ok := data[id.Name]
	if !ok {
		last, err := res.LastInsertId()
		if err != nil {
			return nil, classify(model, fmt.Errorf("read generated id: %w", err))
		}
		if key, err = value.FromDriver(last, id.Scalar); err != nil {
			return nil, classify(model, err)
		}
	}
	take := 1
	recs, err := t.ReadRecords(ctx, model, connector.ReadArgs{
		Filter: filter.Compare{Field: id.Name, Op: filter.Equals, Value: key},
		Take:   &take,
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, coreerrors.Executionf(coreerrors.CodeRecordNotFound, "created record not found").
			WithModel(model.Name).WithCause(coreerrors.ErrNotFound)
	}
	return recs[0], nil
}

// UpdateRecords implements connector.Transaction.
func (t *Transaction) UpdateRecords(ctx context.Context, model *schema.Model, where filter.Predicate, data value.Record) (int, error) {
	if err := t.check(ctx); err != nil {
		return 0, err
	}
	g := newGenerator(t.connector.dialect, model)
	if len(data) == 0 {
		q := g.Count(where)
		t.logQuery(q)
		var n int
		if err := t.tx.QueryRowContext(ctx, q.SQL, q.Args...).Scan(&n); err != nil {
			return 0, classify(model, err)
		}
		return n, nil
	}
	return t.exec(ctx, model, g.Update(where, data))
}

// DeleteRecords implements connector.Transaction.
func (t *Transaction) DeleteRecords(ctx context.Context, model *schema.Model, where filter.Predicate) (int, error) {
	if err := t.check(ctx); err != nil {
		return 0, err
	}
	return t.exec(ctx, model, newGenerator(t.connector.dialect, model).Delete(where))
}

func (t *Transaction) exec(ctx context.Context, model *schema.Model, q *Query) (int, error) {
	t.logQuery(q)
	res, err := t.tx.ExecContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return 0, classify(model, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(model, err)
	}
	return int(n), nil
}
