package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/satishbabariya/prisma-engine/internal/adapters/connector"
	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
	"github.com/satishbabariya/prisma-engine/internal/core/query/domain"
	"github.com/satishbabariya/prisma-engine/internal/core/query/filter"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

// Transaction works on a private snapshot of the store.
type Transaction struct {
	connector *Connector

	mu     sync.Mutex
	state  *state
	base   uint64
	dirty  bool
	closed bool
}

var _ connector.Transaction = (*Transaction)(nil)

func (tx *Transaction) isClosed() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.closed
}

func (tx *Transaction) discard() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.closed = true
	tx.state = nil
}

// begin locks the transaction for one primitive.
func (tx *Transaction) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.mu.Lock()
	if tx.closed {
		tx.mu.Unlock()
		return coreerrors.Connectorf(coreerrors.CodeTransaction, "transaction already closed").WithCause(connector.ErrTransactionClosed)
	}
	return nil
}

// Commit implements connector.Transaction.
func (tx *Transaction) Commit(ctx context.Context) error {
	if err := tx.begin(ctx); err != nil {
		return err
	}
	defer tx.mu.Unlock()
	tx.closed = true
	if !tx.dirty {
		return nil
	}
	if err := tx.connector.publish(tx.state, tx.base); err != nil {
		return err
	}
	tx.connector.logger.Debug("memory transaction committed", "connector", tx.connector.name)
	return nil
}

// Rollback implements connector.Transaction. It never fails.
func (tx *Transaction) Rollback(context.Context) error {
	tx.discard()
	tx.connector.logger.Debug("memory transaction rolled back", "connector", tx.connector.name)
	return nil
}

// ReadRecords implements connector.Transaction.
func (tx *Transaction) ReadRecords(ctx context.Context, model *schema.Model, args connector.ReadArgs) ([]value.Record, error) {
	if err := tx.begin(ctx); err != nil {
		return nil, err
	}
	defer tx.mu.Unlock()

	where := args.Filter
	if where == nil {
		where = filter.True()
	}
	matched := filter.Filter(tx.state.tables[model.Name], where, tx.connector.mode)
	sortRecords(matched, args.OrderBy)

	if args.Skip > 0 {
		if args.Skip >= len(matched) {
			matched = nil
		} else {
			matched = matched[args.Skip:]
		}
	}
	if args.Take != nil && *args.Take < len(matched) {
		matched = matched[:*args.Take]
	}

	out := make([]value.Record, len(matched))
	for i, rec := range matched {
		if len(args.Fields) > 0 {
			out[i] = rec.Project(args.Fields)
		} else {
			out[i] = rec.Clone()
		}
	}
	return out, nil
}

// sortRecords orders records by keys; nulls sort first ascending and last
// descending, matching SQLite and MySQL.
func sortRecords(records []value.Record, keys []domain.OrderBy) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, k := range keys {
			c := compareForSort(records[i][k.Field], records[j][k.Field])
			if c == 0 {
				continue
			}
			if k.Direction == domain.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareForSort(a, b value.Value) int {
	switch {
	case a.IsNull() && b.IsNull():
		return 0
	case a.IsNull():
		return -1
	case b.IsNull():
		return 1
	}
	c, _ := value.Compare(a, b)
	return c
}

// CreateRecord implements connector.Transaction.
func (tx *Transaction) CreateRecord(ctx context.Context, model *schema.Model, data value.Record) (value.Record, error) {
	if err := tx.begin(ctx); err != nil {
		return nil, err
	}
	defer tx.mu.Unlock()
	rec, err := tx.state.insert(model, data, tx.connector.mode)
	if err != nil {
		return nil, err
	}
	tx.dirty = true
	return rec, nil
}

// UpdateRecords implements connector.Transaction.
func (tx *Transaction) UpdateRecords(ctx context.Context, model *schema.Model, where filter.Predicate, data value.Record) (int, error) {
	if err := tx.begin(ctx); err != nil {
		return 0, err
	}
	defer tx.mu.Unlock()
	n, err := tx.state.update(model, where, data, tx.connector.mode)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		tx.dirty = true
	}
	return n, nil
}

// DeleteRecords implements connector.Transaction.
func (tx *Transaction) DeleteRecords(ctx context.Context, model *schema.Model, where filter.Predicate) (int, error) {
	if err := tx.begin(ctx); err != nil {
		return 0, err
	}
	defer tx.mu.Unlock()
	n := tx.state.delete(model, where, tx.connector.mode)
	if n > 0 {
		tx.dirty = true
	}
	return n, nil
}
