package sqlconnector_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/prisma-engine/internal/adapters/connector"
	"github.com/satishbabariya/prisma-engine/internal/adapters/connector/sqlconnector"
	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
	"github.com/satishbabariya/prisma-engine/internal/core/query/domain"
	"github.com/satishbabariya/prisma-engine/internal/core/query/filter"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

var testSchema = schema.MustLoad(`
model Item {
  id    Int     @id @default(autoincrement())
  sku   String  @unique
  qty   BigInt?
  price Decimal?
  seen  DateTime?
  ok    Boolean @default(false)
}`)

func item(t *testing.T) *schema.Model {
	t.Helper()
	m, ok := testSchema.Model("Item")
	require.True(t, ok)
	return m
}

// openSQLite returns a connector on a private in-memory database.
func openSQLite(t *testing.T) *sqlconnector.Connector {
	t.Helper()
	ctx := context.Background()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	c, err := sqlconnector.Open(ctx, connector.Config{
		Provider: "sqlite",
		URL:      fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.CreateTables(ctx, testSchema))
	return c
}

// begin opens a connection and a transaction on it. SQLite pools a single
// connection, so callers close the connection before beginning again.
func begin(t *testing.T, c connector.Connector) (connector.Connection, connector.Transaction) {
	t.Helper()
	ctx := context.Background()
	conn, err := c.GetConnection(ctx)
	require.NoError(t, err)
	tx, err := conn.StartTransaction(ctx)
	require.NoError(t, err)
	return conn, tx
}

func TestCreateAndRead(t *testing.T) {
	ctx := context.Background()
	c := openSQLite(t)
	m := item(t)
	assert.Equal(t, "sqlite", c.Name())

	conn, tx := begin(t, c)
	rec, err := tx.CreateRecord(ctx, m, value.Record{
		"sku":   value.String("a"),
		"qty":   value.BigInt(9007199254740993),
		"price": value.MustDecimal("1.5"),
		"ok":    value.Bool(true),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec["id"].AsInt())
	assert.Equal(t, value.KindBigInt, rec["qty"].Kind())
	assert.Equal(t, int64(9007199254740993), rec["qty"].AsInt())
	assert.True(t, rec["ok"].AsBool())
	assert.True(t, rec["seen"].IsNull())

	_, err = tx.CreateRecord(ctx, m, value.Record{"sku": value.String("b"), "ok": value.Bool(false)})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, conn.Close())

	conn, tx = begin(t, c)
	defer conn.Close()
	take := 1
	got, err := tx.ReadRecords(ctx, m, connector.ReadArgs{
		Filter:  filter.True(),
		OrderBy: []domain.OrderBy{{Field: "id", Direction: domain.Desc}},
		Take:    &take,
		Fields:  []string{"id", "qty"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0]["id"].AsInt())
	assert.True(t, got[0]["qty"].IsNull())
	assert.NotContains(t, got[0], "sku")
	require.NoError(t, tx.Commit(ctx))
}

func TestFiltersMatchMemorySemantics(t *testing.T) {
	ctx := context.Background()
	c := openSQLite(t)
	m := item(t)

	conn, tx := begin(t, c)
	defer conn.Close()
	for i, qty := range []value.Value{value.BigInt(1), value.BigInt(5), value.Null()} {
		_, err := tx.CreateRecord(ctx, m, value.Record{"sku": value.String(fmt.Sprint(i)), "qty": qty, "ok": value.Bool(false)})
		require.NoError(t, err)
	}

	ids := func(p filter.Predicate) []int64 {
		recs, err := tx.ReadRecords(ctx, m, connector.ReadArgs{
			Filter:  p,
			OrderBy: []domain.OrderBy{{Field: "id", Direction: domain.Asc}},
		})
		require.NoError(t, err)
		out := make([]int64, 0, len(recs))
		for _, r := range recs {
			out = append(out, r["id"].AsInt())
		}
		return out
	}

	assert.Equal(t, []int64{2}, ids(filter.Compare{Field: "qty", Op: filter.Equals, Value: value.BigInt(5)}))
	assert.Equal(t, []int64{1}, ids(filter.Compare{Field: "qty", Op: filter.NotEquals, Value: value.BigInt(5)}))
	assert.Equal(t, []int64{3}, ids(filter.IsNull{Field: "qty"}))
	assert.Equal(t, []int64{1, 2, 3}, ids(filter.InList{Field: "qty", Negated: true}))
	assert.Empty(t, ids(filter.InList{Field: "qty"}))
	assert.Equal(t, []int64{1}, ids(filter.AndOf(
		filter.InList{Field: "qty", Negated: true, Values: []value.Value{value.BigInt(5)}},
		filter.IsNull{Field: "qty", Negated: true},
	)))
	require.NoError(t, tx.Rollback(ctx))
}

func TestUpdateDeleteAndRollback(t *testing.T) {
	ctx := context.Background()
	c := openSQLite(t)
	m := item(t)

	conn, tx := begin(t, c)
	for _, sku := range []string{"a", "b", "c"} {
		_, err := tx.CreateRecord(ctx, m, value.Record{"sku": value.String(sku), "ok": value.Bool(false)})
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, conn.Close())

	conn, tx = begin(t, c)
	n, err := tx.UpdateRecords(ctx, m, filter.InList{Field: "sku", Values: []value.Value{value.String("a"), value.String("b")}},
		value.Record{"qty": value.BigInt(7)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = tx.UpdateRecords(ctx, m, filter.True(), value.Record{})
	require.NoError(t, err)
	assert.Equal(t, 3, n, "an empty update counts matched rows")

	n, err = tx.DeleteRecords(ctx, m, filter.IsNull{Field: "qty"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, tx.Rollback(ctx), "rollback must be idempotent")

	_, err = tx.ReadRecords(ctx, m, connector.ReadArgs{})
	assert.ErrorIs(t, err, connector.ErrTransactionClosed)
	require.NoError(t, conn.Close())

	conn, tx = begin(t, c)
	defer conn.Close()
	recs, err := tx.ReadRecords(ctx, m, connector.ReadArgs{Filter: filter.IsNull{Field: "qty"}})
	require.NoError(t, err)
	assert.Len(t, recs, 3, "rolled back writes must not be visible")
	require.NoError(t, tx.Commit(ctx))
}

func TestConstraintErrorsAreClassified(t *testing.T) {
	ctx := context.Background()
	c := openSQLite(t)
	m := item(t)

	conn, tx := begin(t, c)
	defer conn.Close()
	_, err := tx.CreateRecord(ctx, m, value.Record{"sku": value.String("a"), "ok": value.Bool(false)})
	require.NoError(t, err)

	_, err = tx.CreateRecord(ctx, m, value.Record{"sku": value.String("a"), "ok": value.Bool(false)})
	require.Error(t, err)
	assert.ErrorIs(t, err, coreerrors.ErrUniqueConstraint)
	e, ok := coreerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, coreerrors.CodeUniqueViolation, e.Code)
	assert.Equal(t, "Item", e.Model)

	_, err = tx.CreateRecord(ctx, m, value.Record{"ok": value.Bool(false)})
	assert.ErrorIs(t, err, coreerrors.ErrNullConstraint)
	require.NoError(t, tx.Rollback(ctx))
}

func TestConnectionLifecycle(t *testing.T) {
	ctx := context.Background()
	c := openSQLite(t)

	conn, tx := begin(t, c)
	_, err := conn.StartTransaction(ctx)
	assert.Error(t, err, "one transaction per connection")
	require.NoError(t, tx.Commit(ctx))

	require.NoError(t, conn.Close())
	_, err = conn.StartTransaction(ctx)
	assert.ErrorIs(t, err, connector.ErrConnectionClosed)
}

func TestCanceledContext(t *testing.T) {
	c := openSQLite(t)
	conn, tx := begin(t, c)
	defer conn.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tx.ReadRecords(ctx, item(t), connector.ReadArgs{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, tx.Rollback(context.Background()))
}

func TestOpenUnsupportedProvider(t *testing.T) {
	_, err := sqlconnector.Open(context.Background(), connector.Config{Provider: "mongodb"})
	assert.Error(t, err)
}
