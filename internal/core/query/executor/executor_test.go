package executor_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/satishbabariya/prisma-engine/internal/adapters/connector"
	"github.com/satishbabariya/prisma-engine/internal/adapters/connector/memory"
	"github.com/satishbabariya/prisma-engine/internal/adapters/connector/sqlconnector"
	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
	"github.com/satishbabariya/prisma-engine/internal/core/query/document"
	"github.com/satishbabariya/prisma-engine/internal/core/query/executor"
	"github.com/satishbabariya/prisma-engine/internal/core/query/ir"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
	"github.com/satishbabariya/prisma-engine/internal/core/value"
	"github.com/satishbabariya/prisma-engine/internal/debug"
)

// filterTable is a data-driven filter suite: every case runs against every
// backend, with an optional expectation override for document stores.
type filterTable struct {
	Schema string   `yaml:"schema"`
	Seed   []string `yaml:"seed"`
	Cases  []struct {
		Name     string `yaml:"name"`
		Query    string `yaml:"query"`
		Expect   string `yaml:"expect"`
		Document string `yaml:"document"`
	} `yaml:"cases"`
}

type backend struct {
	name     string
	document bool
	open     func(t *testing.T, s *schema.Schema) connector.Connector
}

var backends = []backend{
	{name: "memory", open: func(*testing.T, *schema.Schema) connector.Connector { return memory.New() }},
	{name: "memory-document", document: true, open: func(*testing.T, *schema.Schema) connector.Connector {
		return memory.New(memory.WithDocumentMode())
	}},
	{name: "sqlite", open: openSQLite},
}

func openSQLite(t *testing.T, s *schema.Schema) connector.Connector {
	t.Helper()
	ctx := context.Background()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	c, err := sqlconnector.Open(ctx, connector.Config{
		Provider: "sqlite",
		URL:      fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.CreateTables(ctx, s))
	return c
}

func run(t *testing.T, e executor.QueryExecutor, s *schema.Schema, src string) []*ir.Response {
	t.Helper()
	doc, err := document.ParseGraphQL(src, nil)
	require.NoError(t, err)
	responses, err := e.Execute(context.Background(), doc, s)
	require.NoError(t, err)
	require.Len(t, responses, len(doc.Operations))
	return responses
}

func marshal(t *testing.T, v any) string {
	t.Helper()
	out, err := json.Marshal(v)
	require.NoError(t, err)
	return string(out)
}

func TestFilterTables(t *testing.T) {
	raw, err := os.ReadFile("testdata/filters/bigint.yaml")
	require.NoError(t, err)
	var table filterTable
	require.NoError(t, yaml.Unmarshal(raw, &table))
	s, err := schema.Load("bigint.prisma", table.Schema)
	require.NoError(t, err)

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			e := executor.NewInterpretingExecutor(b.open(t, s))
			for _, seed := range table.Seed {
				for _, resp := range run(t, e, s, seed) {
					require.False(t, resp.IsError(), "seed %s: %v", seed, resp.Err)
				}
			}
			for _, tc := range table.Cases {
				want := tc.Expect
				if b.document && tc.Document != "" {
					want = tc.Document
				}
				got := run(t, e, s, tc.Query)
				assert.JSONEq(t, want, marshal(t, got[0]), tc.Name)
			}
		})
	}
}

var blog = schema.MustLoad(`
model User {
  id    Int     @id @default(autoincrement())
  email String  @unique
  name  String?
  posts Post[]
}

model Post {
  id       Int    @id @default(autoincrement())
  title    String
  authorId Int
  author   User   @relation(fields: [authorId], references: [id])
}`)

func TestBatchResponsesKeepOrder(t *testing.T) {
	e := executor.NewInterpretingExecutor(memory.New())
	responses := run(t, e, blog, `{
  a: createOneUser(data: {email: "a@x", name: "Ann"}) { id email }
  b: createOneUser(data: {email: "a@x"}) { id }
  c: findManyUser { id name }
  d: deleteOneUser(where: {id: 9}) { id }
  e: countUser
}`)

	out, err := json.MarshalIndent(responses, "", "  ")
	require.NoError(t, err)
	g := goldie.New(t, goldie.WithFixtureDir("testdata/responses"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "batch", append(out, '\n'))
}

func TestRelationsAcrossBackends(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			e := executor.NewInterpretingExecutor(b.open(t, blog))
			run(t, e, blog, `{
  u1: createOneUser(data: {email: "a@x"}) { id }
  u2: createOneUser(data: {email: "b@x"}) { id }
  p1: createOnePost(data: {title: "one", authorId: 1}) { id }
  p2: createOnePost(data: {title: "two", authorId: 1}) { id }
  p3: createOnePost(data: {title: "three", authorId: 2}) { id }
}`)

			got := run(t, e, blog, `{ findManyUser { email posts(orderBy: {title: asc}) { title } } }`)
			assert.JSONEq(t, `{"data":{"findManyUser":[
  {"email":"a@x","posts":[{"title":"one"},{"title":"two"}]},
  {"email":"b@x","posts":[{"title":"three"}]}
]}}`, marshal(t, got[0]))

			got = run(t, e, blog, `{ findUniquePost(where: {id: 3}) { title author { email } } }`)
			assert.JSONEq(t, `{"data":{"findUniquePost":{"title":"three","author":{"email":"b@x"}}}}`, marshal(t, got[0]))

			got = run(t, e, blog, `{ updateManyPost(where: {authorId: 1}, data: {title: "x"}) { count } }`)
			assert.JSONEq(t, `{"data":{"updateManyPost":{"count":2}}}`, marshal(t, got[0]))

			got = run(t, e, blog, `{ updateOneUser(where: {email: "b@x"}, data: {name: "Bee"}) { id name } }`)
			assert.JSONEq(t, `{"data":{"updateOneUser":{"id":2,"name":"Bee"}}}`, marshal(t, got[0]))
		})
	}
}

// hookConnector wraps a connector to inject failures and observe
// transaction outcomes.
type hookConnector struct {
	connector.Connector
	onRead    func(ctx context.Context) error
	commitErr error

	rollbackErr error
	starts      int
	commits     int
	rollbacks   int
}

func (h *hookConnector) GetConnection(ctx context.Context) (connector.Connection, error) {
	conn, err := h.Connector.GetConnection(ctx)
	if err != nil {
		return nil, err
	}
	return &hookConnection{Connection: conn, hooks: h}, nil
}

type hookConnection struct {
	connector.Connection
	hooks *hookConnector
}

func (c *hookConnection) StartTransaction(ctx context.Context) (connector.Transaction, error) {
	tx, err := c.Connection.StartTransaction(ctx)
	if err != nil {
		return nil, err
	}
	c.hooks.starts++
	return &hookTx{Transaction: tx, hooks: c.hooks}, nil
}

type hookTx struct {
	connector.Transaction
	hooks *hookConnector
}

func (tx *hookTx) ReadRecords(ctx context.Context, m *schema.Model, args connector.ReadArgs) ([]value.Record, error) {
	if tx.hooks.onRead != nil {
		if err := tx.hooks.onRead(ctx); err != nil {
			return nil, err
		}
	}
	return tx.Transaction.ReadRecords(ctx, m, args)
}

func (tx *hookTx) Commit(ctx context.Context) error {
	tx.hooks.commits++
	if tx.hooks.commitErr != nil {
		return tx.hooks.commitErr
	}
	return tx.Transaction.Commit(ctx)
}

func (tx *hookTx) Rollback(ctx context.Context) error {
	tx.hooks.rollbacks++
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Transaction.Rollback(ctx); err != nil {
		return err
	}
	return tx.hooks.rollbackErr
}

func userModel(t *testing.T) *schema.Model {
	t.Helper()
	m, ok := blog.Model("User")
	require.True(t, ok)
	return m
}

func TestFailedGraphLeavesStorageUnchanged(t *testing.T) {
	store := memory.New()
	hooks := &hookConnector{
		Connector: store,
		onRead: func(context.Context) error {
			return coreerrors.Executionf("", "read failed")
		},
	}
	e := executor.NewInterpretingExecutor(hooks)
	doc, err := document.ParseGraphQL(`{ createOneUser(data: {email: "a@x"}) { id } }`, nil)
	require.NoError(t, err)

	responses, err := e.Execute(context.Background(), doc, blog)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.True(t, responses[0].IsError())
	assert.Equal(t, 1, hooks.rollbacks)
	assert.Zero(t, hooks.commits)
	assert.Empty(t, store.Records(userModel(t)), "the create must be rolled back")
}

func TestGraphsAreIndependent(t *testing.T) {
	store := memory.New()
	e := executor.NewInterpretingExecutor(store)
	responses := run(t, e, blog, `{
  a: createOneUser(data: {email: "a@x"}) { id }
  b: updateOneUser(where: {email: "missing"}, data: {name: "x"}) { id }
  c: createOneUser(data: {email: "c@x"}) { id }
}`)
	assert.False(t, responses[0].IsError())
	assert.True(t, responses[1].IsError())
	assert.False(t, responses[2].IsError())
	assert.Len(t, store.Records(userModel(t)), 2)
}

func TestCommitFailureAbortsRequest(t *testing.T) {
	hooks := &hookConnector{
		Connector: memory.New(),
		commitErr: coreerrors.Connectorf(coreerrors.CodeConnectionClosed, "server closed the connection"),
	}
	e := executor.NewInterpretingExecutor(hooks)
	doc, err := document.ParseGraphQL(`{ a: findManyUser { id } b: findManyUser { id } }`, nil)
	require.NoError(t, err)

	responses, err := e.Execute(context.Background(), doc, blog)
	require.Error(t, err)
	assert.Nil(t, responses)
	assert.True(t, coreerrors.IsConnector(err))
	ce, ok := coreerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, coreerrors.CodeConnectionClosed, ce.Code)
	assert.Equal(t, 1, hooks.commits, "the second graph must not run")
	assert.Equal(t, 1, hooks.rollbacks)
}

func TestCommitConflictAbortsAsConnectorError(t *testing.T) {
	hooks := &hookConnector{
		Connector: memory.New(),
		commitErr: coreerrors.Executionf(coreerrors.CodeWriteConflict, "write conflict").
			WithCause(coreerrors.ErrWriteConflict),
	}
	e := executor.NewInterpretingExecutor(hooks)
	doc, err := document.ParseGraphQL(`{ a: createOneUser(data: {email: "a@x"}) { id } b: findManyUser { id } }`, nil)
	require.NoError(t, err)

	responses, err := e.Execute(context.Background(), doc, blog)
	require.Error(t, err)
	assert.Nil(t, responses)
	assert.True(t, coreerrors.IsConnector(err))
	assert.ErrorIs(t, err, coreerrors.ErrWriteConflict)

	ce, ok := coreerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, coreerrors.CodeTransaction, ce.Code)
	assert.True(t, ce.Retryable)
	assert.Equal(t, 1, hooks.starts)
}

func TestRollbackFailureAbortsRequest(t *testing.T) {
	hooks := &hookConnector{
		Connector:   memory.New(),
		rollbackErr: coreerrors.Connectorf(coreerrors.CodeConnectionClosed, "server closed the connection"),
	}
	e := executor.NewInterpretingExecutor(hooks)
	doc, err := document.ParseGraphQL(`{
  a: updateOneUser(where: {email: "missing"}, data: {name: "x"}) { id }
  b: findManyUser { id }
}`, nil)
	require.NoError(t, err)

	responses, err := e.Execute(context.Background(), doc, blog)
	require.Error(t, err)
	assert.Nil(t, responses)
	assert.True(t, coreerrors.IsConnector(err))
	assert.False(t, coreerrors.IsExecution(err))

	ce, ok := coreerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, coreerrors.CodeConnectionClosed, ce.Code)
	assert.Equal(t, 1, hooks.starts, "later graphs must not start")
	assert.Equal(t, 1, hooks.rollbacks)
	assert.Zero(t, hooks.commits)
}

func TestPlanIsLoggedAtDebugLevel(t *testing.T) {
	for _, tc := range []struct {
		level string
		plan  bool
	}{
		{level: "debug", plan: true},
		{level: "info", plan: false},
	} {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := debug.New(debug.Options{Level: tc.level, Output: &buf})
			require.NoError(t, err)
			e := executor.NewInterpretingExecutor(memory.New(), executor.WithLogger(logger))
			run(t, e, blog, `{ findManyUser { id } }`)
			assert.Equal(t, tc.plan, strings.Contains(buf.String(), "running query graph"))
		})
	}
}

func TestCancellationRollsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hooks := &hookConnector{Connector: memory.New()}
	hooks.onRead = func(context.Context) error {
		cancel()
		return nil
	}
	e := executor.NewInterpretingExecutor(hooks)
	doc, err := document.ParseGraphQL(`{ createOneUser(data: {email: "a@x"}) { id posts { id } } }`, nil)
	require.NoError(t, err)

	_, err = e.Execute(ctx, doc, blog)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, hooks.commits)
	assert.Equal(t, 1, hooks.rollbacks, "rollback must run with a live context")
}

func TestValidationErrorsSkipTransactions(t *testing.T) {
	hooks := &hookConnector{Connector: memory.New()}
	e := executor.NewInterpretingExecutor(hooks)
	responses := run(t, e, blog, `{ findManyUser(where: {nope: 1}) { id } }`)
	require.True(t, responses[0].IsError())
	assert.Equal(t, coreerrors.CodeValidation, responses[0].Err.Code)
	assert.Zero(t, hooks.commits+hooks.rollbacks)
}

func TestConnectionFailureIsHard(t *testing.T) {
	store := memory.New()
	e := executor.NewInterpretingExecutor(store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc, err := document.ParseGraphQL(`{ findManyUser { id } }`, nil)
	require.NoError(t, err)
	_, err = e.Execute(ctx, doc, blog)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrimaryConnector(t *testing.T) {
	assert.Equal(t, "memory", executor.NewInterpretingExecutor(memory.New()).PrimaryConnector())
	assert.Equal(t, "memory-document", executor.NewInterpretingExecutor(memory.New(memory.WithDocumentMode())).PrimaryConnector())
}

func TestRequestID(t *testing.T) {
	ctx, id := executor.EnsureRequestID(context.Background())
	require.NotEmpty(t, id)
	got, ok := executor.RequestID(ctx)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	ctx = executor.WithRequestID(context.Background(), "req-1")
	_, id = executor.EnsureRequestID(ctx)
	assert.Equal(t, "req-1", id)
}
