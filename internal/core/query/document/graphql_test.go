package document_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/prisma-engine/internal/core/query/document"
	"github.com/satishbabariya/prisma-engine/internal/core/query/domain"
)

func TestParseGraphQL(t *testing.T) {
	src := `
query {
  findManyTestModel(where: { bInt: { not: { gt: "1" } } }, take: 2) { id }
  first: findFirstUser(orderBy: [{ email: desc }]) {
    email
    posts(where: { title: { in: ["a", "b"] } }) { id title }
  }
}
mutation ($email: String!, $name: String = "anon") {
  createOneUser(data: { email: $email, name: $name, active: true, score: 1.5, bio: null }) { id }
}`
	doc, err := document.ParseGraphQL(src, map[string]any{"email": "a@b.c"})
	require.NoError(t, err)
	require.Len(t, doc.Operations, 3)

	first := doc.Operations[0]
	assert.Equal(t, "findManyTestModel", first.Key)
	assert.Equal(t, domain.FindMany, first.Action)
	assert.Equal(t, "TestModel", first.Model)
	want := map[string]any{
		"where": map[string]any{"bInt": map[string]any{"not": map[string]any{"gt": "1"}}},
		"take":  int64(2),
	}
	if diff := cmp.Diff(want, first.Arguments); diff != "" {
		t.Errorf("arguments mismatch (-want +got):\n%s", diff)
	}

	second := doc.Operations[1]
	assert.Equal(t, "first", second.Key)
	assert.Equal(t, domain.FindFirst, second.Action)
	require.Len(t, second.Selection, 2)
	assert.False(t, second.Selection[0].IsNested())
	posts := second.Selection[1]
	require.True(t, posts.IsNested())
	assert.Equal(t, []any{"a", "b"}, posts.Arguments["where"].(map[string]any)["title"].(map[string]any)["in"])
	assert.Equal(t, "desc", second.Arguments["orderBy"].([]any)[0].(map[string]any)["email"])

	create := doc.Operations[2]
	assert.Equal(t, domain.CreateOne, create.Action)
	data := create.Arguments["data"].(map[string]any)
	assert.Equal(t, "a@b.c", data["email"])
	assert.Equal(t, "anon", data["name"])
	assert.Equal(t, true, data["active"])
	assert.Equal(t, 1.5, data["score"])
	assert.Contains(t, data, "bio")
	assert.Nil(t, data["bio"])
}

func TestParseGraphQLErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		vars    map[string]any
		wantErr string
	}{
		{name: "syntax", src: `{ findManyUser( { id } }`, wantErr: "parse request"},
		{name: "unknown action", src: `{ listUser { id } }`, wantErr: "known action"},
		{name: "action without model", src: `{ findMany { id } }`, wantErr: "known action"},
		{name: "fragment", src: `{ findManyUser { ...F } } fragment F on User { id }`, wantErr: "fragments"},
		{name: "missing required variable", src: `query ($id: Int!) { findUniqueUser(where: { id: $id }) { id } }`, wantErr: "$id"},
		{name: "int overflow", src: `{ findManyUser(take: 99999999999999999999) { id } }`, wantErr: "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := document.ParseGraphQL(tt.src, tt.vars)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSplitAction(t *testing.T) {
	tests := []struct {
		field  string
		action domain.Action
		model  string
	}{
		{"findManyTestModel", domain.FindMany, "TestModel"},
		{"findUniqueUser", domain.FindUnique, "User"},
		{"updateManyPost", domain.UpdateMany, "Post"},
		{"deleteOnePost", domain.DeleteOne, "Post"},
		{"countUser", domain.Count, "User"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			action, model, ok := domain.SplitAction(tt.field)
			require.True(t, ok)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.model, model)
		})
	}
}
