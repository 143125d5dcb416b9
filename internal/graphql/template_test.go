package graphql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateRender(t *testing.T) {
	tpl := NewTemplate("list", `query List($first: Int!${extra}) { items(first: $first) { ${fields} } }`)

	q, err := tpl.Render(map[string]string{"extra": ", $after: String", "fields": "id name"})
	require.NoError(t, err)
	assert.Equal(t, `query List($first: Int!, $after: String) { items(first: $first) { id name } }`, q)
}

func TestTemplateRenderErrors(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		values map[string]string
		msg    string
	}{
		{name: "missing value", text: "{ ${fields} }", values: map[string]string{}, msg: "no value for ${fields}"},
		{name: "unterminated", text: "{ ${fields", values: map[string]string{}, msg: "unterminated placeholder"},
		{name: "invalid document", text: "{ ${fields} ", values: map[string]string{"fields": "id"}, msg: "invalid GraphQL document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTemplate("t", tt.text).Render(tt.values)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	assert.Equal(t, "boom", (&ClientError{Msg: "boom"}).Error())
	assert.Equal(t, "boom (HTTP 502). Details: bad gateway", (&ClientError{Msg: "boom", StatusCode: 502, Details: "bad gateway"}).Error())
	assert.Equal(t, "bad. Details: a; Unknown error",
		(&GraphQLError{Msg: "bad", Errors: []map[string]any{{"message": "a"}, {"code": 1}}}).Error())
	assert.Equal(t, "schema. Details: Field 'viewType' is not supported in the current schema version",
		(&SchemaError{Msg: "schema", Field: "viewType"}).Error())
}

func TestIsSchemaError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&GraphQLError{Errors: []map[string]any{{"message": `Cannot query field "dataSources" on type "Alert".`}}}, true},
		{&GraphQLError{Errors: []map[string]any{{"message": `Unknown argument "viewType" on field "alerts"`}}}, true},
		{&GraphQLError{Errors: []map[string]any{{"message": "FIELD DOES NOT EXIST"}}}, true},
		{&GraphQLError{Errors: []map[string]any{{"message": "Unknown directive @foo"}}}, true},
		{&GraphQLError{Errors: []map[string]any{{"message": "permission denied"}}}, false},
		{&SchemaError{Msg: "x"}, true},
		{&ClientError{Msg: "Cannot query field"}, false},
		{errors.New("Cannot query field"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSchemaError(tt.err), tt.err.Error())
	}
}

func TestSchemaFieldName(t *testing.T) {
	assert.Equal(t, "viewType", SchemaFieldName(`Unknown argument "viewType" on field "misconfigurations"`))
	assert.Equal(t, "dataSources", SchemaFieldName(`Cannot query field 'dataSources'`))
	assert.Equal(t, "", SchemaFieldName("no quotes here"))
}

func TestDecodeConnection(t *testing.T) {
	type node struct {
		ID string `json:"id"`
	}

	for _, raw := range []string{"", "null", "[]", `"x"`} {
		conn, err := DecodeConnection[node]([]byte(raw))
		require.NoError(t, err)
		assert.Empty(t, conn.Edges)
		assert.NotNil(t, conn.Edges)
		assert.False(t, conn.PageInfo.HasNextPage)
		assert.Nil(t, conn.PageInfo.EndCursor)
	}

	conn, err := DecodeConnection[node]([]byte(`{"edges":[{"node":{"id":"1"},"cursor":"c1"}],"pageInfo":{"hasNextPage":true,"endCursor":"c1"},"totalCount":7}`))
	require.NoError(t, err)
	require.Len(t, conn.Edges, 1)
	assert.Equal(t, "1", conn.Nodes()[0].ID)
	assert.True(t, conn.PageInfo.HasNextPage)
	assert.Equal(t, "c1", *conn.PageInfo.EndCursor)
	assert.Equal(t, 7, *conn.TotalCount)
}
