package misconfigurations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/filters"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql/graphqltest"
)

const misconfigPage = `{"misconfigurations":{
	"edges":[{"node":{"id":"m1","severity":"INFO","admissionRequest":{"userName":"kube-admin"},"mitreAttacks":[{"techniqueId":"T1078"}]},"cursor":"c1"}],
	"pageInfo":{"hasNextPage":true,"hasPreviousPage":false,"endCursor":"c1"},
	"totalCount":7}}`

func newTestClient(t *testing.T, viewType bool, handler func(graphqltest.Request) graphqltest.Reply) (*Client, *graphqltest.Server) {
	srv := graphqltest.NewServer(t, handler)
	return NewClient(srv, viewType, graphqltest.Options()...), srv
}

func TestGetMisconfiguration(t *testing.T) {
	c, srv := newTestClient(t, true, func(graphqltest.Request) graphqltest.Reply {
		return graphqltest.Data(`{"misconfiguration":{"id":"m1","cnapp":{"policy":{"id":"p1","name":"S3 public"}},"evidence":{"port":443,"secret":{"valid":true}},"failedRules":[{"name":"r1","severity":"HIGH"}]}}`)
	})

	m, err := c.GetMisconfiguration(context.Background(), "m1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "S3 public", *m.CNAPP.Policy.Name)
	assert.Equal(t, 443, *m.Evidence.Port)
	assert.True(t, *m.Evidence.Secret.Valid)
	require.Len(t, m.FailedRules, 1)
	assert.Equal(t, SeverityHigh, *m.FailedRules[0].Severity)

	assert.Equal(t, map[string]any{"id": "m1"}, srv.Last().Variables)
	assert.NotContains(t, srv.Last().Query, "viewType")
}

func TestGetMisconfigurationMissing(t *testing.T) {
	c, _ := newTestClient(t, true, func(graphqltest.Request) graphqltest.Reply {
		return graphqltest.Data(`{"misconfiguration":"gone"}`)
	})
	m, err := c.GetMisconfiguration(context.Background(), "m1")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestListMisconfigurations(t *testing.T) {
	c, srv := newTestClient(t, true, func(graphqltest.Request) graphqltest.Reply {
		return graphqltest.Data(misconfigPage)
	})

	conn, err := c.ListMisconfigurations(context.Background(), ListOptions{First: 10, ViewType: ViewKubernetes})
	require.NoError(t, err)
	assert.Equal(t, 7, *conn.TotalCount)
	node := conn.Nodes()[0]
	assert.Equal(t, "kube-admin", *node.AdmissionRequest.UserName)
	assert.Equal(t, "T1078", *node.MitreAttacks[0].TechniqueID)

	req := srv.Last()
	assert.Equal(t, map[string]any{"first": float64(10), "viewType": "KUBERNETES"}, req.Variables)
	assert.Contains(t, req.Query, "viewType: $viewType")
	assert.NoError(t, graphql.CheckSyntax(req.Query))
}

func TestFieldSelectionExpandsNestedObjects(t *testing.T) {
	c, srv := newTestClient(t, false, func(graphqltest.Request) graphqltest.Reply {
		return graphqltest.Data(misconfigPage)
	})

	_, err := c.ListMisconfigurations(context.Background(), ListOptions{First: 1, Fields: []string{"admissionRequest", "cnapp { policy { group } }"}})
	require.NoError(t, err)

	q := srv.Last().Query
	assert.Contains(t, q, "admissionRequest { category resourceName")
	assert.Contains(t, q, "cnapp { policy { id group } }")
}

func TestListMisconfigurationsDisablesViewTypeOnSchemaError(t *testing.T) {
	c, srv := newTestClient(t, true, func(req graphqltest.Request) graphqltest.Reply {
		if strings.Contains(req.Query, "viewType") {
			return graphqltest.Errors(`Unknown argument "viewType" on field "Query.misconfigurations".`)
		}
		return graphqltest.Data(misconfigPage)
	})

	_, err := c.ListMisconfigurations(context.Background(), ListOptions{First: 5})
	require.NoError(t, err)
	assert.False(t, c.SupportsViewType())

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.NotContains(t, reqs[1].Variables, "viewType")

	_, err = c.SearchMisconfigurations(context.Background(), nil, ListOptions{First: 5})
	require.NoError(t, err)
	assert.Len(t, srv.Requests(), 3, "later calls skip viewType without a failed attempt")
	assert.NotContains(t, srv.Last().Query, "viewType")
}

func TestSchemaErrorNamesField(t *testing.T) {
	c, srv := newTestClient(t, false, func(graphqltest.Request) graphqltest.Reply {
		return graphqltest.Errors(`Cannot query field "exposureId" on type "Misconfiguration".`)
	})

	_, err := c.ListMisconfigurations(context.Background(), ListOptions{First: 5, Fields: []string{"exposureId"}})
	require.Error(t, err)

	var se *graphql.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "exposureId", se.Field)
	assert.True(t, errors.Is(err, ErrMisconfigurations))
	assert.Contains(t, err.Error(), "Schema compatibility error in misconfigurations API response")
	assert.Len(t, srv.Requests(), 2)
}

func TestNonSchemaErrorPassesThrough(t *testing.T) {
	c, srv := newTestClient(t, true, func(graphqltest.Request) graphqltest.Reply {
		return graphqltest.Errors("rate limited")
	})

	_, err := c.ListMisconfigurations(context.Background(), ListOptions{First: 5})
	require.Error(t, err)
	var se *graphql.SchemaError
	assert.False(t, errors.As(err, &se))
	assert.True(t, c.SupportsViewType())
	assert.Len(t, srv.Requests(), 1)
}

func TestSearchMisconfigurations(t *testing.T) {
	c, srv := newTestClient(t, true, func(graphqltest.Request) graphqltest.Reply {
		return graphqltest.Data(misconfigPage)
	})

	fs, err := filters.Parse(`[{"fieldId":"severity","filterType":"string_equals","value":"HIGH","isNegated":true}]`, filters.XSPM)
	require.NoError(t, err)

	_, err = c.SearchMisconfigurations(context.Background(), fs, ListOptions{First: 2, After: "c1", Fields: []string{"id", "severity"}})
	require.NoError(t, err)

	req := srv.Last()
	assert.Equal(t, "c1", req.Variables["after"])
	assert.Equal(t, "ALL", req.Variables["viewType"])
	assert.Equal(t, []any{map[string]any{
		"fieldId":     "severity",
		"isNegated":   true,
		"stringEqual": map[string]any{"value": "HIGH"},
	}}, req.Variables["filters"])
}

func TestGetMisconfigurationNotesAndHistory(t *testing.T) {
	c, srv := newTestClient(t, true, func(req graphqltest.Request) graphqltest.Reply {
		if strings.Contains(req.Query, "misconfigurationNotes") {
			return graphqltest.Data(`{"misconfigurationNotes":{"edges":[{"node":{"id":"n1","misconfigurationId":"m1","text":"ack","createdAt":"t"},"cursor":"x"}],"pageInfo":{"hasNextPage":false,"hasPreviousPage":false}}}`)
		}
		return graphqltest.Data(`{"misconfigurationHistory":null}`)
	})

	notes, err := c.GetMisconfigurationNotes(context.Background(), "m1", 5, "")
	require.NoError(t, err)
	require.Len(t, notes.Nodes(), 1)
	assert.Equal(t, "ack", notes.Nodes()[0].Text)
	assert.Equal(t, map[string]any{"misconfigurationId": "m1", "first": float64(5)}, srv.Last().Variables)

	hist, err := c.GetMisconfigurationHistory(context.Background(), "m1", 10, "")
	require.NoError(t, err)
	assert.Empty(t, hist.Edges)
}

func TestParseViewType(t *testing.T) {
	vt, err := ParseViewType("SECRET_SCANNING")
	require.NoError(t, err)
	assert.Equal(t, ViewSecretScanning, vt)

	_, err = ParseViewType("cloud")
	assert.EqualError(t, err, "view_type must be one of: ALL, CLOUD, KUBERNETES, IDENTITY, INFRASTRUCTURE_AS_CODE, ADMISSION_CONTROLLER, OFFENSIVE_SECURITY, SECRET_SCANNING")
}
