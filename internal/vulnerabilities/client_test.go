package vulnerabilities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/filters"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql/graphqltest"
)

const vulnPage = `{"vulnerabilities":{
	"edges":[{"node":{"id":"v1","severity":"CRITICAL","cve":{"id":"CVE-2024-0001","epssScore":0.93}},"cursor":"c1"}],
	"pageInfo":{"hasNextPage":false,"hasPreviousPage":false,"startCursor":"c1","endCursor":"c1"},
	"totalCount":1}}`

func newTestClient(t *testing.T, handler func(graphqltest.Request) graphqltest.Reply) (*Client, *graphqltest.Server) {
	srv := graphqltest.NewServer(t, handler)
	return NewClient(srv, graphqltest.Options()...), srv
}

func TestGetVulnerability(t *testing.T) {
	c, srv := newTestClient(t, func(graphqltest.Request) graphqltest.Reply {
		return graphqltest.Data(`{"vulnerability":{"id":"v1","name":"openssl","cve":{"id":"CVE-1","kevAvailable":true,"timeline":[{"date":"2024-01-01","key":"published"}]},"findingData":{"context":{"path":"/usr/lib"}}}}`)
	})

	v, err := c.GetVulnerability(context.Background(), "v1")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "openssl", *v.Name)
	assert.True(t, *v.CVE.KEVAvailable)
	require.Len(t, v.CVE.Timeline, 1)
	assert.JSONEq(t, `{"path":"/usr/lib"}`, string(v.FindingData.Context))

	req := srv.Last()
	assert.Equal(t, map[string]any{"id": "v1"}, req.Variables)
	assert.Contains(t, req.Query, "epssPercentile")
	assert.Contains(t, req.Query, "remediationInsightsAvailable")
}

func TestGetVulnerabilityMissing(t *testing.T) {
	c, _ := newTestClient(t, func(graphqltest.Request) graphqltest.Reply {
		return graphqltest.Data(`{"vulnerability":null}`)
	})
	v, err := c.GetVulnerability(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestListVulnerabilitiesVariables(t *testing.T) {
	tests := []struct {
		name string
		opts ListOptions
		want map[string]any
	}{
		{name: "first only", opts: ListOptions{First: 10}, want: map[string]any{"first": float64(10)}},
		{name: "with cursor", opts: ListOptions{First: 3, After: "abc"}, want: map[string]any{"first": float64(3), "after": "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, srv := newTestClient(t, func(graphqltest.Request) graphqltest.Reply {
				return graphqltest.Data(vulnPage)
			})
			conn, err := c.ListVulnerabilities(context.Background(), tt.opts)
			require.NoError(t, err)
			require.Len(t, conn.Nodes(), 1)
			assert.Equal(t, "CVE-2024-0001", conn.Nodes()[0].CVE.ID)
			assert.Equal(t, tt.want, srv.Last().Variables)
		})
	}
}

func TestListVulnerabilitiesFieldSelection(t *testing.T) {
	c, srv := newTestClient(t, func(graphqltest.Request) graphqltest.Reply {
		return graphqltest.Data(vulnPage)
	})

	_, err := c.ListVulnerabilities(context.Background(), ListOptions{First: 1, Fields: []string{"severity", "cve { epssScore }"}})
	require.NoError(t, err)

	q := srv.Last().Query
	assert.NoError(t, graphql.CheckSyntax(q))
	assert.Contains(t, q, "cve {")
	assert.NotContains(t, q, "software")

	_, err = c.ListVulnerabilities(context.Background(), ListOptions{First: 1, Fields: []string{"bogus"}})
	var ue *graphql.UnknownFieldError
	assert.True(t, errors.As(err, &ue))
	assert.Len(t, srv.Requests(), 1)
}

func TestSearchVulnerabilities(t *testing.T) {
	c, srv := newTestClient(t, func(graphqltest.Request) graphqltest.Reply {
		return graphqltest.Data(vulnPage)
	})

	fs, err := filters.Parse(`[{"fieldId":"cveId","filterType":"fulltext_in","values":["CVE-2024"]}]`, filters.XSPM)
	require.NoError(t, err)

	_, err = c.SearchVulnerabilities(context.Background(), fs, ListOptions{First: 5})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{
		"fieldId":   "cveId",
		"isNegated": false,
		"matchIn":   map[string]any{"values": []any{"CVE-2024"}},
	}}, srv.Last().Variables["filters"])

	_, err = c.SearchVulnerabilities(context.Background(), nil, ListOptions{First: 5})
	require.NoError(t, err)
	assert.NotContains(t, srv.Last().Variables, "filters")
}

func TestVulnerabilityErrorsCarryDomain(t *testing.T) {
	c, _ := newTestClient(t, func(graphqltest.Request) graphqltest.Reply {
		return graphqltest.Errors("forbidden")
	})
	_, err := c.ListVulnerabilities(context.Background(), ListOptions{First: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVulnerabilities))
}

func TestGetVulnerabilityNotes(t *testing.T) {
	c, srv := newTestClient(t, func(graphqltest.Request) graphqltest.Reply {
		return graphqltest.Data(`{"vulnerabilityNotes":{"edges":[{"node":{"id":"n1","vulnerabilityId":"v1","text":"patched","createdAt":"t","author":{"fullName":"Ann"}},"cursor":"x"}],"pageInfo":{"hasNextPage":false,"hasPreviousPage":false}}}`)
	})

	conn, err := c.GetVulnerabilityNotes(context.Background(), "v1", 0, "")
	require.NoError(t, err)
	require.Len(t, conn.Nodes(), 1)
	assert.Equal(t, "Ann", *conn.Nodes()[0].Author.FullName)
	assert.Equal(t, map[string]any{"vulnerabilityId": "v1"}, srv.Last().Variables)
}

func TestGetVulnerabilityHistory(t *testing.T) {
	c, srv := newTestClient(t, func(graphqltest.Request) graphqltest.Reply {
		return graphqltest.Data(`{"vulnerabilityHistory":{}}`)
	})

	conn, err := c.GetVulnerabilityHistory(context.Background(), "v1", 20, "cur")
	require.NoError(t, err)
	assert.Empty(t, conn.Edges)
	assert.Equal(t, map[string]any{"vulnerabilityId": "v1", "first": float64(20), "after": "cur"}, srv.Last().Variables)
}
