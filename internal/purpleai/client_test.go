package purpleai

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql/graphqltest"
)

var testSettings = Settings{
	ConsoleBaseURL: "https://console.example.com",
	ConsoleVersion: "S-25.1.1#30",
	AccountID:      "0",
	TeamToken:      "0",
	EmailAddress:   `an"alyst@example.com`,
	UserAgent:      "sentinelone/purple-mcp (version test)",
	BuildDate:      "02/28/2025, 00:00:00 AM",
	BuildHash:      "N/A",
}

func newTestClient(t *testing.T, reply graphqltest.Reply) (*Client, *graphqltest.Server) {
	srv := graphqltest.NewServer(t, func(graphqltest.Request) graphqltest.Reply { return reply })
	c := NewClient(srv, testSettings, graphqltest.Options()...)
	c.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	c.conversationID = func() string { return "PURPLE-MCPabcdefghij" }
	return c, srv
}

func TestAskMessage(t *testing.T) {
	c, srv := newTestClient(t, graphqltest.Data(`{"purpleLaunchQuery":{
		"resultType":"MESSAGE","result":{"message":"No threats found."},"status":{"state":"COMPLETED","error":null}}}`))

	answer, err := c.Ask(context.Background(), "any threats?")
	require.NoError(t, err)
	assert.Equal(t, &Answer{Type: ResultMessage, Text: "No threats found."}, answer)

	req := srv.Last()
	assert.Equal(t, "ApiToken test-token", req.Header.Get("Authorization"))
	assert.Equal(t, map[string]any{"input": "any threats?"}, req.Variables)
	assert.Contains(t, req.Query, `id: "PURPLE-MCPabcdefghij"`)
	assert.Contains(t, req.Query, "displayedTimeRange: { start: 1699913600000, end: 1700000000000 }")
	assert.Contains(t, req.Query, `emailAddress: "an\"alyst@example.com"`)
	assert.NoError(t, graphql.CheckSyntax(req.Query))
}

func TestAskPowerQuery(t *testing.T) {
	c, _ := newTestClient(t, graphqltest.Data(`{"purpleLaunchQuery":{
		"resultType":"POWER_QUERY","result":{"powerQuery":{"query":"event.type = 'Process Creation'"}},"status":{"state":"COMPLETED"}}}`))

	answer, err := c.Ask(context.Background(), "processes")
	require.NoError(t, err)
	assert.Equal(t, ResultPowerQuery, answer.Type)
	assert.Equal(t, "event.type = 'Process Creation'", answer.Text)
}

func TestAskFailures(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantMsg string
		unknown bool
	}{
		{name: "missing launch", data: `{}`, wantMsg: "Missing purpleLaunchQuery in response"},
		{name: "missing status", data: `{"purpleLaunchQuery":{"resultType":"MESSAGE","result":{}}}`, wantMsg: "Missing status in response"},
		{
			name:    "unknown error",
			data:    `{"purpleLaunchQuery":{"status":{"state":"FAILED","error":{"errorType":"UNKNOWN","errorDetail":"x","origin":"LLM"}}}}`,
			wantMsg: `Error from Purple AI: {"errorDetail":"x","errorType":"UNKNOWN","origin":"LLM"}`,
			unknown: true,
		},
		{
			name:    "typed error",
			data:    `{"purpleLaunchQuery":{"status":{"state":"FAILED","error":{"errorType":"RATE_LIMIT"}}}}`,
			wantMsg: `Error from Purple AI: {"errorType":"RATE_LIMIT"}`,
		},
		{name: "missing result type", data: `{"purpleLaunchQuery":{"status":{}}}`, wantMsg: "Invalid result type in response"},
		{name: "unexpected result type", data: `{"purpleLaunchQuery":{"resultType":"CHART","status":{}}}`, wantMsg: "Unexpected result type from Purple AI: CHART"},
		{name: "missing result", data: `{"purpleLaunchQuery":{"resultType":"MESSAGE","status":{}}}`, wantMsg: "Missing or invalid result in response"},
		{name: "missing power query", data: `{"purpleLaunchQuery":{"resultType":"POWER_QUERY","result":{},"status":{}}}`, wantMsg: "Invalid powerQuery in response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, graphqltest.Data(tt.data))
			_, err := c.Ask(context.Background(), "q")
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.True(t, errors.Is(err, ErrPurpleAI))
			assert.Equal(t, tt.unknown, IsUnknown(err))
		})
	}
}

func TestAskTransportError(t *testing.T) {
	c, _ := newTestClient(t, graphqltest.Reply{Status: 500, Body: "oops"})

	_, err := c.Ask(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPurpleAI))
	assert.Contains(t, err.Error(), "HTTP error from Purple AI")
}

func TestNewConversationID(t *testing.T) {
	pattern := regexp.MustCompile(`^PURPLE-MCP[A-Za-z0-9]{10}$`)
	a, b := newConversationID(), newConversationID()
	assert.Regexp(t, pattern, a)
	assert.Regexp(t, pattern, b)
	assert.NotEqual(t, a, b)
}
