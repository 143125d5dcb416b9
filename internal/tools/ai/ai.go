// Package ai exposes Purple AI, the console's security assistant, as an MCP
// tool.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/purpleai"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/tools"
)

func init() {
	RegisterPurpleAI()
}

func getClient(ctx context.Context) (tools.PurpleAIService, error) {
	b, err := tools.GetBackends(ctx)
	if err != nil {
		return nil, err
	}
	if b.PurpleAI == nil {
		return nil, fmt.Errorf("Purple AI: %w", tools.ErrNotConfigured)
	}
	return b.PurpleAI, nil
}

// RegisterPurpleAI registers the purple_ai tool
func RegisterPurpleAI() {
	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "purple_ai",
		Description: "Ask Purple AI a cybersecurity question",
		Profile:     "analytics",
		Schema: mcp.NewTool("purple_ai",
			mcp.WithDescription(description),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("The question to ask Purple AI")),
		),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			query, _ := args["query"].(string)
			if strings.TrimSpace(query) == "" {
				return tools.ErrorResult("query cannot be empty"), nil
			}

			client, err := getClient(ctx)
			if err != nil {
				return tools.ErrorResultf("Purple AI request failed: %v", err), nil
			}

			answer, err := client.Ask(ctx, query)
			if purpleai.IsUnknown(err) {
				slog.Default().WarnContext(ctx, "Purple AI could not handle the question", "error", err)
				return tools.TextResult(purpleai.UnknownErrorReply), nil
			}
			if err != nil {
				return tools.FailureResult(ctx, "Purple AI request failed", err), nil
			}
			return tools.TextResult(answer.Text), nil
		},
	})
}

const description = `Ask Purple AI, SentinelOne's cybersecurity assistant. It turns natural language questions into PowerQueries for threat hunting, or answers in plain language.

Purple AI can generate and explain PowerQueries, explore process, network, file and user activity, investigate MITRE techniques, ransomware behaviour and lateral movement, and answer questions about SentinelOne.

It cannot read alerts (use the alert tools), change configuration, touch endpoints, or run the queries it writes (use the powerquery tool for that).

Ask descriptive, focused questions that name processes, paths, domains, ports or users, e.g. "Find unsigned processes that accessed lsass.exe" or "Is APT-1337 in my environment?". Describe what you are looking for rather than asking it to "generate a PowerQuery to ...", unless a PowerQuery is exactly what you want.`
