// Package vulnerabilities exposes XSPM vulnerability findings as MCP tools.
package vulnerabilities

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/filters"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/tools"
	vulnapi "github.com/robemmerson/s1-purple-mcp-sub002/internal/vulnerabilities"
)

func init() {
	RegisterGetVulnerability()
	RegisterListVulnerabilities()
	RegisterSearchVulnerabilities()
	RegisterGetVulnerabilityNotes()
	RegisterGetVulnerabilityHistory()
}

func getClient(ctx context.Context) (tools.VulnerabilitiesService, error) {
	b, err := tools.GetBackends(ctx)
	if err != nil {
		return nil, err
	}
	if b.Vulnerabilities == nil {
		return nil, fmt.Errorf("vulnerabilities API: %w", tools.ErrNotConfigured)
	}
	return b.Vulnerabilities, nil
}

func pageOptions(args map[string]interface{}) (vulnapi.ListOptions, error) {
	first, err := tools.ExtractFirst(args)
	if err != nil {
		return vulnapi.ListOptions{}, err
	}
	after, err := tools.ExtractCursor(args)
	if err != nil {
		return vulnapi.ListOptions{}, err
	}
	fields, err := tools.ExtractFields(args)
	if err != nil {
		return vulnapi.ListOptions{}, err
	}
	return vulnapi.ListOptions{First: first, After: after, Fields: fields}, nil
}

// findingID reads the vulnerability_id argument
func findingID(args map[string]interface{}) (string, error) {
	return tools.ExtractID(args, "vulnerability_id")
}

// RegisterGetVulnerability registers the get_vulnerability tool
func RegisterGetVulnerability() {
	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "get_vulnerability",
		Description: "Get detailed information about a specific vulnerability finding",
		Profile:     "posture",
		Schema: mcp.NewTool("get_vulnerability",
			mcp.WithDescription("Get detailed information about a specific vulnerability finding by ID: CVE details with EPSS and exploit maturity, affected software, the asset, scope, status and analyst verdict. Returns null when the finding does not exist."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("vulnerability_id",
				mcp.Required(),
				mcp.Description("The unique identifier of the vulnerability finding")),
		),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			id, err := findingID(args)
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			client, err := getClient(ctx)
			if err != nil {
				return tools.ErrorResultf("Failed to retrieve vulnerability %s: %v", id, err), nil
			}

			v, err := client.GetVulnerability(ctx, id)
			if err != nil {
				return tools.FailureResult(ctx, "Failed to retrieve vulnerability "+id, err), nil
			}
			return tools.SuccessResult(v), nil
		},
	})
}

// RegisterListVulnerabilities registers the list_vulnerabilities tool
func RegisterListVulnerabilities() {
	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "list_vulnerabilities",
		Description: "List vulnerability findings with cursor pagination",
		Profile:     "posture",
		Schema: mcp.NewTool("list_vulnerabilities",
			mcp.WithDescription("List vulnerability findings with cursor pagination. Use search_vulnerabilities to filter. Pass pageInfo.endCursor as 'after' for the next page."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithNumber("first",
				mcp.Description("Number of findings to retrieve (1-100)"),
				mcp.DefaultNumber(tools.DefaultFirst),
				mcp.Min(1),
				mcp.Max(tools.MaxFirst)),
			mcp.WithString("after",
				mcp.Description("Pagination cursor from a previous response")),
			mcp.WithString("fields",
				mcp.Description(`Optional JSON array of field names to return, e.g. '["id", "severity", "cve { id epssScore }"]'. Omit for the default fields.`)),
		),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			opts, err := pageOptions(args)
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			client, err := getClient(ctx)
			if err != nil {
				return tools.ErrorResultf("Failed to list vulnerabilities: %v", err), nil
			}

			conn, err := client.ListVulnerabilities(ctx, opts)
			if err != nil {
				return tools.FailureResult(ctx, "Failed to list vulnerabilities", err), nil
			}
			return tools.SuccessResult(conn), nil
		},
	})
}

// RegisterSearchVulnerabilities registers the search_vulnerabilities tool
func RegisterSearchVulnerabilities() {
	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "search_vulnerabilities",
		Description: "Search vulnerability findings using filters",
		Profile:     "posture",
		Schema: mcp.NewTool("search_vulnerabilities",
			mcp.WithDescription(searchDescription),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("filters",
				mcp.Description("JSON array of filter objects with fieldId, filterType and the value(s) that type requires")),
			mcp.WithNumber("first",
				mcp.Description("Number of findings to retrieve (1-100)"),
				mcp.DefaultNumber(tools.DefaultFirst),
				mcp.Min(1),
				mcp.Max(tools.MaxFirst)),
			mcp.WithString("after",
				mcp.Description("Pagination cursor from a previous response")),
			mcp.WithString("fields",
				mcp.Description("Optional JSON array of field names to return")),
		),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			raw, err := tools.ExtractRawJSON(args, "filters")
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			fs, err := filters.Parse(raw, filters.XSPM)
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			opts, err := pageOptions(args)
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			client, err := getClient(ctx)
			if err != nil {
				return tools.ErrorResultf("Failed to search vulnerabilities: %v", err), nil
			}

			conn, err := client.SearchVulnerabilities(ctx, fs, opts)
			if err != nil {
				return tools.FailureResult(ctx, "Failed to search vulnerabilities", err), nil
			}
			return tools.SuccessResult(conn), nil
		},
	})
}

// RegisterGetVulnerabilityNotes registers the get_vulnerability_notes tool
func RegisterGetVulnerabilityNotes() {
	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "get_vulnerability_notes",
		Description: "Get the notes attached to a vulnerability finding",
		Profile:     "posture",
		Schema: mcp.NewTool("get_vulnerability_notes",
			mcp.WithDescription("Get the analyst notes attached to a vulnerability finding, with cursor pagination"),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("vulnerability_id",
				mcp.Required(),
				mcp.Description("The unique identifier of the vulnerability finding")),
			mcp.WithNumber("first",
				mcp.Description("Number of notes to retrieve (1-100)"),
				mcp.DefaultNumber(tools.DefaultFirst),
				mcp.Min(1),
				mcp.Max(tools.MaxFirst)),
			mcp.WithString("after",
				mcp.Description("Pagination cursor from a previous response")),
		),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			return pagedByID(ctx, args, "notes", func(c tools.VulnerabilitiesService, id string, first int, after string) (interface{}, error) {
				return c.GetVulnerabilityNotes(ctx, id, first, after)
			})
		},
	})
}

// RegisterGetVulnerabilityHistory registers the get_vulnerability_history tool
func RegisterGetVulnerabilityHistory() {
	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "get_vulnerability_history",
		Description: "Get the audit history of a vulnerability finding",
		Profile:     "posture",
		Schema: mcp.NewTool("get_vulnerability_history",
			mcp.WithDescription("Get the audit history of a vulnerability finding: status changes, assignments and notes, with cursor pagination"),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("vulnerability_id",
				mcp.Required(),
				mcp.Description("The unique identifier of the vulnerability finding")),
			mcp.WithNumber("first",
				mcp.Description("Number of history events to retrieve (1-100)"),
				mcp.DefaultNumber(tools.DefaultFirst),
				mcp.Min(1),
				mcp.Max(tools.MaxFirst)),
			mcp.WithString("after",
				mcp.Description("Pagination cursor from a previous response")),
		),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			return pagedByID(ctx, args, "history", func(c tools.VulnerabilitiesService, id string, first int, after string) (interface{}, error) {
				return c.GetVulnerabilityHistory(ctx, id, first, after)
			})
		},
	})
}

// pagedByID runs a paginated per-finding lookup such as notes or history.
func pagedByID(ctx context.Context, args map[string]interface{}, what string, fetch func(tools.VulnerabilitiesService, string, int, string) (interface{}, error)) (*mcp.CallToolResult, error) {
	id, err := findingID(args)
	if err != nil {
		return tools.ErrorResult(err.Error()), nil
	}
	first, err := tools.ExtractFirst(args)
	if err != nil {
		return tools.ErrorResult(err.Error()), nil
	}
	after, err := tools.ExtractCursor(args)
	if err != nil {
		return tools.ErrorResult(err.Error()), nil
	}

	msg := fmt.Sprintf("Failed to retrieve %s for vulnerability %s", what, id)
	client, err := getClient(ctx)
	if err != nil {
		return tools.ErrorResultf("%s: %v", msg, err), nil
	}
	out, err := fetch(client, id, first, after)
	if err != nil {
		return tools.FailureResult(ctx, msg, err), nil
	}
	return tools.SuccessResult(out), nil
}

const searchDescription = `Search vulnerability findings using filters.

Each filter is an object with fieldId, filterType and optional isNegated:
- string_equals (value) and string_in (values), for severity, status, analystVerdict, cve.id, software.name, asset.name
- int_equals, int_in, int_range, long_equals, long_in, long_range (start and/or end), for numeric fields
- boolean_equals (value) and boolean_in (values)
- datetime_range (start and/or end in UNIX milliseconds UTC), for detectedAt and lastSeenAt. Convert ISO datetimes with iso_to_unix_timestamp first.
- fulltext (values) and fulltext_in (values), for free text search

Example: [{"fieldId": "severity", "filterType": "string_in", "values": ["HIGH", "CRITICAL"]}, {"fieldId": "status", "filterType": "string_equals", "value": "NEW"}]

At most 50 filters with at most 100 values each.`
