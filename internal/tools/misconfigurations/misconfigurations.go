// Package misconfigurations exposes XSPM misconfiguration findings as MCP
// tools.
package misconfigurations

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/filters"
	miscapi "github.com/robemmerson/s1-purple-mcp-sub002/internal/misconfigurations"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/tools"
)

func init() {
	RegisterGetMisconfiguration()
	RegisterListMisconfigurations()
	RegisterSearchMisconfigurations()
	RegisterGetMisconfigurationNotes()
	RegisterGetMisconfigurationHistory()
}

func getClient(ctx context.Context) (tools.MisconfigurationsService, error) {
	b, err := tools.GetBackends(ctx)
	if err != nil {
		return nil, err
	}
	if b.Misconfigurations == nil {
		return nil, fmt.Errorf("misconfigurations API: %w", tools.ErrNotConfigured)
	}
	return b.Misconfigurations, nil
}

func pageOptions(args map[string]interface{}) (miscapi.ListOptions, error) {
	first, err := tools.ExtractFirst(args)
	if err != nil {
		return miscapi.ListOptions{}, err
	}
	after, err := tools.ExtractCursor(args)
	if err != nil {
		return miscapi.ListOptions{}, err
	}
	viewType, err := miscapi.ParseViewType(tools.ExtractString(args, "view_type", string(miscapi.ViewAll)))
	if err != nil {
		return miscapi.ListOptions{}, err
	}
	fields, err := tools.ExtractFields(args)
	if err != nil {
		return miscapi.ListOptions{}, err
	}
	return miscapi.ListOptions{First: first, After: after, ViewType: viewType, Fields: fields}, nil
}

func viewTypeNames() []string {
	names := make([]string, len(miscapi.ViewTypes))
	for i, vt := range miscapi.ViewTypes {
		names[i] = string(vt)
	}
	return names
}

func pageParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("first",
			mcp.Description("Number of findings to retrieve (1-100)"),
			mcp.DefaultNumber(tools.DefaultFirst),
			mcp.Min(1),
			mcp.Max(tools.MaxFirst)),
		mcp.WithString("after",
			mcp.Description("Pagination cursor from a previous response")),
		mcp.WithString("view_type",
			mcp.Description("Finding source to narrow results to. Ignored by consoles that do not support it."),
			mcp.DefaultString(string(miscapi.ViewAll)),
			mcp.Enum(viewTypeNames()...)),
		mcp.WithString("fields",
			mcp.Description(`Optional JSON array of field names to return, e.g. '["id", "severity", "asset { name }"]'. Omit for the default fields.`)),
	}
}

// RegisterGetMisconfiguration registers the get_misconfiguration tool
func RegisterGetMisconfiguration() {
	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "get_misconfiguration",
		Description: "Get detailed information about a specific misconfiguration finding",
		Profile:     "posture",
		Schema: mcp.NewTool("get_misconfiguration",
			mcp.WithDescription("Get detailed information about a specific misconfiguration finding by ID: the failed rule, evidence, compliance standards, MITRE ATT&CK mapping, remediation steps and the affected asset. Returns null when the finding does not exist."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("misconfiguration_id",
				mcp.Required(),
				mcp.Description("The unique identifier of the misconfiguration finding")),
		),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			id, err := tools.ExtractID(args, "misconfiguration_id")
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			client, err := getClient(ctx)
			if err != nil {
				return tools.ErrorResultf("Failed to retrieve misconfiguration %s: %v", id, err), nil
			}

			m, err := client.GetMisconfiguration(ctx, id)
			if err != nil {
				return tools.FailureResult(ctx, "Failed to retrieve misconfiguration "+id, err), nil
			}
			return tools.SuccessResult(m), nil
		},
	})
}

// RegisterListMisconfigurations registers the list_misconfigurations tool
func RegisterListMisconfigurations() {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List misconfiguration findings with cursor pagination, optionally narrowed to one finding source. Use search_misconfigurations to filter."),
	}, pageParams()...)

	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "list_misconfigurations",
		Description: "List misconfiguration findings with cursor pagination",
		Profile:     "posture",
		Schema:      mcp.NewTool("list_misconfigurations", opts...),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			lo, err := pageOptions(args)
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			client, err := getClient(ctx)
			if err != nil {
				return tools.ErrorResultf("Failed to list misconfigurations: %v", err), nil
			}

			conn, err := client.ListMisconfigurations(ctx, lo)
			if err != nil {
				return tools.FailureResult(ctx, "Failed to list misconfigurations", err), nil
			}
			return tools.SuccessResult(conn), nil
		},
	})
}

// RegisterSearchMisconfigurations registers the search_misconfigurations tool
func RegisterSearchMisconfigurations() {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription(searchDescription),
		mcp.WithString("filters",
			mcp.Description("JSON array of filter objects with fieldId, filterType and the value(s) that type requires")),
	}, pageParams()...)

	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "search_misconfigurations",
		Description: "Search misconfiguration findings using filters",
		Profile:     "posture",
		Schema:      mcp.NewTool("search_misconfigurations", opts...),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			raw, err := tools.ExtractRawJSON(args, "filters")
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			fs, err := filters.Parse(raw, filters.XSPM)
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			lo, err := pageOptions(args)
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			client, err := getClient(ctx)
			if err != nil {
				return tools.ErrorResultf("Failed to search misconfigurations: %v", err), nil
			}

			conn, err := client.SearchMisconfigurations(ctx, fs, lo)
			if err != nil {
				return tools.FailureResult(ctx, "Failed to search misconfigurations", err), nil
			}
			return tools.SuccessResult(conn), nil
		},
	})
}

// RegisterGetMisconfigurationNotes registers the get_misconfiguration_notes tool
func RegisterGetMisconfigurationNotes() {
	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "get_misconfiguration_notes",
		Description: "Get the notes attached to a misconfiguration finding",
		Profile:     "posture",
		Schema:      perFindingSchema("get_misconfiguration_notes", "Get the analyst notes attached to a misconfiguration finding, with cursor pagination", "notes"),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			return pagedByID(ctx, args, "notes", func(c tools.MisconfigurationsService, id string, first int, after string) (interface{}, error) {
				return c.GetMisconfigurationNotes(ctx, id, first, after)
			})
		},
	})
}

// RegisterGetMisconfigurationHistory registers the get_misconfiguration_history tool
func RegisterGetMisconfigurationHistory() {
	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "get_misconfiguration_history",
		Description: "Get the audit history of a misconfiguration finding",
		Profile:     "posture",
		Schema:      perFindingSchema("get_misconfiguration_history", "Get the audit history of a misconfiguration finding: status changes, assignments and notes, with cursor pagination", "history events"),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			return pagedByID(ctx, args, "history", func(c tools.MisconfigurationsService, id string, first int, after string) (interface{}, error) {
				return c.GetMisconfigurationHistory(ctx, id, first, after)
			})
		},
	})
}

func perFindingSchema(name, description, items string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("misconfiguration_id",
			mcp.Required(),
			mcp.Description("The unique identifier of the misconfiguration finding")),
		mcp.WithNumber("first",
			mcp.Description(fmt.Sprintf("Number of %s to retrieve (1-100)", items)),
			mcp.DefaultNumber(tools.DefaultFirst),
			mcp.Min(1),
			mcp.Max(tools.MaxFirst)),
		mcp.WithString("after",
			mcp.Description("Pagination cursor from a previous response")),
	)
}

func pagedByID(ctx context.Context, args map[string]interface{}, what string, fetch func(tools.MisconfigurationsService, string, int, string) (interface{}, error)) (*mcp.CallToolResult, error) {
	id, err := tools.ExtractID(args, "misconfiguration_id")
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

	msg := fmt.Sprintf("Failed to retrieve %s for misconfiguration %s", what, id)
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

const searchDescription = `Search misconfiguration findings using filters.

Each filter is an object with fieldId, filterType and optional isNegated:
- string_equals (value) and string_in (values), for severity, status, analystVerdict, enforcementAction, mitigable, asset.name, asset.cloudInfo.providerName
- int_equals, int_in, int_range, long_equals, long_in, long_range (start and/or end), for numeric fields
- boolean_equals (value) and boolean_in (values)
- datetime_range (start and/or end in UNIX milliseconds UTC), for detectedAt and lastSeenAt. Convert ISO datetimes with iso_to_unix_timestamp first.
- fulltext (values) and fulltext_in (values), for free text search

Example: [{"fieldId": "severity", "filterType": "string_in", "values": ["HIGH", "CRITICAL"]}]

At most 50 filters with at most 100 values each.`
