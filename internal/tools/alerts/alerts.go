// Package alerts exposes the unified alerts API as MCP tools.
package alerts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	alertsapi "github.com/robemmerson/s1-purple-mcp-sub002/internal/alerts"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/filters"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/tools"
)

func init() {
	RegisterGetAlert()
	RegisterListAlerts()
	RegisterSearchAlerts()
	RegisterGetAlertNotes()
	RegisterGetAlertHistory()
}

const fieldsDescription = `Optional JSON array of field names to return. Omit for the default fields, which include dataSources; when fields are given, dataSources is only returned if listed. Nested objects such as "asset" expand to all their subfields, or select subfields explicitly with "asset { name }". Use '["id"]' when paging through intermediate results.`

// getClient retrieves the alerts service from context
func getClient(ctx context.Context) (tools.AlertsService, error) {
	b, err := tools.GetBackends(ctx)
	if err != nil {
		return nil, err
	}
	if b.Alerts == nil {
		return nil, fmt.Errorf("alerts API: %w", tools.ErrNotConfigured)
	}
	return b.Alerts, nil
}

// pageOptions reads the arguments shared by list_alerts and search_alerts.
func pageOptions(args map[string]interface{}) (alertsapi.ListOptions, error) {
	first, err := tools.ExtractFirst(args)
	if err != nil {
		return alertsapi.ListOptions{}, err
	}
	after, err := tools.ExtractCursor(args)
	if err != nil {
		return alertsapi.ListOptions{}, err
	}
	viewType, err := alertsapi.ParseViewType(tools.ExtractString(args, "view_type", string(alertsapi.ViewAll)))
	if err != nil {
		return alertsapi.ListOptions{}, err
	}
	fields, err := tools.ExtractFields(args)
	if err != nil {
		return alertsapi.ListOptions{}, err
	}
	return alertsapi.ListOptions{First: first, After: after, ViewType: viewType, Fields: fields}, nil
}

func viewTypeNames() []string {
	names := make([]string, len(alertsapi.ViewTypes))
	for i, vt := range alertsapi.ViewTypes {
		names[i] = string(vt)
	}
	return names
}

// RegisterGetAlert registers the get_alert tool
func RegisterGetAlert() {
	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "get_alert",
		Description: "Get detailed information about a specific alert by ID",
		Profile:     "alerts",
		Schema: mcp.NewTool("get_alert",
			mcp.WithDescription("Get detailed information about a specific alert by ID, including severity, status, timing, detection source, asset, assignee and analyst verdict. Returns null when the alert does not exist."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("alert_id",
				mcp.Required(),
				mcp.Description("The unique identifier of the alert")),
		),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			id, err := tools.ExtractID(args, "alert_id")
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}

			client, err := getClient(ctx)
			if err != nil {
				return tools.ErrorResultf("Failed to retrieve alert %s: %v", id, err), nil
			}

			alert, err := client.GetAlert(ctx, id)
			if err != nil {
				return tools.FailureResult(ctx, "Failed to retrieve alert "+id, err), nil
			}
			return tools.SuccessResult(alert), nil
		},
	})
}

// RegisterListAlerts registers the list_alerts tool
func RegisterListAlerts() {
	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "list_alerts",
		Description: "List alerts with cursor pagination",
		Profile:     "alerts",
		Schema: mcp.NewTool("list_alerts",
			mcp.WithDescription("List alerts with cursor pagination, optionally scoped by assignment. Use search_alerts to filter by severity, status or time. Pass pageInfo.endCursor as 'after' to fetch the next page; totalCount gives the size of the full result set."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithNumber("first",
				mcp.Description("Number of alerts to retrieve (1-100)"),
				mcp.DefaultNumber(tools.DefaultFirst),
				mcp.Min(1),
				mcp.Max(tools.MaxFirst)),
			mcp.WithString("after",
				mcp.Description("Pagination cursor from a previous response")),
			mcp.WithString("view_type",
				mcp.Description("Assignment scope"),
				mcp.DefaultString(string(alertsapi.ViewAll)),
				mcp.Enum(viewTypeNames()...)),
			mcp.WithString("fields",
				mcp.Description(fieldsDescription)),
		),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			opts, err := pageOptions(args)
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}

			client, err := getClient(ctx)
			if err != nil {
				return tools.ErrorResultf("Failed to list alerts: %v", err), nil
			}

			conn, err := client.ListAlerts(ctx, opts)
			if err != nil {
				return tools.FailureResult(ctx, "Failed to list alerts", err), nil
			}
			return tools.SuccessResult(conn), nil
		},
	})
}

// RegisterSearchAlerts registers the search_alerts tool
func RegisterSearchAlerts() {
	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "search_alerts",
		Description: "Search alerts using filters",
		Profile:     "alerts",
		Schema: mcp.NewTool("search_alerts",
			mcp.WithDescription(searchDescription),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("filters",
				mcp.Description("JSON array of filter objects with fieldId, filterType and the value(s) that type requires")),
			mcp.WithNumber("first",
				mcp.Description("Number of alerts to retrieve (1-100). Use 1 for counting questions; totalCount is always returned."),
				mcp.DefaultNumber(tools.DefaultFirst),
				mcp.Min(1),
				mcp.Max(tools.MaxFirst)),
			mcp.WithString("after",
				mcp.Description("Pagination cursor from a previous response")),
			mcp.WithString("view_type",
				mcp.Description("Assignment scope"),
				mcp.DefaultString(string(alertsapi.ViewAll)),
				mcp.Enum(viewTypeNames()...)),
			mcp.WithString("fields",
				mcp.Description(fieldsDescription)),
		),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			raw, err := tools.ExtractRawJSON(args, "filters")
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			fs, err := filters.Parse(raw, filters.Alerts)
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			opts, err := pageOptions(args)
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}

			client, err := getClient(ctx)
			if err != nil {
				return tools.ErrorResultf("Failed to search alerts: %v", err), nil
			}

			conn, err := client.SearchAlerts(ctx, fs, opts)
			if err != nil {
				return tools.FailureResult(ctx, "Failed to search alerts", err), nil
			}
			return tools.SuccessResult(conn), nil
		},
	})
}

// RegisterGetAlertNotes registers the get_alert_notes tool
func RegisterGetAlertNotes() {
	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "get_alert_notes",
		Description: "Get all notes attached to an alert",
		Profile:     "alerts",
		Schema: mcp.NewTool("get_alert_notes",
			mcp.WithDescription("Get all analyst notes attached to an alert, with author and timestamps"),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("alert_id",
				mcp.Required(),
				mcp.Description("The unique identifier of the alert")),
		),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			id, err := tools.ExtractID(args, "alert_id")
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}

			client, err := getClient(ctx)
			if err != nil {
				return tools.ErrorResultf("Failed to retrieve notes for alert %s: %v", id, err), nil
			}

			notes, err := client.GetAlertNotes(ctx, id)
			if err != nil {
				return tools.FailureResult(ctx, "Failed to retrieve notes for alert "+id, err), nil
			}
			return tools.SuccessResult(notes), nil
		},
	})
}

// RegisterGetAlertHistory registers the get_alert_history tool
func RegisterGetAlertHistory() {
	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "get_alert_history",
		Description: "Get the audit history of an alert",
		Profile:     "alerts",
		Schema: mcp.NewTool("get_alert_history",
			mcp.WithDescription("Get the audit history of an alert: status changes, assignments, verdicts and notes, newest first, with cursor pagination"),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("alert_id",
				mcp.Required(),
				mcp.Description("The unique identifier of the alert")),
			mcp.WithNumber("first",
				mcp.Description("Number of history events to retrieve (1-100)"),
				mcp.DefaultNumber(tools.DefaultFirst),
				mcp.Min(1),
				mcp.Max(tools.MaxFirst)),
			mcp.WithString("after",
				mcp.Description("Pagination cursor from a previous response")),
		),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			id, err := tools.ExtractID(args, "alert_id")
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

			client, err := getClient(ctx)
			if err != nil {
				return tools.ErrorResultf("Failed to retrieve history for alert %s: %v", id, err), nil
			}

			history, err := client.GetAlertHistory(ctx, id, first, after)
			if err != nil {
				return tools.FailureResult(ctx, "Failed to retrieve history for alert "+id, err), nil
			}
			return tools.SuccessResult(history), nil
		},
	})
}

const searchDescription = `Search alerts using filters. For "how many" questions set first to 1; totalCount is returned for every query.

Each filter is an object with fieldId, filterType and optional isNegated. Common fields: id, severity, status, alertName, detectedAt, createdAt, analystVerdict, assigneeUserId, assigneeFullName, alertNoteExists, storylineId, description.

Filter types:
- string_equals (value) and string_in (values), for severity, status, analystVerdict
- boolean_equals (value) and boolean_in (values), for alertNoteExists
- int_equals, int_in, long_equals, long_in, for numeric fields
- datetime_range (start and/or end in UNIX milliseconds UTC, optional startInclusive and endInclusive), for detectedAt and createdAt. Use createdAt unless asked otherwise, and convert ISO datetimes with iso_to_unix_timestamp first.
- fulltext (values), for free text search

Example: [{"fieldId": "severity", "filterType": "string_in", "values": ["HIGH", "CRITICAL"]}, {"fieldId": "status", "filterType": "string_equals", "value": "NEW"}]

At most 50 filters with at most 100 values each.`
