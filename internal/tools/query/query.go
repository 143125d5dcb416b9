// Package query provides the PowerQuery tool and the timestamp helpers used
// to build time bounds for it and for datetime filters.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/sdl"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/tools"
)

func init() {
	RegisterPowerQuery()
	RegisterGetTimestampRange()
	RegisterISOToUnixTimestamp()
}

func getHandler(ctx context.Context) (tools.PowerQueryService, error) {
	b, err := tools.GetBackends(ctx)
	if err != nil {
		return nil, err
	}
	if b.PowerQuery == nil {
		return nil, fmt.Errorf("PowerQuery: %w", tools.ErrNotConfigured)
	}
	return b.PowerQuery, nil
}

// RegisterPowerQuery registers the powerquery tool
func RegisterPowerQuery() {
	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "powerquery",
		Description: "Run a PowerQuery against the SentinelOne data lake",
		Profile:     "analytics",
		Schema: mcp.NewTool("powerquery",
			mcp.WithDescription("Run a PowerQuery against the SentinelOne data lake and return the results as a table. Queries written by purple_ai can be passed as is. Both bounds need an explicit timezone; use get_timestamp_range to compute them."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("The PowerQuery to run")),
			mcp.WithString("start_datetime",
				mcp.Required(),
				mcp.Description("Start of the time range, ISO 8601 with timezone, e.g. 2025-10-30T12:00:00Z")),
			mcp.WithString("end_datetime",
				mcp.Required(),
				mcp.Description("End of the time range, ISO 8601 with timezone, e.g. 2025-10-31T12:00:00Z")),
		),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			text, _ := args["query"].(string)
			if strings.TrimSpace(text) == "" {
				return tools.ErrorResult("query cannot be empty"), nil
			}
			rawStart, _ := args["start_datetime"].(string)
			rawEnd, _ := args["end_datetime"].(string)

			start, err := sdl.ParseZonedISO(rawStart)
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			end, err := sdl.ParseZonedISO(rawEnd)
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			if !end.After(start) {
				return tools.ErrorResultf("end_datetime must be later than start_datetime (start: %s, end: %s)", rawStart, rawEnd), nil
			}

			handler, err := getHandler(ctx)
			if err != nil {
				return tools.ErrorResultf("Failed to run PowerQuery: %v", err), nil
			}

			logger := slog.Default()
			logger.InfoContext(ctx, "Running PowerQuery",
				"start", start.UTC().Format(time.RFC3339),
				"end", end.UTC().Format(time.RFC3339))
			logger.DebugContext(ctx, "PowerQuery details", "query_length", len(text))

			result, err := handler.Run(ctx, sdl.Query{Text: text, Start: start, End: end})
			if err != nil {
				return tools.FailureResult(ctx, "Failed to run PowerQuery", err), nil
			}
			return tools.TextResult(Summarize(result)), nil
		},
	})
}

// Summarize renders a PowerQuery result as a short header followed by the
// result table.
func Summarize(r *sdl.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Match Count: %s\n", strconv.FormatFloat(r.MatchCount, 'f', -1, 64))
	fmt.Fprintf(&b, "Columns: %d\n", len(r.Columns))
	fmt.Fprintf(&b, "Rows: %d\n", len(r.Values))
	if r.Partial() {
		b.WriteString("Note: results are partial")
		if r.TruncatedAtLimit {
			b.WriteString(", truncated at the row limit")
		}
		if r.PartialResultsDueToTimeLimit {
			b.WriteString(", the query hit its time limit")
		}
		b.WriteString("\n")
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}
	b.WriteString("\n")
	b.WriteString(sdl.FormatTable(r))
	return b.String()
}

// RegisterGetTimestampRange registers the get_timestamp_range tool
func RegisterGetTimestampRange() {
	units := make([]string, len(sdl.Units))
	for i, u := range sdl.Units {
		units[i] = string(u)
	}

	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "get_timestamp_range",
		Description: "Compute a time range relative to now or a reference time",
		Profile:     "analytics",
		Schema: mcp.NewTool("get_timestamp_range",
			mcp.WithDescription("Compute the time range spanning an amount of units before or after a reference time (default now), e.g. the last 7 days. Returns both bounds as ISO 8601 in UTC and as UNIX milliseconds, ready for powerquery or datetime_range filters. Months and years move by calendar."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithNumber("amount",
				mcp.Required(),
				mcp.Description("Number of units, a positive integer"),
				mcp.Min(1)),
			mcp.WithString("unit",
				mcp.Required(),
				mcp.Description("Unit of the amount"),
				mcp.Enum(units...)),
			mcp.WithString("direction",
				mcp.Description("Whether the range lies before or after the reference time"),
				mcp.DefaultString(string(sdl.DirectionPast)),
				mcp.Enum(string(sdl.DirectionPast), string(sdl.DirectionFuture))),
			mcp.WithString("reference_datetime",
				mcp.Description("Optional ISO 8601 reference time with timezone; defaults to now")),
		),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			amount, err := tools.ExtractInt(args, "amount", 0)
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}

			ref := tools.Clock(ctx)()
			if raw := tools.ExtractString(args, "reference_datetime", ""); raw != "" {
				if ref, err = sdl.ParseZonedISO(raw); err != nil {
					return tools.ErrorResult(err.Error()), nil
				}
			}

			r, err := sdl.TimestampRange(ref,
				amount,
				sdl.Unit(tools.ExtractString(args, "unit", "")),
				sdl.Direction(tools.ExtractString(args, "direction", string(sdl.DirectionPast))))
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}

			return tools.SuccessResult(map[string]interface{}{
				"start_datetime": r.Start.UTC().Format(time.RFC3339),
				"end_datetime":   r.End.UTC().Format(time.RFC3339),
				"start_ms":       r.StartMillis(),
				"end_ms":         r.EndMillis(),
			}), nil
		},
	})
}

// RegisterISOToUnixTimestamp registers the iso_to_unix_timestamp tool
func RegisterISOToUnixTimestamp() {
	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "iso_to_unix_timestamp",
		Description: "Convert an ISO 8601 datetime to UNIX milliseconds",
		Profile:     "core",
		Schema: mcp.NewTool("iso_to_unix_timestamp",
			mcp.WithDescription("Convert an ISO 8601 datetime to a UNIX timestamp in milliseconds (UTC), as needed by datetime_range filters. Pass the datetime in the user's own timezone, e.g. 2024-10-30T08:00:00-04:00 for 8 AM Eastern, and let this tool convert it. A value without a timezone is read as UTC."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("iso_datetime",
				mcp.Required(),
				mcp.Description("ISO 8601 datetime, e.g. 2025-10-30T12:00:00Z")),
		),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			raw, _ := args["iso_datetime"].(string)
			ms, err := sdl.ISOToUnixMillis(raw)
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			return tools.TextResult(strconv.FormatInt(ms, 10)), nil
		},
	})
}
