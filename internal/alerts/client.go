// Package alerts is the client for the Unified Alerts Management GraphQL API.
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/filters"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"
)

// ErrAlerts marks every error raised by this package's client.
var ErrAlerts = errors.New("alerts")

// Features are the optional schema capabilities of the target console.
type Features struct {
	ViewType    bool
	DataSources bool
}

// ListOptions controls list and search calls. A nil Fields selects the
// default fields plus dataSources; an empty After starts at the first page.
type ListOptions struct {
	First    int
	After    string
	ViewType ViewType
	Fields   []string
}

// Client talks to the alerts API.
type Client struct {
	gql      *graphql.Client
	features Features
	logger   *slog.Logger
}

// NewClient builds a client. Options are passed to the underlying
// transport; the domain sentinel is always ErrAlerts.
func NewClient(cfg graphql.ConfigProvider, features Features, opts ...graphql.Option) *Client {
	opts = append(opts, graphql.WithDomain(ErrAlerts))
	gql := graphql.NewClient("alerts API", cfg, opts...)
	return &Client{gql: gql, features: features, logger: gql.Logger()}
}

// GetAlert fetches one alert. It returns nil, nil when the alert does not
// exist.
func (c *Client) GetAlert(ctx context.Context, id string) (*Alert, error) {
	c.logger.Info("Fetching alert", "alert_id", id)

	data, err := c.executeCompatible(ctx, getAlertQuery, map[string]any{"alertId": id}, nil)
	if err != nil {
		return nil, err
	}
	raw := data["alert"]
	if !graphql.IsObject(raw) {
		return nil, nil
	}
	var alert Alert
	if err := json.Unmarshal(raw, &alert); err != nil {
		return nil, c.decodeError("alert", err)
	}
	return &alert, nil
}

// ListAlerts returns one page of alerts.
func (c *Client) ListAlerts(ctx context.Context, opts ListOptions) (*graphql.Connection[Alert], error) {
	c.logger.Info("Listing alerts",
		"first", opts.First,
		"after", opts.After,
		"view_type", string(opts.ViewType),
		"field_count", fieldCount(opts.Fields))

	return c.page(ctx, listAlertsQuery, c.pageVariables(opts), opts.Fields)
}

// SearchAlerts returns one page of alerts matching every filter.
func (c *Client) SearchAlerts(ctx context.Context, fs []filters.Input, opts ListOptions) (*graphql.Connection[Alert], error) {
	c.logger.Info("Searching alerts",
		"filter_count", len(fs),
		"first", opts.First,
		"view_type", string(opts.ViewType),
		"field_count", fieldCount(opts.Fields))

	vars := c.pageVariables(opts)
	vars["filters"] = nil
	if len(fs) > 0 {
		vars["filters"] = fs
	}
	return c.page(ctx, searchAlertsQuery, vars, opts.Fields)
}

// GetAlertNotes returns every note on an alert.
func (c *Client) GetAlertNotes(ctx context.Context, id string) (*Notes, error) {
	c.logger.Info("Fetching notes for alert", "alert_id", id)

	data, err := c.executeCompatible(ctx, alertNotesQuery, map[string]any{"alertId": id}, nil)
	if err != nil {
		return nil, err
	}
	notes := &Notes{Data: []Note{}}
	if raw := data["alertNotes"]; graphql.IsObject(raw) {
		if err := json.Unmarshal(raw, notes); err != nil {
			return nil, c.decodeError("alertNotes", err)
		}
		if notes.Data == nil {
			notes.Data = []Note{}
		}
	}
	return notes, nil
}

// GetAlertHistory returns one page of an alert's audit trail.
func (c *Client) GetAlertHistory(ctx context.Context, id string, first int, after string) (*graphql.Connection[HistoryEvent], error) {
	c.logger.Info("Fetching history for alert", "alert_id", id)

	vars := map[string]any{"alertId": id, "first": first, "after": optional(after)}
	data, err := c.executeCompatible(ctx, alertHistoryQuery, vars, nil)
	if err != nil {
		return nil, err
	}
	conn, err := graphql.DecodeConnection[HistoryEvent](data["alertHistory"])
	if err != nil {
		return nil, c.decodeError("alertHistory", err)
	}
	for i := range conn.Edges {
		conn.Edges[i].Node.normalizeCreator()
	}
	return conn, nil
}

func (c *Client) pageVariables(opts ListOptions) map[string]any {
	vars := map[string]any{"first": opts.First, "after": optional(opts.After)}
	if c.features.ViewType {
		vt := opts.ViewType
		if vt == "" {
			vt = ViewAll
		}
		vars["viewType"] = string(vt)
	}
	return vars
}

func (c *Client) page(ctx context.Context, tpl *graphql.Template, vars map[string]any, fields []string) (*graphql.Connection[Alert], error) {
	nodeFields, withDataSources, err := c.fieldParams(fields)
	if err != nil {
		return nil, err
	}
	params := map[string]string{"node_fields": nodeFields}
	if !withDataSources {
		params["data_sources_field"] = ""
	}

	data, err := c.executeCompatible(ctx, tpl, vars, params)
	if err != nil {
		return nil, err
	}
	conn, err := graphql.DecodeConnection[Alert](data["alerts"])
	if err != nil {
		return nil, c.decodeError("alerts", err)
	}
	return conn, nil
}

// fieldParams resolves the node selection and decides whether dataSources
// is requested. dataSources never appears in the node block so the template
// slot cannot duplicate it.
func (c *Client) fieldParams(fields []string) (string, bool, error) {
	if fields == nil {
		sel, err := Catalog.Resolve(nil)
		return sel, true, err
	}

	withDataSources := false
	rest := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f) == dataSourcesField {
			withDataSources = true
			continue
		}
		rest = append(rest, f)
	}
	sel, err := Catalog.Resolve(rest)
	return sel, withDataSources, err
}

// executeCompatible renders tpl with every optional schema feature the
// client supports and falls back to a minimal query when the server rejects
// one of them.
func (c *Client) executeCompatible(ctx context.Context, tpl *graphql.Template, vars map[string]any, params map[string]string) (graphql.Data, error) {
	full := map[string]string{
		"data_sources_field": "",
		"view_type_param":    "",
		"view_type_arg":      "",
	}
	if c.features.DataSources {
		full["data_sources_field"] = dataSourcesField
	}
	if c.features.ViewType {
		full["view_type_param"] = ", $viewType: ViewType"
		full["view_type_arg"] = ", viewType: $viewType"
	}
	for k, v := range params {
		full[k] = v
	}

	query, err := tpl.Render(full)
	if err != nil {
		return nil, err
	}
	data, err := c.gql.Execute(ctx, query, vars)
	if err == nil || !graphql.IsSchemaError(err) {
		return data, err
	}

	c.logger.Warn("Schema compatibility issue detected, trying fallback query", "query", tpl.Name(), "error", err)

	minimal := map[string]string{
		"data_sources_field": "",
		"view_type_param":    "",
		"view_type_arg":      "",
	}
	if nf, ok := params["node_fields"]; ok {
		minimal["node_fields"] = nf
	}
	query, err = tpl.Render(minimal)
	if err != nil {
		return nil, err
	}
	fallbackVars := make(map[string]any, len(vars))
	for k, v := range vars {
		if k != "viewType" {
			fallbackVars[k] = v
		}
	}
	return c.gql.Execute(ctx, query, fallbackVars)
}

func (c *Client) decodeError(field string, err error) error {
	return &graphql.GraphQLError{
		Msg:    fmt.Sprintf("Unexpected %s payload in %s response: %v", field, c.gql.API(), err),
		Domain: ErrAlerts,
	}
}

func fieldCount(fields []string) int {
	if fields == nil {
		return len(Catalog.Defaults())
	}
	return len(fields)
}

// optional maps an empty cursor to a JSON null.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
