// Package misconfigurations is the client for the XSPM misconfiguration
// findings GraphQL API.
package misconfigurations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/filters"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/logging"
)

// ErrMisconfigurations marks every error raised by this package's client.
var ErrMisconfigurations = errors.New("misconfigurations")

// ListOptions controls list and search calls.
type ListOptions struct {
	First    int
	After    string
	ViewType ViewType
	Fields   []string
}

// Client talks to the misconfigurations API.
//
// View-type support starts as configured and is switched off for the rest
// of the client's life the first time the server rejects it.
type Client struct {
	gql      *graphql.Client
	logger   *slog.Logger
	viewType atomic.Bool
}

// NewClient builds a client. supportsViewType enables the viewType argument
// on list and search.
func NewClient(cfg graphql.ConfigProvider, supportsViewType bool, opts ...graphql.Option) *Client {
	opts = append(opts, graphql.WithDomain(ErrMisconfigurations))
	gql := graphql.NewClient("misconfigurations API", cfg, opts...)
	c := &Client{gql: gql, logger: gql.Logger()}
	c.viewType.Store(supportsViewType)
	return c
}

// SupportsViewType reports whether list and search still send viewType.
func (c *Client) SupportsViewType() bool {
	return c.viewType.Load()
}

// GetMisconfiguration fetches one finding with its full detail selection.
// It returns nil, nil when the finding does not exist.
func (c *Client) GetMisconfiguration(ctx context.Context, id string) (*Misconfiguration, error) {
	c.logger.Info("Fetching misconfiguration", "misconfiguration_id", id)

	data, err := c.execute(ctx, getMisconfigurationQuery, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	raw := data["misconfiguration"]
	if !graphql.IsObject(raw) {
		return nil, nil
	}
	var m Misconfiguration
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, c.decodeError("misconfiguration", err)
	}
	return &m, nil
}

// ListMisconfigurations returns one page of findings.
func (c *Client) ListMisconfigurations(ctx context.Context, opts ListOptions) (*graphql.Connection[Misconfiguration], error) {
	c.logger.Info("Listing misconfigurations",
		"first", opts.First,
		"has_after", opts.After != "",
		"view_type", string(opts.ViewType),
		"field_count", fieldCount(opts.Fields))

	return c.page(ctx, listMisconfigurationsQuery, c.pageVariables(opts), opts.Fields)
}

// SearchMisconfigurations returns one page of findings matching every
// filter.
func (c *Client) SearchMisconfigurations(ctx context.Context, fs []filters.Input, opts ListOptions) (*graphql.Connection[Misconfiguration], error) {
	if logging.UnsafeDebugEnabled() {
		c.logger.Info("Searching misconfigurations",
			"filters", fs,
			"first", opts.First,
			"after", opts.After,
			"view_type", string(opts.ViewType))
	} else {
		c.logger.Info("Searching misconfigurations",
			"filter_count", len(fs),
			"has_filters", len(fs) > 0,
			"first", opts.First,
			"has_after", opts.After != "",
			"view_type", string(opts.ViewType),
			"field_count", fieldCount(opts.Fields))
	}

	vars := c.pageVariables(opts)
	if len(fs) > 0 {
		vars["filters"] = fs
	}
	return c.page(ctx, searchMisconfigurationsQuery, vars, opts.Fields)
}

// GetMisconfigurationNotes returns one page of notes. A zero first lets the
// server choose the page size.
func (c *Client) GetMisconfigurationNotes(ctx context.Context, id string, first int, after string) (*graphql.Connection[Note], error) {
	c.logger.Info("Fetching misconfiguration notes", "misconfiguration_id", id)

	vars := map[string]any{"misconfigurationId": id}
	if first > 0 {
		vars["first"] = first
	}
	if after != "" {
		vars["after"] = after
	}
	data, err := c.execute(ctx, misconfigurationNotesQuery, vars)
	if err != nil {
		return nil, err
	}
	conn, err := graphql.DecodeConnection[Note](data["misconfigurationNotes"])
	if err != nil {
		return nil, c.decodeError("misconfigurationNotes", err)
	}
	return conn, nil
}

// GetMisconfigurationHistory returns one page of a finding's audit trail.
func (c *Client) GetMisconfigurationHistory(ctx context.Context, id string, first int, after string) (*graphql.Connection[HistoryEvent], error) {
	c.logger.Info("Fetching misconfiguration history", "misconfiguration_id", id, "first", first)

	vars := map[string]any{"misconfigurationId": id, "first": first}
	if after != "" {
		vars["after"] = after
	}
	data, err := c.execute(ctx, misconfigurationHistoryQuery, vars)
	if err != nil {
		return nil, err
	}
	conn, err := graphql.DecodeConnection[HistoryEvent](data["misconfigurationHistory"])
	if err != nil {
		return nil, c.decodeError("misconfigurationHistory", err)
	}
	return conn, nil
}

func (c *Client) pageVariables(opts ListOptions) map[string]any {
	vars := map[string]any{"first": opts.First}
	if opts.After != "" {
		vars["after"] = opts.After
	}
	if c.viewType.Load() {
		vt := opts.ViewType
		if vt == "" {
			vt = ViewAll
		}
		vars["viewType"] = string(vt)
	}
	return vars
}

func (c *Client) page(ctx context.Context, tpl *graphql.Template, vars map[string]any, fields []string) (*graphql.Connection[Misconfiguration], error) {
	nodeFields, err := Catalog.Resolve(fields)
	if err != nil {
		return nil, err
	}
	data, err := c.executeCompatible(ctx, tpl, vars, nodeFields)
	if err != nil {
		return nil, err
	}
	conn, err := graphql.DecodeConnection[Misconfiguration](data["misconfigurations"])
	if err != nil {
		return nil, c.decodeError("misconfigurations", err)
	}
	return conn, nil
}

// execute runs query and promotes schema rejections to a SchemaError that
// names the offending field.
func (c *Client) execute(ctx context.Context, query string, vars map[string]any) (graphql.Data, error) {
	data, err := c.gql.Execute(ctx, query, vars)
	if err == nil {
		return data, nil
	}
	var ge *graphql.GraphQLError
	if !errors.As(err, &ge) {
		return nil, err
	}
	msg, ok := graphql.SchemaMessage(ge)
	if !ok {
		return nil, err
	}
	return nil, &graphql.SchemaError{
		Msg:     "Schema compatibility error in " + c.gql.API() + " response",
		Field:   graphql.SchemaFieldName(msg),
		Details: ge.Details(),
		Domain:  ErrMisconfigurations,
		Err:     err,
	}
}

// executeCompatible renders tpl with viewType while it is supported. On a
// schema error viewType support is switched off and the query is retried
// without it.
func (c *Client) executeCompatible(ctx context.Context, tpl *graphql.Template, vars map[string]any, nodeFields string) (graphql.Data, error) {
	params := map[string]string{"node_fields": nodeFields, "view_type_param": "", "view_type_arg": ""}
	if c.viewType.Load() {
		params["view_type_param"] = ", $viewType: ViewType"
		params["view_type_arg"] = ", viewType: $viewType"
	}
	query, err := tpl.Render(params)
	if err != nil {
		return nil, err
	}
	data, err := c.execute(ctx, query, vars)
	var se *graphql.SchemaError
	if err == nil || !errors.As(err, &se) {
		return data, err
	}

	if c.viewType.CompareAndSwap(true, false) {
		c.logger.Warn("Schema compatibility issue detected, disabling viewType support for future queries",
			"field", se.Field, "error", err)
	}

	params["view_type_param"] = ""
	params["view_type_arg"] = ""
	query, err = tpl.Render(params)
	if err != nil {
		return nil, err
	}
	fallbackVars := make(map[string]any, len(vars))
	for k, v := range vars {
		if k != "viewType" {
			fallbackVars[k] = v
		}
	}
	return c.execute(ctx, query, fallbackVars)
}

func (c *Client) decodeError(field string, err error) error {
	return &graphql.GraphQLError{
		Msg:    fmt.Sprintf("Unexpected %s payload in %s response: %v", field, c.gql.API(), err),
		Domain: ErrMisconfigurations,
	}
}

func fieldCount(fields []string) int {
	if fields == nil {
		return len(Catalog.Defaults())
	}
	return len(fields)
}
