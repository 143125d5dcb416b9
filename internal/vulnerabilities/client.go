// Package vulnerabilities is the client for the XSPM vulnerability findings
// GraphQL API.
package vulnerabilities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/filters"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/logging"
)

// ErrVulnerabilities marks every error raised by this package's client.
var ErrVulnerabilities = errors.New("vulnerabilities")

// ListOptions controls list and search calls. A nil Fields selects the
// catalog defaults.
type ListOptions struct {
	First  int
	After  string
	Fields []string
}

// Client talks to the vulnerabilities API.
type Client struct {
	gql    *graphql.Client
	logger *slog.Logger
}

// NewClient builds a client over cfg.
func NewClient(cfg graphql.ConfigProvider, opts ...graphql.Option) *Client {
	opts = append(opts, graphql.WithDomain(ErrVulnerabilities))
	gql := graphql.NewClient("vulnerabilities API", cfg, opts...)
	return &Client{gql: gql, logger: gql.Logger()}
}

// GetVulnerability fetches one finding with its full detail selection. It
// returns nil, nil when the finding does not exist.
func (c *Client) GetVulnerability(ctx context.Context, id string) (*Vulnerability, error) {
	c.logger.Info("Fetching vulnerability", "vulnerability_id", id)

	data, err := c.gql.Execute(ctx, getVulnerabilityQuery, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	raw := data["vulnerability"]
	if !graphql.IsObject(raw) {
		return nil, nil
	}
	var v Vulnerability
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, c.decodeError("vulnerability", err)
	}
	return &v, nil
}

// ListVulnerabilities returns one page of findings.
func (c *Client) ListVulnerabilities(ctx context.Context, opts ListOptions) (*graphql.Connection[Vulnerability], error) {
	c.logger.Info("Listing vulnerabilities", "first", opts.First, "has_after", opts.After != "")

	return c.page(ctx, listVulnerabilitiesQuery, pageVariables(opts), opts.Fields)
}

// SearchVulnerabilities returns one page of findings matching every filter.
func (c *Client) SearchVulnerabilities(ctx context.Context, fs []filters.Input, opts ListOptions) (*graphql.Connection[Vulnerability], error) {
	if logging.UnsafeDebugEnabled() {
		c.logger.Debug("Searching vulnerabilities", "filters", fs, "first", opts.First, "after", opts.After)
	} else {
		c.logger.Info("Searching vulnerabilities",
			"filter_count", len(fs),
			"has_filters", len(fs) > 0,
			"has_after", opts.After != "")
	}

	vars := pageVariables(opts)
	if len(fs) > 0 {
		vars["filters"] = fs
	}
	return c.page(ctx, searchVulnerabilitiesQuery, vars, opts.Fields)
}

// GetVulnerabilityNotes returns one page of notes. A zero first lets the
// server choose the page size.
func (c *Client) GetVulnerabilityNotes(ctx context.Context, id string, first int, after string) (*graphql.Connection[Note], error) {
	c.logger.Info("Fetching notes for vulnerability", "vulnerability_id", id)

	vars := map[string]any{"vulnerabilityId": id}
	if first > 0 {
		vars["first"] = first
	}
	if after != "" {
		vars["after"] = after
	}
	data, err := c.gql.Execute(ctx, vulnerabilityNotesQuery, vars)
	if err != nil {
		return nil, err
	}
	conn, err := graphql.DecodeConnection[Note](data["vulnerabilityNotes"])
	if err != nil {
		return nil, c.decodeError("vulnerabilityNotes", err)
	}
	return conn, nil
}

// GetVulnerabilityHistory returns one page of a finding's audit trail.
func (c *Client) GetVulnerabilityHistory(ctx context.Context, id string, first int, after string) (*graphql.Connection[HistoryEvent], error) {
	c.logger.Info("Fetching history for vulnerability", "vulnerability_id", id, "first", first)

	vars := map[string]any{"vulnerabilityId": id, "first": first}
	if after != "" {
		vars["after"] = after
	}
	data, err := c.gql.Execute(ctx, vulnerabilityHistoryQuery, vars)
	if err != nil {
		return nil, err
	}
	conn, err := graphql.DecodeConnection[HistoryEvent](data["vulnerabilityHistory"])
	if err != nil {
		return nil, c.decodeError("vulnerabilityHistory", err)
	}
	return conn, nil
}

func (c *Client) page(ctx context.Context, tpl *graphql.Template, vars map[string]any, fields []string) (*graphql.Connection[Vulnerability], error) {
	nodeFields, err := Catalog.Resolve(fields)
	if err != nil {
		return nil, err
	}
	query, err := tpl.Render(map[string]string{"node_fields": nodeFields})
	if err != nil {
		return nil, err
	}
	data, err := c.gql.Execute(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	conn, err := graphql.DecodeConnection[Vulnerability](data["vulnerabilities"])
	if err != nil {
		return nil, c.decodeError("vulnerabilities", err)
	}
	return conn, nil
}

func pageVariables(opts ListOptions) map[string]any {
	vars := map[string]any{"first": opts.First}
	if opts.After != "" {
		vars["after"] = opts.After
	}
	return vars
}

func (c *Client) decodeError(field string, err error) error {
	return &graphql.GraphQLError{
		Msg:    fmt.Sprintf("Unexpected %s payload in %s response: %v", field, c.gql.API(), err),
		Domain: ErrVulnerabilities,
	}
}
