// This file defines the service interfaces the tools call. The real
// clients implement them (checked at the bottom of this file); tests
// substitute mocks built from function fields.
package tools

import (
	"context"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/alerts"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/filters"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/inventory"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/misconfigurations"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/purpleai"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/sdl"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/vulnerabilities"
)

// AlertsService reads unified alerts.
type AlertsService interface {
	GetAlert(ctx context.Context, id string) (*alerts.Alert, error)
	ListAlerts(ctx context.Context, opts alerts.ListOptions) (*graphql.Connection[alerts.Alert], error)
	SearchAlerts(ctx context.Context, fs []filters.Input, opts alerts.ListOptions) (*graphql.Connection[alerts.Alert], error)
	GetAlertNotes(ctx context.Context, id string) (*alerts.Notes, error)
	GetAlertHistory(ctx context.Context, id string, first int, after string) (*graphql.Connection[alerts.HistoryEvent], error)
}

// VulnerabilitiesService reads XSPM vulnerability findings.
type VulnerabilitiesService interface {
	GetVulnerability(ctx context.Context, id string) (*vulnerabilities.Vulnerability, error)
	ListVulnerabilities(ctx context.Context, opts vulnerabilities.ListOptions) (*graphql.Connection[vulnerabilities.Vulnerability], error)
	SearchVulnerabilities(ctx context.Context, fs []filters.Input, opts vulnerabilities.ListOptions) (*graphql.Connection[vulnerabilities.Vulnerability], error)
	GetVulnerabilityNotes(ctx context.Context, id string, first int, after string) (*graphql.Connection[vulnerabilities.Note], error)
	GetVulnerabilityHistory(ctx context.Context, id string, first int, after string) (*graphql.Connection[vulnerabilities.HistoryEvent], error)
}

// MisconfigurationsService reads XSPM misconfiguration findings.
type MisconfigurationsService interface {
	GetMisconfiguration(ctx context.Context, id string) (*misconfigurations.Misconfiguration, error)
	ListMisconfigurations(ctx context.Context, opts misconfigurations.ListOptions) (*graphql.Connection[misconfigurations.Misconfiguration], error)
	SearchMisconfigurations(ctx context.Context, fs []filters.Input, opts misconfigurations.ListOptions) (*graphql.Connection[misconfigurations.Misconfiguration], error)
	GetMisconfigurationNotes(ctx context.Context, id string, first int, after string) (*graphql.Connection[misconfigurations.Note], error)
	GetMisconfigurationHistory(ctx context.Context, id string, first int, after string) (*graphql.Connection[misconfigurations.HistoryEvent], error)
}

// InventoryService reads the asset inventory.
type InventoryService interface {
	GetItem(ctx context.Context, id string) (*inventory.Item, error)
	List(ctx context.Context, limit, skip int, surface inventory.Surface) (*inventory.Response, error)
	Search(ctx context.Context, filters map[string]any, limit, skip int) (*inventory.Response, error)
}

// PurpleAIService answers natural language questions.
type PurpleAIService interface {
	Ask(ctx context.Context, question string) (*purpleai.Answer, error)
}

// PowerQueryService runs PowerQueries to completion.
type PowerQueryService interface {
	Run(ctx context.Context, q sdl.Query) (*sdl.Result, error)
}

var (
	_ AlertsService            = (*alerts.Client)(nil)
	_ VulnerabilitiesService   = (*vulnerabilities.Client)(nil)
	_ MisconfigurationsService = (*misconfigurations.Client)(nil)
	_ InventoryService         = (*inventory.Client)(nil)
	_ PurpleAIService          = (*purpleai.Client)(nil)
	_ PowerQueryService        = (*sdl.Handler)(nil)
)
