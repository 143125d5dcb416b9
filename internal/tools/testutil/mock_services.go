// Package testutil holds mock backends and helpers for the tool packages'
// tests.
package testutil

import (
	"context"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/alerts"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/filters"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/inventory"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/misconfigurations"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/purpleai"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/sdl"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/tools"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/vulnerabilities"
)

// MockAlerts is a mock implementation of tools.AlertsService for testing
// It allows tests to specify behavior for each method via function fields
type MockAlerts struct {
	GetAlertFunc        func(ctx context.Context, id string) (*alerts.Alert, error)
	ListAlertsFunc      func(ctx context.Context, opts alerts.ListOptions) (*graphql.Connection[alerts.Alert], error)
	SearchAlertsFunc    func(ctx context.Context, fs []filters.Input, opts alerts.ListOptions) (*graphql.Connection[alerts.Alert], error)
	GetAlertNotesFunc   func(ctx context.Context, id string) (*alerts.Notes, error)
	GetAlertHistoryFunc func(ctx context.Context, id string, first int, after string) (*graphql.Connection[alerts.HistoryEvent], error)
}

func (m *MockAlerts) GetAlert(ctx context.Context, id string) (*alerts.Alert, error) {
	if m.GetAlertFunc != nil {
		return m.GetAlertFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockAlerts) ListAlerts(ctx context.Context, opts alerts.ListOptions) (*graphql.Connection[alerts.Alert], error) {
	if m.ListAlertsFunc != nil {
		return m.ListAlertsFunc(ctx, opts)
	}
	return &graphql.Connection[alerts.Alert]{}, nil
}

func (m *MockAlerts) SearchAlerts(ctx context.Context, fs []filters.Input, opts alerts.ListOptions) (*graphql.Connection[alerts.Alert], error) {
	if m.SearchAlertsFunc != nil {
		return m.SearchAlertsFunc(ctx, fs, opts)
	}
	return &graphql.Connection[alerts.Alert]{}, nil
}

func (m *MockAlerts) GetAlertNotes(ctx context.Context, id string) (*alerts.Notes, error) {
	if m.GetAlertNotesFunc != nil {
		return m.GetAlertNotesFunc(ctx, id)
	}
	return &alerts.Notes{}, nil
}

func (m *MockAlerts) GetAlertHistory(ctx context.Context, id string, first int, after string) (*graphql.Connection[alerts.HistoryEvent], error) {
	if m.GetAlertHistoryFunc != nil {
		return m.GetAlertHistoryFunc(ctx, id, first, after)
	}
	return &graphql.Connection[alerts.HistoryEvent]{}, nil
}

// MockVulnerabilities is a mock implementation of tools.VulnerabilitiesService
type MockVulnerabilities struct {
	GetVulnerabilityFunc        func(ctx context.Context, id string) (*vulnerabilities.Vulnerability, error)
	ListVulnerabilitiesFunc     func(ctx context.Context, opts vulnerabilities.ListOptions) (*graphql.Connection[vulnerabilities.Vulnerability], error)
	SearchVulnerabilitiesFunc   func(ctx context.Context, fs []filters.Input, opts vulnerabilities.ListOptions) (*graphql.Connection[vulnerabilities.Vulnerability], error)
	GetVulnerabilityNotesFunc   func(ctx context.Context, id string, first int, after string) (*graphql.Connection[vulnerabilities.Note], error)
	GetVulnerabilityHistoryFunc func(ctx context.Context, id string, first int, after string) (*graphql.Connection[vulnerabilities.HistoryEvent], error)
}

func (m *MockVulnerabilities) GetVulnerability(ctx context.Context, id string) (*vulnerabilities.Vulnerability, error) {
	if m.GetVulnerabilityFunc != nil {
		return m.GetVulnerabilityFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockVulnerabilities) ListVulnerabilities(ctx context.Context, opts vulnerabilities.ListOptions) (*graphql.Connection[vulnerabilities.Vulnerability], error) {
	if m.ListVulnerabilitiesFunc != nil {
		return m.ListVulnerabilitiesFunc(ctx, opts)
	}
	return &graphql.Connection[vulnerabilities.Vulnerability]{}, nil
}

func (m *MockVulnerabilities) SearchVulnerabilities(ctx context.Context, fs []filters.Input, opts vulnerabilities.ListOptions) (*graphql.Connection[vulnerabilities.Vulnerability], error) {
	if m.SearchVulnerabilitiesFunc != nil {
		return m.SearchVulnerabilitiesFunc(ctx, fs, opts)
	}
	return &graphql.Connection[vulnerabilities.Vulnerability]{}, nil
}

func (m *MockVulnerabilities) GetVulnerabilityNotes(ctx context.Context, id string, first int, after string) (*graphql.Connection[vulnerabilities.Note], error) {
	if m.GetVulnerabilityNotesFunc != nil {
		return m.GetVulnerabilityNotesFunc(ctx, id, first, after)
	}
	return &graphql.Connection[vulnerabilities.Note]{}, nil
}

func (m *MockVulnerabilities) GetVulnerabilityHistory(ctx context.Context, id string, first int, after string) (*graphql.Connection[vulnerabilities.HistoryEvent], error) {
	if m.GetVulnerabilityHistoryFunc != nil {
		return m.GetVulnerabilityHistoryFunc(ctx, id, first, after)
	}
	return &graphql.Connection[vulnerabilities.HistoryEvent]{}, nil
}

// MockMisconfigurations is a mock implementation of tools.MisconfigurationsService
type MockMisconfigurations struct {
	GetMisconfigurationFunc        func(ctx context.Context, id string) (*misconfigurations.Misconfiguration, error)
	ListMisconfigurationsFunc      func(ctx context.Context, opts misconfigurations.ListOptions) (*graphql.Connection[misconfigurations.Misconfiguration], error)
	SearchMisconfigurationsFunc    func(ctx context.Context, fs []filters.Input, opts misconfigurations.ListOptions) (*graphql.Connection[misconfigurations.Misconfiguration], error)
	GetMisconfigurationNotesFunc   func(ctx context.Context, id string, first int, after string) (*graphql.Connection[misconfigurations.Note], error)
	GetMisconfigurationHistoryFunc func(ctx context.Context, id string, first int, after string) (*graphql.Connection[misconfigurations.HistoryEvent], error)
}

func (m *MockMisconfigurations) GetMisconfiguration(ctx context.Context, id string) (*misconfigurations.Misconfiguration, error) {
	if m.GetMisconfigurationFunc != nil {
		return m.GetMisconfigurationFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockMisconfigurations) ListMisconfigurations(ctx context.Context, opts misconfigurations.ListOptions) (*graphql.Connection[misconfigurations.Misconfiguration], error) {
	if m.ListMisconfigurationsFunc != nil {
		return m.ListMisconfigurationsFunc(ctx, opts)
	}
	return &graphql.Connection[misconfigurations.Misconfiguration]{}, nil
}

func (m *MockMisconfigurations) SearchMisconfigurations(ctx context.Context, fs []filters.Input, opts misconfigurations.ListOptions) (*graphql.Connection[misconfigurations.Misconfiguration], error) {
	if m.SearchMisconfigurationsFunc != nil {
		return m.SearchMisconfigurationsFunc(ctx, fs, opts)
	}
	return &graphql.Connection[misconfigurations.Misconfiguration]{}, nil
}

func (m *MockMisconfigurations) GetMisconfigurationNotes(ctx context.Context, id string, first int, after string) (*graphql.Connection[misconfigurations.Note], error) {
	if m.GetMisconfigurationNotesFunc != nil {
		return m.GetMisconfigurationNotesFunc(ctx, id, first, after)
	}
	return &graphql.Connection[misconfigurations.Note]{}, nil
}

func (m *MockMisconfigurations) GetMisconfigurationHistory(ctx context.Context, id string, first int, after string) (*graphql.Connection[misconfigurations.HistoryEvent], error) {
	if m.GetMisconfigurationHistoryFunc != nil {
		return m.GetMisconfigurationHistoryFunc(ctx, id, first, after)
	}
	return &graphql.Connection[misconfigurations.HistoryEvent]{}, nil
}

// MockInventory is a mock implementation of tools.InventoryService
type MockInventory struct {
	GetItemFunc func(ctx context.Context, id string) (*inventory.Item, error)
	ListFunc    func(ctx context.Context, limit, skip int, surface inventory.Surface) (*inventory.Response, error)
	SearchFunc  func(ctx context.Context, filters map[string]any, limit, skip int) (*inventory.Response, error)
}

func (m *MockInventory) GetItem(ctx context.Context, id string) (*inventory.Item, error) {
	if m.GetItemFunc != nil {
		return m.GetItemFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockInventory) List(ctx context.Context, limit, skip int, surface inventory.Surface) (*inventory.Response, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, skip, surface)
	}
	return &inventory.Response{Data: []inventory.Item{}}, nil
}

func (m *MockInventory) Search(ctx context.Context, filters map[string]any, limit, skip int) (*inventory.Response, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, filters, limit, skip)
	}
	return &inventory.Response{Data: []inventory.Item{}}, nil
}

// MockPurpleAI is a mock implementation of tools.PurpleAIService
type MockPurpleAI struct {
	AskFunc func(ctx context.Context, question string) (*purpleai.Answer, error)
}

func (m *MockPurpleAI) Ask(ctx context.Context, question string) (*purpleai.Answer, error) {
	if m.AskFunc != nil {
		return m.AskFunc(ctx, question)
	}
	return &purpleai.Answer{Type: purpleai.ResultMessage}, nil
}

// MockPowerQuery is a mock implementation of tools.PowerQueryService
type MockPowerQuery struct {
	RunFunc func(ctx context.Context, q sdl.Query) (*sdl.Result, error)
}

func (m *MockPowerQuery) Run(ctx context.Context, q sdl.Query) (*sdl.Result, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, q)
	}
	return &sdl.Result{}, nil
}

var (
	_ tools.AlertsService            = (*MockAlerts)(nil)
	_ tools.VulnerabilitiesService   = (*MockVulnerabilities)(nil)
	_ tools.MisconfigurationsService = (*MockMisconfigurations)(nil)
	_ tools.InventoryService         = (*MockInventory)(nil)
	_ tools.PurpleAIService          = (*MockPurpleAI)(nil)
	_ tools.PowerQueryService        = (*MockPowerQuery)(nil)
)
