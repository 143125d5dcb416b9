// Package resources provides MCP resources for the Purple MCP server.
package resources

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolMapURI is the URI of the tool relationships resource.
const ToolMapURI = "purple://tool-relationships"

// ToolRelationship says that the output of From feeds the Field argument
// of To.
type ToolRelationship struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
}

// ToolMap lists how the exposed tools chain and where an investigation
// usually starts.
type ToolMap struct {
	Version       string             `json:"version"`
	Relationships []ToolRelationship `json:"relationships"`
	EntryPoints   []string           `json:"entryPoints"`
}

func provides(from, field string, to ...string) []ToolRelationship {
	out := make([]ToolRelationship, len(to))
	for i, t := range to {
		out[i] = ToolRelationship{From: from, To: t, Type: "provides", Field: field}
	}
	return out
}

func relationships() []ToolRelationship {
	var r []ToolRelationship
	for _, from := range []string{"list_alerts", "search_alerts"} {
		r = append(r, provides(from, "alert_id", "get_alert", "get_alert_notes", "get_alert_history")...)
	}
	for _, from := range []string{"list_vulnerabilities", "search_vulnerabilities"} {
		r = append(r, provides(from, "vulnerability_id", "get_vulnerability", "get_vulnerability_notes", "get_vulnerability_history")...)
	}
	for _, from := range []string{"list_misconfigurations", "search_misconfigurations"} {
		r = append(r, provides(from, "misconfiguration_id", "get_misconfiguration", "get_misconfiguration_notes", "get_misconfiguration_history")...)
	}
	for _, from := range []string{"list_inventory_items", "search_inventory_items"} {
		r = append(r, provides(from, "item_id", "get_inventory_item")...)
	}

	// Time bounds for PowerQuery and the datetime filters
	r = append(r, provides("get_timestamp_range", "start_datetime", "powerquery")...)
	r = append(r, provides("get_timestamp_range", "end_datetime", "powerquery")...)
	r = append(r, provides("iso_to_unix_timestamp", "filters", "search_alerts", "search_vulnerabilities", "search_misconfigurations")...)

	// Purple AI may answer with a PowerQuery to run
	r = append(r, provides("purple_ai", "query", "powerquery")...)
	return r
}

var entryPoints = []string{
	"purple_ai",
	"list_alerts",
	"list_vulnerabilities",
	"list_misconfigurations",
	"list_inventory_items",
	"get_timestamp_range",
}

// BuildToolMap keeps the relationships and entry points whose tools are
// all in tools.
func BuildToolMap(tools []string) ToolMap {
	exposed := make(map[string]bool, len(tools))
	for _, t := range tools {
		exposed[t] = true
	}

	m := ToolMap{Version: "1.0", Relationships: []ToolRelationship{}, EntryPoints: []string{}}
	for _, rel := range relationships() {
		if exposed[rel.From] && exposed[rel.To] {
			m.Relationships = append(m.Relationships, rel)
		}
	}
	for _, e := range entryPoints {
		if exposed[e] {
			m.EntryPoints = append(m.EntryPoints, e)
		}
	}
	return m
}

// NewToolMapResource creates the tool relationships resource definition.
func NewToolMapResource() mcp.Resource {
	return mcp.NewResource(
		ToolMapURI,
		"Tool Relationships",
		mcp.WithResourceDescription("Describes how the Purple MCP tools chain together, to help LLMs plan multi-step investigations."),
		mcp.WithMIMEType("application/json"),
	)
}

// AddResourcesToServer adds the tool relationships of tools to s.
func AddResourcesToServer(s *server.MCPServer, tools []string) {
	m := BuildToolMap(tools)
	s.AddResource(NewToolMapResource(), func(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonData, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      ToolMapURI,
				MIMEType: "application/json",
				Text:     string(jsonData),
			},
		}, nil
	})
}
