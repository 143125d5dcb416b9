// Package inventory exposes the unified asset inventory as MCP tools.
package inventory

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	invapi "github.com/robemmerson/s1-purple-mcp-sub002/internal/inventory"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/tools"
)

func init() {
	RegisterGetInventoryItem()
	RegisterListInventoryItems()
	RegisterSearchInventoryItems()
}

func getClient(ctx context.Context) (tools.InventoryService, error) {
	b, err := tools.GetBackends(ctx)
	if err != nil {
		return nil, err
	}
	if b.Inventory == nil {
		return nil, fmt.Errorf("inventory API: %w", tools.ErrNotConfigured)
	}
	return b.Inventory, nil
}

func surfaceNames() []string {
	names := make([]string, len(invapi.Surfaces))
	for i, s := range invapi.Surfaces {
		names[i] = string(s)
	}
	return names
}

func limitSkipParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of items to return (1-1000)"),
			mcp.DefaultNumber(tools.DefaultLimit),
			mcp.Min(1),
			mcp.Max(tools.MaxLimit)),
		mcp.WithNumber("skip",
			mcp.Description("Number of items to skip, for pagination"),
			mcp.DefaultNumber(0),
			mcp.Min(0)),
	}
}

// RegisterGetInventoryItem registers the get_inventory_item tool
func RegisterGetInventoryItem() {
	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "get_inventory_item",
		Description: "Get a single inventory item by ID",
		Profile:     "inventory",
		Schema: mcp.NewTool("get_inventory_item",
			mcp.WithDescription("Get the complete record of a single inventory asset by ID, including every surface-specific attribute. Returns null when no item matches."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("item_id",
				mcp.Required(),
				mcp.Description("The unique identifier of the inventory item")),
		),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			id, err := tools.ExtractID(args, "item_id")
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			client, err := getClient(ctx)
			if err != nil {
				return tools.ErrorResultf("Failed to retrieve inventory item: %v", err), nil
			}

			item, err := client.GetItem(ctx, id)
			if err != nil {
				return tools.FailureResult(ctx, "Failed to retrieve inventory item", err), nil
			}
			return tools.SuccessResult(item), nil
		},
	})
}

// RegisterListInventoryItems registers the list_inventory_items tool
func RegisterListInventoryItems() {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List inventory assets with limit/skip pagination, optionally restricted to one surface. The response carries pagination.totalCount."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("surface",
			mcp.Description("Restrict results to one asset surface"),
			mcp.Enum(surfaceNames()...)),
	}, limitSkipParams()...)

	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "list_inventory_items",
		Description: "List inventory items",
		Profile:     "inventory",
		Schema:      mcp.NewTool("list_inventory_items", opts...),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			limit, skip, err := tools.ExtractLimitSkip(args)
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			var surface invapi.Surface
			if raw := tools.ExtractString(args, "surface", ""); raw != "" {
				if surface, err = invapi.ParseSurface(raw); err != nil {
					return tools.ErrorResult(err.Error()), nil
				}
			}
			client, err := getClient(ctx)
			if err != nil {
				return tools.ErrorResultf("Failed to list inventory items: %v", err), nil
			}

			resp, err := client.List(ctx, limit, skip, surface)
			if err != nil {
				return tools.FailureResult(ctx, "Failed to list inventory items", err), nil
			}
			return tools.SuccessResult(resp), nil
		},
	})
}

// RegisterSearchInventoryItems registers the search_inventory_items tool
func RegisterSearchInventoryItems() {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription(searchDescription),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("filters",
			mcp.Description(`JSON object of REST filters, e.g. '{"resourceType": ["Windows Server"], "name__contains": ["web"]}'`)),
	}, limitSkipParams()...)

	tools.RegisterTool(&tools.ToolRegistration{
		Name:        "search_inventory_items",
		Description: "Search inventory items using REST filters",
		Profile:     "inventory",
		Schema:      mcp.NewTool("search_inventory_items", opts...),
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			fs, err := tools.ExtractObject(args, "filters")
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			limit, skip, err := tools.ExtractLimitSkip(args)
			if err != nil {
				return tools.ErrorResult(err.Error()), nil
			}
			client, err := getClient(ctx)
			if err != nil {
				return tools.ErrorResultf("Failed to search inventory items: %v", err), nil
			}

			resp, err := client.Search(ctx, fs, limit, skip)
			if err != nil {
				return tools.FailureResult(ctx, "Failed to search inventory items", err), nil
			}
			return tools.SuccessResult(resp), nil
		},
	})
}

const searchDescription = `Search inventory assets with REST filters. The filters object maps a field to the values to match, with optional operator suffixes:
- field or field__in: exact match on any of the values
- field__contains: substring match
- field__nin: exclude values
- field__between: {"from": x, "to": y} for numbers and dates

Common fields: id, name, resourceType, category, assetStatus, surface, osType, cloudProviderAccountId, lastActiveDt.

Example: {"resourceType": ["Windows Server"], "assetStatus": ["Active"]}`
