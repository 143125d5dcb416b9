package tools

import (
	"context"
	"errors"
	"time"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const backendsKey contextKey = "backends"

// ErrNotConfigured is returned when a tool runs without its backend.
var ErrNotConfigured = errors.New("backend not configured")

// Backends are the services the tools call. A nil field disables the tools
// that need it.
type Backends struct {
	Alerts            AlertsService
	Vulnerabilities   VulnerabilitiesService
	Misconfigurations MisconfigurationsService
	Inventory         InventoryService
	PurpleAI          PurpleAIService
	PowerQuery        PowerQueryService

	// Now is the clock of the time tools. Nil means time.Now.
	Now func() time.Time
}

// WithBackends attaches the backends to ctx.
func WithBackends(ctx context.Context, b *Backends) context.Context {
	return context.WithValue(ctx, backendsKey, b)
}

// GetBackends retrieves the backends from ctx.
func GetBackends(ctx context.Context) (*Backends, error) {
	if b, ok := ctx.Value(backendsKey).(*Backends); ok && b != nil {
		return b, nil
	}
	return nil, ErrNotConfigured
}

// Clock returns the configured clock of the backends in ctx, or time.Now.
func Clock(ctx context.Context) func() time.Time {
	if b, err := GetBackends(ctx); err == nil && b.Now != nil {
		return b.Now
	}
	return time.Now
}
