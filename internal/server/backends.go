package server

import (
	"log/slog"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/alerts"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/config"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/inventory"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/metrics"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/misconfigurations"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/purpleai"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/sdl"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/tools"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/vulnerabilities"
)

// newBackends builds one client per console API. Every client reads the
// token and timeout through live on each request.
func newBackends(live *config.Live, mgr *metrics.Manager, logger *slog.Logger) *tools.Backends {
	cfg := live.Config()

	gqlOpts := func() []graphql.Option {
		return []graphql.Option{
			graphql.WithLogger(logger),
			graphql.WithObserver(mgr.ObserveUpstream),
		}
	}

	pq := sdl.NewClient(live,
		sdl.WithLogger(logger),
		sdl.WithObserver(mgr.ObserveUpstream),
	)

	return &tools.Backends{
		Alerts: alerts.NewClient(live.Alerts(), alerts.Features{
			ViewType:    cfg.Features.AlertsViewType,
			DataSources: cfg.Features.AlertsDataSources,
		}, gqlOpts()...),
		Vulnerabilities: vulnerabilities.NewClient(live.Vulnerabilities(), gqlOpts()...),
		Misconfigurations: misconfigurations.NewClient(live.Misconfigurations(),
			cfg.Features.MisconfigurationsViewType, gqlOpts()...),
		Inventory: inventory.NewClient(live,
			inventory.WithLogger(logger),
			inventory.WithObserver(mgr.ObserveUpstream),
		),
		PurpleAI: purpleai.NewClient(live.Console(), purpleai.Settings{
			ConsoleBaseURL: cfg.ConsoleBaseURL,
			ConsoleVersion: cfg.PurpleAI.ConsoleVersion,
			AccountID:      cfg.PurpleAI.AccountID,
			TeamToken:      cfg.PurpleAI.TeamToken,
			EmailAddress:   cfg.PurpleAI.EmailAddress,
			UserAgent:      cfg.PurpleAI.UserAgent,
			BuildDate:      cfg.PurpleAI.BuildDate,
			BuildHash:      cfg.PurpleAI.BuildHash,
		}, gqlOpts()...),
		PowerQuery: sdl.NewHandler(pq,
			sdl.WithPollInterval(cfg.SDL.PollInterval),
			sdl.WithPollTimeout(cfg.SDL.PollTimeout),
			sdl.WithMaxResults(cfg.SDL.MaxResults),
			sdl.WithHandlerLogger(logger),
		),
	}
}
