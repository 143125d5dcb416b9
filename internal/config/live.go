package config

import (
	"sync/atomic"
	"time"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/logging"
)

// Live exposes the settings that may change while the server runs. The
// console token and request timeout sit behind atomics and are read again on
// every outbound request, so a rotated token applies to the next call of
// every long-lived client.
type Live struct {
	cfg     *Config
	token   atomic.Pointer[string]
	timeout atomic.Int64
}

// NewLive wraps cfg and registers its token as a log secret.
func NewLive(cfg *Config) *Live {
	l := &Live{cfg: cfg}
	l.SetToken(cfg.ConsoleToken)
	l.SetTimeout(cfg.RequestTimeout)
	return l
}

// Config returns the static configuration.
func (l *Live) Config() *Config { return l.cfg }

// AuthToken returns the current console token.
func (l *Live) AuthToken() string { return *l.token.Load() }

// SetToken rotates the console token. The new value is redacted from logs
// from now on.
func (l *Live) SetToken(token string) {
	logging.RegisterSecret(token)
	l.token.Store(&token)
}

// Timeout returns the per-request timeout.
func (l *Live) Timeout() time.Duration { return time.Duration(l.timeout.Load()) }

// SetTimeout changes the timeout of every later request.
func (l *Live) SetTimeout(d time.Duration) { l.timeout.Store(int64(d)) }

// InventoryURL implements the inventory client's config.
func (l *Live) InventoryURL() string {
	return l.cfg.ConsoleBaseURL + l.cfg.InventoryEndpoint
}

// SDLURL implements the PowerQuery client's config.
func (l *Live) SDLURL() string {
	return l.cfg.ConsoleBaseURL + SDLPath
}

// Console is the GraphQL endpoint serving Purple AI.
func (l *Live) Console() Endpoint { return l.endpoint(l.cfg.ConsoleGraphQLEndpoint) }

func (l *Live) Alerts() Endpoint { return l.endpoint(l.cfg.AlertsGraphQLEndpoint) }

func (l *Live) Misconfigurations() Endpoint {
	return l.endpoint(l.cfg.MisconfigurationsGraphQLEndpoint)
}

func (l *Live) Vulnerabilities() Endpoint {
	return l.endpoint(l.cfg.VulnerabilitiesGraphQLEndpoint)
}

func (l *Live) endpoint(path string) Endpoint {
	return Endpoint{live: l, url: l.cfg.ConsoleBaseURL + path}
}

// Endpoint is one GraphQL API of the console. It reads the token and
// timeout through the shared Live settings.
type Endpoint struct {
	live *Live
	url  string
}

func (e Endpoint) GraphQLURL() string     { return e.url }
func (e Endpoint) AuthToken() string      { return e.live.AuthToken() }
func (e Endpoint) Timeout() time.Duration { return e.live.Timeout() }
