package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "PURPLEMCP_"

// Transport modes.
const (
	ModeStdio          = "stdio"
	ModeHTTP           = "http"
	ModeStreamableHTTP = "streamable-http"
	ModeSSE            = "sse"
)

// Default console API paths.
const (
	DefaultConsoleGraphQLEndpoint           = "/web/api/v2.1/graphql"
	DefaultAlertsGraphQLEndpoint            = "/web/api/v2.1/unifiedalerts/graphql"
	DefaultMisconfigurationsGraphQLEndpoint = "/web/api/v2.1/xspm/findings/misconfigurations/graphql"
	DefaultVulnerabilitiesGraphQLEndpoint   = "/web/api/v2.1/xspm/findings/vulnerabilities/graphql"
	DefaultInventoryRESTEndpoint            = "/web/api/v2.1/xdr/assets"

	// SDLPath is appended to the console base URL for PowerQuery.
	SDLPath = "/sdl"
)

// BuiltinProfiles are the tool profiles shipped in configs/profiles.yaml.
var BuiltinProfiles = []string{"core", "alerts", "posture", "inventory", "analytics", "all"}

// Config holds all configuration for the MCP server
type Config struct {
	// Console access. The token authenticates every console, PowerQuery and
	// inventory request.
	ConsoleToken   string
	ConsoleBaseURL string

	ConsoleGraphQLEndpoint           string
	AlertsGraphQLEndpoint            string
	MisconfigurationsGraphQLEndpoint string
	VulnerabilitiesGraphQLEndpoint   string
	InventoryEndpoint                string

	// RequestTimeout bounds each outbound HTTP request.
	RequestTimeout time.Duration

	PurpleAI PurpleAIConfig
	SDL      SDLConfig
	Features Features

	Environment string

	// Server configuration
	Mode               string // stdio, http, streamable-http or sse
	StatelessHTTP      bool
	HTTPHost           string
	HTTPPort           int
	Profile            string
	ProfilesConfigPath string
	LogLevel           string
	DebugUnsafeLogging bool
	MaxBodyBytes       int64
	ShutdownTimeout    time.Duration

	// Optional Redis backing for the HTTP rate limiter
	RedisURL string

	RateLimit RateLimitConfig

	MetricsEnabled bool
}

// PurpleAIConfig is the user and console metadata sent with every Purple AI
// question.
type PurpleAIConfig struct {
	AccountID      string
	TeamToken      string
	SessionID      string
	EmailAddress   string
	UserAgent      string
	BuildDate      string
	BuildHash      string
	ConsoleVersion string
}

// SDLConfig tunes PowerQuery polling.
type SDLConfig struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
	MaxResults   int
}

// Features are optional schema capabilities of the GraphQL APIs.
type Features struct {
	AlertsViewType            bool
	AlertsDataSources         bool
	MisconfigurationsViewType bool
}

// RateLimitConfig bounds requests per client over a fixed window on the
// HTTP transports.
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

// Load loads configuration from environment variables and validates it.
// Priority: environment variables > defaults
func Load() (*Config, error) {
	cfg := &Config{
		ConsoleToken:   getEnv("CONSOLE_TOKEN", ""),
		ConsoleBaseURL: strings.TrimRight(getEnv("CONSOLE_BASE_URL", ""), "/"),

		ConsoleGraphQLEndpoint:           getEnv("CONSOLE_GRAPHQL_ENDPOINT", DefaultConsoleGraphQLEndpoint),
		AlertsGraphQLEndpoint:            getEnv("ALERTS_GRAPHQL_ENDPOINT", DefaultAlertsGraphQLEndpoint),
		MisconfigurationsGraphQLEndpoint: getEnv("MISCONFIGURATIONS_GRAPHQL_ENDPOINT", DefaultMisconfigurationsGraphQLEndpoint),
		VulnerabilitiesGraphQLEndpoint:   getEnv("VULNERABILITIES_GRAPHQL_ENDPOINT", DefaultVulnerabilitiesGraphQLEndpoint),
		InventoryEndpoint:                getEnv("INVENTORY_RESTAPI_ENDPOINT", DefaultInventoryRESTEndpoint),

		RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", 30*time.Second),

		PurpleAI: PurpleAIConfig{
			AccountID:      getEnv("PURPLE_AI_ACCOUNT_ID", "0"),
			TeamToken:      getEnv("PURPLE_AI_TEAM_TOKEN", "0"),
			SessionID:      getEnv("PURPLE_AI_SESSION_ID", strings.ReplaceAll(uuid.NewString(), "-", "")),
			EmailAddress:   getEnv("PURPLE_AI_EMAIL_ADDRESS", ""),
			UserAgent:      getEnv("PURPLE_AI_USER_AGENT", UserAgent()),
			BuildDate:      getEnv("PURPLE_AI_BUILD_DATE", ""),
			BuildHash:      getEnv("PURPLE_AI_BUILD_HASH", ""),
			ConsoleVersion: getEnv("PURPLE_AI_CONSOLE_VERSION", "S"),
		},

		SDL: SDLConfig{
			PollInterval: getDurationEnv("SDL_POLL_INTERVAL", 100*time.Millisecond),
			PollTimeout:  getDurationEnv("SDL_POLL_TIMEOUT", 30*time.Second),
			MaxResults:   getIntEnv("SDL_MAX_RESULTS", 10000),
		},

		Features: Features{
			AlertsViewType:            getBoolEnv("ALERTS_VIEW_TYPE", true),
			AlertsDataSources:         getBoolEnv("ALERTS_DATA_SOURCES", true),
			MisconfigurationsViewType: getBoolEnv("MISCONFIGURATIONS_VIEW_TYPE", true),
		},

		Environment: getEnv("ENV", "development"),

		Mode:               getEnv("TRANSPORT_MODE", ModeStdio),
		StatelessHTTP:      getBoolEnv("STATELESS_HTTP", false),
		HTTPHost:           getEnv("HTTP_HOST", "localhost"),
		HTTPPort:           getIntEnv("HTTP_PORT", 8000),
		Profile:            getEnv("PROFILE", "all"),
		ProfilesConfigPath: getEnv("PROFILES_CONFIG_PATH", ""),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		DebugUnsafeLogging: getEnv("DEBUG_UNSAFE_LOGGING", "") == "1",
		MaxBodyBytes:       int64(getIntEnv("MAX_BODY_BYTES", 1<<20)),
		ShutdownTimeout:    getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),

		RedisURL: getEnv("REDIS_URL", ""),

		RateLimit: RateLimitConfig{
			Enabled:  getBoolEnv("RATE_LIMIT_ENABLED", true),
			Requests: getIntEnv("RATE_LIMIT_REQUESTS", 120),
			Window:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		},

		MetricsEnabled: getBoolEnv("METRICS_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ConsoleToken == "" {
		return fmt.Errorf("%sCONSOLE_TOKEN is required", EnvPrefix)
	}
	if err := validateBaseURL(c.ConsoleBaseURL); err != nil {
		return fmt.Errorf("invalid %sCONSOLE_BASE_URL: %w", EnvPrefix, err)
	}

	endpoints := []struct {
		env   string
		value string
	}{
		{"CONSOLE_GRAPHQL_ENDPOINT", c.ConsoleGraphQLEndpoint},
		{"ALERTS_GRAPHQL_ENDPOINT", c.AlertsGraphQLEndpoint},
		{"MISCONFIGURATIONS_GRAPHQL_ENDPOINT", c.MisconfigurationsGraphQLEndpoint},
		{"VULNERABILITIES_GRAPHQL_ENDPOINT", c.VulnerabilitiesGraphQLEndpoint},
		{"INVENTORY_RESTAPI_ENDPOINT", c.InventoryEndpoint},
	}
	for _, ep := range endpoints {
		if !strings.HasPrefix(ep.value, "/") {
			return fmt.Errorf("%s%s must start with a slash", EnvPrefix, ep.env)
		}
	}

	switch c.Mode {
	case ModeStdio, ModeHTTP, ModeStreamableHTTP, ModeSSE:
	default:
		return fmt.Errorf("invalid %sTRANSPORT_MODE: %s (must be one of stdio, http, streamable-http, sse)", EnvPrefix, c.Mode)
	}

	// Custom profile files may define any profile name
	if c.ProfilesConfigPath == "" && !contains(BuiltinProfiles, c.Profile) {
		return fmt.Errorf("invalid profile: %s", c.Profile)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid %sHTTP_PORT: %d", EnvPrefix, c.HTTPPort)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%sREQUEST_TIMEOUT must be greater than 0", EnvPrefix)
	}
	if c.SDL.PollTimeout <= 0 || c.SDL.PollInterval <= 0 {
		return fmt.Errorf("SDL poll interval and timeout must be greater than 0")
	}
	if c.SDL.MaxResults < 1 {
		return fmt.Errorf("%sSDL_MAX_RESULTS must be at least 1", EnvPrefix)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rate limit requires %sRATE_LIMIT_REQUESTS >= 1 and a positive %sRATE_LIMIT_WINDOW", EnvPrefix, EnvPrefix)
	}
	if c.RedisURL != "" {
		if _, err := url.Parse(c.RedisURL); err != nil {
			return fmt.Errorf("invalid %sREDIS_URL: %w", EnvPrefix, err)
		}
	}

	return nil
}

// IsHTTP reports whether the transport listens on a network port.
func (c *Config) IsHTTP() bool {
	switch c.Mode {
	case ModeHTTP, ModeStreamableHTTP, ModeSSE:
		return true
	default:
		return false
	}
}

// validateBaseURL accepts a bare https origin such as
// https://example.sentinelone.net.
func validateBaseURL(v string) error {
	if v == "" {
		return fmt.Errorf("value is required")
	}
	if !strings.HasPrefix(v, "https://") {
		return fmt.Errorf("console base URL must use HTTPS (https://)")
	}
	origin := strings.TrimPrefix(v, "https://")
	switch {
	case strings.Contains(origin, "/"):
		return fmt.Errorf("console base URL must not contain a path (remove path segments like /sdl)")
	case strings.Contains(origin, "?"):
		return fmt.Errorf("console base URL must not contain query parameters")
	case strings.Contains(origin, "#"):
		return fmt.Errorf("console base URL must not contain a fragment")
	case strings.Contains(origin, ";"):
		return fmt.Errorf("console base URL must not contain path parameters")
	}
	u, err := url.Parse(v)
	if err != nil || u.Hostname() == "" {
		return fmt.Errorf("console base URL must have a valid hostname")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// getEnv gets a prefixed environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getBoolEnv gets a boolean environment variable
func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}
	value = strings.ToLower(value)
	return value == "true" || value == "1" || value == "yes"
}

// getIntEnv gets an integer environment variable
func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	_, err := fmt.Sscanf(value, "%d", &intValue)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getDurationEnv gets a duration environment variable
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
