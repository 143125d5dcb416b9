package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/config"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/logging"
)

const tracerName = "github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"

// ConfigProvider gives live access to endpoint settings. Every request reads
// it again, so token rotation and timeout changes apply to the next attempt.
type ConfigProvider interface {
	GraphQLURL() string
	AuthToken() string
	Timeout() time.Duration
}

// Observer is notified once per Execute call with its outcome.
type Observer func(api, outcome string, elapsed time.Duration)

// Data is the content of a response's "data" object, keyed by field.
type Data map[string]json.RawMessage

// Client executes GraphQL operations against one configured endpoint.
type Client struct {
	api        string
	config     ConfigProvider
	domain     error
	authScheme string
	httpClient *http.Client
	retry      RetryPolicy
	logger     *slog.Logger
	tracer     trace.Tracer
	observer   Observer
}

// Option configures a Client.
type Option func(*Client)

// WithDomain tags every error raised by the client with a domain sentinel.
func WithDomain(domain error) Option {
	return func(c *Client) { c.domain = domain }
}

// WithAuthScheme overrides the Authorization scheme (default "Bearer").
func WithAuthScheme(scheme string) Option {
	return func(c *Client) { c.authScheme = scheme }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTracerProvider sets the provider used for request spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// WithObserver registers a per-call outcome callback, used for metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a client for the named API, e.g. "alerts API".
func NewClient(api string, cfg ConfigProvider, opts ...Option) *Client {
	c := &Client{
		api:        api,
		config:     cfg,
		authScheme: "Bearer",
		httpClient: &http.Client{},
		retry:      DefaultRetryPolicy(),
		logger:     slog.Default(),
		tracer:     otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// API returns the API name used in error messages.
func (c *Client) API() string {
	return c.api
}

// Domain returns the domain sentinel attached to raised errors.
func (c *Client) Domain() error {
	return c.domain
}

// Logger returns the client's logger so domain clients log alongside it.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// Execute sends query with variables and returns the response's data object.
//
// Timeouts and connectivity failures are retried by the client's retry
// policy. Any other failure is returned at once as a *ClientError or
// *GraphQLError.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (Data, error) {
	if variables == nil {
		variables = map[string]any{}
	}

	ctx, span := c.tracer.Start(ctx, "graphql.execute", trace.WithAttributes(
		attribute.String("graphql.api", c.api),
		attribute.Int("graphql.variable_count", len(variables)),
	))
	defer span.End()

	start := time.Now()
	data, err := c.execute(ctx, query, variables)
	outcome := "success"
	if err != nil {
		outcome = errorOutcome(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.String("graphql.outcome", outcome))
	if c.observer != nil {
		c.observer(c.api, outcome, time.Since(start))
	}
	return data, err
}

func (c *Client) execute(ctx context.Context, query string, variables map[string]any) (Data, error) {
	if c.config.GraphQLURL() == "" {
		return nil, &ConfigError{Msg: fmt.Sprintf("No GraphQL URL configured for %s", c.api)}
	}
	if c.config.AuthToken() == "" {
		return nil, &ConfigError{Msg: fmt.Sprintf("No auth token configured for %s", c.api)}
	}

	if logging.UnsafeDebugEnabled() {
		c.logger.Debug("Executing GraphQL query", "api", c.api, "variables", variables)
	} else {
		keys := make([]string, 0, len(variables))
		for k := range variables {
			keys = append(keys, k)
		}
		c.logger.Debug("Executing GraphQL query",
			"api", c.api,
			"variable_count", len(variables),
			"variable_keys", keys)
	}

	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return nil, &ClientError{Msg: fmt.Sprintf("Failed to encode request for %s", c.api), Details: err.Error(), Domain: c.domain, Err: err}
	}

	var status int
	var respBody []byte
	err = c.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		var aerr error
		status, respBody, aerr = c.attempt(ctx, body)
		if aerr != nil && IsTransient(aerr) {
			c.logger.Warn("GraphQL request failed", "api", c.api, "attempt", attempt, "error", aerr)
		}
		return aerr
	})
	if err != nil {
		return nil, c.transportError(ctx, err)
	}

	c.logger.Debug("Received GraphQL response", "api", c.api, "status_code", status)

	if status != http.StatusOK {
		return nil, &ClientError{
			Msg:        fmt.Sprintf("HTTP error from %s", c.api),
			StatusCode: status,
			Details:    string(respBody),
			Domain:     c.domain,
		}
	}

	return c.decode(respBody)
}

// attempt performs one POST bounded by the live timeout.
func (c *Client) attempt(ctx context.Context, body []byte) (int, []byte, error) {
	timeout := c.config.Timeout()
	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.config.GraphQLURL(), bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", c.authScheme+" "+c.config.AuthToken())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", config.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, ClassifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, ClassifyTransport(ctx, err)
	}
	return resp.StatusCode, respBody, nil
}

// ClassifyTransport turns an HTTP client error into a *TransportError unless
// the caller's own context ended, which must not be retried.
func ClassifyTransport(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &TransportError{Timeout: true, Err: err}
	}
	return &TransportError{Err: err}
}

func (c *Client) transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var te *TransportError
	if errors.As(err, &te) {
		msg := fmt.Sprintf("Network error while communicating with %s", c.api)
		if te.Timeout {
			msg = fmt.Sprintf("Request timed out while communicating with %s", c.api)
		}
		return &ClientError{Msg: msg, Details: te.Err.Error(), Domain: c.domain, Err: te}
	}
	return &ClientError{
		Msg:     fmt.Sprintf("Network error while communicating with %s", c.api),
		Details: err.Error(),
		Domain:  c.domain,
		Err:     err,
	}
}

func (c *Client) decode(body []byte) (Data, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ClientError{Msg: fmt.Sprintf("Failed to parse JSON response from %s", c.api), Domain: c.domain, Err: err}
	}

	if rawErrors, ok := env["errors"]; ok {
		return nil, &GraphQLError{
			Msg:    fmt.Sprintf("GraphQL errors in %s response", c.api),
			Errors: objectEntries(rawErrors),
			Domain: c.domain,
		}
	}

	rawData, ok := env["data"]
	if !ok {
		return nil, &GraphQLError{Msg: fmt.Sprintf("No data field in %s response", c.api), Domain: c.domain}
	}
	rawData = bytes.TrimSpace(rawData)
	var data Data
	if len(rawData) == 0 || rawData[0] != '{' || json.Unmarshal(rawData, &data) != nil {
		return nil, &GraphQLError{Msg: fmt.Sprintf("Data field is not a dictionary in %s response", c.api), Domain: c.domain}
	}
	return data, nil
}

// objectEntries keeps only the object entries of a GraphQL errors array.
func objectEntries(raw json.RawMessage) []map[string]any {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(item, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func errorOutcome(err error) string {
	var ce *ClientError
	var ge *GraphQLError
	var cfgErr *ConfigError
	switch {
	case errors.As(err, &cfgErr):
		return "config_error"
	case errors.As(err, &ce):
		if IsTransient(ce) {
			return "transport_error"
		}
		return "http_error"
	case errors.As(err, &ge):
		return "graphql_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
