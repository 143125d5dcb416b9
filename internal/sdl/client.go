// Package sdl runs PowerQuery searches against the Singularity Data Lake
// query API.
//
// A query is launched with Submit, which answers with a routing tag in the
// X-Dataset-Query-Forward-Tag header. Every Ping and Delete of that query
// must echo the tag so the backend routes it to the instance holding the
// query's state.
package sdl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/config"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"
)

const (
	tracerName = "github.com/robemmerson/s1-purple-mcp-sub002/internal/sdl"
	apiName    = "SDL API"

	// ForwardTagHeader routes follow-up requests to the query's backend.
	ForwardTagHeader = "X-Dataset-Query-Forward-Tag"

	queriesPath = "/v2/api/queries"

	// DefaultTimeout bounds every request.
	DefaultTimeout = 30 * time.Second
)

// ConfigProvider gives live access to the endpoint and token.
type ConfigProvider interface {
	// SDLURL is the console base URL joined with /sdl.
	SDLURL() string
	AuthToken() string
}

// Client is a thin HTTP client for the query API. It keeps no per-query
// state and is safe for concurrent use.
type Client struct {
	config     ConfigProvider
	httpClient *http.Client
	retry      graphql.RetryPolicy
	logger     *slog.Logger
	tracer     trace.Tracer
	observer   graphql.Observer
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryPolicy replaces the default policy. Its Retryable is always
// replaced by the client's own classification.
func WithRetryPolicy(p graphql.RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// WithObserver registers a per-request outcome callback, used for metrics.
func WithObserver(o graphql.Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient builds a client over cfg.
func NewClient(cfg ConfigProvider, opts ...Option) *Client {
	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		retry:      graphql.DefaultRetryPolicy(),
		logger:     slog.Default(),
		tracer:     otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry.Retryable = retryable
	return c
}

// Submit launches a query and returns its first result together with the
// forward tag.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*QueryResult, string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, "", &QueryError{Msg: "Failed to encode query", Err: err}
	}
	resp, header, err := c.do(ctx, "submit", http.MethodPost, c.config.SDLURL()+queriesPath, nil, body)
	if err != nil {
		return nil, "", err
	}
	result, err := c.decode(resp, "submit")
	if err != nil {
		return nil, "", err
	}
	return result, header.Get(ForwardTagHeader), nil
}

// Ping fetches the progress and any new rows of a running query.
func (c *Client) Ping(ctx context.Context, queryID, forwardTag string, lastStepSeen int) (*QueryResult, error) {
	q := url.Values{}
	q.Set("lastStepSeen", strconv.Itoa(lastStepSeen))
	target := c.config.SDLURL() + queriesPath + "/" + url.PathEscape(queryID) + "?" + q.Encode()

	resp, _, err := c.do(ctx, "ping", http.MethodGet, target, forwardHeader(forwardTag), nil)
	if err != nil {
		return nil, err
	}
	return c.decode(resp, "ping")
}

// Delete releases a query on the backend. It reports false when the
// backend answered with anything other than 204.
func (c *Client) Delete(ctx context.Context, queryID, forwardTag string) (bool, error) {
	target := c.config.SDLURL() + queriesPath + "/" + url.PathEscape(queryID)
	_, _, err := c.do(ctx, "delete", http.MethodDelete, target, forwardHeader(forwardTag), nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.StatusCode < 300 {
			c.logger.Error("Failed to delete SDL query", "query_id", queryID, "status_code", se.StatusCode)
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func forwardHeader(tag string) http.Header {
	h := http.Header{}
	h.Set(ForwardTagHeader, tag)
	return h
}

func (c *Client) decode(body []byte, op string) (*QueryResult, error) {
	var result QueryResult
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("Failed to validate SDL query response", "operation", op, "error", err)
		return nil, &QueryError{Msg: fmt.Sprintf("Failed to validate SDL %s query response", op), Err: err}
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, op, method, target string, header http.Header, body []byte) ([]byte, http.Header, error) {
	ctx, span := c.tracer.Start(ctx, "sdl."+op, trace.WithAttributes(
		attribute.String("http.method", method),
	))
	defer span.End()

	start := time.Now()
	var respBody []byte
	var respHeader http.Header
	err := c.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		var aerr error
		respBody, respHeader, aerr = c.attempt(ctx, method, target, header, body)
		if aerr != nil && retryable(aerr) {
			c.logger.Warn("Transient SDL failure, will retry", "operation", op, "attempt", attempt, "error", aerr)
		}
		return aerr
	})
	err = c.finalError(ctx, err)

	outcome := "success"
	if err != nil {
		outcome = errorOutcome(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	if c.observer != nil {
		c.observer(apiName, outcome, time.Since(start))
	}
	return respBody, respHeader, err
}

func (c *Client) attempt(ctx context.Context, method, target string, header http.Header, body []byte) ([]byte, http.Header, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, nil, &QueryError{Msg: "Invalid request", Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Authorization", "Bearer "+c.config.AuthToken())
	req.Header.Set("User-Agent", config.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, graphql.ClassifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, graphql.ClassifyTransport(ctx, err)
	}
	if resp.StatusCode >= 400 || (method == http.MethodDelete && resp.StatusCode != http.StatusNoContent) {
		return nil, nil, &statusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, resp.Header, nil
}

// finalError maps the last attempt's error onto the package's error types.
func (c *Client) finalError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var se *statusError
	if errors.As(err, &se) {
		if se.StatusCode < 300 {
			return se
		}
		return &QueryError{Msg: "SDL query request failed", StatusCode: se.StatusCode, Details: se.Body, Err: se}
	}
	var te *graphql.TransportError
	if errors.As(err, &te) {
		return &QueryError{Msg: "SDL query request failed", Details: te.Error(), Err: te}
	}
	return err
}

// statusError is an HTTP response the caller did not expect.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// retryable covers connectivity failures, rate limiting and server errors.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	return graphql.IsTransient(err)
}

func errorOutcome(err error) string {
	var te *graphql.TransportError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &te):
		return "transport_error"
	default:
		return "api_error"
	}
}
