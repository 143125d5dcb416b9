// Package inventory is the REST client for the Unified Asset Inventory API.
package inventory

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
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/config"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/logging"
)

const (
	tracerName = "github.com/robemmerson/s1-purple-mcp-sub002/internal/inventory"
	apiName    = "inventory API"

	// DefaultTimeout bounds every request.
	DefaultTimeout = 30 * time.Second
)

// ConfigProvider gives live access to the endpoint and token.
type ConfigProvider interface {
	// InventoryURL is the console base URL joined with the API endpoint
	// path, without a trailing slash.
	InventoryURL() string
	AuthToken() string
}

// Client reads the inventory. It is safe for concurrent use.
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
// replaced by the inventory's own classification.
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

// GetItem looks an item up by exact id. It returns nil, nil when nothing
// matches.
func (c *Client) GetItem(ctx context.Context, id string) (*Item, error) {
	c.logger.Debug("Getting inventory item by ID", "item_id", id)

	resp, err := c.Search(ctx, map[string]any{"id__in": []string{id}}, 1, 0)
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Failed to get inventory item", "item_id", id, "error", err)
		return nil, err
	}
	if len(resp.Data) == 0 {
		c.logger.Debug("Inventory item not found", "item_id", id)
		return nil, nil
	}
	return &resp.Data[0], nil
}

// List returns one page of items, optionally restricted to one surface.
func (c *Client) List(ctx context.Context, limit, skip int, surface Surface) (*Response, error) {
	endpoint := c.config.InventoryURL()
	if surface != "" {
		endpoint += "/surface/" + strings.ToLower(string(surface))
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("skip", strconv.Itoa(skip))

	c.logger.Debug("Listing inventory items", "limit", limit, "skip", skip, "surface", string(surface), "endpoint", endpoint)

	return c.do(ctx, "list", http.MethodGet, endpoint+"?"+q.Encode(), nil)
}

// Search returns one page of items matching a REST filter object such as
// {"resourceType": ["Windows Server"]}. Surface endpoints accept GET only,
// so search always targets the base endpoint.
func (c *Client) Search(ctx context.Context, filters map[string]any, limit, skip int) (*Response, error) {
	filter := make(map[string]any, len(filters)+2)
	for k, v := range filters {
		filter[k] = v
	}
	filter["limit"] = limit
	filter["skip"] = skip

	if logging.UnsafeDebugEnabled() {
		c.logger.Debug("Searching inventory items", "filters", filters, "limit", limit, "skip", skip)
	} else {
		keys := make([]string, 0, len(filters))
		for k := range filters {
			keys = append(keys, k)
		}
		c.logger.Debug("Searching inventory items", "filter_count", len(filters), "filter_keys", keys, "limit", limit, "skip", skip)
	}

	body, err := json.Marshal(map[string]any{"filter": filter})
	if err != nil {
		return nil, &APIError{Msg: "Failed to encode request: " + err.Error(), Err: err}
	}
	return c.do(ctx, "search", http.MethodPost, c.config.InventoryURL(), body)
}

func (c *Client) do(ctx context.Context, op, method, target string, body []byte) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "inventory."+op, trace.WithAttributes(
		attribute.String("http.method", method),
	))
	defer span.End()

	start := time.Now()
	resp, err := c.request(ctx, method, target, body)
	outcome := "success"
	if err != nil {
		outcome = errorOutcome(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	if c.observer != nil {
		c.observer(apiName, outcome, time.Since(start))
	}
	return resp, err
}

func (c *Client) request(ctx context.Context, method, target string, body []byte) (*Response, error) {
	var status int
	var respBody []byte
	err := c.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		var aerr error
		status, respBody, aerr = c.attempt(ctx, method, target, body)
		if aerr != nil && retryable(aerr) {
			c.logger.Warn("Transient inventory failure, will retry", "attempt", attempt, "error", aerr)
		}
		return aerr
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var te *graphql.TransportError
		if errors.As(err, &te) {
			return nil, &NetworkError{Timeout: te.Timeout, Err: te.Err}
		}
		var tr *transientError
		if errors.As(err, &tr) {
			return nil, &APIError{
				Msg: "Server returned transient error after multiple retries: " + tr.Msg,
				Err: tr,
			}
		}
		return nil, err
	}
	return c.handle(status, respBody)
}

func (c *Client) attempt(ctx context.Context, method, target string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, &APIError{Msg: "Invalid request: " + err.Error(), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.config.AuthToken())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", config.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, graphql.ClassifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, graphql.ClassifyTransport(ctx, err)
	}

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		msg := errorMessage(respBody, []string{"message", "error", "detail"})
		if msg == "" {
			msg = fmt.Sprintf("Transient server error %d", resp.StatusCode)
		}
		return 0, nil, &transientError{StatusCode: resp.StatusCode, Msg: msg}
	}
	return resp.StatusCode, respBody, nil
}

// handle maps a final status and body onto a response or typed error.
func (c *Client) handle(status int, body []byte) (*Response, error) {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.logger.Error("Authentication failed", "status_code", status)
		return nil, &AuthError{StatusCode: status}
	case status == http.StatusNotFound:
		c.logger.Warn("Resource not found")
		return nil, &NotFoundError{}
	case status >= 400:
		msg := errorMessage(body, []string{"message", "error", "errors", "detail", "description"})
		if msg == "" {
			if json.Valid(body) {
				msg = "Unknown error"
			} else {
				msg = string(body)
			}
		}
		c.logger.Error("API error", "status_code", status, "error", msg)
		return nil, &APIError{StatusCode: status, Msg: msg}
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &APIError{Msg: "Failed to parse response: " + err.Error(), Err: err}
	}
	if resp.Data == nil {
		resp.Data = []Item{}
	}
	c.logger.Debug("Parsed inventory response", "item_count", len(resp.Data))
	return &resp, nil
}

// errorMessage returns the first non-empty value among keys of a JSON
// object body. Non-string values are rendered as compact JSON.
func errorMessage(body []byte, keys []string) string {
	var obj map[string]json.RawMessage
	if json.Unmarshal(body, &obj) != nil {
		return ""
	}
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil {
			if s != "" {
				return s
			}
			continue
		}
		switch strings.TrimSpace(string(raw)) {
		case "null", "[]", "{}", "false", "0":
			continue
		}
		return string(raw)
	}
	return ""
}

func retryable(err error) bool {
	var tr *transientError
	return graphql.IsTransient(err) || errors.As(err, &tr)
}

func errorOutcome(err error) string {
	var ae *AuthError
	var ne *NetworkError
	var nf *NotFoundError
	switch {
	case errors.As(err, &ae):
		return "auth_error"
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &ne):
		return "transport_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "api_error"
	}
}
