package sdl

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/logging"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultPollTimeout  = 30 * time.Second
	DefaultMaxResults   = 10000

	deleteTimeout = 5 * time.Second
)

// Query is a PowerQuery to run over a time range.
type Query struct {
	Text  string
	Start time.Time
	End   time.Time

	// Tenant widens the scope to every account the token can read. It must
	// not be set together with AccountIDs.
	Tenant     *bool
	AccountIDs []string
	Priority   Priority
}

// Handler drives a query through submit, polling and deletion. A Handler
// holds no per-query state, so one instance may run many queries.
type Handler struct {
	client       *Client
	pollInterval time.Duration
	pollTimeout  time.Duration
	maxResults   int
	logger       *slog.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

func WithPollInterval(d time.Duration) HandlerOption {
	return func(h *Handler) { h.pollInterval = d }
}

func WithPollTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) { h.pollTimeout = d }
}

// WithMaxResults caps the number of rows kept per query.
func WithMaxResults(n int) HandlerOption {
	return func(h *Handler) { h.maxResults = n }
}

func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

func NewHandler(client *Client, opts ...HandlerOption) *Handler {
	h := &Handler{
		client:       client,
		pollInterval: DefaultPollInterval,
		pollTimeout:  DefaultPollTimeout,
		maxResults:   DefaultMaxResults,
		logger:       slog.Default(),
		now:          time.Now,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run submits q and polls until every step has completed. The query is
// deleted on the backend once it completes or the poll budget runs out.
func (h *Handler) Run(ctx context.Context, q Query) (*Result, error) {
	if logging.UnsafeDebugEnabled() {
		h.logger.Debug("Submitting PowerQuery", "query", q.Text, "start", q.Start, "end", q.End)
	} else {
		h.logger.Debug("Submitting PowerQuery", "query_length", len(q.Text), "start", q.Start, "end", q.End)
	}

	priority := q.Priority
	if priority == "" {
		priority = PriorityLow
	}
	req := SubmitRequest{
		StartTime:     formatMillis(q.Start),
		EndTime:       formatMillis(q.End),
		QueryType:     QueryPowerQuery,
		QueryPriority: priority,
		Tenant:        q.Tenant,
		AccountIDs:    q.AccountIDs,
		PQ: &PQAttributes{
			Query:      q.Text,
			ResultType: ResultTable,
			Frequency:  FrequencyLow,
		},
	}

	started := h.now()
	resp, tag, err := h.client.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, launchError(resp)
	}
	if tag == "" {
		return nil, &QueryError{Msg: "Missing " + ForwardTagHeader + " header in submit response"}
	}

	result := &Result{Values: [][]json.RawMessage{}, Warnings: []string{}}
	r := run{handler: h, id: resp.ID, tag: tag, result: result}
	if err := r.absorb(resp); err != nil {
		r.release(ctx)
		return nil, err
	}

	for !r.completed() {
		if err := h.sleep(ctx, h.pollInterval); err != nil {
			r.release(ctx)
			return nil, err
		}
		resp, err := h.client.Ping(ctx, r.id, r.tag, r.lastStepSeen)
		if err != nil {
			r.release(ctx)
			return nil, err
		}
		if err := r.absorb(resp); err != nil {
			r.release(ctx)
			return nil, err
		}
		if !r.completed() && h.now().Sub(started) > h.pollTimeout {
			h.logger.Warn("PowerQuery timed out", "query_id", r.id, "steps_completed", r.stepsCompleted, "total_steps", r.totalSteps)
			r.release(ctx)
			return nil, &TimeoutError{After: h.pollTimeout}
		}
	}
	r.release(ctx)

	h.logger.Info("PowerQuery completed",
		"query_id", r.id,
		"rows", len(result.Values),
		"match_count", result.MatchCount,
		"partial", result.Partial(),
		"elapsed", h.now().Sub(started))
	return result, nil
}

// run is the progress of one query.
type run struct {
	handler        *Handler
	id             string
	tag            string
	result         *Result
	stepsCompleted int
	totalSteps     int
	lastStepSeen   int
	truncated      bool
}

func (r *run) completed() bool {
	return r.lastStepSeen == r.totalSteps
}

func (r *run) absorb(resp *QueryResult) error {
	if resp.Error != nil {
		return &QueryError{Msg: "PowerQuery failed: " + resp.Error.Message, Details: string(resp.Error.Details)}
	}
	r.totalSteps = resp.TotalSteps
	r.stepsCompleted = resp.StepsCompleted
	r.lastStepSeen = resp.StepsCompleted
	if resp.Data == nil {
		return nil
	}
	if r.result.merge(resp.Data, r.handler.maxResults) && !r.truncated {
		r.truncated = true
		r.handler.logger.Warn("Query result limit reached, truncating results", "query_id", r.id, "limit", r.handler.maxResults)
	}
	return nil
}

// release deletes the query. It runs even when ctx is already canceled so
// the backend does not keep the query alive until its TTL.
func (r *run) release(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deleteTimeout)
	defer cancel()
	ok, err := r.handler.client.Delete(ctx, r.id, r.tag)
	if err != nil {
		r.handler.logger.Warn("Failed to delete SDL query", "query_id", r.id, "error", err)
		return
	}
	if !ok {
		r.handler.logger.Warn("SDL query was not deleted", "query_id", r.id)
	}
}

func launchError(resp *QueryResult) error {
	if resp.Error != nil {
		return &QueryError{Msg: "PowerQuery failed: " + resp.Error.Message, Details: string(resp.Error.Details)}
	}
	return &QueryError{Msg: "SDL submit response carried no query id"}
}

func formatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
