// Package purpleai asks SentinelOne Purple AI natural-language questions.
package purpleai

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/logging"
)

// ErrPurpleAI marks every error raised by this package's client.
var ErrPurpleAI = errors.New("purple ai")

// ResultType is the kind of answer Purple AI produced.
type ResultType string

const (
	ResultMessage    ResultType = "MESSAGE"
	ResultPowerQuery ResultType = "POWER_QUERY"
)

// UnknownErrorReply is returned to users in place of an UNKNOWN-typed
// Purple AI failure, which usually means the question could not be handled.
const UnknownErrorReply = "Purple AI encountered an error with this question. Please try rephrasing your question and submitting it again."

const conversationPrefix = "PURPLE-MCP"

// Settings are the console and user details sent with every question.
type Settings struct {
	ConsoleBaseURL string
	ConsoleVersion string
	AccountID      string
	TeamToken      string
	EmailAddress   string
	UserAgent      string
	BuildDate      string
	BuildHash      string
}

// Answer is a successful Purple AI reply. For POWER_QUERY results Text is
// the generated query.
type Answer struct {
	Type ResultType
	Text string
}

// ResponseError reports a reply that was delivered but could not be used.
type ResponseError struct {
	Msg string
	// ErrorType is the status.error.errorType reported by Purple AI, if any.
	ErrorType string
}

func (e *ResponseError) Error() string { return e.Msg }

func (e *ResponseError) Unwrap() error { return ErrPurpleAI }

// IsUnknown reports whether err is a Purple AI failure of type UNKNOWN.
func IsUnknown(err error) bool {
	var re *ResponseError
	return errors.As(err, &re) && re.ErrorType == "UNKNOWN"
}

// Client talks to the Purple AI endpoint of the console GraphQL API.
type Client struct {
	gql      *graphql.Client
	settings Settings
	logger   *slog.Logger

	now            func() time.Time
	conversationID func() string
}

// NewClient builds a client. Purple AI authenticates with the ApiToken
// scheme.
func NewClient(cfg graphql.ConfigProvider, settings Settings, opts ...graphql.Option) *Client {
	opts = append(opts, graphql.WithAuthScheme("ApiToken"), graphql.WithDomain(ErrPurpleAI))
	gql := graphql.NewClient("Purple AI", cfg, opts...)
	return &Client{
		gql:            gql,
		settings:       settings,
		logger:         gql.Logger(),
		now:            time.Now,
		conversationID: newConversationID,
	}
}

type launchResponse struct {
	Result *struct {
		Message    *string `json:"message"`
		PowerQuery *struct {
			Query *string `json:"query"`
		} `json:"powerQuery"`
	} `json:"result"`
	ResultType *string `json:"resultType"`
	Status     *struct {
		State *string         `json:"state"`
		Error json.RawMessage `json:"error"`
	} `json:"status"`
}

// Ask sends question and returns Purple AI's answer.
func (c *Client) Ask(ctx context.Context, question string) (*Answer, error) {
	if logging.UnsafeDebugEnabled() {
		c.logger.Info("Querying Purple AI", "raw_query", question)
	} else {
		c.logger.Info("Querying Purple AI", "query_length", len(question), "has_query", question != "")
	}

	query, err := c.renderQuery(c.conversationID(), c.now())
	if err != nil {
		return nil, err
	}
	data, err := c.gql.Execute(ctx, query, map[string]any{"input": question})
	if err != nil {
		c.logger.Error("Purple AI request failed", "error", err)
		return nil, err
	}

	raw := data["purpleLaunchQuery"]
	if !graphql.IsObject(raw) {
		return nil, c.fail("Missing purpleLaunchQuery in response", "")
	}
	var resp launchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, c.fail("Missing or invalid result in response", "")
	}

	if resp.Status == nil {
		return nil, c.fail("Missing status in response", "")
	}
	if e := resp.Status.Error; len(e) > 0 && !isEmptyJSON(e) {
		var detail struct {
			ErrorType string `json:"errorType"`
		}
		_ = json.Unmarshal(e, &detail)
		return nil, c.fail("Error from Purple AI: "+compact(e), detail.ErrorType)
	}

	if resp.ResultType == nil {
		return nil, c.fail("Invalid result type in response", "")
	}
	rt := ResultType(*resp.ResultType)
	if rt != ResultMessage && rt != ResultPowerQuery {
		return nil, c.fail(fmt.Sprintf("Unexpected result type from Purple AI: %s", rt), "")
	}
	if resp.Result == nil {
		return nil, c.fail("Missing or invalid result in response", "")
	}

	answer := &Answer{Type: rt}
	switch rt {
	case ResultMessage:
		if resp.Result.Message != nil {
			answer.Text = *resp.Result.Message
		}
	case ResultPowerQuery:
		if resp.Result.PowerQuery == nil {
			return nil, c.fail("Invalid powerQuery in response", "")
		}
		if resp.Result.PowerQuery.Query != nil {
			answer.Text = *resp.Result.PowerQuery.Query
		}
	}
	return answer, nil
}

func (c *Client) fail(msg, errorType string) error {
	c.logger.Error(msg)
	return &ResponseError{Msg: msg, ErrorType: errorType}
}

func isEmptyJSON(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "{}", "[]", `""`, "false", "0":
		return true
	}
	return false
}

func compact(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	b, _ := json.Marshal(v)
	return string(b)
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newConversationID returns "PURPLE-MCP" followed by ten random letters or
// digits drawn from crypto/rand.
func newConversationID() string {
	var b strings.Builder
	b.WriteString(conversationPrefix)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := 0; i < 10; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("crypto/rand failed: %v", err))
		}
		b.WriteByte(idAlphabet[n.Int64()])
	}
	return b.String()
}
