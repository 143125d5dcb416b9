// Package graphqltest provides a scripted GraphQL endpoint for client tests.
package graphqltest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"
)

// Request is one recorded GraphQL call.
type Request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
	Header    http.Header    `json:"-"`
}

// Reply is the scripted answer to a request.
type Reply struct {
	Status int
	Body   string
}

// Data answers 200 with {"data": data}.
func Data(data string) Reply {
	return Reply{Status: http.StatusOK, Body: `{"data":` + data + `}`}
}

// Errors answers 200 with a GraphQL errors array.
func Errors(messages ...string) Reply {
	entries := make([]map[string]string, len(messages))
	for i, m := range messages {
		entries[i] = map[string]string{"message": m}
	}
	b, _ := json.Marshal(map[string]any{"errors": entries})
	return Reply{Status: http.StatusOK, Body: string(b)}
}

// Server is an httptest server that answers with a handler and records
// every request.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
	token    atomic.Value
}

// NewServer starts a server closed at test cleanup.
func NewServer(t *testing.T, handler func(Request) Reply) *Server {
	t.Helper()
	s := &Server{}
	s.token.Store("test-token")
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req Request
		_ = json.Unmarshal(body, &req)
		req.Header = r.Header.Clone()

		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		reply := handler(req)
		if reply.Status == 0 {
			reply.Status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.Status)
		_, _ = w.Write([]byte(reply.Body))
	}))
	t.Cleanup(s.Close)
	return s
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Last returns the most recent request.
func (s *Server) Last() Request {
	reqs := s.Requests()
	if len(reqs) == 0 {
		return Request{}
	}
	return reqs[len(reqs)-1]
}

// SetToken changes the token served by the server's config.
func (s *Server) SetToken(token string) {
	s.token.Store(token)
}

// GraphQLURL implements graphql.ConfigProvider.
func (s *Server) GraphQLURL() string { return s.URL }

// AuthToken implements graphql.ConfigProvider.
func (s *Server) AuthToken() string { return s.token.Load().(string) }

// Timeout implements graphql.ConfigProvider.
func (s *Server) Timeout() time.Duration { return 5 * time.Second }

// Options returns transport options that keep retries instant.
func Options() []graphql.Option {
	p := graphql.DefaultRetryPolicy()
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return []graphql.Option{graphql.WithRetryPolicy(p)}
}
