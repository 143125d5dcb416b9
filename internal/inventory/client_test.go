package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

type stub struct {
	*httptest.Server
	mu   sync.Mutex
	reqs []recorded
}

func (s *stub) InventoryURL() string { return s.URL + "/web/api/v2.1/xdr/assets" }
func (s *stub) AuthToken() string    { return "inv-token" }

func (s *stub) requests() []recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recorded(nil), s.reqs...)
}

func newStub(t *testing.T, handler http.HandlerFunc) (*Client, *stub) {
	t.Helper()
	s := &stub{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Auth: r.Header.Get("Authorization")}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &rec.Body)
		}
		s.mu.Lock()
		s.reqs = append(s.reqs, rec)
		s.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(s.Close)

	policy := graphql.DefaultRetryPolicy()
	policy.Sleep = func(context.Context, time.Duration) error { return nil }
	return NewClient(s, WithRetryPolicy(policy)), s
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

const page = `{"data":[{"id":"i1","name":"web-01","resourceType":"Windows Server","surfaces":["ENDPOINT"],"cpu":"x86"}],"pagination":{"totalCount":12,"limit":1,"skip":0}}`

func TestList(t *testing.T) {
	tests := []struct {
		name     string
		surface  Surface
		wantPath string
	}{
		{name: "base endpoint", wantPath: "/web/api/v2.1/xdr/assets"},
		{name: "surface endpoint", surface: SurfaceNetworkDiscovery, wantPath: "/web/api/v2.1/xdr/assets/surface/network_discovery"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, s := newStub(t, reply(http.StatusOK, page))

			resp, err := c.List(context.Background(), 1, 5, tt.surface)
			require.NoError(t, err)
			require.Len(t, resp.Data, 1)
			assert.Equal(t, "web-01", resp.Data[0].Name)
			assert.Equal(t, 12, *resp.Pagination.TotalCount)

			req := s.requests()[0]
			assert.Equal(t, http.MethodGet, req.Method)
			assert.Equal(t, tt.wantPath, req.Path)
			assert.Equal(t, "limit=1&skip=5", req.Query)
			assert.Equal(t, "Bearer inv-token", req.Auth)
		})
	}
}

func TestItemKeepsFullRecord(t *testing.T) {
	c, _ := newStub(t, reply(http.StatusOK, page))

	resp, err := c.List(context.Background(), 1, 0, "")
	require.NoError(t, err)

	out, err := json.Marshal(resp.Data[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"i1","name":"web-01","resourceType":"Windows Server","surfaces":["ENDPOINT"],"cpu":"x86"}`, string(out))
}

func TestSearchPayload(t *testing.T) {
	c, s := newStub(t, reply(http.StatusOK, page))

	_, err := c.Search(context.Background(), map[string]any{"name__contains": []string{"prod"}}, 25, 50)
	require.NoError(t, err)

	req := s.requests()[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/web/api/v2.1/xdr/assets", req.Path)
	assert.Equal(t, map[string]any{"filter": map[string]any{
		"name__contains": []any{"prod"},
		"limit":          float64(25),
		"skip":           float64(50),
	}}, req.Body)
}

func TestGetItem(t *testing.T) {
	c, s := newStub(t, reply(http.StatusOK, page))

	item, err := c.GetItem(context.Background(), "i1")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "i1", item.ID)
	assert.Equal(t, map[string]any{"filter": map[string]any{
		"id__in": []any{"i1"},
		"limit":  float64(1),
		"skip":   float64(0),
	}}, s.requests()[0].Body)
}

func TestGetItemAbsent(t *testing.T) {
	for name, h := range map[string]http.HandlerFunc{
		"empty page": reply(http.StatusOK, `{"data":[]}`),
		"not found":  reply(http.StatusNotFound, `{}`),
	} {
		t.Run(name, func(t *testing.T) {
			c, _ := newStub(t, h)
			item, err := c.GetItem(context.Background(), "missing")
			require.NoError(t, err)
			assert.Nil(t, item)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		check   func(t *testing.T, err error)
		wantMsg string
	}{
		{
			name: "unauthorized", status: http.StatusUnauthorized, body: `{}`,
			check:   func(t *testing.T, err error) { var ae *AuthError; assert.True(t, errors.As(err, &ae)) },
			wantMsg: "Authentication failed with status 401",
		},
		{
			name: "forbidden", status: http.StatusForbidden, body: `{}`,
			check:   func(t *testing.T, err error) { var ae *AuthError; assert.True(t, errors.As(err, &ae)) },
			wantMsg: "Authentication failed with status 403",
		},
		{
			name: "not found", status: http.StatusNotFound, body: `{}`,
			check:   func(t *testing.T, err error) { var nf *NotFoundError; assert.True(t, errors.As(err, &nf)) },
			wantMsg: "Inventory resource not found",
		},
		{
			name: "detail message", status: http.StatusBadRequest, body: `{"detail":"bad skip"}`,
			check:   func(t *testing.T, err error) { var ae *APIError; assert.True(t, errors.As(err, &ae)) },
			wantMsg: "API error 400: bad skip",
		},
		{
			name: "plain text body", status: http.StatusInternalServerError, body: `boom`,
			check:   func(t *testing.T, err error) { var ae *APIError; assert.True(t, errors.As(err, &ae)) },
			wantMsg: "API error 500: boom",
		},
		{
			name: "json without message", status: http.StatusConflict, body: `{"code":7}`,
			check:   func(t *testing.T, err error) { var ae *APIError; assert.True(t, errors.As(err, &ae)) },
			wantMsg: "API error 409: Unknown error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, s := newStub(t, reply(tt.status, tt.body))
			_, err := c.List(context.Background(), 10, 0, "")
			require.Error(t, err)
			tt.check(t, err)
			assert.True(t, errors.Is(err, ErrInventory))
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Len(t, s.requests(), 1, "non-transient statuses are not retried")
		})
	}
}

func TestTransientStatusRetried(t *testing.T) {
	calls := 0
	c, s := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			reply(http.StatusServiceUnavailable, `{"message":"warming up"}`)(w, r)
			return
		}
		reply(http.StatusOK, page)(w, r)
	})

	resp, err := c.List(context.Background(), 1, 0, "")
	require.NoError(t, err)
	assert.Len(t, resp.Data, 1)
	assert.Len(t, s.requests(), 3)
}

func TestTransientStatusExhausted(t *testing.T) {
	c, s := newStub(t, reply(http.StatusBadGateway, `{"error":"upstream down"}`))

	_, err := c.Search(context.Background(), map[string]any{}, 1, 0)
	require.Error(t, err)
	assert.Equal(t, "Server returned transient error after multiple retries: upstream down", err.Error())
	assert.Len(t, s.requests(), 3)
}

func TestNetworkError(t *testing.T) {
	c, s := newStub(t, reply(http.StatusOK, page))
	s.Close()

	_, err := c.List(context.Background(), 1, 0, "")
	var ne *NetworkError
	require.True(t, errors.As(err, &ne))
	assert.False(t, ne.Timeout)
	assert.Contains(t, err.Error(), "Network error: ")
}

func TestParseSurface(t *testing.T) {
	sf, err := ParseSurface("CLOUD")
	require.NoError(t, err)
	assert.Equal(t, SurfaceCloud, sf)

	_, err = ParseSurface("cloud")
	assert.EqualError(t, err, "surface must be one of: ENDPOINT, CLOUD, IDENTITY, NETWORK_DISCOVERY")
}
