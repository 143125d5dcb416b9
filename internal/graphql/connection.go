package graphql

import (
	"bytes"
	"encoding/json"
)

// PageInfo is the cursor pagination block of a connection.
type PageInfo struct {
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
	StartCursor     *string `json:"startCursor"`
	EndCursor       *string `json:"endCursor"`
}

// Edge wraps one node of a connection.
type Edge[T any] struct {
	Node   T      `json:"node"`
	Cursor string `json:"cursor,omitempty"`
}

// Connection is the standard paginated result shape.
type Connection[T any] struct {
	Edges      []Edge[T] `json:"edges"`
	PageInfo   PageInfo  `json:"pageInfo"`
	TotalCount *int      `json:"totalCount"`
}

// Nodes returns the nodes of every edge in order.
func (c *Connection[T]) Nodes() []T {
	nodes := make([]T, len(c.Edges))
	for i, e := range c.Edges {
		nodes[i] = e.Node
	}
	return nodes
}

// EmptyConnection is returned when a query matched nothing.
func EmptyConnection[T any]() *Connection[T] {
	return &Connection[T]{Edges: []Edge[T]{}}
}

// DecodeConnection decodes raw into a connection. A missing, null or
// non-object value yields an empty connection rather than an error.
func DecodeConnection[T any](raw json.RawMessage) (*Connection[T], error) {
	if !IsObject(raw) {
		return EmptyConnection[T](), nil
	}
	var conn Connection[T]
	if err := json.Unmarshal(raw, &conn); err != nil {
		return nil, err
	}
	if conn.Edges == nil {
		conn.Edges = []Edge[T]{}
	}
	return &conn, nil
}

// IsObject reports whether raw holds a JSON object.
func IsObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
