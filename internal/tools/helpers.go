package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Page size bounds shared by the GraphQL tools.
const (
	DefaultFirst = 10
	MaxFirst     = 100
)

// Inventory page bounds.
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// ExtractInt reads an integer argument. A missing or null argument yields
// def. JSON numbers arrive as float64 and must be whole.
func ExtractInt(args map[string]interface{}, name string, def int) (int, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be an integer", name)
	}
}

// ExtractFirst reads the "first" page size, 1 to 100, default 10.
func ExtractFirst(args map[string]interface{}) (int, error) {
	first, err := ExtractInt(args, "first", DefaultFirst)
	if err != nil {
		return 0, err
	}
	if first < 1 || first > MaxFirst {
		return 0, fmt.Errorf("first must be between 1 and %d", MaxFirst)
	}
	return first, nil
}

// ExtractLimitSkip reads the inventory "limit" (1 to 1000, default 50) and
// "skip" (non-negative, default 0).
func ExtractLimitSkip(args map[string]interface{}) (int, int, error) {
	limit, err := ExtractInt(args, "limit", DefaultLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit < 1 || limit > MaxLimit {
		return 0, 0, fmt.Errorf("limit must be between 1 and %d", MaxLimit)
	}
	skip, err := ExtractInt(args, "skip", 0)
	if err != nil {
		return 0, 0, err
	}
	if skip < 0 {
		return 0, 0, errors.New("skip must be non-negative")
	}
	return limit, skip, nil
}

// ExtractCursor reads the optional "after" cursor. When given it must be a
// non-blank string.
func ExtractCursor(args map[string]interface{}) (string, error) {
	raw, ok := args["after"]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", errors.New("Cursor must be a string")
	}
	if strings.TrimSpace(s) == "" {
		return "", errors.New("Cursor cannot be empty")
	}
	return s, nil
}

// ExtractID reads a required identifier and trims it.
func ExtractID(args map[string]interface{}, name string) (string, error) {
	s, _ := args[name].(string)
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%s cannot be empty", name)
	}
	return s, nil
}

// ExtractString reads an optional string argument.
func ExtractString(args map[string]interface{}, name, def string) string {
	if s, ok := args[name].(string); ok && s != "" {
		return s
	}
	return def
}

// ExtractRawJSON returns a JSON-valued argument as text. Clients may send
// the JSON encoded in a string or as a native value.
func ExtractRawJSON(args map[string]interface{}, name string) (string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return "", nil
	}
	if s, ok := raw.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("Invalid JSON in %s parameter: %v", name, err)
	}
	return string(b), nil
}

// ExtractFields reads the optional "fields" selection. Absent means the
// default selection and yields nil.
func ExtractFields(args map[string]interface{}) ([]string, error) {
	raw, err := ExtractRawJSON(args, "fields")
	if err != nil || raw == "" {
		return nil, err
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("Invalid JSON in fields parameter: %v", err)
	}
	list, ok := parsed.([]interface{})
	if !ok {
		return nil, errors.New("Fields must be an array of field names")
	}

	fields := make([]string, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("All field names must be strings, but element at index %d is %s: %v", i, jsonKind(item), item)
		}
		fields[i] = s
	}
	return fields, nil
}

// ExtractObject reads an optional JSON object argument such as the
// inventory filters.
func ExtractObject(args map[string]interface{}, name string) (map[string]any, error) {
	raw, err := ExtractRawJSON(args, name)
	if err != nil || strings.TrimSpace(raw) == "" {
		return map[string]any{}, err
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("Invalid JSON in %s parameter: %v", name, err)
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, errors.New("Filters must be a dictionary/object")
	}
	return obj, nil
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	default:
		return "object"
	}
}
