// Package filters converts the tool-level JSON filter array into the
// FilterInput objects accepted by the alert and XSPM GraphQL APIs.
package filters

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	// MaxFilters is the largest number of filters accepted in one request.
	MaxFilters = 50
	// MaxValues is the largest values array accepted in one filter.
	MaxValues = 100
	// maxMillis is the largest magnitude accepted for a millisecond timestamp.
	// Anything wider is almost certainly nanoseconds.
	maxMillis = 9999999999999
)

// Equal is a single-value equality filter.
type Equal[T any] struct {
	Value T `json:"value"`
}

// In matches any of Values.
type In[T any] struct {
	Values []T `json:"values"`
}

// Range is an integer, long or datetime range. Bounds are optional.
type Range struct {
	Start          *int64 `json:"start,omitempty"`
	StartInclusive bool   `json:"startInclusive"`
	End            *int64 `json:"end,omitempty"`
	EndInclusive   bool   `json:"endInclusive"`
}

// Input is one GraphQL FilterInput. Exactly one operator is set.
type Input struct {
	FieldID   string `json:"fieldId"`
	IsNegated bool   `json:"isNegated"`

	BooleanEqual  *Equal[bool]   `json:"booleanEqual,omitempty"`
	BooleanIn     *In[bool]      `json:"booleanIn,omitempty"`
	IntEqual      *Equal[int64]  `json:"intEqual,omitempty"`
	IntIn         *In[int64]     `json:"intIn,omitempty"`
	IntRange      *Range         `json:"intRange,omitempty"`
	LongEqual     *Equal[int64]  `json:"longEqual,omitempty"`
	LongIn        *In[int64]     `json:"longIn,omitempty"`
	LongRange     *Range         `json:"longRange,omitempty"`
	StringEqual   *Equal[string] `json:"stringEqual,omitempty"`
	StringIn      *In[string]    `json:"stringIn,omitempty"`
	DateTimeRange *Range         `json:"dateTimeRange,omitempty"`
	Match         *In[string]    `json:"match,omitempty"`
	MatchIn       *In[string]    `json:"matchIn,omitempty"`
}

// Dialect describes which filter types a backend accepts.
type Dialect struct {
	// FulltextIn enables the fulltext_in type, sent as matchIn.
	FulltextIn bool
}

var (
	// Alerts is the unified alerts dialect.
	Alerts = Dialect{}
	// XSPM is the dialect of the vulnerability and misconfiguration APIs.
	XSPM = Dialect{FulltextIn: true}
)

func (d Dialect) supported() string {
	types := "string_equals, string_in, int_equals, int_in, int_range, " +
		"long_equals, long_in, long_range, boolean_equals, boolean_in, datetime_range, fulltext"
	if d.FulltextIn {
		types += ", fulltext_in"
	}
	return types
}

const envelopeSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["fieldId", "filterType"],
		"properties": {
			"fieldId": {"type": "string", "minLength": 1},
			"filterType": {"type": "string", "minLength": 1},
			"isNegated": {"type": "boolean"},
			"values": {"type": "array"},
			"startInclusive": {"type": "boolean"},
			"endInclusive": {"type": "boolean"}
		}
	}
}`

var envelope = compileEnvelope()

func compileEnvelope() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(envelopeSchema))
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("filters.json", doc); err != nil {
		panic(err)
	}
	return c.MustCompile("filters.json")
}

// Parse decodes and converts a filters argument. An empty argument yields
// nil filters and no error.
func Parse(raw string, d Dialect) ([]Input, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("Invalid JSON in filters parameter: %v", err)
	}
	list, ok := doc.([]any)
	if !ok {
		return nil, errors.New("Filters must be an array of filter objects")
	}
	if err := checkLimits(list); err != nil {
		return nil, err
	}
	if err := envelope.Validate(doc); err != nil {
		return nil, fmt.Errorf("Invalid filter format: %s", flatten(err))
	}

	out := make([]Input, 0, len(list))
	for _, item := range list {
		in, err := convert(item.(map[string]any), d)
		if err != nil {
			return nil, fmt.Errorf("Invalid filter format: %w", err)
		}
		out = append(out, in)
	}
	return out, nil
}

func checkLimits(list []any) error {
	if len(list) > MaxFilters {
		return fmt.Errorf("Too many filters: %d. Maximum allowed: %d", len(list), MaxFilters)
	}
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if values, ok := obj["values"].([]any); ok && len(values) > MaxValues {
			return fmt.Errorf("Filter %d has too many values: %d. Maximum allowed: %d", i, len(values), MaxValues)
		}
	}
	return nil
}

// flatten collapses the multi-line validation report onto one line.
func flatten(err error) string {
	return strings.Join(strings.Fields(err.Error()), " ")
}

func convert(obj map[string]any, d Dialect) (Input, error) {
	filterType := obj["filterType"].(string)
	in := Input{FieldID: obj["fieldId"].(string)}
	if neg, ok := obj["isNegated"].(bool); ok {
		in.IsNegated = neg
	}

	var err error
	switch filterType {
	case "string_equals":
		var v string
		if v, err = value[string](obj, filterType, asString); err == nil {
			in.StringEqual = &Equal[string]{Value: v}
		}
	case "string_in":
		var vs []string
		if vs, err = values(obj, filterType, asString); err == nil {
			in.StringIn = &In[string]{Values: vs}
		}
	case "int_equals", "long_equals":
		var v int64
		if v, err = value(obj, filterType, asInt); err == nil {
			if filterType == "int_equals" {
				in.IntEqual = &Equal[int64]{Value: v}
			} else {
				in.LongEqual = &Equal[int64]{Value: v}
			}
		}
	case "int_in", "long_in":
		var vs []int64
		if vs, err = values(obj, filterType, asInt); err == nil {
			if filterType == "int_in" {
				in.IntIn = &In[int64]{Values: vs}
			} else {
				in.LongIn = &In[int64]{Values: vs}
			}
		}
	case "int_range", "long_range", "datetime_range":
		var r *Range
		if r, err = rangeOf(obj, filterType); err == nil {
			switch filterType {
			case "int_range":
				in.IntRange = r
			case "long_range":
				in.LongRange = r
			default:
				in.DateTimeRange = r
			}
		}
	case "boolean_equals":
		var v bool
		if v, err = value(obj, filterType, asBool); err == nil {
			in.BooleanEqual = &Equal[bool]{Value: v}
		}
	case "boolean_in":
		var vs []bool
		if vs, err = values(obj, filterType, asBool); err == nil {
			in.BooleanIn = &In[bool]{Values: vs}
		}
	case "fulltext":
		var vs []string
		if vs, err = values(obj, filterType, asString); err == nil {
			in.Match = &In[string]{Values: vs}
		}
	case "fulltext_in":
		if !d.FulltextIn {
			return in, unsupported(filterType, d)
		}
		var vs []string
		if vs, err = values(obj, filterType, asString); err == nil {
			in.MatchIn = &In[string]{Values: vs}
		}
	default:
		return in, unsupported(filterType, d)
	}
	return in, err
}

func unsupported(filterType string, d Dialect) error {
	return fmt.Errorf("Unsupported filterType: '%s'. Supported types: %s", filterType, d.supported())
}

func value[T any](obj map[string]any, filterType string, conv func(any) (T, bool)) (T, error) {
	var zero T
	raw, ok := obj["value"]
	if !ok {
		return zero, fmt.Errorf("Filter type '%s' requires 'value' key", filterType)
	}
	v, ok := conv(raw)
	if !ok {
		return zero, fmt.Errorf("Filter type '%s' has an invalid 'value': %v", filterType, raw)
	}
	return v, nil
}

func values[T any](obj map[string]any, filterType string, conv func(any) (T, bool)) ([]T, error) {
	raw, ok := obj["values"].([]any)
	if !ok {
		return nil, fmt.Errorf("Filter type '%s' requires 'values' key", filterType)
	}
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		v, ok := conv(r)
		if !ok {
			return nil, fmt.Errorf("Filter type '%s' has an invalid entry in 'values': %v", filterType, r)
		}
		out = append(out, v)
	}
	return out, nil
}

func rangeOf(obj map[string]any, filterType string) (*Range, error) {
	r := &Range{StartInclusive: true, EndInclusive: true}
	for _, bound := range []string{"start", "end"} {
		raw, ok := obj[bound]
		if !ok {
			continue
		}
		var v int64
		if filterType == "datetime_range" {
			var err error
			if v, err = millis(raw, bound); err != nil {
				return nil, err
			}
		} else if v, ok = asInt(raw); !ok {
			return nil, fmt.Errorf("Filter type '%s' has an invalid '%s': %v", filterType, bound, raw)
		}
		if bound == "start" {
			r.Start = &v
		} else {
			r.End = &v
		}
	}
	if r.Start == nil && r.End == nil {
		return nil, fmt.Errorf("Filter type '%s' requires at least 'start' or 'end' key", filterType)
	}
	if b, ok := obj["startInclusive"].(bool); ok {
		r.StartInclusive = b
	}
	if b, ok := obj["endInclusive"].(bool); ok {
		r.EndInclusive = b
	}
	return r, nil
}

// millis accepts an integer or a decimal string and rejects values that look
// like nanoseconds.
func millis(raw any, bound string) (int64, error) {
	v, ok := asInt(raw)
	if !ok {
		if s, isStr := raw.(string); isStr {
			v, ok = asInt(json.Number(strings.TrimSpace(s)))
		}
	}
	if !ok {
		return 0, fmt.Errorf("datetime_range filter '%s' must be an integer (milliseconds), got: %v", bound, raw)
	}
	if v > maxMillis || v < -maxMillis {
		return 0, fmt.Errorf("datetime_range filter '%s' value appears to be in nanoseconds (%d). "+
			"Please use milliseconds instead. Use the iso_to_unix_timestamp tool to convert "+
			"ISO 8601 datetime strings to milliseconds.", bound, v)
	}
	return v, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		i := int64(n)
		return i, float64(i) == n
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}
