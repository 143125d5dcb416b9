package filters

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmpty(t *testing.T) {
	for _, raw := range []string{"", "   "} {
		got, err := Parse(raw, Alerts)
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	got, err := Parse("[]", Alerts)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseConvertsToGraphQLShape(t *testing.T) {
	tests := []struct {
		name    string
		filter  string
		dialect Dialect
		want    string
	}{
		{
			name:   "string equals",
			filter: `{"fieldId":"severity","filterType":"string_equals","value":"CRITICAL"}`,
			want:   `{"fieldId":"severity","isNegated":false,"stringEqual":{"value":"CRITICAL"}}`,
		},
		{
			name:   "negated string in",
			filter: `{"fieldId":"status","filterType":"string_in","values":["NEW","IN_PROGRESS"],"isNegated":true}`,
			want:   `{"fieldId":"status","isNegated":true,"stringIn":{"values":["NEW","IN_PROGRESS"]}}`,
		},
		{
			name:   "boolean equals",
			filter: `{"fieldId":"alertNoteExists","filterType":"boolean_equals","value":false}`,
			want:   `{"fieldId":"alertNoteExists","isNegated":false,"booleanEqual":{"value":false}}`,
		},
		{
			name:   "boolean in",
			filter: `{"fieldId":"alertNoteExists","filterType":"boolean_in","values":[true,false]}`,
			want:   `{"fieldId":"alertNoteExists","isNegated":false,"booleanIn":{"values":[true,false]}}`,
		},
		{
			name:   "long in",
			filter: `{"fieldId":"assigneeUserId","filterType":"long_in","values":[1,2,3]}`,
			want:   `{"fieldId":"assigneeUserId","isNegated":false,"longIn":{"values":[1,2,3]}}`,
		},
		{
			name:   "int equals",
			filter: `{"fieldId":"count","filterType":"int_equals","value":4}`,
			want:   `{"fieldId":"count","isNegated":false,"intEqual":{"value":4}}`,
		},
		{
			name:   "int range with start only",
			filter: `{"fieldId":"count","filterType":"int_range","start":1,"endInclusive":false}`,
			want:   `{"fieldId":"count","isNegated":false,"intRange":{"start":1,"startInclusive":true,"endInclusive":false}}`,
		},
		{
			name:   "datetime range from string",
			filter: `{"fieldId":"createdAt","filterType":"datetime_range","start":"1730289600000","end":1730376000000}`,
			want:   `{"fieldId":"createdAt","isNegated":false,"dateTimeRange":{"start":1730289600000,"startInclusive":true,"end":1730376000000,"endInclusive":true}}`,
		},
		{
			name:   "fulltext",
			filter: `{"fieldId":"alertName","filterType":"fulltext","values":["malware"]}`,
			want:   `{"fieldId":"alertName","isNegated":false,"match":{"values":["malware"]}}`,
		},
		{
			name:    "fulltext in",
			filter:  `{"fieldId":"name","filterType":"fulltext_in","values":["log4j"]}`,
			dialect: XSPM,
			want:    `{"fieldId":"name","isNegated":false,"matchIn":{"values":["log4j"]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse("["+tt.filter+"]", tt.dialect)
			require.NoError(t, err)
			require.Len(t, got, 1)

			b, err := json.Marshal(got[0])
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}

func TestParseErrors(t *testing.T) {
	manyFilters := "[" + strings.TrimSuffix(strings.Repeat(`{"fieldId":"a","filterType":"string_equals","value":"x"},`, MaxFilters+1), ",") + "]"

	vals := make([]string, MaxValues+1)
	for i := range vals {
		vals[i] = fmt.Sprintf(`"v%d"`, i)
	}
	manyValues := `[{"fieldId":"a","filterType":"string_in","values":[` + strings.Join(vals, ",") + `]}]`

	tests := []struct {
		name string
		raw  string
		msg  string
	}{
		{name: "not json", raw: "{oops", msg: "Invalid JSON in filters parameter"},
		{name: "object instead of array", raw: `{"fieldId":"a"}`, msg: "Filters must be an array of filter objects"},
		{name: "too many filters", raw: manyFilters, msg: "Too many filters: 51. Maximum allowed: 50"},
		{name: "too many values", raw: manyValues, msg: "Filter 0 has too many values: 101. Maximum allowed: 100"},
		{name: "missing filterType", raw: `[{"fieldId":"a","value":"x"}]`, msg: "Invalid filter format"},
		{name: "non-object entry", raw: `["severity"]`, msg: "Invalid filter format"},
		{name: "non-boolean isNegated", raw: `[{"fieldId":"a","filterType":"string_equals","value":"x","isNegated":"yes"}]`, msg: "Invalid filter format"},
		{name: "missing value", raw: `[{"fieldId":"a","filterType":"string_equals"}]`, msg: "Filter type 'string_equals' requires 'value' key"},
		{name: "missing values", raw: `[{"fieldId":"a","filterType":"string_in"}]`, msg: "Filter type 'string_in' requires 'values' key"},
		{name: "wrong value type", raw: `[{"fieldId":"a","filterType":"int_equals","value":"four"}]`, msg: "invalid 'value'"},
		{name: "fractional long", raw: `[{"fieldId":"a","filterType":"long_in","values":[1.5]}]`, msg: "invalid entry in 'values'"},
		{name: "empty range", raw: `[{"fieldId":"a","filterType":"long_range"}]`, msg: "requires at least 'start' or 'end' key"},
		{name: "non-integer datetime", raw: `[{"fieldId":"a","filterType":"datetime_range","start":"yesterday"}]`, msg: "datetime_range filter 'start' must be an integer (milliseconds)"},
		{name: "nanosecond datetime", raw: `[{"fieldId":"a","filterType":"datetime_range","end":1730289600000000000}]`, msg: "value appears to be in nanoseconds (1730289600000000000)"},
		{name: "negative nanosecond datetime", raw: `[{"fieldId":"a","filterType":"datetime_range","start":-1730289600000000000}]`, msg: "appears to be in nanoseconds"},
		{name: "unknown type", raw: `[{"fieldId":"a","filterType":"EQUALS","value":"x"}]`, msg: "Unsupported filterType: 'EQUALS'"},
		{name: "fulltext_in needs xspm", raw: `[{"fieldId":"a","filterType":"fulltext_in","values":["x"]}]`, msg: "Unsupported filterType: 'fulltext_in'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw, Alerts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseBoundaryLimits(t *testing.T) {
	exact := "[" + strings.TrimSuffix(strings.Repeat(`{"fieldId":"a","filterType":"string_equals","value":"x"},`, MaxFilters), ",") + "]"
	got, err := Parse(exact, Alerts)
	require.NoError(t, err)
	assert.Len(t, got, MaxFilters)

	_, err = Parse(`[{"fieldId":"a","filterType":"datetime_range","start":9999999999999}]`, Alerts)
	assert.NoError(t, err)
}
