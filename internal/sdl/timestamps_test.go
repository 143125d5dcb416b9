package sdl

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestISOToUnixMillis(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{in: "2025-10-30T12:00:00Z", want: 1761825600000},
		{in: "2025-10-30T12:00:00+00:00", want: 1761825600000},
		{in: "2025-10-30T08:00:00-04:00", want: 1761825600000},
		{in: "2025-10-30T17:00:00+05:00", want: 1761825600000},
		{in: "2025-10-30T12:00:00", want: 1761825600000},
		{in: "2025-10-30 12:00:00", want: 1761825600000},
		{in: "2025-10-30T12:00:00.250Z", want: 1761825600250},
		{in: "2025-10-30T12:00", want: 1761825600000},
		{in: "2025-10-30", want: 1761782400000},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ISOToUnixMillis(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestISOToUnixMillisInvalid(t *testing.T) {
	for _, in := range []string{"", "yesterday", "2025-13-01T00:00:00Z", "1761825600"} {
		t.Run(in, func(t *testing.T) {
			_, err := ISOToUnixMillis(in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "Invalid ISO 8601 datetime format: '"+in+"'. Expected format like '2025-10-30T12:00:00Z'.")
		})
	}
}

func TestTimestampRange(t *testing.T) {
	ref := time.Date(2025, 3, 31, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		amount    int
		unit      Unit
		direction Direction
		start     time.Time
		end       time.Time
	}{
		{name: "past hours", amount: 24, unit: UnitHours, direction: DirectionPast,
			start: time.Date(2025, 3, 30, 10, 30, 0, 0, time.UTC), end: ref},
		{name: "default direction is past", amount: 15, unit: UnitMinutes,
			start: time.Date(2025, 3, 31, 10, 15, 0, 0, time.UTC), end: ref},
		{name: "future days", amount: 2, unit: UnitDays, direction: DirectionFuture,
			start: ref, end: time.Date(2025, 4, 2, 10, 30, 0, 0, time.UTC)},
		{name: "weeks", amount: 1, unit: UnitWeeks, direction: DirectionPast,
			start: time.Date(2025, 3, 24, 10, 30, 0, 0, time.UTC), end: ref},
		{name: "month clamps to february", amount: 1, unit: UnitMonths, direction: DirectionPast,
			start: time.Date(2025, 2, 28, 10, 30, 0, 0, time.UTC), end: ref},
		{name: "future month clamps to april", amount: 1, unit: UnitMonths, direction: DirectionFuture,
			start: ref, end: time.Date(2025, 4, 30, 10, 30, 0, 0, time.UTC)},
		{name: "months cross a year", amount: 4, unit: UnitMonths, direction: DirectionPast,
			start: time.Date(2024, 11, 30, 10, 30, 0, 0, time.UTC), end: ref},
		{name: "years", amount: 1, unit: UnitYears, direction: DirectionPast,
			start: time.Date(2024, 3, 31, 10, 30, 0, 0, time.UTC), end: ref},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := TimestampRange(ref, tt.amount, tt.unit, tt.direction)
			require.NoError(t, err)
			assert.Equal(t, tt.start, r.Start)
			assert.Equal(t, tt.end, r.End)
			assert.Equal(t, tt.end.UnixMilli(), r.EndMillis())
		})
	}
}

func TestTimestampRangeLeapDay(t *testing.T) {
	r, err := TimestampRange(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), 1, UnitYears, DirectionFuture)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), r.End)
}

func TestTimestampRangeInvalid(t *testing.T) {
	ref := time.Now()
	tests := []struct {
		name      string
		amount    int
		unit      Unit
		direction Direction
		wantErr   string
	}{
		{name: "zero amount", amount: 0, unit: UnitDays, wantErr: "amount must be a positive integer"},
		{name: "unknown unit", amount: 1, unit: "fortnights", wantErr: "unit must be one of: minutes, hours, days, weeks, months, years"},
		{name: "unknown direction", amount: 1, unit: UnitDays, direction: "sideways", wantErr: "direction must be one of: past, future"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TimestampRange(ref, tt.amount, tt.unit, tt.direction)
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestFormatTable(t *testing.T) {
	res := &Result{
		Columns: []Column{
			{Name: "time", Type: ColumnTimestamp},
			{Name: "cmd", Type: ColumnString},
			{Name: "count", Type: ColumnNumber},
		},
		Values: [][]json.RawMessage{
			{json.RawMessage(`1761825600000`), json.RawMessage(`"a|b\nc"`), json.RawMessage(`2`)},
			{json.RawMessage(`1761825600`), json.RawMessage(`null`), json.RawMessage(`1.5`)},
			{json.RawMessage(`"not a time"`), json.RawMessage(`true`)},
		},
	}

	want := "| time | cmd | count |\n" +
		"| --- | --- | --- |\n" +
		"| 2025-10-30T12:00:00.000000+0000 | a\\|b c | 2 |\n" +
		"| 2025-10-30T12:00:00.000000+0000 |  | 1.5 |\n" +
		"| not a time | true |  |"
	assert.Equal(t, want, FormatTable(res))
}

func TestFormatTableEmpty(t *testing.T) {
	assert.Equal(t, "No results", FormatTable(nil))
	assert.Equal(t, "No results", FormatTable(&Result{}))
	assert.Equal(t, "| n |\n| --- |", FormatTable(&Result{Columns: []Column{{Name: "n"}}}))
}

func TestParseZonedISO(t *testing.T) {
	for _, in := range []string{"2025-01-15T14:30:25Z", "2025-01-15T14:30:25.123456+05:30", "2025-01-15T09:30:25-05:00"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseZonedISO(in)
			assert.NoError(t, err)
		})
	}

	for _, in := range []string{"2025-01-15T14:30:25", "2025-01-15T14:30:25.123456", "2025-01-15"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseZonedISO(in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "explicit timezone information")
			assert.Contains(t, err.Error(), in)
		})
	}

	_, err := ParseZonedISO("not a date")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid ISO 8601 datetime format")
}
