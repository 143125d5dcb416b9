package sdl

import (
	"fmt"
	"strings"
	"time"
)

// isoLayouts are tried in order. Layouts without a zone are read as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04-07:00",
	"2006-01-02T15:04",
	"2006-01-02T15",
	"2006-01-02",
}

// ParseISO parses an ISO 8601 date or datetime. A trailing Z and an
// explicit offset are both honoured; a value without a zone is UTC. The
// date and time may be separated by a space instead of T.
func ParseISO(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if len(v) > 10 && v[10] == ' ' {
		v = v[:10] + "T" + v[11:]
	}
	var firstErr error
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// ParseZonedISO is ParseISO for values that must carry a zone, such as
// query bounds. A value that only parses as local time is rejected.
func ParseZonedISO(s string) (time.Time, error) {
	t, err := ParseISO(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("Invalid ISO 8601 datetime format: '%s'. Expected format like '2025-10-30T12:00:00Z'. Error: %w", s, err)
	}
	if !hasZone(strings.TrimSpace(s)) {
		return time.Time{}, fmt.Errorf("Timestamp '%s' must include explicit timezone information such as 'Z' or '+00:00'; a naive timestamp is ambiguous", s)
	}
	return t, nil
}

// hasZone reports whether the time part of v ends in Z or a numeric offset.
func hasZone(v string) bool {
	if len(v) <= 10 {
		return false
	}
	clock := v[11:]
	if strings.HasSuffix(clock, "Z") {
		return true
	}
	return strings.ContainsAny(clock, "+-")
}

// ISOToUnixMillis converts an ISO 8601 datetime to milliseconds since the
// epoch, in UTC.
func ISOToUnixMillis(s string) (int64, error) {
	t, err := ParseISO(s)
	if err != nil {
		return 0, fmt.Errorf("Invalid ISO 8601 datetime format: '%s'. Expected format like '2025-10-30T12:00:00Z'. Error: %w", s, err)
	}
	return t.UnixMilli(), nil
}

// Unit is a calendar or clock unit for TimestampRange.
type Unit string

const (
	UnitMinutes Unit = "minutes"
	UnitHours   Unit = "hours"
	UnitDays    Unit = "days"
	UnitWeeks   Unit = "weeks"
	UnitMonths  Unit = "months"
	UnitYears   Unit = "years"
)

// Units lists every accepted unit.
var Units = []Unit{UnitMinutes, UnitHours, UnitDays, UnitWeeks, UnitMonths, UnitYears}

// Direction places a range before or after the reference time.
type Direction string

const (
	DirectionPast   Direction = "past"
	DirectionFuture Direction = "future"
)

// Range is a closed time interval.
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) StartMillis() int64 { return r.Start.UnixMilli() }
func (r Range) EndMillis() int64   { return r.End.UnixMilli() }

// TimestampRange returns the interval spanning amount units before or after
// ref. Months and years move by calendar, clamping to the last day of the
// target month, so one month before March 31 is the last day of February.
func TimestampRange(ref time.Time, amount int, unit Unit, direction Direction) (Range, error) {
	if amount <= 0 {
		return Range{}, fmt.Errorf("amount must be a positive integer")
	}
	sign := 0
	switch direction {
	case DirectionPast, "":
		sign = -1
	case DirectionFuture:
		sign = 1
	default:
		return Range{}, fmt.Errorf("direction must be one of: past, future")
	}

	n := sign * amount
	var other time.Time
	switch unit {
	case UnitMinutes:
		other = ref.Add(time.Duration(n) * time.Minute)
	case UnitHours:
		other = ref.Add(time.Duration(n) * time.Hour)
	case UnitDays:
		other = ref.AddDate(0, 0, n)
	case UnitWeeks:
		other = ref.AddDate(0, 0, 7*n)
	case UnitMonths:
		other = addMonths(ref, n)
	case UnitYears:
		other = addMonths(ref, 12*n)
	default:
		names := make([]string, len(Units))
		for i, u := range Units {
			names[i] = string(u)
		}
		return Range{}, fmt.Errorf("unit must be one of: %s", strings.Join(names, ", "))
	}

	if sign < 0 {
		return Range{Start: other, End: ref}, nil
	}
	return Range{Start: ref, End: other}, nil
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
