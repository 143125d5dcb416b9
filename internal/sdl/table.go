package sdl

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// timestampLayout renders TIMESTAMP cells with microseconds and a numeric
// zone offset.
const timestampLayout = "2006-01-02T15:04:05.000000-0700"

// FormatTable renders the result as a pipe-delimited table with a header
// row. TIMESTAMP columns holding epoch numbers are rendered in UTC; the unit
// is inferred from the digit count (10 s, 13 ms, 16 us, 19 ns).
func FormatTable(r *Result) string {
	if r == nil || len(r.Columns) == 0 {
		return "No results"
	}

	var b strings.Builder
	b.WriteString("|")
	for _, c := range r.Columns {
		b.WriteString(" ")
		b.WriteString(escapeCell(c.Name))
		b.WriteString(" |")
	}
	b.WriteString("\n|")
	for range r.Columns {
		b.WriteString(" --- |")
	}
	for _, row := range r.Values {
		b.WriteString("\n|")
		for i := range r.Columns {
			var cell json.RawMessage
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(" ")
			b.WriteString(escapeCell(formatCell(r.Columns[i], cell)))
			b.WriteString(" |")
		}
	}
	return b.String()
}

func formatCell(col Column, raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if col.Type == ColumnTimestamp {
		if s, ok := formatTimestamp(raw); ok {
			return s
		}
	}
	var s string
	if raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func formatTimestamp(raw json.RawMessage) (string, bool) {
	digits := strings.TrimSuffix(string(raw), ".0")
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return "", false
	}
	var t time.Time
	switch len(digits) {
	case 10:
		t = time.Unix(n, 0)
	case 13:
		t = time.UnixMilli(n)
	case 16:
		t = time.UnixMicro(n)
	case 19:
		t = time.Unix(0, n)
	default:
		return "", false
	}
	return t.UTC().Format(timestampLayout), true
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
