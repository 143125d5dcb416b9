package sdl

import (
	"encoding/json"
	"math"
)

// QueryType is the kind of query submitted to /v2/api/queries.
type QueryType string

const (
	QueryLog          QueryType = "LOG"
	QueryTopFacets    QueryType = "TOP_FACETS"
	QueryFacetValues  QueryType = "FACET_VALUES"
	QueryPlot         QueryType = "PLOT"
	QueryPowerQuery   QueryType = "PQ"
	QueryDistribution QueryType = "DISTRIBUTION"
)

// ResultType is the output shape of a PowerQuery run. Only tables are
// consumed.
type ResultType string

const (
	ResultTable ResultType = "TABLE"
	ResultPlot  ResultType = "PLOT"
)

// ColumnType is the value type of a result column.
type ColumnType string

const (
	ColumnNumber     ColumnType = "NUMBER"
	ColumnPercentage ColumnType = "PERCENTAGE"
	ColumnString     ColumnType = "STRING"
	ColumnTimestamp  ColumnType = "TIMESTAMP"
)

// Priority is the scheduler queue of a query. LOW has more generous rate
// limits and is the default.
type Priority string

const (
	PriorityLow  Priority = "LOW"
	PriorityHigh Priority = "HIGH"
)

// Frequency controls PowerQuery sampling granularity.
type Frequency string

const (
	FrequencyLow  Frequency = "LOW"
	FrequencyHigh Frequency = "HIGH"
)

// PQAttributes is the "pq" member of a submit payload.
type PQAttributes struct {
	Query      string     `json:"query"`
	ResultType ResultType `json:"resultType"`
	Frequency  Frequency  `json:"frequency"`
}

// SubmitRequest is the body of POST /v2/api/queries.
type SubmitRequest struct {
	StartTime     string        `json:"startTime"`
	EndTime       string        `json:"endTime"`
	QueryType     QueryType     `json:"queryType"`
	QueryPriority Priority      `json:"queryPriority"`
	Tenant        *bool         `json:"tenant,omitempty"`
	AccountIDs    []string      `json:"accountIds,omitempty"`
	PQ            *PQAttributes `json:"pq,omitempty"`
}

// Column describes one result column. The API names the type either
// "cellType" or "type".
type Column struct {
	Name          string     `json:"name"`
	Type          ColumnType `json:"type"`
	DecimalPlaces *int       `json:"decimalPlaces,omitempty"`
}

func (c *Column) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name          string     `json:"name"`
		Type          ColumnType `json:"type"`
		CellType      ColumnType `json:"cellType"`
		DecimalPlaces *int       `json:"decimalPlaces"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c.Name = raw.Name
	c.Type = raw.CellType
	if c.Type == "" {
		c.Type = raw.Type
	}
	c.DecimalPlaces = raw.DecimalPlaces
	return nil
}

// TableData is one increment of table results.
type TableData struct {
	MatchCount                   float64             `json:"matchCount"`
	Values                       [][]json.RawMessage `json:"values"`
	Columns                      []Column            `json:"columns"`
	KeyColumns                   *int                `json:"keyColumns,omitempty"`
	OmittedEvents                *float64            `json:"omittedEvents,omitempty"`
	PartialResultsDueToTimeLimit *bool               `json:"partialResultsDueToTimeLimit,omitempty"`
	DiscardedArrayItems          *int                `json:"discardedArrayItems,omitempty"`
	Warnings                     []string            `json:"warnings,omitempty"`
}

// ErrorObject is a query failure reported in the payload.
type ErrorObject struct {
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

// TimeRange is the time range the backend resolved, in milliseconds.
type TimeRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// QueryResult is returned by both submit and ping. ID is empty when the
// query failed to launch.
type QueryResult struct {
	ID                string       `json:"id,omitempty"`
	StepsCompleted    int          `json:"stepsCompleted"`
	TotalSteps        int          `json:"totalSteps"`
	ResolvedTimeRange *TimeRange   `json:"resolvedTimeRange,omitempty"`
	Error             *ErrorObject `json:"error,omitempty"`
	CPUUsage          int64        `json:"cpuUsage"`
	Data              *TableData   `json:"data,omitempty"`
}

// Result accumulates the table rows of a finished query.
type Result struct {
	MatchCount                   float64             `json:"matchCount"`
	Columns                      []Column            `json:"columns"`
	Values                       [][]json.RawMessage `json:"values"`
	KeyColumns                   *int                `json:"keyColumns,omitempty"`
	OmittedEvents                *float64            `json:"omittedEvents,omitempty"`
	PartialResultsDueToTimeLimit bool                `json:"partialResultsDueToTimeLimit"`
	DiscardedArrayItems          int                 `json:"discardedArrayItems"`
	Warnings                     []string            `json:"warnings"`
	// TruncatedAtLimit is set when rows beyond the handler's row limit were
	// dropped.
	TruncatedAtLimit bool `json:"truncatedAtLimit"`
}

// Partial reports whether the rows are an incomplete view of the matches.
func (r *Result) Partial() bool {
	if r.PartialResultsDueToTimeLimit || r.DiscardedArrayItems != 0 || r.TruncatedAtLimit {
		return true
	}
	return r.OmittedEvents != nil && math.Abs(*r.OmittedEvents) > 1e-9
}

// merge folds one increment into r, keeping at most limit rows. It reports
// whether rows were dropped by this call.
func (r *Result) merge(d *TableData, limit int) (dropped bool) {
	r.Columns = d.Columns
	r.Warnings = d.Warnings
	r.MatchCount = d.MatchCount
	if d.KeyColumns != nil {
		r.KeyColumns = d.KeyColumns
	}
	if d.PartialResultsDueToTimeLimit != nil {
		r.PartialResultsDueToTimeLimit = *d.PartialResultsDueToTimeLimit
	}
	if d.DiscardedArrayItems != nil {
		r.DiscardedArrayItems = *d.DiscardedArrayItems
	}
	if d.OmittedEvents != nil {
		r.OmittedEvents = d.OmittedEvents
	}

	remaining := limit - len(r.Values)
	if remaining <= 0 {
		if len(d.Values) > 0 {
			r.TruncatedAtLimit = true
			return true
		}
		return false
	}
	if len(d.Values) > remaining {
		r.Values = append(r.Values, d.Values[:remaining]...)
		r.TruncatedAtLimit = true
		return true
	}
	r.Values = append(r.Values, d.Values...)
	return false
}
