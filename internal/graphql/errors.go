package graphql

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ConfigError reports invalid or missing client configuration. It is raised
// before any request is sent and never retried.
type ConfigError struct {
	Msg     string
	Details string
}

func (e *ConfigError) Error() string {
	return formatMessage(e.Msg, 0, e.Details)
}

// ClientError is a transport or HTTP-level failure. Domain is the sentinel of
// the resource domain that raised it, so callers can use errors.Is against
// e.g. alerts.ErrAlerts while the type itself stays shared.
type ClientError struct {
	Msg        string
	StatusCode int
	Details    string
	Domain     error
	Err        error
}

func (e *ClientError) Error() string {
	return formatMessage(e.Msg, e.StatusCode, e.Details)
}

func (e *ClientError) Unwrap() []error {
	return nonNil(e.Domain, e.Err)
}

// GraphQLError is an application-level failure reported inside a 200
// response, or a malformed response envelope.
type GraphQLError struct {
	Msg    string
	Errors []map[string]any
	Domain error
}

func (e *GraphQLError) Error() string {
	return formatMessage(e.Msg, 0, e.Details())
}

func (e *GraphQLError) Unwrap() []error {
	return nonNil(e.Domain)
}

// Messages returns the "message" entry of every server-reported error.
func (e *GraphQLError) Messages() []string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msg, ok := ge["message"]
		if !ok {
			msgs = append(msgs, "Unknown error")
			continue
		}
		msgs = append(msgs, fmt.Sprint(msg))
	}
	return msgs
}

// Details joins the server-reported messages with "; ".
func (e *GraphQLError) Details() string {
	return strings.Join(e.Messages(), "; ")
}

// SchemaError signals that the remote schema rejected a field or argument
// the query relied on.
type SchemaError struct {
	Msg     string
	Field   string
	Details string
	Domain  error
	Err     error
}

func (e *SchemaError) Error() string {
	details := e.Details
	if details == "" && e.Field != "" {
		details = fmt.Sprintf("Field '%s' is not supported in the current schema version", e.Field)
	}
	return formatMessage(e.Msg, 0, details)
}

func (e *SchemaError) Unwrap() []error {
	return nonNil(e.Domain, e.Err)
}

// FormatError is raised when a field specifier violates the selection grammar.
type FormatError struct {
	Field  string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("Field name '%s' %s", e.Field, e.Reason)
}

// UnknownFieldError is raised for a well-formed specifier that the catalog
// does not know about.
type UnknownFieldError struct {
	Field  string
	Nested bool
	Valid  []string
}

func (e *UnknownFieldError) Error() string {
	valid := append([]string(nil), e.Valid...)
	sort.Strings(valid)
	if e.Nested {
		return fmt.Sprintf("Nested object '%s' is not valid. Valid nested objects are: %v", e.Field, valid)
	}
	return fmt.Sprintf("Field name '%s' is not in the allowlist of valid fields. Valid fields are: %v", e.Field, valid)
}

var schemaErrorMarkers = []string{
	"cannot query field",
	"unknown argument",
	"field does not exist",
	"unknown directive",
}

// IsSchemaError reports whether err is a GraphQL error caused by a field,
// argument or directive the server's schema does not support.
func IsSchemaError(err error) bool {
	var se *SchemaError
	if errors.As(err, &se) {
		return true
	}
	var ge *GraphQLError
	if !errors.As(err, &ge) {
		return false
	}
	return hasSchemaMarker(ge.Msg + " " + ge.Details())
}

// SchemaMessage returns the first server-reported message of ge that names
// an unsupported field, argument or directive.
func SchemaMessage(ge *GraphQLError) (string, bool) {
	for _, m := range ge.Messages() {
		if hasSchemaMarker(m) {
			return m, true
		}
	}
	return "", false
}

func hasSchemaMarker(text string) bool {
	text = strings.ToLower(text)
	for _, marker := range schemaErrorMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// SchemaFieldName extracts the first quoted name from a schema error
// message, preferring double quotes. It returns "" when none is found.
func SchemaFieldName(message string) string {
	for _, q := range []string{`"`, `'`} {
		start := strings.Index(message, q)
		if start < 0 {
			continue
		}
		end := strings.Index(message[start+1:], q)
		if end < 0 {
			continue
		}
		return message[start+1 : start+1+end]
	}
	return ""
}

func formatMessage(msg string, status int, details string) string {
	if status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, status)
	}
	if details != "" {
		msg = fmt.Sprintf("%s. Details: %s", msg, details)
	}
	return msg
}

func nonNil(errs ...error) []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
