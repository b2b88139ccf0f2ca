package presto

import (
	"fmt"
)

// Error type strings reported by the engine in the error payload.
const (
	ErrorTypeUser     = "USER_ERROR"
	ErrorTypeInternal = "INTERNAL_ERROR"
	ErrorTypeExternal = "EXTERNAL"
	ErrorTypeResource = "INSUFFICIENT_RESOURCES"
)

// QueryError is the structured failure payload the engine attaches to a
// query response. It is a terminal outcome for the query: once a poll
// response carries a QueryError, no further rows will be produced.
type QueryError struct {
	// Message is the human-readable error message
	Message string `json:"message"`

	// ErrorCode is a numeric code identifying the error type
	ErrorCode int `json:"errorCode"`

	// ErrorName is a string identifier for the error type
	ErrorName string `json:"errorName"`

	// ErrorType categorizes the error (e.g., "USER_ERROR", "INTERNAL_ERROR")
	ErrorType string `json:"errorType"`

	// Retriable indicates whether the engine believes the query can be retried
	Retriable bool `json:"retriable"`

	// ErrorLocation contains line and column information for syntax errors
	ErrorLocation *ErrorLocation `json:"errorLocation,omitempty"`

	// FailureInfo contains detailed information about the failure
	FailureInfo *FailureInfo `json:"failureInfo,omitempty"`

	// QueryID is filled in by the client from the enclosing response so
	// callers can correlate the failure with the query that produced it.
	QueryID string `json:"-"`
}

// Error implements the error interface for QueryError.
func (q *QueryError) Error() string {
	if q == nil {
		return "nil QueryError"
	}
	if q.QueryID != "" {
		return fmt.Sprintf("query %s failed: %s: %s", q.QueryID, q.ErrorName, q.Message)
	}
	return fmt.Sprintf("%s: %s", q.ErrorName, q.Message)
}

// UserError reports whether the engine classified the failure as caused by
// the statement itself (bad SQL, missing catalog/table) rather than by the
// engine or its environment.
func (q *QueryError) UserError() bool {
	return q != nil && q.ErrorType == ErrorTypeUser
}

// ErrorLocation represents the position in a SQL statement where an error
// occurred. This is typically populated for syntax errors.
type ErrorLocation struct {
	// LineNumber is the 1-based line number in the SQL statement
	LineNumber int `json:"lineNumber"`

	// ColumnNumber is the 1-based column number in the SQL statement
	ColumnNumber int `json:"columnNumber"`
}

// String returns a formatted string representation of the ErrorLocation.
func (e *ErrorLocation) String() string {
	return fmt.Sprintf("line %d:%d", e.LineNumber, e.ColumnNumber)
}

// FailureInfo contains detailed information about a query failure,
// including a stack trace and nested causes.
type FailureInfo struct {
	// Type is the engine-side class name of the failure
	Type string `json:"type"`

	// Message is the failure message
	Message string `json:"message,omitempty"`

	// Cause is the nested failure that caused this one
	Cause *FailureInfo `json:"cause,omitempty"`

	// Suppressed contains any suppressed failures
	Suppressed []FailureInfo `json:"suppressed"`

	// Stack contains the stack trace elements
	Stack []string `json:"stack"`

	// ErrorLocation contains line and column information for syntax errors
	ErrorLocation *ErrorLocation `json:"errorLocation,omitempty"`
}
