package presto

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for client-side precondition failures. These are raised
// before any network call is made and are never retried.
var (
	// ErrInvalidParameter indicates a statement parameter that cannot be
	// rendered into the engine's literal syntax.
	ErrInvalidParameter = errors.New("presto: invalid parameter")

	// ErrNoActiveQuery is returned by Cancel when the cursor has no query
	// in flight.
	ErrNoActiveQuery = errors.New("presto: cancel query failed; no running query")

	// ErrNoQueryExecuted is returned by fetch operations on a cursor that
	// has never successfully executed a statement.
	ErrNoQueryExecuted = errors.New("presto: no query has been executed on this cursor")

	// ErrQueryCanceled is returned by fetch operations after the query was
	// canceled through the cursor.
	ErrQueryCanceled = errors.New("presto: query was canceled")
)

// ConnectionError indicates that the transport retry budget was exhausted
// without obtaining a usable response. The last underlying failure is
// available via Unwrap.
type ConnectionError struct {
	// Op names the logical operation, e.g. "submit" or "poll".
	Op string

	// Attempts is the number of attempts made before giving up.
	Attempts int

	// Err is the last transient failure observed.
	Err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("presto: %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

// Unwrap returns the last underlying transport failure.
func (e *ConnectionError) Unwrap() error { return e.Err }

// HTTPError is a non-retriable HTTP failure from the server: a status code
// the client does not understand as part of the protocol, with the response
// body preserved for diagnostics.
type HTTPError struct {
	StatusCode int
	Body       string
	URL        string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("presto: server returned %d %s for %s: %s",
		e.StatusCode, http.StatusText(e.StatusCode), e.URL, e.Body)
}

// IsUserError reports whether err is an engine-reported failure caused by
// the statement itself, allowing callers to branch on "my query is wrong"
// versus "something broke".
func IsUserError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe) && qe.UserError()
}

// IsConnectionError reports whether err was caused by exhausting the
// transport retry budget.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
