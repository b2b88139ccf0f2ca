package presto

import (
	"encoding/json"
	"fmt"
)

// Row is one result row: an ordered sequence of scalar values as decoded
// from the wire.
type Row []any

// QueryResults is one page of a query's results and status, parsed from a
// single HTTP response. A page is immutable once parsed; each poll of the
// nextUri supersedes it with a new page. Fields the client does not consume
// are carried verbatim for forward compatibility.
type QueryResults struct {
	// ID is the server-issued unique identifier for this query
	ID string `json:"id"`

	// InfoURI points at human-readable information about the query
	InfoURI string `json:"infoUri"`

	// PartialCancelURI can be used to cancel parts of the query
	PartialCancelURI *string `json:"partialCancelUri,omitempty"`

	// NextURI is the continuation pointer for the next page. Absence
	// signals that the query reached a terminal state.
	NextURI *string `json:"nextUri,omitempty"`

	// Columns contains metadata about the columns in the result set
	Columns []Column `json:"columns,omitempty"`

	// Data contains the rows of this page as raw JSON arrays
	Data []json.RawMessage `json:"data,omitempty"`

	// Stats contains the progress counters for the query so far
	Stats StatementStats `json:"stats"`

	// Error describes an engine-side failure, if any
	Error *QueryError `json:"error,omitempty"`

	// Warnings contains any warnings generated during execution
	Warnings []Warning `json:"warnings"`

	// UpdateType names the kind of update performed (INSERT, DELETE, ...)
	UpdateType *string `json:"updateType,omitempty"`

	// UpdateCount is the number of rows affected by an update
	UpdateCount *int64 `json:"updateCount,omitempty"`
}

// decodeRows unmarshals the raw data arrays of a page into rows. A page is
// decoded as a whole: either every row of the response becomes visible or
// none does.
func (qr *QueryResults) decodeRows() ([]Row, error) {
	if len(qr.Data) == 0 {
		return nil, nil
	}
	rows := make([]Row, len(qr.Data))
	for i, raw := range qr.Data {
		var row Row
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("presto: malformed row %d in query %s: %w", i, qr.ID, err)
		}
		rows[i] = row
	}
	return rows, nil
}
