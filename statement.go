package presto

import (
	"context"
	"fmt"
	"net/http"
)

// statementClient drives one query from submission through repeated polling
// to a terminal state. It owns the query's client-side identity: the
// current continuation URI, the buffer of rows parsed but not yet consumed,
// the fixed column description, and the latest stats snapshot.
//
// A statementClient belongs to a single cursor and is not safe for
// concurrent use; the cursor replaces it wholesale on re-execution.
type statementClient struct {
	client *client
	txn    *transactionContext

	state   queryState
	queryID string
	infoURI string
	nextURI string

	// columns is fixed from the first response carrying a non-empty
	// columns field and does not change thereafter.
	columns []Column

	// pending holds rows parsed from completed pages and not yet handed
	// to the cursor. Rows become visible only after a full page parse.
	pending []Row

	stats       QueryStats
	warnings    []Warning
	updateType  *string
	updateCount *int64

	// err is the terminal failure, set exactly when state == stateFailed.
	err error
}

// newStatementClient creates a pre-submission (stateNone) statement client.
// txn may be nil for connections without transaction support.
func newStatementClient(c *client, txn *transactionContext) *statementClient {
	return &statementClient{client: c, txn: txn, state: stateNone}
}

func (sc *statementClient) txnID() string {
	if sc.txn == nil {
		return ""
	}
	return sc.txn.current()
}

// submit issues the initial POST for the statement and folds the first
// response into the state machine. A transport failure leaves the client in
// stateNone: nothing was accepted, so there is nothing to cancel or poll.
func (sc *statementClient) submit(ctx context.Context, statement string) error {
	if sc.state != stateNone {
		return fmt.Errorf("presto: statement already submitted (state %s)", sc.state)
	}

	var page QueryResults
	hdr, err := sc.client.roundTrip(ctx, "submit", http.MethodPost, statementPath, statement, sc.txnID(), &page)
	if err != nil {
		return err
	}
	sc.client.syncTransaction(hdr, sc.txn)

	return sc.applyPage(&page)
}

// advance polls the current nextUri once while the query is running. It
// reports whether the query is still running afterwards. Rows parsed from
// the response are appended to the pending buffer.
func (sc *statementClient) advance(ctx context.Context) (bool, error) {
	if sc.state != stateRunning {
		return false, nil
	}

	var page QueryResults
	hdr, err := sc.client.roundTrip(ctx, "poll", http.MethodGet, sc.nextURI, "", sc.txnID(), &page)
	if err != nil {
		// Exhausted retries or a fatal transport failure ends the
		// query client-side; buffered rows stay readable.
		sc.state = stateFailed
		sc.err = err
		return false, err
	}
	sc.client.syncTransaction(hdr, sc.txn)

	if err := sc.applyPage(&page); err != nil {
		return false, err
	}
	return sc.state == stateRunning, nil
}

// cancel issues a DELETE for the query's current URI. It is valid only
// while a query is in flight; otherwise ErrNoActiveQuery is returned.
func (sc *statementClient) cancel(ctx context.Context) error {
	if !sc.active() {
		return ErrNoActiveQuery
	}

	_, err := sc.client.roundTrip(ctx, "cancel", http.MethodDelete, sc.nextURI, "", sc.txnID(), nil)
	if err != nil {
		return err
	}

	sc.state = stateCanceled
	sc.nextURI = ""
	sc.pending = nil
	return nil
}

// active reports whether a query is currently in flight.
func (sc *statementClient) active() bool {
	return sc.state == stateRunning && sc.nextURI != ""
}

// applyPage is the single transition function of the state machine: it
// folds one fully parsed response into the client's state.
func (sc *statementClient) applyPage(page *QueryResults) error {
	if page.ID != "" {
		sc.queryID = page.ID
	}
	if page.InfoURI != "" {
		sc.infoURI = page.InfoURI
	}

	// Overwrite, never merge: the engine is trusted to keep counters
	// monotonic across responses.
	sc.stats = QueryStats{QueryID: sc.queryID, StatementStats: page.Stats}

	sc.warnings = append(sc.warnings, page.Warnings...)
	if page.UpdateType != nil {
		sc.updateType = page.UpdateType
	}
	if page.UpdateCount != nil {
		sc.updateCount = page.UpdateCount
	}
	if len(sc.columns) == 0 && len(page.Columns) > 0 {
		sc.columns = page.Columns
	}

	if page.Error != nil {
		page.Error.QueryID = sc.queryID
		sc.state = stateFailed
		sc.nextURI = ""
		sc.err = page.Error
		return page.Error
	}

	rows, err := page.decodeRows()
	if err != nil {
		sc.state = stateFailed
		sc.nextURI = ""
		sc.err = err
		return err
	}
	sc.pending = append(sc.pending, rows...)

	if page.NextURI == nil {
		sc.state = stateFinished
		sc.nextURI = ""
	} else {
		sc.state = stateRunning
		sc.nextURI = *page.NextURI
	}
	return nil
}

// drainPending hands all buffered rows to the caller and clears the buffer.
func (sc *statementClient) drainPending() []Row {
	rows := sc.pending
	sc.pending = nil
	return rows
}

// progress returns the latest stats snapshot seen by this client. Before
// the first response it is the zero snapshot.
func (sc *statementClient) progress() QueryStats {
	return sc.stats
}
