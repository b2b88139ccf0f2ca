package presto

import (
	"context"
	"iter"
)

// Cursor executes statements on a connection and exposes their results. A
// cursor binds to at most one query at a time; each Execute replaces the
// previous query's client-side state. Cursors are reusable across
// sequential executions but are not safe for concurrent use.
type Cursor struct {
	conn *Conn
	sc   *statementClient

	// buf is the consumed-facing row buffer; pos is the read position.
	buf []Row
	pos int
}

// Execute binds params (if any) into the statement, submits it, and polls
// until rows are buffered or the query reaches a terminal state. A prior
// query still running on this cursor is abandoned client-side; it is not
// canceled on the server.
//
// Parameters are rendered as inline SQL literals; see bindParams. An
// unsupported parameter value fails with ErrInvalidParameter before any
// network call.
func (c *Cursor) Execute(ctx context.Context, statement string, params ...any) error {
	rendered, err := bindParams(statement, params)
	if err != nil {
		return err
	}

	if err := c.conn.beginIfNeeded(ctx); err != nil {
		return err
	}

	sc := newStatementClient(c.conn.client, c.conn.txn)
	c.sc = sc
	c.buf = nil
	c.pos = 0

	if err := sc.submit(ctx, rendered); err != nil {
		return err
	}
	c.buf = append(c.buf, sc.drainPending()...)

	for len(c.buf) == 0 && sc.state == stateRunning {
		if _, err := sc.advance(ctx); err != nil {
			return err
		}
		c.buf = append(c.buf, sc.drainPending()...)
	}
	return nil
}

// FetchOne returns the next result row, polling for more pages when the
// buffer is exhausted and the query is still running. It returns (nil, nil)
// once the query is finished and fully drained. Rows buffered before a
// mid-stream failure remain readable; the failure surfaces once the buffer
// is exhausted.
func (c *Cursor) FetchOne(ctx context.Context) (Row, error) {
	if c.sc == nil {
		return nil, ErrNoQueryExecuted
	}

	for c.pos >= len(c.buf) {
		switch c.sc.state {
		case stateFinished:
			return nil, nil
		case stateFailed:
			return nil, c.sc.err
		case stateCanceled:
			return nil, ErrQueryCanceled
		case stateNone:
			return nil, ErrNoQueryExecuted
		}
		if _, err := c.sc.advance(ctx); err != nil {
			return nil, err
		}
		c.buf = append(c.buf, c.sc.drainPending()...)
	}

	row := c.buf[c.pos]
	c.pos++
	return row, nil
}

// FetchAll drains the query and returns every remaining row, materialized
// in memory.
func (c *Cursor) FetchAll(ctx context.Context) ([]Row, error) {
	var rows []Row
	for {
		row, err := c.FetchOne(ctx)
		if err != nil {
			return rows, err
		}
		if row == nil {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// Rows returns a lazy pull iterator over the remaining result rows. The
// iterator consumes the same underlying buffer as FetchOne and FetchAll:
// it is finite, non-restartable, and each pull may trigger a poll for the
// next page.
func (c *Cursor) Rows(ctx context.Context) *Rows {
	return &Rows{cursor: c, ctx: ctx}
}

// All returns the remaining rows as a range-over-func sequence, equivalent
// in content to FetchAll but produced lazily:
//
//	for row, err := range cur.All(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    // use row
//	}
func (c *Cursor) All(ctx context.Context) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for {
			row, err := c.FetchOne(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if row == nil {
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// Cancel cancels the query currently in flight on this cursor and discards
// any rows already buffered. Calling it when no query is active fails with
// ErrNoActiveQuery.
func (c *Cursor) Cancel(ctx context.Context) error {
	if c.sc == nil {
		return ErrNoActiveQuery
	}
	if err := c.sc.cancel(ctx); err != nil {
		return err
	}
	c.buf = nil
	c.pos = 0
	return nil
}

// Stats returns the latest progress snapshot for the current or most
// recently executed query. Before any execution it is the zero snapshot.
func (c *Cursor) Stats() QueryStats {
	if c.sc == nil {
		return QueryStats{}
	}
	return c.sc.progress()
}

// Description returns the column metadata of the current result set, fixed
// from the first response that carried columns. It is nil before the
// description is known.
func (c *Cursor) Description() []Column {
	if c.sc == nil {
		return nil
	}
	return c.sc.columns
}

// Warnings returns the warnings accumulated by the current query.
func (c *Cursor) Warnings() []Warning {
	if c.sc == nil {
		return nil
	}
	return c.sc.warnings
}

// UpdateCount returns the engine-reported affected-row count for update
// statements, and whether one was reported.
func (c *Cursor) UpdateCount() (int64, bool) {
	if c.sc == nil || c.sc.updateCount == nil {
		return 0, false
	}
	return *c.sc.updateCount, true
}

// Rows is a pull iterator over a cursor's remaining result rows.
type Rows struct {
	cursor *Cursor
	ctx    context.Context
	row    Row
	err    error
	done   bool
}

// Next advances to the next row, reporting whether one is available. Once
// it returns false, check Err for a failure.
func (r *Rows) Next() bool {
	if r.done {
		return false
	}
	row, err := r.cursor.FetchOne(r.ctx)
	if err != nil {
		r.err = err
		r.done = true
		return false
	}
	if row == nil {
		r.done = true
		return false
	}
	r.row = row
	return true
}

// Row returns the current row. Valid only after a true Next.
func (r *Rows) Row() Row { return r.row }

// Err returns the failure that stopped iteration, if any.
func (r *Rows) Err() error { return r.err }
