package presto

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Conn is a connection to one coordinator: a factory for cursors, holding
// the immutable session configuration and the single mutable transaction
// context shared by every cursor it creates.
//
// The configuration is safely read by many cursors concurrently. Driving
// cursors of one connection from multiple goroutines is supported only for
// the transaction context, which serializes its own state; each individual
// cursor remains single-threaded.
type Conn struct {
	cfg    Config
	client *client
	txn    *transactionContext
	logger zerolog.Logger

	// beginMu serializes the lazy transaction start so two cursors cannot
	// race to open two transactions on one connection.
	beginMu sync.Mutex
}

// Connect validates cfg, applies defaults, and returns a connection. No
// network traffic is issued until the first query.
func Connect(cfg Config) (*Conn, error) {
	cfg, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	cl, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Conn{
		cfg:    cfg,
		client: cl,
		txn:    &transactionContext{},
		logger: cl.logger,
	}, nil
}

// Cursor opens a new cursor on this connection. Cursors share the
// connection's transaction context by reference.
func (c *Conn) Cursor() *Cursor {
	return &Cursor{conn: c}
}

// beginIfNeeded lazily starts a transaction before a query when the
// connection is transaction-scoped and none is active yet.
func (c *Conn) beginIfNeeded(ctx context.Context) error {
	if c.cfg.IsolationLevel == IsolationAutocommit {
		return nil
	}
	c.beginMu.Lock()
	defer c.beginMu.Unlock()
	if c.txn.active() {
		return nil
	}
	return c.begin(ctx)
}

// Begin explicitly starts a transaction on the connection. It fails if one
// is already active. Most callers rely on the lazy start instead; this is
// the entry point for the database/sql driver's BeginTx.
func (c *Conn) Begin(ctx context.Context) error {
	c.beginMu.Lock()
	defer c.beginMu.Unlock()
	if c.txn.active() {
		return fmt.Errorf("presto: transaction already started")
	}
	return c.begin(ctx)
}

// begin runs the START TRANSACTION control statement. The engine announces
// the new transaction id in a response header, which syncTransaction folds
// into the shared context during the control statement's own round trip.
func (c *Conn) begin(ctx context.Context) error {
	stmt := "START TRANSACTION"
	if c.cfg.IsolationLevel != IsolationAutocommit {
		stmt += " ISOLATION LEVEL " + c.cfg.IsolationLevel.String()
	}
	if err := c.runControl(ctx, stmt); err != nil {
		return fmt.Errorf("presto: failed to start transaction: %w", err)
	}
	if !c.txn.active() {
		return fmt.Errorf("presto: engine did not report a started transaction")
	}
	c.logger.Debug().Str("transaction_id", c.txn.current()).Msg("transaction started")
	return nil
}

// Commit commits the active transaction and resets the shared context. It
// is a no-op when no transaction is active, so it is always safe to call
// on the way out of a connection's scope.
func (c *Conn) Commit(ctx context.Context) error {
	if !c.txn.active() {
		return nil
	}
	if err := c.runControl(ctx, "COMMIT"); err != nil {
		return err
	}
	c.txn.clear()
	return nil
}

// Rollback aborts the active transaction and resets the shared context.
// Like Commit, it is a no-op without an active transaction.
func (c *Conn) Rollback(ctx context.Context) error {
	if !c.txn.active() {
		return nil
	}
	if err := c.runControl(ctx, "ROLLBACK"); err != nil {
		return err
	}
	c.txn.clear()
	return nil
}

// Scope runs fn within the connection's transactional scope: an open
// transaction is committed when fn returns nil and rolled back when fn
// returns an error or panics. Either way the transaction context is back
// to the no-transaction state on exit.
func (c *Conn) Scope(ctx context.Context, fn func(*Conn) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			if rbErr := c.Rollback(ctx); rbErr != nil {
				c.logger.Debug().Err(rbErr).Msg("rollback after panic failed")
			}
			panic(p)
		}
		if err != nil {
			if rbErr := c.Rollback(ctx); rbErr != nil {
				c.logger.Debug().Err(rbErr).Msg("rollback failed")
			}
			return
		}
		err = c.Commit(ctx)
	}()
	return fn(c)
}

// Close releases the connection, committing any transaction still open.
func (c *Conn) Close(ctx context.Context) error {
	return c.Commit(ctx)
}

// runControl executes a control statement (START TRANSACTION, COMMIT,
// ROLLBACK) and drains it to completion, bypassing the lazy transaction
// start that regular cursor execution performs.
func (c *Conn) runControl(ctx context.Context, stmt string) error {
	sc := newStatementClient(c.client, c.txn)
	if err := sc.submit(ctx, stmt); err != nil {
		return err
	}
	for {
		more, err := sc.advance(ctx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}
