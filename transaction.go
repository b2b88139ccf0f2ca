package presto

import (
	"fmt"
	"sync"

	"github.com/prestodb/presto-go-client/utils"
)

// IsolationLevel is the transactional consistency mode requested for
// queries run on a connection. The zero value, IsolationAutocommit, runs
// every statement outside an explicit transaction.
type IsolationLevel int

const (
	IsolationAutocommit IsolationLevel = iota
	IsolationReadUncommitted
	IsolationReadCommitted
	IsolationRepeatableRead
	IsolationSerializable
)

var isolationLevelMap = utils.NewBiMap(map[IsolationLevel]string{
	IsolationAutocommit:      "AUTOCOMMIT",
	IsolationReadUncommitted: "READ UNCOMMITTED",
	IsolationReadCommitted:   "READ COMMITTED",
	IsolationRepeatableRead:  "REPEATABLE READ",
	IsolationSerializable:    "SERIALIZABLE",
})

// String returns the SQL spelling of the isolation level, as used in
// START TRANSACTION ISOLATION LEVEL clauses.
func (l IsolationLevel) String() string {
	if name, ok := isolationLevelMap.Lookup(l); ok {
		return name
	}
	return fmt.Sprintf("IsolationLevel(%d)", int(l))
}

// ParseIsolationLevel parses the SQL spelling of an isolation level.
func ParseIsolationLevel(s string) (IsolationLevel, error) {
	if level, ok := isolationLevelMap.RLookup(s); ok {
		return level, nil
	}
	return IsolationAutocommit, fmt.Errorf("presto: unknown isolation level %q", s)
}

// transactionContext is the single mutable cell holding a connection's
// active transaction id. It is shared by reference across every cursor of
// one connection, so a commit from one cursor is visible to the next query
// submitted on any other. All access goes through the mutex.
type transactionContext struct {
	mu sync.Mutex
	id string // empty when no transaction is active
}

// current returns the active transaction id, or the empty string.
func (t *transactionContext) current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

// active reports whether a transaction is started.
func (t *transactionContext) active() bool {
	return t.current() != ""
}

// clear resets the context to the no-transaction state.
func (t *transactionContext) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.id = ""
}

// apply folds the transaction headers of one response into the context.
// The engine announces a newly started transaction with startedID and
// requests teardown of client state with cleared.
func (t *transactionContext) apply(startedID string, cleared bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if startedID != "" {
		t.id = startedID
	} else if cleared {
		t.id = ""
	}
}
