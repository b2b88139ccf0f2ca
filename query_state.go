package presto

import (
	"github.com/prestodb/presto-go-client/utils"
)

// queryState tracks one statement's lifecycle on the client side. A query
// moves from stateNone to stateRunning on submission, and from stateRunning
// to exactly one of the terminal states. All transitions are driven by
// parsed response content in statementClient.
type queryState int8

const (
	// stateNone is the pre-submission state.
	stateNone queryState = iota
	// stateRunning means the query has been accepted and has a nextUri to poll.
	stateRunning
	// stateFinished means the server reported no further nextUri.
	stateFinished
	// stateFailed means a response carried an error payload.
	stateFailed
	// stateCanceled means the client issued a DELETE for the query.
	stateCanceled
)

var queryStateMap = utils.NewBiMap(map[queryState]string{
	stateNone:     "NONE",
	stateRunning:  "RUNNING",
	stateFinished: "FINISHED",
	stateFailed:   "FAILED",
	stateCanceled: "CANCELED",
})

// String returns the protocol-style name of the state.
func (s queryState) String() string {
	if name, ok := queryStateMap.Lookup(s); ok {
		return name
	}
	return "UNKNOWN"
}

// terminal reports whether no further transitions are possible.
func (s queryState) terminal() bool {
	return s == stateFinished || s == stateFailed || s == stateCanceled
}
