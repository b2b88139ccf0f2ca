// Package prestotest provides a mock Presto coordinator for testing
// clients of the polling statement protocol without a real cluster.
package prestotest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	presto "github.com/prestodb/presto-go-client"
)

// QueryState represents the standard lifecycle stages of a query.
type QueryState string

const (
	// QueryStateQueued indicates the query is waiting for coordinator resources.
	QueryStateQueued QueryState = "QUEUED"
	// QueryStateRunning indicates the query is actively being processed.
	QueryStateRunning QueryState = "RUNNING"
	// QueryStateCancelled indicates execution was terminated by the user.
	QueryStateCancelled QueryState = "CANCELLED"
	// QueryStateFinished indicates successful completion.
	QueryStateFinished QueryState = "FINISHED"
	// QueryStateFailed indicates an execution or planning error occurred.
	QueryStateFailed QueryState = "FAILED"
)

// String returns the string representation of the QueryState.
func (qs QueryState) String() string {
	return string(qs)
}

// MockQueryTemplate defines the static result set and behavior for one SQL
// string. The server divides Data into sequential windows based on
// DataBatches, each delivered by one poll; DataBatches is capped at the row
// count during registration so no data batch is empty.
type MockQueryTemplate struct {
	// SQL is the statement text used for template matching.
	SQL string

	// DataBatches is the number of data pages the result is split across.
	DataBatches int

	// QueueBatches is how many polls the query spends in the QUEUED state
	// before data starts flowing. It is raised to at least 1.
	QueueBatches int

	// Columns describes the result set.
	Columns []presto.Column

	// Data is the full result set, partitioned across batches.
	Data [][]any

	// Error, when set, simulates a query failure: the response at
	// ErrorAtBatch carries the error payload and no continuation URI.
	Error        *presto.QueryError
	ErrorAtBatch int

	// TransientFailures makes the server answer the initial submission
	// with that many 503 responses before accepting it, to exercise
	// client retry policies.
	TransientFailures int

	// Latency is the total simulated execution latency, spread evenly
	// across the query's responses.
	Latency time.Duration
}

// MockActiveQuery is a live execution instance of a template.
type MockActiveQuery struct {
	ID        string
	Template  *MockQueryTemplate
	State     QueryState
	QueuedFor int // polls spent in the QUEUED state so far
	Delivered int // rows delivered so far, feeds processedRows
}

// LoggedQuery records one accepted statement along with the session
// headers it carried, for assertions on header threading.
type LoggedQuery struct {
	SQL           string
	User          string
	Source        string
	Session       string
	TransactionID string
}

// MockPrestoServer simulates a Presto coordinator for integration testing.
type MockPrestoServer struct {
	server *httptest.Server

	mu                sync.Mutex
	templates         map[string]*MockQueryTemplate
	activeQueries     map[string]*MockActiveQuery
	transientRemained map[string]int
	transactions      map[string]bool
	queryLog          []LoggedQuery
	canceled          []string
	defaultLatency    time.Duration
	cluster           *presto.ClusterStats
}

// NewMockPrestoServer starts a mock coordinator on a local listener.
func NewMockPrestoServer() *MockPrestoServer {
	mock := &MockPrestoServer{
		templates:         make(map[string]*MockQueryTemplate),
		activeQueries:     make(map[string]*MockActiveQuery),
		transientRemained: make(map[string]int),
		transactions:      make(map[string]bool),
	}

	mux := http.NewServeMux()

	// POST /v1/statement: accepts a new statement.
	mux.HandleFunc("POST /v1/statement", mock.handleNewQuery)

	// GET /v1/statement/{status}/{queryId}/{batchId}: polls the next batch.
	mux.HandleFunc("GET /v1/statement/{status}/{queryId}/{batchId}", mock.handleFetchNextBatch)

	// DELETE /v1/statement/{status}/{queryId}/{batchId}: cancels a query.
	mux.HandleFunc("DELETE /v1/statement/{status}/{queryId}/{batchId}", mock.handleCancelQuery)

	// GET /v1/cluster: cluster statistics probe.
	mux.HandleFunc("GET /v1/cluster", mock.handleCluster)

	mock.server = httptest.NewServer(mux)

	return mock
}

// AddQuery registers a SQL template, capping DataBatches at the row count.
func (m *MockPrestoServer) AddQuery(tmpl *MockQueryTemplate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if totalRows := len(tmpl.Data); totalRows < tmpl.DataBatches {
		tmpl.DataBatches = totalRows
	}
	if tmpl.QueueBatches < 1 {
		tmpl.QueueBatches = 1
	}

	m.templates[tmpl.SQL] = tmpl
	if tmpl.TransientFailures > 0 {
		m.transientRemained[tmpl.SQL] = tmpl.TransientFailures
	}
}

// SetDefaultLatency configures the fallback query latency.
func (m *MockPrestoServer) SetDefaultLatency(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLatency = latency
}

// SetClusterStats configures the /v1/cluster response.
func (m *MockPrestoServer) SetClusterStats(stats *presto.ClusterStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cluster = stats
}

// QueryLog returns all accepted statements in submission order.
func (m *MockPrestoServer) QueryLog() []LoggedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	log := make([]LoggedQuery, len(m.queryLog))
	copy(log, m.queryLog)
	return log
}

// Canceled returns the ids of queries that received a DELETE.
func (m *MockPrestoServer) Canceled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.canceled))
	copy(ids, m.canceled)
	return ids
}

// OpenTransactions returns the number of started, uncommitted transactions.
func (m *MockPrestoServer) OpenTransactions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transactions)
}

// --- Request Handlers ---

func (m *MockPrestoServer) handleNewQuery(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	sql := string(body)

	m.mu.Lock()
	m.queryLog = append(m.queryLog, LoggedQuery{
		SQL:           sql,
		User:          r.Header.Get(presto.UserHeader),
		Source:        r.Header.Get(presto.SourceHeader),
		Session:       r.Header.Get(presto.SessionHeader),
		TransactionID: r.Header.Get(presto.TransactionHeader),
	})
	m.mu.Unlock()

	if m.handleControlStatement(w, r, sql) {
		return
	}

	m.mu.Lock()
	if remaining, ok := m.transientRemained[sql]; ok && remaining > 0 {
		m.transientRemained[sql] = remaining - 1
		m.mu.Unlock()
		http.Error(w, "server overloaded", http.StatusServiceUnavailable)
		return
	}

	template, exists := m.templates[sql]
	if !exists {
		template = &MockQueryTemplate{
			SQL:          sql,
			DataBatches:  1,
			QueueBatches: 1,
			Columns:      []presto.Column{{Name: "result", Type: "varchar"}},
			Data:         [][]any{{"Query template not found; default success"}},
		}
	}

	queryID := newQueryID()
	m.activeQueries[queryID] = &MockActiveQuery{
		ID:       queryID,
		Template: template,
		State:    QueryStateQueued,
	}
	m.mu.Unlock()

	m.sendQueryResponse(w, queryID, 0)
}

// handleControlStatement intercepts transaction control statements and
// answers them with the corresponding transaction headers. It reports
// whether the statement was handled.
func (m *MockPrestoServer) handleControlStatement(w http.ResponseWriter, r *http.Request, sql string) bool {
	stmt := strings.ToUpper(strings.TrimSpace(sql))
	switch {
	case strings.HasPrefix(stmt, "START TRANSACTION"):
		txnID := uuid.NewString()
		m.mu.Lock()
		m.transactions[txnID] = true
		m.mu.Unlock()
		w.Header().Set(presto.StartedTransactionHeader, txnID)
		m.sendControlResponse(w)
		return true
	case stmt == "COMMIT" || stmt == "ROLLBACK":
		txnID := r.Header.Get(presto.TransactionHeader)
		m.mu.Lock()
		delete(m.transactions, txnID)
		m.mu.Unlock()
		w.Header().Set(presto.ClearTransactionHeader, "true")
		m.sendControlResponse(w)
		return true
	}
	return false
}

// sendControlResponse writes a terminal single-response result with no data.
func (m *MockPrestoServer) sendControlResponse(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, presto.QueryResults{
		ID: newQueryID(),
		Stats: presto.StatementStats{
			State:     QueryStateFinished.String(),
			Scheduled: true,
		},
	})
}

func (m *MockPrestoServer) handleFetchNextBatch(w http.ResponseWriter, r *http.Request) {
	batchID, _ := strconv.Atoi(r.PathValue("batchId"))
	m.sendQueryResponse(w, r.PathValue("queryId"), batchID)
}

func (m *MockPrestoServer) handleCancelQuery(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("queryId")
	m.mu.Lock()
	if q, ok := m.activeQueries[id]; ok {
		q.State = QueryStateCancelled
		delete(m.activeQueries, id)
	}
	m.canceled = append(m.canceled, id)
	m.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (m *MockPrestoServer) handleCluster(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	stats := m.cluster
	m.mu.Unlock()
	if stats == nil {
		stats = &presto.ClusterStats{ActiveWorkers: 1}
	}
	writeJSON(w, http.StatusOK, stats)
}

// --- Protocol Response Logic ---

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// sendQueryResponse prepares a protocol payload for one poll of a query,
// applying proportional latency and the template's batch windowing.
func (m *MockPrestoServer) sendQueryResponse(w http.ResponseWriter, queryID string, batchID int) {
	m.mu.Lock()
	query, exists := m.activeQueries[queryID]
	if !exists {
		m.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Query not found"})
		return
	}

	totalLatency := m.defaultLatency
	if query.Template.Latency > 0 {
		totalLatency = query.Template.Latency
	}

	dataBatchCount := query.Template.DataBatches
	queueBatchCount := query.Template.QueueBatches
	sleepDuration := totalLatency / time.Duration(dataBatchCount+queueBatchCount)
	m.mu.Unlock()

	if sleepDuration > 0 {
		time.Sleep(sleepDuration)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	query, exists = m.activeQueries[queryID]
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Query removed during processing"})
		return
	}

	// Queued-phase loop: the client keeps polling batch 0 until the
	// queue batches are exhausted.
	if batchID == 0 {
		query.QueuedFor++
	}
	if query.QueuedFor >= queueBatchCount && query.State == QueryStateQueued {
		query.State = QueryStateRunning
	}

	if query.Template.Error != nil && batchID >= query.Template.ErrorAtBatch {
		query.State = QueryStateFailed
		delete(m.activeQueries, queryID)
		writeJSON(w, http.StatusOK, presto.QueryResults{
			ID:      queryID,
			Columns: query.Template.Columns,
			Error:   query.Template.Error,
			Stats: presto.StatementStats{
				State:       QueryStateFailed.String(),
				TotalSplits: dataBatchCount,
			},
		})
		return
	}

	hasMore := query.QueuedFor < queueBatchCount || batchID < dataBatchCount
	if !hasMore && query.State == QueryStateRunning {
		query.State = QueryStateFinished
	}

	resp := presto.QueryResults{
		ID:      queryID,
		Columns: query.Template.Columns,
	}

	if hasMore {
		nextBatch := batchID + 1
		if query.QueuedFor < queueBatchCount {
			nextBatch = 0
		}
		nextURI := fmt.Sprintf("%s/v1/statement/%s/%s/%d?slug=%s",
			m.server.URL, query.State, queryID, nextBatch, newSlug())
		resp.NextURI = &nextURI
	}

	// Data is delivered sequentially across the batch windows.
	if batchID > 0 && dataBatchCount > 0 && len(query.Template.Data) > 0 {
		rowsPerBatch := (len(query.Template.Data) + dataBatchCount - 1) / dataBatchCount
		start := (batchID - 1) * rowsPerBatch
		if start < len(query.Template.Data) {
			end := start + rowsPerBatch
			if end > len(query.Template.Data) {
				end = len(query.Template.Data)
			}
			batchRows := query.Template.Data[start:end]
			resp.Data = make([]json.RawMessage, len(batchRows))
			for i, row := range batchRows {
				resp.Data[i], _ = json.Marshal(row)
			}
			query.Delivered += len(batchRows)
		}
	}

	// Counters grow with the poll sequence so clients can observe
	// monotonic progress.
	resp.Stats = presto.StatementStats{
		State:           query.State.String(),
		Queued:          query.State == QueryStateQueued,
		Scheduled:       query.State != QueryStateQueued,
		Nodes:           1,
		TotalSplits:     dataBatchCount,
		CompletedSplits: batchID,
		CPUTimeMillis:   int64(batchID) * 7,
		WallTimeMillis:  int64(batchID) * 13,
		ProcessedRows:   int64(query.Delivered),
		ProcessedBytes:  int64(query.Delivered) * 64,
	}

	if query.State == QueryStateFinished || query.State == QueryStateCancelled || query.State == QueryStateFailed {
		delete(m.activeQueries, queryID)
	}

	writeJSON(w, http.StatusOK, resp)
}

// newQueryID mints a server-style query id.
func newQueryID() string {
	return fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), strings.Split(uuid.NewString(), "-")[0])
}

// newSlug mints the random token appended to continuation URIs.
func newSlug() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// URL returns the base URL of the mock server.
func (m *MockPrestoServer) URL() string { return m.server.URL }

// Host and Port return the listener address parts for building a Config.
func (m *MockPrestoServer) Host() string {
	u := strings.TrimPrefix(m.server.URL, "http://")
	return strings.Split(u, ":")[0]
}

// Port returns the listener port.
func (m *MockPrestoServer) Port() int {
	u := strings.TrimPrefix(m.server.URL, "http://")
	parts := strings.Split(u, ":")
	port, _ := strconv.Atoi(parts[len(parts)-1])
	return port
}

// Close shuts down the mock server.
func (m *MockPrestoServer) Close() { m.server.Close() }
