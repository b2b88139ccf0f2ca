package presto

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, cfg Config) *client {
	t.Helper()
	cfg, err := cfg.validate()
	require.NoError(t, err)
	c, err := newClient(cfg)
	require.NoError(t, err)
	return c
}

func configForServer(t *testing.T, rawURL string) Config {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return Config{Host: u.Hostname(), Port: port}
}

func TestClient_RequestHeaders(t *testing.T) {
	c := testClient(t, Config{
		Host:     "localhost",
		User:     "test",
		Source:   "unit-test",
		Catalog:  "hive",
		Schema:   "default",
		TimeZone: "UTC",
		SessionProperties: map[string]string{
			"query_priority":     "1",
			"query_max_run_time": "10m",
		},
	})

	req, err := c.newRequest(context.Background(), http.MethodPost, statementPath, "select 1", "txn-123")
	require.NoError(t, err)

	assert.Equal(t, "test", req.Header.Get(UserHeader))
	assert.Equal(t, "unit-test", req.Header.Get(SourceHeader))
	assert.Equal(t, "hive", req.Header.Get(CatalogHeader))
	assert.Equal(t, "default", req.Header.Get(SchemaHeader))
	assert.Equal(t, "UTC", req.Header.Get(TimeZoneHeader))
	assert.Equal(t, "txn-123", req.Header.Get(TransactionHeader))
	assert.Equal(t, "text/plain", req.Header.Get("Content-Type"))

	// Session properties are sorted for a deterministic header.
	assert.Equal(t, "query_max_run_time=10m,query_priority=1", req.Header.Get(SessionHeader))
}

func TestClient_OmitsEmptyHeaders(t *testing.T) {
	c := testClient(t, Config{Host: "localhost"})

	req, err := c.newRequest(context.Background(), http.MethodGet, "v1/statement/x/y/1", "", "")
	require.NoError(t, err)

	assert.Empty(t, req.Header.Get(CatalogHeader))
	assert.Empty(t, req.Header.Get(SchemaHeader))
	// No transaction means the protocol's NONE sentinel, not an absent header.
	assert.Equal(t, "NONE", req.Header.Get(TransactionHeader))
	assert.Empty(t, req.Header.Get("Content-Type"))
	assert.Equal(t, DefaultUser, req.Header.Get(UserHeader))
}

func TestClient_TrinoHeaderTranslation(t *testing.T) {
	c := testClient(t, Config{Host: "localhost", User: "test", Trino: true})

	assert.Equal(t, "X-Trino-User", c.header(UserHeader))
	assert.Equal(t, "X-Trino-Started-Transaction-Id", c.header(StartedTransactionHeader))

	req, err := c.newRequest(context.Background(), http.MethodPost, statementPath, "select 1", "")
	require.NoError(t, err)
	assert.Equal(t, "test", req.Header.Get("X-Trino-User"))
	assert.Empty(t, req.Header.Get(UserHeader))
}

func TestClient_GzipResponseDecoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", contentEncodingGzip)
		gz := gzip.NewWriter(w)
		defer gz.Close()
		_ = json.NewEncoder(gz).Encode(map[string]string{"id": "q1"})
	}))
	defer server.Close()

	c := testClient(t, configForServer(t, server.URL))

	var out struct {
		ID string `json:"id"`
	}
	_, err := c.roundTrip(context.Background(), "poll", http.MethodGet, server.URL, "", "", &out)
	require.NoError(t, err)
	assert.Equal(t, "q1", out.ID)
}

func TestClient_ErrorStatusSurfacesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such endpoint", http.StatusNotFound)
	}))
	defer server.Close()

	c := testClient(t, configForServer(t, server.URL))

	_, err := c.roundTrip(context.Background(), "poll", http.MethodGet, server.URL, "", "", &struct{}{})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, "no such endpoint", httpErr.Body)
}

func TestClient_NoContentResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := testClient(t, configForServer(t, server.URL))

	_, err := c.roundTrip(context.Background(), "cancel", http.MethodDelete, server.URL, "", "", nil)
	assert.NoError(t, err)
}

func TestClient_SyncTransaction(t *testing.T) {
	c := testClient(t, Config{Host: "localhost"})
	txn := &transactionContext{}

	hdr := http.Header{}
	hdr.Set(StartedTransactionHeader, "txn-9")
	c.syncTransaction(hdr, txn)
	assert.Equal(t, "txn-9", txn.current())

	// Unrelated responses leave the id alone.
	c.syncTransaction(http.Header{}, txn)
	assert.Equal(t, "txn-9", txn.current())

	hdr = http.Header{}
	hdr.Set(ClearTransactionHeader, "true")
	c.syncTransaction(hdr, txn)
	assert.False(t, txn.active())
}

func TestSessionHeaderValue_Escaping(t *testing.T) {
	value := sessionHeaderValue(map[string]string{"path": "/a/b", "plain": "x"})
	assert.Equal(t, "path=%2Fa%2Fb,plain=x", value)
}
