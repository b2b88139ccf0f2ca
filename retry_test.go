package presto

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRetrier(maxAttempts int) *retrier {
	return &retrier{
		httpClient:  &http.Client{},
		maxAttempts: maxAttempts,
		logger:      zerolog.Nop(),
	}
}

func TestRetrier_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := newTestRetrier(5).do(context.Background(), "poll", req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetrier_ExhaustsBudget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = newTestRetrier(2).do(context.Background(), "poll", req)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "poll", connErr.Op)
	assert.Equal(t, 2, connErr.Attempts)
}

func TestRetrier_ReplaysPostBodyAcrossAttempts(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if calls.Add(1) < 2 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodPost, server.URL, strings.NewReader("select 1"))
	require.NoError(t, err)

	resp, err := newTestRetrier(3).do(context.Background(), "submit", req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Len(t, bodies, 2)
	assert.Equal(t, "select 1", bodies[0])
	assert.Equal(t, "select 1", bodies[1], "retried POST must carry the same body")
}

func TestRetrier_ConnectionRefusedRetriesSubmission(t *testing.T) {
	// Reserve a port with no listener so the dial is refused.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	listener.Close()

	req, err := http.NewRequest(http.MethodPost, "http://"+addr, strings.NewReader("select 1"))
	require.NoError(t, err)

	start := time.Now()
	_, err = newTestRetrier(2).do(context.Background(), "submit", req)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, 2, connErr.Attempts)
	assert.GreaterOrEqual(t, time.Since(start), retryBaseDelay, "backoff should separate attempts")
}

func TestClassifyNetError(t *testing.T) {
	refused := &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}
	reset := &net.OpError{Op: "read", Err: syscall.ECONNRESET}
	timeout := &timeoutError{}

	t.Run("Idempotent", func(t *testing.T) {
		assert.Equal(t, failureTransient, classifyNetError(refused, true))
		assert.Equal(t, failureTransient, classifyNetError(reset, true))
		assert.Equal(t, failureTransient, classifyNetError(timeout, true))
		assert.Equal(t, failureFatal, classifyNetError(context.Canceled, true))
		assert.Equal(t, failureFatal, classifyNetError(errors.New("malformed"), true))
	})

	t.Run("Submission", func(t *testing.T) {
		// Before-receipt failures retry; anything after send is ambiguous.
		assert.Equal(t, failureTransient, classifyNetError(refused, false))
		assert.Equal(t, failureFatal, classifyNetError(reset, false))
		assert.Equal(t, failureFatal, classifyNetError(timeout, false))
		assert.Equal(t, failureFatal, classifyNetError(context.DeadlineExceeded, false))
	})
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, failureTransient, classifyStatus(http.StatusServiceUnavailable, true))
	assert.Equal(t, failureTransient, classifyStatus(http.StatusServiceUnavailable, false))

	assert.Equal(t, failureTransient, classifyStatus(http.StatusBadGateway, true))
	assert.Equal(t, failureTransient, classifyStatus(http.StatusGatewayTimeout, true))
	assert.Equal(t, failureFatal, classifyStatus(http.StatusBadGateway, false))
	assert.Equal(t, failureFatal, classifyStatus(http.StatusGatewayTimeout, false))

	assert.Equal(t, failureFatal, classifyStatus(http.StatusNotFound, true))
	assert.Equal(t, failureFatal, classifyStatus(http.StatusInternalServerError, true))
}

func TestWithJitter_Bounds(t *testing.T) {
	for range 100 {
		d := withJitter(time.Second)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, time.Second+200*time.Millisecond+time.Nanosecond)
	}
}

// timeoutError implements net.Error with Timeout() == true.
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }
