package presto

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Backoff curve for transient transport failures. The attempt budget is the
// hard contract (Config.MaxAttempts); the curve itself only shapes the
// spacing of those attempts.
const (
	retryBaseDelay = 100 * time.Millisecond
	retryMaxDelay  = 10 * time.Second
)

// failureKind classifies a transport failure. The classification is a
// closed set so the retry policy stays exhaustive and testable; engine
// failures reported inside a 200 payload never reach the retrier and are
// handled by the statement client.
type failureKind int8

const (
	// failureTransient failures may be retried within the attempt budget.
	failureTransient failureKind = iota
	// failureFatal failures are surfaced to the caller immediately.
	failureFatal
)

// retrier issues HTTP requests with a bounded-attempt retry policy. A
// request is retried only for failures classified transient, with
// exponential backoff and jitter between attempts.
//
// Submissions (POST) get a stricter policy than polls: a poll of a nextUri
// is an idempotent GET and safe to repeat, but re-sending a submission after
// the engine may have received it would duplicate the query. POSTs are
// therefore retried only for failures that provably precede server receipt
// (dial errors, connection refused); an ambiguous failure such as a timeout
// after the request was written is fatal for POST.
type retrier struct {
	httpClient  *http.Client
	maxAttempts int
	logger      zerolog.Logger
}

// do sends req, retrying per the policy above. op names the logical
// operation for logs and errors. On budget exhaustion the last transient
// failure is wrapped in a ConnectionError.
func (r *retrier) do(ctx context.Context, op string, req *http.Request) (*http.Response, error) {
	idempotent := req.Method != http.MethodPost
	requestID := uuid.NewString()

	delay := retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if attempt > 1 {
			r.logger.Debug().
				Str("op", op).
				Str("request_id", requestID).
				Int("attempt", attempt).
				Err(lastErr).
				Msg("retrying transient transport failure")
			if err := sleepContext(ctx, withJitter(delay)); err != nil {
				return nil, err
			}
			delay *= 2
			if delay > retryMaxDelay {
				delay = retryMaxDelay
			}
			// The body reader is consumed by the previous attempt.
			if req.Body != nil && req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				req.Body = body
			}
		}

		resp, err := r.httpClient.Do(req)
		if err != nil {
			if classifyNetError(err, idempotent) == failureFatal {
				return nil, err
			}
			lastErr = err
			continue
		}

		if classifyStatus(resp.StatusCode, idempotent) == failureTransient {
			lastErr = &HTTPError{
				StatusCode: resp.StatusCode,
				URL:        req.URL.String(),
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			continue
		}

		return resp, nil
	}

	return nil, &ConnectionError{Op: op, Attempts: r.maxAttempts, Err: lastErr}
}

// classifyNetError classifies a network-level failure from http.Client.Do.
// Context cancellation is always fatal: the caller asked to stop.
func classifyNetError(err error, idempotent bool) failureKind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return failureFatal
	}

	if !idempotent {
		// Submission: only failures that precede server receipt retry.
		if errors.Is(err, syscall.ECONNREFUSED) {
			return failureTransient
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return failureTransient
		}
		return failureFatal
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failureTransient
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return failureTransient
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return failureTransient
	}
	return failureFatal
}

// classifyStatus classifies an HTTP status received from the server. 503 is
// the engine's explicit "busy, come back" and is safe to retry for any
// method; 502 and 504 come from intermediaries after the request may have
// been forwarded, so they are ambiguous for submissions.
func classifyStatus(statusCode int, idempotent bool) failureKind {
	switch statusCode {
	case http.StatusServiceUnavailable:
		return failureTransient
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		if idempotent {
			return failureTransient
		}
		return failureFatal
	default:
		return failureFatal
	}
}

// withJitter spreads d by up to 20% to avoid retry synchronization.
func withJitter(d time.Duration) time.Duration {
	return d + time.Duration(rand.Int63n(int64(d)/5+1))
}

// sleepContext sleeps for d unless ctx is done first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
