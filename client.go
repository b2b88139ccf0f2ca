package presto

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Protocol headers. The client uses the Presto spelling internally and
// translates to the Trino prefix when Config.Trino is set.
const (
	UserHeader               = "X-Presto-User"
	SourceHeader             = "X-Presto-Source"
	CatalogHeader            = "X-Presto-Catalog"
	SchemaHeader             = "X-Presto-Schema"
	SessionHeader            = "X-Presto-Session"
	TransactionHeader        = "X-Presto-Transaction-Id"
	StartedTransactionHeader = "X-Presto-Started-Transaction-Id"
	ClearTransactionHeader   = "X-Presto-Clear-Transaction-Id"
	TimeZoneHeader           = "X-Presto-Time-Zone"

	statementPath       = "v1/statement"
	contentEncodingGzip = "gzip"
)

// client owns the HTTP side of a connection: request construction with
// session headers, the retrying transport, and response decoding. It is
// immutable after construction and safe for concurrent use.
type client struct {
	cfg       Config
	serverURL *url.URL
	retrier   *retrier
	logger    zerolog.Logger
}

// newClient builds a client from an already validated Config.
func newClient(cfg Config) (*client, error) {
	parsed, err := url.Parse(cfg.serverURL())
	if err != nil {
		return nil, fmt.Errorf("presto: invalid server URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &client{
		cfg:       cfg,
		serverURL: parsed,
		retrier: &retrier{
			httpClient:  httpClient,
			maxAttempts: cfg.MaxAttempts,
			logger:      logger,
		},
		logger: logger,
	}, nil
}

// header translates a Presto-style header name into its Trino equivalent
// when the client talks to a Trino coordinator.
func (c *client) header(name string) string {
	if c.cfg.Trino {
		return strings.Replace(name, "X-Presto", "X-Trino", 1)
	}
	return name
}

// newRequest builds one protocol request carrying the session configuration
// and the active transaction id (the protocol sentinel NONE when there is
// no transaction).
func (c *client) newRequest(ctx context.Context, method, urlStr, body, txnID string) (*http.Request, error) {
	u, err := c.serverURL.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("presto: invalid request URL %q: %w", urlStr, err)
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set(c.header(UserHeader), c.cfg.User)
	req.Header.Set(c.header(SourceHeader), c.cfg.Source)
	if c.cfg.Catalog != "" {
		req.Header.Set(c.header(CatalogHeader), c.cfg.Catalog)
	}
	if c.cfg.Schema != "" {
		req.Header.Set(c.header(SchemaHeader), c.cfg.Schema)
	}
	if c.cfg.TimeZone != "" {
		req.Header.Set(c.header(TimeZoneHeader), c.cfg.TimeZone)
	}
	if len(c.cfg.SessionProperties) > 0 {
		req.Header.Set(c.header(SessionHeader), sessionHeaderValue(c.cfg.SessionProperties))
	}
	if txnID == "" {
		txnID = "NONE"
	}
	req.Header.Set(c.header(TransactionHeader), txnID)
	if body != "" {
		req.Header.Set("Content-Type", "text/plain")
	}
	req.Header.Set("Accept-Encoding", contentEncodingGzip)

	return req, nil
}

// roundTrip sends one protocol request through the retrier and decodes the
// JSON response into v. It returns the response headers so the caller can
// fold transaction state changes into the shared context.
func (c *client) roundTrip(ctx context.Context, op, method, urlStr, body, txnID string, v any) (http.Header, error) {
	req, err := c.newRequest(ctx, method, urlStr, body, txnID)
	if err != nil {
		return nil, err
	}

	resp, err := c.retrier.do(ctx, op, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Cancellation responds 204 on some coordinator versions.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(bytes.TrimSpace(b)),
			URL:        req.URL.String(),
		}
	}

	if v == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return resp.Header, nil
	}

	if err := c.decodeBody(resp, v); err != nil {
		return nil, err
	}
	return resp.Header, nil
}

// decodeBody decodes a JSON response body into v, transparently handling
// gzip content encoding.
func (c *client) decodeBody(resp *http.Response, v any) error {
	var reader io.Reader = resp.Body

	if resp.Header.Get("Content-Encoding") == contentEncodingGzip {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("presto: failed to create gzip reader: %w", err)
		}
		defer func() {
			if cerr := gz.Close(); cerr != nil {
				c.logger.Debug().Err(cerr).Msg("failed to close gzip reader")
			}
		}()
		reader = gz
	}

	if err := json.NewDecoder(reader).Decode(v); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("presto: failed to decode response: %w", err)
	}
	return nil
}

// syncTransaction folds the transaction headers of one response into the
// connection's shared transaction context.
func (c *client) syncTransaction(hdr http.Header, txn *transactionContext) {
	if txn == nil || hdr == nil {
		return
	}
	started := hdr.Get(c.header(StartedTransactionHeader))
	cleared := hdr.Get(c.header(ClearTransactionHeader)) == "true"
	txn.apply(started, cleared)
}

// sessionHeaderValue renders session properties as a comma-separated and
// URL-escaped k=v list. Keys are sorted so the header is deterministic.
func sessionHeaderValue(props map[string]string) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%s", k, url.QueryEscape(props[k]))
	}
	return strings.Join(pairs, ",")
}
