package presto

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

// Defaults applied by Connect when the corresponding Config field is unset.
const (
	DefaultPort        = 8080
	DefaultUser        = "presto-go-client"
	DefaultSource      = "presto-go-client"
	DefaultMaxAttempts = 3
)

// Config is the immutable session configuration for one connection. It is
// consumed once by Connect; mutating it afterwards has no effect on the
// connection.
type Config struct {
	// Host is the coordinator hostname. Required.
	Host string

	// Port is the coordinator HTTP port. Defaults to DefaultPort.
	Port int

	// User is the principal submitting queries. Defaults to DefaultUser.
	User string

	// Source tags submitted queries so they can be attributed in the
	// engine's query log. Defaults to DefaultSource.
	Source string

	// Catalog and Schema set the default namespace for unqualified table
	// names. Both are optional.
	Catalog string
	Schema  string

	// TimeZone is forwarded verbatim as the session time zone. Optional.
	TimeZone string

	// SessionProperties are opaque engine tuning key/value pairs forwarded
	// with every request of the session.
	SessionProperties map[string]string

	// IsolationLevel selects the transaction mode. Any value other than
	// IsolationAutocommit makes the connection transaction-scoped: a
	// transaction is started lazily before the first query and threaded
	// through every request until Commit or Rollback.
	IsolationLevel IsolationLevel

	// MaxAttempts bounds the number of tries for each HTTP request before
	// the transport gives up. Defaults to DefaultMaxAttempts.
	MaxAttempts int

	// Trino switches protocol headers from the X-Presto- to the X-Trino-
	// prefix for Trino coordinators.
	Trino bool

	// HTTPClient overrides the http.Client used for all requests.
	// Network-level timeouts configured here feed the retrier's transient
	// failure classification.
	HTTPClient *http.Client

	// Logger overrides the logger used by the connection. By default the
	// global zerolog logger is used.
	Logger *zerolog.Logger
}

// validate checks required fields and returns a copy with defaults applied.
func (cfg Config) validate() (Config, error) {
	if cfg.Host == "" {
		return cfg, fmt.Errorf("presto: config: host is required")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("presto: config: invalid port %d", cfg.Port)
	}
	if cfg.MaxAttempts < 0 {
		return cfg, fmt.Errorf("presto: config: MaxAttempts must be at least 1, got %d", cfg.MaxAttempts)
	}
	if _, ok := isolationLevelMap.Lookup(cfg.IsolationLevel); !ok {
		return cfg, fmt.Errorf("presto: config: unknown isolation level %d", int(cfg.IsolationLevel))
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.User == "" {
		cfg.User = DefaultUser
	}
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return cfg, nil
}

// serverURL returns the coordinator base URL.
func (cfg Config) serverURL() string {
	return fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
}
