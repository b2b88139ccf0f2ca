package presto

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

func init() {
	sql.Register("presto", &prestoDriver{})
}

// --- DSN Parsing ---

// parseDSN parses a Presto/Trino DSN string into a Config.
//
// Format: presto://[user@]host[:port][/catalog[/schema]][?key=value&...]
//
//	trino://...
//
// Recognized query params: source, timezone, max_attempts, isolation.
// Unrecognized params become session properties.
func parseDSN(dsn string) (Config, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return Config{}, fmt.Errorf("presto: invalid DSN: %w", err)
	}

	cfg := Config{SessionProperties: make(map[string]string)}

	switch u.Scheme {
	case "presto":
	case "trino":
		cfg.Trino = true
	default:
		return Config{}, fmt.Errorf("presto: unsupported scheme %q: must be presto or trino", u.Scheme)
	}

	if u.User != nil {
		cfg.User = u.User.Username()
	}

	cfg.Host = u.Hostname()
	if cfg.Host == "" {
		return Config{}, fmt.Errorf("presto: missing host in DSN")
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return Config{}, fmt.Errorf("presto: invalid port in DSN: %w", err)
		}
		cfg.Port = port
	}

	if path := strings.TrimPrefix(u.Path, "/"); path != "" {
		parts := strings.SplitN(path, "/", 2)
		cfg.Catalog = parts[0]
		if len(parts) > 1 {
			cfg.Schema = parts[1]
		}
	}

	for key, values := range u.Query() {
		val := values[0]
		switch key {
		case "source":
			cfg.Source = val
		case "timezone":
			cfg.TimeZone = val
		case "max_attempts":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Config{}, fmt.Errorf("presto: invalid max_attempts in DSN: %w", err)
			}
			cfg.MaxAttempts = n
		case "isolation":
			level, err := ParseIsolationLevel(strings.ToUpper(strings.ReplaceAll(val, "_", " ")))
			if err != nil {
				return Config{}, err
			}
			cfg.IsolationLevel = level
		default:
			cfg.SessionProperties[key] = val
		}
	}

	return cfg, nil
}

// --- Type Conversion ---

// normalizeType strips parameterized parts from an engine type string.
// e.g. "varchar(255)" becomes "varchar", "decimal(10,2)" becomes "decimal"
func normalizeType(t string) string {
	lower := strings.ToLower(strings.TrimSpace(t))
	if idx := strings.IndexByte(lower, '('); idx >= 0 {
		return lower[:idx]
	}
	return lower
}

// scanTypeFor returns the reflect.Type Scan should use for an engine type.
func scanTypeFor(engineType string) reflect.Type {
	switch normalizeType(engineType) {
	case "bigint", "integer", "smallint", "tinyint":
		return reflect.TypeOf(int64(0))
	case "double", "real":
		return reflect.TypeOf(float64(0))
	case "boolean":
		return reflect.TypeOf(false)
	case "varbinary":
		return reflect.TypeOf([]byte(nil))
	case "date", "timestamp", "timestamp with time zone":
		return reflect.TypeOf(time.Time{})
	default:
		// varchar, decimal, json, array, map, row, unknown scan as string
		return reflect.TypeOf("")
	}
}

// convertValue converts a JSON-decoded value to the Go type matching the
// declared engine column type. Only the minimal scalar set is converted;
// structured types pass through as their JSON text.
func convertValue(val any, engineType string) (driver.Value, error) {
	if val == nil {
		return nil, nil
	}

	switch normalizeType(engineType) {
	case "bigint", "integer", "smallint", "tinyint":
		switch v := val.(type) {
		case float64:
			return int64(v), nil
		case json.Number:
			return v.Int64()
		default:
			return nil, fmt.Errorf("presto: cannot convert %T to int64 for type %s", val, engineType)
		}

	case "double", "real":
		switch v := val.(type) {
		case float64:
			return v, nil
		case json.Number:
			return v.Float64()
		default:
			return nil, fmt.Errorf("presto: cannot convert %T to float64 for type %s", val, engineType)
		}

	case "boolean":
		if b, ok := val.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("presto: cannot convert %T to bool for type %s", val, engineType)

	case "varchar", "char":
		if s, ok := val.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", val), nil

	case "decimal":
		// Kept as string for precision safety.
		switch v := val.(type) {
		case string:
			return v, nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case json.Number:
			return v.String(), nil
		default:
			return fmt.Sprintf("%v", val), nil
		}

	case "date":
		if s, ok := val.(string); ok {
			return time.Parse("2006-01-02", s)
		}
		return nil, fmt.Errorf("presto: cannot convert %T to date", val)

	case "timestamp":
		if s, ok := val.(string); ok {
			return parseTimestamp(s)
		}
		return nil, fmt.Errorf("presto: cannot convert %T to timestamp", val)

	case "varbinary":
		if s, ok := val.(string); ok {
			return []byte(s), nil
		}
		return nil, fmt.Errorf("presto: cannot convert %T to varbinary", val)

	default:
		// array, map, row, json, and unknown types pass through as JSON text
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}

// parseTimestamp parses an engine timestamp string (without time zone).
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02 15:04:05.000",
		"2006-01-02 15:04:05.000000",
		"2006-01-02 15:04:05.000000000",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("presto: cannot parse timestamp %q", s)
}

// --- Driver Types ---

// prestoDriver implements driver.Driver and driver.DriverContext.
type prestoDriver struct{}

var _ driver.Driver = (*prestoDriver)(nil)
var _ driver.DriverContext = (*prestoDriver)(nil)

// Open implements driver.Driver.
func (d *prestoDriver) Open(dsn string) (driver.Conn, error) {
	connector, err := NewConnector(dsn)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector implements driver.DriverContext.
func (d *prestoDriver) OpenConnector(dsn string) (driver.Connector, error) {
	return NewConnector(dsn)
}

// --- Connector ---

// prestoConnector implements driver.Connector. Every Connect call opens an
// independent Conn so pooled connections never share a transaction context.
type prestoConnector struct {
	cfg Config
}

var _ driver.Connector = (*prestoConnector)(nil)

// NewConnector creates a driver.Connector from a DSN string. Use it with
// sql.OpenDB for connection pool management.
func NewConnector(dsn string) (driver.Connector, error) {
	cfg, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return &prestoConnector{cfg: cfg}, nil
}

// Connect implements driver.Connector.
func (c *prestoConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := Connect(c.cfg)
	if err != nil {
		return nil, err
	}
	return &sqlConn{conn: conn}, nil
}

// Driver implements driver.Connector.
func (c *prestoConnector) Driver() driver.Driver {
	return &prestoDriver{}
}

// --- Connection ---

// sqlConn adapts a Conn to driver.Conn, driver.QueryerContext,
// driver.ExecerContext, and driver.ConnBeginTx.
type sqlConn struct {
	conn   *Conn
	closed bool
}

var _ driver.Conn = (*sqlConn)(nil)
var _ driver.QueryerContext = (*sqlConn)(nil)
var _ driver.ExecerContext = (*sqlConn)(nil)
var _ driver.ConnBeginTx = (*sqlConn)(nil)

// Prepare implements driver.Conn.
func (c *sqlConn) Prepare(query string) (driver.Stmt, error) {
	return &sqlStmt{conn: c, query: query}, nil
}

// Close implements driver.Conn.
func (c *sqlConn) Close() error {
	c.closed = true
	return c.conn.Close(context.Background())
}

// Begin implements driver.Conn. Use BeginTx instead.
func (c *sqlConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx implements driver.ConnBeginTx.
func (c *sqlConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if opts.ReadOnly {
		return nil, fmt.Errorf("presto: read-only transactions are not supported")
	}
	if opts.Isolation != driver.IsolationLevel(sql.LevelDefault) {
		return nil, fmt.Errorf("presto: set the isolation level on the connection config, not per transaction")
	}
	if err := c.conn.Begin(ctx); err != nil {
		return nil, err
	}
	return &sqlTx{conn: c.conn}, nil
}

// QueryContext implements driver.QueryerContext.
func (c *sqlConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	cur := c.conn.Cursor()
	if err := cur.Execute(ctx, query, namedToParams(args)...); err != nil {
		return nil, err
	}
	return &sqlRows{cursor: cur, ctx: ctx, columns: cur.Description()}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *sqlConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	cur := c.conn.Cursor()
	if err := cur.Execute(ctx, query, namedToParams(args)...); err != nil {
		return nil, err
	}
	if _, err := cur.FetchAll(ctx); err != nil {
		return nil, err
	}
	count, ok := cur.UpdateCount()
	return &sqlResult{updateCount: count, hasCount: ok}, nil
}

// namedToParams converts named values to the cursor's positional params.
func namedToParams(args []driver.NamedValue) []any {
	params := make([]any, len(args))
	for i, arg := range args {
		params[i] = arg.Value
	}
	return params
}

// --- Result ---

// sqlResult implements driver.Result.
type sqlResult struct {
	updateCount int64
	hasCount    bool
}

var _ driver.Result = (*sqlResult)(nil)

// LastInsertId implements driver.Result. The engine has no auto-increment ids.
func (r *sqlResult) LastInsertId() (int64, error) {
	return 0, fmt.Errorf("presto: LastInsertId is not supported")
}

// RowsAffected implements driver.Result.
func (r *sqlResult) RowsAffected() (int64, error) {
	if !r.hasCount {
		return 0, nil
	}
	return r.updateCount, nil
}

// --- Rows ---

// sqlRows adapts a Cursor to driver.Rows with column type metadata.
type sqlRows struct {
	cursor  *Cursor
	ctx     context.Context
	columns []Column
	closed  bool
}

var _ driver.Rows = (*sqlRows)(nil)

// Columns implements driver.Rows.
func (r *sqlRows) Columns() []string {
	names := make([]string, len(r.columns))
	for i, col := range r.columns {
		names[i] = col.Name
	}
	return names
}

// Close implements driver.Rows.
func (r *sqlRows) Close() error {
	r.closed = true
	return nil
}

// Next implements driver.Rows.
func (r *sqlRows) Next(dest []driver.Value) error {
	if r.closed {
		return io.EOF
	}
	row, err := r.cursor.FetchOne(r.ctx)
	if err != nil {
		return err
	}
	if row == nil {
		return io.EOF
	}

	for i, col := range r.columns {
		if i >= len(row) {
			dest[i] = nil
			continue
		}
		val, err := convertValue(row[i], col.Type)
		if err != nil {
			return err
		}
		dest[i] = val
	}
	return nil
}

// ColumnTypeDatabaseTypeName implements driver.RowsColumnTypeDatabaseTypeName.
func (r *sqlRows) ColumnTypeDatabaseTypeName(index int) string {
	if index < 0 || index >= len(r.columns) {
		return ""
	}
	return strings.ToUpper(normalizeType(r.columns[index].Type))
}

// ColumnTypeScanType implements driver.RowsColumnTypeScanType.
func (r *sqlRows) ColumnTypeScanType(index int) reflect.Type {
	if index < 0 || index >= len(r.columns) {
		return reflect.TypeOf("")
	}
	return scanTypeFor(r.columns[index].Type)
}

// --- Statement ---

// sqlStmt implements driver.Stmt and its context variants.
type sqlStmt struct {
	conn  *sqlConn
	query string
}

var _ driver.Stmt = (*sqlStmt)(nil)
var _ driver.StmtQueryContext = (*sqlStmt)(nil)
var _ driver.StmtExecContext = (*sqlStmt)(nil)

// Close implements driver.Stmt.
func (s *sqlStmt) Close() error {
	return nil
}

// NumInput implements driver.Stmt. Returns -1 to disable driver-side checks.
func (s *sqlStmt) NumInput() int {
	return -1
}

// Exec implements driver.Stmt.
func (s *sqlStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), namedValues(args))
}

// Query implements driver.Stmt.
func (s *sqlStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), namedValues(args))
}

// ExecContext implements driver.StmtExecContext.
func (s *sqlStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.conn.ExecContext(ctx, s.query, args)
}

// QueryContext implements driver.StmtQueryContext.
func (s *sqlStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.conn.QueryContext(ctx, s.query, args)
}

// namedValues converts positional args to a NamedValue slice.
func namedValues(args []driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(args))
	for i, v := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return named
}

// --- Transaction ---

// sqlTx implements driver.Tx over the connection's transaction context.
type sqlTx struct {
	conn *Conn
}

var _ driver.Tx = (*sqlTx)(nil)

// Commit implements driver.Tx.
func (tx *sqlTx) Commit() error {
	return tx.conn.Commit(context.Background())
}

// Rollback implements driver.Tx.
func (tx *sqlTx) Rollback() error {
	return tx.conn.Rollback(context.Background())
}
