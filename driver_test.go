package presto

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDSN(t *testing.T) {
	cfg, err := parseDSN("presto://alice@coordinator:9090/hive/web?source=etl&timezone=UTC&max_attempts=5&query_priority=1")
	require.NoError(t, err)

	assert.Equal(t, "alice", cfg.User)
	assert.Equal(t, "coordinator", cfg.Host)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "hive", cfg.Catalog)
	assert.Equal(t, "web", cfg.Schema)
	assert.Equal(t, "etl", cfg.Source)
	assert.Equal(t, "UTC", cfg.TimeZone)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.False(t, cfg.Trino)
	assert.Equal(t, map[string]string{"query_priority": "1"}, cfg.SessionProperties)
}

func TestParseDSN_Minimal(t *testing.T) {
	cfg, err := parseDSN("presto://coordinator")
	require.NoError(t, err)
	assert.Equal(t, "coordinator", cfg.Host)
	assert.Zero(t, cfg.Port)
	assert.Empty(t, cfg.Catalog)
	assert.Empty(t, cfg.Schema)
}

func TestParseDSN_TrinoScheme(t *testing.T) {
	cfg, err := parseDSN("trino://coordinator:8443/memory")
	require.NoError(t, err)
	assert.True(t, cfg.Trino)
	assert.Equal(t, "memory", cfg.Catalog)
}

func TestParseDSN_Isolation(t *testing.T) {
	cfg, err := parseDSN("presto://coordinator?isolation=read_committed")
	require.NoError(t, err)
	assert.Equal(t, IsolationReadCommitted, cfg.IsolationLevel)

	_, err = parseDSN("presto://coordinator?isolation=snapshot")
	assert.Error(t, err)
}

func TestParseDSN_Errors(t *testing.T) {
	_, err := parseDSN("mysql://coordinator")
	assert.ErrorContains(t, err, "unsupported scheme")

	_, err = parseDSN("presto://")
	assert.ErrorContains(t, err, "missing host")

	_, err = parseDSN("presto://coordinator?max_attempts=many")
	assert.ErrorContains(t, err, "max_attempts")
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, "varchar", normalizeType("varchar(255)"))
	assert.Equal(t, "decimal", normalizeType("DECIMAL(10,2)"))
	assert.Equal(t, "bigint", normalizeType(" bigint "))
	assert.Equal(t, "timestamp with time zone", normalizeType("timestamp with time zone"))
}

func TestScanTypeFor(t *testing.T) {
	assert.Equal(t, reflect.TypeOf(int64(0)), scanTypeFor("bigint"))
	assert.Equal(t, reflect.TypeOf(int64(0)), scanTypeFor("integer"))
	assert.Equal(t, reflect.TypeOf(float64(0)), scanTypeFor("double"))
	assert.Equal(t, reflect.TypeOf(false), scanTypeFor("boolean"))
	assert.Equal(t, reflect.TypeOf([]byte(nil)), scanTypeFor("varbinary"))
	assert.Equal(t, reflect.TypeOf(time.Time{}), scanTypeFor("timestamp"))
	assert.Equal(t, reflect.TypeOf(""), scanTypeFor("varchar(10)"))
	assert.Equal(t, reflect.TypeOf(""), scanTypeFor("array(integer)"))
}

func TestConvertValue(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		v, err := convertValue(nil, "bigint")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("Integers", func(t *testing.T) {
		v, err := convertValue(float64(42), "bigint")
		require.NoError(t, err)
		assert.Equal(t, int64(42), v)

		_, err = convertValue("42", "bigint")
		assert.Error(t, err)
	})

	t.Run("Floats", func(t *testing.T) {
		v, err := convertValue(float64(1.5), "double")
		require.NoError(t, err)
		assert.Equal(t, 1.5, v)
	})

	t.Run("Boolean", func(t *testing.T) {
		v, err := convertValue(true, "boolean")
		require.NoError(t, err)
		assert.Equal(t, true, v)
	})

	t.Run("Decimal", func(t *testing.T) {
		v, err := convertValue("12.340", "decimal(10,3)")
		require.NoError(t, err)
		assert.Equal(t, "12.340", v)
	})

	t.Run("Date", func(t *testing.T) {
		v, err := convertValue("2024-03-15", "date")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), v)
	})

	t.Run("Timestamp", func(t *testing.T) {
		v, err := convertValue("2024-03-15 10:30:00.123", "timestamp")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 123000000, time.UTC), v)
	})

	t.Run("Structured", func(t *testing.T) {
		v, err := convertValue([]any{float64(1), float64(2)}, "array(integer)")
		require.NoError(t, err)
		assert.Equal(t, "[1,2]", v)
	})
}

func TestParseTimestamp(t *testing.T) {
	for _, s := range []string{
		"2024-03-15 10:30:00",
		"2024-03-15 10:30:00.123",
		"2024-03-15 10:30:00.123456",
	} {
		ts, err := parseTimestamp(s)
		require.NoError(t, err, s)
		assert.Equal(t, 2024, ts.Year())
	}

	_, err := parseTimestamp("yesterday")
	assert.Error(t, err)
}
