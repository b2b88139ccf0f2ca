package presto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate_Defaults(t *testing.T) {
	cfg, err := Config{Host: "coordinator"}.validate()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultUser, cfg.User)
	assert.Equal(t, DefaultSource, cfg.Source)
	assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
	assert.Equal(t, IsolationAutocommit, cfg.IsolationLevel)
}

func TestConfigValidate_KeepsExplicitValues(t *testing.T) {
	cfg, err := Config{
		Host:        "coordinator",
		Port:        7778,
		User:        "alice",
		Source:      "etl",
		MaxAttempts: 10,
	}.validate()
	require.NoError(t, err)

	assert.Equal(t, 7778, cfg.Port)
	assert.Equal(t, "alice", cfg.User)
	assert.Equal(t, "etl", cfg.Source)
	assert.Equal(t, 10, cfg.MaxAttempts)
}

func TestConfigValidate_Errors(t *testing.T) {
	_, err := Config{}.validate()
	assert.ErrorContains(t, err, "host is required")

	_, err = Config{Host: "h", Port: 70000}.validate()
	assert.ErrorContains(t, err, "invalid port")

	_, err = Config{Host: "h", MaxAttempts: -1}.validate()
	assert.ErrorContains(t, err, "MaxAttempts")

	_, err = Config{Host: "h", IsolationLevel: IsolationLevel(9)}.validate()
	assert.ErrorContains(t, err, "isolation level")
}

func TestConfigServerURL(t *testing.T) {
	cfg, err := Config{Host: "coordinator", Port: 8081}.validate()
	require.NoError(t, err)
	assert.Equal(t, "http://coordinator:8081", cfg.serverURL())
}
