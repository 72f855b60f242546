package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvIntValid(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	v, err := envInt("TEST_INT", 0)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestEnvIntFallback(t *testing.T) {
	v, err := envInt("TEST_INT_MISSING", 99)
	require.NoError(t, err)
	assert.Equal(t, 99, v)
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	_, err := envInt("TEST_INT_BAD", 0)
	require.Error(t, err)
	assert.Equal(t, `TEST_INT_BAD="abc" is not a valid integer`, err.Error())
}

func TestEnvBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	v, err := envBool("TEST_BOOL", false)
	require.NoError(t, err)
	assert.True(t, v)

	t.Setenv("TEST_BOOL_BAD", "maybe")
	_, err = envBool("TEST_BOOL_BAD", false)
	require.Error(t, err)
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("TEST_DUR", "5s")
	v, err := envDuration("TEST_DUR", 0)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, v)

	t.Setenv("TEST_DUR_BAD", "five-seconds")
	_, err = envDuration("TEST_DUR_BAD", 0)
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "bindex.db", cfg.DatabaseURL)
	assert.Equal(t, "", cfg.APIKey)
	assert.False(t, cfg.TelegramEnabled)
	assert.Equal(t, 5*time.Second, cfg.StopTimeout)
	assert.Equal(t, 30*time.Second, cfg.TelegramPollTimeout)
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	t.Setenv("BINDEX_PORT", "not-a-port")
	_, err := Load()
	require.Error(t, err)
}

func TestValidateHalfCredentials(t *testing.T) {
	t.Setenv("BINDEX_ADMIN_USER", "admin")
	_, err := Load()
	require.Error(t, err, "admin user without password hash is a misconfiguration")

	t.Setenv("BINDEX_ADMIN_PASSWORD_HASH", "salt$hash")
	_, err = Load()
	require.NoError(t, err)
}

func TestValidatePortRange(t *testing.T) {
	t.Setenv("BINDEX_PORT", "70000")
	_, err := Load()
	require.Error(t, err)
}
