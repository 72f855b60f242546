package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	mgr, err := NewSessionManager(time.Hour)
	require.NoError(t, err)

	token, exp, err := mgr.Issue("admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := mgr.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "admin", claims.Subject)
}

func TestSessionExpired(t *testing.T) {
	mgr, err := NewSessionManager(-time.Minute)
	require.NoError(t, err)

	token, _, err := mgr.Issue("admin")
	require.NoError(t, err)

	_, err = mgr.Validate(token)
	assert.Error(t, err, "expired token must not validate")
}

func TestSessionForeignKeyRejected(t *testing.T) {
	// A token signed by one manager must not validate against another:
	// each process start generates a fresh key pair.
	a, err := NewSessionManager(time.Hour)
	require.NoError(t, err)
	b, err := NewSessionManager(time.Hour)
	require.NoError(t, err)

	token, _, err := a.Issue("admin")
	require.NoError(t, err)

	_, err = b.Validate(token)
	assert.Error(t, err)
}

func TestSessionGarbageToken(t *testing.T) {
	mgr, err := NewSessionManager(time.Hour)
	require.NoError(t, err)

	for _, tok := range []string{"", "not.a.jwt", "aaaa.bbbb.cccc"} {
		_, err := mgr.Validate(tok)
		assert.Error(t, err, tok)
	}
}
