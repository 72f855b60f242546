package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionCookie is the name of the admin UI's session cookie.
const SessionCookie = "bindex_session"

const sessionIssuer = "bindex"

// SessionClaims are the claims carried by an admin session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// SessionManager issues and validates the signed tokens stored in the admin
// session cookie. Signing uses an Ed25519 key pair generated at startup;
// sessions therefore do not survive a restart, which is acceptable for a
// single-operator admin UI and avoids any key management.
type SessionManager struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	ttl        time.Duration
}

// NewSessionManager generates an ephemeral key pair.
func NewSessionManager(ttl time.Duration) (*SessionManager, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("auth: generate session key: %w", err)
	}
	return &SessionManager{privateKey: priv, publicKey: pub, ttl: ttl}, nil
}

// Issue creates a signed session token for the given admin username.
func (m *SessionManager) Issue(username string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(m.ttl)

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.New().String(),
		},
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(m.privateKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign session: %w", err)
	}
	return signed, exp, nil
}

// Validate parses and verifies a session token, returning its claims.
func (m *SessionManager) Validate(tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&SessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return m.publicKey, nil
		},
		jwt.WithIssuer(sessionIssuer),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: validate session: %w", err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid session claims")
	}
	return claims, nil
}
