// Package auth guards the mutating surfaces of the directory: the API-key
// policy in front of the JSON API, argon2id credential hashing for the admin
// login, and the signed session cookie the admin UI rides on.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// KeyHeader is the request header carrying the shared-secret API key.
const KeyHeader = "X-API-Key"

// ErrUnauthorized is returned by Policy.Allow when a request must be denied.
var ErrUnauthorized = errors.New("auth: unauthorized")

// Policy decides whether an API request may proceed. It is a pure function
// of its configuration and the request line, so it is testable without an
// HTTP stack and composed as middleware in front of the API route table.
//
// Evaluation order:
//  1. Public path prefixes are always allowed; the correction-report
//     endpoint accepts unauthenticated submissions.
//  2. With a configured key, only an exact header match passes, for any
//     method.
//  3. With no configured key, safe methods pass and mutations are denied:
//     a zero-configuration deployment is a public read-only API.
type Policy struct {
	// Key is the configured shared secret; empty means no key is set.
	Key string
	// PublicPrefixes lists path prefixes exempt from the key check.
	PublicPrefixes []string
}

// Allow returns nil when the request may proceed, ErrUnauthorized otherwise.
func (p Policy) Allow(method, path, presentedKey string) error {
	for _, prefix := range p.PublicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return nil
		}
	}
	if p.Key != "" {
		if subtle.ConstantTimeCompare([]byte(presentedKey), []byte(p.Key)) == 1 {
			return nil
		}
		return ErrUnauthorized
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	default:
		return ErrUnauthorized
	}
}
