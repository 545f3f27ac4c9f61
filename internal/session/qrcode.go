package session

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
)

const (
	secretBytes = 32
	hintLen     = 8
)

// newQRCode returns "<hint>.<secret>" where hint is the first characters of
// the session id and secret is 256 random bits, base64url without padding.
func newQRCode(sessionID string) (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	hint := sessionID
	if len(hint) > hintLen {
		hint = hint[:hintLen]
	}
	return hint + "." + base64.RawURLEncoding.EncodeToString(buf), nil
}

// wellFormed rejects tokens that could never have been issued so lookups
// skip the store for obvious garbage.
func wellFormed(token string) bool {
	hint, secret, ok := strings.Cut(token, ".")
	if !ok || hint == "" || len(hint) > hintLen {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(secret)
	return err == nil && len(raw) == secretBytes
}
