package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const (
	// RefreshSecretBytes is the amount of randomness in an opaque refresh secret.
	RefreshSecretBytes = 48
	// CSRFTokenBytes is the amount of randomness in a session CSRF token.
	CSRFTokenBytes = 32
)

// GenerateRefreshToken returns a new opaque refresh secret: RefreshSecretBytes of
// crypto/rand output, base64url without padding. It is a capability, never parsed.
func GenerateRefreshToken() (string, error) {
	return randomToken(RefreshSecretBytes)
}

// GenerateCSRFToken returns a random per-session CSRF token.
func GenerateCSRFToken() (string, error) {
	return randomToken(CSRFTokenBytes)
}

// HashRefreshToken returns a SHA-256 hash of the refresh token string, hex-encoded.
// Only this value is stored, so a store dump cannot be replayed as a refresh secret.
func HashRefreshToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// NameFingerprint returns the first 16 hex digits of SHA-256(name). Audit records use it to
// correlate failed logins for an unknown name without storing what was typed, which is
// sometimes a password.
func NameFingerprint(name string) string {
	h := sha256.Sum256([]byte(name))
	return hex.EncodeToString(h[:8])
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
