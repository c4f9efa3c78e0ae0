package secret

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
)

// Length is the amount of random bytes a secret consists of
const Length = 32

// New generates a new cryptographically secure secret and returns its URL-safe base64 representation together with
// the hex-encoded SHA-512 hash of its bytes
func New() (string, string, error) {
	bytes := make([]byte, Length)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", err
	}
	sum := sha512.Sum512(bytes)
	return base64.RawURLEncoding.EncodeToString(bytes), hex.EncodeToString(sum[:]), nil
}

// Hash decodes the given base64 representation of a secret and returns its hex-encoded SHA-512 hash
func Hash(raw string) (string, error) {
	bytes, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return "", err
	}
	sum := sha512.Sum512(bytes)
	return hex.EncodeToString(sum[:]), nil
}
