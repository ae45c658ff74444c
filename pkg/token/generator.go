package token

import (
	"crypto/rand"
	"encoding/base64"
)

// DefaultLength is the default number of random bytes (256 bits).
const DefaultLength = 32

// Generate returns DefaultLength random bytes, Base64 RawURL encoded.
func Generate() (string, error) {
	return GenerateWithLength(DefaultLength)
}

// GenerateWithLength returns length random bytes, Base64 RawURL encoded.
func GenerateWithLength(length int) (string, error) {
	b, err := GenerateBytes(length)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateBytes returns length random bytes.
func GenerateBytes(length int) ([]byte, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// EncodedLength returns the Base64 RawURL length of n raw bytes.
func EncodedLength(n int) int {
	return base64.RawURLEncoding.EncodedLen(n)
}

// IsEncoded reports whether s is valid Base64 RawURL that decodes to
// exactly n bytes.
func IsEncoded(s string, n int) bool {
	if len(s) != EncodedLength(n) {
		return false
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil && len(b) == n
}
