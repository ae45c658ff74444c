package domain

import (
	"strings"

	"github.com/yndnr/streamgate-go/pkg/token"
)

// Secret format constants.
const (
	// SecretPrefix marks a plaintext stream secret.
	SecretPrefix = "sgtk_"

	// SecretHashPrefix marks a stored secret hash.
	SecretHashPrefix = "sgth_"

	// SecretBytesLength is the number of random bytes in a secret (256 bits).
	SecretBytesLength = 32

	// SecretBodyLength is the Base64 RawURL length of the random bytes (32 -> 43).
	SecretBodyLength = 43

	// SecretLength is the total secret length (prefix + body).
	SecretLength = len(SecretPrefix) + SecretBodyLength // 48

	// SecretHashLength is the total hash length (prefix + hex SHA-256).
	SecretHashLength = len(SecretHashPrefix) + 64 // 69
)

// GenerateSecret draws a new stream secret from the CSPRNG and returns it
// together with its hash.
//
// The plaintext must only ever be handed to the requester once, in the
// issuance response. Never store or log it.
func GenerateSecret() (plaintext string, hash string, err error) {
	body, err := token.GenerateWithLength(SecretBytesLength)
	if err != nil {
		return "", "", ErrInternal.WithCause(err)
	}
	plaintext = SecretPrefix + body
	return plaintext, HashSecret(plaintext), nil
}

// HashSecret computes the stored form of a secret: sgth_{hex_sha256}.
func HashSecret(plaintext string) string {
	return SecretHashPrefix + token.Hash(plaintext)
}

// VerifySecret reports whether plaintext hashes to hash, in constant time.
func VerifySecret(plaintext, hash string) bool {
	return token.Equal(HashSecret(plaintext), hash)
}

// ValidateSecretFormat reports whether s is shaped like a secret we issue:
// the sgtk_ prefix followed by 43 Base64 RawURL characters.
func ValidateSecretFormat(s string) bool {
	if len(s) != SecretLength || !strings.HasPrefix(s, SecretPrefix) {
		return false
	}
	return token.IsEncoded(s[len(SecretPrefix):], SecretBytesLength)
}

// ValidateSecretHashFormat reports whether h is shaped like a stored hash.
func ValidateSecretHashFormat(h string) bool {
	if len(h) != SecretHashLength || !strings.HasPrefix(h, SecretHashPrefix) {
		return false
	}
	for _, c := range h[len(SecretHashPrefix):] {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// MaskSecret masks a secret for safe display.
// Example: sgtk_ABC...xyz
func MaskSecret(s string) string {
	if !strings.HasPrefix(s, SecretPrefix) {
		return "***REDACTED***"
	}
	body := s[len(SecretPrefix):]
	if len(body) <= 6 {
		return SecretPrefix + "***"
	}
	return SecretPrefix + body[:3] + "..." + body[len(body)-3:]
}
