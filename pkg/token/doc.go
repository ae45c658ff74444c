// Package token provides secret generation and hashing primitives.
//
// Secrets are drawn from crypto/rand and encoded with Base64 RawURL so
// they can travel in query strings and headers unescaped. Hashes are
// hex-encoded SHA-256 digests; comparisons are constant time.
//
// The package knows nothing about prefixes or record layout. Those live
// in internal/core/domain.
package token
