// Package identity turns an HS256 bearer JWT into a domain.Identity.
//
// The subject claim becomes the owner id and a configurable claim
// (default "tier") selects the policy tier. Signing exists for operator
// tooling and tests; production callers receive tokens from the identity
// provider that shares the secret.
package identity
