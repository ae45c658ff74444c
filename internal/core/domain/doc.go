// Package domain defines the core domain models for StreamGate.
//
// Domain models are pure value objects without I/O dependencies:
//
//   - StreamToken: the single-use, time-bound grant and its derived state
//   - Secret helpers: generation, hashing, format validation, masking
//   - Resource, ClientBinding, Claim, Identity: values bound to a grant
//   - TierPolicy: per-tier quota and concurrency limits
//   - Errors: coded domain errors and typed denials
package domain
