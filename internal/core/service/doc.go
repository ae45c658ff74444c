// Package service implements the stream token core: issuance, the quota
// and concurrency guards that gate it, and single-use validation.
//
// Services depend on the TokenStore port only; storage engines live in
// internal/storage. Time is injected through pkg/clock so window and
// expiry boundaries are testable.
package service
