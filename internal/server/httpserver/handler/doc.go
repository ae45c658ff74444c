// Package handler implements the StreamGate HTTP endpoints.
//
// JSON responses share one envelope (see Response). The stream endpoint
// writes raw bytes on success and the envelope only when it fails before
// the first byte.
package handler
