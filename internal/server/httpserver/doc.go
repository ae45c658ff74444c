// Package httpserver wires the StreamGate HTTP surface: the router, the
// middleware chain (request id, recovery, audit, rate limiting, bearer
// authentication) and the http.Server lifecycle.
package httpserver
