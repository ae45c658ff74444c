// Package main provides the entry point for streamgate-server.
//
// streamgate-server issues single-use stream tokens behind per-user
// quota and concurrency caps, and relays upstream bytes to clients that
// redeem them.
package main
