// Package main provides the entry point for streamgate-cli.
//
// streamgate-cli issues and lists stream tokens and downloads the
// resource behind a token with a live progress bar.
package main
