// Package output renders streamgate-cli results.
//
// Results print as a table (default), JSON or YAML. Long fetches draw a
// single-line progress bar that is redrawn in place on a terminal.
package output
