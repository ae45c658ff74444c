// Package connection is the streamgate-cli HTTP client.
package connection
