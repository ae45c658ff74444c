// Package tlsroots loads TLS material for streamgate-server.
//
// Roots builds the CA pool used to verify upstream sources. CertReloader
// serves the listener certificate and swaps it when the files change on
// disk, so rotated certificates apply without a restart.
package tlsroots
