// Package buildinfo exposes build-time version information.
//
// Values are injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/streamgate-go/internal/infra/buildinfo.Version=v1.0.0 \
//	  -X github.com/yndnr/streamgate-go/internal/infra/buildinfo.Commit=abc123"
//
// The same values identify the service to upstream sources through
// UserAgent.
package buildinfo
