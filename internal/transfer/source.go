package transfer

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/internal/infra/buildinfo"
)

// Stream is an opened upstream body.
type Stream struct {
	Body        io.ReadCloser
	Size        int64 // -1 when unknown
	ContentType string
}

// Source opens the bytes behind a resource. The returned body must stop
// blocking once ctx is cancelled or the body is closed.
type Source interface {
	Open(ctx context.Context, res domain.Resource) (*Stream, error)
}

// FormatHeader carries the requested format id to the upstream.
const FormatHeader = "X-Format-ID"

// HTTPSourceConfig configures HTTPSource.
type HTTPSourceConfig struct {
	// Timeout bounds connecting and waiting for response headers. The
	// body itself is not bounded; cancellation handles that.
	Timeout time.Duration

	// AllowedHosts restricts upstream hosts. Empty allows any host.
	AllowedHosts []string

	// RootCAs verifies upstream TLS. Nil uses the system roots.
	RootCAs *x509.CertPool

	// Client overrides the HTTP client.
	Client *http.Client
}

// HTTPSource fetches resources over HTTP GET.
type HTTPSource struct {
	client    *http.Client
	allowed   map[string]struct{}
	userAgent string
}

// NewHTTPSource creates an HTTPSource.
func NewHTTPSource(cfg HTTPSourceConfig) *HTTPSource {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				TLSClientConfig:       &tls.Config{RootCAs: cfg.RootCAs, MinVersion: tls.VersionTLS12},
				MaxIdleConnsPerHost:   8,
				IdleConnTimeout:       90 * time.Second,
			},
		}
	}

	s := &HTTPSource{userAgent: buildinfo.UserAgent("streamgate")}
	if len(cfg.AllowedHosts) > 0 {
		s.allowed = make(map[string]struct{}, len(cfg.AllowedHosts))
		for _, h := range cfg.AllowedHosts {
			s.allowed[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
		}
		// Every redirect hop is held to the same allow-list.
		c := *client
		next := c.CheckRedirect
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if err := s.checkHost(req.URL.Hostname()); err != nil {
				return err
			}
			if next != nil {
				return next(req, via)
			}
			if len(via) >= 10 {
				return fmt.Errorf("stopped after %d redirects", len(via))
			}
			return nil
		}
		client = &c
	}
	s.client = client
	return s
}

func (s *HTTPSource) checkHost(host string) error {
	if s.allowed == nil {
		return nil
	}
	host = strings.ToLower(host)
	if _, ok := s.allowed[host]; !ok {
		return domain.ErrUpstreamTransfer.WithDetails(fmt.Sprintf("host %q not allowed", host))
	}
	return nil
}

// Open issues the GET and returns the body on a 2xx response.
func (s *HTTPSource) Open(ctx context.Context, res domain.Resource) (*Stream, error) {
	if err := s.checkHost(res.Host()); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, res.SourceURL, nil)
	if err != nil {
		return nil, domain.ErrUpstreamTransfer.WithCause(err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	if res.FormatID != "" {
		req.Header.Set(FormatHeader, res.FormatID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.ErrUpstreamTransfer.WithCause(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, domain.ErrUpstreamTransfer.WithDetails(fmt.Sprintf("upstream status %d", resp.StatusCode))
	}

	return &Stream{
		Body:        resp.Body,
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
