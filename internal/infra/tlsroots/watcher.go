package tlsroots

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CertReloader holds the listener key pair and reloads it on change.
type CertReloader struct {
	certFile string
	keyFile  string
	cert     atomic.Pointer[tls.Certificate]
	logger   *slog.Logger
	debounce time.Duration
}

// ReloaderOption configures a CertReloader.
type ReloaderOption func(*CertReloader)

// WithLogger sets the logger for the reloader.
func WithLogger(logger *slog.Logger) ReloaderOption {
	return func(r *CertReloader) {
		r.logger = logger
	}
}

// WithDebounce sets how long to wait for writes to settle.
func WithDebounce(d time.Duration) ReloaderOption {
	return func(r *CertReloader) {
		r.debounce = d
	}
}

// NewCertReloader loads the key pair once and fails if it is unusable.
func NewCertReloader(certFile, keyFile string, opts ...ReloaderOption) (*CertReloader, error) {
	r := &CertReloader{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   slog.Default(),
		debounce: 300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.Reload(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial load: %w", err)
	}
	return r, nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (r *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return r.cert.Load(), nil
}

// Reload reads the key pair now. A bad pair keeps the current one.
func (r *CertReloader) Reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}
	r.cert.Store(&cert)
	return nil
}

// Run watches the directories of both files until ctx ends. Directories
// are watched so that atomic renames are seen.
func (r *CertReloader) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	defer watcher.Close()

	files := map[string]struct{}{}
	for _, f := range []string{r.certFile, r.keyFile} {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("tlsroots: %w", err)
		}
		files[abs] = struct{}{}
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("tlsroots: watch %s: %w", filepath.Dir(abs), err)
		}
	}

	r.logger.Info("certificate watcher started", "cert_file", r.certFile, "key_file", r.keyFile)

	timer := time.NewTimer(r.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(event.Name)
			if _, ok := files[abs]; !ok {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(r.debounce)

		case <-timer.C:
			if err := r.Reload(); err != nil {
				r.logger.Error("certificate reload failed", "cert_file", r.certFile, "error", err)
				continue
			}
			r.logger.Info("certificate reloaded", "cert_file", r.certFile)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("certificate watcher error", "error", err)
		}
	}
}
