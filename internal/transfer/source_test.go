package transfer

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
)

func TestHTTPSource_Open(t *testing.T) {
	seen := make(chan [2]string, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- [2]string{r.Header.Get("User-Agent"), r.Header.Get(FormatHeader)}
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Length", "11")
		io.WriteString(w, "hello video")
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPSourceConfig{Timeout: 2 * time.Second})

	t.Run("ok", func(t *testing.T) {
		st, err := src.Open(t.Context(), domain.Resource{SourceURL: srv.URL + "/v.mp4", FormatID: "720p"})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer st.Body.Close()
		body, _ := io.ReadAll(st.Body)
		if string(body) != "hello video" || st.Size != 11 || st.ContentType != "video/mp4" {
			t.Errorf("stream = %+v body = %q", st, body)
		}
		h := <-seen
		if !strings.HasPrefix(h[0], "streamgate/") || h[1] != "720p" {
			t.Errorf("headers ua=%q format=%q", h[0], h[1])
		}
	})

	t.Run("upstream status", func(t *testing.T) {
		defer func() { <-seen }()
		_, err := src.Open(t.Context(), domain.Resource{SourceURL: srv.URL + "/missing", FormatID: "x"})
		if !errors.Is(err, domain.ErrUpstreamTransfer) {
			t.Errorf("Open() error = %v, want UPSTREAM_TRANSFER_ERROR", err)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		_, err := src.Open(t.Context(), domain.Resource{SourceURL: "http://127.0.0.1:1/x", FormatID: "x"})
		if !errors.Is(err, domain.ErrUpstreamTransfer) {
			t.Errorf("Open() error = %v, want UPSTREAM_TRANSFER_ERROR", err)
		}
	})
}

func TestHTTPSource_AllowedHosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer srv.Close()
	u, _ := url.Parse(srv.URL)

	allowed := NewHTTPSource(HTTPSourceConfig{AllowedHosts: []string{" " + strings.ToUpper(u.Hostname()) + " "}})
	st, err := allowed.Open(t.Context(), domain.Resource{SourceURL: srv.URL, FormatID: "x"})
	if err != nil {
		t.Fatalf("allowed host error = %v", err)
	}
	st.Body.Close()

	denied := NewHTTPSource(HTTPSourceConfig{AllowedHosts: []string{"cdn.example.com"}})
	if _, err := denied.Open(t.Context(), domain.Resource{SourceURL: srv.URL, FormatID: "x"}); !errors.Is(err, domain.ErrUpstreamTransfer) {
		t.Errorf("denied host error = %v", err)
	}
}

func TestHTTPSource_RedirectAllowedHosts(t *testing.T) {
	var hits atomic.Int32
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, "internal")
	}))
	defer target.Close()
	tu, _ := url.Parse(target.URL)

	edge := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/same":
			http.Redirect(w, r, "/final", http.StatusFound)
		case "/final":
			io.WriteString(w, "ok")
		default:
			http.Redirect(w, r, "http://localhost:"+tu.Port()+"/", http.StatusFound)
		}
	}))
	defer edge.Close()

	src := NewHTTPSource(HTTPSourceConfig{AllowedHosts: []string{"127.0.0.1"}})

	t.Run("same host", func(t *testing.T) {
		st, err := src.Open(t.Context(), domain.Resource{SourceURL: edge.URL + "/same", FormatID: "x"})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer st.Body.Close()
		if body, _ := io.ReadAll(st.Body); string(body) != "ok" {
			t.Errorf("body = %q", body)
		}
	})

	t.Run("other host", func(t *testing.T) {
		st, err := src.Open(t.Context(), domain.Resource{SourceURL: edge.URL + "/away", FormatID: "x"})
		if err == nil {
			st.Body.Close()
			t.Fatal("Open() followed a redirect to a host outside the allow-list")
		}
		if !errors.Is(err, domain.ErrUpstreamTransfer) {
			t.Errorf("Open() error = %v, want UPSTREAM_TRANSFER_ERROR", err)
		}
		if n := hits.Load(); n != 0 {
			t.Errorf("redirect target hit %d times", n)
		}
	})
}

func TestEngine_OverHTTP(t *testing.T) {
	data := payload(200 << 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/webm")
		w.Write(data)
	}))
	defer srv.Close()

	e := newTestEngine(NewHTTPSource(HTTPSourceConfig{}), Config{}, nil)
	claim := &domain.Claim{TokenID: "sgst-x", Resource: domain.Resource{SourceURL: srv.URL, FormatID: "best"}}

	sink := &countingSink{}
	res, err := e.Transfer(t.Context(), claim, sink)
	if err != nil || res.Bytes != int64(len(data)) || sink.Len() != len(data) {
		t.Errorf("Transfer() = %+v, %v", res, err)
	}
}
