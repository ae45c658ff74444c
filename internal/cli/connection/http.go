package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/streamgate-go/internal/infra/buildinfo"
)

// DefaultTimeout bounds control requests. Streams are bounded only by
// their context.
const DefaultTimeout = 30 * time.Second

// envelope mirrors the server response envelope.
type envelope struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Details   map[string]any  `json:"details"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status     int
	Code       string
	Message    string
	RequestID  string
	Details    map[string]any
	RetryAfter int
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %ds)", e.RetryAfter)
	}
	return msg
}

// HTTPClient provides HTTP communication with the server.
type HTTPClient struct {
	baseURL string
	bearer  string
	client  *http.Client
}

// NewHTTPClient creates a client. bearer may be empty for stream-only use.
func NewHTTPClient(server, bearer string) *HTTPClient {
	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &HTTPClient{
		baseURL: baseURL,
		bearer:  bearer,
		client:  &http.Client{},
	}
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request and decodes the envelope data into target.
func (c *HTTPClient) Get(ctx context.Context, path string, target any) error {
	return c.do(ctx, http.MethodGet, path, nil, target)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body, target any) error {
	return c.do(ctx, http.MethodPost, path, body, target)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, target any) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.addHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return ParseResponse(resp, target)
}

// Stream opens GET /v1/stream for secret. A nil error means the server
// answered 200 and the caller owns the body.
func (c *HTTPClient) Stream(ctx context.Context, secret string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/stream?token="+url.QueryEscape(secret), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent("streamgate-cli"))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, ParseResponse(resp, nil)
	}
	return resp, nil
}

// addHeaders adds authentication and common headers.
func (c *HTTPClient) addHeaders(req *http.Request) {
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent("streamgate-cli"))
}

// ParseResponse decodes a response envelope. Non-2xx responses become
// *APIError. The caller closes the body.
func ParseResponse(resp *http.Response, target any) error {
	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode >= 400 {
		apiErr := &APIError{
			Status:    resp.StatusCode,
			Code:      env.Code,
			Message:   env.Message,
			RequestID: env.RequestID,
			Details:   env.Details,
		}
		if decodeErr != nil || apiErr.Code == "" {
			apiErr.Code = strconv.Itoa(resp.StatusCode)
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		if s := resp.Header.Get("Retry-After"); s != "" {
			apiErr.RetryAfter, _ = strconv.Atoi(s)
		}
		return apiErr
	}

	if decodeErr != nil {
		return fmt.Errorf("parse response: %w", decodeErr)
	}
	if target != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return fmt.Errorf("parse response data: %w", err)
		}
	}
	return nil
}
