// Package transport provides the byte-stream capability consumed by the
// pipeline: issue a generation request, obtain the chunked response body.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tessellary/ideastream/iox"
	"github.com/tessellary/ideastream/types"
)

// Opener opens a streaming generation request. The returned ReadCloser is
// the raw chunked response body; the caller owns it and must close it.
// Cancellation flows through ctx and unblocks in-flight reads.
type Opener interface {
	Open(ctx context.Context, req *types.Request) (io.ReadCloser, error)
}

// Config configures the HTTP stream client.
type Config struct {
	// URL is the generation endpoint (required).
	URL string
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
	// ConnectTimeout bounds connection establishment and response headers.
	// It must not bound the body: generation streams stay open for minutes.
	// Default 30s.
	ConnectTimeout time.Duration
}

// DefaultConnectTimeout is the default response-header timeout.
const DefaultConnectTimeout = 30 * time.Second

// StatusError is returned when the endpoint answers with a non-2xx status
// before any stream is available.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Client opens generation streams over HTTP.
type Client struct {
	config Config
	client *http.Client
}

// New creates a stream client from the given config.
// Returns an error if the URL is empty.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("stream client requires a URL")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	// No http.Client.Timeout: it would cover the whole body and kill
	// long-lived streams. Header arrival is bounded instead.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.ConnectTimeout

	return &Client{
		config: cfg,
		client: &http.Client{Transport: transport},
	}, nil
}

// Open POSTs the request body and returns the response stream.
//
// The Accept header follows the endpoint's event-stream convention even
// though the payload is line-delimited JSON rather than real SSE.
func (c *Client) Open(ctx context.Context, req *types.Request) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("transport: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("transport: create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transport: request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		iox.DiscardClose(resp.Body)
		return nil, fmt.Errorf("transport: %w", &StatusError{Code: resp.StatusCode})
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, errors.New("transport: response has no readable body")
	}

	return resp.Body, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// Verify Client implements the opener interface.
var _ Opener = (*Client)(nil)
