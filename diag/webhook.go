package diag

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
	"github.com/tessellary/ideastream/log"
)

// DefaultTimeout is the default per-request timeout for webhook reports.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// WebhookConfig configures the webhook sink.
type WebhookConfig struct {
	// URL is the HTTP endpoint to POST reports to (required).
	URL string
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure (default 3).
	Retries int
}

// WebhookSink publishes fault reports as JSON over HTTP POST.
// Retries with exponential backoff on transient failures; delivery
// failures are logged and swallowed so a broken monitoring endpoint
// never affects the pipeline.
type WebhookSink struct {
	config WebhookConfig
	client *http.Client
	logger *log.Logger
}

// report is the wire shape of a published fault.
type report struct {
	Feature    string            `json:"feature"`
	RunID      string            `json:"run_id"`
	Phase      string            `json:"phase"`
	Error      string            `json:"error"`
	Input      map[string]string `json:"input,omitempty"`
	ReportedAt string            `json:"reported_at"`
}

// NewWebhookSink creates a webhook sink from the given config.
// Returns an error if the URL is empty.
func NewWebhookSink(cfg WebhookConfig, logger *log.Logger) (*WebhookSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook sink requires a URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if logger == nil {
		logger = log.Nop()
	}

	return &WebhookSink{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Report implements Sink.
func (s *WebhookSink) Report(ctx context.Context, err error, rctx Context) {
	r := report{
		Feature:    rctx.Feature,
		RunID:      rctx.RunID,
		Phase:      string(rctx.Phase),
		Error:      err.Error(),
		Input:      rctx.Input,
		ReportedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if pubErr := s.publish(ctx, r); pubErr != nil {
		s.logger.Warn("diagnostics delivery failed", map[string]any{
			"error":  pubErr.Error(),
			"run_id": rctx.RunID,
		})
	}
}

// StatusError is returned for non-2xx HTTP responses. Wrapping the status
// code lets publish distinguish retriable (5xx) from non-retriable (4xx)
// failures.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// publish sends the report, retrying with exponential backoff on 5xx
// responses and network errors. 4xx responses fail immediately.
func (s *WebhookSink) publish(ctx context.Context, r report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("webhook: marshal report: %w", err)
	}

	var lastErr error
	// attempts = 1 initial + retries
	attempts := 1 + s.config.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("webhook: context canceled: %w", err)
		}

		// Exponential backoff before retries (not before first attempt)
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("webhook: context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = s.doRequest(ctx, body)
		if lastErr == nil {
			return nil
		}

		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
			return fmt.Errorf("webhook: non-retriable error: %w", lastErr)
		}
	}

	return fmt.Errorf("webhook: failed after %d attempts: %w", attempts, lastErr)
}

// doRequest performs a single HTTP POST and returns nil on 2xx.
func (s *WebhookSink) doRequest(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}

	return nil
}

// Close releases sink resources.
func (s *WebhookSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// Verify WebhookSink implements the sink interface.
var _ Sink = (*WebhookSink)(nil)
