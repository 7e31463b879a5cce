package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/0xrjw/file-agent/pkg/logger"
)

// httpTransport implements Transport over HTTP POST.
type httpTransport struct {
	endpoint   string
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	logger     logger.Logger
}

// NewTransport creates an HTTP transport for the configured endpoint.
func NewTransport(cfg Config, log logger.Logger) Transport {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	var lim *rate.Limiter
	if cfg.RateLimit > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &httpTransport{
		endpoint:   cfg.Endpoint,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    lim,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     log,
	}
}

// Publish implements Transport.Publish.
func (t *httpTransport) Publish(ctx context.Context, record *FileRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record for %s: %w", record.Path, err)
	}

	var lastErr error
	delay := t.retryDelay
	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		if t.limiter != nil {
			if waitErr := t.limiter.Wait(ctx); waitErr != nil {
				return waitErr
			}
		}

		lastErr = t.post(ctx, body)
		if lastErr == nil {
			return nil
		}

		t.logger.Warn("publish attempt failed",
			"path", record.Path,
			"attempt", attempt,
			"error", lastErr)

		if attempt == t.maxRetries {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		delay *= 2
	}

	return fmt.Errorf("failed to publish %s after %d attempts: %w",
		record.Path, t.maxRetries, lastErr)
}

// post performs one POST of an encoded record.
func (t *httpTransport) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // nolint:errcheck

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body) // nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s", ErrEndpointStatus, resp.Status)
	}
	return nil
}
