// Package webhook delivers activity payloads to user-configured URLs.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/common"
	"github.com/Veraticus/the-recipe-must-flow/internal/service"
)

const (
	userAgent       = "recipe-must-flow/webhook"
	maxErrorBodyLen = 512
)

// Config configures webhook delivery.
type Config struct {
	Retry   service.RetryOptions
	Timeout time.Duration
}

// Sender posts JSON payloads to webhook URLs.
type Sender struct {
	httpClient *http.Client
	logger     *slog.Logger
	retry      service.RetryOptions
}

// NewSender creates a webhook sender.
func NewSender(cfg Config, logger *slog.Logger) *Sender {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = service.DefaultRetryOptions()
	}

	if logger == nil {
		logger = slog.Default()
	}
	if retry.Logger == nil {
		retry.Logger = logger
	}

	return &Sender{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		retry:      retry,
	}
}

// Send posts payload as JSON to url. Client errors are not retried.
func (s *Sender) Send(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	attempts := 0
	err = common.WithRetry(ctx, func() error {
		attempts++
		return s.post(ctx, url, body)
	}, s.retry)
	if err != nil {
		return fmt.Errorf("webhook delivery to %s failed: %w", url, err)
	}

	s.logger.Debug("webhook delivered", "url", url, "attempts", attempts, "bytes", len(body))
	return nil
}

func (s *Sender) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return common.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
	statusErr := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, statusErr)
	case resp.StatusCode >= 500:
		return statusErr
	default:
		return common.Permanent(statusErr)
	}
}

// Close releases idle connections.
func (s *Sender) Close() {
	s.httpClient.CloseIdleConnections()
}
