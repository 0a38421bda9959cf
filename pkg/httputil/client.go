package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/wonny/stockwatch/pkg/logger"
)

// Client talks to a running screener API (used by the CLI's remote commands).
// Idempotent requests are retried with exponential backoff; POST never is.
// ⭐ SSOT: 모든 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	baseURL     string
	httpClient  *http.Client
	logger      *logger.Logger
	retryConfig RetryConfig
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Enabled      bool
}

// StatusError is a non-2xx reply. Message is the API's error field when present.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// New creates a client for the API at baseURL
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(baseURL string, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second, // Default timeout
		},
		logger: log.Module("httputil"),
		retryConfig: RetryConfig{
			MaxRetries:   3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     10 * time.Second,
			Enabled:      true,
		},
	}
}

// WithTimeout sets the per-request timeout
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithRetry configures retry behavior
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retryConfig.MaxRetries = maxRetries
	c.retryConfig.InitialDelay = initialDelay
	c.retryConfig.Enabled = true
	return c
}

// DisableRetry disables automatic retry
func (c *Client) DisableRetry() *Client {
	c.retryConfig.Enabled = false
	return c
}

// Get performs a GET request on path
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Delete performs a DELETE request on path
func (c *Client) Delete(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// PostJSON performs a POST request with a JSON body
func (c *Client) PostJSON(ctx context.Context, path string, data interface{}) (*http.Response, error) {
	var body []byte
	if data != nil {
		var err error
		if body, err = json.Marshal(data); err != nil {
			return nil, fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}
	return c.do(ctx, http.MethodPost, path, body)
}

// DoJSON sends body (may be nil) and decodes a 2xx reply into out (may be nil).
// A non-2xx reply is returned as *StatusError.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}

	resp, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var apiErr struct {
			Error string `json:"error"`
		}
		if data, readErr := io.ReadAll(resp.Body); readErr == nil && json.Unmarshal(data, &apiErr) == nil {
			statusErr.Message = apiErr.Error
		}
		return statusErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// do executes the request with retry logic and logging
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	url := c.baseURL + path
	startTime := time.Now()

	c.logger.WithFields(map[string]interface{}{
		"method": method,
		"url":    url,
	}).Debug("HTTP request started")

	send := func() (*http.Response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to create %s request: %w", method, err))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		return c.httpClient.Do(req)
	}

	var resp *http.Response
	var err error
	if c.retryConfig.Enabled && method != http.MethodPost {
		resp, err = c.doWithRetry(ctx, url, send)
	} else {
		resp, err = send()
	}

	duration := time.Since(startTime)

	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"method":   method,
			"url":      url,
			"duration": duration.String(),
			"error":    err.Error(),
		}).Error("HTTP request failed")
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": resp.StatusCode,
		"duration":    duration.String(),
	}).Debug("HTTP request completed")

	return resp, nil
}

// doWithRetry retries transport errors and retryable statuses with exponential backoff.
// After the last attempt the final response is returned as-is so the caller sees its status.
func (c *Client) doWithRetry(ctx context.Context, url string, send func() (*http.Response, error)) (*http.Response, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryConfig.InitialDelay
	b.MaxInterval = c.retryConfig.MaxDelay
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retryConfig.MaxRetries)), ctx)

	var last *http.Response
	attempt := 0
	operation := func() error {
		attempt++
		if last != nil {
			last.Body.Close()
			last = nil
		}

		resp, err := send()
		if err != nil {
			return err
		}
		last = resp
		if IsRetryableError(resp.StatusCode) {
			return &StatusError{StatusCode: resp.StatusCode}
		}
		return nil
	}
	notify := func(err error, delay time.Duration) {
		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   delay.String(),
			"url":     url,
			"error":   err.Error(),
		}).Warn("Retrying HTTP request")
	}

	err := backoff.RetryNotify(operation, policy, notify)
	if last != nil {
		return last, nil
	}
	return nil, err
}

// IsRetryableError checks if a status should be retried
func IsRetryableError(statusCode int) bool {
	// Retry on 5xx server errors and 429 Too Many Requests
	return statusCode >= 500 || statusCode == 429
}
