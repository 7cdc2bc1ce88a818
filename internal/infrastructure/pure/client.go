// Package pure talks to the research-information system: the person
// directory, the organisation registry and the press-media store.
package pure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"ClippingsImporter/internal/config"
	"ClippingsImporter/internal/logging"
)

// ErrUnexpectedStatus marks a non-success HTTP response.
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError carries the HTTP status of a failed call.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pure returned %s", e.Status)
}

// Is lets errors.Is match ErrUnexpectedStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// Client is safe for concurrent use: the http.Client and the rate limiter
// are shared, backoff state is per call.
type Client struct {
	baseURL        *url.URL
	apiKey         string
	http           *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	initialBackoff time.Duration
	logger         *slog.Logger
}

// NewClient builds a client from configuration. A nil httpClient gets one
// with the configured timeout.
func NewClient(cfg config.PureConfig, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	base := cfg.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid pure base url %s: %w", cfg.BaseURL, err)
	}

	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	if logger == nil {
		logger = logging.Discard()
	}

	return &Client{
		baseURL:        parsed,
		apiKey:         cfg.APIKey,
		http:           httpClient,
		limiter:        rate.NewLimiter(limit, burst),
		maxRetries:     cfg.MaxRetries,
		initialBackoff: time.Second,
		logger:         logger,
	}, nil
}

// do sends one logical request, retrying transport errors and 429/5xx with
// exponential backoff, and decodes a JSON body into v.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, v any) error {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialBackoff
	retries := c.maxRetries
	if retries < 0 {
		retries = 0
	}

	attempt := 0
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("api-key", c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Debug("pure request failed", "path", path, "attempt", attempt, "error", err)
			return fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			statusErr := &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
			if retryable(resp.StatusCode) {
				c.logger.Debug("pure request retryable status", "path", path, "attempt", attempt, "status", resp.Status)
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		if v == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx))
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
