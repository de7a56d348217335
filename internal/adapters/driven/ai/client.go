package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Option customizes an AI adapter
type Option func(*clientOptions)

type clientOptions struct {
	retry      domain.RetrySettings
	httpClient *http.Client
	dimensions int
}

// WithRetry sets the retry, timeout and throttling policy
func WithRetry(settings domain.RetrySettings) Option {
	return func(o *clientOptions) { o.retry = settings }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithDimensions overrides the embedding size for models missing from the built-in table
func WithDimensions(n int) Option {
	return func(o *clientOptions) { o.dimensions = n }
}

func applyOptions(opts []Option) clientOptions {
	o := clientOptions{retry: domain.DefaultRetrySettings()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.retry.RequestTimeout <= 0 {
		o.retry.RequestTimeout = domain.DefaultRetrySettings().RequestTimeout
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}
	return o
}

// apiClient sends JSON requests with per-attempt timeouts, throttling and bounded retries.
type apiClient struct {
	provider string
	baseURL  string
	headers  map[string]string
	http     *http.Client
	timeout  time.Duration
	retry    RetryPolicy
	limiter  *rateLimiter

	// decodeError extracts the provider's error message from a non-2xx body
	decodeError func(body []byte) string
}

func newAPIClient(provider, baseURL string, headers map[string]string, o clientOptions, decodeError func([]byte) string) *apiClient {
	return &apiClient{
		provider:    provider,
		baseURL:     baseURL,
		headers:     headers,
		http:        o.httpClient,
		timeout:     o.retry.RequestTimeout,
		retry:       NewRetryPolicy(o.retry),
		limiter:     newRateLimiter(o.retry.RequestsPerSecond),
		decodeError: decodeError,
	}
}

// postJSON posts reqBody to path and decodes a 2xx response into respBody.
func (c *apiClient) postJSON(ctx context.Context, path string, reqBody, respBody any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	return c.retry.Do(ctx, func(ctx context.Context) error {
		return c.attempt(ctx, path, body, respBody)
	})
}

// postJSONOnce is postJSON without retries
func (c *apiClient) postJSONOnce(ctx context.Context, path string, reqBody, respBody any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.attempt(ctx, path, body, respBody)
}

// post picks the single-attempt path when once is set
func (c *apiClient) post(ctx context.Context, once bool, path string, reqBody, respBody any) error {
	if once {
		return c.postJSONOnce(ctx, path, reqBody, respBody)
	}
	return c.postJSON(ctx, path, reqBody, respBody)
}

func (c *apiClient) attempt(ctx context.Context, path string, body []byte, respBody any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// The caller's own cancellation is final; anything else is a transport failure
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s request failed: %v", domain.ErrServiceUnavailable, c.provider, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read %s response: %v", domain.ErrServiceUnavailable, c.provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(c.provider, resp, c.decodeError(respBytes))
		if errors.Is(apiErr, domain.ErrRateLimited) {
			c.limiter.Pause(apiErr.RetryAfter)
		}
		return apiErr
	}

	if err := json.Unmarshal(respBytes, respBody); err != nil {
		return fmt.Errorf("%w: failed to parse %s response: %v", domain.ErrServiceUnavailable, c.provider, err)
	}
	return nil
}

func (c *apiClient) close() {
	c.http.CloseIdleConnections()
}
