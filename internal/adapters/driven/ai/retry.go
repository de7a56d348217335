package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// RetryPolicy decides how often and how long to wait before repeating a failed call.
// Only domain.ErrRateLimited and domain.ErrServiceUnavailable are retried.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// sleep is swapped in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy builds a policy from settings, filling unset fields with defaults.
func NewRetryPolicy(settings domain.RetrySettings) RetryPolicy {
	defaults := domain.DefaultRetrySettings()
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = defaults.MaxAttempts
	}
	if settings.InitialBackoff <= 0 {
		settings.InitialBackoff = defaults.InitialBackoff
	}
	if settings.MaxBackoff <= 0 {
		settings.MaxBackoff = defaults.MaxBackoff
	}
	return RetryPolicy{
		MaxAttempts:    settings.MaxAttempts,
		InitialBackoff: settings.InitialBackoff,
		MaxBackoff:     settings.MaxBackoff,
	}
}

// Backoff returns the wait before retry number attempt (0-based), doubling up to MaxBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.InitialBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Do runs fn until it succeeds, fails with a non-retryable error, or attempts run out.
// A Retry-After hint from the service replaces the computed backoff when it is longer.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !domain.IsRetryable(err) || attempt == attempts-1 {
			break
		}

		wait := p.Backoff(attempt)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.RetryAfter > wait {
			wait = apiErr.RetryAfter
			if wait > p.MaxBackoff*4 {
				wait = p.MaxBackoff * 4
			}
		}
		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			return fmt.Errorf("%w (retry aborted: %v)", err, sleepErr)
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// APIError is a failed call to an AI provider, classified into a domain error kind.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	RetryAfter time.Duration
	kind       error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API returned status %d: %v", e.Provider, e.StatusCode, e.kind)
	}
	return fmt.Sprintf("%s API returned status %d: %v: %s", e.Provider, e.StatusCode, e.kind, e.Message)
}

// Unwrap exposes the domain error kind to errors.Is
func (e *APIError) Unwrap() error {
	return e.kind
}

// classifyStatus maps an HTTP status to the domain error taxonomy.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.ErrAuth
	case status == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case status == http.StatusRequestTimeout || status >= 500:
		return domain.ErrServiceUnavailable
	case status == http.StatusNotFound:
		return domain.ErrInvalidConfig
	default:
		return domain.ErrInvalidInput
	}
}

func newAPIError(provider string, resp *http.Response, message string) *APIError {
	return &APIError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(message),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		kind:       classifyStatus(resp.StatusCode),
	}
}

// parseRetryAfter reads delay-seconds or an HTTP date; unparsable values yield 0.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
