// ABOUTME: Fetch client performs one logical request per source with timeout and bounded retry
// ABOUTME: Outcomes are classified so one failing source never aborts its siblings

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"listings-aggregator-api/core/domain"
	coreerrors "listings-aggregator-api/core/errors"
	"listings-aggregator-api/core/interfaces"
)

// maxBodyBytes caps how much of an upstream body is read
const maxBodyBytes = 16 << 20

// Policy configures timeouts and retry behaviour
type Policy struct {
	// Timeout bounds each fetch attempt
	Timeout time.Duration

	// Attempts is the total number of attempts, including the first
	Attempts int

	// Backoff is the fixed delay between attempts
	Backoff time.Duration

	// HealthTimeout bounds a health probe
	HealthTimeout time.Duration
}

// DefaultPolicy returns 10s timeout, 3 attempts, 1s backoff and a 5s health timeout
func DefaultPolicy() Policy {
	return Policy{
		Timeout:       10 * time.Second,
		Attempts:      3,
		Backoff:       time.Second,
		HealthTimeout: 5 * time.Second,
	}
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the production Sleeper
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoSleep returns immediately; tests use it to run retries without delay
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// Client fetches raw bodies from upstream sources
type Client struct {
	http   interfaces.HTTPClient
	logger interfaces.Logger
	policy Policy
	sleep  Sleeper
}

// NewClient creates a fetch client using the HTTP client and logger from deps
func NewClient(deps interfaces.Dependencies, policy Policy) *Client {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	return &Client{
		http:   deps.HTTPClient,
		logger: deps.Logger,
		policy: policy,
		sleep:  ContextSleep,
	}
}

// WithSleeper replaces the delay strategy used between attempts
func (c *Client) WithSleeper(s Sleeper) *Client {
	c.sleep = s
	return c
}

// Policy returns the active policy
func (c *Client) Policy() Policy {
	return c.policy
}

// Fetch returns the raw body from src.
//
// Network errors, timeouts, 408, 429 and 5xx responses are retried up to
// Policy.Attempts with Policy.Backoff between attempts; exhaustion yields a
// SourceUnreachableError carrying the last cause. Any other non-2xx status is
// a definitive rejection that retrying cannot fix and is returned at once as
// an ExternalAPIError.
func (c *Client) Fetch(ctx context.Context, src domain.Source) ([]byte, error) {
	if c.http == nil {
		return nil, errors.New("HTTP client not configured")
	}

	target, err := BuildURL(src)
	if err != nil {
		return nil, &coreerrors.ConfigurationError{Source: src.Name, Key: "url", Message: err.Error()}
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= c.policy.Attempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, c.policy.Backoff); err != nil {
				lastErr = err
				break
			}
		}

		attempts = attempt
		body, retryable, err := c.attempt(ctx, src, target)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retryable {
			return nil, err
		}
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		if attempt < c.policy.Attempts {
			c.warn("Fetch attempt failed, retrying", map[string]interface{}{
				"source":  src.Name,
				"attempt": attempt,
				"of":      c.policy.Attempts,
				"error":   err.Error(),
			})
		}
	}

	return nil, &coreerrors.SourceUnreachableError{
		Source:   src.Name,
		Attempts: attempts,
		Cause:    lastErr,
	}
}

// attempt performs a single request. The returned bool reports whether a retry may help.
func (c *Client) attempt(ctx context.Context, src domain.Source, target string) ([]byte, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	resp, err := c.http.Get(reqCtx, target, src.Headers)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body().Close()

	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		body, err := io.ReadAll(io.LimitReader(resp.Body(), maxBodyBytes))
		if err != nil {
			return nil, true, fmt.Errorf("read body: %w", err)
		}
		return body, false, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body(), 512))
	apiErr := &coreerrors.ExternalAPIError{
		StatusCode: status,
		Message:    strings.TrimSpace(string(snippet)),
		API:        src.Name,
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}

	return nil, isRetryableStatus(status), apiErr
}

// HealthCheck probes src once with the health timeout. It never touches stored data.
func (c *Client) HealthCheck(ctx context.Context, src domain.Source) domain.HealthReport {
	report := domain.HealthReport{Source: src.Name, Status: domain.HealthUnavailable}

	if c.http == nil {
		report.Detail = "HTTP client not configured"
		report.CheckedAt = time.Now().UTC()
		return report
	}

	target, err := BuildURL(src)
	if err != nil {
		report.Status = domain.HealthError
		report.Detail = err.Error()
		report.CheckedAt = time.Now().UTC()
		return report
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.policy.HealthTimeout)
	defer cancel()

	resp, err := c.http.Get(probeCtx, target, src.Headers)
	report.CheckedAt = time.Now().UTC()
	if err != nil {
		report.Detail = err.Error()
		return report
	}
	defer resp.Body().Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body(), maxBodyBytes))

	if resp.StatusCode() >= 200 && resp.StatusCode() < 300 {
		report.Status = domain.HealthHealthy
		return report
	}

	report.Status = domain.HealthError
	report.Detail = fmt.Sprintf("HTTP %d", resp.StatusCode())
	return report
}

// BuildURL merges the source params into its endpoint query string
func BuildURL(src domain.Source) (string, error) {
	u, err := url.Parse(src.URL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("endpoint %q is not an absolute URL", src.URL)
	}
	if len(src.Params) == 0 {
		return u.String(), nil
	}

	q := u.Query()
	for k, v := range src.Params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func isRetryableStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout
}

func (c *Client) warn(msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, fields)
	}
}
