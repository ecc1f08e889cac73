package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultExternalHTTPTimeout = 90 * time.Second
	minExternalHTTPTimeout     = 5 * time.Second

	defaultRetryAfter          = 60 * time.Second
	defaultMaxRateLimitRetries = 3
)

var externalHTTPClient = &http.Client{
	Timeout: defaultExternalHTTPTimeout,
}

// ConfigureExternalHTTPClient sets the timeout shared by every outbound
// call. Non-positive values keep the default; tiny values are raised to the
// minimum.
func ConfigureExternalHTTPClient(timeoutSeconds int) time.Duration {
	timeout := defaultExternalHTTPTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	if timeout < minExternalHTTPTimeout {
		timeout = minExternalHTTPTimeout
	}
	externalHTTPClient.Timeout = timeout
	return timeout
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned %d: %s", e.Service, e.StatusCode, e.Body)
}

type Options struct {
	// Service names the remote API in logs and errors.
	Service string
	// RequestsPerSecond paces outbound requests; zero disables pacing.
	RequestsPerSecond float64
	Burst             int
	Headers           map[string]string
	// MaxRateLimitRetries bounds how often a 429 response is retried.
	MaxRateLimitRetries int
}

// Client is a paced JSON client for one external API. It waits on its
// limiter before every request and sleeps out 429 responses.
type Client struct {
	service    string
	http       *http.Client
	limiter    *rate.Limiter
	headers    map[string]string
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

func New(opts Options) *Client {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	retries := opts.MaxRateLimitRetries
	if retries <= 0 {
		retries = defaultMaxRateLimitRetries
	}
	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}
	return &Client{
		service:    opts.Service,
		http:       externalHTTPClient,
		limiter:    limiter,
		headers:    headers,
		maxRetries: retries,
		sleep:      sleepContext,
	}
}

// PerMinute converts a per-minute budget into a per-second rate.
func PerMinute(n int) float64 {
	return float64(n) / 60
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

// DoJSON sends body (if non-nil) as JSON and decodes a 2xx response into
// out (if non-nil).
func (c *Client) DoJSON(ctx context.Context, method, url string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", c.service, err)
		}
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s rate limiter: %w", c.service, err)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("executing %s request: %w", c.service, err)
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("reading %s response: %w", c.service, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.maxRetries {
			wait := retryAfter(resp.Header.Get("Retry-After"))
			log.Printf("%s rate limited status=429 wait=%s attempt=%d", c.service, wait, attempt+1)
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{Service: c.service, StatusCode: resp.StatusCode, Body: string(respBody)}
		}
		if out == nil || len(respBody) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parsing %s response: %w", c.service, err)
		}
		return nil
	}
}

func retryAfter(v string) time.Duration {
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultRetryAfter
}
