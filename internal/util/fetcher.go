package util

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// fetchSleepFunc is swapped out in tests
var fetchSleepFunc = sleepContext

const (
	fetchAttempts       = 3
	defaultRetryBackoff = time.Second
)

// Fetcher performs size-limited GET requests with retry on transient failures
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	backoff    time.Duration
}

// NewFetcher wraps client; redirects are capped at three hops
func NewFetcher(client *http.Client, userAgent string, maxBytes int64) *Fetcher {
	c := *client
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}
	return &Fetcher{
		httpClient: &c,
		userAgent:  userAgent,
		maxBytes:   maxBytes,
		backoff:    defaultRetryBackoff,
	}
}

// WithRetryBackoff sets the delay before the first retry; later retries
// double it. Non-positive values keep the default.
func (f *Fetcher) WithRetryBackoff(d time.Duration) *Fetcher {
	if d > 0 {
		f.backoff = d
	}
	return f
}

// FetchResult is the body and metadata of a successful fetch
type FetchResult struct {
	Body        []byte
	StatusCode  int
	ContentType string
	FinalURL    string
}

// StatusError reports a non-2xx response
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.StatusCode, e.Status)
}

// Fetch performs a single GET
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, accept string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	if accept == "" {
		accept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		Body:        body,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// FetchWithRetry retries Fetch up to three attempts, backing off 1s then 2s
// by default
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string, accept string) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			if err := fetchSleepFunc(ctx, f.backoff<<(attempt-1)); err != nil {
				return nil, err
			}
		}

		result, err := f.Fetch(ctx, rawURL, accept)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	return strings.HasPrefix(err.Error(), "fetch: ")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
