package validate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/extract"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/util"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/worker"
)

const checkMaxAttempts = 3

// validateSleepFunc is the sleep between retries, replaced in tests
var validateSleepFunc = time.Sleep

// LinkChecker checks that citation URLs resolve and fills in missing titles
type LinkChecker struct {
	httpClient *http.Client
	fetcher    *util.Fetcher
	robots     *util.RobotsChecker
	userAgent  string
	maxWorkers int
	logger     *zap.Logger
}

// NewLinkChecker builds a checker on top of client, which carries the
// timeout and proxy settings
func NewLinkChecker(client *http.Client, userAgent string, maxWorkers int, logger *zap.Logger) *LinkChecker {
	if maxWorkers <= 0 {
		maxWorkers = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := *client
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}

	return &LinkChecker{
		httpClient: &c,
		fetcher:    util.NewFetcher(client, userAgent, 512<<10),
		robots:     util.NewRobotsChecker(client, userAgent),
		userAgent:  userAgent,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// Check returns a copy of sources with Accessible set. Sources disallowed by
// robots.txt are left unchecked.
func (c *LinkChecker) Check(ctx context.Context, sources []model.SourceCitation) []model.SourceCitation {
	out := make([]model.SourceCitation, len(sources))
	copy(out, sources)
	if len(out) == 0 {
		return out
	}

	checked, ok := worker.Map(ctx, c.maxWorkers, out, func(ctx context.Context, src model.SourceCitation) model.SourceCitation {
		c.checkSource(ctx, &src)
		return src
	})
	for i := range out {
		if ok[i] {
			out[i] = checked[i]
		}
	}
	return out
}

func (c *LinkChecker) checkSource(ctx context.Context, src *model.SourceCitation) {
	if !c.robots.IsAllowed(ctx, src.URL) {
		c.logger.Debug("robots.txt disallows source", zap.String("url", src.URL))
		return
	}

	status, err := c.statusWithRetry(ctx, src.URL)
	accessible := err == nil && status >= 200 && status < 400
	src.Accessible = &accessible

	if err != nil {
		c.logger.Debug("source unreachable", zap.String("url", src.URL), zap.Error(err))
		return
	}

	if accessible && needsTitle(*src) {
		res, err := c.fetcher.Fetch(ctx, src.URL, "")
		if err != nil {
			return
		}
		if title := extract.PageTitle(string(res.Body)); title != "" {
			src.Title = title
		}
	}
}

func needsTitle(src model.SourceCitation) bool {
	t := strings.TrimSpace(src.Title)
	return t == "" || t == src.URL || t == "Source"
}

// statusWithRetry retries 5xx, 429 and transport failures with 1s, 2s backoff
func (c *LinkChecker) statusWithRetry(ctx context.Context, rawURL string) (int, error) {
	var (
		status int
		err    error
	)
	for attempt := 0; attempt < checkMaxAttempts; attempt++ {
		status, err = c.status(ctx, rawURL)
		if !isRetryableStatus(status, err) {
			return status, err
		}
		if attempt < checkMaxAttempts-1 {
			validateSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
			if ctx.Err() != nil {
				return status, ctx.Err()
			}
		}
	}
	return status, err
}

// status issues a HEAD, falling back to GET for servers that reject HEAD
func (c *LinkChecker) status(ctx context.Context, rawURL string) (int, error) {
	code, err := c.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return 0, err
	}
	if code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented {
		return c.do(ctx, http.MethodGet, rawURL)
	}
	return code, nil
}

func (c *LinkChecker) do(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	_ = resp.Body.Close()

	return resp.StatusCode, nil
}

func isRetryableStatus(status int, err error) bool {
	if err != nil {
		s := strings.ToLower(err.Error())
		return strings.Contains(s, "timeout") ||
			strings.Contains(s, "connection refused") ||
			strings.Contains(s, "connection reset")
	}
	return status == http.StatusTooManyRequests || (status >= 500 && status < 600 && status != http.StatusNotImplemented)
}
