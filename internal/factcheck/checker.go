// Package factcheck verifies statements against a search-backed language
// model, falling back to a keyword mock when no provider is available.
package factcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/cache"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/extract"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/llm"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/score"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/util"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/validate"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/worker"
)

// ErrEmptyStatement is returned for a statement that is blank after trimming
var ErrEmptyStatement = errors.New("statement is empty")

const defaultMaxSources = 5

// Options wires a Checker. Only Provider may be nil to force the mock table.
type Options struct {
	Provider    llm.Provider
	Cache       cache.Cache
	CacheTTL    time.Duration
	Limiter     *worker.Limiter
	Analyzer    *score.Analyzer
	Authority   *validate.AuthorityClassifier
	LinkChecker *validate.LinkChecker
	MaxSources  int
	MockDelay   time.Duration
	Logger      *zap.Logger
}

// Checker produces a FactCheckResult for a statement
type Checker struct {
	provider    llm.Provider
	cache       cache.Cache
	cacheTTL    time.Duration
	limiter     *worker.Limiter
	analyzer    *score.Analyzer
	authority   *validate.AuthorityClassifier
	linkChecker *validate.LinkChecker
	maxSources  int
	mock        *mockTable
	logger      *zap.Logger

	now func() time.Time
}

// NewChecker creates a checker from explicit dependencies
func NewChecker(opts Options) *Checker {
	c := &Checker{
		provider:    opts.Provider,
		cache:       opts.Cache,
		cacheTTL:    opts.CacheTTL,
		limiter:     opts.Limiter,
		analyzer:    opts.Analyzer,
		authority:   opts.Authority,
		linkChecker: opts.LinkChecker,
		maxSources:  opts.MaxSources,
		logger:      opts.Logger,
		now:         time.Now,
	}
	if c.analyzer == nil {
		c.analyzer = score.NewAnalyzer()
	}
	if c.authority == nil {
		c.authority = validate.NewAuthorityClassifier(&model.AuthorityConfig{})
	}
	if c.limiter == nil {
		c.limiter = worker.NewLimiter(1, 1)
	}
	if c.maxSources <= 0 {
		c.maxSources = defaultMaxSources
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.mock = &mockTable{delay: opts.MockDelay, now: c.now}
	return c
}

// New builds a checker from runtime configuration. A missing API key leaves
// the provider unset and every statement is answered from the mock table.
func New(ctx context.Context, cfg *model.Config, logger *zap.Logger) (*Checker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := util.NewHTTPClient(cfg.HTTP, cfg.FactCheck.Timeout)
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.FactCheck, client))
	if err != nil {
		return nil, fmt.Errorf("fact-check provider: %w", err)
	}
	if provider == nil {
		logger.Warn("fact-check API key not configured, using mock verdicts")
	} else {
		logger.Info("fact-check provider ready",
			zap.String("provider", provider.Name()),
			zap.String("endpoint", provider.Endpoint()))
	}

	verdictCache, err := cache.New(ctx, cfg.Cache, logger.Named("cache"))
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	var linkChecker *validate.LinkChecker
	if cfg.Sources.Validate {
		linkClient := util.NewHTTPClient(cfg.HTTP, cfg.Sources.Timeout)
		linkChecker = validate.NewLinkChecker(linkClient, cfg.HTTP.UserAgent, cfg.Sources.Workers, logger.Named("links"))
	}

	return NewChecker(Options{
		Provider:    provider,
		Cache:       verdictCache,
		CacheTTL:    cfg.Cache.TTL,
		Limiter:     worker.NewLimiter(cfg.FactCheck.RequestsPerSecond, cfg.FactCheck.Burst),
		Analyzer:    score.NewAnalyzer(),
		Authority:   validate.NewAuthorityClassifier(&cfg.Authority),
		LinkChecker: linkChecker,
		MaxSources:  cfg.Sources.MaxSources,
		MockDelay:   cfg.FactCheck.MockDelay,
		Logger:      logger,
	}), nil
}

// ProviderConfigured reports whether a real provider answers checks
func (c *Checker) ProviderConfigured() bool {
	return c.provider != nil
}

// ProviderName returns the active provider, "mock" when none is configured
func (c *Checker) ProviderName() string {
	if c.provider == nil {
		return mockProvider
	}
	return c.provider.Name()
}

// Check fact-checks a statement. Provider failures are reported through an
// Unverified mock result rather than an error.
func (c *Checker) Check(ctx context.Context, statement, extraContext string) (*model.FactCheckResult, error) {
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return nil, ErrEmptyStatement
	}
	extraContext = strings.TrimSpace(extraContext)

	start := c.now()

	key := cache.CacheKey(statement, extraContext)
	if cached := c.lookup(ctx, key, start); cached != nil {
		c.logger.Debug("fact-check cache hit", zap.String("statement", statement))
		return cached, nil
	}

	if c.provider == nil {
		return c.mock.result(ctx, statement, false)
	}

	// 1. Respect the provider rate limit
	if err := c.limiter.Wait(ctx, c.provider.Endpoint()); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	// 2. Ask the provider
	resp, err := c.provider.Check(ctx, llm.CheckRequest{Statement: statement, Context: extraContext})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("error fact-checking statement",
			zap.String("provider", c.provider.Name()),
			zap.Error(err))
		return c.mock.result(ctx, statement, true)
	}

	// 3. Derive the verdict from the answer
	analysis := c.analyzer.Analyze(resp.Answer)

	// 4. Build and classify sources
	sources := c.sources(resp.Results)
	if c.linkChecker != nil && len(sources) > 0 {
		sources = c.linkChecker.Check(ctx, sources)
	}

	result := &model.FactCheckResult{
		Statement:        statement,
		Verdict:          analysis.Verdict,
		ConfidenceScore:  analysis.Confidence,
		Explanation:      analysis.Explanation,
		Sources:          sources,
		ProcessingTimeMS: c.now().Sub(start).Milliseconds(),
		Timestamp:        c.now().UTC(),
		Provider:         c.provider.Name(),
	}

	c.logger.Info("statement checked",
		zap.String("provider", result.Provider),
		zap.String("verdict", string(result.Verdict)),
		zap.Int("sources", len(result.Sources)),
		zap.Int("tokens", resp.TokensUsed),
		zap.Int64("processing_time_ms", result.ProcessingTimeMS))

	c.store(ctx, key, result)
	return result, nil
}

func (c *Checker) sources(results []llm.SearchResult) []model.SourceCitation {
	sources := make([]model.SourceCitation, 0, min(len(results), c.maxSources))
	for _, r := range results {
		if len(sources) == c.maxSources {
			break
		}
		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = "Unknown Title"
		}
		sources = append(sources, model.SourceCitation{
			Title:       title,
			URL:         r.URL,
			PublishDate: r.Date,
			Domain:      extract.Domain(r.URL),
		})
	}
	c.authority.Annotate(sources)
	return sources
}

// lookup returns the cached verdict for key stamped with the current time
func (c *Checker) lookup(ctx context.Context, key string, start time.Time) *model.FactCheckResult {
	if c.cache == nil {
		return nil
	}
	data, ok := c.cache.Get(ctx, key)
	if !ok {
		return nil
	}
	var result model.FactCheckResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("discarding unreadable cache entry", zap.Error(err))
		_ = c.cache.Delete(ctx, key)
		return nil
	}
	result.Cached = true
	result.Timestamp = c.now().UTC()
	result.ProcessingTimeMS = c.now().Sub(start).Milliseconds()
	return &result
}

func (c *Checker) store(ctx context.Context, key string, result *model.FactCheckResult) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.Error(err))
		return
	}
	if err := c.cache.Set(ctx, key, data, c.cacheTTL); err != nil {
		c.logger.Warn("cache write failed", zap.Error(err))
	}
}
