package factcheck

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/cache"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/llm"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/validate"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/worker"
)

type fakeProvider struct {
	mu      sync.Mutex
	calls   int
	last    llm.CheckRequest
	answer  string
	results []llm.SearchResult
	err     error
}

func (f *fakeProvider) Name() string     { return "fake" }
func (f *fakeProvider) Endpoint() string { return "https://fake.example" }

func (f *fakeProvider) Check(_ context.Context, req llm.CheckRequest) (*llm.CheckResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CheckResponse{Answer: f.answer, Results: f.results}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestChecker(t *testing.T, provider llm.Provider, c cache.Cache) *Checker {
	t.Helper()
	cfg := model.DefaultConfig()
	opts := Options{
		Cache:     c,
		CacheTTL:  time.Hour,
		Limiter:   worker.NewLimiter(0, 1),
		Authority: validate.NewAuthorityClassifier(&cfg.Authority),
		Logger:    zaptest.NewLogger(t),
	}
	if provider != nil {
		opts.Provider = provider
	}
	return NewChecker(opts)
}

func TestCheck_EmptyStatement(t *testing.T) {
	c := newTestChecker(t, nil, nil)
	for _, s := range []string{"", "   ", "\n\t"} {
		if _, err := c.Check(context.Background(), s, ""); !errors.Is(err, ErrEmptyStatement) {
			t.Errorf("Check(%q) error = %v, want ErrEmptyStatement", s, err)
		}
	}
}

func TestCheck_MockTable(t *testing.T) {
	tests := []struct {
		statement  string
		verdict    model.Verdict
		confidence float64
		contains   string
	}{
		{"Water boils at 100 degrees Celsius at sea level.", model.VerdictTrue, 0.9, "basic scientific knowledge"},
		{"The sun rises in the east.", model.VerdictTrue, 0.9, "basic scientific knowledge"},
		// refuting keywords win over the "earth" they contain
		{"The flat earth theory is correct.", model.VerdictFalse, 0.95, "contradict established scientific evidence"},
		{"Chemtrails control the weather.", model.VerdictFalse, 0.95, "contradict"},
		{"The stock market rose yesterday.", model.VerdictPartiallyTrue, 0.7, "requires further investigation"},
	}

	c := newTestChecker(t, nil, nil)
	for _, tt := range tests {
		t.Run(tt.statement, func(t *testing.T) {
			result, err := c.Check(context.Background(), tt.statement, "")
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if result.Verdict != tt.verdict {
				t.Errorf("verdict = %q, want %q", result.Verdict, tt.verdict)
			}
			if result.ConfidenceScore != tt.confidence {
				t.Errorf("confidence = %v, want %v", result.ConfidenceScore, tt.confidence)
			}
			if !strings.Contains(result.Explanation, tt.contains) {
				t.Errorf("explanation %q missing %q", result.Explanation, tt.contains)
			}
			if !strings.Contains(result.Explanation, "'"+tt.statement+"'") {
				t.Errorf("explanation %q does not quote the statement", result.Explanation)
			}
			if result.ProcessingTimeMS != 500 {
				t.Errorf("processing time = %d, want 500", result.ProcessingTimeMS)
			}
			if result.Provider != "mock" {
				t.Errorf("provider = %q, want mock", result.Provider)
			}
			if len(result.Sources) != 1 || result.Sources[0].URL != "https://perplexity.ai" || result.Sources[0].Domain != "perplexity.ai" {
				t.Errorf("unexpected mock sources: %+v", result.Sources)
			}
		})
	}
}

func TestCheck_ProviderSuccess(t *testing.T) {
	provider := &fakeProvider{
		answer: "  This claim is accurate according to NASA.  ",
		results: []llm.SearchResult{
			{Title: "NASA climate", URL: "https://climate.nasa.gov/evidence/", Date: "2024-01-02"},
			{Title: "", URL: "https://en.wikipedia.org/wiki/Climate_change"},
			{Title: "Blog", URL: "https://www.someblog.net/post"},
			{Title: "Four", URL: "https://four.example/"},
			{Title: "Five", URL: "https://five.example/"},
			{Title: "Six", URL: "https://six.example/"},
		},
	}
	c := newTestChecker(t, provider, nil)

	result, err := c.Check(context.Background(), "  Earth is warming.  ", "climate debate")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if provider.last.Statement != "Earth is warming." || provider.last.Context != "climate debate" {
		t.Errorf("provider got %+v", provider.last)
	}
	if result.Statement != "Earth is warming." {
		t.Errorf("statement = %q", result.Statement)
	}
	if result.Verdict != model.VerdictTrue || result.ConfidenceScore != 0.9 {
		t.Errorf("verdict = %q %v", result.Verdict, result.ConfidenceScore)
	}
	if result.Explanation != "This claim is accurate according to NASA." {
		t.Errorf("explanation = %q", result.Explanation)
	}
	if result.Provider != "fake" {
		t.Errorf("provider = %q", result.Provider)
	}
	if len(result.Sources) != 5 {
		t.Fatalf("expected top 5 sources, got %d", len(result.Sources))
	}

	first := result.Sources[0]
	if first.Domain != "climate.nasa.gov" || first.PublishDate != "2024-01-02" || first.Authority != model.TierPrimary {
		t.Errorf("first source = %+v", first)
	}
	second := result.Sources[1]
	if second.Title != "Unknown Title" || second.Domain != "en.wikipedia.org" || second.Authority != model.TierSecondary {
		t.Errorf("second source = %+v", second)
	}
	if third := result.Sources[2]; third.Domain != "someblog.net" || third.Authority != model.TierTertiary {
		t.Errorf("third source = %+v", third)
	}
}

func TestCheck_ProviderErrorFallsBackToMock(t *testing.T) {
	provider := &fakeProvider{err: errors.New("401 unauthorized")}
	c := newTestChecker(t, provider, cache.NewMemoryCache(time.Hour, time.Minute))

	for i := 0; i < 2; i++ {
		result, err := c.Check(context.Background(), "Water is wet.", "")
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if result.Verdict != model.VerdictUnverified || result.ConfidenceScore != 0.3 {
			t.Errorf("verdict = %q %v", result.Verdict, result.ConfidenceScore)
		}
		if !strings.Contains(result.Explanation, "API error") {
			t.Errorf("explanation = %q", result.Explanation)
		}
		if result.Cached {
			t.Error("error results must not be cached")
		}
	}
	if provider.callCount() != 2 {
		t.Errorf("provider calls = %d, want 2", provider.callCount())
	}
}

func TestCheck_CachesProviderResults(t *testing.T) {
	provider := &fakeProvider{answer: "The statement is false.", results: []llm.SearchResult{{Title: "t", URL: "https://snopes.com/x"}}}
	c := newTestChecker(t, provider, cache.NewMemoryCache(time.Hour, time.Minute))
	ctx := context.Background()

	first, err := c.Check(ctx, "The moon is made of cheese.", "")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if first.Cached {
		t.Error("first result should not be cached")
	}

	second, err := c.Check(ctx, "  the MOON is   made of cheese.", "")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !second.Cached {
		t.Error("second result should come from cache")
	}
	if second.Verdict != model.VerdictFalse || second.Verdict != first.Verdict {
		t.Errorf("cached verdict = %q", second.Verdict)
	}
	if len(second.Sources) != 1 || second.Sources[0].Authority != model.TierSecondary {
		t.Errorf("cached sources = %+v", second.Sources)
	}
	if provider.callCount() != 1 {
		t.Errorf("provider calls = %d, want 1", provider.callCount())
	}

	if _, err := c.Check(ctx, "The moon is made of cheese.", "other context"); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if provider.callCount() != 2 {
		t.Errorf("different context should miss the cache, calls = %d", provider.callCount())
	}
}

func TestCheck_CacheHitIsRestamped(t *testing.T) {
	provider := &fakeProvider{answer: "This is true."}
	c := newTestChecker(t, provider, cache.NewMemoryCache(time.Hour, time.Minute))
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	ctx := context.Background()

	first, err := c.Check(ctx, "Paris is the capital of France.", "")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	clock = clock.Add(time.Hour)
	second, err := c.Check(ctx, "Paris is the capital of France.", "")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !second.Cached {
		t.Fatal("second result should come from cache")
	}
	if !second.Timestamp.Equal(clock) {
		t.Errorf("cached timestamp = %v, want %v", second.Timestamp, clock)
	}
	if !second.Timestamp.After(first.Timestamp) {
		t.Errorf("cached timestamp %v not after first %v", second.Timestamp, first.Timestamp)
	}
	if second.ProcessingTimeMS != 0 {
		t.Errorf("cached processing time = %d, want 0", second.ProcessingTimeMS)
	}
}

func TestCheck_MockResultsNotCached(t *testing.T) {
	mem := cache.NewMemoryCache(time.Hour, time.Minute)
	c := newTestChecker(t, nil, mem)

	if _, err := c.Check(context.Background(), "The sky is blue.", ""); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if mem.Len() != 0 {
		t.Errorf("mock result was cached")
	}
}

func TestCheck_MockDelayHonoursContext(t *testing.T) {
	c := NewChecker(Options{MockDelay: time.Hour, Logger: zaptest.NewLogger(t)})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := c.Check(ctx, "The sky is blue.", ""); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestProviderName(t *testing.T) {
	if got := newTestChecker(t, nil, nil).ProviderName(); got != "mock" {
		t.Errorf("ProviderName() = %q", got)
	}
	c := newTestChecker(t, &fakeProvider{}, nil)
	if !c.ProviderConfigured() || c.ProviderName() != "fake" {
		t.Errorf("provider not reported: %q", c.ProviderName())
	}
}

func TestNew_WithoutAPIKeyUsesMock(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.FactCheck.MockDelay = 0

	c, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.ProviderConfigured() {
		t.Error("provider should be disabled without an API key")
	}

	result, err := c.Check(context.Background(), "Gravity pulls objects down.", "")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Verdict != model.VerdictTrue {
		t.Errorf("verdict = %q", result.Verdict)
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.FactCheck.Provider = "bard"
	cfg.FactCheck.APIKey = "k"

	if _, err := New(context.Background(), cfg, zaptest.NewLogger(t)); err == nil {
		t.Error("expected error for unknown provider")
	}
}
