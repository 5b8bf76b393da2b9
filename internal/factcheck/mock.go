package factcheck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
)

const (
	mockProvider         = "mock"
	mockProcessingTimeMS = 500
)

// Refuting keywords are checked first so "flat earth" is False even though
// it also contains the supporting keyword "earth".
var (
	mockFalseKeywords = []string{"flat earth", "fake moon", "chemtrails"}
	mockTrueKeywords  = []string{"earth", "sun", "gravity", "water", "sky"}
)

// mockTable answers statements when no provider is configured or the
// provider call failed
type mockTable struct {
	delay time.Duration
	now   func() time.Time
}

func (m *mockTable) result(ctx context.Context, statement string, apiError bool) (*model.FactCheckResult, error) {
	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	verdict, confidence, explanation := mockVerdict(statement, apiError)
	return &model.FactCheckResult{
		Statement:        statement,
		Verdict:          verdict,
		ConfidenceScore:  confidence,
		Explanation:      explanation,
		Sources:          mockSources(),
		ProcessingTimeMS: mockProcessingTimeMS,
		Timestamp:        m.now().UTC(),
		Provider:         mockProvider,
	}, nil
}

func mockVerdict(statement string, apiError bool) (model.Verdict, float64, string) {
	if apiError {
		return model.VerdictUnverified, 0.3,
			"Unable to verify due to API error. Please check your Perplexity API key configuration."
	}

	lower := strings.ToLower(statement)
	switch {
	case containsAny(lower, mockFalseKeywords):
		return model.VerdictFalse, 0.95,
			fmt.Sprintf("Mock verification: The statement '%s' contains claims that contradict established scientific evidence.", statement)
	case containsAny(lower, mockTrueKeywords):
		return model.VerdictTrue, 0.9,
			fmt.Sprintf("Mock verification: The statement '%s' appears to contain factual information based on basic scientific knowledge.", statement)
	default:
		return model.VerdictPartiallyTrue, 0.7,
			fmt.Sprintf("Mock verification: The statement '%s' requires further investigation. Add your Perplexity API key for real fact-checking.", statement)
	}
}

func mockSources() []model.SourceCitation {
	return []model.SourceCitation{{
		Title:     "Mock Source - Add Perplexity API Key",
		URL:       "https://perplexity.ai",
		Domain:    "perplexity.ai",
		Authority: model.TierTertiary,
	}}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
