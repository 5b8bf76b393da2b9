package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
)

// Provider answers fact-check questions with a search-backed language model
type Provider interface {
	// Name returns the provider name recorded on results
	Name() string

	// Endpoint is the base URL the provider calls, used as rate-limit key
	Endpoint() string

	// Check asks the model to verify a statement
	Check(ctx context.Context, req CheckRequest) (*CheckResponse, error)
}

// CheckRequest is a statement to verify with optional surrounding context
type CheckRequest struct {
	Statement string
	Context   string
}

// SearchResult is a web source the provider consulted
type SearchResult struct {
	Title string
	URL   string
	Date  string
}

// CheckResponse is the raw provider answer
type CheckResponse struct {
	Answer     string
	Results    []SearchResult
	Model      string
	TokensUsed int
}

// Config holds provider configuration
type Config struct {
	// Provider name: "perplexity", "openai"
	Provider string

	Model       string
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64

	// SearchRecency is Perplexity's search_recency_filter (day, week, month, year)
	SearchRecency string

	// HTTPClient carries proxy settings; nil uses a plain client
	HTTPClient *http.Client
}

// ConfigFromModel converts the fact-check section of the runtime config
func ConfigFromModel(fc model.FactCheckConfig, client *http.Client) Config {
	return Config{
		Provider:      fc.Provider,
		Model:         fc.Model,
		APIKey:        fc.APIKey,
		BaseURL:       fc.BaseURL,
		Timeout:       fc.Timeout,
		MaxTokens:     fc.MaxTokens,
		Temperature:   fc.Temperature,
		SearchRecency: fc.SearchRecency,
		HTTPClient:    client,
	}
}

func (c Config) maxTokens() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 1000
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 60 * time.Second
}

const systemPrompt = `You are an expert fact-checker. Your task is to verify the accuracy of statements using current, reliable sources.

For each statement:
1. Search for recent, authoritative sources
2. Analyze the claim's accuracy based on available evidence
3. Provide a clear verdict: True, False, Partially True, or Unverified
4. Explain your reasoning with specific references to sources
5. Consider the statement's context and any nuances

Be precise, objective, and transparent about limitations in available information.`

// BuildSystemPrompt returns the fact-checker instructions, with the
// optional context appended
func BuildSystemPrompt(context string) string {
	if context == "" {
		return systemPrompt
	}
	return systemPrompt + "\n\nContext: " + context
}

// UserMessage is the user turn sent for a statement
func UserMessage(statement string) string {
	return "Fact-check this statement: " + statement
}
