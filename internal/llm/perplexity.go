package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	perplexityBaseURL = "https://api.perplexity.ai"
	perplexityModel   = "sonar-pro"
)

// PerplexityProvider calls Perplexity's search-augmented chat completions API
type PerplexityProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	config     Config
}

// Perplexity API structures. The request carries search options and the
// response carries search results, neither of which OpenAI clients model.
type perplexityRequest struct {
	Model                  string              `json:"model"`
	Messages               []perplexityMessage `json:"messages"`
	MaxTokens              int                 `json:"max_tokens"`
	Temperature            float64             `json:"temperature"`
	SearchMode             string              `json:"search_mode"`
	SearchRecencyFilter    string              `json:"search_recency_filter,omitempty"`
	ReturnRelatedQuestions bool                `json:"return_related_questions"`
}

type perplexityMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type perplexityResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int               `json:"index"`
		Message      perplexityMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
	SearchResults []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
		Date  string `json:"date"`
	} `json:"search_results"`
	Citations []string `json:"citations"`
	Usage     struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type perplexityError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// NewPerplexityProvider creates a new Perplexity provider
func NewPerplexityProvider(config Config) (*PerplexityProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Perplexity API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = perplexityBaseURL
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	c := *client
	c.Timeout = config.timeout()

	return &PerplexityProvider{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &c,
		config:     config,
	}, nil
}

func (p *PerplexityProvider) Name() string {
	return "perplexity"
}

func (p *PerplexityProvider) Endpoint() string {
	return p.baseURL
}

// Check sends the statement to Perplexity. Sources come from search_results,
// or from the bare citations list when search results are absent.
func (p *PerplexityProvider) Check(ctx context.Context, req CheckRequest) (*CheckResponse, error) {
	model := p.config.Model
	if model == "" {
		model = perplexityModel
	}

	recency := p.config.SearchRecency
	if recency == "" {
		recency = "month"
	}

	apiReq := perplexityRequest{
		Model: model,
		Messages: []perplexityMessage{
			{Role: "system", Content: BuildSystemPrompt(req.Context)},
			{Role: "user", Content: UserMessage(req.Statement)},
		},
		MaxTokens:              p.config.maxTokens(),
		Temperature:            p.config.Temperature,
		SearchMode:             "web",
		SearchRecencyFilter:    recency,
		ReturnRelatedQuestions: false,
	}

	resp, err := p.makeRequest(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("Perplexity API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in Perplexity response")
	}

	out := &CheckResponse{
		Answer:     strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}

	if len(resp.SearchResults) > 0 {
		for _, r := range resp.SearchResults {
			out.Results = append(out.Results, SearchResult{Title: r.Title, URL: r.URL, Date: r.Date})
		}
	} else {
		for _, u := range resp.Citations {
			out.Results = append(out.Results, SearchResult{URL: u})
		}
	}

	return out, nil
}

func (p *PerplexityProvider) makeRequest(ctx context.Context, req perplexityRequest) (*perplexityResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr perplexityError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s - %s", httpResp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var resp perplexityResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &resp, nil
}
