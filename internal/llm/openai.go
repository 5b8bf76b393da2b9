package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/extract"
)

// OpenAIProvider fact-checks with OpenAI chat completions. The model has no
// search results, so sources are the links cited in its answer.
type OpenAIProvider struct {
	client  *openai.Client
	baseURL string
	config  Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.HTTPClient != nil {
		clientConfig.HTTPClient = config.HTTPClient
	}

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientConfig),
		baseURL: clientConfig.BaseURL,
		config:  config,
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Endpoint() string {
	return p.baseURL
}

func (p *OpenAIProvider) Check(ctx context.Context, req CheckRequest) (*CheckResponse, error) {
	model := p.config.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: BuildSystemPrompt(req.Context),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: UserMessage(req.Statement),
			},
		},
		MaxTokens:   p.config.maxTokens(),
		Temperature: float32(p.config.Temperature),
	}

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)

	out := &CheckResponse{
		Answer:     answer,
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}
	for _, link := range extract.ExtractLinks(answer) {
		out.Results = append(out.Results, SearchResult{Title: link.Title, URL: link.URL})
	}

	return out, nil
}
