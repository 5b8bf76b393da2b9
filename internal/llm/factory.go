package llm

import (
	"fmt"
	"strings"
)

// NewProvider creates the configured provider. A missing API key disables
// fact-checking and returns nil, nil.
func NewProvider(config Config) (Provider, error) {
	if config.APIKey == "" {
		return nil, nil
	}

	switch strings.ToLower(config.Provider) {
	case "perplexity", "":
		return NewPerplexityProvider(config)

	case "openai":
		return NewOpenAIProvider(config)

	default:
		return nil, fmt.Errorf("unknown fact-check provider: %s (supported: perplexity, openai)", config.Provider)
	}
}
