// Package llm provides the text completion capability.
package llm

import (
	"context"
	"fmt"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Providers accepted by New.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderOllama     = "ollama"
)

// OpenRouterBaseURL is the default OpenAI-compatible endpoint.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// Message represents a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer returns a completion for a system instruction and a user message.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Chatter is a Completer that can also continue a multi-turn conversation.
type Chatter interface {
	Completer
	Generate(ctx context.Context, messages []Message) (string, error)
	Model() string
}

// Config selects and configures a provider.
type Config struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
}

// New returns the client for cfg.Provider.
func New(cfg Config) (Chatter, error) {
	switch cfg.Provider {
	case ProviderOpenRouter, "":
		base := cfg.BaseURL
		if base == "" {
			base = OpenRouterBaseURL
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openrouter api key is required")
		}
		return NewOpenAIChat(base, cfg.APIKey, cfg.Model, cfg.Temperature), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai api key is required")
		}
		return NewOpenAIChat(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Temperature), nil
	case ProviderOllama:
		return NewOllamaChat(cfg.BaseURL, cfg.Model, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
