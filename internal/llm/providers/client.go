// Package providers builds Eino chat models for each supported LLM provider
// and wraps them as llm.Gateway implementations.
package providers

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/josephgoksu/ReportWing/internal/llm"
	"google.golang.org/genai"
)

// NewChatModel creates an Eino BaseChatModel for the configured provider.
func NewChatModel(ctx context.Context, cfg llm.Config) (model.BaseChatModel, error) {
	switch cfg.Provider {
	case llm.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
		})

	case llm.ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = llm.DefaultOllamaURL
		}
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: baseURL,
			Model:   cfg.Model,
		})

	case llm.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required")
		}
		maxTokens := cfg.MaxTokens
		if maxTokens <= 0 {
			maxTokens = llm.DefaultMaxTokens
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: maxTokens,
		})

	case llm.ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required")
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  cfg.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: openai, ollama, anthropic, gemini, offline)", cfg.Provider)
	}
}

// NewGateway builds the Gateway for cfg. The offline provider needs no model.
func NewGateway(ctx context.Context, cfg llm.Config, systemPrompt string) (llm.Gateway, error) {
	if cfg.Provider == llm.ProviderOffline {
		return llm.Offline{}, nil
	}
	chatModel, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewEinoGateway(ctx, chatModel, systemPrompt)
}
