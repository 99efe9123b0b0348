package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/josephgoksu/ReportWing/internal/llm"
	"github.com/spf13/viper"
)

// LoadLLMConfig loads LLM configuration from Viper and Environment variables.
// It handles precedence: Explicit Viper Config > Environment Variables > Defaults.
func LoadLLMConfig(v *viper.Viper) (llm.Config, error) {
	provider := v.GetString("llm.provider")
	if provider == "" {
		provider = string(llm.DefaultProvider)
	}
	llmProvider, err := llm.ValidateProvider(strings.ToLower(provider))
	if err != nil {
		return llm.Config{}, fmt.Errorf("invalid provider: %w", err)
	}

	model := v.GetString("llm.model")
	if model == "" {
		model = llm.DefaultModelForProvider(llmProvider)
	}

	// Missing keys surface when the chat model is built; Ollama needs none.
	apiKey := ResolveAPIKey(v, llmProvider)

	baseURL := v.GetString("llm.baseURL")
	if baseURL == "" && llmProvider == llm.ProviderOllama {
		baseURL = os.Getenv("OLLAMA_HOST")
	}
	if baseURL == "" && llmProvider == llm.ProviderOllama {
		baseURL = llm.DefaultOllamaURL
	}

	temperature := float32(v.GetFloat64("llm.temperature"))
	maxTokens := v.GetInt("llm.maxTokens")
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}

	return llm.Config{
		Provider:    llmProvider,
		Model:       model,
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}, nil
}

// ResolveAPIKey returns the best API key for the given provider using
// per-provider config keys, then provider-specific env vars.
func ResolveAPIKey(v *viper.Viper, provider llm.Provider) string {
	path := fmt.Sprintf("llm.apiKeys.%s", provider)
	if v.IsSet(path) {
		if key := strings.TrimSpace(v.GetString(path)); key != "" {
			return key
		}
	}
	// OpenAI: allow the legacy single key; others ignore it to avoid wrong-key usage.
	if provider == llm.ProviderOpenAI {
		if key := strings.TrimSpace(v.GetString("llm.apiKey")); key != "" {
			return key
		}
	}
	return providerEnvKey(provider)
}

func providerEnvKey(provider llm.Provider) string {
	switch provider {
	case llm.ProviderOpenAI:
		return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	case llm.ProviderAnthropic:
		return strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	case llm.ProviderGemini:
		key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		if key == "" {
			key = strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
		}
		return key
	default:
		return ""
	}
}
