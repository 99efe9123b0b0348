// Package llm defines the gateway boundary report stages talk to: the
// Gateway interface, typed failures and provider configuration. Concrete
// chat models live in llm/providers.
package llm

import "fmt"

// Provider identifies the LLM provider to use.
type Provider string

// Config holds configuration for creating a chat model.
type Config struct {
	Provider    Provider `mapstructure:"provider" validate:"required"`
	Model       string   `mapstructure:"model"`
	APIKey      string   `mapstructure:"-"`
	BaseURL     string   `mapstructure:"baseURL"`
	Temperature float32  `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int      `mapstructure:"maxTokens" validate:"gte=0"`
}

// ValidateProvider checks if the given provider string is supported.
func ValidateProvider(p string) (Provider, error) {
	switch Provider(p) {
	case ProviderOpenAI, ProviderOllama, ProviderAnthropic, ProviderGemini, ProviderOffline:
		return Provider(p), nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", p)
	}
}
