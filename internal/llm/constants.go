package llm

// Provider constants
const (
	// DefaultProvider runs against a local Ollama server.
	DefaultProvider = ProviderOllama

	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"

	// ProviderOffline disables generation; every stage falls back.
	ProviderOffline Provider = "offline"
)

// DefaultOllamaURL is the default URL for Ollama server
const DefaultOllamaURL = "http://localhost:11434"

// Generation defaults.
const (
	DefaultTemperature float32 = 0.7
	DefaultMaxTokens           = 2000
)

var defaultModels = map[Provider]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderOllama:    "llama3.2",
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderGemini:    "gemini-2.0-flash",
}

// DefaultModelForProvider returns the default model ID for a given provider.
func DefaultModelForProvider(p Provider) string {
	return defaultModels[p]
}
