package providers

import (
	"context"
	"testing"

	"github.com/josephgoksu/ReportWing/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatModel_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cfg     llm.Config
		wantErr string
	}{
		{
			name:    "openai requires API key",
			cfg:     llm.Config{Provider: llm.ProviderOpenAI, Model: "gpt-4o-mini"},
			wantErr: "OpenAI API key is required",
		},
		{
			name:    "anthropic requires API key",
			cfg:     llm.Config{Provider: llm.ProviderAnthropic, Model: "claude-3-5-haiku-latest"},
			wantErr: "anthropic API key is required",
		},
		{
			name:    "gemini requires API key",
			cfg:     llm.Config{Provider: llm.ProviderGemini, Model: "gemini-2.0-flash"},
			wantErr: "gemini API key is required",
		},
		{
			name:    "unsupported provider",
			cfg:     llm.Config{Provider: "unknown", Model: "model", APIKey: "key"},
			wantErr: "unsupported LLM provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChatModel(ctx, tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewGateway_Offline(t *testing.T) {
	gw, err := NewGateway(context.Background(), llm.Config{Provider: llm.ProviderOffline}, "system")
	require.NoError(t, err)
	assert.IsType(t, llm.Offline{}, gw)

	_, err = gw.Generate(context.Background(), "hello", llm.Params{})
	assert.True(t, llm.IsKind(err, llm.FailureUnavailable))
}

func TestNewGateway_PropagatesModelErrors(t *testing.T) {
	_, err := NewGateway(context.Background(), llm.Config{Provider: llm.ProviderOpenAI}, "system")
	assert.ErrorContains(t, err, "OpenAI API key is required")
}
