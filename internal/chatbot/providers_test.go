package chatbot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PCHAT/relay/internal/config"
)

func TestNewProviders_OnlyConfigured(t *testing.T) {
	cfg := &config.Config{
		OpenAI: config.ProviderConfig{APIKey: "sk-test", Model: "gpt-4.1-nano", Models: []string{"gpt-4.1-nano"}},
		Grok:   config.ProviderConfig{APIKey: "xai-test", BaseURL: "https://api.x.ai/v1", Model: "grok-3-mini"},
		Lorem:  config.LoremConfig{Enabled: true, Delay: time.Millisecond, Words: 3},
	}

	providers, cleanup, err := NewProviders(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, []string{"grok", "lorem", "openai"}, providers.Names())
	assert.Equal(t, []string{"gpt-4.1-nano"}, providers[ProviderOpenAI].Models)

	cs := NewChatService(providers, "")
	events := collect(cs.Stream(context.Background(), hiRequest(ProviderAnthropic)))
	require.Len(t, events, 1)
	assert.Equal(t, "Unsupported provider: anthropic", events[0].Error)

	events = collect(cs.Stream(context.Background(), hiRequest(ProviderLorem)))
	assert.Equal(t, EventDone, events[len(events)-1].Type)
	assert.Equal(t, 1, terminalCount(events))
}
