package chatbot

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"PCHAT/relay/internal/config"
	"PCHAT/relay/internal/llm"
)

// NewProviders builds one client per provider that has credentials. The
// returned cleanup releases SDK resources and is safe to call on error.
func NewProviders(ctx context.Context, cfg *config.Config) (Providers, func(), error) {
	providers := Providers{}
	cleanup := func() {}

	if cfg.OpenAI.APIKey != "" {
		client := llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
		providers[ProviderOpenAI] = Backend{
			AI:     llm.NewOpenAIProvider(string(ProviderOpenAI), client, settingsOf(cfg.OpenAI)),
			Models: cfg.OpenAI.Models,
		}
	}

	if cfg.Anthropic.APIKey != "" {
		client := llm.NewAnthropicClient(cfg.Anthropic.APIKey, cfg.Anthropic.BaseURL)
		providers[ProviderAnthropic] = Backend{
			AI:     llm.NewAnthropicProvider(client, settingsOf(cfg.Anthropic)),
			Models: cfg.Anthropic.Models,
		}
	}

	// xAI serves an OpenAI compatible API.
	if cfg.Grok.APIKey != "" {
		client := llm.NewOpenAIClient(cfg.Grok.APIKey, cfg.Grok.BaseURL)
		providers[ProviderGrok] = Backend{
			AI:     llm.NewOpenAIProvider(string(ProviderGrok), client, settingsOf(cfg.Grok)),
			Models: cfg.Grok.Models,
		}
	}

	if cfg.GeminiAI.APIKey != "" {
		opts := []option.ClientOption{option.WithAPIKey(cfg.GeminiAI.APIKey)}
		if cfg.GeminiAI.BaseURL != "" {
			opts = append(opts, option.WithEndpoint(cfg.GeminiAI.BaseURL))
		}
		client, err := genai.NewClient(ctx, opts...)
		if err != nil {
			return nil, cleanup, fmt.Errorf("create gemini client: %w", err)
		}
		cleanup = func() { _ = client.Close() }
		providers[ProviderGemini] = Backend{
			AI:     llm.NewGeminiAIProvider(client, settingsOf(cfg.GeminiAI)),
			Models: cfg.GeminiAI.Models,
		}
	}

	if cfg.Lorem.Enabled {
		providers[ProviderLorem] = Backend{AI: llm.NewLoremProvider(cfg.Lorem.Delay, cfg.Lorem.Words)}
	}

	return providers, cleanup, nil
}

// Names returns the configured provider names in sorted order.
func (p Providers) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, string(name))
	}
	slices.Sort(names)
	return names
}

// RenderPersona substitutes the {{user}} placeholder when a user name is
// configured. Without one the text is sent as written.
func RenderPersona(cfg config.PersonaConfig) string {
	if cfg.UserName == "" {
		return cfg.Text
	}
	return strings.ReplaceAll(cfg.Text, "{{user}}", cfg.UserName)
}

func settingsOf(cfg config.ProviderConfig) llm.Settings {
	return llm.Settings{Model: cfg.Model, MaxTokens: cfg.MaxTokens}
}
