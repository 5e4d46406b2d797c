package llm

import (
	"context"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
)

// Normalize clamps negative counts to zero and derives the total when a
// provider only reported its parts.
func (u TokenUsage) Normalize() TokenUsage {
	u.PromptTokens = max(u.PromptTokens, 0)
	u.CompletionTokens = max(u.CompletionTokens, 0)
	u.TotalTokens = max(u.TotalTokens, 0)
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}

func fromOpenAIUsage(u openai.Usage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}.Normalize()
}

// Anthropic reports input/output only.
func fromAnthropicUsage(input, output int64) TokenUsage {
	return TokenUsage{
		PromptTokens:     int(input),
		CompletionTokens: int(output),
	}.Normalize()
}

func fromGeminiUsage(u *genai.UsageMetadata) TokenUsage {
	if u == nil {
		return TokenUsage{}
	}
	return TokenUsage{
		PromptTokens:     int(u.PromptTokenCount),
		CompletionTokens: int(u.CandidatesTokenCount),
		TotalTokens:      int(u.TotalTokenCount),
	}.Normalize()
}

// send delivers chunk unless ctx is done first. It reports whether the
// consumer is still listening.
func send(ctx context.Context, ch chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- chunk:
		return true
	}
}
