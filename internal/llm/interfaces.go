package llm

import (
	"context"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Messages []Message
	// Model overrides the provider's configured model when non-empty.
	Model string
}

// TokenUsage is the provider independent shape of token accounting.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type Completion struct {
	Content string
	Usage   TokenUsage
}

// StreamChunk is one incremental unit of a streamed response. Usage, when
// set, is a full snapshot of the counts reported so far. A chunk carrying Err
// is always the last one sent before the channel closes.
type StreamChunk struct {
	Content string
	Usage   *TokenUsage
	Err     error
}

// Settings holds per provider request parameters fixed at process start.
type Settings struct {
	Model     string
	MaxTokens int
}

type AIProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	// StreamComplete returns a channel that is closed when the upstream stream
	// ends. Cancelling ctx aborts the upstream call and stops the producer.
	StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
