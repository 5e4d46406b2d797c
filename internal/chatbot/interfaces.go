package chatbot

import "PCHAT/relay/internal/llm"

type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGrok      Provider = "grok"
	ProviderGemini    Provider = "gemini"
	ProviderLorem     Provider = "lorem"
)

// DefaultProvider is used when a request omits the provider field.
const DefaultProvider = ProviderOpenAI

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []Message `json:"messages"`
	Provider Provider  `json:"provider,omitempty"`
	Model    string    `json:"model,omitempty"`
}

// ChatResponse is the body of the non-streaming endpoint.
type ChatResponse struct {
	Messages   []ResponseMessage `json:"messages"`
	TokenUsage llm.TokenUsage    `json:"tokenUsage"`
}

type ResponseMessage struct {
	Content string `json:"content"`
}

type EventType string

const (
	EventContent EventType = "content"
	EventDone    EventType = "done"
	EventError   EventType = "error"
)

// StreamEvent is one text-event-stream record sent to the client. Done and
// Error are terminal; a stream carries exactly one of them, last.
type StreamEvent struct {
	Type       EventType       `json:"type"`
	Content    string          `json:"content,omitempty"`
	TokenUsage *llm.TokenUsage `json:"tokenUsage,omitempty"`
	Error      string          `json:"error,omitempty"`
}

func (e StreamEvent) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

type errorResponse struct {
	Message string `json:"message"`
}
