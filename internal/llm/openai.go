package llm

import (
	"context"
	"errors"
	"io"
	"math"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to any OpenAI compatible chat completions API. xAI's
// Grok endpoint is served by the same adapter with a different base URL.
type OpenAIProvider struct {
	name     string
	client   *openai.Client
	settings Settings
}

func NewOpenAIProvider(name string, client *openai.Client, settings Settings) *OpenAIProvider {
	return &OpenAIProvider{name: name, client: client, settings: settings}
}

// NewOpenAIClient builds a go-openai client, pointing it at baseURL when set.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	res, err := p.client.CreateChatCompletion(ctx, p.buildRequest(req, false))
	if err != nil {
		return Completion{}, upstreamError(p.name, err)
	}
	if len(res.Choices) == 0 {
		return Completion{}, upstreamError(p.name, ErrEmptyResponse)
	}
	return Completion{
		Content: res.Choices[0].Message.Content,
		Usage:   fromOpenAIUsage(res.Usage),
	}, nil
}

func (p *OpenAIProvider) StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, p.buildRequest(req, true))
	if err != nil {
		return nil, upstreamError(p.name, err)
	}

	chunks := make(chan StreamChunk)
	go func() {
		defer close(chunks)
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				send(ctx, chunks, StreamChunk{Err: upstreamError(p.name, err)})
				return
			}

			chunk := StreamChunk{}
			if len(response.Choices) > 0 {
				chunk.Content = response.Choices[0].Delta.Content
			}
			// With include_usage the final chunk has no choices and carries the totals.
			if response.Usage != nil {
				usage := fromOpenAIUsage(*response.Usage)
				chunk.Usage = &usage
			}
			if chunk.Content == "" && chunk.Usage == nil {
				continue
			}
			if !send(ctx, chunks, chunk) {
				return
			}
		}
	}()

	return chunks, nil
}

func (p *OpenAIProvider) buildRequest(req CompletionRequest, stream bool) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = p.settings.Model
	}
	out := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(req.Messages),
		// go-openai drops a zero temperature through omitempty, which the API
		// reads as 1. The smallest float keeps the request deterministic.
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   p.settings.MaxTokens,
		Stream:      stream,
	}
	if stream {
		out.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return out
}

// ------------------Private helper function------------------

func toOpenAIMessage(msg Message) openai.ChatCompletionMessage {
	role := openai.ChatMessageRoleSystem
	switch msg.Role {
	case RoleUser:
		role = openai.ChatMessageRoleUser
	case RoleAssistant:
		role = openai.ChatMessageRoleAssistant
	}
	return openai.ChatCompletionMessage{
		Role:    role,
		Content: msg.Content,
	}
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		result[i] = toOpenAIMessage(msg)
	}
	return result
}
