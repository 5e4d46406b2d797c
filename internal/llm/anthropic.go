package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic requires max_tokens on every request.
const anthropicDefaultMaxTokens = 1024

type AnthropicProvider struct {
	client   *anthropic.Client
	settings Settings
}

func NewAnthropicProvider(client *anthropic.Client, settings Settings) *AnthropicProvider {
	return &AnthropicProvider{client: client, settings: settings}
}

func NewAnthropicClient(apiKey, baseURL string) *anthropic.Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)
	return &client
}

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	message, err := p.client.Messages.New(ctx, p.buildParams(req))
	if err != nil {
		return Completion{}, upstreamError("anthropic", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return Completion{
		Content: sb.String(),
		Usage:   fromAnthropicUsage(message.Usage.InputTokens, message.Usage.OutputTokens),
	}, nil
}

// StreamComplete forwards text deltas. Every event is folded into a running
// message so the usage snapshot covers both message_start (input tokens) and
// message_delta (output tokens).
func (p *AnthropicProvider) StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	stream := p.client.Messages.NewStreaming(ctx, p.buildParams(req))

	chunks := make(chan StreamChunk)
	go func() {
		defer close(chunks)
		defer stream.Close()

		message := anthropic.Message{}
		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				send(ctx, chunks, StreamChunk{Err: upstreamError("anthropic", err)})
				return
			}

			chunk := StreamChunk{}
			switch e := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if e.Delta.Type == "text_delta" {
					chunk.Content = e.Delta.Text
				}
			case anthropic.MessageStartEvent, anthropic.MessageDeltaEvent:
				usage := fromAnthropicUsage(message.Usage.InputTokens, message.Usage.OutputTokens)
				chunk.Usage = &usage
			}
			if chunk.Content == "" && chunk.Usage == nil {
				continue
			}
			if !send(ctx, chunks, chunk) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			send(ctx, chunks, StreamChunk{Err: upstreamError("anthropic", err)})
		}
	}()

	return chunks, nil
}

func (p *AnthropicProvider) buildParams(req CompletionRequest) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = p.settings.Model
	}
	maxTokens := p.settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(0),
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleUser:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			// The Messages API has no system role; system turns go to the system parameter.
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
		}
	}
	return params
}
