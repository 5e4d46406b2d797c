package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
)

type GeminiProvider struct {
	client   *genai.Client
	settings Settings
}

func NewGeminiAIProvider(client *genai.Client, settings Settings) *GeminiProvider {
	return &GeminiProvider{client: client, settings: settings}
}

func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	chat, last, err := p.startChat(req)
	if err != nil {
		return Completion{}, err
	}
	res, err := chat.SendMessage(ctx, last...)
	if err != nil {
		return Completion{}, upstreamError("gemini", err)
	}
	return Completion{
		Content: responseText(res),
		Usage:   fromGeminiUsage(res.UsageMetadata),
	}, nil
}

func (p *GeminiProvider) StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	chat, last, err := p.startChat(req)
	if err != nil {
		return nil, err
	}
	resIterator := chat.SendMessageStream(ctx, last...)

	chunks := make(chan StreamChunk)
	go func() {
		defer close(chunks)

		for {
			resp, err := resIterator.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				send(ctx, chunks, StreamChunk{Err: upstreamError("gemini", err)})
				return
			}

			chunk := StreamChunk{Content: responseText(resp)}
			if resp.UsageMetadata != nil {
				usage := fromGeminiUsage(resp.UsageMetadata)
				chunk.Usage = &usage
			}
			if !send(ctx, chunks, chunk) {
				return
			}
		}
	}()

	return chunks, nil
}

// -----------------Private Helper Functions-----------------

// startChat maps the conversation onto a chat session: system turns become
// the system instruction, all but the last turn become history, and the last
// turn is returned as the parts to send.
func (p *GeminiProvider) startChat(req CompletionRequest) (*genai.ChatSession, []genai.Part, error) {
	name := req.Model
	if name == "" {
		name = p.settings.Model
	}
	model := p.client.GenerativeModel(name)
	model.SetTemperature(0)
	if p.settings.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(p.settings.MaxTokens))
	}

	var system []genai.Part
	var turns []*genai.Content
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleUser:
			turns = append(turns, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}})
		case RoleAssistant:
			turns = append(turns, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(msg.Content)}})
		default:
			system = append(system, genai.Text(msg.Content))
		}
	}
	if len(turns) == 0 {
		return nil, nil, upstreamError("gemini", fmt.Errorf("conversation has no user or assistant turns"))
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: system}
	}

	chat := model.StartChat()
	chat.History = turns[:len(turns)-1]
	return chat, turns[len(turns)-1].Parts, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
