package chatbot

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"PCHAT/relay/internal/llm"
)

// Backend is a configured provider client plus the request models it may be
// switched to.
type Backend struct {
	AI     llm.AIProvider
	Models []string
}

// Providers is built once at process start and never mutated afterwards.
type Providers map[Provider]Backend

// ChatService relays a conversation to the selected provider.
type ChatService struct {
	providers Providers
	persona   string
}

// NewChatService creates a new instance of ChatService. A persona that is
// empty after trimming disables the system turn.
func NewChatService(providers Providers, persona string) *ChatService {
	return &ChatService{providers: providers, persona: strings.TrimSpace(persona)}
}

// AssemblePrompt maps client messages to provider messages and prepends the
// persona as a single system turn when one is configured. Roles other than
// user and assistant are sent as system turns.
func (cs *ChatService) AssemblePrompt(messages []Message) []llm.Message {
	prompt := make([]llm.Message, 0, len(messages)+1)
	if cs.persona != "" {
		prompt = append(prompt, llm.Message{Role: llm.RoleSystem, Content: cs.persona})
	}
	for _, msg := range messages {
		role := llm.RoleSystem
		switch msg.Role {
		case llm.RoleUser, llm.RoleAssistant:
			role = msg.Role
		}
		prompt = append(prompt, llm.Message{Role: role, Content: msg.Content})
	}
	return prompt
}

// Complete issues one blocking call and returns the whole answer.
func (cs *ChatService) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	provider, creq, err := cs.dispatch(req)
	if err != nil {
		return nil, err
	}

	res, err := provider.Complete(ctx, creq)
	if err != nil {
		return nil, err
	}

	return &ChatResponse{
		Messages:   []ResponseMessage{{Content: res.Content}},
		TokenUsage: res.Usage.Normalize(),
	}, nil
}

// Stream relays the provider stream as client events. The returned channel
// yields content events followed by exactly one done or error event, then
// closes. If ctx is cancelled the stream stops without a terminal event and
// the upstream call is aborted.
func (cs *ChatService) Stream(ctx context.Context, req ChatRequest) <-chan StreamEvent {
	return cs.streamWithin(ctx, req, 0)
}

// streamWithin is Stream with a deadline on the upstream call only. When the
// deadline passes while the caller is still reading, the stream ends with an
// error event.
func (cs *ChatService) streamWithin(ctx context.Context, req ChatRequest, timeout time.Duration) <-chan StreamEvent {
	events := make(chan StreamEvent)

	go func() {
		defer close(events)

		emit := func(ev StreamEvent) bool {
			select {
			case <-ctx.Done():
				return false
			case events <- ev:
				return true
			}
		}

		provider, creq, err := cs.dispatch(req)
		if err != nil {
			slog.Warn("dispatch failed", "provider", req.Provider, "error", err)
			emit(StreamEvent{Type: EventError, Error: err.Error()})
			return
		}

		upstreamCtx, cancel := upstreamContext(ctx, timeout)
		defer cancel()

		chunks, err := provider.StreamComplete(upstreamCtx, creq)
		if err != nil {
			slog.Error("failed to open provider stream", "provider", req.Provider, "error", err)
			emit(StreamEvent{Type: EventError, Error: msgUpstreamFailure})
			return
		}

		var usage llm.TokenUsage
		for chunk := range chunks {
			if chunk.Err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Error("provider stream failed", "provider", req.Provider, "error", chunk.Err)
				emit(StreamEvent{Type: EventError, Error: msgUpstreamFailure})
				return
			}
			if chunk.Usage != nil {
				usage = *chunk.Usage
			}
			if chunk.Content == "" {
				continue
			}
			if !emit(StreamEvent{Type: EventContent, Content: chunk.Content}) {
				return
			}
		}

		switch {
		case ctx.Err() != nil:
			return
		case upstreamCtx.Err() != nil:
			slog.Error("provider stream timed out", "provider", req.Provider, "timeout", timeout)
			emit(StreamEvent{Type: EventError, Error: msgUpstreamFailure})
			return
		}
		usage = usage.Normalize()
		emit(StreamEvent{Type: EventDone, TokenUsage: &usage})
	}()

	return events
}

func upstreamContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func (cs *ChatService) dispatch(req ChatRequest) (llm.AIProvider, llm.CompletionRequest, error) {
	name := req.Provider
	if name == "" {
		name = DefaultProvider
	}
	backend, ok := cs.providers[name]
	if !ok || backend.AI == nil {
		return nil, llm.CompletionRequest{}, &UnsupportedProviderError{Provider: name}
	}

	creq := llm.CompletionRequest{Messages: cs.AssemblePrompt(req.Messages)}
	if req.Model != "" && slices.Contains(backend.Models, req.Model) {
		creq.Model = req.Model
	}
	return backend.AI, creq, nil
}
