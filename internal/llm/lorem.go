package llm

import (
	"context"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"
)

// LoremProvider is an offline stand-in for a hosted model. It answers with
// lorem ipsum text, one word per chunk, and reports word counts as usage.
type LoremProvider struct {
	mu        sync.Mutex // guards generator
	generator *loremgen.Lorem
	delay     time.Duration
	words     int
}

func NewLoremProvider(delay time.Duration, words int) *LoremProvider {
	if words <= 0 {
		words = 40
	}
	return &LoremProvider{generator: loremgen.New(), delay: delay, words: words}
}

func (p *LoremProvider) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	words := p.generateWords()
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return Completion{}, ctx.Err()
	}
	return Completion{
		Content: strings.Join(words, " "),
		Usage:   p.usage(req, len(words)),
	}, nil
}

func (p *LoremProvider) StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	words := p.generateWords()
	chunks := make(chan StreamChunk)

	go func() {
		defer close(chunks)

		for i, word := range words {
			select {
			case <-time.After(p.delay):
			case <-ctx.Done():
				return
			}
			if i > 0 {
				word = " " + word
			}
			if !send(ctx, chunks, StreamChunk{Content: word}) {
				return
			}
		}
		usage := p.usage(req, len(words))
		send(ctx, chunks, StreamChunk{Usage: &usage})
	}()

	return chunks, nil
}

func (p *LoremProvider) generateWords() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var words []string
	for len(words) < p.words {
		words = append(words, strings.Fields(p.generator.Sentence(5, 15))...)
	}
	return words[:p.words]
}

// Word count stands in for a tokenizer.
func (p *LoremProvider) usage(req CompletionRequest, outputWords int) TokenUsage {
	input := 0
	for _, msg := range req.Messages {
		input += len(strings.Fields(msg.Content))
	}
	return TokenUsage{PromptTokens: input, CompletionTokens: outputWords}.Normalize()
}
