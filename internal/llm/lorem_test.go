package llm

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoremProvider_StreamMatchesWordCount(t *testing.T) {
	p := NewLoremProvider(time.Millisecond, 12)
	chunks, err := p.StreamComplete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "tell me something"}},
	})
	require.NoError(t, err)

	var text string
	var usage *TokenUsage
	for chunk := range chunks {
		text += chunk.Content
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
	}
	assert.Len(t, strings.Fields(text), 12)
	require.NotNil(t, usage)
	assert.Equal(t, TokenUsage{3, 12, 15}, *usage)
}

func TestLoremProvider_StopsOnCancel(t *testing.T) {
	p := NewLoremProvider(50*time.Millisecond, 100)
	ctx, cancel := context.WithCancel(context.Background())
	chunks, err := p.StreamComplete(ctx, CompletionRequest{})
	require.NoError(t, err)

	<-chunks
	cancel()

	done := make(chan struct{})
	go func() {
		for range chunks {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream was not closed after cancel")
	}
}
