package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PCHAT/relay/internal/chatbot"
	"PCHAT/relay/internal/llm"
)

// scriptedProvider streams the same fixed chunks for every request.
type scriptedProvider struct {
	chunks []llm.StreamChunk
}

func (p *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	var out llm.Completion
	for _, c := range p.chunks {
		out.Content += c.Content
		if c.Usage != nil {
			out.Usage = *c.Usage
		}
	}
	return out, nil
}

func (p *scriptedProvider) StreamComplete(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk, len(p.chunks))
	for _, c := range p.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func newRelay(t *testing.T, provider llm.AIProvider) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	service := chatbot.NewChatService(chatbot.Providers{chatbot.ProviderOpenAI: {AI: provider}}, "")
	chatbot.NewChatController(service, 0).RegisterRoutes(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func newSSEServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return srv
}

func writeRecord(w http.ResponseWriter, payload string) {
	fmt.Fprintf(w, "data: %s\n\n", payload)
	w.(http.Flusher).Flush()
}

var helloProvider = &scriptedProvider{chunks: []llm.StreamChunk{
	{Content: "He"},
	{Content: "llo"},
	{Usage: &llm.TokenUsage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7}},
}}

func TestSubmit_HelloScenario(t *testing.T) {
	srv := newRelay(t, helloProvider)
	c := New(srv.URL, WithProvider("openai"))

	var deltas []string
	err := c.Submit(context.Background(), "hi", func(s string) { deltas = append(deltas, s) })
	require.NoError(t, err)

	messages := c.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, llm.RoleUser, messages[0].Role)
	assert.Equal(t, "hi", messages[0].Content)
	assert.Equal(t, llm.RoleAssistant, messages[1].Role)
	assert.Equal(t, "Hello", messages[1].Content)
	assert.False(t, messages[1].Streaming)
	assert.NotEmpty(t, messages[1].ID)
	assert.NotEqual(t, messages[0].ID, messages[1].ID)

	assert.Equal(t, []string{"He", "llo"}, deltas)
	assert.Equal(t, llm.TokenUsage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7}, c.Usage())
	assert.False(t, c.Loading())
	assert.NoError(t, c.Err())
}

func TestComplete_HelloScenario(t *testing.T) {
	srv := newRelay(t, helloProvider)
	c := New(srv.URL)

	require.NoError(t, c.Complete(context.Background(), "hi"))

	messages := c.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "Hello", messages[1].Content)
	assert.Equal(t, 7, c.Usage().TotalTokens)
}

func TestSubmit_SendsHistoryAndToken(t *testing.T) {
	var mu sync.Mutex
	var gotAuth []string
	var gotLens []int
	srv := newSSEServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatbot.ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		gotLens = append(gotLens, len(req.Messages))
		mu.Unlock()
		writeRecord(w, `{"type":"content","content":"ok"}`)
		writeRecord(w, `{"type":"done","tokenUsage":{"promptTokens":1,"completionTokens":1,"totalTokens":2}}`)
	})
	c := New(srv.URL, WithToken("abc"))

	require.NoError(t, c.Submit(context.Background(), "one", nil))
	require.NoError(t, c.Submit(context.Background(), "two", nil))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Bearer abc", "Bearer abc"}, gotAuth)
	assert.Equal(t, []int{1, 3}, gotLens, "the placeholder is never sent")
}

func TestSubmit_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler func(w http.ResponseWriter, r *http.Request)
		check   func(t *testing.T, err error)
	}{
		{
			name: "error event",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeRecord(w, `{"type":"content","content":"par"}`)
				writeRecord(w, `{"type":"error","error":"Failed to generate a response"}`)
			},
			check: func(t *testing.T, err error) {
				var relayErr *RelayError
				require.ErrorAs(t, err, &relayErr)
				assert.Equal(t, "Failed to generate a response", relayErr.Message)
			},
		},
		{
			name: "stream without terminal event",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeRecord(w, `{"type":"content","content":"par"}`)
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrIncompleteStream)
			},
		},
		{
			name: "http status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"message":"Unauthorized"}`)
			},
			check: func(t *testing.T, err error) {
				var relayErr *RelayError
				require.ErrorAs(t, err, &relayErr)
				assert.Equal(t, http.StatusUnauthorized, relayErr.StatusCode)
				assert.Equal(t, "Unauthorized", relayErr.Message)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(newSSEServer(t, tt.handler).URL)

			err := c.Submit(context.Background(), "hi", nil)
			tt.check(t, err)

			messages := c.Messages()
			require.Len(t, messages, 2)
			assert.Equal(t, ApologyText, messages[1].Content)
			assert.False(t, messages[1].Streaming)
			assert.Equal(t, err, c.Err())
			assert.False(t, c.Loading())
		})
	}
}

func TestSubmit_StopDiscardsPlaceholder(t *testing.T) {
	var calls atomic.Int32
	srv := newSSEServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeRecord(w, `{"type":"content","content":"earlier answer"}`)
			writeRecord(w, `{"type":"done","tokenUsage":{"promptTokens":3,"completionTokens":2,"totalTokens":5}}`)
			return
		}
		writeRecord(w, `{"type":"content","content":"half"}`)
		<-r.Context().Done()
	})
	c := New(srv.URL)
	require.NoError(t, c.Submit(context.Background(), "first", nil))
	before := c.Messages()

	err := c.Submit(context.Background(), "second", func(string) { c.Stop() })

	assert.ErrorIs(t, err, ErrAborted)
	after := c.Messages()
	require.Len(t, after, len(before)+1)
	assert.Equal(t, before, after[:len(before)])
	assert.Equal(t, "second", after[len(before)].Content)
	assert.Equal(t, llm.RoleUser, after[len(before)].Role)
	assert.NoError(t, c.Err(), "aborting raises no banner")
	assert.False(t, c.Loading())
	assert.Equal(t, 5, c.Usage().TotalTokens)
}

func TestSubmit_BusyAndClear(t *testing.T) {
	srv := newSSEServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeRecord(w, `{"type":"content","content":"half"}`)
		<-r.Context().Done()
	})
	c := New(srv.URL)

	streaming := make(chan struct{})
	result := make(chan error, 1)
	go func() {
		result <- c.Submit(context.Background(), "hi", func(string) { close(streaming) })
	}()
	<-streaming

	assert.True(t, c.Loading())
	assert.ErrorIs(t, c.Submit(context.Background(), "again", nil), ErrBusy)
	assert.ErrorIs(t, c.Complete(context.Background(), "again"), ErrBusy)

	c.Clear()

	assert.ErrorIs(t, <-result, ErrAborted)
	assert.Empty(t, c.Messages())
	assert.False(t, c.Loading())
	assert.NoError(t, c.Err())
}

func TestComplete_Failure(t *testing.T) {
	srv := newSSEServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"message":"Internal server error"}`)
	})
	c := New(srv.URL)

	err := c.Complete(context.Background(), "hi")

	var relayErr *RelayError
	require.True(t, errors.As(err, &relayErr))
	messages := c.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, ApologyText, messages[1].Content)
	assert.Equal(t, err, c.Err())
}
