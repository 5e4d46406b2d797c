package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"PCHAT/relay/internal/chatbot"
	"PCHAT/relay/internal/llm"
)

type Option func(*Client)

func WithProvider(provider string) Option {
	return func(c *Client) { c.provider = chatbot.Provider(provider) }
}

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithToken sends the token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// Client holds one conversation with the relay. At most one request is in
// flight at a time.
type Client struct {
	baseURL    string
	provider   chatbot.Provider
	model      string
	token      string
	httpClient *http.Client

	mu       sync.Mutex
	messages []Message
	usage    llm.TokenUsage
	err      error
	loading  bool
	cancel   context.CancelFunc
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit sends text as the next user turn and streams the reply into a
// placeholder assistant message. onDelta, if set, receives each content
// fragment. It returns ErrAborted when the request was stopped.
func (c *Client) Submit(ctx context.Context, text string, onDelta func(string)) error {
	reqCtx, history, placeholderID, err := c.begin(ctx, text, true)
	if err != nil {
		return err
	}
	defer c.end()

	err = c.stream(reqCtx, history, placeholderID, onDelta)
	switch {
	case err == nil:
		return nil
	case errors.Is(reqCtx.Err(), context.Canceled):
		c.mu.Lock()
		c.removeMessage(placeholderID)
		c.mu.Unlock()
		return ErrAborted
	default:
		slog.Warn("chat request failed", "error", err)
		c.mu.Lock()
		if msg := c.findMessage(placeholderID); msg != nil {
			msg.Content = ApologyText
			msg.Streaming = false
		}
		c.err = err
		c.mu.Unlock()
		return err
	}
}

// Complete is the non-streaming variant: the assistant message is appended
// once the whole answer has arrived.
func (c *Client) Complete(ctx context.Context, text string) error {
	reqCtx, history, _, err := c.begin(ctx, text, false)
	if err != nil {
		return err
	}
	defer c.end()

	response, err := c.complete(reqCtx, history)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.Canceled) {
			return ErrAborted
		}
		slog.Warn("chat request failed", "error", err)
		c.mu.Lock()
		c.messages = append(c.messages, newMessage(llm.RoleAssistant, ApologyText, false))
		c.err = err
		c.mu.Unlock()
		return err
	}

	var content strings.Builder
	for _, m := range response.Messages {
		content.WriteString(m.Content)
	}
	c.mu.Lock()
	c.messages = append(c.messages, newMessage(llm.RoleAssistant, content.String(), false))
	c.usage = response.TokenUsage
	c.mu.Unlock()
	return nil
}

// Stop aborts the in-flight request, if any.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Clear aborts any in-flight request and empties the conversation.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.messages = nil
	c.usage = llm.TokenUsage{}
	c.err = nil
}

// Messages returns a copy of the transcript.
func (c *Client) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Usage returns the totals reported for the last completed reply.
func (c *Client) Usage() llm.TokenUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

func (c *Client) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the error banner: the last failure, cleared by the next
// request or by Clear.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) begin(ctx context.Context, text string, placeholder bool) (context.Context, []chatbot.Message, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		return nil, nil, "", ErrBusy
	}

	c.messages = append(c.messages, newMessage(llm.RoleUser, text, false))
	history := make([]chatbot.Message, 0, len(c.messages))
	for _, m := range c.messages {
		history = append(history, chatbot.Message{Role: m.Role, Content: m.Content})
	}

	var placeholderID string
	if placeholder {
		msg := newMessage(llm.RoleAssistant, "", true)
		placeholderID = msg.ID
		c.messages = append(c.messages, msg)
	}

	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.loading = true
	c.err = nil
	return reqCtx, history, placeholderID, nil
}

func (c *Client) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.loading = false
}

func (c *Client) stream(ctx context.Context, history []chatbot.Message, placeholderID string, onDelta func(string)) error {
	resp, err := c.post(ctx, "/chat", history, "text/event-stream")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	reader := NewEventReader(resp.Body)
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return ErrIncompleteStream
		}
		if err != nil {
			return fmt.Errorf("failed to read stream: %w", err)
		}

		switch ev.Type {
		case chatbot.EventContent:
			c.mu.Lock()
			if msg := c.findMessage(placeholderID); msg != nil {
				msg.Content += ev.Content
			}
			c.mu.Unlock()
			if onDelta != nil {
				onDelta(ev.Content)
			}
		case chatbot.EventDone:
			c.mu.Lock()
			if msg := c.findMessage(placeholderID); msg != nil {
				msg.Streaming = false
			}
			if ev.TokenUsage != nil {
				c.usage = *ev.TokenUsage
			}
			c.mu.Unlock()
			return nil
		case chatbot.EventError:
			return &RelayError{Message: ev.Error}
		}
	}
}

func (c *Client) complete(ctx context.Context, history []chatbot.Message) (*chatbot.ChatResponse, error) {
	resp, err := c.post(ctx, "/chat/complete", history, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var response chatbot.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &response, nil
}

func (c *Client) post(ctx context.Context, path string, history []chatbot.Message, accept string) (*http.Response, error) {
	body, err := json.Marshal(chatbot.ChatRequest{Messages: history, Provider: c.provider, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach relay: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var errBody struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&errBody)
		return nil, &RelayError{StatusCode: resp.StatusCode, Message: errBody.Message}
	}
	return resp, nil
}

// findMessage must be called with mu held.
func (c *Client) findMessage(id string) *Message {
	for i := range c.messages {
		if c.messages[i].ID == id {
			return &c.messages[i]
		}
	}
	return nil
}

// removeMessage must be called with mu held.
func (c *Client) removeMessage(id string) {
	for i := range c.messages {
		if c.messages[i].ID == id {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return
		}
	}
}

func newMessage(role, content string, streaming bool) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Streaming: streaming,
	}
}
