package chatbot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	chatService *ChatService
	timeout     time.Duration
}

// NewChatController wires the HTTP surface of the relay. The timeout bounds
// each upstream call; zero leaves request lifetime to the client connection.
func NewChatController(chatService *ChatService, timeout time.Duration) *ChatController {
	return &ChatController{chatService: chatService, timeout: timeout}
}

func (cc *ChatController) RegisterRoutes(router gin.IRoutes) {
	router.POST("/chat", cc.ChatStreamHandler)
	router.POST("/chat/complete", cc.ChatHandler)
}

// ChatStreamHandler relays the conversation as a text-event-stream. Once the
// body is accepted every outcome, failures included, is reported in-band as
// the terminal event.
func (cc *ChatController) ChatStreamHandler(c *gin.Context) {
	request, ok := bindChatRequest(c)
	if !ok {
		return
	}

	// Client disconnects cancel the request context; cancel also fires when
	// writing fails so the relay stops consuming upstream. The timeout only
	// bounds the upstream call so its expiry is still reported in-band.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	setSSEHeaders(c.Writer)
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	for ev := range cc.chatService.streamWithin(ctx, request, cc.timeout) {
		if err := writeSSEEvent(c.Writer, ev); err != nil {
			slog.Info("client disconnected during streaming", "error", err)
			return
		}
	}
}

// ChatHandler is the non-streaming variant: one blocking upstream call, one
// JSON body.
func (cc *ChatController) ChatHandler(c *gin.Context) {
	request, ok := bindChatRequest(c)
	if !ok {
		return
	}

	ctx, cancel := upstreamContext(c.Request.Context(), cc.timeout)
	defer cancel()

	response, err := cc.chatService.Complete(ctx, request)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("client disconnected before completion")
			return
		}
		slog.Error("chat completion failed", "provider", request.Provider, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Message: msgInternalError})
		return
	}
	c.JSON(http.StatusOK, response)
}

func bindChatRequest(c *gin.Context) (ChatRequest, bool) {
	var request ChatRequest
	if err := c.ShouldBindJSON(&request); err != nil || len(request.Messages) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Message: msgInvalidRequest})
		return ChatRequest{}, false
	}
	return request, true
}
