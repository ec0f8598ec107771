package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"learnpilot-rag/internal/ai"
	"learnpilot-rag/internal/app"
	"learnpilot-rag/internal/index"
	"learnpilot-rag/internal/transport/http/response"
)

// Answerer is the slice of the query service the handler uses.
type Answerer interface {
	Answer(ctx context.Context, input app.AnswerInput) (*app.AnswerResult, error)
}

// DirectChatter is the slice of the chat service the handler uses.
type DirectChatter interface {
	Send(ctx context.Context, input app.ChatInput) (*app.ChatResult, error)
}

type ChatHandler struct {
	query Answerer
	chat  DirectChatter
}

func NewChatHandler(query Answerer, chat DirectChatter) *ChatHandler {
	return &ChatHandler{query: query, chat: chat}
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	UserID   string        `json:"userId"`
	Message  string        `json:"message"`
	Messages []ChatMessage `json:"messages"`
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	// Mode "direct" bypasses retrieval; default is the grounded path.
	Mode string `json:"mode"`
}

// Send routes a chat request. A message list or mode=direct goes
// straight to the model router; a single message runs the grounded
// question answering path over the user's documents.
func (h *ChatHandler) Send(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest,
			response.ReasonInvalidRequest, "invalid request payload")
		return
	}

	if req.Mode == "direct" || len(req.Messages) > 0 {
		h.sendDirect(c, req)
		return
	}
	h.sendGrounded(c, req)
}

func (h *ChatHandler) sendDirect(c *gin.Context, req ChatRequest) {
	messages := make([]ai.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, ai.Message{Role: m.Role, Content: m.Content})
	}
	if len(messages) == 0 && strings.TrimSpace(req.Message) != "" {
		messages = append(messages, ai.Message{Role: ai.RoleUser, Content: req.Message})
	}

	result, err := h.chat.Send(c.Request.Context(), app.ChatInput{
		Messages: messages,
		Provider: req.Provider,
		Model:    req.Model,
	})
	if err != nil {
		writeChatError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *ChatHandler) sendGrounded(c *gin.Context, req ChatRequest) {
	result, err := h.query.Answer(c.Request.Context(), app.AnswerInput{
		UserID:   req.UserID,
		Question: req.Message,
		Provider: req.Provider,
		Model:    req.Model,
	})
	if err != nil {
		writeChatError(c, err)
		return
	}

	response.OK(c, result)
}

func writeChatError(c *gin.Context, err error) {
	var exhausted *ai.ExhaustedError
	switch {
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrMessagesEmpty):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest,
			response.ReasonInvalidRequest, "userId and message are required")
	case errors.Is(err, ai.ErrUnknownProvider):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest,
			response.ReasonInvalidRequest, "unknown provider")
	case errors.Is(err, ai.ErrProviderPinned):
		response.Error(c, http.StatusServiceUnavailable, response.CodeServiceUnavailable,
			response.ReasonBackendUnavailable, "requested provider is not available")
	case errors.As(err, &exhausted):
		response.Error(c, http.StatusServiceUnavailable, response.CodeServiceUnavailable,
			response.ReasonProvidersExhausted, "all model providers failed, try again later")
	case errors.Is(err, index.ErrEmbedderMismatch):
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer,
			response.ReasonInternal, "index was built with a different embedding model")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer,
			response.ReasonInternal, "chat request failed")
	}
}
