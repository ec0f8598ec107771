package app

import (
	"context"
	"errors"
	"strings"

	"learnpilot-rag/internal/ai"
)

var ErrMessagesEmpty = errors.New("messages are empty")

const maxChatMessages = 50

// ChatService handles direct chat: the caller supplies the full message
// list and the router picks (or pins) a provider. No retrieval involved.
type ChatService struct {
	router AnswerRouter
}

func NewChatService(router AnswerRouter) *ChatService {
	return &ChatService{router: router}
}

type ChatInput struct {
	Messages []ai.Message
	Provider string
	Model    string
}

type ChatResult struct {
	Reply    string `json:"reply"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

func (s *ChatService) Send(ctx context.Context, input ChatInput) (*ChatResult, error) {
	messages, err := sanitizeMessages(input.Messages)
	if err != nil {
		return nil, err
	}

	result, err := s.router.Generate(ctx, messages, ai.RouteOptions{
		Provider: input.Provider,
		Model:    input.Model,
	})
	if err != nil {
		return nil, err
	}

	return &ChatResult{
		Reply:    result.Text,
		Provider: result.Provider,
		Model:    result.Model,
	}, nil
}

func sanitizeMessages(messages []ai.Message) ([]ai.Message, error) {
	if len(messages) == 0 {
		return nil, ErrMessagesEmpty
	}
	if len(messages) > maxChatMessages {
		messages = messages[len(messages)-maxChatMessages:]
	}

	out := make([]ai.Message, 0, len(messages))
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		role := m.Role
		switch role {
		case ai.RoleSystem, ai.RoleUser, ai.RoleAssistant:
		default:
			role = ai.RoleUser
		}
		out = append(out, ai.Message{Role: role, Content: content})
	}
	if len(out) == 0 {
		return nil, ErrMessagesEmpty
	}
	return out, nil
}
