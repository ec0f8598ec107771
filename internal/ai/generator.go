package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1024
)

var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Message is a provider-neutral chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Backend is one concrete model provider. A backend constructed without
// credentials carries a nil client and reports itself unavailable rather
// than failing at startup.
type Backend struct {
	name         string
	defaultModel string
	llm          llms.Model
}

func NewBackend(name, defaultModel string, llm llms.Model) *Backend {
	return &Backend{name: name, defaultModel: defaultModel, llm: llm}
}

func (b *Backend) Name() string { return b.name }

func (b *Backend) Available() bool { return b.llm != nil }

// Generate runs one completion. modelID overrides the backend's default
// model when non-empty.
func (b *Backend) Generate(ctx context.Context, messages []Message, modelID string) (string, error) {
	if b.llm == nil {
		return "", fmt.Errorf("provider %s: backend unavailable", b.name)
	}

	opts := []llms.CallOption{
		llms.WithTemperature(defaultTemperature),
		llms.WithMaxTokens(defaultMaxTokens),
	}
	if modelID != "" {
		opts = append(opts, llms.WithModel(modelID))
	}

	resp, err := b.llm.GenerateContent(ctx, toLangchainMessages(messages), opts...)
	if err != nil {
		return "", fmt.Errorf("provider %s: %w", b.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("provider %s: %w", b.name, ErrEmptyCompletion)
	}
	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", fmt.Errorf("provider %s: %w", b.name, ErrEmptyCompletion)
	}
	return text, nil
}

func toLangchainMessages(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out
}
