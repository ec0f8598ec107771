package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"learnpilot-rag/internal/ai"
	"learnpilot-rag/internal/index"
)

const noContextAnswer = "I couldn't find any relevant information in your uploaded documents. " +
	"Please make sure you've uploaded documents related to your question."

const groundedSystemPrompt = "You are a helpful study assistant. Answer the user's question based only on " +
	"the provided context from their uploaded documents. If the context does not contain enough " +
	"information, say so plainly. Do not make up facts."

// PassageSearcher is the slice of the retriever the query service uses.
type PassageSearcher interface {
	Search(ctx context.Context, userID, query string, k int) ([]index.Match, error)
}

// AnswerRouter is satisfied by *ai.Router.
type AnswerRouter interface {
	Generate(ctx context.Context, messages []ai.Message, opts ai.RouteOptions) (*ai.RouteResult, error)
}

// QueryService answers questions grounded in a user's indexed documents.
type QueryService struct {
	retriever PassageSearcher
	router    AnswerRouter
	topK      int
}

func NewQueryService(retriever PassageSearcher, router AnswerRouter, topK int) *QueryService {
	if topK <= 0 {
		topK = 5
	}
	return &QueryService{retriever: retriever, router: router, topK: topK}
}

type AnswerInput struct {
	UserID   string
	Question string
	// Provider pins a specific backend; empty walks the fallback chain.
	Provider string
	Model    string
}

type AnswerResult struct {
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
	Provider string   `json:"provider,omitempty"`
	Grounded bool     `json:"grounded"`
}

func (s *QueryService) Answer(ctx context.Context, input AnswerInput) (*AnswerResult, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, ErrInvalidInput
	}
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrInvalidInput
	}

	matches, err := s.retriever.Search(ctx, input.UserID, question, s.topK)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return &AnswerResult{Answer: noContextAnswer, Sources: []string{}, Grounded: false}, nil
	}

	messages := buildGroundedPrompt(question, matches)
	result, err := s.router.Generate(ctx, messages, ai.RouteOptions{
		Provider: input.Provider,
		Model:    input.Model,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", input.UserID).
		Str("provider", result.Provider).
		Int("passages", len(matches)).
		Msg("grounded answer generated")

	return &AnswerResult{
		Answer:   result.Text,
		Sources:  uniqueSources(matches),
		Provider: result.Provider,
		Grounded: true,
	}, nil
}

func buildGroundedPrompt(question string, matches []index.Match) []ai.Message {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	for _, m := range matches {
		sb.WriteString("---\n")
		if m.Label != "" {
			sb.WriteString(fmt.Sprintf("[%s, %s]\n", m.Source, m.Label))
		} else {
			sb.WriteString(fmt.Sprintf("[%s]\n", m.Source))
		}
		sb.WriteString(m.Text)
		sb.WriteString("\n")
	}
	sb.WriteString("---\n\nQuestion: ")
	sb.WriteString(question)

	return []ai.Message{
		{Role: ai.RoleSystem, Content: groundedSystemPrompt},
		{Role: ai.RoleUser, Content: sb.String()},
	}
}

// uniqueSources keeps the first occurrence order, so the most relevant
// document is named first.
func uniqueSources(matches []index.Match) []string {
	seen := make(map[string]bool, len(matches))
	sources := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Source == "" || seen[m.Source] {
			continue
		}
		seen[m.Source] = true
		sources = append(sources, m.Source)
	}
	return sources
}
