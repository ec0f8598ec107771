package ai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder wraps a langchaingo embedder together with a stable identifier.
// The identifier is stamped onto every indexed passage, so a later config
// change to a different embedding space is detected instead of silently
// returning garbage similarities.
type Embedder struct {
	impl *embeddings.EmbedderImpl
	id   string
}

func NewOllamaEmbedder(serverURL, model string) (*Embedder, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("init ollama embedding client failed: %w", err)
	}
	impl, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create embedder failed: %w", err)
	}
	return &Embedder{impl: impl, id: "ollama/" + model}, nil
}

func NewOpenAIEmbedder(baseURL, apiKey, model string) (*Embedder, error) {
	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(apiKey),
		openai.WithModel(model),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("init openai embedding client failed: %w", err)
	}
	impl, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create embedder failed: %w", err)
	}
	return &Embedder{impl: impl, id: "openai/" + model}, nil
}

func (e *Embedder) ID() string {
	return e.id
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	return vec, nil
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents failed: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}
