package retrieve

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"learnpilot-rag/internal/index"
)

// QueryEmbedder is the slice of the AI embedder the retriever needs.
type QueryEmbedder interface {
	ID() string
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher is satisfied by *index.Store.
type Searcher interface {
	Query(ctx context.Context, userID string, embedding []float32, k int) ([]index.Match, error)
}

// EmbeddingCache memoizes query vectors; repeated questions skip the
// embedding backend entirely. Optional, nil disables caching.
type EmbeddingCache interface {
	Get(ctx context.Context, embedderID, text string) ([]float32, bool, error)
	Set(ctx context.Context, embedderID, text string, vector []float32) error
}

type Retriever struct {
	embedder QueryEmbedder
	store    Searcher
	cache    EmbeddingCache
	topK     int
}

func NewRetriever(embedder QueryEmbedder, store Searcher, cache EmbeddingCache, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{embedder: embedder, store: store, cache: cache, topK: topK}
}

// Search embeds the query and returns the user's k most similar
// passages, best first. Ties on score fall back to recency, so a
// freshly re-indexed passage wins over a stale equal-scoring one.
func (r *Retriever) Search(ctx context.Context, userID, query string, k int) ([]index.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if k <= 0 {
		k = r.topK
	}

	vector, err := r.queryVector(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := r.store.Query(ctx, userID, vector, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve passages failed: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].IndexedAt.After(matches[j].IndexedAt)
	})
	return matches, nil
}

func (r *Retriever) queryVector(ctx context.Context, query string) ([]float32, error) {
	if r.cache != nil {
		vector, hit, err := r.cache.Get(ctx, r.embedder.ID(), query)
		if err != nil {
			log.Warn().Err(err).Msg("embedding cache read failed")
		} else if hit {
			return vector, nil
		}
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed question failed: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, r.embedder.ID(), query, vector); err != nil {
			log.Warn().Err(err).Msg("embedding cache write failed")
		}
	}
	return vector, nil
}
