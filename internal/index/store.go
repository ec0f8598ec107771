package index

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

// ErrEmbedderMismatch means the collection holds vectors from a different
// embedding model than the one currently configured. Comparing vectors
// across embedding spaces is meaningless, so the query is refused.
var ErrEmbedderMismatch = errors.New("indexed passages were embedded with a different model")

const (
	embedAttempts    = 3
	embedBackoffBase = 500 * time.Millisecond
)

// Embedder is the slice of the AI embedder the store needs.
type Embedder interface {
	ID() string
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Passage is one chunk of a document ready for indexing.
type Passage struct {
	DocumentID string
	UserID     string
	Source     string
	Label      string
	Text       string
	Ordinal    int
}

// Match is one retrieval hit.
type Match struct {
	DocumentID string
	Source     string
	Label      string
	Text       string
	Ordinal    int
	Score      float32
	IndexedAt  time.Time
}

// Store wraps a chromem-go collection. chromem has no transactions, so
// ReplaceDocument embeds everything up front (a failed embed writes
// nothing) and performs delete-then-insert under a store-wide write
// lock; readers holding the read lock never observe a torn document.
type Store struct {
	db       *chromem.DB
	col      *chromem.Collection
	embedder Embedder
	mu       sync.RWMutex
}

// NewStore opens (or creates) a persistent collection under dataDir.
// An empty dataDir yields an in-memory store, used by tests.
func NewStore(dataDir, collection string, embedder Embedder) (*Store, error) {
	var db *chromem.DB
	var err error
	if dataDir == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dataDir, false)
		if err != nil {
			return nil, fmt.Errorf("open vector db failed: %w", err)
		}
	}

	col, err := db.GetOrCreateCollection(collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open collection failed: %w", err)
	}

	return &Store{db: db, col: col, embedder: embedder}, nil
}

// ReplaceDocument atomically swaps all passages of a document. Running
// it twice with the same input leaves exactly one copy of each passage,
// so re-indexing is idempotent. Returns the number of passages written.
func (s *Store) ReplaceDocument(ctx context.Context, userID, documentID string, passages []Passage) (int, error) {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	vectors, err := s.embedWithBackoff(ctx, texts)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	docs := make([]chromem.Document, len(passages))
	for i, p := range passages {
		docs[i] = chromem.Document{
			ID:        fmt.Sprintf("%s:%d", documentID, p.Ordinal),
			Content:   p.Text,
			Embedding: vectors[i],
			Metadata: map[string]string{
				"user_id":    p.UserID,
				"doc_id":     p.DocumentID,
				"source":     p.Source,
				"label":      p.Label,
				"ordinal":    strconv.Itoa(p.Ordinal),
				"embedder":   s.embedder.ID(),
				"indexed_at": now,
			},
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.deleteLocked(ctx, userID, documentID); err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if err := s.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("add passages failed: %w", err)
	}
	return len(docs), nil
}

// DeleteDocument removes every passage of the document for that user.
func (s *Store) DeleteDocument(ctx context.Context, userID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(ctx, userID, documentID)
}

func (s *Store) deleteLocked(ctx context.Context, userID, documentID string) error {
	where := map[string]string{"user_id": userID, "doc_id": documentID}
	if err := s.col.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("delete passages failed: %w", err)
	}
	return nil
}

// Query returns up to k passages belonging to userID, most similar
// first. The user filter is applied inside the vector store, so one
// user's passages can never appear in another user's results.
func (s *Store) Query(ctx context.Context, userID string, embedding []float32, k int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 {
		return nil, nil
	}
	if total := s.col.Count(); total < k {
		k = total
	}
	if k == 0 {
		return nil, nil
	}

	results, err := s.col.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       k,
		Where:          map[string]string{"user_id": userID},
	})
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		if id := r.Metadata["embedder"]; id != "" && id != s.embedder.ID() {
			return nil, fmt.Errorf("%w: indexed with %q, querying with %q", ErrEmbedderMismatch, id, s.embedder.ID())
		}
		ordinal, _ := strconv.Atoi(r.Metadata["ordinal"])
		indexedAt, _ := time.Parse(time.RFC3339, r.Metadata["indexed_at"])
		matches = append(matches, Match{
			DocumentID: r.Metadata["doc_id"],
			Source:     r.Metadata["source"],
			Label:      r.Metadata["label"],
			Text:       r.Content,
			Ordinal:    ordinal,
			Score:      r.Similarity,
			IndexedAt:  indexedAt,
		})
	}
	return matches, nil
}

// embedWithBackoff retries transient embedding failures a few times
// before giving up on the whole document.
func (s *Store) embedWithBackoff(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var lastErr error
	delay := embedBackoffBase
	for attempt := 1; attempt <= embedAttempts; attempt++ {
		vectors, err := s.embedder.EmbedDocuments(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("embedding batch failed")

		if attempt == embedAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, fmt.Errorf("embedding backend failed after %d attempts: %w", embedAttempts, lastErr)
}
