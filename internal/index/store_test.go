package index

import (
	"context"
	"crypto/sha256"
	"errors"
	"testing"
)

// hashEmbedder produces deterministic vectors so similarity ordering is
// stable across runs: identical text always maps to an identical vector.
type hashEmbedder struct {
	id    string
	calls int
	fail  int // fail this many leading calls
}

func (h *hashEmbedder) ID() string { return h.id }

func (h *hashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	h.calls++
	if h.calls <= h.fail {
		return nil, errors.New("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t)
	}
	return out, nil
}

func hashVector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, 32)
	for i, b := range sum {
		vec[i] = float32(b)/255.0 - 0.5
	}
	return vec
}

func newTestStore(t *testing.T, embedder Embedder) *Store {
	t.Helper()
	s, err := NewStore("", "test_docs", embedder)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func passagesFor(userID, docID string, texts ...string) []Passage {
	ps := make([]Passage, len(texts))
	for i, txt := range texts {
		ps[i] = Passage{
			DocumentID: docID,
			UserID:     userID,
			Source:     "notes.pdf",
			Text:       txt,
			Ordinal:    i,
		}
	}
	return ps
}

func TestReplaceDocumentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	emb := &hashEmbedder{id: "fake/one"}
	s := newTestStore(t, emb)

	ps := passagesFor("u1", "doc1", "alpha beta", "gamma delta")

	n, err := s.ReplaceDocument(ctx, "u1", "doc1", ps)
	if err != nil {
		t.Fatalf("first ReplaceDocument: %v", err)
	}
	if n != 2 {
		t.Fatalf("first pass wrote %d passages, want 2", n)
	}

	n, err = s.ReplaceDocument(ctx, "u1", "doc1", ps)
	if err != nil {
		t.Fatalf("second ReplaceDocument: %v", err)
	}
	if n != 2 {
		t.Fatalf("second pass wrote %d passages, want 2", n)
	}

	matches, err := s.Query(ctx, "u1", hashVector("alpha beta"), 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d passages after re-index, want 2 (no duplicates)", len(matches))
	}
}

func TestReplaceDocumentSwapsContent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, &hashEmbedder{id: "fake/one"})

	if _, err := s.ReplaceDocument(ctx, "u1", "doc1", passagesFor("u1", "doc1", "old text one", "old text two", "old text three")); err != nil {
		t.Fatalf("ReplaceDocument: %v", err)
	}
	if _, err := s.ReplaceDocument(ctx, "u1", "doc1", passagesFor("u1", "doc1", "new text")); err != nil {
		t.Fatalf("ReplaceDocument: %v", err)
	}

	matches, err := s.Query(ctx, "u1", hashVector("new text"), 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d passages, want 1 after swap", len(matches))
	}
	if matches[0].Text != "new text" {
		t.Fatalf("surviving passage = %q, want the replacement", matches[0].Text)
	}
}

func TestQueryIsUserScoped(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, &hashEmbedder{id: "fake/one"})

	if _, err := s.ReplaceDocument(ctx, "alice", "doc-a", passagesFor("alice", "doc-a", "alice secret notes")); err != nil {
		t.Fatalf("ReplaceDocument: %v", err)
	}
	if _, err := s.ReplaceDocument(ctx, "bob", "doc-b", passagesFor("bob", "doc-b", "bob private journal")); err != nil {
		t.Fatalf("ReplaceDocument: %v", err)
	}

	matches, err := s.Query(ctx, "alice", hashVector("bob private journal"), 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for _, m := range matches {
		if m.DocumentID != "doc-a" {
			t.Fatalf("alice's results contain foreign document %q", m.DocumentID)
		}
	}

	matches, err = s.Query(ctx, "nobody", hashVector("anything"), 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("unknown user got %d results, want 0", len(matches))
	}
}

func TestQueryEmptyCollection(t *testing.T) {
	s := newTestStore(t, &hashEmbedder{id: "fake/one"})

	matches, err := s.Query(context.Background(), "u1", hashVector("anything"), 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("empty store returned %d matches", len(matches))
	}
}

func TestEmbedderMismatchDetected(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewStore(dir, "docs", &hashEmbedder{id: "fake/one"})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := first.ReplaceDocument(ctx, "u1", "doc1", passagesFor("u1", "doc1", "some text")); err != nil {
		t.Fatalf("ReplaceDocument: %v", err)
	}

	// Same persisted collection, different embedding model.
	second, err := NewStore(dir, "docs", &hashEmbedder{id: "fake/two"})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	_, err = second.Query(ctx, "u1", hashVector("some text"), 5)
	if !errors.Is(err, ErrEmbedderMismatch) {
		t.Fatalf("Query error = %v, want ErrEmbedderMismatch", err)
	}
}

func TestEmbedBackoffRecovers(t *testing.T) {
	ctx := context.Background()
	emb := &hashEmbedder{id: "fake/one", fail: 2}
	s := newTestStore(t, emb)

	n, err := s.ReplaceDocument(ctx, "u1", "doc1", passagesFor("u1", "doc1", "text"))
	if err != nil {
		t.Fatalf("ReplaceDocument: %v", err)
	}
	if n != 1 {
		t.Fatalf("wrote %d passages, want 1", n)
	}
	if emb.calls != 3 {
		t.Fatalf("embedder called %d times, want 3 (two failures, one success)", emb.calls)
	}
}

func TestEmbedFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, &hashEmbedder{id: "fake/one", fail: 99})

	if _, err := s.ReplaceDocument(ctx, "u1", "doc1", passagesFor("u1", "doc1", "text")); err == nil {
		t.Fatal("expected embedding failure")
	}
	if total := s.col.Count(); total != 0 {
		t.Fatalf("failed ingest left %d passages behind", total)
	}
}
