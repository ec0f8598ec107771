package retrieve

import (
	"context"
	"errors"
	"testing"
	"time"

	"learnpilot-rag/internal/index"
)

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) ID() string { return "fake/emb" }

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeSearcher struct {
	matches []index.Match
	gotUser string
	gotK    int
}

func (f *fakeSearcher) Query(_ context.Context, userID string, _ []float32, k int) ([]index.Match, error) {
	f.gotUser = userID
	f.gotK = k
	return f.matches, nil
}

type memCache struct {
	store map[string][]float32
	gets  int
	hits  int
}

func (m *memCache) Get(_ context.Context, embedderID, text string) ([]float32, bool, error) {
	m.gets++
	v, ok := m.store[embedderID+"|"+text]
	if ok {
		m.hits++
	}
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, embedderID, text string, vector []float32) error {
	m.store[embedderID+"|"+text] = vector
	return nil
}

func TestSearchPassesUserAndK(t *testing.T) {
	searcher := &fakeSearcher{}
	r := NewRetriever(&fakeEmbedder{}, searcher, nil, 5)

	if _, err := r.Search(context.Background(), "u1", "what is photosynthesis", 0); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if searcher.gotUser != "u1" {
		t.Fatalf("store queried for user %q, want u1", searcher.gotUser)
	}
	if searcher.gotK != 5 {
		t.Fatalf("store queried with k=%d, want default 5", searcher.gotK)
	}
}

func TestSearchBlankQuery(t *testing.T) {
	emb := &fakeEmbedder{}
	r := NewRetriever(emb, &fakeSearcher{}, nil, 5)

	matches, err := r.Search(context.Background(), "u1", "   ", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if matches != nil {
		t.Fatalf("blank query returned %d matches", len(matches))
	}
	if emb.calls != 0 {
		t.Fatal("blank query still hit the embedding backend")
	}
}

func TestSearchEmbedFailure(t *testing.T) {
	cause := errors.New("backend down")
	r := NewRetriever(&fakeEmbedder{err: cause}, &fakeSearcher{}, nil, 5)

	_, err := r.Search(context.Background(), "u1", "question", 5)
	if !errors.Is(err, cause) {
		t.Fatalf("Search error = %v, want wrapped cause", err)
	}
}

func TestSearchTieBreaksOnRecency(t *testing.T) {
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	searcher := &fakeSearcher{matches: []index.Match{
		{DocumentID: "old", Score: 0.9, IndexedAt: older},
		{DocumentID: "new", Score: 0.9, IndexedAt: newer},
		{DocumentID: "best", Score: 0.95, IndexedAt: older},
	}}
	r := NewRetriever(&fakeEmbedder{}, searcher, nil, 5)

	matches, err := r.Search(context.Background(), "u1", "question", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []string{"best", "new", "old"}
	for i, id := range want {
		if matches[i].DocumentID != id {
			t.Fatalf("position %d = %q, want %q (order %v)", i, matches[i].DocumentID, id, matches)
		}
	}
}

func TestSearchUsesCache(t *testing.T) {
	emb := &fakeEmbedder{}
	cache := &memCache{store: map[string][]float32{}}
	r := NewRetriever(emb, &fakeSearcher{}, cache, 5)

	for i := 0; i < 3; i++ {
		if _, err := r.Search(context.Background(), "u1", "same question", 5); err != nil {
			t.Fatalf("Search: %v", err)
		}
	}
	if emb.calls != 1 {
		t.Fatalf("embedding backend called %d times, want 1 (cache should serve repeats)", emb.calls)
	}
	if cache.hits != 2 {
		t.Fatalf("cache hits = %d, want 2", cache.hits)
	}
}
