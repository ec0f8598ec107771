package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// EmbeddingCache stores query vectors in redis under a digest of the
// embedder identifier and the query text. Keying on the embedder id
// means a model switch naturally misses instead of serving vectors
// from the wrong embedding space.
type EmbeddingCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewEmbeddingCache(client *redisv9.Client, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &EmbeddingCache{client: client, ttl: ttl}
}

func (c *EmbeddingCache) Get(ctx context.Context, embedderID, text string) ([]float32, bool, error) {
	raw, err := c.client.Get(ctx, c.key(embedderID, text)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get embedding failed: %w", err)
	}

	var vector []float32
	if err := json.Unmarshal([]byte(raw), &vector); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached embedding failed: %w", err)
	}
	return vector, true, nil
}

func (c *EmbeddingCache) Set(ctx context.Context, embedderID, text string, vector []float32) error {
	payload, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("marshal embedding failed: %w", err)
	}
	if err := c.client.Set(ctx, c.key(embedderID, text), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set embedding failed: %w", err)
	}
	return nil
}

func (c *EmbeddingCache) key(embedderID, text string) string {
	sum := sha256.Sum256([]byte(embedderID + "\x00" + text))
	return "embed:" + hex.EncodeToString(sum[:16])
}
