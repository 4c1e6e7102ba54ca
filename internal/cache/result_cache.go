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

// Result is a resolved classification stored by image digest.
type Result struct {
	ProductID string `json:"product_id"`
	Found     bool   `json:"found"`
}

type ResultCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewResultCache(client *redisv9.Client, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResultCache{
		client: client,
		ttl:    ttl,
	}
}

// Key scopes an image digest to the fingerprint of the reference table it is
// resolved against.
func Key(catalogFingerprint string, image []byte) string {
	sum := sha256.Sum256(image)
	return catalogFingerprint + ":" + hex.EncodeToString(sum[:])
}

func (c *ResultCache) Get(ctx context.Context, key string) (*Result, bool, error) {
	raw, err := c.client.Get(ctx, resultKey(key)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get result failed: %w", err)
	}

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached result failed: %w", err)
	}
	return &result, true, nil
}

func (c *ResultCache) Set(ctx context.Context, key string, result Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result cache failed: %w", err)
	}
	if err := c.client.Set(ctx, resultKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set result failed: %w", err)
	}
	return nil
}

func resultKey(key string) string {
	return "classify:result:" + key
}
