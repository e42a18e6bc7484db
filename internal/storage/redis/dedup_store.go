package redis

import (
	"context"
	"fmt"
	"time"

	"mint-watch/internal/storage"
)

// DedupStore implements storage.DedupStore with SET NX PX.
// Keys are stored as given; callers namespace them ("sig:", "mint:").
type DedupStore struct {
	client *Client
}

// NewDedupStore creates a Redis-backed dedup store.
func NewDedupStore(client *Client) *DedupStore {
	return &DedupStore{client: client}
}

// CheckAndMark sets key only if absent. Redis expires keys on its own,
// so an expired key is simply absent.
func (s *DedupStore) CheckAndMark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := storage.ValidateDedupInput(key, ttl); err != nil {
		return false, err
	}

	created, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return !created, nil
}
