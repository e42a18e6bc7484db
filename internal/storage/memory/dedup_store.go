package memory

import (
	"context"
	"sync"
	"time"

	"mint-watch/internal/storage"
)

// DedupStore is an in-memory implementation of storage.DedupStore.
// It is only shared within one process.
type DedupStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewDedupStore creates a new in-memory dedup store.
func NewDedupStore() *DedupStore {
	return &DedupStore{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// CheckAndMark records key unless it is present and unexpired.
func (s *DedupStore) CheckAndMark(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if err := storage.ValidateDedupInput(key, ttl); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expires[key]; ok && now.Before(exp) {
		return true, nil
	}

	s.expires[key] = now.Add(ttl)
	return false, nil
}

// Evict removes expired keys and returns how many were removed.
func (s *DedupStore) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, exp := range s.expires {
		if !now.Before(exp) {
			delete(s.expires, k)
			removed++
		}
	}
	return removed
}

// RunEvictor calls Evict every interval until ctx is done.
func (s *DedupStore) RunEvictor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Evict()
		}
	}
}

// Len returns the number of stored keys, expired or not.
func (s *DedupStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expires)
}
