package storage

import (
	"context"
	"time"
)

// DedupStore is a shared TTL key set used to suppress repeated work.
type DedupStore interface {
	// CheckAndMark atomically tests and records key.
	// If key exists and has not expired it returns seen=true and changes nothing.
	// Otherwise it records key with the given ttl and returns seen=false.
	// Returns ErrInvalidInput for an empty key or non-positive ttl.
	CheckAndMark(ctx context.Context, key string, ttl time.Duration) (seen bool, err error)
}

// ValidateDedupInput checks the arguments shared by every DedupStore.
func ValidateDedupInput(key string, ttl time.Duration) error {
	if key == "" || ttl <= 0 {
		return ErrInvalidInput
	}
	return nil
}
