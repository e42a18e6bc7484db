package postgres

import (
	"context"
	"fmt"
	"time"

	"mint-watch/internal/storage"
)

// DedupStore implements storage.DedupStore on the dedup_keys table.
type DedupStore struct {
	pool *Pool
}

// NewDedupStore creates a Postgres-backed dedup store.
func NewDedupStore(pool *Pool) *DedupStore {
	return &DedupStore{pool: pool}
}

// checkAndMarkSQL inserts the key, or takes over an expired row.
// A live row makes the WHERE false, so nothing is returned.
const checkAndMarkSQL = `
	INSERT INTO dedup_keys (key, expires_at)
	VALUES ($1, now() + $2::double precision * interval '1 second')
	ON CONFLICT (key) DO UPDATE
		SET expires_at = EXCLUDED.expires_at
		WHERE dedup_keys.expires_at <= now()
	RETURNING key
`

// CheckAndMark records key unless a live row exists.
func (s *DedupStore) CheckAndMark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := storage.ValidateDedupInput(key, ttl); err != nil {
		return false, err
	}

	var returned string
	err := s.pool.QueryRow(ctx, checkAndMarkSQL, key, ttl.Seconds()).Scan(&returned)
	if isNotFoundError(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("check and mark %s: %w", key, err)
	}
	return false, nil
}

// DeleteExpired removes rows whose TTL has passed.
func (s *DedupStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM dedup_keys WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired dedup keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
