package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CacheGet returns the entry for key if present and not expired, else nil.
// Expiry is checked against now (unix ms) so callers control the clock.
func (s *Store) CacheGet(ctx context.Context, key string, now int64) (*CacheEntry, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT key, operation, payload, created_at, expires_at
		FROM cache_entries WHERE key = ? AND expires_at > ?`, key, now)

	var e CacheEntry
	err := row.Scan(&e.Key, &e.Operation, &e.Payload, &e.CreatedAt, &e.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan cache entry: %w", err)
	}
	return &e, nil
}

// CachePut inserts or replaces an entry.
func (s *Store) CachePut(ctx context.Context, e *CacheEntry) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO cache_entries (key, operation, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			operation  = excluded.operation,
			payload    = excluded.payload,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		e.Key, e.Operation, e.Payload, e.CreatedAt, e.ExpiresAt,
	)
	return err
}

// CacheDelete removes an entry. Missing keys are not an error.
func (s *Store) CacheDelete(ctx context.Context, key string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

// PruneExpiredCache removes entries whose expiry has passed and reports how
// many were deleted.
func (s *Store) PruneExpiredCache(ctx context.Context, now int64) (int, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CountCache returns the number of cached entries, expired included.
func (s *Store) CountCache(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&n)
	return n, err
}

// NowMilli returns the current time in unix milliseconds, the store's
// canonical timestamp unit.
func NowMilli() int64 { return time.Now().UnixMilli() }
