package store

import (
	"context"
	"fmt"
)

// InsertFetchLog records one adapter attempt.
func (s *Store) InsertFetchLog(ctx context.Context, e *FetchLogEntry) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO fetch_log (id, operation, target, adapter, status,
		error_message, duration_ms, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Operation, e.Target, e.Adapter, e.Status,
		e.ErrorMessage, e.DurationMs, e.FetchedAt,
	)
	return err
}

// FetchHistory returns fetch log entries, newest first.
func (s *Store) FetchHistory(ctx context.Context, limit int) ([]*FetchLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, operation, target, adapter, status,
		error_message, duration_ms, fetched_at
		FROM fetch_log ORDER BY fetched_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*FetchLogEntry
	for rows.Next() {
		var e FetchLogEntry
		if err := rows.Scan(&e.ID, &e.Operation, &e.Target, &e.Adapter,
			&e.Status, &e.ErrorMessage, &e.DurationMs, &e.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan fetch log: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// PruneFetchLog deletes entries older than cutoff (unix ms).
func (s *Store) PruneFetchLog(ctx context.Context, cutoff int64) (int, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM fetch_log WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Stats returns aggregate counters across the service tables.
func (s *Store) Stats(ctx context.Context) (*CrawlStats, error) {
	var st CrawlStats
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&st.CacheEntries); err != nil {
		return nil, err
	}
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM monitors`).Scan(&st.Monitors); err != nil {
		return nil, err
	}
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM fetch_log`).Scan(&st.FetchLogs); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT adapter,
			SUM(CASE WHEN status = 'ok' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status != 'ok' THEN 1 ELSE 0 END)
		FROM fetch_log GROUP BY adapter ORDER BY adapter`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c AdapterCounts
		if err := rows.Scan(&c.Adapter, &c.Successes, &c.Failures); err != nil {
			return nil, fmt.Errorf("scan adapter counts: %w", err)
		}
		st.Adapters = append(st.Adapters, c)
	}
	return &st, rows.Err()
}
