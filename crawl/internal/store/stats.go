package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tripsage/webcrawl/dbopen"
)

// RecordOutcome increments the success or failure counter for one
// (domain, adapter, operation) tuple. Every fetch records an outcome, so
// this is the store's most contended write; it retries on SQLITE_BUSY.
func (s *Store) RecordOutcome(ctx context.Context, domain, adapter, operation string, success bool) error {
	succ, fail := 0, 1
	if success {
		succ, fail = 1, 0
	}
	_, err := dbopen.Exec(ctx, s.DB,
		`INSERT INTO selector_stats (domain, adapter, operation, successes, failures, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(domain, adapter, operation) DO UPDATE SET
			successes  = successes + excluded.successes,
			failures   = failures + excluded.failures,
			updated_at = excluded.updated_at`,
		domain, adapter, operation, succ, fail, time.Now().UnixMilli(),
	)
	return err
}

// SuccessRate returns the success fraction and sample count for one
// (domain, adapter, operation) tuple. No samples yields (0, 0, nil).
func (s *Store) SuccessRate(ctx context.Context, domain, adapter, operation string) (float64, int, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT successes, failures FROM selector_stats
		WHERE domain = ? AND adapter = ? AND operation = ?`,
		domain, adapter, operation)

	var succ, fail int
	if err := row.Scan(&succ, &fail); err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("scan selector stats: %w", err)
	}
	total := succ + fail
	if total == 0 {
		return 0, 0, nil
	}
	return float64(succ) / float64(total), total, nil
}

// StatsForDomain returns all recorded rows for one domain.
func (s *Store) StatsForDomain(ctx context.Context, domain string) ([]*StatRow, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT domain, adapter, operation, successes, failures, updated_at
		FROM selector_stats WHERE domain = ? ORDER BY adapter, operation`, domain)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*StatRow
	for rows.Next() {
		var r StatRow
		if err := rows.Scan(&r.Domain, &r.Adapter, &r.Operation,
			&r.Successes, &r.Failures, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stat row: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// PruneStats keeps at most maxDomains distinct domains, deleting the rows of
// the domains least recently updated. Returns how many rows were deleted.
func (s *Store) PruneStats(ctx context.Context, maxDomains int) (int, error) {
	if maxDomains <= 0 {
		return 0, nil
	}
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM selector_stats WHERE domain IN (
			SELECT domain FROM (
				SELECT domain, MAX(updated_at) AS last_seen
				FROM selector_stats
				GROUP BY domain
				ORDER BY last_seen DESC
				LIMIT -1 OFFSET ?
			)
		)`, maxDomains)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CountTrackedDomains returns the number of distinct domains with stats.
func (s *Store) CountTrackedDomains(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT domain) FROM selector_stats`).Scan(&n)
	return n, err
}
