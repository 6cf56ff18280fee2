package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tripsage/webcrawl/dbopen"
)

// InsertMonitor registers a new price monitor.
func (s *Store) InsertMonitor(ctx context.Context, m *Monitor) error {
	now := time.Now().UnixMilli()
	if m.CreatedAt == 0 {
		m.CreatedAt = now
	}
	if m.UpdatedAt == 0 {
		m.UpdatedAt = now
	}
	if m.Status == "" {
		m.Status = "active"
	}
	if m.Frequency == "" {
		m.Frequency = "daily"
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO monitors (id, url, canonical_url, price_selector, frequency,
		threshold_pct, status, initial_price, current_price, currency,
		last_checked_at, next_check_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.URL, m.CanonicalURL, m.PriceSelector, m.Frequency,
		m.ThresholdPct, m.Status, m.InitialPrice, m.CurrentPrice, m.Currency,
		m.LastCheckedAt, m.NextCheckAt, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

// GetMonitor retrieves a monitor by ID.
func (s *Store) GetMonitor(ctx context.Context, id string) (*Monitor, error) {
	row := s.DB.QueryRowContext(ctx, monitorSelect+` WHERE id = ?`, id)
	return scanMonitor(row)
}

// GetMonitorByTarget returns the monitor for a (canonical URL, selector)
// pair, or nil when none is registered.
func (s *Store) GetMonitorByTarget(ctx context.Context, canonicalURL, selector string) (*Monitor, error) {
	row := s.DB.QueryRowContext(ctx,
		monitorSelect+` WHERE canonical_url = ? AND price_selector = ?`,
		canonicalURL, selector)
	return scanMonitor(row)
}

// ListMonitors returns all monitors, newest first.
func (s *Store) ListMonitors(ctx context.Context) ([]*Monitor, error) {
	rows, err := s.DB.QueryContext(ctx, monitorSelect+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Monitor
	for rows.Next() {
		m, err := scanMonitorRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateMonitorCheck records the outcome of a price check: current price,
// status, and the check timestamps.
func (s *Store) UpdateMonitorCheck(ctx context.Context, id string, price *float64, currency, status string, checkedAt, nextCheckAt int64) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE monitors SET current_price=?, currency=?, status=?,
		last_checked_at=?, next_check_at=?, updated_at=?
		WHERE id=?`,
		price, currency, status, checkedAt, nextCheckAt, time.Now().UnixMilli(), id)
	return err
}

// SetMonitorInitialPrice stamps the first observed price.
func (s *Store) SetMonitorInitialPrice(ctx context.Context, id string, price float64, currency string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE monitors SET initial_price=?, current_price=?, currency=?, updated_at=?
		WHERE id=?`,
		price, price, currency, time.Now().UnixMilli(), id)
	return err
}

// DeleteMonitor removes a monitor (cascades to price_history).
func (s *Store) DeleteMonitor(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM monitors WHERE id = ?`, id)
	return err
}

// CountMonitors returns the total number of monitors.
func (s *Store) CountMonitors(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM monitors`).Scan(&n)
	return n, err
}

// RecordPriceCheck stores one price observation and the monitor state it
// implies in a single transaction, so history and monitor cannot disagree
// when the HTTP surface, the MCP surface, and the maintenance loop write
// concurrently.
func (s *Store) RecordPriceCheck(ctx context.Context, p *PricePoint, status string, nextCheckAt int64) error {
	if p.CheckedAt == 0 {
		p.CheckedAt = time.Now().UnixMilli()
	}
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO price_history (id, monitor_id, price, currency, change_pct, checked_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.MonitorID, p.Price, p.Currency, p.ChangePct, p.CheckedAt,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE monitors SET current_price=?, currency=?, status=?,
			last_checked_at=?, next_check_at=?, updated_at=?
			WHERE id=?`,
			p.Price, p.Currency, status, p.CheckedAt, nextCheckAt, time.Now().UnixMilli(), p.MonitorID)
		return err
	})
}

// PriceHistory returns observations for a monitor, newest first.
func (s *Store) PriceHistory(ctx context.Context, monitorID string, limit int) ([]*PricePoint, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, monitor_id, price, currency, change_pct, checked_at
		FROM price_history WHERE monitor_id = ?
		ORDER BY checked_at DESC LIMIT ?`, monitorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*PricePoint
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(&p.ID, &p.MonitorID, &p.Price, &p.Currency,
			&p.ChangePct, &p.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

const monitorSelect = `SELECT id, url, canonical_url, price_selector, frequency,
	threshold_pct, status, initial_price, current_price, currency,
	last_checked_at, next_check_at, created_at, updated_at
	FROM monitors`

func scanMonitor(row *sql.Row) (*Monitor, error) {
	var m Monitor
	err := row.Scan(
		&m.ID, &m.URL, &m.CanonicalURL, &m.PriceSelector, &m.Frequency,
		&m.ThresholdPct, &m.Status, &m.InitialPrice, &m.CurrentPrice, &m.Currency,
		&m.LastCheckedAt, &m.NextCheckAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan monitor: %w", err)
	}
	return &m, nil
}

func scanMonitorRows(rows *sql.Rows) (*Monitor, error) {
	var m Monitor
	err := rows.Scan(
		&m.ID, &m.URL, &m.CanonicalURL, &m.PriceSelector, &m.Frequency,
		&m.ThresholdPct, &m.Status, &m.InitialPrice, &m.CurrentPrice, &m.Currency,
		&m.LastCheckedAt, &m.NextCheckAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan monitor: %w", err)
	}
	return &m, nil
}
