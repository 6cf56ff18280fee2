package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// The crawl store is written from three places at once: the HTTP
// surface, the MCP surface, and the maintenance loop. SQLite serialises
// writers, so short SQLITE_BUSY windows are normal operation, not
// failures. The helpers here absorb them with a few spaced retries.

const busyAttempts = 3

var busyMarkers = []string{
	"SQLITE_BUSY",
	"database is locked",
	"database table is locked",
}

// IsBusy reports whether err is an SQLite lock-contention error.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, m := range busyMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// RunTx runs fn inside a transaction, retrying the whole transaction on
// lock contention. fn may run more than once and must be safe to re-run.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	return retryBusy(ctx, "RunTx", func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("dbopen: begin tx: %w", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("dbopen: commit: %w", err)
		}
		return nil
	})
}

// Exec runs a single statement, retrying on lock contention.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := retryBusy(ctx, "Exec", func() error {
		var err error
		res, err = db.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// retryBusy runs fn up to busyAttempts times, waiting 100/200 ms between
// attempts. Errors other than lock contention return immediately.
func retryBusy(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := range busyAttempts {
		if err = fn(); err == nil || !IsBusy(err) {
			return err
		}
		if i == busyAttempts-1 {
			break
		}
		t := time.NewTimer(time.Duration(100*(i+1)) * time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("dbopen: %s: %w", op, ctx.Err())
		case <-t.C:
		}
	}
	return fmt.Errorf("dbopen: %s: still locked after %d attempts: %w", op, busyAttempts, err)
}
