package store

import "database/sql"

// Schema is the complete crawl schema.
const Schema = `
-- Cached operation results, keyed by the canonical operation+params string
CREATE TABLE IF NOT EXISTS cache_entries (
    key         TEXT PRIMARY KEY,
    operation   TEXT NOT NULL,
    payload     TEXT NOT NULL,
    created_at  INTEGER NOT NULL,
    expires_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_expiry ON cache_entries(expires_at);
CREATE INDEX IF NOT EXISTS idx_cache_operation ON cache_entries(operation);

-- Selection outcomes per (domain, adapter, operation)
CREATE TABLE IF NOT EXISTS selector_stats (
    domain      TEXT NOT NULL,
    adapter     TEXT NOT NULL,
    operation   TEXT NOT NULL,
    successes   INTEGER NOT NULL DEFAULT 0,
    failures    INTEGER NOT NULL DEFAULT 0,
    updated_at  INTEGER NOT NULL,
    PRIMARY KEY (domain, adapter, operation)
);
CREATE INDEX IF NOT EXISTS idx_selector_stats_updated ON selector_stats(updated_at);

-- Price monitors
CREATE TABLE IF NOT EXISTS monitors (
    id              TEXT PRIMARY KEY,
    url             TEXT NOT NULL,
    canonical_url   TEXT NOT NULL,
    price_selector  TEXT NOT NULL,
    frequency       TEXT NOT NULL DEFAULT 'daily',
    threshold_pct   REAL NOT NULL DEFAULT 5.0,
    status          TEXT NOT NULL DEFAULT 'active',
    initial_price   REAL,
    current_price   REAL,
    currency        TEXT NOT NULL DEFAULT '',
    last_checked_at INTEGER,
    next_check_at   INTEGER,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_monitors_target ON monitors(canonical_url, price_selector);

-- Price observations per monitor
CREATE TABLE IF NOT EXISTS price_history (
    id          TEXT PRIMARY KEY,
    monitor_id  TEXT NOT NULL REFERENCES monitors(id) ON DELETE CASCADE,
    price       REAL NOT NULL,
    currency    TEXT NOT NULL DEFAULT '',
    change_pct  REAL NOT NULL DEFAULT 0,
    checked_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_price_history_monitor ON price_history(monitor_id, checked_at DESC);

-- Fetch attempt log (observability)
CREATE TABLE IF NOT EXISTS fetch_log (
    id            TEXT PRIMARY KEY,
    operation     TEXT NOT NULL,
    target        TEXT NOT NULL,
    adapter       TEXT NOT NULL,
    status        TEXT NOT NULL,
    error_message TEXT NOT NULL DEFAULT '',
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    fetched_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fetch_log_time ON fetch_log(fetched_at DESC);
CREATE INDEX IF NOT EXISTS idx_fetch_log_adapter ON fetch_log(adapter, status);
`

// ApplySchema creates all tables and indexes on the given database.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
