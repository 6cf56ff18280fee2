// Package dbopen opens the service's SQLite database with the pragmas
// the shared crawl store needs: WAL so the HTTP surface, the MCP
// surface, and the maintenance loop can write without blocking readers,
// a busy timeout so short lock waits don't surface as errors, and
// foreign keys for the monitor → price history cascade.
//
// The caller blank-imports a driver before opening:
//
//	import _ "modernc.org/sqlite"
//	db, err := dbopen.Open("crawl.db")
package dbopen

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type pragma struct{ name, value string }

type settings struct {
	driver  string
	pragmas []pragma
	mkdir   bool
	schemas []string
	ping    bool
}

// set overrides an existing pragma or appends a new one, so later
// options win without issuing the same PRAGMA twice.
func (s *settings) set(name, value string) {
	for i := range s.pragmas {
		if s.pragmas[i].name == name {
			s.pragmas[i].value = value
			return
		}
	}
	s.pragmas = append(s.pragmas, pragma{name, value})
}

func defaultSettings() *settings {
	return &settings{
		driver: "sqlite",
		pragmas: []pragma{
			{"foreign_keys", "ON"},
			{"journal_mode", "WAL"},
			{"busy_timeout", "10000"},
			{"synchronous", "NORMAL"},
		},
		ping: true,
	}
}

// Option customises Open behaviour.
type Option func(*settings)

// WithDriver sets the database/sql driver name. Default: "sqlite".
func WithDriver(name string) Option { return func(s *settings) { s.driver = name } }

// WithPragma sets an arbitrary PRAGMA, overriding the default when one
// with the same name exists.
func WithPragma(name, value string) Option { return func(s *settings) { s.set(name, value) } }

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option {
	return func(s *settings) { s.set("busy_timeout", fmt.Sprintf("%d", ms)) }
}

// WithoutForeignKeys disables PRAGMA foreign_keys (rarely needed).
func WithoutForeignKeys() Option { return func(s *settings) { s.set("foreign_keys", "OFF") } }

// WithMkdirAll creates parent directories of the database path before opening.
func WithMkdirAll() Option { return func(s *settings) { s.mkdir = true } }

// WithSchema queues inline SQL to execute after pragmas are applied.
func WithSchema(ddl string) Option { return func(s *settings) { s.schemas = append(s.schemas, ddl) } }

// WithoutPing skips the db.Ping() verification after opening.
func WithoutPing() Option { return func(s *settings) { s.ping = false } }

// Open opens an SQLite database at path and applies the configured
// pragmas and schema statements. The database is closed again if any
// setup step fails.
func Open(path string, opts ...Option) (*sql.DB, error) {
	cfg := defaultSettings()
	for _, o := range opts {
		o(cfg)
	}

	if cfg.mkdir && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: mkdir: %w", err)
		}
	}

	db, err := sql.Open(cfg.driver, path)
	if err != nil {
		return nil, fmt.Errorf("dbopen: open: %w", err)
	}

	setup := func() error {
		for _, p := range cfg.pragmas {
			if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
				return fmt.Errorf("dbopen: pragma %s: %w", p.name, err)
			}
		}
		for _, stmt := range cfg.schemas {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("dbopen: exec schema: %w", err)
			}
		}
		if cfg.ping {
			if err := db.Ping(); err != nil {
				return fmt.Errorf("dbopen: ping: %w", err)
			}
		}
		return nil
	}
	if err := setup(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenMemory opens an in-memory SQLite database for tests and registers
// its cleanup. MaxOpenConns is pinned to 1 because every connection to
// ":memory:" gets its own empty database.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("dbopen.OpenMemory: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
