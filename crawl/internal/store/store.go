// Package store provides the data access layer for the crawl service:
// cached operation results, adapter selection statistics, price monitors
// with their history, and the fetch attempt log.
//
// The store receives an already-opened *sql.DB (see dbopen) and never
// owns connection lifecycle.
package store

import "database/sql"

// Store wraps the crawl database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}
