package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		online        INTEGER NOT NULL DEFAULT 0,
		created_at    INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		id          TEXT UNIQUE NOT NULL,
		client_id   TEXT NOT NULL DEFAULT '',
		sender_id   TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		text        TEXT NOT NULL,
		status_rank INTEGER NOT NULL,
		created_at  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(sender_id, receiver_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id, created_at)`,
}

// OpenSQLite opens or creates the SQLite database at path and applies the schema
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Pragmas are per connection; a single connection keeps them in force
	// and serializes writers.
	conn.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	for _, query := range sqliteSchema {
		if _, err := conn.Exec(query); err != nil {
			conn.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return conn, nil
}
