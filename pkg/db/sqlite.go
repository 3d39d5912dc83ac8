// Package db opens the shared SQLite database and provides the transaction
// and encoding helpers used by the SQLite repositories.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fadedpez/agentledger/pkg/db/migrations"
	_ "github.com/mattn/go-sqlite3"
)

// TimeFormat is fixed-width so that stored timestamps sort chronologically
const TimeFormat = "2006-01-02T15:04:05.000000000Z"

// Open opens (creating if needed) the database at path and applies migrations.
//
// Transactions are started with BEGIN IMMEDIATE, so the write lock is taken
// before the first read of a transaction: decisions made inside a
// transaction are always based on data no other writer can change.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000&_foreign_keys=on", path)
	database, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// A single connection serializes writers and keeps :memory: databases shared.
	database.SetMaxOpenConns(1)

	if err := migrations.NewEmbeddedMigrator(database).MigrateUp(); err != nil {
		database.Close()
		return nil, fmt.Errorf("error applying migrations: %w", err)
	}

	return database, nil
}

// WithTx runs fn inside a transaction, committing on success and rolling back
// on error or panic
func WithTx(ctx context.Context, database *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// FormatTime encodes t for storage
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// FormatNullTime encodes an optional time for storage
func FormatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: FormatTime(*t), Valid: true}
}

// ParseTime decodes a stored timestamp. Older rows may use the SQLite
// default format, so several layouts are tried.
func ParseTime(value string) (time.Time, error) {
	formats := []string{
		TimeFormat,
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
	}

	var parseErr error
	for _, format := range formats {
		var t time.Time
		t, parseErr = time.Parse(format, value)
		if parseErr == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("error parsing timestamp '%s': %w", value, parseErr)
}

// ParseNullTime decodes an optional stored timestamp
func ParseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := ParseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
