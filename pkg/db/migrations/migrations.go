package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fadedpez/agentledger/pkg/entities"
)

//go:embed sql/*.sql
var embedded embed.FS

// Migration represents a database migration
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// MigrationStatus is a migration and whether it has been applied
type MigrationStatus struct {
	Migration
	Applied   bool
	AppliedAt string
}

// Migrator handles database migrations
type Migrator struct {
	db            *sql.DB
	source        fs.FS
	migrationsDir string // Target directory for CreateMigration
}

// NewMigrator creates a migrator reading .sql files from a directory on disk
func NewMigrator(db *sql.DB, migrationsDir string) *Migrator {
	return &Migrator{
		db:            db,
		source:        os.DirFS(migrationsDir),
		migrationsDir: migrationsDir,
	}
}

// NewEmbeddedMigrator creates a migrator using the schema compiled into the binary
func NewEmbeddedMigrator(db *sql.DB) *Migrator {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		panic(fmt.Sprintf("embedded migrations missing: %v", err))
	}
	return &Migrator{
		db:            db,
		source:        sub,
		migrationsDir: filepath.Join("pkg", "db", "migrations", "sql"),
	}
}

// Initialize creates the migrations table if it doesn't exist
func (m *Migrator) Initialize() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			version TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// LoadMigrations loads all migration files from the source, sorted by version
func (m *Migrator) LoadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.source, ".")
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		content, err := fs.ReadFile(m.source, entry.Name())
		if err != nil {
			return nil, err
		}

		// Version and description come from the filename, e.g. "001_initial_schema.sql"
		parts := strings.SplitN(strings.TrimSuffix(entry.Name(), ".sql"), "_", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid migration filename: %s", entry.Name())
		}

		migrations = append(migrations, Migration{
			Version:     parts[0],
			Description: strings.ReplaceAll(parts[1], "_", " "),
			SQL:         string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// ApplyMigration applies a single migration
func (m *Migrator) ApplyMigration(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}

	if _, err = tx.Exec(migration.SQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("error applying migration %s: %w", migration.Version, err)
	}

	_, err = tx.Exec(
		"INSERT INTO migrations (version, description) VALUES (?, ?)",
		migration.Version,
		migration.Description,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error recording migration %s: %w", migration.Version, err)
	}

	return tx.Commit()
}

// Status lists every migration in the source with its applied state
func (m *Migrator) Status() ([]MigrationStatus, error) {
	if err := m.Initialize(); err != nil {
		return nil, err
	}

	rows, err := m.db.Query("SELECT version, applied_at FROM migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appliedAt := make(map[string]string)
	for rows.Next() {
		var version, at string
		if err := rows.Scan(&version, &at); err != nil {
			return nil, err
		}
		appliedAt[version] = at
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	migrations, err := m.LoadMigrations()
	if err != nil {
		return nil, err
	}

	result := make([]MigrationStatus, 0, len(migrations))
	for _, migration := range migrations {
		at, ok := appliedAt[migration.Version]
		result = append(result, MigrationStatus{Migration: migration, Applied: ok, AppliedAt: at})
	}
	return result, nil
}

// Pending returns the migrations that have not been applied, in version order
func (m *Migrator) Pending() ([]Migration, error) {
	statuses, err := m.Status()
	if err != nil {
		return nil, err
	}

	pending := make([]Migration, 0)
	for _, status := range statuses {
		if !status.Applied {
			pending = append(pending, status.Migration)
		}
	}
	return pending, nil
}

// MigrateUp applies all pending migrations
func (m *Migrator) MigrateUp() error {
	pending, err := m.Pending()
	if err != nil {
		return err
	}

	for _, migration := range pending {
		log.Printf("Applying migration %s: %s", migration.Version, migration.Description)
		if err := m.ApplyMigration(migration); err != nil {
			return err
		}
	}

	return nil
}

// LegacyStatuses counts applications whose status is outside the current
// vocabulary, keyed by the stored value. It is empty before the applications
// table exists and after the status normalization has run.
func (m *Migrator) LegacyStatuses() (map[string]int, error) {
	var count int
	err := m.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'applications'").Scan(&count)
	if err != nil {
		return nil, err
	}

	legacy := make(map[string]int)
	if count == 0 {
		return legacy, nil
	}

	rows, err := m.db.Query("SELECT status, COUNT(*) FROM applications GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		if _, ok := entities.ParseApplicationStatus(status); !ok {
			legacy[status] = n
		}
	}
	return legacy, rows.Err()
}

// CreateMigration creates a new, empty migration file in the migrations directory
func (m *Migrator) CreateMigration(description string) (string, error) {
	migrations, err := m.LoadMigrations()
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}

	nextVersion := fmt.Sprintf("%03d", len(migrations)+1)

	if err := os.MkdirAll(m.migrationsDir, 0755); err != nil {
		return "", err
	}

	fileName := fmt.Sprintf("%s_%s.sql", nextVersion, strings.ReplaceAll(description, " ", "_"))
	filePath := filepath.Join(m.migrationsDir, fileName)

	content := fmt.Sprintf("-- Migration: %s\n-- Created: %s\n\n", description, time.Now().Format(time.RFC3339))
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return "", err
	}

	return filePath, nil
}
