package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/fadedpez/agentledger/pkg/db/migrations"
	_ "github.com/mattn/go-sqlite3"
)

const defaultDatabase = "data/agentledger.db"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "status":
		cmd := flag.NewFlagSet("status", flag.ExitOnError)
		dbPath := cmd.String("db", defaultDatabase, "Path to SQLite database")
		dir := cmd.String("dir", "", "Migrations directory (default: built-in schema)")
		cmd.Parse(os.Args[2:])
		showStatus(openMigrator(*dbPath, *dir))

	case "migrate":
		cmd := flag.NewFlagSet("migrate", flag.ExitOnError)
		dbPath := cmd.String("db", defaultDatabase, "Path to SQLite database")
		dir := cmd.String("dir", "", "Migrations directory (default: built-in schema)")
		dryRun := cmd.Bool("dry-run", false, "List pending migrations without applying them")
		cmd.Parse(os.Args[2:])
		migrate(openMigrator(*dbPath, *dir), *dryRun)

	case "create":
		cmd := flag.NewFlagSet("create", flag.ExitOnError)
		dir := cmd.String("dir", "pkg/db/migrations/sql", "Directory to store migrations")
		cmd.Parse(os.Args[2:])
		if cmd.NArg() < 1 {
			fmt.Println("Error: Missing migration description")
			cmd.Usage()
			os.Exit(1)
		}
		create(*dir, cmd.Arg(0))

	case "help":
		printUsage()

	default:
		fmt.Printf("Error: Unknown command '%s'\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: migration <command> [flags]")
	fmt.Println()
	fmt.Println("  status [-db PATH] [-dir DIR]             Applied and pending migrations, legacy application statuses")
	fmt.Println("  migrate [-db PATH] [-dir DIR] [-dry-run] Apply pending migrations")
	fmt.Println("  create [-dir DIR] DESCRIPTION            Create an empty migration file")
	fmt.Println("  help                                     Show this help")
}

// openMigrator opens the database without applying anything
func openMigrator(dbPath, dir string) *migrations.Migrator {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatalf("Error creating database directory: %v", err)
	}

	database, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	database.SetMaxOpenConns(1)

	if dir != "" {
		return migrations.NewMigrator(database, dir)
	}
	return migrations.NewEmbeddedMigrator(database)
}

func showStatus(migrator *migrations.Migrator) {
	statuses, err := migrator.Status()
	if err != nil {
		log.Fatalf("Error reading migration status: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tDESCRIPTION\tAPPLIED")
	for _, status := range statuses {
		applied := "pending"
		if status.Applied {
			applied = status.AppliedAt
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", status.Version, status.Description, applied)
	}
	w.Flush()

	printLegacyStatuses(migrator)
}

// printLegacyStatuses lists application rows the status normalization has not rewritten yet
func printLegacyStatuses(migrator *migrations.Migrator) {
	legacy, err := migrator.LegacyStatuses()
	if err != nil {
		log.Fatalf("Error reading application statuses: %v", err)
	}
	if len(legacy) == 0 {
		return
	}

	values := make([]string, 0, len(legacy))
	for value := range legacy {
		values = append(values, value)
	}
	sort.Strings(values)

	fmt.Println("\nApplications with legacy statuses:")
	for _, value := range values {
		fmt.Printf("  %s: %d\n", value, legacy[value])
	}
}

func migrate(migrator *migrations.Migrator, dryRun bool) {
	pending, err := migrator.Pending()
	if err != nil {
		log.Fatalf("Error reading pending migrations: %v", err)
	}
	if len(pending) == 0 {
		fmt.Println("Database is up to date")
		return
	}

	for _, migration := range pending {
		fmt.Printf("Pending %s: %s\n", migration.Version, migration.Description)
	}
	if dryRun {
		printLegacyStatuses(migrator)
		return
	}

	if err := migrator.MigrateUp(); err != nil {
		log.Fatalf("Error applying migrations: %v", err)
	}
	fmt.Printf("Applied %d migration(s)\n", len(pending))
	printLegacyStatuses(migrator)
}

func create(dir, description string) {
	database, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer database.Close()

	filePath, err := migrations.NewMigrator(database, dir).CreateMigration(description)
	if err != nil {
		log.Fatalf("Error creating migration: %v", err)
	}
	fmt.Printf("Created migration file: %s\n", filePath)
}
