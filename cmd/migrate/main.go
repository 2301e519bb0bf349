package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strconv"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/chrissnell/solarmax/internal/archive"
	"github.com/chrissnell/solarmax/pkg/config"
	"github.com/chrissnell/solarmax/pkg/migrate"
)

func main() {
	var (
		schema        = flag.String("schema", "archive", "Schema to migrate: archive, config")
		dbDSN         = flag.String("dsn", "", "Path to the SQLite database")
		command       = flag.String("command", "up", "Migration command: up, down, to, version, status")
		targetVersion = flag.String("target", "", "Target version for down/to commands")
		helpFlag      = flag.Bool("help", false, "Show help")
	)

	flag.Parse()

	if *helpFlag {
		showHelp()
		return
	}

	if *dbDSN == "" {
		fmt.Fprintf(os.Stderr, "Error: -dsn flag is required\n")
		showHelp()
		os.Exit(1)
	}

	provider, err := providerFor(*schema)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", *dbDSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	migrator := migrate.NewMigrator(db, provider)

	if err := run(os.Stdout, migrator, *command, *targetVersion); err != nil {
		log.Fatalf("Migration command failed: %v", err)
	}
}

// providerFor returns the embedded migrations of a schema
func providerFor(schema string) (*migrate.FSProvider, error) {
	var fsys fs.FS
	var table string

	switch schema {
	case "archive":
		fsys, table = archive.Migrations, archive.MigrationTable
	case "config":
		fsys, table = config.Migrations, config.MigrationTable
	default:
		return nil, fmt.Errorf("unknown schema: %s", schema)
	}

	return migrate.NewFSProvider(fsys, table), nil
}

func run(w io.Writer, migrator *migrate.Migrator, command, targetVersion string) error {
	switch command {
	case "up":
		if err := migrator.MigrateUp(); err != nil {
			return err
		}
	case "down", "to":
		if targetVersion == "" {
			return fmt.Errorf("-target flag is required for %s command", command)
		}
		target, err := strconv.Atoi(targetVersion)
		if err != nil {
			return fmt.Errorf("invalid target version: %w", err)
		}
		if command == "down" {
			err = migrator.MigrateDown(target)
		} else {
			err = migrator.MigrateTo(target)
		}
		if err != nil {
			return err
		}
	case "version":
		version, err := migrator.GetCurrentVersion()
		if err != nil {
			return fmt.Errorf("failed to get current version: %w", err)
		}
		fmt.Fprintf(w, "Current version: %d\n", version)
		return nil
	case "status":
		return showStatus(w, migrator)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}

	fmt.Fprintln(w, "Migration completed successfully")
	return nil
}

func showStatus(w io.Writer, migrator *migrate.Migrator) error {
	currentVersion, err := migrator.GetCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	pending, err := migrator.GetPendingMigrations()
	if err != nil {
		return fmt.Errorf("failed to get pending migrations: %w", err)
	}

	fmt.Fprintf(w, "Current version: %d\n", currentVersion)
	fmt.Fprintf(w, "Pending migrations: %d\n", len(pending))

	if len(pending) > 0 {
		fmt.Fprintln(w, "\nPending migrations:")
		for _, migration := range pending {
			fmt.Fprintf(w, "  %d: %s\n", migration.Version, migration.Name)
		}
	}

	return nil
}

func showHelp() {
	fmt.Println("Database Migration Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  migrate [flags]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -schema string     Schema to migrate: archive or config (default: archive)")
	fmt.Println("  -dsn string        Path to the SQLite database (required)")
	fmt.Println("  -command string    Migration command (default: up)")
	fmt.Println("  -target string     Target version for down/to commands")
	fmt.Println("  -help              Show this help message")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up                 Apply all pending migrations")
	fmt.Println("  down               Roll back to target version")
	fmt.Println("  to                 Migrate to specific version (up or down)")
	fmt.Println("  version            Show current migration version")
	fmt.Println("  status             Show migration status")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  migrate -dsn archive.db -command status")
	fmt.Println("  migrate -schema config -dsn config.db -command up")
	fmt.Println("  migrate -dsn archive.db -command down -target 0")
}
