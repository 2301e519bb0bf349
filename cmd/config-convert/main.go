package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chrissnell/solarmax/pkg/config"
)

func main() {
	var (
		srcFile    = flag.String("from", "", "Path to YAML or TOML configuration file (required)")
		srcBackend = flag.String("from-backend", "", "Source format: 'yaml' or 'toml' (default: from file extension)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		force      = flag.Bool("force", false, "Overwrite existing SQLite database")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
	)
	flag.Parse()

	if *srcFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -from <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *srcBackend == "" {
		*srcBackend = backendFor(*srcFile)
	}

	if _, err := os.Stat(*srcFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: configuration file does not exist: %s\n", *srcFile)
		os.Exit(1)
	}

	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: SQLite file already exists: %s\n", *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting %s configuration to SQLite...\n", *srcBackend)
	fmt.Printf("  Source: %s\n", *srcFile)
	fmt.Printf("  Target: %s\n", *sqliteFile)

	provider, err := config.NewProvider(*srcFile, *srcBackend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening configuration: %v\n", err)
		os.Exit(1)
	}
	defer provider.Close()

	configData, err := provider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := configData.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration is invalid: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		fmt.Println("DRY RUN - No changes will be made")
		printConfigSummary(os.Stdout, configData)
		return
	}

	if *force {
		if err := os.Remove(*sqliteFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error removing existing SQLite file: %v\n", err)
			os.Exit(1)
		}
	}

	if err := convert(configData, *sqliteFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Conversion completed successfully!\n")
	fmt.Printf("You can now use the SQLite backend with: -config-backend sqlite -config %s\n", *sqliteFile)
}

func backendFor(path string) string {
	switch filepath.Ext(path) {
	case ".toml":
		return "toml"
	default:
		return "yaml"
	}
}

// convert writes configData into a new SQLite configuration database at dbPath
func convert(configData *config.ConfigData, dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	sqliteProvider, err := config.NewSQLiteProvider(dbPath)
	if err != nil {
		return fmt.Errorf("failed to create SQLite provider: %w", err)
	}
	defer sqliteProvider.Close()

	if err := sqliteProvider.SaveConfig(configData); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

func printConfigSummary(w io.Writer, configData *config.ConfigData) {
	fmt.Fprintln(w, "\nConfiguration Summary:")
	fmt.Fprintf(w, "Sites (%d):\n", len(configData.Sites))
	for _, site := range configData.Sites {
		fmt.Fprintf(w, "  - %s (%.4f, %.4f, UTC%+d)\n", site.Name, site.Latitude, site.Longitude, site.UTCOffset)
	}

	fmt.Fprintf(w, "\nArchive Backends:\n")
	if configData.Archive.SQLitePath != "" {
		fmt.Fprintf(w, "  - SQLite: %s\n", configData.Archive.SQLitePath)
	}
	if configData.Archive.TimescaleDB != "" {
		fmt.Fprintf(w, "  - TimescaleDB: configured\n")
	}

	if configData.REST != nil {
		fmt.Fprintf(w, "\nREST server: %s:%d\n", configData.REST.ListenAddr, configData.REST.HTTPPort)
	}
}
