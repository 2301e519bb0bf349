package config

import (
	"database/sql"
	"embed"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/chrissnell/solarmax/pkg/migrate"
)

// Migrations holds the SQLite configuration schema migrations
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationTable tracks the config schema version. It differs from the
// archive's so both can share one database file.
const MigrationTable = "config_migrations"

// Setting keys stored in the settings table
const (
	settingForecastDate   = "forecast.date"
	settingForecastStep   = "forecast.step_minutes"
	settingArchiveSQLite  = "archive.sqlite"
	settingArchiveTSDB    = "archive.timescaledb"
	settingRESTListenAddr = "rest.listen_addr"
	settingRESTHTTPPort   = "rest.http_port"
	settingLoggingFile    = "logging.file"
	settingLoggingDebug   = "logging.debug"
)

// SQLiteProvider implements ConfigProvider for SQLite databases
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens (and if needed initializes) a SQLite configuration database
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	migrator := migrate.NewMigrator(db, migrate.NewFSProvider(Migrations, MigrationTable))
	if err := migrator.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize SQLite schema: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	sites, err := s.GetSites()
	if err != nil {
		return nil, fmt.Errorf("failed to load sites: %w", err)
	}
	config.Sites = sites

	settings, err := s.getSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	config.Forecast.Date = settings[settingForecastDate]
	if v, ok := settings[settingForecastStep]; ok {
		if config.Forecast.StepMinutes, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", settingForecastStep, v, err)
		}
	}

	config.Forecast.SkyCoverage, config.Forecast.CloudWeights, err = s.getSkyCover()
	if err != nil {
		return nil, fmt.Errorf("failed to load forecast hours: %w", err)
	}

	config.Archive.SQLitePath = settings[settingArchiveSQLite]
	config.Archive.TimescaleDB = settings[settingArchiveTSDB]

	addr, hasAddr := settings[settingRESTListenAddr]
	port, hasPort := settings[settingRESTHTTPPort]
	if hasAddr || hasPort {
		config.REST = &RESTServerData{ListenAddr: addr}
		if hasPort {
			if config.REST.HTTPPort, err = strconv.Atoi(port); err != nil {
				return nil, fmt.Errorf("invalid %s %q: %w", settingRESTHTTPPort, port, err)
			}
		}
	}

	config.Logging.File = settings[settingLoggingFile]
	if v, ok := settings[settingLoggingDebug]; ok {
		if config.Logging.Debug, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", settingLoggingDebug, v, err)
		}
	}

	return config, nil
}

// GetSites returns site configurations from the database
func (s *SQLiteProvider) GetSites() ([]SiteData, error) {
	rows, err := s.db.Query(`SELECT name, station, latitude, longitude, utc_offset FROM sites ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer rows.Close()

	var sites []SiteData
	for rows.Next() {
		var site SiteData
		if err := rows.Scan(&site.Name, &site.Station, &site.Latitude, &site.Longitude, &site.UTCOffset); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}

	return sites, rows.Err()
}

func (s *SQLiteProvider) getSettings() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

func (s *SQLiteProvider) getSkyCover() (coverage, weights []float64, err error) {
	rows, err := s.db.Query(`SELECT sky_coverage, cloud_weight FROM sky_cover ORDER BY hour`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c, w float64
		if err := rows.Scan(&c, &w); err != nil {
			return nil, nil, err
		}
		coverage = append(coverage, c)
		weights = append(weights, w)
	}
	return coverage, weights, rows.Err()
}

// IsReadOnly returns false since the database can be written with SaveConfig
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveConfig replaces the stored configuration with configData
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	if len(configData.Forecast.SkyCoverage) != len(configData.Forecast.CloudWeights) {
		return fmt.Errorf("sky_coverage has %d values but cloud_weights has %d",
			len(configData.Forecast.SkyCoverage), len(configData.Forecast.CloudWeights))
	}

	// Start transaction
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Clear existing data
	for _, table := range []string{"sites", "sky_cover", "settings"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, site := range configData.Sites {
		_, err := tx.Exec(`INSERT INTO sites (name, station, latitude, longitude, utc_offset) VALUES (?, ?, ?, ?, ?)`,
			site.Name, site.Station, site.Latitude, site.Longitude, site.UTCOffset)
		if err != nil {
			return fmt.Errorf("failed to insert site %s: %w", site.Name, err)
		}
	}

	for h := range configData.Forecast.SkyCoverage {
		_, err := tx.Exec(`INSERT INTO sky_cover (hour, sky_coverage, cloud_weight) VALUES (?, ?, ?)`,
			h, configData.Forecast.SkyCoverage[h], configData.Forecast.CloudWeights[h])
		if err != nil {
			return fmt.Errorf("failed to insert forecast hour %d: %w", h, err)
		}
	}

	settings := map[string]string{
		settingForecastDate:  configData.Forecast.Date,
		settingArchiveSQLite: configData.Archive.SQLitePath,
		settingArchiveTSDB:   configData.Archive.TimescaleDB,
		settingLoggingFile:   configData.Logging.File,
	}
	if configData.Forecast.StepMinutes != 0 {
		settings[settingForecastStep] = strconv.Itoa(configData.Forecast.StepMinutes)
	}
	if configData.Logging.Debug {
		settings[settingLoggingDebug] = "true"
	}
	if configData.REST != nil {
		settings[settingRESTListenAddr] = configData.REST.ListenAddr
		settings[settingRESTHTTPPort] = strconv.Itoa(configData.REST.HTTPPort)
	}

	for k, v := range settings {
		if v == "" && k != settingRESTListenAddr {
			continue
		}
		if _, err := tx.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("failed to insert setting %s: %w", k, err)
		}
	}

	// Commit transaction
	return tx.Commit()
}
