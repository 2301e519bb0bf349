package archive

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/chrissnell/solarmax/internal/log"
	"github.com/chrissnell/solarmax/pkg/migrate"
)

const (
	dateLayout = "2006-01-02"
	// fixed width so that text ordering is chronological
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

// Migrations holds the SQLite archive schema migrations
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationTable tracks the archive schema version
const MigrationTable = "archive_migrations"

// SQLiteStore archives forecast runs in a local SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the archive database at path and creates its tables
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite archive: %w", err)
	}

	// A single connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	migrator := migrate.NewMigrator(db, migrate.NewFSProvider(Migrations, MigrationTable))
	if err := migrator.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize SQLite archive schema: %w", err)
	}

	log.Infof("opened SQLite forecast archive at %s", path)
	return &SQLiteStore{db: db}, nil
}

// SaveForecast stores a run and its hours in one transaction
func (s *SQLiteStore) SaveForecast(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO forecast_runs (id, site, date, utc_offset, generated_at, total_clear_sky_wh, total_forecast_wh)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Site, run.Date.Format(dateLayout), run.UTCOffset,
		run.GeneratedAt.UTC().Format(timestampLayout), run.TotalClearSkyWh, run.TotalForecastWh)
	if err != nil {
		return fmt.Errorf("failed to insert forecast run %s: %w", run.ID, err)
	}

	for _, h := range run.Hours {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO forecast_hours (run_id, hour, elevation_deg, azimuth_deg, clear_sky_wm2, forecast_wm2, reduction)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, h.Hour, h.ElevationDeg, h.AzimuthDeg, h.ClearSkyWm2, h.ForecastWm2, h.Reduction)
		if err != nil {
			return fmt.Errorf("failed to insert hour %d of run %s: %w", h.Hour, run.ID, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns up to limit runs for site, newest first, with their hours
func (s *SQLiteStore) ListRuns(ctx context.Context, site string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site, date, utc_offset, generated_at, total_clear_sky_wh, total_forecast_wh
		FROM forecast_runs
		WHERE site = ?
		ORDER BY generated_at DESC
		LIMIT ?`, site, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecast runs: %w", err)
	}

	var runs []Run
	for rows.Next() {
		var r Run
		var date, generated string
		if err := rows.Scan(&r.ID, &r.Site, &date, &r.UTCOffset, &generated, &r.TotalClearSkyWh, &r.TotalForecastWh); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan forecast run: %w", err)
		}
		if r.Date, err = time.Parse(dateLayout, date); err != nil {
			rows.Close()
			return nil, fmt.Errorf("run %s has invalid date %q: %w", r.ID, date, err)
		}
		if r.GeneratedAt, err = time.Parse(timestampLayout, generated); err != nil {
			rows.Close()
			return nil, fmt.Errorf("run %s has invalid generated_at %q: %w", r.ID, generated, err)
		}
		runs = append(runs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		if runs[i].Hours, err = s.hours(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}

	return runs, nil
}

func (s *SQLiteStore) hours(ctx context.Context, runID string) ([]HourRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hour, elevation_deg, azimuth_deg, clear_sky_wm2, forecast_wm2, reduction
		FROM forecast_hours
		WHERE run_id = ?
		ORDER BY hour`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query hours of run %s: %w", runID, err)
	}
	defer rows.Close()

	var hours []HourRecord
	for rows.Next() {
		var h HourRecord
		if err := rows.Scan(&h.Hour, &h.ElevationDeg, &h.AzimuthDeg, &h.ClearSkyWm2, &h.ForecastWm2, &h.Reduction); err != nil {
			return nil, fmt.Errorf("failed to scan hour of run %s: %w", runID, err)
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
