package archive

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/solarmax/internal/log"
)

// forecastRunModel is the gorm model behind the forecast_runs table
type forecastRunModel struct {
	ID              string              `gorm:"primaryKey;column:id;type:uuid"`
	Site            string              `gorm:"column:site;not null;index:forecast_runs_site_idx,priority:1"`
	Date            time.Time           `gorm:"column:date;type:date;not null"`
	UTCOffset       int                 `gorm:"column:utc_offset;not null"`
	GeneratedAt     time.Time           `gorm:"column:generated_at;not null;index:forecast_runs_site_idx,priority:2"`
	TotalClearSkyWh float64             `gorm:"column:total_clear_sky_wh"`
	TotalForecastWh float64             `gorm:"column:total_forecast_wh"`
	Hours           []forecastHourModel `gorm:"foreignKey:RunID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for forecastRunModel
func (forecastRunModel) TableName() string {
	return "forecast_runs"
}

// forecastHourModel is the gorm model behind the forecast_hours table
type forecastHourModel struct {
	RunID        string  `gorm:"primaryKey;column:run_id;type:uuid"`
	Hour         int     `gorm:"primaryKey;column:hour;autoIncrement:false"`
	ElevationDeg float64 `gorm:"column:elevation_deg"`
	AzimuthDeg   float64 `gorm:"column:azimuth_deg"`
	ClearSkyWm2  float64 `gorm:"column:clear_sky_wm2"`
	ForecastWm2  float64 `gorm:"column:forecast_wm2"`
	Reduction    float64 `gorm:"column:reduction"`
}

// TableName specifies the table name for forecastHourModel
func (forecastHourModel) TableName() string {
	return "forecast_hours"
}

// TimescaleStore archives forecast runs in TimescaleDB (or any Postgres)
type TimescaleStore struct {
	db *gorm.DB
}

// NewTimescaleStore connects to the database and migrates the archive tables
func NewTimescaleStore(connectionString string) (*TimescaleStore, error) {
	db, err := createConnection(connectionString)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&forecastRunModel{}, &forecastHourModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate forecast archive tables: %w", err)
	}

	return &TimescaleStore{db: db}, nil
}

// createConnection opens a gorm handle that logs through zap
func createConnection(connectionString string) (*gorm.DB, error) {
	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		log.Warn("warning: unable to create a TimescaleDB connection:", err)
		return nil, err
	}
	log.Info("TimescaleDB connection successful")

	return db, nil
}

// SaveForecast inserts the run and, through the association, its hours
func (t *TimescaleStore) SaveForecast(ctx context.Context, run *Run) error {
	model := toModel(run)
	if err := t.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to insert forecast run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns up to limit runs for site, newest first, with their hours
func (t *TimescaleStore) ListRuns(ctx context.Context, site string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	var models []forecastRunModel
	err := t.db.WithContext(ctx).
		Preload("Hours", func(db *gorm.DB) *gorm.DB { return db.Order("hour") }).
		Where("site = ?", site).
		Order("generated_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("error querying forecast runs: %w", err)
	}

	runs := make([]Run, len(models))
	for i := range models {
		runs[i] = fromModel(&models[i])
	}
	return runs, nil
}

// Close closes the underlying connection pool
func (t *TimescaleStore) Close() error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toModel(run *Run) forecastRunModel {
	m := forecastRunModel{
		ID:              run.ID,
		Site:            run.Site,
		Date:            run.Date,
		UTCOffset:       run.UTCOffset,
		GeneratedAt:     run.GeneratedAt,
		TotalClearSkyWh: run.TotalClearSkyWh,
		TotalForecastWh: run.TotalForecastWh,
		Hours:           make([]forecastHourModel, len(run.Hours)),
	}
	for i, h := range run.Hours {
		m.Hours[i] = forecastHourModel{
			RunID:        run.ID,
			Hour:         h.Hour,
			ElevationDeg: h.ElevationDeg,
			AzimuthDeg:   h.AzimuthDeg,
			ClearSkyWm2:  h.ClearSkyWm2,
			ForecastWm2:  h.ForecastWm2,
			Reduction:    h.Reduction,
		}
	}
	return m
}

func fromModel(m *forecastRunModel) Run {
	r := Run{
		ID:              m.ID,
		Site:            m.Site,
		Date:            m.Date.UTC(),
		UTCOffset:       m.UTCOffset,
		GeneratedAt:     m.GeneratedAt.UTC(),
		TotalClearSkyWh: m.TotalClearSkyWh,
		TotalForecastWh: m.TotalForecastWh,
		Hours:           make([]HourRecord, len(m.Hours)),
	}
	for i, h := range m.Hours {
		r.Hours[i] = HourRecord{
			Hour:         h.Hour,
			ElevationDeg: h.ElevationDeg,
			AzimuthDeg:   h.AzimuthDeg,
			ClearSkyWm2:  h.ClearSkyWm2,
			ForecastWm2:  h.ForecastWm2,
			Reduction:    h.Reduction,
		}
	}
	return r
}
