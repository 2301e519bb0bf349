// Package archive persists forecast runs so they can be compared with
// later observations.
package archive

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chrissnell/solarmax/pkg/solar"
)

// Store persists forecast runs
type Store interface {
	SaveForecast(ctx context.Context, run *Run) error
	// ListRuns returns the most recent runs for a site, newest first
	ListRuns(ctx context.Context, site string, limit int) ([]Run, error)
	Close() error
}

// Run is one archived forecast for a site and date
type Run struct {
	ID              string       `json:"id"`
	Site            string       `json:"site"`
	Date            time.Time    `json:"date"`
	UTCOffset       int          `json:"utc_offset"`
	GeneratedAt     time.Time    `json:"generated_at"`
	TotalClearSkyWh float64      `json:"total_clear_sky_wh"`
	TotalForecastWh float64      `json:"total_forecast_wh"`
	Hours           []HourRecord `json:"hours,omitempty"`
}

// HourRecord is one hour of an archived forecast
type HourRecord struct {
	Hour         int     `json:"hour"`
	ElevationDeg float64 `json:"elevation_deg"`
	AzimuthDeg   float64 `json:"azimuth_deg"`
	ClearSkyWm2  float64 `json:"clear_sky_wm2"`
	ForecastWm2  float64 `json:"forecast_wm2"`
	Reduction    float64 `json:"reduction"`
}

// NewRun builds an archive run from a forecast
func NewRun(site string, f *solar.SolarForecast, generatedAt time.Time) *Run {
	run := &Run{
		ID:              uuid.New().String(),
		Site:            site,
		Date:            f.Date,
		UTCOffset:       f.UTCOffset,
		GeneratedAt:     generatedAt.UTC(),
		TotalClearSkyWh: f.TotalClearSkyWh,
		TotalForecastWh: f.TotalForecastWh,
		Hours:           make([]HourRecord, len(f.Hours)),
	}

	for h, hf := range f.Hours {
		run.Hours[h] = HourRecord{
			Hour:         h,
			ElevationDeg: hf.ElevationDeg,
			AzimuthDeg:   hf.AzimuthDeg,
			ClearSkyWm2:  hf.ClearSkyWm2,
			ForecastWm2:  hf.ForecastWm2,
			Reduction:    hf.Reduction,
		}
	}

	return run
}
