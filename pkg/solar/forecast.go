package solar

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
)

// HoursPerDay is the length of a forecast in hourly steps.
const HoursPerDay = 24

// ErrInvalidSkyCover is returned when a sky cover schedule has out-of-range values.
var ErrInvalidSkyCover = errors.New("invalid sky cover")

// SkyCover is an hourly sky cover schedule. Coverage is the percent of sky
// covered by cloud. Weights rate how much of the sun each hour's cloud type
// blocks, from 0 (thin cirrus, no blocking) to 1 (thick cumulus, full blocking).
type SkyCover struct {
	Coverage [HoursPerDay]float64 `json:"coverage"`
	Weights  [HoursPerDay]float64 `json:"weights"`
}

// DefaultSkyCover returns a morning overcast that clears through the
// afternoon, with cloud thinning as it breaks up.
func DefaultSkyCover() SkyCover {
	var sc SkyCover
	half := HoursPerDay / 2

	floats.Span(sc.Coverage[:half], 100, 90)
	floats.Span(sc.Coverage[half:], 90, 10)
	floats.Span(sc.Weights[:half], 1, 0.8)
	floats.Span(sc.Weights[half:], 0.8, 0.1)

	return sc
}

// NewSkyCover builds a schedule from slices of exactly 24 values each.
func NewSkyCover(coverage, weights []float64) (SkyCover, error) {
	var sc SkyCover
	if len(coverage) != HoursPerDay || len(weights) != HoursPerDay {
		return sc, fmt.Errorf("%w: need %d hourly coverage and weight values, got %d and %d",
			ErrInvalidSkyCover, HoursPerDay, len(coverage), len(weights))
	}
	copy(sc.Coverage[:], coverage)
	copy(sc.Weights[:], weights)
	return sc, sc.Validate()
}

// Validate checks that coverage is a percentage and weights are fractions.
func (sc SkyCover) Validate() error {
	for h := 0; h < HoursPerDay; h++ {
		if c := sc.Coverage[h]; !(c >= 0 && c <= 100) {
			return fmt.Errorf("%w: coverage %v at hour %d outside [0, 100]", ErrInvalidSkyCover, c, h)
		}
		if w := sc.Weights[h]; !(w >= 0 && w <= 1) {
			return fmt.Errorf("%w: weight %v at hour %d outside [0, 1]", ErrInvalidSkyCover, w, h)
		}
	}
	return nil
}

// Effective returns coverage scaled by blocking weight for each hour, in percent.
func (sc SkyCover) Effective() []float64 {
	eff := make([]float64, HoursPerDay)
	floats.MulTo(eff, sc.Coverage[:], sc.Weights[:])
	return eff
}

// HourlyForecast is the expected irradiance for one local hour.
type HourlyForecast struct {
	LocalTime    time.Time `json:"local_time"`
	ElevationDeg float64   `json:"elevation_deg"`
	AzimuthDeg   float64   `json:"azimuth_deg"`
	EffectiveSky float64   `json:"effective_sky_pct"`
	ClearSkyWm2  float64   `json:"clear_sky_wm2"`
	ForecastWm2  float64   `json:"forecast_wm2"`
	Reduction    float64   `json:"reduction"`
}

// SolarForecast is a 24 hour cloud-weighted irradiance forecast.
type SolarForecast struct {
	Point     GeoPoint         `json:"point"`
	Date      time.Time        `json:"date"`
	UTCOffset int              `json:"utc_offset"`
	Hours     []HourlyForecast `json:"hours"`

	TotalClearSkyWh float64 `json:"total_clear_sky_wh"`
	TotalForecastWh float64 `json:"total_forecast_wh"`
}

// Forecast applies a sky cover schedule to the clear-sky maximum at each
// local hour of the profile's day.
func Forecast(profile *DailyProfile, cover SkyCover) (*SolarForecast, error) {
	if err := cover.Validate(); err != nil {
		return nil, err
	}

	f := &SolarForecast{
		Point:     profile.Point,
		Date:      profile.Date,
		UTCOffset: profile.UTCOffset,
		Hours:     make([]HourlyForecast, HoursPerDay),
	}

	eff := cover.Effective()
	clear := make([]float64, HoursPerDay)
	fcst := make([]float64, HoursPerDay)

	for h := 0; h < HoursPerDay; h++ {
		lt := profile.Date.Add(time.Duration(h) * time.Hour)
		pos := ComputePosition(profile.Point, LocalInstant{Time: lt, UTCOffsetHours: profile.UTCOffset})

		clear[h] = EstimateClearSkyIrradiance(pos.ElevationDeg)
		fcst[h] = (1 - eff[h]/100) * clear[h]

		var reduction float64
		if clear[h] > 0 {
			reduction = (clear[h] - fcst[h]) / clear[h]
		}

		f.Hours[h] = HourlyForecast{
			LocalTime:    lt,
			ElevationDeg: pos.ElevationDeg,
			AzimuthDeg:   pos.AzimuthDeg,
			EffectiveSky: eff[h],
			ClearSkyWm2:  clear[h],
			ForecastWm2:  fcst[h],
			Reduction:    reduction,
		}
	}

	// One-hour spacing, so summed W/m² is Wh/m².
	f.TotalClearSkyWh = floats.Sum(clear)
	f.TotalForecastWh = floats.Sum(fcst)

	return f, nil
}
