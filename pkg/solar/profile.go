package solar

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// DefaultStep is the sampling interval of a daily profile.
const DefaultStep = time.Minute

// ErrInvalidStep is returned when a profile step does not evenly divide a day.
var ErrInvalidStep = errors.New("profile step must be positive and divide 24h evenly")

const day = 24 * time.Hour

// Sample is one point of a daily profile.
type Sample struct {
	LocalTime   time.Time `json:"local_time"`
	Position    Position  `json:"position"`
	ClearSkyWm2 float64   `json:"clear_sky_wm2"`
}

// DailyProfile is the sun's track over one local calendar day, sampled at a fixed step.
type DailyProfile struct {
	Point     GeoPoint      `json:"point"`
	Date      time.Time     `json:"date"`
	UTCOffset int           `json:"utc_offset"`
	Step      time.Duration `json:"step"`
	Samples   []Sample      `json:"samples,omitempty"`

	PeakIndex               int       `json:"peak_index"`
	PeakElevationDeg        float64   `json:"peak_elevation_deg"`
	PeakLocalTime           time.Time `json:"peak_local_time"`
	SolarNoon               time.Time `json:"solar_noon"`
	DailyInsolationWh       float64   `json:"daily_insolation_wh"`
	MeanDaylightWm2         float64   `json:"mean_daylight_wm2"`
	ReferenceDeclinationDeg float64   `json:"reference_declination_deg"`
}

// BuildDailyProfile samples the sun's position and clear-sky irradiance from
// local midnight through the end of the given date. A zero step selects DefaultStep.
func BuildDailyProfile(point GeoPoint, date time.Time, utcOffset int, step time.Duration) (*DailyProfile, error) {
	if step == 0 {
		step = DefaultStep
	}
	if step < 0 || day%step != 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStep, step)
	}

	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	n := int(day / step)

	p := &DailyProfile{
		Point:     point,
		Date:      midnight,
		UTCOffset: utcOffset,
		Step:      step,
		Samples:   make([]Sample, n),
	}

	hours := make([]float64, n)
	elevations := make([]float64, n)
	irradiance := make([]float64, n)
	var daylight []float64

	for i := 0; i < n; i++ {
		lt := midnight.Add(time.Duration(i) * step)
		pos := ComputePosition(point, LocalInstant{Time: lt, UTCOffsetHours: utcOffset})
		irr := EstimateClearSkyIrradiance(pos.ElevationDeg)

		p.Samples[i] = Sample{LocalTime: lt, Position: pos, ClearSkyWm2: irr}

		hours[i] = lt.Sub(midnight).Hours()
		elevations[i] = pos.ElevationDeg
		irradiance[i] = irr
		if irr > 0 {
			daylight = append(daylight, irr)
		}
	}

	p.PeakIndex = floats.MaxIdx(elevations)
	p.PeakElevationDeg = elevations[p.PeakIndex]
	p.PeakLocalTime = p.Samples[p.PeakIndex].LocalTime

	if n > 1 {
		p.DailyInsolationWh = integrate.Trapezoidal(hours, irradiance)
	}
	if len(daylight) > 0 {
		p.MeanDaylightWm2 = stat.Mean(daylight, nil)
	}

	noon := LocalInstant{Time: midnight.Add(12 * time.Hour), UTCOffsetHours: utcOffset}
	tc := ComputePosition(point, noon).TimeCorrectionMin
	p.SolarNoon = noon.Time.Add(-minutes(tc))
	p.ReferenceDeclinationDeg = ReferenceDeclination(noon)

	return p, nil
}

// Hourly returns the samples that fall exactly on the hour.
func (p *DailyProfile) Hourly() []Sample {
	var out []Sample
	for _, s := range p.Samples {
		if s.LocalTime.Minute() == 0 && s.LocalTime.Second() == 0 && s.LocalTime.Nanosecond() == 0 {
			out = append(out, s)
		}
	}
	return out
}

// Summary returns a copy of the profile without its samples.
func (p *DailyProfile) Summary() DailyProfile {
	s := *p
	s.Samples = nil
	return s
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
