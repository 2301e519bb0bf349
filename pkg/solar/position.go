// Package solar computes the sun's position for a site and local
// wall-clock time, the theoretical clear-sky maximum irradiance for that
// position, and the daily profiles and cloud-weighted forecasts built on
// top of them.
//
// All angles are degrees at the API boundary; trigonometry runs in radians.
package solar

import (
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

const (
	// SolarConstant is the top-of-atmosphere irradiance used by the clear-sky estimate, in W/m²
	SolarConstant = 1367.0

	// MaxDeclinationDeg is the axial tilt used by the declination approximation
	MaxDeclinationDeg = 23.45

	// zenithEpsilon is the cos(elevation) magnitude below which azimuth is undefined
	zenithEpsilon = 1e-12
)

// atmosphericCorrection is the fixed second term of the clear-sky formula:
// 0.033 * cos(360*80/360 degrees).
var atmosphericCorrection = 0.033 * math.Cos(degToRad(360.0*80.0/360.0))

// GeoPoint is a location in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Validate reports whether the point is within the geographic coordinate ranges.
// The position calculations never call it; it is meant for configuration and request parsing.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", p.Latitude)
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", p.Longitude)
	}
	return nil
}

// LocalInstant is a wall-clock reading at a site together with the fixed
// UTC offset of the clock. Only the calendar and clock fields of Time are
// used; its Location is ignored.
type LocalInstant struct {
	Time           time.Time
	UTCOffsetHours int
}

// NewLocalInstant builds a LocalInstant from calendar fields.
func NewLocalInstant(year int, month time.Month, day, hour, min, sec, utcOffsetHours int) LocalInstant {
	return LocalInstant{
		Time:           time.Date(year, month, day, hour, min, sec, 0, time.UTC),
		UTCOffsetHours: utcOffsetHours,
	}
}

// UTC returns the absolute instant the wall-clock reading refers to.
func (li LocalInstant) UTC() time.Time {
	t := li.Time
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return wall.Add(-time.Duration(li.UTCOffsetHours) * time.Hour)
}

// DayOfYear returns the ordinal day (1-366) of the wall-clock date.
func (li LocalInstant) DayOfYear() int {
	t := li.Time
	return julian.DayOfYearGregorian(t.Year(), int(t.Month()), t.Day())
}

// clockHours returns fractional hours since local midnight.
func (li LocalInstant) clockHours() float64 {
	t := li.Time
	return float64(t.Hour()) +
		float64(t.Minute())/60.0 +
		float64(t.Second())/3600.0 +
		float64(t.Nanosecond())/3.6e12
}

// Position is the sun's position for one site and instant.
type Position struct {
	DeclinationDeg    float64 `json:"declination_deg"`
	AzimuthDeg        float64 `json:"azimuth_deg"`
	ElevationDeg      float64 `json:"elevation_deg"`
	TimeCorrectionMin float64 `json:"time_correction_min"`

	EquationOfTimeMin float64 `json:"equation_of_time_min"`
	HourAngleDeg      float64 `json:"hour_angle_deg"`
	LocalSolarHours   float64 `json:"local_solar_hours"`
}

// ComputePosition returns the declination, azimuth and elevation of the sun and the
// local time correction factor for the given site and wall-clock instant.
func ComputePosition(point GeoPoint, instant LocalInstant) Position {
	b := dayAngle(instant.DayOfYear())

	eot := equationOfTime(b)
	tc := timeCorrection(point.Longitude, instant.UTCOffsetHours, eot)

	lst := wrapHours(instant.clockHours() + tc/60.0)
	hra := 15.0 * (lst - 12.0)

	decl := declination(b)

	declRad := degToRad(decl)
	latRad := degToRad(point.Latitude)
	hraRad := degToRad(hra)

	sinElev := math.Sin(declRad)*math.Sin(latRad) + math.Cos(declRad)*math.Cos(latRad)*math.Cos(hraRad)
	elevRad := math.Asin(clampUnit(sinElev))

	return Position{
		DeclinationDeg:    decl,
		AzimuthDeg:        azimuth(declRad, latRad, hraRad, elevRad, lst, hra),
		ElevationDeg:      radToDeg(elevRad),
		TimeCorrectionMin: tc,
		EquationOfTimeMin: eot,
		HourAngleDeg:      hra,
		LocalSolarHours:   lst,
	}
}

// EstimateClearSkyIrradiance returns the theoretical clear-sky maximum
// irradiance in W/m² for a sun elevation. The result is zero when the sun
// is at or below the horizon.
func EstimateClearSkyIrradiance(elevationDeg float64) float64 {
	if elevationDeg <= 0 {
		return 0
	}
	raw := SolarConstant * (math.Sin(degToRad(elevationDeg)) + atmosphericCorrection)
	if raw < 0 {
		return 0
	}
	return raw
}

// dayAngle is B in degrees. Both the equation of time and the declination use it.
func dayAngle(dayOfYear int) float64 {
	return (360.0 / 365.0) * float64(dayOfYear-81)
}

// equationOfTime returns the equation of time in minutes for day angle b (degrees).
func equationOfTime(b float64) float64 {
	bRad := degToRad(b)
	return 9.87*math.Sin(2*bRad) - 7.53*math.Cos(bRad) - 1.5*math.Sin(bRad)
}

// timeCorrection returns the time correction factor in minutes: four minutes per degree between
// the site and its local standard time meridian, plus the equation of time.
func timeCorrection(longitude float64, utcOffsetHours int, eot float64) float64 {
	lstm := 15.0 * float64(utcOffsetHours)
	return 4.0*(longitude-lstm) + eot
}

func declination(b float64) float64 {
	return MaxDeclinationDeg * math.Sin(degToRad(b))
}

// azimuth picks the morning or afternoon branch of the inverse cosine. Both
// predicates are checked: lst and hra come from the same value here, but
// callers reusing this with a separately tracked clock may not agree.
func azimuth(declRad, latRad, hraRad, elevRad, lst, hra float64) float64 {
	cosElev := math.Cos(elevRad)
	if math.Abs(cosElev) < zenithEpsilon {
		return 0
	}

	cosAzi := (math.Sin(declRad)*math.Sin(latRad) - math.Cos(declRad)*math.Sin(latRad)*math.Cos(hraRad)) / cosElev
	azi := radToDeg(math.Acos(clampUnit(cosAzi)))

	if lst < 12 || hra < 0 {
		return azi
	}

	azi = 360 - azi
	if azi >= 360 {
		azi -= 360
	}
	return azi
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }

// wrapHours folds fractional hours into [0, 24).
func wrapHours(h float64) float64 {
	h = math.Mod(h, 24)
	if h < 0 {
		h += 24
	}
	return h
}

// clampUnit pins rounding overshoot back into [-1, 1]. NaN passes through.
func clampUnit(x float64) float64 {
	switch {
	case x > 1:
		return 1
	case x < -1:
		return -1
	}
	return x
}
