package solar

import (
	"math"
	"time"
)

// Daylight holds the local clock times of sunrise, solar noon and sunset,
// as minutes after local midnight.
type Daylight struct {
	Sunrise    int  `json:"sunrise_min"`
	SolarNoon  int  `json:"solar_noon_min"`
	Sunset     int  `json:"sunset_min"`
	PolarDay   bool `json:"polar_day,omitempty"`
	PolarNight bool `json:"polar_night,omitempty"`
}

// LengthMinutes returns the time between sunrise and sunset. Polar day is a
// full 1440 minutes and polar night is zero.
func (d Daylight) LengthMinutes() int {
	switch {
	case d.PolarDay:
		return 1440
	case d.PolarNight:
		return 0
	case d.Sunset >= d.Sunrise:
		return d.Sunset - d.Sunrise
	default:
		return 1440 - d.Sunrise + d.Sunset
	}
}

// CalculateDaylight returns sunrise, solar noon and sunset on the local
// clock for the given date and UTC offset.
// Sunrise and Sunset are -1 when the sun never rises or never sets.
func CalculateDaylight(point GeoPoint, date time.Time, utcOffset int) Daylight {
	noon := LocalInstant{
		Time:           time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, time.UTC),
		UTCOffsetHours: utcOffset,
	}

	b := dayAngle(noon.DayOfYear())
	tc := timeCorrection(point.Longitude, utcOffset, equationOfTime(b))

	// Local solar noon on the clock. The time correction moves the clock
	// ahead of solar time, so noon arrives that many minutes earlier.
	solarNoon := 720.0 - tc

	d := Daylight{SolarNoon: clockMinutes(solarNoon)}

	// At sunrise and sunset the sun sits on the horizon:
	// cos(H) = -tan(lat) * tan(declination)
	cosH := -math.Tan(degToRad(point.Latitude)) * math.Tan(degToRad(declination(b)))

	if cosH < -1.0 {
		d.Sunrise, d.Sunset, d.PolarDay = -1, -1, true
		return d
	}
	if cosH > 1.0 {
		d.Sunrise, d.Sunset, d.PolarNight = -1, -1, true
		return d
	}

	// 15 degrees per hour, 4 minutes per degree
	halfDayMinutes := radToDeg(math.Acos(cosH)) * 4.0

	d.Sunrise = clockMinutes(solarNoon - halfDayMinutes)
	d.Sunset = clockMinutes(solarNoon + halfDayMinutes)
	return d
}

// FormatClock renders minutes after midnight as a 12-hour clock time.
// Negative minutes render as an empty string.
func FormatClock(minutes int) string {
	if minutes < 0 {
		return ""
	}
	t := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
	return t.Format("3:04 PM")
}

// clockMinutes rounds to the nearest minute and wraps into [0, 1440).
func clockMinutes(m float64) int {
	r := int(math.Round(m)) % 1440
	if r < 0 {
		r += 1440
	}
	return r
}
