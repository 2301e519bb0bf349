package restserver

import (
	"time"

	"github.com/chrissnell/solarmax/internal/archive"
	"github.com/chrissnell/solarmax/pkg/solar"
)

// SiteResponse describes one configured site
type SiteResponse struct {
	Name      string  `json:"name"`
	Station   string  `json:"station,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	UTCOffset int     `json:"utc_offset"`
}

// PositionResponse is the sun's position at one local instant
type PositionResponse struct {
	Site        string         `json:"site,omitempty"`
	Point       solar.GeoPoint `json:"point"`
	LocalTime   string         `json:"local_time"`
	UTCOffset   int            `json:"utc_offset"`
	Position    solar.Position `json:"position"`
	ClearSkyWm2 float64        `json:"clear_sky_wm2"`
}

// DaylightResponse is the daylight window for a site and date
type DaylightResponse struct {
	Site          string         `json:"site"`
	Date          string         `json:"date"`
	Daylight      solar.Daylight `json:"daylight"`
	Sunrise       string         `json:"sunrise,omitempty"`
	SolarNoon     string         `json:"solar_noon,omitempty"`
	Sunset        string         `json:"sunset,omitempty"`
	LengthMinutes int            `json:"length_min"`
}

// ProfileResponse is a daily profile for a site
type ProfileResponse struct {
	Site    string             `json:"site"`
	Profile solar.DailyProfile `json:"profile"`
}

// ForecastResponse is a cloud-weighted forecast for a site
type ForecastResponse struct {
	Site     string               `json:"site"`
	Forecast *solar.SolarForecast `json:"forecast"`
}

// RunsResponse lists archived forecast runs
type RunsResponse struct {
	Site        string        `json:"site"`
	GeneratedAt time.Time     `json:"generated_at"`
	Runs        []archive.Run `json:"runs"`
}
