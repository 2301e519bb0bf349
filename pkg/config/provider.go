package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/solarmax/pkg/solar"
)

// ErrNoSites is returned when a configuration defines no sites.
var ErrNoSites = errors.New("no sites configured")

// DateLayout is the layout of forecast dates in configuration and URLs.
const DateLayout = "2006-01-02"

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetSites() ([]SiteData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Sites    []SiteData      `json:"sites" yaml:"sites" toml:"sites"`
	Forecast ForecastData    `json:"forecast" yaml:"forecast,omitempty" toml:"forecast"`
	Archive  ArchiveData     `json:"archive" yaml:"archive,omitempty" toml:"archive"`
	REST     *RESTServerData `json:"rest,omitempty" yaml:"rest,omitempty" toml:"rest"`
	Logging  LoggingData     `json:"logging" yaml:"logging,omitempty" toml:"logging"`
}

// SiteData describes one location to compute solar data for
type SiteData struct {
	Name      string  `json:"name" yaml:"name" toml:"name"`
	Station   string  `json:"station,omitempty" yaml:"station,omitempty" toml:"station"`
	Latitude  float64 `json:"latitude" yaml:"latitude" toml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude" toml:"longitude"`
	UTCOffset int     `json:"utc_offset" yaml:"utc_offset" toml:"utc_offset"`
}

// Point returns the site's coordinates
func (s SiteData) Point() solar.GeoPoint {
	return solar.GeoPoint{Latitude: s.Latitude, Longitude: s.Longitude}
}

// ForecastData holds the forecast run settings. An empty Date means today
// on each site's clock; empty sky cover slices select the default schedule.
type ForecastData struct {
	Date         string    `json:"date,omitempty" yaml:"date,omitempty" toml:"date"`
	StepMinutes  int       `json:"step_minutes,omitempty" yaml:"step_minutes,omitempty" toml:"step_minutes"`
	SkyCoverage  []float64 `json:"sky_coverage,omitempty" yaml:"sky_coverage,omitempty" toml:"sky_coverage"`
	CloudWeights []float64 `json:"cloud_weights,omitempty" yaml:"cloud_weights,omitempty" toml:"cloud_weights"`
}

// ArchiveData holds the forecast archive backends. Either, both or none may be set.
type ArchiveData struct {
	SQLitePath  string `json:"sqlite,omitempty" yaml:"sqlite,omitempty" toml:"sqlite"`
	TimescaleDB string `json:"timescaledb,omitempty" yaml:"timescaledb,omitempty" toml:"timescaledb"`
}

// RESTServerData holds the REST server listener settings
type RESTServerData struct {
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty" toml:"listen_addr"`
	HTTPPort   int    `json:"http_port,omitempty" yaml:"http_port,omitempty" toml:"http_port"`
}

// LoggingData holds logging settings
type LoggingData struct {
	File  string `json:"file,omitempty" yaml:"file,omitempty" toml:"file"`
	Debug bool   `json:"debug,omitempty" yaml:"debug,omitempty" toml:"debug"`
}

// Step returns the profile sampling step, defaulting to one minute
func (f ForecastData) Step() time.Duration {
	if f.StepMinutes <= 0 {
		return solar.DefaultStep
	}
	return time.Duration(f.StepMinutes) * time.Minute
}

// DateFor returns the forecast date. When no date is configured it is the
// current date on a clock with the given UTC offset.
func (f ForecastData) DateFor(now time.Time, utcOffset int) (time.Time, error) {
	if f.Date == "" {
		local := now.UTC().Add(time.Duration(utcOffset) * time.Hour)
		return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(DateLayout, f.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid forecast date %q: %w", f.Date, err)
	}
	return d, nil
}

// SkyCover returns the configured sky cover schedule or the default one
func (f ForecastData) SkyCover() (solar.SkyCover, error) {
	if len(f.SkyCoverage) == 0 && len(f.CloudWeights) == 0 {
		return solar.DefaultSkyCover(), nil
	}
	return solar.NewSkyCover(f.SkyCoverage, f.CloudWeights)
}

// Site looks up a site by name
func (c *ConfigData) Site(name string) (SiteData, bool) {
	for _, s := range c.Sites {
		if s.Name == name {
			return s, true
		}
	}
	return SiteData{}, false
}

// Validate checks the configuration for errors that would otherwise
// surface halfway through a forecast run
func (c *ConfigData) Validate() error {
	if len(c.Sites) == 0 {
		return ErrNoSites
	}

	seen := make(map[string]bool)
	for i, s := range c.Sites {
		if s.Name == "" {
			return fmt.Errorf("site %d has no name", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate site name: %s", s.Name)
		}
		seen[s.Name] = true

		if err := s.Point().Validate(); err != nil {
			return fmt.Errorf("site %s: %w", s.Name, err)
		}
		if s.UTCOffset < -12 || s.UTCOffset > 14 {
			return fmt.Errorf("site %s: utc_offset %d out of range [-12, 14]", s.Name, s.UTCOffset)
		}
	}

	if _, err := c.Forecast.DateFor(time.Now(), 0); err != nil {
		return err
	}
	if 24*time.Hour%c.Forecast.Step() != 0 {
		return fmt.Errorf("%w: step_minutes %d", solar.ErrInvalidStep, c.Forecast.StepMinutes)
	}
	if _, err := c.Forecast.SkyCover(); err != nil {
		return err
	}

	if c.REST != nil && (c.REST.HTTPPort < 0 || c.REST.HTTPPort > 65535) {
		return fmt.Errorf("rest.http_port %d out of range", c.REST.HTTPPort)
	}

	return nil
}

// NewProvider creates a configuration provider for the given backend type
func NewProvider(filename, backend string) (ConfigProvider, error) {
	switch backend {
	case "yaml":
		return NewYAMLProvider(filename), nil
	case "toml":
		return NewTOMLProvider(filename), nil
	case "sqlite":
		provider, err := NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml', 'toml' or 'sqlite'", backend)
	}
}
