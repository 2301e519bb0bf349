package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chrissnell/solarmax/pkg/solar"
)

const yamlConfig = `
sites:
  - name: Norman
    station: KOUN
    latitude: 35.2455556
    longitude: -97.4721389
    utc_offset: -4
  - name: Pittsburgh
    station: KPIT
    latitude: 40.4914167
    longitude: -80.2326944
    utc_offset: -4
forecast:
  date: "2021-04-13"
  step_minutes: 15
archive:
  sqlite: /var/lib/solarmax/archive.db
rest:
  listen_addr: 127.0.0.1
  http_port: 8080
logging:
  debug: true
`

const tomlConfig = `
[[sites]]
name = "Norman"
station = "KOUN"
latitude = 35.2455556
longitude = -97.4721389
utc_offset = -4

[forecast]
date = "2021-04-13"

[archive]
timescaledb = "postgres://solar@localhost/solar"

[rest]
http_port = 9090
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestYAMLProvider(t *testing.T) {
	provider, err := NewProvider(writeFile(t, "config.yaml", yamlConfig), "yaml")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer provider.Close()

	cfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if len(cfg.Sites) != 2 {
		t.Fatalf("len(Sites) = %d, expected 2", len(cfg.Sites))
	}
	if cfg.Sites[0].Name != "Norman" || cfg.Sites[0].Station != "KOUN" || cfg.Sites[0].UTCOffset != -4 {
		t.Errorf("Sites[0] = %+v", cfg.Sites[0])
	}
	if cfg.Forecast.Step() != 15*time.Minute {
		t.Errorf("Forecast.Step() = %v, expected 15m", cfg.Forecast.Step())
	}
	if cfg.Archive.SQLitePath != "/var/lib/solarmax/archive.db" {
		t.Errorf("Archive.SQLitePath = %q", cfg.Archive.SQLitePath)
	}
	if cfg.REST == nil || cfg.REST.HTTPPort != 8080 || cfg.REST.ListenAddr != "127.0.0.1" {
		t.Errorf("REST = %+v", cfg.REST)
	}
	if !cfg.Logging.Debug {
		t.Error("Logging.Debug = false, expected true")
	}
	if !provider.IsReadOnly() {
		t.Error("YAML provider should be read-only")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestYAMLProviderUnknownKey(t *testing.T) {
	provider := NewYAMLProvider(writeFile(t, "config.yaml", "sites: []\nstations: []\n"))
	if _, err := provider.LoadConfig(); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestTOMLProvider(t *testing.T) {
	provider, err := NewProvider(writeFile(t, "config.toml", tomlConfig), "toml")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	sites, err := provider.GetSites()
	if err != nil {
		t.Fatalf("GetSites: %v", err)
	}
	if len(sites) != 1 || sites[0].Name != "Norman" || sites[0].Latitude != 35.2455556 {
		t.Errorf("sites = %+v", sites)
	}

	cfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Archive.TimescaleDB != "postgres://solar@localhost/solar" {
		t.Errorf("Archive.TimescaleDB = %q", cfg.Archive.TimescaleDB)
	}
	if cfg.REST == nil || cfg.REST.HTTPPort != 9090 {
		t.Errorf("REST = %+v", cfg.REST)
	}
}

func TestTOMLProviderUnknownKey(t *testing.T) {
	provider := NewTOMLProvider(writeFile(t, "config.toml", "[[stations]]\nname = \"x\"\n"))
	if _, err := provider.LoadConfig(); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSQLiteProviderRoundTrip(t *testing.T) {
	provider, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "config.db"))
	if err != nil {
		t.Fatalf("NewSQLiteProvider: %v", err)
	}
	defer provider.Close()

	sc := solar.DefaultSkyCover()
	in := &ConfigData{
		Sites: []SiteData{
			{Name: "Norman", Station: "KOUN", Latitude: 35.2455556, Longitude: -97.4721389, UTCOffset: -4},
		},
		Forecast: ForecastData{
			Date:         "2021-04-13",
			StepMinutes:  5,
			SkyCoverage:  sc.Coverage[:],
			CloudWeights: sc.Weights[:],
		},
		Archive: ArchiveData{SQLitePath: "archive.db"},
		REST:    &RESTServerData{HTTPPort: 8081},
		Logging: LoggingData{Debug: true, File: "solarmax.log"},
	}

	if err := provider.SaveConfig(in); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	out, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if len(out.Sites) != 1 || out.Sites[0] != in.Sites[0] {
		t.Errorf("Sites = %+v, expected %+v", out.Sites, in.Sites)
	}
	if out.Forecast.Date != "2021-04-13" || out.Forecast.StepMinutes != 5 {
		t.Errorf("Forecast = %+v", out.Forecast)
	}
	got, err := out.Forecast.SkyCover()
	if err != nil {
		t.Fatalf("SkyCover: %v", err)
	}
	if got != sc {
		t.Errorf("SkyCover = %+v, expected %+v", got, sc)
	}
	if out.Archive.SQLitePath != "archive.db" {
		t.Errorf("Archive = %+v", out.Archive)
	}
	if out.REST == nil || out.REST.HTTPPort != 8081 || out.REST.ListenAddr != "" {
		t.Errorf("REST = %+v", out.REST)
	}
	if !out.Logging.Debug || out.Logging.File != "solarmax.log" {
		t.Errorf("Logging = %+v", out.Logging)
	}

	// Saving again replaces rather than appends
	in.Sites = append(in.Sites, SiteData{Name: "Pittsburgh", Latitude: 40.49, Longitude: -80.23, UTCOffset: -4})
	in.REST = nil
	if err := provider.SaveConfig(in); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	out, err = provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(out.Sites) != 2 {
		t.Errorf("len(Sites) = %d, expected 2", len(out.Sites))
	}
	if out.REST != nil {
		t.Errorf("REST = %+v, expected nil", out.REST)
	}
}

func TestNewProviderUnknownBackend(t *testing.T) {
	if _, err := NewProvider("config.json", "json"); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("error = %v, expected unsupported backend", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *ConfigData {
		return &ConfigData{
			Sites: []SiteData{{Name: "Norman", Latitude: 35.2, Longitude: -97.4, UTCOffset: -5}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*ConfigData)
		wantErr bool
	}{
		{"valid", func(c *ConfigData) {}, false},
		{"no sites", func(c *ConfigData) { c.Sites = nil }, true},
		{"unnamed site", func(c *ConfigData) { c.Sites[0].Name = "" }, true},
		{"duplicate site", func(c *ConfigData) { c.Sites = append(c.Sites, c.Sites[0]) }, true},
		{"bad latitude", func(c *ConfigData) { c.Sites[0].Latitude = 91 }, true},
		{"bad offset", func(c *ConfigData) { c.Sites[0].UTCOffset = 15 }, true},
		{"bad date", func(c *ConfigData) { c.Forecast.Date = "04/13/2021" }, true},
		{"bad step", func(c *ConfigData) { c.Forecast.StepMinutes = 7 }, true},
		{"short sky cover", func(c *ConfigData) { c.Forecast.SkyCoverage = []float64{50} }, true},
		{"bad port", func(c *ConfigData) { c.REST = &RESTServerData{HTTPPort: 70000} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if err := (&ConfigData{}).Validate(); !errors.Is(err, ErrNoSites) {
		t.Errorf("empty config: error = %v, expected ErrNoSites", err)
	}
}

func TestForecastDateFor(t *testing.T) {
	now := time.Date(2021, time.April, 14, 2, 30, 0, 0, time.UTC)

	d, err := ForecastData{}.DateFor(now, -4)
	if err != nil {
		t.Fatalf("DateFor: %v", err)
	}
	if expected := time.Date(2021, time.April, 13, 0, 0, 0, 0, time.UTC); !d.Equal(expected) {
		t.Errorf("DateFor(-4) = %v, expected %v", d, expected)
	}

	d, err = ForecastData{Date: "2021-06-21"}.DateFor(now, -4)
	if err != nil {
		t.Fatalf("DateFor: %v", err)
	}
	if expected := time.Date(2021, time.June, 21, 0, 0, 0, 0, time.UTC); !d.Equal(expected) {
		t.Errorf("DateFor = %v, expected %v", d, expected)
	}
}
