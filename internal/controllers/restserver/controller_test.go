package restserver

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chrissnell/solarmax/internal/archive"
	"github.com/chrissnell/solarmax/pkg/config"
	"github.com/chrissnell/solarmax/pkg/solar"
)

func testConfig() *config.ConfigData {
	return &config.ConfigData{
		Sites: []config.SiteData{
			{Name: "Norman", Station: "KOUN", Latitude: 35.2455556, Longitude: -97.4721389, UTCOffset: -4},
			{Name: "Quito", Latitude: 0, Longitude: 0, UTCOffset: 0},
		},
	}
}

func newTestController(t *testing.T, store archive.Store) *Controller {
	t.Helper()
	ctrl, err := NewController(context.Background(), &sync.WaitGroup{}, testConfig(), store, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	ctrl.now = func() time.Time { return time.Date(2021, time.April, 13, 16, 0, 0, 0, time.UTC) }
	return ctrl
}

func get(t *testing.T, ctrl *Controller, target string, v any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ctrl.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if v != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
			t.Fatalf("decoding %s: %v", target, err)
		}
	}
	return rec
}

func TestNewControllerDefaults(t *testing.T) {
	ctrl := newTestController(t, nil)
	if ctrl.Server.Addr != "0.0.0.0:8080" {
		t.Errorf("Addr = %q, expected 0.0.0.0:8080", ctrl.Server.Addr)
	}

	cfg := testConfig()
	cfg.REST = &config.RESTServerData{ListenAddr: "127.0.0.1", HTTPPort: 9090}
	ctrl, err := NewController(context.Background(), &sync.WaitGroup{}, cfg, nil, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if ctrl.Server.Addr != "127.0.0.1:9090" {
		t.Errorf("Addr = %q, expected 127.0.0.1:9090", ctrl.Server.Addr)
	}

	if _, err := NewController(context.Background(), &sync.WaitGroup{}, &config.ConfigData{}, nil, zap.NewNop().Sugar()); err == nil {
		t.Error("expected error with no sites")
	}
}

func TestGetSites(t *testing.T) {
	var sites []SiteResponse
	rec := get(t, newTestController(t, nil), "/sites", &sites)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", rec.Code)
	}
	if len(sites) != 2 || sites[0].Name != "Norman" || sites[0].UTCOffset != -4 {
		t.Errorf("sites = %+v", sites)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestGetSitePosition(t *testing.T) {
	ctrl := newTestController(t, nil)

	var resp PositionResponse
	rec := get(t, ctrl, "/position/Norman?time=2021-04-13T12:00:00", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if resp.Site != "Norman" || resp.LocalTime != "2021-04-13T12:00:00" {
		t.Errorf("response = %+v", resp)
	}
	if math.Abs(resp.Position.ElevationDeg-46.5599) > 1e-3 {
		t.Errorf("elevation = %v, expected 46.5599", resp.Position.ElevationDeg)
	}
	if math.Abs(resp.Position.TimeCorrectionMin-(-150.6584)) > 1e-3 {
		t.Errorf("time correction = %v, expected -150.6584", resp.Position.TimeCorrectionMin)
	}
	if expected := solar.EstimateClearSkyIrradiance(resp.Position.ElevationDeg); math.Abs(resp.ClearSkyWm2-expected) > 1e-9 {
		t.Errorf("clear sky = %v, expected %v", resp.ClearSkyWm2, expected)
	}

	// Without a time the site's current wall clock is used: 16:00 UTC is 12:00 at -4
	var now PositionResponse
	get(t, ctrl, "/position/Norman", &now)
	if now.LocalTime != "2021-04-13T12:00:00" {
		t.Errorf("default local time = %q, expected 2021-04-13T12:00:00", now.LocalTime)
	}
}

func TestGetPointPosition(t *testing.T) {
	ctrl := newTestController(t, nil)

	var resp PositionResponse
	rec := get(t, ctrl, "/position?lat=0&lon=0&offset=0&time=2021-03-22T12:00:00", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if resp.Position.ElevationDeg < 80 {
		t.Errorf("equator equinox noon elevation = %v, expected near zenith", resp.Position.ElevationDeg)
	}
	if resp.Site != "" {
		t.Errorf("site = %q, expected none", resp.Site)
	}
}

func TestBadRequests(t *testing.T) {
	ctrl := newTestController(t, nil)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"unknown site", "/position/Atlantis", http.StatusNotFound},
		{"bad time", "/position/Norman?time=noon", http.StatusBadRequest},
		{"missing lat", "/position?lon=0", http.StatusBadRequest},
		{"latitude out of range", "/position?lat=91&lon=0", http.StatusBadRequest},
		{"bad offset", "/position?lat=0&lon=0&offset=20", http.StatusBadRequest},
		{"bad date", "/profile/Norman/04-13-2021", http.StatusBadRequest},
		{"step does not divide day", "/profile/Norman/2021-04-13?step=7", http.StatusBadRequest},
		{"negative step", "/profile/Norman/2021-04-13?step=-5", http.StatusBadRequest},
		{"unknown site profile", "/profile/Atlantis/2021-04-13", http.StatusNotFound},
		{"unknown site daylight", "/daylight/Atlantis/2021-04-13", http.StatusNotFound},
		{"unknown site forecast", "/forecast/Atlantis/2021-04-13", http.StatusNotFound},
		{"no archive", "/runs/Norman", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, ctrl, tt.target, nil)
			if rec.Code != tt.status {
				t.Errorf("status = %d, expected %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			var e struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil || e.Error == "" {
				t.Errorf("expected an error body, got %q", rec.Body.String())
			}
		})
	}
}

func TestGetProfile(t *testing.T) {
	ctrl := newTestController(t, nil)

	var resp ProfileResponse
	rec := get(t, ctrl, "/profile/Norman/2021-04-13?step=60", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	p := resp.Profile
	if len(p.Samples) != 24 {
		t.Fatalf("len(Samples) = %d, expected 24", len(p.Samples))
	}
	if p.PeakIndex != 15 || math.Abs(p.PeakElevationDeg-62.5904) > 1e-3 {
		t.Errorf("peak = %d at %v, expected 15 at 62.5904", p.PeakIndex, p.PeakElevationDeg)
	}

	var full ProfileResponse
	get(t, ctrl, "/profile/Norman/2021-04-13?step=15&full=1", &full)
	if len(full.Profile.Samples) != 96 {
		t.Errorf("full profile has %d samples, expected 96", len(full.Profile.Samples))
	}

	var hourly ProfileResponse
	get(t, ctrl, "/profile/Norman/2021-04-13?step=15", &hourly)
	if len(hourly.Profile.Samples) != 24 {
		t.Errorf("hourly profile has %d samples, expected 24", len(hourly.Profile.Samples))
	}
}

func TestGetDaylight(t *testing.T) {
	var resp DaylightResponse
	rec := get(t, newTestController(t, nil), "/daylight/Norman/2021-04-13", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if resp.Sunrise != "8:06 AM" || resp.SolarNoon != "2:31 PM" || resp.Sunset != "8:55 PM" {
		t.Errorf("daylight = %s / %s / %s", resp.Sunrise, resp.SolarNoon, resp.Sunset)
	}
	if resp.LengthMinutes != 1255-486 {
		t.Errorf("length = %d, expected %d", resp.LengthMinutes, 1255-486)
	}
}

func TestGetForecast(t *testing.T) {
	var resp ForecastResponse
	rec := get(t, newTestController(t, nil), "/forecast/Norman/2021-04-13", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	f := resp.Forecast
	if f == nil || len(f.Hours) != solar.HoursPerDay {
		t.Fatalf("forecast = %+v", f)
	}
	if f.TotalForecastWh <= 0 || f.TotalForecastWh >= f.TotalClearSkyWh {
		t.Errorf("totals forecast %v clear %v, expected 0 < forecast < clear", f.TotalForecastWh, f.TotalClearSkyWh)
	}
}

func TestGetRuns(t *testing.T) {
	store, err := archive.NewSQLiteStore(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	ctrl := newTestController(t, store)

	var empty RunsResponse
	if rec := get(t, ctrl, "/runs/Norman", &empty); rec.Code != http.StatusOK || empty.Runs == nil || len(empty.Runs) != 0 {
		t.Fatalf("empty archive: status %d, runs %v", rec.Code, empty.Runs)
	}

	site := testConfig().Sites[0]
	p, err := solar.BuildDailyProfile(site.Point(), time.Date(2021, time.April, 13, 0, 0, 0, 0, time.UTC), site.UTCOffset, time.Hour)
	if err != nil {
		t.Fatalf("BuildDailyProfile: %v", err)
	}
	f, err := solar.Forecast(p, solar.DefaultSkyCover())
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.SaveForecast(context.Background(), archive.NewRun(site.Name, f, ctrl.now().Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("SaveForecast: %v", err)
		}
	}

	var resp RunsResponse
	rec := get(t, ctrl, "/runs/Norman?limit=2", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(resp.Runs) != 2 || len(resp.Runs[0].Hours) != solar.HoursPerDay {
		t.Errorf("got %d runs", len(resp.Runs))
	}

	if rec := get(t, ctrl, "/runs/Norman?limit=zero", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, expected 400", rec.Code)
	}
}

func TestMsgPackFormat(t *testing.T) {
	rec := get(t, newTestController(t, nil), "/sites?format=msgpack", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-msgpack" {
		t.Errorf("Content-Type = %q, expected application/x-msgpack", ct)
	}
}

func TestStartControllerShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.REST = &config.RESTServerData{ListenAddr: "127.0.0.1", HTTPPort: 0}

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	ctrl, err := NewController(ctx, wg, cfg, nil, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	// Any free port
	ctrl.Server.Addr = "127.0.0.1:0"

	if err := ctrl.StartController(); err != nil {
		t.Fatalf("StartController: %v", err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("REST server did not shut down")
	}
}
