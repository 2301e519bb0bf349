package managers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/solarmax/internal/archive"
	"github.com/chrissnell/solarmax/pkg/config"
	"github.com/chrissnell/solarmax/pkg/solar"
)

// SiteForecast is the result of forecasting one site
type SiteForecast struct {
	Site     config.SiteData
	Profile  *solar.DailyProfile
	Daylight solar.Daylight
	Forecast *solar.SolarForecast
	Run      *archive.Run
}

// ForecastManager computes the daily profile and forecast for every configured site
type ForecastManager struct {
	config      *config.ConfigData
	distributor chan<- *archive.Run
	logger      *zap.SugaredLogger

	// now is swapped out by tests
	now func() time.Time
}

// NewForecastManager creates a ForecastManager. Completed runs are sent to
// distributor, which may be nil.
func NewForecastManager(c *config.ConfigData, distributor chan<- *archive.Run, logger *zap.SugaredLogger) *ForecastManager {
	return &ForecastManager{
		config:      c,
		distributor: distributor,
		logger:      logger,
		now:         time.Now,
	}
}

// RunForecasts forecasts every site concurrently and returns the results in
// configuration order. The first failure cancels the remaining sites.
func (f *ForecastManager) RunForecasts(ctx context.Context) ([]SiteForecast, error) {
	cover, err := f.config.Forecast.SkyCover()
	if err != nil {
		return nil, err
	}

	results := make([]SiteForecast, len(f.config.Sites))
	g, gctx := errgroup.WithContext(ctx)

	for i, site := range f.config.Sites {
		i, site := i, site
		g.Go(func() error {
			sf, err := f.forecastSite(gctx, site, cover)
			if err != nil {
				return fmt.Errorf("site %s: %w", site.Name, err)
			}
			results[i] = sf
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (f *ForecastManager) forecastSite(ctx context.Context, site config.SiteData, cover solar.SkyCover) (SiteForecast, error) {
	now := f.now()

	date, err := f.config.Forecast.DateFor(now, site.UTCOffset)
	if err != nil {
		return SiteForecast{}, err
	}

	f.logger.Debugf("forecasting %s for %s", site.Name, date.Format(config.DateLayout))

	profile, err := solar.BuildDailyProfile(site.Point(), date, site.UTCOffset, f.config.Forecast.Step())
	if err != nil {
		return SiteForecast{}, err
	}

	forecast, err := solar.Forecast(profile, cover)
	if err != nil {
		return SiteForecast{}, err
	}

	sf := SiteForecast{
		Site:     site,
		Profile:  profile,
		Daylight: solar.CalculateDaylight(site.Point(), date, site.UTCOffset),
		Forecast: forecast,
		Run:      archive.NewRun(site.Name, forecast, now),
	}

	if f.distributor != nil {
		select {
		case f.distributor <- sf.Run:
		case <-ctx.Done():
			return SiteForecast{}, ctx.Err()
		}
	}

	f.logSummary(sf)
	return sf, nil
}

func (f *ForecastManager) logSummary(sf SiteForecast) {
	p := sf.Profile
	f.logger.Infow("site forecast",
		"site", sf.Site.Name,
		"date", p.Date.Format(config.DateLayout),
		"peak_elevation_deg", p.PeakElevationDeg,
		"peak_time", p.PeakLocalTime.Format("15:04"),
		"solar_noon", p.SolarNoon.Format("15:04"),
		"sunrise", solar.FormatClock(sf.Daylight.Sunrise),
		"sunset", solar.FormatClock(sf.Daylight.Sunset),
		"clear_sky_wh", sf.Forecast.TotalClearSkyWh,
		"forecast_wh", sf.Forecast.TotalForecastWh,
		"run_id", sf.Run.ID,
	)
}
