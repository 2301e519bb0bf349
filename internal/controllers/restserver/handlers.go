package restserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/chrissnell/solarmax/internal/archive"
	"github.com/chrissnell/solarmax/pkg/config"
	"github.com/chrissnell/solarmax/pkg/responseformat"
	"github.com/chrissnell/solarmax/pkg/solar"
)

// LocalTimeLayout is the wall-clock format accepted by the time query parameter
const LocalTimeLayout = "2006-01-02T15:04:05"

const defaultRunLimit = 10

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// GetSites lists the configured sites
func (h *Handlers) GetSites(w http.ResponseWriter, req *http.Request) {
	sites := make([]SiteResponse, 0, len(h.controller.cfg.Sites))
	for _, s := range h.controller.cfg.Sites {
		sites = append(sites, SiteResponse{
			Name:      s.Name,
			Station:   s.Station,
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			UTCOffset: s.UTCOffset,
		})
	}
	h.respond(w, req, sites)
}

// GetSitePosition returns the sun's position at a configured site
func (h *Handlers) GetSitePosition(w http.ResponseWriter, req *http.Request) {
	site, err := h.controller.site(mux.Vars(req)["site"])
	if err != nil {
		h.fail(w, req, err)
		return
	}

	lt, err := h.localTime(req, site.UTCOffset)
	if err != nil {
		h.badRequest(w, req, err)
		return
	}

	resp := position(site.Point(), lt, site.UTCOffset)
	resp.Site = site.Name
	h.respond(w, req, resp)
}

// GetPointPosition returns the sun's position for an arbitrary point given by
// the lat, lon and offset query parameters
func (h *Handlers) GetPointPosition(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		h.badRequest(w, req, fmt.Errorf("invalid lat %q", q.Get("lat")))
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		h.badRequest(w, req, fmt.Errorf("invalid lon %q", q.Get("lon")))
		return
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < -12 || offset > 14 {
			h.badRequest(w, req, fmt.Errorf("invalid offset %q", v))
			return
		}
	}

	point := solar.GeoPoint{Latitude: lat, Longitude: lon}
	if err := point.Validate(); err != nil {
		h.badRequest(w, req, err)
		return
	}

	lt, err := h.localTime(req, offset)
	if err != nil {
		h.badRequest(w, req, err)
		return
	}

	h.respond(w, req, position(point, lt, offset))
}

// GetProfile returns the daily profile for a site. Only the hourly samples
// are included unless full=1.
func (h *Handlers) GetProfile(w http.ResponseWriter, req *http.Request) {
	site, date, ok := h.siteAndDate(w, req)
	if !ok {
		return
	}

	step := h.controller.cfg.Forecast.Step()
	if v := req.URL.Query().Get("step"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m <= 0 {
			h.badRequest(w, req, fmt.Errorf("%w: step %q", solar.ErrInvalidStep, v))
			return
		}
		step = time.Duration(m) * time.Minute
	}

	p, err := solar.BuildDailyProfile(site.Point(), date, site.UTCOffset, step)
	if err != nil {
		h.fail(w, req, err)
		return
	}

	summary := p.Summary()
	if req.URL.Query().Get("full") == "1" {
		summary.Samples = p.Samples
	} else {
		summary.Samples = p.Hourly()
	}

	h.respond(w, req, ProfileResponse{Site: site.Name, Profile: summary})
}

// GetDaylight returns sunrise, solar noon and sunset for a site
func (h *Handlers) GetDaylight(w http.ResponseWriter, req *http.Request) {
	site, date, ok := h.siteAndDate(w, req)
	if !ok {
		return
	}

	d := solar.CalculateDaylight(site.Point(), date, site.UTCOffset)
	h.respond(w, req, DaylightResponse{
		Site:          site.Name,
		Date:          date.Format(config.DateLayout),
		Daylight:      d,
		Sunrise:       solar.FormatClock(d.Sunrise),
		SolarNoon:     solar.FormatClock(d.SolarNoon),
		Sunset:        solar.FormatClock(d.Sunset),
		LengthMinutes: d.LengthMinutes(),
	})
}

// GetForecast returns the cloud-weighted forecast for a site using the
// configured sky cover
func (h *Handlers) GetForecast(w http.ResponseWriter, req *http.Request) {
	site, date, ok := h.siteAndDate(w, req)
	if !ok {
		return
	}

	cover, err := h.controller.cfg.Forecast.SkyCover()
	if err != nil {
		h.fail(w, req, err)
		return
	}

	// The forecast only reads hourly positions, so an hourly profile is enough
	p, err := solar.BuildDailyProfile(site.Point(), date, site.UTCOffset, time.Hour)
	if err != nil {
		h.fail(w, req, err)
		return
	}

	f, err := solar.Forecast(p, cover)
	if err != nil {
		h.fail(w, req, err)
		return
	}

	h.respond(w, req, ForecastResponse{Site: site.Name, Forecast: f})
}

// GetRuns lists archived forecast runs for a site
func (h *Handlers) GetRuns(w http.ResponseWriter, req *http.Request) {
	site, err := h.controller.site(mux.Vars(req)["site"])
	if err != nil {
		h.fail(w, req, err)
		return
	}

	if h.controller.store == nil {
		h.formatter.WriteError(w, req, http.StatusNotFound, "no forecast archive configured")
		return
	}

	limit := defaultRunLimit
	if v := req.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit <= 0 {
			h.badRequest(w, req, fmt.Errorf("invalid limit %q", v))
			return
		}
	}

	runs, err := h.controller.store.ListRuns(req.Context(), site.Name, limit)
	if err != nil {
		h.fail(w, req, err)
		return
	}
	if runs == nil {
		runs = []archive.Run{}
	}

	h.respond(w, req, RunsResponse{
		Site:        site.Name,
		GeneratedAt: h.controller.now().UTC(),
		Runs:        runs,
	})
}

func position(point solar.GeoPoint, lt time.Time, offset int) PositionResponse {
	pos := solar.ComputePosition(point, solar.LocalInstant{Time: lt, UTCOffsetHours: offset})
	return PositionResponse{
		Point:       point,
		LocalTime:   lt.Format(LocalTimeLayout),
		UTCOffset:   offset,
		Position:    pos,
		ClearSkyWm2: solar.EstimateClearSkyIrradiance(pos.ElevationDeg),
	}
}

// localTime parses the time query parameter as a wall-clock reading. Without
// one, it is the current time on a clock with the given offset.
func (h *Handlers) localTime(req *http.Request, offset int) (time.Time, error) {
	v := req.URL.Query().Get("time")
	if v == "" {
		return h.controller.now().UTC().Add(time.Duration(offset) * time.Hour), nil
	}
	t, err := time.Parse(LocalTimeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, expected %s", v, LocalTimeLayout)
	}
	return t, nil
}

func (h *Handlers) siteAndDate(w http.ResponseWriter, req *http.Request) (config.SiteData, time.Time, bool) {
	vars := mux.Vars(req)

	site, err := h.controller.site(vars["site"])
	if err != nil {
		h.fail(w, req, err)
		return config.SiteData{}, time.Time{}, false
	}

	date, err := time.Parse(config.DateLayout, vars["date"])
	if err != nil {
		h.badRequest(w, req, fmt.Errorf("invalid date %q, expected %s", vars["date"], config.DateLayout))
		return config.SiteData{}, time.Time{}, false
	}

	return site, date, true
}

func (h *Handlers) respond(w http.ResponseWriter, req *http.Request, data any) {
	if err := h.formatter.WriteResponse(w, req, data, nil); err != nil {
		h.controller.logger.Errorf("error encoding response for %s: %v", req.URL.Path, err)
	}
}

func (h *Handlers) badRequest(w http.ResponseWriter, req *http.Request, err error) {
	h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
}

// fail maps err to a status code. Unexpected errors are logged.
func (h *Handlers) fail(w http.ResponseWriter, req *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnknownSite):
		h.formatter.WriteError(w, req, http.StatusNotFound, err.Error())
	case errors.Is(err, solar.ErrInvalidStep), errors.Is(err, solar.ErrInvalidSkyCover):
		h.badRequest(w, req, err)
	default:
		h.controller.logger.Errorf("%s: %v", req.URL.Path, err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "internal server error")
	}
}
