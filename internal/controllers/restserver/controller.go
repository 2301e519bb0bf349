// Package restserver serves solar positions, profiles and forecasts over HTTP.
package restserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/chrissnell/solarmax/internal/archive"
	"github.com/chrissnell/solarmax/pkg/config"
)

// ErrUnknownSite is returned when a request names a site that is not configured
var ErrUnknownSite = errors.New("unknown site")

const (
	defaultListenAddr = "0.0.0.0"
	defaultHTTPPort   = 8080
)

// Controller represents the REST server controller
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	cfg      *config.ConfigData
	store    archive.Store
	Server   http.Server
	logger   *zap.SugaredLogger
	handlers *Handlers

	// now is swapped out by tests
	now func() time.Time
}

// NewController creates a new REST server controller. store may be nil, in
// which case the archive endpoint reports that no archive is configured.
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, store archive.Store, logger *zap.SugaredLogger) (*Controller, error) {
	if cfg == nil || len(cfg.Sites) == 0 {
		return nil, config.ErrNoSites
	}

	ctrl := &Controller{
		ctx:    ctx,
		wg:     wg,
		cfg:    cfg,
		store:  store,
		logger: logger,
		now:    time.Now,
	}

	rc := config.RESTServerData{}
	if cfg.REST != nil {
		rc = *cfg.REST
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Infof("rest.listen_addr not provided; defaulting to %s (all interfaces)", defaultListenAddr)
		rc.ListenAddr = defaultListenAddr
	}

	if rc.HTTPPort == 0 {
		logger.Infof("rest.http_port not provided; defaulting to %d", defaultHTTPPort)
		rc.HTTPPort = defaultHTTPPort
	}

	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.HTTPPort)
	ctrl.Server.Handler = ctrl.setupRouter()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server. It shuts down when the controller's
// context is cancelled.
func (c *Controller) StartController() error {
	c.logger.Infof("starting REST server on %s", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if err := c.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("shutting down the REST server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Server.Shutdown(shutdownCtx); err != nil {
			c.logger.Errorf("REST server shutdown: %v", err)
		}
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(c.loggingMiddleware)

	router.HandleFunc("/sites", c.handlers.GetSites).Methods(http.MethodGet)
	router.HandleFunc("/position", c.handlers.GetPointPosition).Methods(http.MethodGet)
	router.HandleFunc("/position/{site}", c.handlers.GetSitePosition).Methods(http.MethodGet)
	router.HandleFunc("/profile/{site}/{date}", c.handlers.GetProfile).Methods(http.MethodGet)
	router.HandleFunc("/daylight/{site}/{date}", c.handlers.GetDaylight).Methods(http.MethodGet)
	router.HandleFunc("/forecast/{site}/{date}", c.handlers.GetForecast).Methods(http.MethodGet)
	router.HandleFunc("/runs/{site}", c.handlers.GetRuns).Methods(http.MethodGet)

	return router
}

// site looks up a configured site by name
func (c *Controller) site(name string) (config.SiteData, error) {
	s, ok := c.cfg.Site(name)
	if !ok {
		return config.SiteData{}, fmt.Errorf("%w: %s", ErrUnknownSite, name)
	}
	return s, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs every request at debug level and server errors at error level
func (c *Controller) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, req)

		fields := []interface{}{
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"remote", req.RemoteAddr,
		}
		if rec.status >= http.StatusInternalServerError {
			c.logger.Errorw("request failed", fields...)
		} else {
			c.logger.Debugw("request", fields...)
		}
	})
}
