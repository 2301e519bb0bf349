package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/chrissnell/solarmax/internal/archive"
	"github.com/chrissnell/solarmax/internal/log"
	"github.com/chrissnell/solarmax/internal/managers"
	"github.com/chrissnell/solarmax/pkg/config"
)

// Options change how the application runs
type Options struct {
	// Once returns after the forecasts are archived instead of serving
	Once bool
}

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
	opts           Options

	// Results holds the forecasts from the last run
	Results []managers.SiteForecast
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger, opts Options) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
		opts:           opts,
	}
}

// Run forecasts every site, archives the results and, unless running once,
// serves the REST API until a shutdown signal arrives or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	am, err := managers.NewArchiveManager(ctx, &wg, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := am.Store.Close(); err != nil {
			log.Errorf("error closing forecast archive: %v", err)
		}
	}()

	fm := managers.NewForecastManager(cfg, am.RunDistributor, a.logger)
	a.Results, err = fm.RunForecasts(ctx)
	if err != nil {
		cancel()
		wg.Wait()
		return fmt.Errorf("forecast failed: %w", err)
	}

	if a.opts.Once {
		cancel()
		wg.Wait()
		log.Infof("forecast complete for %d sites", len(a.Results))
		return nil
	}

	var store archive.Store
	if am.Enabled() {
		store = am.Store
	}

	cm, err := managers.NewControllerManager(ctx, &wg, cfg, store, a.logger)
	if err != nil {
		cancel()
		wg.Wait()
		return err
	}
	if err := cm.StartControllers(); err != nil {
		cancel()
		wg.Wait()
		return err
	}

	log.Info("application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
