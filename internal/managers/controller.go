package managers

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chrissnell/solarmax/internal/archive"
	"github.com/chrissnell/solarmax/internal/controllers/restserver"
	"github.com/chrissnell/solarmax/pkg/config"
)

// ControllerManager interface for the controller manager
type ControllerManager interface {
	StartControllers() error
	Len() int
}

// Controller is an interface that provides standard methods for various controller backends
type Controller interface {
	StartController() error
}

// NewControllerManager creates a new controller manager. The REST server is
// created only when the configuration has a rest section. store may be nil.
func NewControllerManager(ctx context.Context, wg *sync.WaitGroup, c *config.ConfigData, store archive.Store, logger *zap.SugaredLogger) (ControllerManager, error) {
	cm := &controllerManager{
		ctx:         ctx,
		wg:          wg,
		config:      c,
		logger:      logger,
		controllers: make([]Controller, 0),
	}

	if c.REST != nil {
		rs, err := restserver.NewController(ctx, wg, c, store, logger)
		if err != nil {
			return nil, fmt.Errorf("error creating REST controller: %w", err)
		}
		cm.controllers = append(cm.controllers, rs)
	}

	return cm, nil
}

type controllerManager struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	config      *config.ConfigData
	logger      *zap.SugaredLogger
	controllers []Controller
}

func (c *controllerManager) StartControllers() error {
	for _, controller := range c.controllers {
		if err := controller.StartController(); err != nil {
			return fmt.Errorf("error starting controller: %w", err)
		}
	}

	c.logger.Infof("started %d controllers", len(c.controllers))
	return nil
}

func (c *controllerManager) Len() int {
	return len(c.controllers)
}
