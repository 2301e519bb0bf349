package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/solarmax/internal/archive"
	"github.com/chrissnell/solarmax/internal/log"
	"github.com/chrissnell/solarmax/pkg/config"
)

// ArchiveManager holds our active archive backends and the channel that feeds them
type ArchiveManager struct {
	Store          *archive.Multi
	RunDistributor chan *archive.Run

	done chan struct{}
}

// NewArchiveManager creates an ArchiveManager populated with every configured archive
// backend and starts its run distributor. With no backends configured, runs are discarded.
func NewArchiveManager(ctx context.Context, wg *sync.WaitGroup, c *config.ConfigData) (*ArchiveManager, error) {
	a := &ArchiveManager{
		Store:          archive.NewMulti(),
		RunDistributor: make(chan *archive.Run, 20),
		done:           make(chan struct{}),
	}

	if c.Archive.SQLitePath != "" {
		if err := a.AddStore("sqlite", c.Archive.SQLitePath); err != nil {
			return nil, fmt.Errorf("could not add SQLite archive: %w", err)
		}
	}

	if c.Archive.TimescaleDB != "" {
		if err := a.AddStore("timescaledb", c.Archive.TimescaleDB); err != nil {
			a.Store.Close()
			return nil, fmt.Errorf("could not add TimescaleDB archive: %w", err)
		}
	}

	wg.Add(1)
	go a.startRunDistributor(ctx, wg)

	return a, nil
}

// AddStore opens an archive backend by name and adds it to the manager
func (a *ArchiveManager) AddStore(name, dsn string) error {
	var s archive.Store
	var err error

	switch name {
	case "sqlite":
		s, err = archive.NewSQLiteStore(dsn)
	case "timescaledb":
		s, err = archive.NewTimescaleStore(dsn)
	default:
		return fmt.Errorf("unknown archive backend: %s", name)
	}
	if err != nil {
		return err
	}

	a.Store.Add(s)
	return nil
}

// Enabled reports whether any archive backend is configured
func (a *ArchiveManager) Enabled() bool {
	return a.Store.Len() > 0
}

// Done is closed once the distributor has stored every run it accepted
func (a *ArchiveManager) Done() <-chan struct{} {
	return a.done
}

// startRunDistributor receives forecast runs and saves them to every archive backend.
// After ctx is cancelled it drains the runs still queued before returning.
func (a *ArchiveManager) startRunDistributor(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(a.done)

	saveCtx := context.WithoutCancel(ctx)
	save := func(r *archive.Run) {
		if !a.Enabled() {
			return
		}
		if err := a.Store.SaveForecast(saveCtx, r); err != nil {
			log.Errorf("error archiving forecast run %s for %s: %v", r.ID, r.Site, err)
			return
		}
		log.Debugf("archived forecast run %s for %s", r.ID, r.Site)
	}

	for {
		select {
		case r := <-a.RunDistributor:
			save(r)
		case <-ctx.Done():
			for {
				select {
				case r := <-a.RunDistributor:
					save(r)
				default:
					return
				}
			}
		}
	}
}
