package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/encore/internal/logger"
)

// SettingsLoader re-reads the settings document from its backend.
type SettingsLoader interface {
	Load(ctx context.Context) error
}

// Refresher rebuilds the media catalog and returns the number of records.
type Refresher interface {
	Refresh(ctx context.Context) int
}

// CatalogReloader periodically re-reads the settings document and rebuilds
// the media catalog. It also picks up edits made to the backend outside this
// process (a hand-edited settings file, a restored redis key).
type CatalogReloader struct {
	settings      SettingsLoader
	catalog       Refresher
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	done          chan struct{}
	manualTrigger chan struct{}
}

// NewCatalogReloader creates a reloader. interval <= 0 disables the ticker;
// manual triggers still work.
func NewCatalogReloader(
	settings SettingsLoader,
	catalog Refresher,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *CatalogReloader {
	return &CatalogReloader{
		settings:      settings,
		catalog:       catalog,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start runs an initial reload, then reloads on every tick or trigger.
func (cr *CatalogReloader) Start(ctx context.Context) error {
	if err := cr.Reload(ctx); err != nil {
		close(cr.done)
		return fmt.Errorf("initial reload failed: %w", err)
	}

	go func() {
		defer close(cr.done)

		var tick <-chan time.Time
		if cr.interval > 0 {
			ticker := time.NewTicker(cr.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-tick:
				cr.reloadLogged(ctx)
			case <-cr.manualTrigger:
				cr.logger.Info("manual catalog reload triggered")
				cr.reloadLogged(ctx)
			case <-cr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader and waits for the loop to exit.
func (cr *CatalogReloader) Stop() {
	select {
	case <-cr.stopCh:
	default:
		close(cr.stopCh)
	}
	<-cr.done
}

// Reload re-reads the settings and rebuilds the catalog.
func (cr *CatalogReloader) Reload(ctx context.Context) error {
	start := time.Now()
	if err := cr.settings.Load(ctx); err != nil {
		return fmt.Errorf("failed to reload settings: %w", err)
	}
	n := cr.catalog.Refresh(ctx)
	cr.logger.Info("catalog reloaded",
		logger.Int("records", n),
		logger.Duration("took", time.Since(start)))
	return nil
}

func (cr *CatalogReloader) reloadLogged(ctx context.Context) {
	if err := cr.Reload(ctx); err != nil {
		cr.logger.Error("failed to reload catalog", logger.Error(err))
	}
}
