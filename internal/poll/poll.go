// Package poll drives the periodic refresh loop of the non-interactive
// front ends: collect the current weather record, hand it to a
// renderer, repeat on a fixed interval until canceled.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/tkrause/wetterdeck/internal/models"
)

// defaultInterval is used when no usable refresh interval is
// configured.
const defaultInterval = 10 * time.Minute

// DataProvider hands out the current combined weather record.
type DataProvider interface {
	GetDisplayData(ctx context.Context) models.DisplayData
}

// ShowFunc renders one weather record.
type ShowFunc func(data models.DisplayData) error

// Controller couples a data provider to a renderer. Refresh cycles
// are serialized, so a slow render never overlaps the next one.
type Controller struct {
	mu       sync.Mutex
	provider DataProvider
	show     ShowFunc
	interval time.Duration
	logger   *slog.Logger
}

// New returns a Controller refreshing every interval.
func New(provider DataProvider, show ShowFunc, interval time.Duration, logger *slog.Logger) *Controller {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		provider: provider,
		show:     show,
		interval: interval,
		logger:   logger.With("component", "poll"),
	}
}

// Refresh runs one collect-and-show cycle. Safe for concurrent use.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := c.provider.GetDisplayData(ctx)
	return c.show(data)
}

// Run shows the current record immediately, then keeps refreshing on
// the configured interval until ctx is canceled. Failed cycles are
// logged and the loop keeps going.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		c.logger.Error("refresh failed", "error", err)
	}

	// The first cycle already ran above, the scheduler only covers
	// the follow-ups.
	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Every(c.interval).WaitForSchedule().Do(func() {
		if err := c.Refresh(ctx); err != nil {
			c.logger.Error("refresh failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling refresh: %w", err)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	c.logger.Info("refresh loop started", "interval", c.interval)
	<-ctx.Done()
	c.logger.Info("refresh loop stopped")
	return nil
}
