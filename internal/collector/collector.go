// Package collector bundles the configured weather sources, runs
// their update cycles and merges their records into the single
// DisplayData the front ends consume.
package collector

import (
	"context"
	"log/slog"

	"github.com/tkrause/wetterdeck/internal/models"
	"github.com/tkrause/wetterdeck/internal/sources"
)

// Collector owns a fixed, ordered set of sources. The order is the
// merge order: on equally fresh data the later source wins.
type Collector struct {
	sources []sources.Source
	logger  *slog.Logger
	updated bool
}

// New creates a Collector over the given sources.
func New(srcs []sources.Source, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		sources: srcs,
		logger:  logger.With("component", "collector"),
	}
}

// Update refreshes every source, regardless of earlier failures, and
// reports whether all of them succeeded. A failing source is logged
// and keeps serving its previous data.
func (c *Collector) Update(ctx context.Context) bool {
	ok := true
	for _, src := range c.sources {
		if err := src.Update(ctx); err != nil {
			c.logger.Warn("update failed", "source", src.Name(), "error", err)
			ok = false
		}
	}
	c.updated = ok
	return ok
}

// Updated reports whether every source succeeded in the last update
// cycle and no retrieval has consumed that cycle yet.
func (c *Collector) Updated() bool { return c.updated }

// GetDisplayData merges the records of all sources in order into one
// DisplayData. When no update cycle has completed since the last
// retrieval it runs one first. Every retrieval consumes the cycle, so
// the next call fetches fresh data again.
func (c *Collector) GetDisplayData(ctx context.Context) models.DisplayData {
	if !c.updated {
		c.Update(ctx)
	}
	c.updated = false

	result := models.NewDisplayData()
	for i, src := range c.sources {
		if i == 0 {
			result = src.DisplayData()
			continue
		}
		result = combineDisplayData(result, src.DisplayData())
	}
	return result
}
