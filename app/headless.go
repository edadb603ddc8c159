package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/soocke/debuff-tracker-go/domain/monitor"
)

// statsInterval is how often headless mode reports capture statistics.
const statsInterval = time.Minute

// RunHeadless starts every monitor and logs transitions until ctx ends, then
// shuts down within grace.
func RunHeadless(ctx context.Context, c *Container, grace time.Duration) error {
	if err := c.Tracker.Start(); err != nil && c.Logger != nil {
		c.Logger.Warn("some categories failed to start", "error", err)
	}
	LogTransitions(ctx, c.Tracker.Events(), c.Logger, func() {
		if c.Source != nil {
			c.Source.LogStats()
		}
	})
	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return c.Tracker.Shutdown(sctx)
}

// LogTransitions logs each event from events at Info until ctx ends or the
// stream closes. onStats runs every statsInterval.
func LogTransitions(ctx context.Context, events <-chan monitor.Event, logger *slog.Logger, onStats func()) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if logger != nil {
				logger.Info("transition", "category", e.Category, "subject", e.Subject(), "anchor", e.Anchor, "detected", e.Detected, "at", e.At)
			}
		case <-ticker.C:
			if onStats != nil {
				onStats()
			}
		}
	}
}
