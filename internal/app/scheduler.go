package app

import (
	"context"
	"time"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/interfaces"
)

// startReloadScheduler reloads the dashboard on every tick until ctx ends.
// tick overrides the interval ticker in tests.
func startReloadScheduler(ctx context.Context, p interfaces.PipelineService, logger *common.Logger, interval time.Duration, tick <-chan time.Time) {
	if tick == nil {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Reload scheduler: stopped")
			return
		case <-tick:
			reloadDashboard(ctx, p, logger)
		}
	}
}

// reloadDashboard runs one pipeline load. A failed load keeps serving the
// previous dashboard.
func reloadDashboard(ctx context.Context, p interfaces.PipelineService, logger *common.Logger) {
	start := time.Now()
	if _, err := p.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("Reload scheduler: load failed, keeping previous dashboard")
		return
	}
	logger.Info().
		Dur("elapsed", time.Since(start)).
		Msg("Reload scheduler: complete")
}
