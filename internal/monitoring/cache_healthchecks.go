package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const HEALTHCHECK_TIMER = 15 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// MonitorCacheHealth pings the cache every interval and stores the outcome
// in healthy until ctx is cancelled. Transitions are logged once.
func MonitorCacheHealth(ctx context.Context, cache Pinger, healthy *atomic.Bool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, interval/2)
			err := cache.Ping(pingCtx)
			cancel()

			isHealthy := err == nil
			was := healthy.Swap(isHealthy)
			switch {
			case was && !isHealthy:
				slog.Warn("[HealthCheck] Prediction cache is unhealthy, bypassing it",
					slog.String("error", err.Error()))
			case !was && isHealthy:
				slog.Info("[HealthCheck] Prediction cache recovered")
			}
		}
	}
}
