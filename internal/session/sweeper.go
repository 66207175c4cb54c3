package session

import (
	"context"
	"log/slog"
	"time"
)

// Sweepable is the storage the sweeper prunes.
type Sweepable interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
	DeleteIdleDevices(ctx context.Context, idle time.Duration) (int64, error)
}

// IdleEvicter drops in-memory per-device state unused for longer than idle.
type IdleEvicter interface {
	EvictIdle(idle time.Duration) int
}

// StartSweeper runs a background goroutine that periodically deletes expired
// sessions and devices idle longer than deviceRetention. A zero retention
// keeps devices forever. evicters are pruned with the same retention.
// The returned channel closes when the goroutine exits.
func StartSweeper(ctx context.Context, repo Sweepable, interval, deviceRetention time.Duration, evicters ...IdleEvicter) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "device_retention", deviceRetention)

		for {
			select {
			case <-ticker.C:
				Sweep(ctx, repo, deviceRetention, evicters...)
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}

// Sweep performs one cleanup pass.
func Sweep(ctx context.Context, repo Sweepable, deviceRetention time.Duration, evicters ...IdleEvicter) {
	if deleted, err := repo.CleanupExpiredSessions(ctx); err != nil {
		slog.Error("Session sweeper failed to cleanup expired sessions", "error", err)
	} else if deleted > 0 {
		slog.Info("Session sweeper removed expired sessions", "count", deleted)
	}

	if deviceRetention <= 0 {
		return
	}
	if deleted, err := repo.DeleteIdleDevices(ctx, deviceRetention); err != nil {
		slog.Error("Session sweeper failed to delete idle devices", "error", err)
	} else if deleted > 0 {
		slog.Info("Session sweeper removed idle devices", "count", deleted)
	}
	for _, e := range evicters {
		if n := e.EvictIdle(deviceRetention); n > 0 {
			slog.Info("Session sweeper evicted idle inbox devices", "count", n)
		}
	}
}
