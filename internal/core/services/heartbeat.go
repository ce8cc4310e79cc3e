package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// Heartbeat periodically logs a host snapshot so worker logs carry the
// health of the managed server alongside job activity.
type Heartbeat struct {
	logger   *slog.Logger
	interval time.Duration
}

func NewHeartbeat(logger *slog.Logger, interval time.Duration) *Heartbeat {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Heartbeat{logger: logger, interval: interval}
}

// Run starts the heartbeat loop. Blocks until ctx is cancelled.
func (h *Heartbeat) Run(ctx context.Context) error {
	h.logger.Info("heartbeat started", "interval", h.interval)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("heartbeat stopped")
			return nil
		case <-ticker.C:
			h.logger.Info("heartbeat", "snapshot", Snapshot(ctx))
		}
	}
}

// Snapshot gathers system metrics suitable for heartbeat payloads. Metrics
// that cannot be collected on this host are simply absent.
func Snapshot(ctx context.Context) map[string]any {
	snapshot := map[string]any{
		"collected_at": time.Now().UTC().Format(time.RFC3339),
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		snapshot["cpu"] = map[string]any{"percent": percents[0]}
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snapshot["memory"] = map[string]any{
			"total":     vm.Total,
			"available": vm.Available,
			"percent":   vm.UsedPercent,
		}
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		snapshot["load"] = map[string]any{
			"1m":  avg.Load1,
			"5m":  avg.Load5,
			"15m": avg.Load15,
		}
	}
	if usage, err := disk.UsageWithContext(ctx, "/"); err == nil {
		snapshot["disk"] = map[string]any{
			"total":   usage.Total,
			"free":    usage.Free,
			"percent": usage.UsedPercent,
		}
	}

	return snapshot
}
