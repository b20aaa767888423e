package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// RegistryStats is the slice of registry state telemetry cares about.
type RegistryStats interface {
	RoomCount() int
	MemberCount() int
}

// TelemetryWorker periodically logs process resource usage together with
// registry occupancy. Purely observational, it never touches room state.
type TelemetryWorker struct {
	log      *slog.Logger
	interval time.Duration
	stats    RegistryStats
}

func NewTelemetryWorker(log *slog.Logger, interval time.Duration, stats RegistryStats) *TelemetryWorker {
	return &TelemetryWorker{log: log, interval: interval, stats: stats}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry")
			return nil
		case <-ticker.C:
			w.report(proc)
		}
	}
}

func (w *TelemetryWorker) report(proc *process.Process) {
	cpu, err := proc.CPUPercent()
	if err != nil {
		w.log.Error("Error while finding process cpu usage", "err", err)
		return
	}
	ram, err := proc.MemoryPercent()
	if err != nil {
		w.log.Error("Error while finding process ram usage", "err", err)
		return
	}
	w.log.Info("Telemetry",
		"rooms", w.stats.RoomCount(),
		"members", w.stats.MemberCount(),
		"cpu_percent", cpu,
		"ram_percent", ram,
	)
}
