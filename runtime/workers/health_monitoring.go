package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthMonitoringWorker periodically samples the host's own process and
// logs cpu and memory usage together with the current participant count.
// A long-lived session host is the kind of process that leaks quietly; this
// is the cheap way to notice.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
	participants   func() int
}

func NewHealthMonitoringWorker(log *slog.Logger, metricInterval time.Duration, participants func() int) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		metricInterval: metricInterval,
		participants:   participants,
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health sampling")
			return nil
		case <-ticker.C:
			cpu, err := self.CPUPercent()
			if err != nil {
				w.log.Error("Error while reading host cpu usage", "err", err)
				continue
			}
			ram, err := self.MemoryPercent()
			if err != nil {
				w.log.Error("Error while reading host ram usage", "err", err)
				continue
			}
			w.log.Info("Session health",
				"cpu", cpu,
				"ram", ram,
				"participants", w.participants(),
			)
		}
	}
}
