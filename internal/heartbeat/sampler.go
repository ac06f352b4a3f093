package heartbeat

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/process"

	"servicehost/internal/logger"
)

// Snapshot is the process and host state attached to a heartbeat.
type Snapshot struct {
	RSSBytes        uint64  `json:"rss_bytes,omitempty"`
	CPUPercent      float64 `json:"cpu_percent,omitempty"`
	Threads         int32   `json:"threads,omitempty"`
	HostUptimeSec   uint64  `json:"host_uptime_sec"`
	WorkerUptimeSec float64 `json:"worker_uptime_sec"`
	ManagerState    string  `json:"manager_state,omitempty"`
}

// Sampler produces the snapshot for one heartbeat.
type Sampler interface {
	Sample(ctx context.Context) (*Snapshot, error)
}

// ProcessSampler samples the hosting process with gopsutil and, on Windows,
// asks WMI how the service manager sees the service.
type ProcessSampler struct {
	serviceName  string
	processStats bool
	proc         *process.Process
	clock        clock.Clock
	started      time.Time
	managerState func(ctx context.Context, serviceName string) (string, error)
}

// NewProcessSampler creates a sampler for the current process. With
// processStats false only uptimes and manager state are reported.
func NewProcessSampler(serviceName string, processStats bool) (*ProcessSampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to open current process: %w", err)
	}
	clk := clock.New()
	return &ProcessSampler{
		serviceName:  serviceName,
		processStats: processStats,
		proc:         proc,
		clock:        clk,
		started:      clk.Now(),
		managerState: queryManagerState,
	}, nil
}

// Sample implements Sampler.
func (s *ProcessSampler) Sample(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		WorkerUptimeSec: s.clock.Since(s.started).Seconds(),
	}

	if s.processStats {
		mem, err := s.proc.MemoryInfoWithContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("memory info: %w", err)
		}
		snap.RSSBytes = mem.RSS

		cpu, err := s.proc.CPUPercentWithContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("cpu percent: %w", err)
		}
		snap.CPUPercent = cpu

		threads, err := s.proc.NumThreadsWithContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("thread count: %w", err)
		}
		snap.Threads = threads
	}

	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("host uptime: %w", err)
	}
	snap.HostUptimeSec = uptime

	if s.managerState != nil {
		state, err := s.managerState(ctx, s.serviceName)
		if err != nil {
			log := logger.WithComponent("heartbeat")
			log.Debug().Err(err).Str("service", s.serviceName).Msg("Failed to query service manager state")
		}
		snap.ManagerState = state
	}

	return snap, nil
}
