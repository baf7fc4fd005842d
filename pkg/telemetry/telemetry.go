// Package telemetry reads host resource metrics for system snapshots,
// grounded on the gopsutil/v3 cpu/mem/disk/load/net subpackages.
package telemetry

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
)

// HostStats is one read of host resource usage.
type HostStats struct {
	CPUPercent    float64
	MemoryPercent float64
	DiskPercent   float64
	Load1         float64
	Load5         float64
	Load15        float64
	NetBytesSent  uint64
	NetBytesRecv  uint64
}

// HostTelemetry reads HostStats from the local machine.
type HostTelemetry interface {
	Read() (*HostStats, error)
}

// GopsutilTelemetry is the production HostTelemetry, backed by gopsutil/v3.
type GopsutilTelemetry struct {
	diskPath string
}

// NewGopsutilTelemetry builds a HostTelemetry that reports disk usage for diskPath.
func NewGopsutilTelemetry(diskPath string) *GopsutilTelemetry {
	if diskPath == "" {
		diskPath = "/"
	}
	return &GopsutilTelemetry{diskPath: diskPath}
}

func (g *GopsutilTelemetry) Read() (*HostStats, error) {
	cpuPercents, err := cpu.Percent(0, false)
	if err != nil {
		return nil, fmt.Errorf("failed to read cpu percent: %w", err)
	}
	var cpuPct float64
	if len(cpuPercents) > 0 {
		cpuPct = cpuPercents[0]
	}

	vmem, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to read virtual memory: %w", err)
	}

	diskUsage, err := disk.Usage(g.diskPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read disk usage for %s: %w", g.diskPath, err)
	}

	loadAvg, err := load.Avg()
	if err != nil {
		return nil, fmt.Errorf("failed to read load average: %w", err)
	}

	var sent, recv uint64
	if counters, err := psnet.IOCounters(false); err == nil && len(counters) > 0 {
		sent = counters[0].BytesSent
		recv = counters[0].BytesRecv
	}

	return &HostStats{
		CPUPercent:    cpuPct,
		MemoryPercent: vmem.UsedPercent,
		DiskPercent:   diskUsage.UsedPercent,
		Load1:         loadAvg.Load1,
		Load5:         loadAvg.Load5,
		Load15:        loadAvg.Load15,
		NetBytesSent:  sent,
		NetBytesRecv:  recv,
	}, nil
}

var _ HostTelemetry = (*GopsutilTelemetry)(nil)
