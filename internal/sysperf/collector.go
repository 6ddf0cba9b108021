package sysperf

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/nerrad567/piot-cda/internal/data"
)

// Collector reads one utilisation metric as a percentage in [0, 100].
type Collector interface {
	// Name returns the metric name, e.g. data.CPUUtilName.
	Name() string

	// TypeID selects the snapshot field: data.CPUUtilType,
	// data.MemUtilType or data.DiskUtilType.
	TypeID() int

	// Collect samples the metric.
	Collect(ctx context.Context) (float64, error)
}

// CPUCollector reports CPU busy time across all cores since the previous
// call.
type CPUCollector struct{}

// NewCPUCollector creates a CPU collector.
func NewCPUCollector() *CPUCollector { return &CPUCollector{} }

// Name returns data.CPUUtilName.
func (CPUCollector) Name() string { return data.CPUUtilName }

// TypeID returns data.CPUUtilType.
func (CPUCollector) TypeID() int { return data.CPUUtilType }

// Collect samples CPU utilisation.
func (CPUCollector) Collect(ctx context.Context) (float64, error) {
	pcts, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, fmt.Errorf("reading cpu percent: %w", err)
	}
	if len(pcts) == 0 {
		return 0, ErrNoSample
	}
	return pcts[0], nil
}

// MemoryCollector reports used virtual memory.
type MemoryCollector struct{}

// NewMemoryCollector creates a memory collector.
func NewMemoryCollector() *MemoryCollector { return &MemoryCollector{} }

// Name returns data.MemUtilName.
func (MemoryCollector) Name() string { return data.MemUtilName }

// TypeID returns data.MemUtilType.
func (MemoryCollector) TypeID() int { return data.MemUtilType }

// Collect samples memory utilisation.
func (MemoryCollector) Collect(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading virtual memory: %w", err)
	}
	return vm.UsedPercent, nil
}

// DiskCollector reports used space on the filesystem holding Path.
type DiskCollector struct {
	Path string
}

// NewDiskCollector creates a disk collector for path.
func NewDiskCollector(path string) *DiskCollector { return &DiskCollector{Path: path} }

// Name returns data.DiskUtilName.
func (*DiskCollector) Name() string { return data.DiskUtilName }

// TypeID returns data.DiskUtilType.
func (*DiskCollector) TypeID() int { return data.DiskUtilType }

// Collect samples disk utilisation.
func (c *DiskCollector) Collect(ctx context.Context) (float64, error) {
	u, err := disk.UsageWithContext(ctx, c.Path)
	if err != nil {
		return 0, fmt.Errorf("reading disk usage for %s: %w", c.Path, err)
	}
	return u.UsedPercent, nil
}

// DefaultCollectors returns the CPU, memory and disk collectors.
func DefaultCollectors(diskPath string) []Collector {
	return []Collector{
		NewCPUCollector(),
		NewMemoryCollector(),
		NewDiskCollector(diskPath),
	}
}
