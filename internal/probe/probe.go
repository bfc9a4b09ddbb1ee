package probe

import (
	"context"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"diagsvc/internal/models"
)

// Readers are the raw OS reads behind a Probe. Tests replace them with fakes.
type Readers struct {
	Memory       func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	LogicalCPUs  func(ctx context.Context) (int, error)
	ProcessStart func(ctx context.Context, pid int) (time.Time, error)
	HostInfo     func(ctx context.Context) (*host.InfoStat, error)
}

// Probe reads host and process counters on demand. It keeps no state between
// samples, so concurrent use is safe.
type Probe struct {
	readers Readers
	pid     int
	now     func() time.Time
}

// DefaultReaders returns readers backed by gopsutil.
func DefaultReaders() Readers {
	return Readers{
		Memory: mem.VirtualMemoryWithContext,
		LogicalCPUs: func(ctx context.Context) (int, error) {
			return cpu.CountsWithContext(ctx, true)
		},
		ProcessStart: processStart,
		HostInfo:     host.InfoWithContext,
	}
}

// New returns a Probe for the current process using gopsutil readers.
func New() *Probe {
	return NewWithReaders(DefaultReaders())
}

// NewWithReaders returns a Probe using the given readers. Nil readers are
// treated as always failing.
func NewWithReaders(r Readers) *Probe {
	return &Probe{readers: r, pid: os.Getpid(), now: time.Now}
}

func processStart(ctx context.Context, pid int) (time.Time, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return time.Time{}, err
	}
	// gopsutil derives this from the boot time plus the start tick count.
	ms, err := proc.CreateTimeWithContext(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

// Sample returns fresh memory and CPU figures.
func (p *Probe) Sample(ctx context.Context) models.HostStats {
	return models.HostStats{
		Memory: p.memory(ctx),
		CPU:    models.CPUStats{LogicalCount: p.logicalCPUs(ctx)},
	}
}

func (p *Probe) memory(ctx context.Context) models.MemoryStats {
	var out models.MemoryStats
	if p.readers.Memory == nil {
		out.Error = "memory source unavailable"
		return out
	}
	stat, err := p.readers.Memory(ctx)
	if err != nil {
		out.Error = err.Error()
	}
	if stat == nil {
		if out.Error == "" {
			out.Error = "memory source returned no data"
		}
		return out
	}
	// Zero counters are treated as not reported by the platform.
	if stat.Total > 0 {
		out.TotalBytes = ptr(stat.Total)
	}
	if stat.Free > 0 {
		out.FreeBytes = ptr(stat.Free)
	}
	if stat.Available > 0 {
		out.AvailableBytes = ptr(stat.Available)
	}
	if out.TotalBytes != nil && out.AvailableBytes != nil {
		used, pct := usage(*out.TotalBytes, *out.AvailableBytes)
		out.UsedBytes = ptr(used)
		out.UsedPercent = ptr(pct)
	}
	return out
}

// usage derives used bytes from total minus available, which tracks
// reclaimable memory better than total minus free.
func usage(total, available uint64) (uint64, float64) {
	if available >= total {
		return 0, 0
	}
	used := total - available
	return used, RoundPercent(float64(used) / float64(total) * 100)
}

// RoundPercent rounds half-up to two decimals and clamps to [0, 100].
func RoundPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return math.Floor(v*100+0.5) / 100
}

func (p *Probe) logicalCPUs(ctx context.Context) int {
	if p.readers.LogicalCPUs == nil {
		return 1
	}
	n, err := p.readers.LogicalCPUs(ctx)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ProcessSample reports the current process id and how long it has run.
// Uptime is zero when the start time cannot be read.
func (p *Probe) ProcessSample(ctx context.Context) models.ProcessStats {
	stats := models.ProcessStats{PID: p.pid}
	if p.readers.ProcessStart == nil {
		return stats
	}
	started, err := p.readers.ProcessStart(ctx, p.pid)
	if err != nil || started.IsZero() {
		return stats
	}
	if up := p.now().Sub(started).Seconds(); up > 0 {
		stats.UptimeSeconds = math.Round(up*1000) / 1000
	}
	return stats
}

// Platform describes the host OS. GOOS and GOARCH are always set; the rest
// is filled when the host can be queried.
func (p *Probe) Platform(ctx context.Context) models.PlatformInfo {
	info := models.PlatformInfo{OS: runtime.GOOS, Arch: runtime.GOARCH}
	if p.readers.HostInfo != nil {
		if hi, err := p.readers.HostInfo(ctx); err == nil && hi != nil {
			info.Hostname = hi.Hostname
			info.Platform = hi.Platform
			info.PlatformVersion = hi.PlatformVersion
			info.KernelVersion = hi.KernelVersion
		}
	}
	if info.Hostname == "" {
		info.Hostname, _ = os.Hostname()
	}
	return info
}

// Runtime snapshots the Go scheduler and heap.
func (p *Probe) Runtime() models.RuntimeSnapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return models.RuntimeSnapshot{
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		HeapBytes:  ms.HeapAlloc,
	}
}

func ptr[T any](v T) *T { return &v }
