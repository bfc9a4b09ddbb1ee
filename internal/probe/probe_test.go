package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeMemory(stat *mem.VirtualMemoryStat, err error) func(context.Context) (*mem.VirtualMemoryStat, error) {
	return func(context.Context) (*mem.VirtualMemoryStat, error) { return stat, err }
}

func TestSampleDerivesUsageFromAvailable(t *testing.T) {
	p := NewWithReaders(Readers{
		Memory:      fakeMemory(&mem.VirtualMemoryStat{Total: 8000, Free: 1000, Available: 3000}, nil),
		LogicalCPUs: func(context.Context) (int, error) { return 4, nil },
	})

	stats := p.Sample(context.Background())
	m := stats.Memory
	require.NotNil(t, m.TotalBytes)
	require.NotNil(t, m.FreeBytes)
	require.NotNil(t, m.AvailableBytes)
	require.NotNil(t, m.UsedBytes)
	require.NotNil(t, m.UsedPercent)
	assert.Equal(t, uint64(5000), *m.UsedBytes)
	assert.Equal(t, 62.5, *m.UsedPercent)
	assert.Empty(t, m.Error)
	assert.Equal(t, 4, stats.CPU.LogicalCount)
}

func TestSampleWithoutAvailableSkipsDerivedFields(t *testing.T) {
	p := NewWithReaders(Readers{
		Memory: fakeMemory(&mem.VirtualMemoryStat{Total: 8000, Free: 1000}, nil),
	})

	m := p.Sample(context.Background()).Memory
	require.NotNil(t, m.TotalBytes)
	require.NotNil(t, m.FreeBytes)
	assert.Nil(t, m.AvailableBytes)
	assert.Nil(t, m.UsedBytes)
	assert.Nil(t, m.UsedPercent)
}

func TestSampleCapturesReadError(t *testing.T) {
	p := NewWithReaders(Readers{
		Memory:      fakeMemory(nil, errors.New("open /proc/meminfo: permission denied")),
		LogicalCPUs: func(context.Context) (int, error) { return 0, errors.New("boom") },
	})

	stats := p.Sample(context.Background())
	assert.Equal(t, "open /proc/meminfo: permission denied", stats.Memory.Error)
	assert.Nil(t, stats.Memory.TotalBytes)
	assert.Equal(t, 1, stats.CPU.LogicalCount)
}

func TestSampleWithNoReaders(t *testing.T) {
	stats := NewWithReaders(Readers{}).Sample(context.Background())
	assert.NotEmpty(t, stats.Memory.Error)
	assert.Equal(t, 1, stats.CPU.LogicalCount)
}

func TestUsedPercentBounds(t *testing.T) {
	cases := []struct {
		total, available uint64
		want             float64
	}{
		{total: 3, available: 2, want: 33.33},
		{total: 3, available: 1, want: 66.67},
		{total: 100, available: 100, want: 0},
		{total: 100, available: 250, want: 0},
		{total: 1 << 40, available: 1, want: 100},
	}
	for _, tc := range cases {
		_, pct := usage(tc.total, tc.available)
		assert.GreaterOrEqual(t, pct, 0.0)
		assert.LessOrEqual(t, pct, 100.0)
		assert.Equal(t, tc.want, pct, "total=%d available=%d", tc.total, tc.available)
	}
}

func TestRoundPercentHalfUp(t *testing.T) {
	assert.Equal(t, 12.35, RoundPercent(12.3456))
	assert.Equal(t, 12.34, RoundPercent(12.3449))
	assert.Equal(t, 0.0, RoundPercent(-3))
	assert.Equal(t, 100.0, RoundPercent(140))
}

func TestProcessSampleUptime(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewWithReaders(Readers{
		ProcessStart: func(context.Context, int) (time.Time, error) { return start, nil },
	})
	p.now = func() time.Time { return start.Add(90*time.Second + 250*time.Millisecond) }

	stats := p.ProcessSample(context.Background())
	assert.Equal(t, 90.25, stats.UptimeSeconds)
	assert.Positive(t, stats.PID)
}

func TestProcessSampleFailureYieldsZeroUptime(t *testing.T) {
	p := NewWithReaders(Readers{
		ProcessStart: func(context.Context, int) (time.Time, error) {
			return time.Time{}, errors.New("no such process")
		},
	})
	assert.Zero(t, p.ProcessSample(context.Background()).UptimeSeconds)

	p = NewWithReaders(Readers{
		ProcessStart: func(context.Context, int) (time.Time, error) { return time.Now().Add(time.Hour), nil },
	})
	assert.Zero(t, p.ProcessSample(context.Background()).UptimeSeconds)
}

func TestPlatformFallsBackToRuntime(t *testing.T) {
	p := NewWithReaders(Readers{
		HostInfo: func(context.Context) (*host.InfoStat, error) { return nil, errors.New("unsupported") },
	})
	info := p.Platform(context.Background())
	assert.NotEmpty(t, info.OS)
	assert.NotEmpty(t, info.Arch)
	assert.Equal(t, info.OS+"/"+info.Arch, info.String())
}

func TestDefaultReadersSampleLiveHost(t *testing.T) {
	p := New()
	stats := p.Sample(context.Background())
	assert.GreaterOrEqual(t, stats.CPU.LogicalCount, 1)
	if stats.Memory.UsedPercent != nil {
		assert.GreaterOrEqual(t, *stats.Memory.UsedPercent, 0.0)
		assert.LessOrEqual(t, *stats.Memory.UsedPercent, 100.0)
	}
	assert.GreaterOrEqual(t, p.ProcessSample(context.Background()).UptimeSeconds, 0.0)
}
