// Package models defines the data shapes returned by the diagnostic
// endpoints and the envelope that wraps them.
package models

// MemoryStats captures host memory counters. Each counter is optional: a nil
// pointer means the value could not be read on this platform.
type MemoryStats struct {
	TotalBytes     *uint64  `json:"total_bytes,omitempty"`
	FreeBytes      *uint64  `json:"free_bytes,omitempty"`
	AvailableBytes *uint64  `json:"available_bytes,omitempty"`
	UsedBytes      *uint64  `json:"used_bytes,omitempty"`
	UsedPercent    *float64 `json:"used_percent,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// CPUStats reports the logical processor count. It is never zero.
type CPUStats struct {
	LogicalCount int `json:"logical_count"`
}

// HostStats is a point-in-time sample of host resources.
type HostStats struct {
	Memory MemoryStats `json:"memory"`
	CPU    CPUStats    `json:"cpu"`
}

// PlatformInfo describes the operating system the process runs on.
type PlatformInfo struct {
	Hostname        string `json:"hostname,omitempty"`
	OS              string `json:"os"`
	Arch            string `json:"arch"`
	Platform        string `json:"platform,omitempty"`
	PlatformVersion string `json:"platform_version,omitempty"`
	KernelVersion   string `json:"kernel_version,omitempty"`
}

// String renders the platform the way Go names build targets, e.g. "linux/amd64".
func (p PlatformInfo) String() string {
	return p.OS + "/" + p.Arch
}
