package models

// ProcessStats describes the running service process.
type ProcessStats struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	PID           int     `json:"pid"`
}

// RuntimeSnapshot captures Go runtime state at the time of a request.
type RuntimeSnapshot struct {
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
	GOMAXPROCS int    `json:"gomaxprocs"`
	HeapBytes  uint64 `json:"heap_alloc_bytes"`
}
