package sniff

type MemStats struct {
	AllocKB      uint64 `json:"alloc_kb"`
	TotalAllocKB uint64 `json:"total_alloc_kb"`
	SysKB        uint64 `json:"sys_kb"`
	NumGC        uint32 `json:"num_gc"`
}

type CPUStats struct {
	NumGoroutines int   `json:"num_goroutines"`
	NumCPU        int   `json:"num_cpu"`
	NumCgoCalls   int64 `json:"num_cgo_calls"`
}

type Stats struct {
	Pid       int       `json:"pid"`
	Timestamp string    `json:"timestamp"`
	MemStats  *MemStats `json:"mem_stats"`
	CPUStats  *CPUStats `json:"cpu_stats"`
}

type ProfilingConfig struct {
	// Enabled turns the periodic capture loop on.
	Enabled bool
	// Interval is the capture interval as a duration string (e.g., "1s").
	Interval string
	// Directory is where the stats file is written.
	Directory string
	// EnableServer exposes the last snapshot over HTTP.
	EnableServer bool
	// ServerHost is the host for the snapshot and pprof servers.
	ServerHost string
	// ServerPort is the port for the snapshot server.
	ServerPort int
	// EnablePprofServer exposes net/http/pprof on PprofPort.
	EnablePprofServer bool
	// PprofPort is the port for the pprof server.
	PprofPort int
}
