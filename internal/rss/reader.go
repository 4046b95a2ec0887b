// Package rss reads the OS-level resident memory footprint of another
// process. It is the only view of memory the watchdog has: whole-process
// accounting as reported by the kernel, with no visibility into individual
// allocations.
package rss

import (
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

// ErrTargetVanished indicates the target process exited while it was being
// sampled. Callers recover locally: the session keeps whatever peak it has
// accumulated and the sampler still emits a report.
var ErrTargetVanished = errors.New("target process no longer exists")

// Reader reads the current resident memory size of a single target process.
//
// Methods:
//   - Pid: Returns the target's process identifier.
//   - ReadKB: Returns the target's current resident set size in kilobytes.
//
// Notes:
//   - ReadKB returns ErrTargetVanished once the target has exited; any other
//     error indicates the process-information mechanism itself failed.
type Reader interface {
	Pid() int32
	ReadKB() (int64, error)
}

type processReader struct {
	proc *process.Process
}

// NewProcessReader resolves the target pid through the OS process table.
// An unresolvable pid is a fatal startup error per the watchdog protocol.
func NewProcessReader(pid int32) (Reader, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target process %d: %w", pid, err)
	}

	return &processReader{proc: proc}, nil
}

func (r *processReader) Pid() int32 {
	return r.proc.Pid
}

func (r *processReader) ReadKB() (int64, error) {
	memInfo, err := r.proc.MemoryInfo()
	if err != nil {
		// distinguish "target exited" from a genuinely broken read
		if running, rerr := r.proc.IsRunning(); rerr == nil && !running {
			return 0, ErrTargetVanished
		}
		return 0, fmt.Errorf("failed to read memory info of process %d: %w", r.proc.Pid, err)
	}

	return int64(memInfo.RSS / 1024), nil
}
