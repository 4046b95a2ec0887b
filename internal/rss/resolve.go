package rss

import (
	"fmt"
	"os"

	"github.com/gobwas/glob"
	"github.com/shirou/gopsutil/v3/process"
)

// FindPidByName resolves a single target pid from a process-name glob
// pattern (e.g. "python*"). The calling process itself is excluded so that
// self-named patterns do not match the watchdog.
//
// Returns:
//   - The pid of the unique matching process.
//   - An error if the pattern compiles to no match or to more than one match.
func FindPidByName(pattern string) (int32, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("failed to compile process name pattern '%s': %w", pattern, err)
	}

	procs, err := process.Processes()
	if err != nil {
		return 0, fmt.Errorf("failed to list processes: %w", err)
	}

	self := int32(os.Getpid())
	var matches []int32
	for _, p := range procs {
		if p.Pid == self {
			continue
		}

		name, err := p.Name()
		if err != nil {
			continue // process may have exited between listing and lookup
		}

		if g.Match(name) {
			matches = append(matches, p.Pid)
		}
	}

	switch len(matches) {
	case 0:
		return 0, fmt.Errorf("no process matches pattern '%s'", pattern)
	case 1:
		return matches[0], nil
	default:
		return 0, fmt.Errorf("pattern '%s' matches %d processes, need exactly one", pattern, len(matches))
	}
}
