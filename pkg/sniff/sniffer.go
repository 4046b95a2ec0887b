// Package sniff captures in-process runtime statistics. It complements the
// external watchdog: the sampler sees the process from the outside (OS-level
// RSS), sniff sees it from the inside (allocator counters). The watchdog
// takes one Snapshot before and after a workload; the periodic capture loop
// and snapshot server exist for longer-running embeddings.
package sniff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path"
	"runtime"
	"sync"
	"time"

	"golang.hedera.com/solo-peakwatch/pkg/fsx"
	"golang.hedera.com/solo-peakwatch/pkg/logx"
)

var (
	sniffer     *Sniffer
	snifferOnce sync.Once
)

type Sniffer struct {
	opts         *ProfilingConfig
	lastSnapshot *Stats
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.Mutex
}

func New(opts ProfilingConfig) *Sniffer {
	return &Sniffer{opts: &opts}
}

// Start initializes and starts the global sniffer.
func Start(ctx context.Context, opts ProfilingConfig) error {
	var startErr error

	snifferOnce.Do(func() {
		sniffer = New(opts)
		startErr = sniffer.Start(ctx)
	})

	return startErr
}

// Stop stops the global sniffer if it is running.
func Stop() {
	if sniffer != nil {
		sniffer.Stop()
		sniffer = nil
	}
}

// Get returns the global sniffer instance.
func Get() *Sniffer {
	return sniffer
}

// Snapshot reads the current runtime statistics of this process.
func Snapshot() *Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &Stats{
		Pid:       logx.GetPid(),
		Timestamp: time.Now().Format(time.RFC3339Nano),
		MemStats: &MemStats{
			AllocKB:      m.Alloc / 1024,
			TotalAllocKB: m.TotalAlloc / 1024,
			SysKB:        m.Sys / 1024,
			NumGC:        m.NumGC,
		},
		CPUStats: &CPUStats{
			NumGoroutines: runtime.NumGoroutine(),
			NumCPU:        runtime.NumCPU(),
			NumCgoCalls:   runtime.NumCgoCall(),
		},
	}
}

func (s *Sniffer) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("sniffer context is nil")
	}

	if !s.opts.Enabled {
		return nil
	}

	// child context so that cancelling the parent stops every component
	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.opts.EnableServer {
		if err := s.startSnapshotServer(); err != nil {
			return err
		}
	}

	if s.opts.EnablePprofServer && s.opts.PprofPort > 0 {
		go func() {
			pprofAddr := fmt.Sprintf("%s:%d", s.opts.ServerHost, s.opts.PprofPort)
			logx.As().Info().Msg(fmt.Sprintf("Starting pprof server on %s", pprofAddr))
			if err := http.ListenAndServe(pprofAddr, nil); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logx.As().Error().Err(err).Msg("pprof server failed")
			}
		}()
	}

	return s.startCapturingStats()
}

func (s *Sniffer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// startSnapshotServer serves the last captured snapshot until the sniffer
// context is cancelled.
func (s *Sniffer) startSnapshotServer() error {
	serverURL := fmt.Sprintf("%s:%d", s.opts.ServerHost, s.opts.ServerPort)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/last-snapshot", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		snapshot := s.lastSnapshot
		s.mu.Unlock()

		if snapshot == nil {
			http.Error(w, "Stats not available", http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snapshot); err != nil {
			http.Error(w, "Failed to encode profiling data", http.StatusInternalServerError)
		}
	})

	server := &http.Server{
		Addr:    serverURL,
		Handler: mux,
	}

	go func() {
		logx.As().Info().Msg(fmt.Sprintf("Starting snapshot server on %s", serverURL))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logx.As().Error().Err(err).Msg("snapshot server failed")
		}
	}()

	go func(sv *http.Server) {
		<-s.ctx.Done()
		logx.As().Info().Msg("Shutting down snapshot server...")
		if err := sv.Shutdown(context.Background()); err != nil {
			logx.As().Error().Err(err).Msg("Failed to shut down snapshot server")
		}
	}(server)

	return nil
}

// startCapturingStats periodically appends snapshots to a JSON stats file
// until the sniffer context is cancelled.
func (s *Sniffer) startCapturingStats() error {
	if err := os.MkdirAll(s.opts.Directory, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	interval, err := time.ParseDuration(s.opts.Interval)
	if err != nil {
		return fmt.Errorf("error parsing capture interval: %w", err)
	}

	statsFile := path.Join(s.opts.Directory, "stats.json")
	f, err := os.OpenFile(statsFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open stats file: %w", err)
	}

	encoder := json.NewEncoder(f)

	go func() {
		defer fsx.CloseFile(f)
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(interval):
				snapshot := Snapshot()

				s.mu.Lock()
				s.lastSnapshot = snapshot
				err := encoder.Encode(snapshot)
				s.mu.Unlock()

				if err != nil {
					logx.As().Error().Err(err).Msg("Failed to write stats")
					continue
				}

				logx.As().Debug().
					Uint64("alloc_kb", snapshot.MemStats.AllocKB).
					Uint64("total_alloc_kb", snapshot.MemStats.TotalAllocKB).
					Uint64("sys_kb", snapshot.MemStats.SysKB).
					Uint32("num_gc", snapshot.MemStats.NumGC).
					Int("num_goroutines", snapshot.CPUStats.NumGoroutines).
					Msg("Captured runtime profiling data")
			}
		}
	}()

	return nil
}
