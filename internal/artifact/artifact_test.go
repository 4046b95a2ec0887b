package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.hedera.com/solo-peakwatch/internal/core"
)

func TestWriteReadPid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peakwatch.hs")

	require.NoError(t, WritePid(path, 4242))

	pid, err := ReadPid(path)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)
}

func TestReadPid_RejectsReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peakwatch.hs")

	require.NoError(t, WriteReport(path, core.Report{PeakDeltaKB: 7700, BaselineKB: 76742}))

	_, err := ReadPid(path)
	assert.Error(t, err)
}

func TestWriteReadReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peakwatch.hs")

	// the sampler first publishes its pid, then overwrites it with the report
	require.NoError(t, WritePid(path, os.Getpid()))
	require.NoError(t, WriteReport(path, core.Report{PeakDeltaKB: 7700, BaselineKB: 76742}))

	report, err := ReadReport(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7700), report.PeakDeltaKB)
	assert.Equal(t, int64(76742), report.BaselineKB)
}

func TestReadReport_PidOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peakwatch.hs")

	require.NoError(t, WritePid(path, 4242))

	_, err := ReadReport(path)
	assert.Error(t, err)
}

func TestWaitForPid_DelayedWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peakwatch.hs")

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = WritePid(path, 77)
	}()

	pid, err := WaitForPid(context.Background(), path, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 77, pid)
}

func TestWaitForPid_Timeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never-written.hs")

	start := time.Now()
	_, err := WaitForPid(context.Background(), path, 100*time.Millisecond)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitForReport_DelayedFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peakwatch.hs")
	require.NoError(t, WritePid(path, 77))

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = WriteReport(path, core.Report{PeakDeltaKB: 0, BaselineKB: 1024})
	}()

	report, err := WaitForReport(context.Background(), path, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.PeakDeltaKB)
	assert.Equal(t, int64(1024), report.BaselineKB)
}

func TestRemove_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peakwatch.hs")
	require.NoError(t, WritePid(path, 77))

	Remove(path)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// second removal of an already-deleted artifact must be harmless
	Remove(path)
}
