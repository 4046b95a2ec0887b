package commands

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.hedera.com/solo-peakwatch/internal/artifact"
)

func TestParseSampleArgs(t *testing.T) {
	pid, interval, path, err := parseSampleArgs([]string{"4242", "0.01", "/tmp/peakwatch.hs"})
	require.NoError(t, err)
	assert.Equal(t, int32(4242), pid)
	assert.Equal(t, 10*time.Millisecond, interval)
	assert.Equal(t, "/tmp/peakwatch.hs", path)
}

func TestParseSampleArgs_FractionalSeconds(t *testing.T) {
	_, interval, _, err := parseSampleArgs([]string{"1", "1.5", "/tmp/peakwatch.hs"})
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, interval)
}

func TestParseSampleArgs_Invalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []string
	}{
		{"too few args", []string{"4242", "0.01"}},
		{"bad pid", []string{"not-a-pid", "0.01", "/tmp/peakwatch.hs"}},
		{"bad interval", []string{"4242", "fast", "/tmp/peakwatch.hs"}},
		{"zero interval", []string{"4242", "0", "/tmp/peakwatch.hs"}},
		{"negative interval", []string{"4242", "-0.5", "/tmp/peakwatch.hs"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, _, err := parseSampleArgs(tc.args)
			assert.Error(t, err)
		})
	}
}

func TestParseSampleArgs_NameFlag(t *testing.T) {
	flagTargetName = "no-such-process-*"
	defer func() { flagTargetName = "" }()

	// pattern matches nothing, so resolution must fail
	_, _, _, err := parseSampleArgs([]string{"0.01", "/tmp/peakwatch.hs"})
	assert.Error(t, err)

	// and a pid positional arg is rejected while --name is set
	_, _, _, err = parseSampleArgs([]string{"4242", "0.01", "/tmp/peakwatch.hs"})
	assert.Error(t, err)
}

func TestRunSample_SignalDrivenReport(t *testing.T) {
	artifactPath := filepath.Join(t.TempDir(), "peakwatch.hs")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- runSample(ctx, []string{strconv.Itoa(os.Getpid()), "0.005", artifactPath})
	}()

	// handshake first: the artifact carries the sampler's pid
	pid, err := artifact.WaitForPid(ctx, artifactPath, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	// let a few samples land, then request termination; cancelling the
	// parent context goes through the same NotifyContext path as SIGTERM
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case rerr := <-done:
		require.NoError(t, rerr)
	case <-time.After(2 * time.Second):
		t.Fatal("sampler did not exit after termination request")
	}

	// the artifact now holds a parseable two-field report
	report, err := artifact.ReadReport(artifactPath)
	require.NoError(t, err)
	assert.Greater(t, report.BaselineKB, int64(0))
	assert.GreaterOrEqual(t, report.PeakDeltaKB, int64(0))
}

func TestRunSample_TerminationDuringStartupStillReports(t *testing.T) {
	artifactPath := filepath.Join(t.TempDir(), "peakwatch.hs")

	// a termination request observed before the loop ever runs
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runSample(ctx, []string{strconv.Itoa(os.Getpid()), "0.005", artifactPath})
	require.NoError(t, err)

	report, err := artifact.ReadReport(artifactPath)
	require.NoError(t, err)
	assert.Greater(t, report.BaselineKB, int64(0))
	assert.Equal(t, int64(0), report.PeakDeltaKB)
}
