package sampler

import (
	"context"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.hedera.com/solo-peakwatch/internal/rss"
)

// fakeReader replays a fixed sequence of readings. The first reading becomes
// the baseline; once the sequence is exhausted it keeps returning the last
// value, or vanishes if vanishAfter is set.
type fakeReader struct {
	readings     []int64
	pos          int
	vanishAtEnd  bool
	cancelAtEnd  context.CancelFunc
	readingsSeen int
}

func (f *fakeReader) Pid() int32 {
	return 12345
}

func (f *fakeReader) ReadKB() (int64, error) {
	f.readingsSeen++
	if f.pos >= len(f.readings) {
		if f.vanishAtEnd {
			return 0, rss.ErrTargetVanished
		}
		if f.cancelAtEnd != nil {
			f.cancelAtEnd()
		}
		return f.readings[len(f.readings)-1], nil
	}

	v := f.readings[f.pos]
	f.pos++
	return v, nil
}

func runSession(t *testing.T, reader *fakeReader) (*Session, error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if !reader.vanishAtEnd {
		reader.cancelAtEnd = cancel
	}

	s, err := NewSession(reader, time.Millisecond)
	require.NoError(t, err)

	return s, s.Run(ctx)
}

func TestNewSession_InvalidInterval(t *testing.T) {
	_, err := NewSession(&fakeReader{readings: []int64{100}}, 0)
	assert.Error(t, err)

	_, err = NewSession(&fakeReader{readings: []int64{100}}, -time.Second)
	assert.Error(t, err)
}

func TestNewSession_BaselineReadFails(t *testing.T) {
	_, err := NewSession(&fakeReader{readings: nil, vanishAtEnd: true}, time.Millisecond)
	assert.Error(t, err)
}

func TestSession_PeakIsMaxDelta(t *testing.T) {
	// baseline 100; peak is at 180
	reader := &fakeReader{readings: []int64{100, 120, 180, 150, 160}}

	s, err := runSession(t, reader)
	require.NoError(t, err)

	report := s.Report()
	assert.Equal(t, int64(100), report.BaselineKB)
	assert.Equal(t, int64(80), report.PeakDeltaKB)
}

func TestSession_NeverAboveBaseline(t *testing.T) {
	// the target only shrinks; negative deltas never raise the peak
	reader := &fakeReader{readings: []int64{100, 90, 80, 95}}

	s, err := runSession(t, reader)
	require.NoError(t, err)

	report := s.Report()
	assert.Equal(t, int64(0), report.PeakDeltaKB)
	assert.Equal(t, int64(100), report.BaselineKB)
}

func TestSession_PeakIsMonotone(t *testing.T) {
	reader := &fakeReader{readings: []int64{100, 150, 110, 140, 105}}

	s, err := runSession(t, reader)
	require.NoError(t, err)

	// the later, lower readings must not pull the peak back down
	assert.Equal(t, int64(50), s.Report().PeakDeltaKB)
}

func TestSession_TargetVanished(t *testing.T) {
	reader := &fakeReader{readings: []int64{100, 170}, vanishAtEnd: true}

	s, err := runSession(t, reader)
	assert.ErrorIs(t, err, rss.ErrTargetVanished)

	// the accumulated peak survives the early exit
	assert.Equal(t, int64(70), s.Report().PeakDeltaKB)
}

func TestSession_NoReadAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{readings: []int64{100}}

	s, err := NewSession(reader, time.Millisecond)
	require.NoError(t, err)

	cancel()
	require.NoError(t, s.Run(ctx))

	// one read for the baseline, none from the cancelled loop
	assert.Equal(t, 1, reader.readingsSeen)
}

// touchKB allocates and dirties n KB so the pages land in the resident set.
func touchKB(n int64) []byte {
	buf := make([]byte, n*1024)
	for i := 0; i < len(buf); i += 4096 {
		buf[i] = 1
	}
	return buf
}

func TestSession_FineIntervalObservesHeldAllocation(t *testing.T) {
	reader, err := rss.NewProcessReader(int32(os.Getpid()))
	require.NoError(t, err)

	s, err := NewSession(reader, 2*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// hold the allocation across many sampling periods
	const allocKB = 64 * 1024
	buf := touchKB(allocKB)
	time.Sleep(100 * time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	runtime.KeepAlive(buf)

	// dozens of samples landed while the allocation was resident, so the
	// peak delta must reflect most of it
	assert.GreaterOrEqual(t, s.Report().PeakDeltaKB, int64(allocKB/2))
}

func TestSession_CoarseIntervalMissesShortSpike(t *testing.T) {
	reader, err := rss.NewProcessReader(int32(os.Getpid()))
	require.NoError(t, err)

	// one immediate sample, then a delay far longer than the test runs
	s, err := NewSession(reader, 10*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// give the loop its single pre-spike sample, then spike briefly
	time.Sleep(100 * time.Millisecond)
	const spikeKB = 64 * 1024
	buf := touchKB(spikeKB)
	time.Sleep(20 * time.Millisecond)
	runtime.KeepAlive(buf)

	cancel()
	require.NoError(t, <-done)

	// the spike fell between two samples and is under-reported; polling
	// resolution bounds what the session can observe
	assert.Less(t, s.Report().PeakDeltaKB, int64(spikeKB/2))
}
