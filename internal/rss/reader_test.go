package rss

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProcessReader_Self(t *testing.T) {
	r, err := NewProcessReader(int32(os.Getpid()))
	require.NoError(t, err)
	assert.Equal(t, int32(os.Getpid()), r.Pid())

	kb, err := r.ReadKB()
	require.NoError(t, err)
	assert.Greater(t, kb, int64(0), "a running test binary must have nonzero RSS")
}

func TestNewProcessReader_UnknownPid(t *testing.T) {
	// pids are well below this bound on every supported platform
	_, err := NewProcessReader(1 << 22)
	assert.Error(t, err)
}

func TestFindPidByName_NoMatch(t *testing.T) {
	_, err := FindPidByName("no-such-process-name-*")
	assert.Error(t, err)
}

func TestFindPidByName_InvalidPattern(t *testing.T) {
	_, err := FindPidByName("[")
	assert.Error(t, err)
}
