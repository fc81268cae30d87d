package probes

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balena-io-experimental/goal-engine/pkg/goal"
)

func TestProcessRunning(t *testing.T) {
	pidfile := filepath.Join(t.TempDir(), "app.pid")
	require.NoError(t, os.WriteFile(pidfile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644))

	running, err := ProcessRunning(func(fileCtx) string { return pidfile })(context.Background(), fileCtx{})
	require.NoError(t, err)
	assert.True(t, running)
}

func TestProcessRunningMissingPidfileIsAbsence(t *testing.T) {
	pidfile := filepath.Join(t.TempDir(), "gone.pid")

	_, err := ProcessRunning(func(fileCtx) string { return pidfile })(context.Background(), fileCtx{})
	require.Error(t, err)
	assert.True(t, goal.IsStateNotFound(err))
}

func TestProcessRunningMalformedPidfile(t *testing.T) {
	pidfile := filepath.Join(t.TempDir(), "bad.pid")
	require.NoError(t, os.WriteFile(pidfile, []byte("not-a-pid"), 0644))

	_, err := ProcessRunning(func(fileCtx) string { return pidfile })(context.Background(), fileCtx{})
	require.Error(t, err)
	assert.False(t, goal.IsStateNotFound(err))
}
