package agent

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balena-io-experimental/goal-engine/pkg/goal"
	"github.com/balena-io-experimental/goal-engine/pkg/telemetry"
)

type agentCtx struct{}

func testTelemetry(t *testing.T) *telemetry.Telemetry {
	t.Helper()
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Level = "error"
	cfg.Logging.Format = "json"
	cfg.Events.EnableAsync = false
	tel, err := telemetry.NewTelemetry(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })
	return tel
}

func TestRunOnce(t *testing.T) {
	var fixed atomic.Bool
	g := goal.New(goal.Spec[agentCtx, bool]{
		State: func(context.Context, agentCtx) (bool, error) { return fixed.Load(), nil },
		Action: func(context.Context, agentCtx, bool) error {
			fixed.Store(true)
			return nil
		},
		Description: func(agentCtx) string { return "fixture" },
	})

	r := New(g, func() agentCtx { return agentCtx{} }, Options{}, testTelemetry(t))
	reached, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, reached)
	assert.True(t, fixed.Load())
}

func TestRunRetriesUntilReached(t *testing.T) {
	// The action only succeeds on the third attempt; the loop must
	// retry under backoff until the goal is reached.
	var attempts atomic.Int64
	var fixed atomic.Bool
	g := goal.New(goal.Spec[agentCtx, bool]{
		State: func(context.Context, agentCtx) (bool, error) { return fixed.Load(), nil },
		Action: func(context.Context, agentCtx, bool) error {
			if attempts.Add(1) >= 3 {
				fixed.Store(true)
			}
			return nil
		},
	})

	r := New(g, func() agentCtx { return agentCtx{} }, Options{
		Interval:          time.Hour,
		BackoffInitial:    time.Millisecond,
		BackoffMax:        5 * time.Millisecond,
		BackoffMultiplier: 1.5,
	}, testTelemetry(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, fixed.Load, 5*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, attempts.Load(), int64(3))
}

func TestRunWatchTriggersReconcile(t *testing.T) {
	dir := t.TempDir()

	var probes atomic.Int64
	g := goal.FromState(func(context.Context, agentCtx) (bool, error) {
		probes.Add(1)
		return true, nil
	})

	r := New(g, func() agentCtx { return agentCtx{} }, Options{
		// The steady interval is far away: only a watch event can
		// plausibly trigger the next reconcile.
		Interval:   time.Hour,
		WatchPaths: []string{dir},
	}, testTelemetry(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// Wait for the initial reconcile.
	require.Eventually(t, func() bool { return probes.Load() >= 1 }, 5*time.Second, 5*time.Millisecond)
	before := probes.Load()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "touched"), []byte("x"), 0644))

	require.Eventually(t, func() bool { return probes.Load() > before }, 5*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestRunStopsCleanly(t *testing.T) {
	g := goal.Always[agentCtx]()
	r := New(g, func() agentCtx { return agentCtx{} }, Options{Interval: time.Hour}, testTelemetry(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reconciler did not stop on context cancellation")
	}
}
