package goal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCtx struct {
	name string
}

// recordingLogger captures trace lines for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, msg)
}

func (l *recordingLogger) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// world is a tiny mutable universe for exercising remediation.
type world struct {
	satisfied atomic.Bool
	probes    atomic.Int64
	actions   atomic.Int64
}

func (w *world) goal(desc string) *Goal[testCtx] {
	return New(Spec[testCtx, bool]{
		State: func(context.Context, testCtx) (bool, error) {
			w.probes.Add(1)
			return w.satisfied.Load(), nil
		},
		Action: func(context.Context, testCtx, bool) error {
			w.actions.Add(1)
			w.satisfied.Store(true)
			return nil
		},
		Description: func(testCtx) string { return desc },
	})
}

func TestSeekRemediatesOnce(t *testing.T) {
	w := &world{}
	g := w.goal("service running")

	ok, err := g.Seek(context.Background(), testCtx{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 1, w.actions.Load())
	assert.True(t, w.satisfied.Load())
}

func TestSeekIdempotent(t *testing.T) {
	w := &world{}
	g := w.goal("service running")

	ok, err := g.Seek(context.Background(), testCtx{})
	require.NoError(t, err)
	require.True(t, ok)

	// A second traversal over an already satisfied world passes on the
	// probe alone.
	ok, err = g.Seek(context.Background(), testCtx{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 1, w.actions.Load())
}

func TestSeekNoopWhenAlreadySatisfied(t *testing.T) {
	w := &world{}
	w.satisfied.Store(true)

	var preSought atomic.Int64
	pre := New(Spec[testCtx, bool]{
		State: func(context.Context, testCtx) (bool, error) {
			preSought.Add(1)
			return true, nil
		},
	})
	g := w.goal("already met").Requires(pre)

	ok, err := g.Seek(context.Background(), testCtx{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 0, w.actions.Load())
	assert.EqualValues(t, 0, preSought.Load())
}

func TestSeekActionAtMostOnce(t *testing.T) {
	var actions atomic.Int64
	g := New(Spec[testCtx, bool]{
		State: func(context.Context, testCtx) (bool, error) { return false, nil },
		Action: func(context.Context, testCtx, bool) error {
			actions.Add(1)
			return nil // the action does not fix the world
		},
	})

	ok, err := g.Seek(context.Background(), testCtx{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 1, actions.Load())
}

func TestSeekBareTestableFails(t *testing.T) {
	g := New(Spec[testCtx, bool]{
		State: func(context.Context, testCtx) (bool, error) { return false, nil },
	})
	ok, err := g.Seek(context.Background(), testCtx{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSeekPreconditionOrdering(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(e string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}

	preMet := false
	pre := New(Spec[testCtx, bool]{
		State: func(context.Context, testCtx) (bool, error) { return preMet, nil },
		Action: func(context.Context, testCtx, bool) error {
			record("pre-action")
			preMet = true
			return nil
		},
	})

	met := false
	g := New(Spec[testCtx, bool]{
		State: func(context.Context, testCtx) (bool, error) { return met, nil },
		Action: func(context.Context, testCtx, bool) error {
			record("action")
			met = true
			return nil
		},
		Requires: pre,
	})

	ok, err := g.Seek(context.Background(), testCtx{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"pre-action", "action"}, events)
}

func TestSeekPreconditionBlocksAction(t *testing.T) {
	var actions atomic.Int64
	g := New(Spec[testCtx, bool]{
		State: func(context.Context, testCtx) (bool, error) { return false, nil },
		Action: func(context.Context, testCtx, bool) error {
			actions.Add(1)
			return nil
		},
		Requires: Never[testCtx](),
	})

	ok, err := g.Seek(context.Background(), testCtx{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 0, actions.Load())
}

func TestSeekStateNotFoundDemotion(t *testing.T) {
	found := false
	var sawSnapshot string
	g := New(Spec[testCtx, string]{
		State: func(context.Context, testCtx) (string, error) {
			if !found {
				return "", NewStateNotFound("no such state", nil)
			}
			return "content", nil
		},
		Test: func(_ testCtx, s string) bool { return s == "content" },
		Action: func(_ context.Context, _ testCtx, s string) error {
			// The action still runs, with the empty snapshot.
			sawSnapshot = s
			found = true
			return nil
		},
	})

	ok, err := g.Seek(context.Background(), testCtx{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", sawSnapshot)
}

func TestSeekStateNotFoundOnBareTestable(t *testing.T) {
	g := New(Spec[testCtx, string]{
		State: func(context.Context, testCtx) (string, error) {
			return "", NewStateNotFound("unobservable", nil)
		},
	})
	ok, err := g.Seek(context.Background(), testCtx{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSeekProbeErrorPropagates(t *testing.T) {
	boom := errors.New("disk on fire")
	g := New(Spec[testCtx, bool]{
		State: func(context.Context, testCtx) (bool, error) { return false, boom },
	}).WithDescription(func(testCtx) string { return "doomed" })

	ok, err := g.Seek(context.Background(), testCtx{})
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)

	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, ErrorClassProbe, engineErr.Class)
	assert.Equal(t, "doomed", engineErr.Goal)
}

func TestSeekActionErrorPropagates(t *testing.T) {
	boom := errors.New("permission denied")
	g := New(Spec[testCtx, bool]{
		State:  func(context.Context, testCtx) (bool, error) { return false, nil },
		Action: func(context.Context, testCtx, bool) error { return boom },
	})

	ok, err := g.Seek(context.Background(), testCtx{})
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)

	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, ErrorClassAction, engineErr.Class)
}

func TestSeekPreconditionErrorPropagates(t *testing.T) {
	boom := errors.New("probe exploded")
	pre := New(Spec[testCtx, bool]{
		State: func(context.Context, testCtx) (bool, error) { return false, boom },
	})
	g := New(Spec[testCtx, bool]{
		State:    func(context.Context, testCtx) (bool, error) { return false, nil },
		Action:   func(context.Context, testCtx, bool) error { return nil },
		Requires: pre,
	})

	_, err := g.Seek(context.Background(), testCtx{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestSeekToleratesRereadFailureBeforeAction(t *testing.T) {
	// The second read (between pre-conditions and action) fails hard;
	// the engine substitutes the empty snapshot and carries on.
	reads := 0
	fixed := false
	g := New(Spec[testCtx, string]{
		State: func(context.Context, testCtx) (string, error) {
			reads++
			switch reads {
			case 2:
				return "", errors.New("flaky read")
			default:
				if fixed {
					return "done", nil
				}
				return "pending", nil
			}
		},
		Test: func(_ testCtx, s string) bool { return s == "done" },
		Action: func(_ context.Context, _ testCtx, s string) error {
			assert.Equal(t, "", s)
			fixed = true
			return nil
		},
	})

	ok, err := g.Seek(context.Background(), testCtx{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSeekTraceLines(t *testing.T) {
	log := &recordingLogger{}
	w := &world{}
	g := w.goal("file exists")

	ok, err := g.Seek(context.Background(), testCtx{}, WithLogger(log))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{
		"file exists: checking...",
		"file exists: running the action...",
		"file exists: ready!",
	}, log.all())
}

func TestSeekTraceLinesWithPreconditions(t *testing.T) {
	log := &recordingLogger{}
	preMet := false
	pre := New(Spec[testCtx, bool]{
		State: func(context.Context, testCtx) (bool, error) { return preMet, nil },
		Action: func(context.Context, testCtx, bool) error {
			preMet = true
			return nil
		},
		Description: func(testCtx) string { return "directory exists" },
	})
	met := false
	g := New(Spec[testCtx, bool]{
		State: func(context.Context, testCtx) (bool, error) { return met, nil },
		Action: func(context.Context, testCtx, bool) error {
			met = true
			return nil
		},
		Requires:    pre,
		Description: func(testCtx) string { return "config written" },
	})

	ok, err := g.Seek(context.Background(), testCtx{}, WithLogger(log))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{
		"config written: checking...",
		"config written: seeking preconditions...",
		"directory exists: checking...",
		"directory exists: running the action...",
		"directory exists: ready!",
		"config written: preconditions met!",
		"config written: running the action...",
		"config written: ready!",
	}, log.all())
}

func TestSeekAnonymousGoalTrace(t *testing.T) {
	log := &recordingLogger{}
	g := FromState(func(context.Context, testCtx) (bool, error) { return true, nil })

	ok, err := g.Seek(context.Background(), testCtx{}, WithLogger(log))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{
		"anonymous goal: checking...",
		"anonymous goal: ready!",
	}, log.all())
}

func TestSeekFailedActionTrace(t *testing.T) {
	log := &recordingLogger{}
	g := New(Spec[testCtx, bool]{
		State:       func(context.Context, testCtx) (bool, error) { return false, nil },
		Action:      func(context.Context, testCtx, bool) error { return nil },
		Description: func(testCtx) string { return "stubborn" },
	})

	ok, err := g.Seek(context.Background(), testCtx{}, WithLogger(log))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{
		"stubborn: checking...",
		"stubborn: running the action...",
		"stubborn: failed!",
	}, log.all())
}
