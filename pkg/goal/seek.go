package goal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Logger is the trace sink consumed by the engine: one info-level line
// per probe, action and outcome. Libraries default to the no-op sink;
// hosts inject their own with WithLogger.
type Logger interface {
	Info(msg string)
}

// NopLogger discards all trace output.
type NopLogger struct{}

// Info implements Logger.
func (NopLogger) Info(string) {}

// Monitor receives engine events for metrics and event publishing. All
// methods are called synchronously from the evaluator; implementations
// must be fast and safe for concurrent use, since parallel operators
// evaluate siblings concurrently.
type Monitor interface {
	// ProbeChecked reports the outcome of a probe. absent is true when
	// the state reader raised the state-absence signal.
	ProbeChecked(seekID, goal string, satisfied, absent bool)

	// ActionStarted reports that a remediation action is about to run.
	ActionStarted(seekID, goal string)

	// ActionFinished reports that a remediation action has settled.
	ActionFinished(seekID, goal string, err error)

	// SeekFinished reports the outcome of a top-level Seek call.
	SeekFinished(seekID, goal string, satisfied bool, err error, elapsed time.Duration)
}

// NopMonitor ignores all engine events.
type NopMonitor struct{}

// ProbeChecked implements Monitor.
func (NopMonitor) ProbeChecked(string, string, bool, bool) {}

// ActionStarted implements Monitor.
func (NopMonitor) ActionStarted(string, string) {}

// ActionFinished implements Monitor.
func (NopMonitor) ActionFinished(string, string, error) {}

// SeekFinished implements Monitor.
func (NopMonitor) SeekFinished(string, string, bool, error, time.Duration) {}

// seekOptions carries the per-traversal collaborators.
type seekOptions struct {
	log     Logger
	monitor Monitor
	seekID  string
}

// Option configures a single Seek traversal.
type Option func(*seekOptions)

// WithLogger injects the trace sink for a traversal.
func WithLogger(l Logger) Option {
	return func(o *seekOptions) {
		o.log = l
	}
}

// WithMonitor injects the engine event monitor for a traversal.
func WithMonitor(m Monitor) Option {
	return func(o *seekOptions) {
		o.monitor = m
	}
}

// WithSeekID stamps the traversal with a caller-chosen identifier
// instead of a generated one. The agent runtime uses this to correlate
// engine events with its reconcile runs.
func WithSeekID(id string) Option {
	return func(o *seekOptions) {
		o.seekID = id
	}
}

func newSeekOptions(opts []Option) *seekOptions {
	o := &seekOptions{
		log:     NopLogger{},
		monitor: NopMonitor{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.seekID == "" {
		o.seekID = uuid.NewString()
	}
	return o
}

// seekNode is the engine's single recursive procedure. It returns true
// when the node's condition holds (possibly after remediation), false
// when the goal could not be reached in this attempt, and an error only
// on unexpected failures from user-supplied probes or actions.
func seekNode[C any](ctx context.Context, n node[C], c C, o *seekOptions) (bool, error) {
	// Operations delegate entirely to their children; no probe or
	// action runs at this level.
	if op, ok := n.(*operationNode[C]); ok {
		return seekOperation(ctx, op, c, o)
	}

	desc := describeNode(n, c)
	o.log.Info(desc + ": checking...")

	passed, err := probeNode(ctx, n, c, o, desc)
	if err != nil {
		return false, err
	}
	if passed {
		o.log.Info(desc + ": ready!")
		return true, nil
	}

	act, ok := n.(actionable[C])
	if !ok || !act.hasAction() {
		o.log.Info(desc + ": not ready")
		return false, nil
	}

	if pre := act.pre(); pre != nil {
		o.log.Info(desc + ": seeking preconditions...")
		met, err := seekNode(ctx, pre, c, o)
		if err != nil {
			return false, err
		}
		if !met {
			o.log.Info(desc + ": failed!")
			return false, nil
		}
		o.log.Info(desc + ": preconditions met!")
	}

	// Re-read the state: seeking the pre-conditions may have changed
	// the world. This read tolerates any failure, including absence, by
	// substituting the empty snapshot.
	var snapshot any
	if s, err := n.readState(ctx, c); err == nil {
		snapshot = s
	}

	o.log.Info(desc + ": running the action...")
	o.monitor.ActionStarted(o.seekID, desc)
	err = act.runAction(ctx, c, snapshot)
	o.monitor.ActionFinished(o.seekID, desc, err)
	if err != nil {
		return false, NewActionError("action failed", err).WithGoal(desc)
	}

	passed, err = probeNode(ctx, n, c, o, desc)
	if err != nil {
		return false, err
	}
	if passed {
		o.log.Info(desc + ": ready!")
		return true, nil
	}
	o.log.Info(desc + ": failed!")
	return false, nil
}

// probeNode runs a state read followed by the node's test, demoting the
// state-absence signal to a failing test.
func probeNode[C any](ctx context.Context, n node[C], c C, o *seekOptions, desc string) (bool, error) {
	s, err := n.readState(ctx, c)
	if err != nil {
		if IsStateNotFound(err) {
			o.monitor.ProbeChecked(o.seekID, desc, false, true)
			return false, nil
		}
		return false, NewProbeError("reading state failed", err).WithGoal(desc)
	}
	passed := n.runTest(c, s)
	o.monitor.ProbeChecked(o.seekID, desc, passed, false)
	return passed, nil
}

// seekOperation evaluates an operation's children by the operator's
// rule and returns the aggregated truth.
func seekOperation[C any](ctx context.Context, op *operationNode[C], c C, o *seekOptions) (bool, error) {
	switch op.op {
	case OpAnd:
		// Sequential conjunction: stop at the first child that does not
		// reach its goal; child errors abort the operation.
		for _, child := range op.children {
			ok, err := seekNode(ctx, child, c, o)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case OpOr:
		// Sequential disjunction: stop at the first child that reaches
		// its goal. A child error means "not true yet, try the next".
		for _, child := range op.children {
			ok, err := seekNode(ctx, child, c, o)
			if err == nil && ok {
				return true, nil
			}
		}
		return false, nil

	case OpAll:
		// Parallel conjunction: every child is launched; a single child
		// error aborts the operation.
		results := make([]bool, len(op.children))
		g, gctx := errgroup.WithContext(ctx)
		for i, child := range op.children {
			g.Go(func() error {
				ok, err := seekNode(gctx, child, c, o)
				if err != nil {
					return err
				}
				results[i] = ok
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return false, err
		}
		for _, ok := range results {
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case OpAny:
		// Parallel disjunction: every child is launched; errors from
		// losing siblings are absorbed, and the operation is true iff
		// at least one child fulfills with true.
		results := make([]bool, len(op.children))
		var wg sync.WaitGroup
		for i, child := range op.children {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, err := seekNode(ctx, child, c, o); err == nil {
					results[i] = ok
				}
			}()
		}
		wg.Wait()
		for _, ok := range results {
			if ok {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, NewValidationError("unknown operator").WithGoal(describeNode[C](op, c))
	}
}
