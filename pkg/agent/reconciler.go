// Package agent provides the self-healing runtime around the goal
// engine: a reconciler that keeps seeking a goal on an interval,
// retries with exponential backoff while the goal stays unreached, and
// optionally reacts to filesystem changes with an immediate reconcile.
package agent

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/balena-io-experimental/goal-engine/pkg/goal"
	"github.com/balena-io-experimental/goal-engine/pkg/telemetry"
)

// Reconcile trigger label values.
const (
	TriggerInitial  = "initial"
	TriggerInterval = "interval"
	TriggerRetry    = "retry"
	TriggerWatch    = "watch"
)

// Options configures a Reconciler.
type Options struct {
	// Interval is the cadence of periodic reconciles while the goal is
	// reached.
	Interval time.Duration

	// BackoffInitial is the first retry delay after an unreached or
	// failed reconcile.
	BackoffInitial time.Duration

	// BackoffMax caps the retry delay.
	BackoffMax time.Duration

	// BackoffMultiplier grows the retry delay.
	BackoffMultiplier float64

	// WatchPaths lists filesystem paths whose events trigger an
	// immediate reconcile.
	WatchPaths []string
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 30 * time.Second
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 5 * time.Minute
	}
	if o.BackoffMultiplier < 1 {
		o.BackoffMultiplier = 2.0
	}
	return o
}

// Reconciler keeps one goal sought. It owns no state beyond the goal
// graph and its scheduling; every reconcile reads the world afresh.
type Reconciler[C any] struct {
	goal    *goal.Goal[C]
	provide func() C
	opts    Options

	tel     *telemetry.Telemetry
	log     *telemetry.Logger
	sink    goal.Logger
	monitor goal.Monitor
}

// New creates a reconciler for a goal. provide builds the context for
// each traversal, so changing inputs are re-read on every reconcile.
func New[C any](g *goal.Goal[C], provide func() C, opts Options, tel *telemetry.Telemetry) *Reconciler[C] {
	log := tel.Logger.NewComponentLogger("agent")
	return &Reconciler[C]{
		goal:    g,
		provide: provide,
		opts:    opts.withDefaults(),
		tel:     tel,
		log:     log,
		sink:    tel.Logger.SeekSink("engine"),
		monitor: tel.Metrics.Monitor(),
	}
}

// RunOnce performs a single reconcile and reports whether the goal was
// reached.
func (r *Reconciler[C]) RunOnce(ctx context.Context) (bool, error) {
	return r.reconcile(ctx, TriggerInitial)
}

// Run reconciles until the context is cancelled: immediately, then on
// the configured interval, under backoff while the goal stays
// unreached, and on watch events. It returns nil on clean shutdown.
func (r *Reconciler[C]) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	watchCh := make(chan struct{}, 1)
	if len(r.opts.WatchPaths) > 0 {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		for _, p := range r.opts.WatchPaths {
			if err := watcher.Add(p); err != nil {
				r.log.WithError(err).Warnf("cannot watch %s", p)
			}
		}
		g.Go(func() error {
			defer watcher.Close()
			return r.watch(ctx, watcher, watchCh)
		})
	}

	g.Go(func() error {
		return r.loop(ctx, watchCh)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// loop is the scheduling core: a single timer whose delay is either
// the steady interval or the current backoff, preempted by watch
// events.
func (r *Reconciler[C]) loop(ctx context.Context, watchCh <-chan struct{}) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.opts.BackoffInitial
	bo.MaxInterval = r.opts.BackoffMax
	bo.Multiplier = r.opts.BackoffMultiplier
	// The loop retries for as long as the process lives.
	bo.MaxElapsedTime = 0
	bo.Reset()

	trigger := TriggerInitial
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		case <-watchCh:
			trigger = TriggerWatch
			if !timer.Stop() {
				// Drain a concurrently fired timer so Reset below
				// starts from a clean state.
				select {
				case <-timer.C:
				default:
				}
			}
		}

		reached, err := r.reconcile(ctx, trigger)
		if ctx.Err() != nil {
			return nil
		}

		if err != nil || !reached {
			timer.Reset(bo.NextBackOff())
			trigger = TriggerRetry
			continue
		}

		bo.Reset()
		timer.Reset(r.opts.Interval)
		trigger = TriggerInterval
	}
}

// watch forwards filesystem events as coalesced reconcile triggers.
func (r *Reconciler[C]) watch(ctx context.Context, watcher *fsnotify.Watcher, watchCh chan<- struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			r.log.Debugf("filesystem event: %s", event)
			select {
			case watchCh <- struct{}{}:
			default:
				// A reconcile is already pending.
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.log.WithError(err).Warn("watcher error")
		}
	}
}

// reconcile performs one instrumented seek traversal.
func (r *Reconciler[C]) reconcile(ctx context.Context, trigger string) (bool, error) {
	runID := uuid.NewString()
	c := r.provide()
	description := r.goal.Describe(c)

	r.tel.Metrics.RecordReconcile(trigger)

	// Event delivery is best-effort.
	_ = r.tel.Events.PublishReconcileTriggered(runID, trigger)
	_ = r.tel.Events.PublishSeekStarted(runID, description, trigger)

	spanCtx, span := r.tel.Tracer.StartReconcileSpan(ctx, runID, trigger)
	r.tel.Metrics.RecordSeekStarted()
	start := time.Now()

	reached, err := r.goal.Seek(spanCtx, c,
		goal.WithSeekID(runID),
		goal.WithLogger(r.sink),
		goal.WithMonitor(r.monitor),
	)

	r.tel.Metrics.RecordSeekSettled()
	elapsed := time.Since(start)

	log := r.log.WithSeekID(runID).WithGoal(description)
	switch {
	case err != nil:
		telemetry.RecordError(span, err)
		r.tel.Metrics.RecordError(errorClass(err))
		_ = r.tel.Events.PublishSeekFailed(runID, description, err.Error())
		log.WithError(err).Error("reconcile failed")
	case reached:
		telemetry.RecordSuccess(span)
		_ = r.tel.Events.PublishSeekCompleted(runID, description, true, elapsed)
		log.Debug("goal reached")
	default:
		telemetry.RecordSuccess(span)
		_ = r.tel.Events.PublishSeekCompleted(runID, description, false, elapsed)
		log.Warn("goal not reached, will retry")
	}
	span.End()

	return reached, err
}

// errorClass extracts the engine error classification for metrics.
func errorClass(err error) string {
	var ee *goal.EngineError
	if errors.As(err, &ee) {
		return string(ee.Class)
	}
	return "unknown"
}
