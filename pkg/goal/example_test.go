package goal_test

import (
	"context"
	"fmt"

	"github.com/balena-io-experimental/goal-engine/pkg/goal"
)

// deviceCtx is the context threaded through the example goals.
type deviceCtx struct {
	service string
}

// Example demonstrates the probe-backtrack-act cycle: the goal is
// unmet, its pre-condition is sought first, then the action runs and
// the goal is re-verified.
func Example() {
	installed := false
	running := false

	pkg := goal.New(goal.Spec[deviceCtx, bool]{
		State: func(context.Context, deviceCtx) (bool, error) { return installed, nil },
		Action: func(context.Context, deviceCtx, bool) error {
			installed = true
			return nil
		},
		Description: func(c deviceCtx) string { return c.service + " is installed" },
	})

	svc := goal.New(goal.Spec[deviceCtx, bool]{
		State: func(context.Context, deviceCtx) (bool, error) { return running, nil },
		Action: func(context.Context, deviceCtx, bool) error {
			running = true
			return nil
		},
		Requires:    pkg,
		Description: func(c deviceCtx) string { return c.service + " is running" },
	})

	ok, err := svc.Seek(context.Background(), deviceCtx{service: "ntpd"})
	fmt.Println(ok, err)
	// Output: true <nil>
}

// ExampleOr shows the sequential disjunction: the first reachable
// child wins and later children are never evaluated.
func ExampleOr() {
	g := goal.Or(
		goal.Never[deviceCtx](),
		goal.Always[deviceCtx](),
	)

	ok, _ := g.Seek(context.Background(), deviceCtx{})
	fmt.Println(ok)
	// Output: true
}

// ExampleMapContext embeds a goal authored against one context type
// into a graph with another.
func ExampleMapContext() {
	type portCtx struct{ port int }

	open := goal.New(goal.Spec[portCtx, bool]{
		State: func(_ context.Context, c portCtx) (bool, error) {
			return c.port == 443, nil
		},
		Description: func(c portCtx) string { return fmt.Sprintf("port %d is open", c.port) },
	})

	mapped := goal.MapContext(open, func(deviceCtx) portCtx {
		return portCtx{port: 443}
	})

	ok, _ := mapped.Seek(context.Background(), deviceCtx{service: "https"})
	fmt.Println(ok)
	// Output: true
}
