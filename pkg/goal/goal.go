package goal

import (
	"context"
	"time"
)

// Goal is the user-facing handle over one node of the goal graph.
// Goals are immutable values: every combinator returns a new Goal and
// sub-graphs may be shared between parents.
type Goal[C any] struct {
	node node[C]
}

// Spec describes a leaf goal with typed snapshot handling. State is
// required; a nil Test defaults to the truthiness of the snapshot;
// Action and Requires turn the goal into an actionable one.
type Spec[C, T any] struct {
	// State reads the snapshot this goal is tested against.
	State State[C, T]

	// Test decides whether the goal is met. Defaults to snapshot
	// truthiness when nil.
	Test Test[C, T]

	// Action remediates an unmet goal. Optional.
	Action Action[C, T]

	// Requires is the pre-condition sought before the action runs.
	// Optional; only meaningful together with an action.
	Requires *Goal[C]

	// Description labels the goal in trace output. Optional.
	Description func(C) string
}

// New builds a Goal from a typed spec.
func New[C, T any](spec Spec[C, T]) *Goal[C] {
	if spec.State == nil {
		panic(NewValidationError("goal requires a state reader"))
	}
	test := eraseTest(spec.Test)
	if spec.Test == nil {
		test = func(_ C, s any) bool { return truthy(s) }
	}
	leaf := testableNode[C]{
		state: eraseState(spec.State),
		test:  test,
		desc:  spec.Description,
	}
	if spec.Action == nil && spec.Requires == nil {
		return &Goal[C]{node: &leaf}
	}
	n := &actionableNode[C]{testableNode: leaf}
	if spec.Action != nil {
		n.action = eraseAction(spec.Action)
	}
	if spec.Requires != nil {
		n.requires = spec.Requires.node
	}
	return &Goal[C]{node: n}
}

// FromState builds a Goal from a bare state reader, testing the
// truthiness of its snapshot.
func FromState[C, T any](state State[C, T]) *Goal[C] {
	return New(Spec[C, T]{State: state})
}

// Tuple aggregates goals positionally: the aggregated state is the
// tuple of the children's snapshots and the aggregated test is their
// conjunction. Seeking a tuple seeks every child concurrently.
func Tuple[C any](goals ...*Goal[C]) *Goal[C] {
	return All(goals...)
}

// Keyed aggregates a record of goals: the aggregated state is a record
// of the children's snapshots under the same keys. Seeking a keyed goal
// seeks every child concurrently.
func Keyed[C any](goals map[string]*Goal[C]) *Goal[C] {
	keys := sortedKeys(goals)
	children := make([]node[C], len(keys))
	for i, k := range keys {
		children[i] = goals[k].node
	}
	return &Goal[C]{node: newOperation(OpAll, children, keys)}
}

// And combines goals sequentially: seeking stops at the first child
// that cannot be reached.
func And[C any](goals ...*Goal[C]) *Goal[C] {
	return newOperationGoal(OpAnd, goals)
}

// Or combines goals sequentially: seeking stops at the first child
// that is reached; a child failure moves on to the next child.
func Or[C any](goals ...*Goal[C]) *Goal[C] {
	return newOperationGoal(OpOr, goals)
}

// All combines goals in parallel: every child is sought concurrently
// and all of them must be reached.
func All[C any](goals ...*Goal[C]) *Goal[C] {
	return newOperationGoal(OpAll, goals)
}

// Any combines goals in parallel: every child is sought concurrently
// and at least one of them must be reached.
func Any[C any](goals ...*Goal[C]) *Goal[C] {
	return newOperationGoal(OpAny, goals)
}

func newOperationGoal[C any](op Operator, goals []*Goal[C]) *Goal[C] {
	children := make([]node[C], len(goals))
	for i, g := range goals {
		children[i] = g.node
	}
	return &Goal[C]{node: newOperation(op, children, nil)}
}

// Always is unconditionally satisfied.
func Always[C any]() *Goal[C] {
	return New(Spec[C, bool]{
		State:       func(context.Context, C) (bool, error) { return true, nil },
		Description: func(C) string { return "always" },
	})
}

// Never is unconditionally unsatisfied.
func Never[C any]() *Goal[C] {
	return New(Spec[C, bool]{
		State:       func(context.Context, C) (bool, error) { return false, nil },
		Description: func(C) string { return "never" },
	})
}

// MapContext embeds a goal authored against context C into a graph
// whose context is C2, mapping every state, test, action, description
// and recursive child with f. The node structure is preserved.
func MapContext[C2, C any](g *Goal[C], f func(C2) C) *Goal[C2] {
	return &Goal[C2]{node: mapNode(g.node, f)}
}

// WithAction returns a new Goal extended with a remediation action.
// Attaching an action to an operation demotes it to an actionable goal
// that keeps the operation's aggregated state and test but loses the
// operator's evaluation semantics.
func (g *Goal[C]) WithAction(action Action[C, any]) *Goal[C] {
	switch t := g.node.(type) {
	case *operationNode[C]:
		demoted := demoteOperation(t)
		demoted.action = action
		return &Goal[C]{node: demoted}
	case *actionableNode[C]:
		clone := *t
		clone.action = action
		return &Goal[C]{node: &clone}
	case *testableNode[C]:
		return &Goal[C]{node: &actionableNode[C]{testableNode: *t, action: action}}
	default:
		panic(NewValidationError("unknown node variant"))
	}
}

// Requires returns a new Goal whose action only runs once the given
// pre-condition has been sought successfully. As with WithAction, a
// pre-condition demotes an operation to an actionable goal.
func (g *Goal[C]) Requires(pre *Goal[C]) *Goal[C] {
	switch t := g.node.(type) {
	case *operationNode[C]:
		demoted := demoteOperation(t)
		demoted.requires = pre.node
		return &Goal[C]{node: demoted}
	case *actionableNode[C]:
		clone := *t
		clone.requires = pre.node
		return &Goal[C]{node: &clone}
	case *testableNode[C]:
		return &Goal[C]{node: &actionableNode[C]{testableNode: *t, requires: pre.node}}
	default:
		panic(NewValidationError("unknown node variant"))
	}
}

// WithDescription returns a new Goal carrying a context-dependent
// label used in trace output.
func (g *Goal[C]) WithDescription(description func(C) string) *Goal[C] {
	switch t := g.node.(type) {
	case *operationNode[C]:
		clone := *t
		clone.desc = description
		return &Goal[C]{node: &clone}
	case *actionableNode[C]:
		clone := *t
		clone.desc = description
		return &Goal[C]{node: &clone}
	case *testableNode[C]:
		clone := *t
		clone.desc = description
		return &Goal[C]{node: &clone}
	default:
		panic(NewValidationError("unknown node variant"))
	}
}

// Describe renders the goal's label for a context, falling back to the
// anonymous placeholder.
func (g *Goal[C]) Describe(c C) string {
	return describeNode(g.node, c)
}

// State reads the goal's snapshot. For operations this is the
// aggregated tuple or record snapshot. The state-absence signal
// propagates to the caller.
func (g *Goal[C]) State(ctx context.Context, c C) (any, error) {
	return g.node.readState(ctx, c)
}

// Test probes the goal once: it reads the state and applies the test,
// swallowing the state-absence signal into false. No action runs.
func (g *Goal[C]) Test(ctx context.Context, c C) (bool, error) {
	s, err := g.node.readState(ctx, c)
	if err != nil {
		if IsStateNotFound(err) {
			return false, nil
		}
		return false, NewProbeError("reading state failed", err).WithGoal(g.Describe(c))
	}
	return g.node.runTest(c, s), nil
}

// Seek drives the world toward the goal: it probes, backtracks to
// pre-conditions, runs remediation actions at most once per actionable
// node, and re-verifies. It returns true when the goal holds, false
// when it could not be reached in this attempt, and an error only on
// unexpected probe or action failures.
func (g *Goal[C]) Seek(ctx context.Context, c C, opts ...Option) (bool, error) {
	o := newSeekOptions(opts)
	start := time.Now()
	ok, err := seekNode(ctx, g.node, c, o)
	o.monitor.SeekFinished(o.seekID, g.Describe(c), ok, err, time.Since(start))
	return ok, err
}

// demoteOperation turns an operation into an actionable leaf that keeps
// the aggregated state and test but discards the operator tag.
func demoteOperation[C any](op *operationNode[C]) *actionableNode[C] {
	return &actionableNode[C]{
		testableNode: testableNode[C]{
			state: op.readState,
			test:  op.runTest,
			desc:  op.desc,
		},
	}
}

// eraseState hides a reader's snapshot type behind any so readers of
// different types can share one graph.
func eraseState[C, T any](s State[C, T]) State[C, any] {
	return func(ctx context.Context, c C) (any, error) {
		v, err := s(ctx, c)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// eraseTest hides a predicate's snapshot type. An empty snapshot (for
// example after the tolerated re-read failure before an action) is
// seen by the typed predicate as the zero value of T.
func eraseTest[C, T any](t Test[C, T]) Test[C, any] {
	if t == nil {
		return nil
	}
	return func(c C, s any) bool {
		v, _ := s.(T)
		return t(c, v)
	}
}

// eraseAction hides an action's snapshot type, with the same empty
// snapshot rule as eraseTest.
func eraseAction[C, T any](a Action[C, T]) Action[C, any] {
	return func(ctx context.Context, c C, s any) error {
		v, _ := s.(T)
		return a(ctx, c, v)
	}
}
