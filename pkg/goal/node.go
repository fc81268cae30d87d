package goal

import "context"

// node is the single recursive datatype of the goal graph. Every
// variant shares the state + test prefix; capabilities beyond it are
// discovered by type assertion (see actionable and described).
//
// Snapshots are erased to any at the graph level: leaves are built from
// typed State/Test/Action functions whose snapshot type is captured in
// closures at construction time.
type node[C any] interface {
	// readState reads a snapshot of the world.
	readState(ctx context.Context, c C) (any, error)

	// runTest evaluates the node's predicate against a snapshot.
	runTest(c C, s any) bool
}

// actionable is the capability of a node that carries a remediation
// action and an optional pre-condition sub-node.
type actionable[C any] interface {
	node[C]

	// pre returns the pre-condition sub-node, or nil.
	pre() node[C]

	// hasAction reports whether a remediation action is attached. A
	// node carrying only a pre-condition is not yet actionable.
	hasAction() bool

	// runAction invokes the remediation action.
	runAction(ctx context.Context, c C, s any) error
}

// described is the capability of a node that carries a logging label.
type described[C any] interface {
	// describe renders the node's label for a context.
	describe(c C) string
}

// testableNode is a leaf assertion without remediation.
type testableNode[C any] struct {
	state State[C, any]
	test  Test[C, any]
	desc  func(C) string
}

func (n *testableNode[C]) readState(ctx context.Context, c C) (any, error) {
	return n.state(ctx, c)
}

func (n *testableNode[C]) runTest(c C, s any) bool {
	return n.test(c, s)
}

func (n *testableNode[C]) describe(c C) string {
	if n.desc == nil {
		return ""
	}
	return n.desc(c)
}

// actionableNode is a testable extended with a remediation action and
// an optional pre-condition.
type actionableNode[C any] struct {
	testableNode[C]
	action   Action[C, any]
	requires node[C]
}

func (n *actionableNode[C]) pre() node[C] {
	return n.requires
}

func (n *actionableNode[C]) hasAction() bool {
	return n.action != nil
}

func (n *actionableNode[C]) runAction(ctx context.Context, c C, s any) error {
	return n.action(ctx, c, s)
}

// describeNode renders a node's label, falling back to the anonymous
// placeholder used in trace output.
func describeNode[C any](n node[C], c C) string {
	if d, ok := n.(described[C]); ok {
		if s := d.describe(c); s != "" {
			return s
		}
	}
	return "anonymous goal"
}

// mapNode re-maps the context of a whole subgraph: every state, test,
// action, description and recursive child or pre-condition is adapted
// with f, and the variant tag is preserved.
func mapNode[C2, C any](n node[C], f func(C2) C) node[C2] {
	switch t := n.(type) {
	case *operationNode[C]:
		children := make([]node[C2], len(t.children))
		for i, child := range t.children {
			children[i] = mapNode(child, f)
		}
		return &operationNode[C2]{
			op:       t.op,
			children: children,
			keys:     t.keys,
			desc:     mapDescription(t.desc, f),
		}
	case *actionableNode[C]:
		mapped := &actionableNode[C2]{
			testableNode: testableNode[C2]{
				state: MapState(t.state, f),
				test:  MapTest(t.test, f),
				desc:  mapDescription(t.desc, f),
			},
		}
		if t.action != nil {
			mapped.action = MapAction(t.action, f)
		}
		if t.requires != nil {
			mapped.requires = mapNode(t.requires, f)
		}
		return mapped
	case *testableNode[C]:
		return &testableNode[C2]{
			state: MapState(t.state, f),
			test:  MapTest(t.test, f),
			desc:  mapDescription(t.desc, f),
		}
	default:
		// The graph is closed over the three variants above.
		panic(NewValidationError("unknown node variant"))
	}
}

func mapDescription[C2, C any](d func(C) string, f func(C2) C) func(C2) string {
	if d == nil {
		return nil
	}
	return func(c C2) string {
		return d(f(c))
	}
}
