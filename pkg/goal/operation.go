package goal

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Operator identifies how an operation combines its children. The four
// operators cover two axes: sequential vs. parallel evaluation, and
// conjunctive vs. disjunctive results.
type Operator string

const (
	// OpAnd evaluates children sequentially, left to right, stopping at
	// the first child that does not reach its goal.
	OpAnd Operator = "and"

	// OpOr evaluates children sequentially, left to right, stopping at
	// the first child that reaches its goal. A child that fails with an
	// error is treated as not-yet-true and evaluation continues.
	OpOr Operator = "or"

	// OpAll evaluates every child concurrently and succeeds iff all of
	// them reach their goals. A single child error aborts the operation.
	OpAll Operator = "all"

	// OpAny evaluates every child concurrently and succeeds iff at
	// least one reaches its goal. Child errors are absorbed.
	OpAny Operator = "any"
)

// conjunctive reports whether the operator requires every child to pass.
func (op Operator) conjunctive() bool {
	return op == OpAnd || op == OpAll
}

// operationNode is an internal graph node combining child nodes under
// an operator. Its aggregated state and test exist for external
// inspection and for embedding the operation where a testable interface
// is required; Seek evaluates the children directly instead.
type operationNode[C any] struct {
	op       Operator
	children []node[C]

	// keys aligns children with record keys when the operation was
	// built from a keyed record; nil for the positional tuple form.
	keys []string

	desc func(C) string
}

// readState reads every child snapshot concurrently and aggregates the
// results by position, or by key for the record form.
func (n *operationNode[C]) readState(ctx context.Context, c C) (any, error) {
	out := make([]any, len(n.children))
	g, ctx := errgroup.WithContext(ctx)
	for i, child := range n.children {
		g.Go(func() error {
			v, err := child.readState(ctx, c)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if n.keys != nil {
		keyed := make(map[string]any, len(n.keys))
		for i, k := range n.keys {
			keyed[k] = out[i]
		}
		return keyed, nil
	}
	return out, nil
}

// runTest applies each child's test to its aligned snapshot slot and
// folds the results under the operator: conjunction for and/all,
// disjunction for or/any.
func (n *operationNode[C]) runTest(c C, s any) bool {
	slots := n.alignSnapshot(s)
	for i, child := range n.children {
		passed := child.runTest(c, slots[i])
		if n.op.conjunctive() {
			if !passed {
				return false
			}
		} else if passed {
			return true
		}
	}
	return n.op.conjunctive()
}

// alignSnapshot splits an aggregated snapshot back into per-child
// slots. Snapshots of an unexpected shape yield nil slots so that the
// child tests decide the outcome.
func (n *operationNode[C]) alignSnapshot(s any) []any {
	slots := make([]any, len(n.children))
	switch agg := s.(type) {
	case []any:
		copy(slots, agg)
	case map[string]any:
		for i, k := range n.keys {
			slots[i] = agg[k]
		}
	}
	return slots
}

func (n *operationNode[C]) describe(c C) string {
	if n.desc == nil {
		return ""
	}
	return n.desc(c)
}

// newOperation builds an operation node, enforcing the non-empty
// children invariant.
func newOperation[C any](op Operator, children []node[C], keys []string) *operationNode[C] {
	if len(children) == 0 {
		panic(NewValidationError("operation requires at least one child"))
	}
	return &operationNode[C]{op: op, children: children, keys: keys}
}
