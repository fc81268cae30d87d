// Package goal provides a declarative goal engine for building
// self-healing agents: the operator describes a desired system
// condition as a composite goal graph and invokes Seek, which drives
// the observable world toward that condition through idempotent probes
// and actions.
//
// # Overview
//
// A goal is built from three small, composable pieces:
//
//   - State: reads a typed snapshot of the world for a context
//   - Test: a pure predicate over (context, snapshot)
//   - Action: an effectful mutator that remediates an unmet goal
//
// Goals compose into a DAG through four operators, covering two axes
// (sequential vs. parallel, conjunctive vs. disjunctive):
//
//   - And: sequential, stop at the first unreached child
//   - Or: sequential, stop at the first reached child; child errors
//     mean "not true yet, try the next"
//   - All: parallel, every child must be reached; a single child error
//     aborts the operation
//   - Any: parallel, one reached child suffices; child errors are
//     absorbed
//
// # Evaluation
//
// Seek walks the graph recursively. For a leaf it probes (state read
// followed by the test); if the probe fails and the goal carries an
// action, it first seeks the optional pre-condition, re-reads the
// state, runs the action at most once, and re-verifies. Returning
// false is a normal, recoverable outcome — it means "the goal could
// not be reached in this attempt". Errors are reserved for unexpected
// probe or action failures.
//
// # State absence
//
// A state reader may return the distinguished signal built by
// NewStateNotFound to mean "the world does not currently present a
// readable snapshot". The engine demotes it to a failing test instead
// of propagating it, so a missing file or a not-yet-started service
// reads as "goal not met" rather than as a fault.
//
// # Context re-mapping
//
// MapContext embeds a sub-goal authored against one context type into
// a graph with another, mapping every state, test, action and
// description. It is the mechanism for plugging a generic sub-goal
// into a more specific parent.
//
// # Example
//
// Ensure a configuration line is present, creating the file first when
// needed:
//
//	exists := goal.New(goal.Spec[Conf, bool]{
//		State:  probes.FileExists(path),
//		Action: probes.Touch(path),
//	})
//	line := goal.New(goal.Spec[Conf, string]{
//		State:    probes.FileContents(path),
//		Test:     probes.HasLine(wanted),
//		Action:   probes.AppendLine(path, wanted),
//		Requires: exists,
//	})
//	ok, err := line.Seek(ctx, conf)
//
// # Concurrency
//
// Composite states and the parallel operators launch all children
// concurrently; And/Or are strictly sequential. Siblings under a
// parallel operator may run their actions concurrently, so composite
// goals whose children touch the same resource should prefer And/Or.
// The engine itself holds no mutable state and a Goal is safe for
// concurrent Seek calls; coordination between independent top-level
// seeks is the host's concern.
package goal
