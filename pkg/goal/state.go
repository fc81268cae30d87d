package goal

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// State reads a typed snapshot of the world for a given context. A
// reader may return the state-absence signal (see NewStateNotFound) to
// mean "unobservable, treat as a failing test"; any other error is
// fatal for the subtree being evaluated.
type State[C, T any] func(ctx context.Context, c C) (T, error)

// MapState adapts a reader authored against context C so it can be used
// from a context C2, by mapping the context with f before each read.
func MapState[C2, C, T any](s State[C, T], f func(C2) C) State[C2, T] {
	return func(ctx context.Context, c C2) (T, error) {
		return s(ctx, f(c))
	}
}

// TupleState combines positional readers into a single reader that runs
// all children concurrently and returns their snapshots ordered by
// position. If any child fails, the composite fails with the
// first-observed error; a state-absence signal from any child
// propagates as absence for the whole tuple.
func TupleState[C any](readers ...State[C, any]) State[C, []any] {
	return func(ctx context.Context, c C) ([]any, error) {
		out := make([]any, len(readers))
		g, ctx := errgroup.WithContext(ctx)
		for i, read := range readers {
			g.Go(func() error {
				v, err := read(ctx, c)
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
		return out, nil
	}
}

// KeyedState combines a record of readers into a single reader that
// runs all children concurrently and returns a snapshot record with the
// same keys. Failure semantics match TupleState.
func KeyedState[C any](readers map[string]State[C, any]) State[C, map[string]any] {
	keys := sortedKeys(readers)
	return func(ctx context.Context, c C) (map[string]any, error) {
		values := make([]any, len(keys))
		g, ctx := errgroup.WithContext(ctx)
		for i, k := range keys {
			read := readers[k]
			g.Go(func() error {
				v, err := read(ctx, c)
				if err != nil {
					return err
				}
				values[i] = v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		out := make(map[string]any, len(keys))
		for i, k := range keys {
			out[k] = values[i]
		}
		return out, nil
	}
}
