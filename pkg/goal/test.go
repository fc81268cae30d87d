package goal

import (
	"reflect"
	"sort"
)

// Test is a pure predicate over a context and a snapshot. Tests must be
// total, synchronous and free of side effects; the engine gives no
// guarantee about how often or in which order they run.
type Test[C, T any] func(c C, s T) bool

// MapTest adapts a predicate authored against context C so it can be
// used from a context C2.
func MapTest[C2, C, T any](t Test[C, T], f func(C2) C) Test[C2, T] {
	return func(c C2, s T) bool {
		return t(f(c), s)
	}
}

// AllTests combines positional predicates into a conjunction over an
// aligned tuple snapshot: the composite returns true iff every child
// returns true on its snapshot slot.
func AllTests[C any](tests ...Test[C, any]) Test[C, []any] {
	return func(c C, s []any) bool {
		for i, t := range tests {
			if i >= len(s) || !t(c, s[i]) {
				return false
			}
		}
		return true
	}
}

// AnyTests combines positional predicates into a disjunction over an
// aligned tuple snapshot: the composite returns true iff at least one
// child returns true on its snapshot slot.
func AnyTests[C any](tests ...Test[C, any]) Test[C, []any] {
	return func(c C, s []any) bool {
		for i, t := range tests {
			if i < len(s) && t(c, s[i]) {
				return true
			}
		}
		return false
	}
}

// KeyedAllTests is the record form of AllTests: keys align the
// predicates with the snapshot record.
func KeyedAllTests[C any](tests map[string]Test[C, any]) Test[C, map[string]any] {
	return func(c C, s map[string]any) bool {
		for k, t := range tests {
			if !t(c, s[k]) {
				return false
			}
		}
		return true
	}
}

// KeyedAnyTests is the record form of AnyTests.
func KeyedAnyTests[C any](tests map[string]Test[C, any]) Test[C, map[string]any] {
	return func(c C, s map[string]any) bool {
		for k, t := range tests {
			if t(c, s[k]) {
				return true
			}
		}
		return false
	}
}

// truthy reports whether a snapshot passes the default test: nil,
// false, length-zero strings, slices, maps and arrays, and the zero
// value of any other kind (0, zero structs) fail; everything else
// passes.
func truthy(s any) bool {
	if s == nil {
		return false
	}
	if b, ok := s.(bool); ok {
		return b
	}
	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return v.Len() > 0
	default:
		return !v.IsZero()
	}
}

// sortedKeys returns the keys of a map in lexical order, giving keyed
// composites a stable child ordering.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
