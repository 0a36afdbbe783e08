// Package collections supplies the small generic containers used by the
// symbol table (and, through its records, the Graphviz dumper): an
// insertion-ordered set
// used anywhere the spec requires "declaration order" or "insertion order"
// semantics on top of a uniqueness check (spec §3's Scope, Class, and
// BytecodeMethod all have this shape).
package collections

import "golang.org/x/exp/constraints"

// OrderedSet records values in first-insertion order while still answering
// membership queries in O(1). constraints.Ordered is required rather than
// plain comparable so the set can also expose a deterministic Sorted() view
// for callers (such as the Graphviz dumper) that want alphabetical rather
// than insertion order.
type OrderedSet[T constraints.Ordered] struct {
	order []T
	index map[T]int
}

// NewOrderedSet returns an empty set.
func NewOrderedSet[T constraints.Ordered]() *OrderedSet[T] {
	return &OrderedSet[T]{index: make(map[T]int)}
}

// Add inserts v if absent and reports whether it was newly inserted.
func (s *OrderedSet[T]) Add(v T) bool {
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = len(s.order)
	s.order = append(s.order, v)
	return true
}

// Contains reports whether v has been added.
func (s *OrderedSet[T]) Contains(v T) bool {
	_, ok := s.index[v]
	return ok
}

// Values returns the elements in insertion order. The slice is owned by the
// caller; mutating it does not affect the set.
func (s *OrderedSet[T]) Values() []T {
	out := make([]T, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of distinct elements added.
func (s *OrderedSet[T]) Len() int {
	return len(s.order)
}

// Sorted returns the elements in ascending order, independent of insertion
// order.
func (s *OrderedSet[T]) Sorted() []T {
	out := s.Values()
	insertionSort(out)
	return out
}

// insertionSort avoids pulling in "sort" for a generic comparator when the
// sets involved (class/method/field counts) are always small.
func insertionSort[T constraints.Ordered](xs []T) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}
