package ledger

import (
	"cmp"
	"slices"
)

type set[T cmp.Ordered] map[T]struct{}

func newSet[T cmp.Ordered]() set[T] {
	return make(set[T])
}

func (s set[T]) add(v T) {
	s[v] = struct{}{}
}

func (s set[T]) remove(v T) {
	delete(s, v)
}

func (s set[T]) has(v T) bool {
	_, ok := s[v]
	return ok
}

func (s set[T]) sorted() []T {
	out := make([]T, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// intersect returns the sorted members present in both sets.
func intersect[T cmp.Ordered](a, b set[T]) []T {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make([]T, 0, len(a))
	for v := range a {
		if b.has(v) {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}
