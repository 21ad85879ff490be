package graph

import (
	"cmp"
	"slices"
)

// Mapping is an injective correspondence between two node sets with
// constant-time lookup in both directions.
type Mapping[T cmp.Ordered] struct {
	forward map[T]T
	inverse map[T]T
}

// Pair is one source -> target correspondence.
type Pair[T cmp.Ordered] struct {
	Source T
	Target T
}

func NewMapping[T cmp.Ordered]() *Mapping[T] {
	return &Mapping[T]{forward: make(map[T]T), inverse: make(map[T]T)}
}

// Get returns the target mapped from source.
func (m *Mapping[T]) Get(source T) (T, bool) {
	t, ok := m.forward[source]
	return t, ok
}

// Source returns the source mapped onto target.
func (m *Mapping[T]) Source(target T) (T, bool) {
	s, ok := m.inverse[target]
	return s, ok
}

// Len returns the number of pairs.
func (m *Mapping[T]) Len() int {
	return len(m.forward)
}

// Put records source -> target. It reports false, leaving the mapping
// unchanged, if either side is already bound to something else.
func (m *Mapping[T]) Put(source, target T) bool {
	if t, ok := m.forward[source]; ok {
		return t == target
	}
	if _, ok := m.inverse[target]; ok {
		return false
	}
	m.forward[source] = target
	m.inverse[target] = source
	return true
}

// Extend checks whether all pairs can be added together without breaking
// injectivity and returns the pairs that are new. Pairs already present
// are not repeated. The mapping itself is not modified.
func (m *Mapping[T]) Extend(pairs ...Pair[T]) ([]Pair[T], bool) {
	var added []Pair[T]
	lookup := func(s T) (T, bool) {
		if t, ok := m.forward[s]; ok {
			return t, true
		}
		for _, p := range added {
			if p.Source == s {
				return p.Target, true
			}
		}
		var zero T
		return zero, false
	}
	taken := func(t T) bool {
		if _, ok := m.inverse[t]; ok {
			return true
		}
		for _, p := range added {
			if p.Target == t {
				return true
			}
		}
		return false
	}
	for _, p := range pairs {
		if t, ok := lookup(p.Source); ok {
			if t != p.Target {
				return nil, false
			}
			continue
		}
		if taken(p.Target) {
			return nil, false
		}
		added = append(added, p)
	}
	return added, true
}

// Clone returns an independent copy.
func (m *Mapping[T]) Clone() *Mapping[T] {
	c := &Mapping[T]{forward: make(map[T]T, len(m.forward)), inverse: make(map[T]T, len(m.inverse))}
	for s, t := range m.forward {
		c.forward[s] = t
		c.inverse[t] = s
	}
	return c
}

// Inverted returns the mapping with sources and targets swapped.
func (m *Mapping[T]) Inverted() *Mapping[T] {
	c := &Mapping[T]{forward: make(map[T]T, len(m.forward)), inverse: make(map[T]T, len(m.inverse))}
	for s, t := range m.forward {
		c.forward[t] = s
		c.inverse[s] = t
	}
	return c
}

// Pairs returns all pairs ordered by source.
func (m *Mapping[T]) Pairs() []Pair[T] {
	pairs := make([]Pair[T], 0, len(m.forward))
	for s, t := range m.forward {
		pairs = append(pairs, Pair[T]{Source: s, Target: t})
	}
	slices.SortFunc(pairs, func(a, b Pair[T]) int { return cmp.Compare(a.Source, b.Source) })
	return pairs
}
