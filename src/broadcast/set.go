package broadcast

import "sort"

// Set is a set of broadcast values.
type Set map[uint64]struct{}

// NewSet returns a set holding values.
func NewSet(values ...uint64) Set {
	s := make(Set, len(values))
	s.AddAll(values)
	return s
}

// Add inserts v and reports whether it was missing.
func (s Set) Add(v uint64) bool {
	if _, ok := s[v]; ok {
		return false
	}
	s[v] = struct{}{}
	return true
}

// AddAll inserts every value and returns how many were missing.
func (s Set) AddAll(values []uint64) int {
	added := 0
	for _, v := range values {
		if s.Add(v) {
			added++
		}
	}
	return added
}

// Merge inserts every value of o.
func (s Set) Merge(o Set) {
	for v := range o {
		s[v] = struct{}{}
	}
}

// Minus returns the values of s that are not in o.
func (s Set) Minus(o Set) Set {
	diff := make(Set)
	for v := range s {
		if _, ok := o[v]; !ok {
			diff[v] = struct{}{}
		}
	}
	return diff
}

// Sorted returns the values in increasing order. The result is never nil, so
// that an empty set is encoded as an empty list.
func (s Set) Sorted() []uint64 {
	values := make([]uint64, 0, len(s))
	for v := range s {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	return values
}
