package domain

import "sort"

// DaySet is the deduplicated set of element numbers seen on one reference day.
// It is built once and treated as read-only afterwards.
type DaySet map[int]struct{}

func NewDaySet(numbers ...int) DaySet {
	s := make(DaySet, len(numbers))
	for _, n := range numbers {
		s[n] = struct{}{}
	}
	return s
}

func (s DaySet) Has(n int) bool {
	_, ok := s[n]
	return ok
}

func (s DaySet) Len() int {
	return len(s)
}

// Sorted returns the members in ascending order.
func (s DaySet) Sorted() []int {
	out := make([]int, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Union returns a new set holding the members of every input.
func Union(sets ...DaySet) DaySet {
	out := make(DaySet)
	for _, s := range sets {
		for n := range s {
			out[n] = struct{}{}
		}
	}
	return out
}
