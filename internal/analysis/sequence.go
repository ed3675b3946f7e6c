package analysis

import (
	"fmt"
	"sort"
	"time"

	"abcdreport/internal/domain"
)

// SequenceFor picks the trigger date as D and the three dates before it as
// C, B and A. Dates are compared by calendar day; duplicates collapse.
func SequenceFor(trigger time.Time, dates []time.Time) (domain.ReferenceSequence, error) {
	sorted := sortedDays(dates)
	key := domain.DayKey(trigger)
	idx := -1
	for i, d := range sorted {
		if domain.DayKey(d) == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ReferenceSequence{}, &domain.InvalidSequenceError{
			Reason: fmt.Sprintf("trigger date %s has no data", key),
		}
	}
	if idx < 3 {
		return domain.ReferenceSequence{}, &domain.InvalidSequenceError{
			Reason: fmt.Sprintf("trigger date %s is at position %d, needs position 4+ (three preceding dates for A, B, C)", key, idx+1),
		}
	}
	return domain.ReferenceSequence{
		A: sorted[idx-3],
		B: sorted[idx-2],
		C: sorted[idx-1],
		D: sorted[idx],
	}, nil
}

// EligibleTriggers returns every date that can act as D, ascending.
func EligibleTriggers(dates []time.Time) []time.Time {
	sorted := sortedDays(dates)
	if len(sorted) < 4 {
		return nil
	}
	return sorted[3:]
}

func sortedDays(dates []time.Time) []time.Time {
	seen := make(map[string]bool, len(dates))
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		k := domain.DayKey(d)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return domain.DayKey(out[i]) < domain.DayKey(out[j])
	})
	return out
}
