package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"abcdreport/internal/domain"
)

// Classify decides, for every D-day number, whether it is ABCD (present in at
// least two of A, B, C) or BCD (present in exactly one of B and C). ABCD wins,
// so the two lists never overlap.
func Classify(a, b, c, d domain.DaySet) domain.ClassificationResult {
	result := domain.ClassificationResult{
		ABCD:     []int{},
		BCD:      []int{},
		Detailed: make(map[int]domain.NumberAnalysis, len(d)),
	}

	for n := range d {
		entry := domain.NumberAnalysis{
			InA: a.Has(n),
			InB: b.Has(n),
			InC: c.Has(n),
		}
		var seen []string
		if entry.InA {
			seen = append(seen, "A")
		}
		if entry.InB {
			seen = append(seen, "B")
		}
		if entry.InC {
			seen = append(seen, "C")
		}
		entry.ABCCount = len(seen)

		if entry.ABCCount >= 2 {
			entry.Qualified = true
			entry.Type = domain.QualificationABCD
			entry.Reason = fmt.Sprintf("Appears in %d/3 ABC days: %s", entry.ABCCount, strings.Join(seen, ", "))
			result.ABCD = append(result.ABCD, n)
			result.Detailed[n] = entry
			continue
		}

		switch {
		case entry.InB && !entry.InC:
			entry.Qualified = true
			entry.Type = domain.QualificationBCD
			entry.Reason = "B-D pair only"
			result.BCD = append(result.BCD, n)
		case entry.InC && !entry.InB:
			entry.Qualified = true
			entry.Type = domain.QualificationBCD
			entry.Reason = "C-D pair only"
			result.BCD = append(result.BCD, n)
		case entry.ABCCount == 1:
			entry.Reason = fmt.Sprintf("Only in %s (need ≥2 for ABCD)", seen[0])
		case entry.InB && entry.InC:
			entry.Reason = "In both B and C (violates BCD exclusivity)"
		default:
			entry.Reason = "Not in any ABC days"
		}
		result.Detailed[n] = entry
	}

	sort.Ints(result.ABCD)
	sort.Ints(result.BCD)
	result.Summary = summarize(len(d), len(result.ABCD), len(result.BCD))
	return result
}

func summarize(dCount, abcdCount, bcdCount int) domain.Summary {
	s := domain.Summary{
		DDayCount:      dCount,
		ABCDCount:      abcdCount,
		BCDCount:       bcdCount,
		TotalQualified: abcdCount + bcdCount,
	}
	if dCount > 0 {
		rate := float64(s.TotalQualified) / float64(dCount) * 100
		s.QualificationRate = math.Round(rate*10) / 10
	}
	return s
}
