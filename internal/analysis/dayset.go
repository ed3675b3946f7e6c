package analysis

import "abcdreport/internal/domain"

// BuildDaySet collects the element numbers of one topic on one day for the
// given planet code. Missing or unparsable cells are skipped.
func BuildDaySet(topic, day string, elements []string, cells domain.CellLookup, planet string) domain.DaySet {
	set := domain.NewDaySet()
	if cells == nil {
		return set
	}
	for _, element := range elements {
		raw, ok := cells.Cell(topic, element, day, planet)
		if !ok {
			continue
		}
		if n, ok := ExtractElementNumber(raw); ok {
			set[n] = struct{}{}
		}
	}
	return set
}
