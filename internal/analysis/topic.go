package analysis

import "abcdreport/internal/domain"

// ClassifyTopic builds the A, B, C and D day sets for one topic and classifies
// them. The only error is an invalid reference sequence.
func ClassifyTopic(topic string, elements []string, seq domain.ReferenceSequence, cells domain.CellLookup, planet string) (domain.ClassificationResult, error) {
	if err := seq.Validate(); err != nil {
		return domain.ClassificationResult{}, err
	}
	sets := daySets(topic, elements, seq, cells, planet)
	return Classify(sets[0], sets[1], sets[2], sets[3]), nil
}

// daySets returns the day sets in A, B, C, D order.
func daySets(topic string, elements []string, seq domain.ReferenceSequence, cells domain.CellLookup, planet string) [4]domain.DaySet {
	var sets [4]domain.DaySet
	for i, day := range seq.DayKeys() {
		sets[i] = BuildDaySet(topic, day, elements, cells, planet)
	}
	return sets
}
