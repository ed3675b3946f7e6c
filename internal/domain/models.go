package domain

// CellKey addresses one raw cell of the uploaded day data.
type CellKey struct {
	Topic   string
	Element string
	Day     string
	Planet  string
}

// Cells is an in-memory CellLookup.
type Cells map[CellKey]string

func (c Cells) Cell(topic, element, day, planet string) (string, bool) {
	raw, ok := c[CellKey{Topic: topic, Element: element, Day: day, Planet: planet}]
	return raw, ok
}

func (c Cells) Set(topic, element, day, planet, raw string) {
	c[CellKey{Topic: topic, Element: element, Day: day, Planet: planet}] = raw
}

// Topics returns the distinct topic names present for a day.
func (c Cells) Topics(day string) map[string]bool {
	out := make(map[string]bool)
	for k := range c {
		if k.Day == day {
			out[k.Topic] = true
		}
	}
	return out
}
