package domain

import (
	"sort"
	"strings"
	"time"
)

// HourEntry maps hour-context numbers to the planet code selected for them
// on a given date.
type HourEntry struct {
	Date    time.Time
	Planets map[int]string
}

// Hours returns the hour-contexts that have a planet selected, ascending.
func (h HourEntry) Hours() []int {
	out := make([]int, 0, len(h.Planets))
	for hr, planet := range h.Planets {
		if strings.TrimSpace(planet) != "" {
			out = append(out, hr)
		}
	}
	sort.Ints(out)
	return out
}

func (h HourEntry) PlanetFor(hr int) (string, bool) {
	planet := strings.TrimSpace(h.Planets[hr])
	return planet, planet != ""
}

// CellLookup resolves one raw cell. ok is false when the cell is absent.
type CellLookup interface {
	Cell(topic, element, day, planet string) (raw string, ok bool)
}

// CellLookupFunc adapts a function to CellLookup.
type CellLookupFunc func(topic, element, day, planet string) (string, bool)

func (f CellLookupFunc) Cell(topic, element, day, planet string) (string, bool) {
	return f(topic, element, day, planet)
}
