package ingest

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"abcdreport/internal/domain"
	"abcdreport/internal/storage/sqlite"

	"gopkg.in/yaml.v3"
)

// DayDocument is one uploaded day: the hour-to-planet selections and the raw
// cell strings per topic, element and planet. JSON documents parse too.
type DayDocument struct {
	User  string                                  `yaml:"user"`
	Date  string                                  `yaml:"date"`
	Hours map[string]string                       `yaml:"hours"`
	Sets  map[string]map[string]map[string]string `yaml:"sets"`
}

type Result struct {
	User  string
	Date  time.Time
	Cells int
	Hours int
}

func LoadFile(path string) (DayDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DayDocument{}, err
	}
	doc, err := Parse(data)
	if err != nil {
		return DayDocument{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func Parse(data []byte) (DayDocument, error) {
	var doc DayDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return DayDocument{}, fmt.Errorf("parsing day document: %w", err)
	}
	if _, err := doc.Day(); err != nil {
		return DayDocument{}, err
	}
	return doc, nil
}

func (d DayDocument) Day() (time.Time, error) {
	day, err := domain.ParseDayKey(strings.TrimSpace(d.Date))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD", d.Date)
	}
	return day, nil
}

// Cells flattens the document. Blank values are left out so they read as
// missing cells.
func (d DayDocument) Cells() (domain.Cells, error) {
	day, err := d.Day()
	if err != nil {
		return nil, err
	}
	key := domain.DayKey(day)
	cells := domain.Cells{}
	for topic, elements := range d.Sets {
		topic = strings.TrimSpace(topic)
		for element, planets := range elements {
			element = strings.TrimSpace(element)
			for planet, raw := range planets {
				if strings.TrimSpace(raw) == "" {
					continue
				}
				cells.Set(topic, element, key, strings.TrimSpace(planet), raw)
			}
		}
	}
	return cells, nil
}

func (d DayDocument) HourEntry() (domain.HourEntry, error) {
	day, err := d.Day()
	if err != nil {
		return domain.HourEntry{}, err
	}
	entry := domain.HourEntry{Date: day, Planets: make(map[int]string, len(d.Hours))}
	for k, planet := range d.Hours {
		hr, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || hr < 1 {
			return domain.HourEntry{}, fmt.Errorf("hour %q: want a positive number", k)
		}
		entry.Planets[hr] = strings.TrimSpace(planet)
	}
	return entry, nil
}

// Import stores a document for userID, or for the document's own user when
// userID is empty.
func Import(db *sql.DB, userID string, doc DayDocument) (Result, error) {
	if userID == "" {
		userID = strings.TrimSpace(doc.User)
	}
	if userID == "" {
		return Result{}, fmt.Errorf("day %s has no user", doc.Date)
	}
	cells, err := doc.Cells()
	if err != nil {
		return Result{}, err
	}
	entry, err := doc.HourEntry()
	if err != nil {
		return Result{}, err
	}

	written, err := sqlite.UpsertCells(db, userID, cells)
	if err != nil {
		return Result{}, fmt.Errorf("storing cells for %s: %w", doc.Date, err)
	}
	if len(entry.Planets) > 0 {
		if err := sqlite.UpsertHourEntry(db, userID, entry); err != nil {
			return Result{}, fmt.Errorf("storing hours for %s: %w", doc.Date, err)
		}
	}
	return Result{User: userID, Date: entry.Date, Cells: written, Hours: len(entry.Hours())}, nil
}
