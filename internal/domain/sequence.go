package domain

import (
	"errors"
	"fmt"
	"time"
)

const DayKeyLayout = "2006-01-02"

// DayKey formats a calendar date the way cells and caches are keyed.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

func ParseDayKey(s string) (time.Time, error) {
	return time.ParseInLocation(DayKeyLayout, s, time.UTC)
}

// ReferenceSequence holds the four analysis days. D is the trigger date.
type ReferenceSequence struct {
	A time.Time
	B time.Time
	C time.Time
	D time.Time
}

func (s ReferenceSequence) Days() [4]time.Time {
	return [4]time.Time{s.A, s.B, s.C, s.D}
}

func (s ReferenceSequence) DayKeys() [4]string {
	var keys [4]string
	for i, d := range s.Days() {
		keys[i] = DayKey(d)
	}
	return keys
}

// Validate checks that the four days are set, distinct and strictly increasing
// by calendar date.
func (s ReferenceSequence) Validate() error {
	labels := [4]string{"A", "B", "C", "D"}
	days := s.Days()
	keys := s.DayKeys()
	for i, d := range days {
		if d.IsZero() {
			return &InvalidSequenceError{Reason: fmt.Sprintf("%s-day is not set", labels[i])}
		}
		if i == 0 {
			continue
		}
		if keys[i] == keys[i-1] {
			return &InvalidSequenceError{Reason: fmt.Sprintf("%s-day and %s-day are the same date %s", labels[i-1], labels[i], keys[i])}
		}
		if keys[i] < keys[i-1] {
			return &InvalidSequenceError{Reason: fmt.Sprintf("%s-day %s is before %s-day %s", labels[i], keys[i], labels[i-1], keys[i-1])}
		}
	}
	return nil
}

func (s ReferenceSequence) String() string {
	k := s.DayKeys()
	return fmt.Sprintf("A=%s B=%s C=%s D=%s", k[0], k[1], k[2], k[3])
}

var ErrInvalidSequence = errors.New("invalid reference sequence")

type InvalidSequenceError struct {
	Reason string
}

func (e *InvalidSequenceError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidSequence.Error(), e.Reason)
}

func (e *InvalidSequenceError) Is(target error) bool {
	return target == ErrInvalidSequence
}
