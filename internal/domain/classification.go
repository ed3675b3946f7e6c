package domain

import (
	"fmt"
	"time"
)

type Qualification string

const (
	QualificationNone Qualification = ""
	QualificationABCD Qualification = "ABCD"
	QualificationBCD  Qualification = "BCD"
)

// NumberAnalysis is the audit entry for one D-day number.
type NumberAnalysis struct {
	InA       bool          `json:"in_a"`
	InB       bool          `json:"in_b"`
	InC       bool          `json:"in_c"`
	ABCCount  int           `json:"abc_count"`
	Qualified bool          `json:"qualified"`
	Type      Qualification `json:"type,omitempty"`
	Reason    string        `json:"reason"`
}

type Summary struct {
	DDayCount         int     `json:"d_day_count"`
	ABCDCount         int     `json:"abcd_count"`
	BCDCount          int     `json:"bcd_count"`
	TotalQualified    int     `json:"total_qualified"`
	QualificationRate float64 `json:"qualification_rate"`
}

// RateString renders the qualification rate as a percentage with one decimal.
func (s Summary) RateString() string {
	return fmt.Sprintf("%.1f", s.QualificationRate)
}

type ClassificationResult struct {
	ABCD     []int                  `json:"abcd"`
	BCD      []int                  `json:"bcd"`
	Detailed map[int]NumberAnalysis `json:"detailed"`
	Summary  Summary                `json:"summary"`
}

func (r ClassificationResult) Empty() bool {
	return len(r.ABCD) == 0 && len(r.BCD) == 0
}

// Unqualified returns the D-day numbers that matched neither rule, ascending.
func (r ClassificationResult) Unqualified() []int {
	var out []int
	for n, a := range r.Detailed {
		if !a.Qualified {
			out = append(out, n)
		}
	}
	return NewDaySet(out...).Sorted()
}

// TopicResult maps topic name to its classification for one hour-context.
type TopicResult map[string]ClassificationResult

// HourResult is everything computed for one hour-context of a run.
type HourResult struct {
	HR      int
	Planet  string
	Topics  TopicResult
	Order   []string
	Overall ClassificationResult
}

// Run is one analysis pass over a reference sequence for one user.
type Run struct {
	ID        string
	UserID    string
	Sequence  ReferenceSequence
	Hours     []HourResult
	CreatedAt time.Time
}

func (r Run) AnalysisDate() time.Time {
	return r.Sequence.D
}

// CachedResult is a persisted topic classification keyed by
// (user, analysis date, hour, topic).
type CachedResult struct {
	RunID        string
	UserID       string
	AnalysisDate string
	HR           int
	Topic        string
	ABCD         []int
	BCD          []int
	ComputedAt   time.Time
}
