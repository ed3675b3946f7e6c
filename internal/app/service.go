package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"abcdreport/internal/analysis"
	"abcdreport/internal/domain"
	"abcdreport/internal/ingest"
	"abcdreport/internal/integrations/llm"
	"abcdreport/internal/report"
	"abcdreport/internal/roster"
	"abcdreport/internal/storage/sqlite"

	"go.uber.org/zap"
)

// ErrNoEligibleDate means the user has fewer than four dates with data.
var ErrNoEligibleDate = errors.New("no date with three preceding dates")

type Narrator interface {
	Narrate(ctx context.Context, run domain.Run) (string, llm.LLMUsage, error)
}

type Notifier interface {
	PostRun(run domain.Run, reportPath string) error
}

// Service ties storage, the batch runner and the report outputs together.
// Narrator and Notifier are optional.
type Service struct {
	DB        *sql.DB
	Runner    *analysis.Runner
	Defaults  roster.DefaultsProvider
	OutputDir string
	Verbose   bool
	Narrator  Narrator
	Notifier  Notifier
	Logger    *zap.Logger
}

type Outcome struct {
	Run        domain.Run
	Report     string
	ReportPath string
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Import loads day documents and stores them. A non-empty userID overrides
// the user named in each document.
func (s *Service) Import(userID string, paths []string) ([]ingest.Result, error) {
	var results []ingest.Result
	for _, path := range paths {
		doc, err := ingest.LoadFile(path)
		if err != nil {
			return results, err
		}
		res, err := ingest.Import(s.DB, userID, doc)
		if err != nil {
			return results, fmt.Errorf("%s: %w", path, err)
		}
		s.logger().Info("imported day",
			zap.String("file", path),
			zap.String("user", res.User),
			zap.String("date", domain.DayKey(res.Date)),
			zap.Int("cells", res.Cells),
			zap.Int("hours", res.Hours),
		)
		results = append(results, res)
	}
	return results, nil
}

// Dates returns the user's dates with data and the subset usable as D.
func (s *Service) Dates(userID string) (all, eligible []time.Time, err error) {
	all, err = sqlite.ListDates(s.DB, userID)
	if err != nil {
		return nil, nil, err
	}
	return all, analysis.EligibleTriggers(all), nil
}

// Analyze classifies the sequence ending at trigger, caches the results,
// writes the report and posts it. hr 0 means every hour with a planet.
func (s *Service) Analyze(ctx context.Context, userID string, trigger time.Time, hr int) (Outcome, error) {
	dates, err := sqlite.ListDates(s.DB, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("listing dates for %s: %w", userID, err)
	}
	seq, err := analysis.SequenceFor(trigger, dates)
	if err != nil {
		return Outcome{}, err
	}
	days := seq.Days()
	cells, err := sqlite.LoadSnapshot(s.DB, userID, days[:])
	if err != nil {
		return Outcome{}, fmt.Errorf("loading %s: %w", seq, err)
	}
	hours, err := sqlite.GetHourEntry(s.DB, userID, seq.D)
	if err != nil {
		return Outcome{}, fmt.Errorf("loading hours for %s: %w", domain.DayKey(seq.D), err)
	}

	run, err := s.Runner.Run(ctx, analysis.Request{
		UserID:    userID,
		Sequence:  seq,
		Cells:     cells,
		Hours:     hours,
		Available: cells.Topics(domain.DayKey(seq.D)),
		HR:        hr,
	})
	if err != nil {
		return Outcome{}, err
	}
	if err := sqlite.SaveRun(s.DB, run); err != nil {
		return Outcome{}, fmt.Errorf("caching run %s: %w", run.ID, err)
	}

	narrative := ""
	if s.Narrator != nil {
		text, _, err := s.Narrator.Narrate(ctx, run)
		if err != nil {
			s.logger().Warn("narrative skipped", zap.String("run", run.ID), zap.Error(err))
		} else {
			narrative = text
		}
	}

	content := report.RenderMarkdown(run, report.Options{
		Verbose:   s.Verbose,
		Defaults:  s.Defaults,
		Narrative: narrative,
	})
	path, err := report.WriteReportFile(content, s.OutputDir, seq.D, userID)
	if err != nil {
		return Outcome{Run: run, Report: content}, fmt.Errorf("writing report: %w", err)
	}
	s.logger().Info("report written", zap.String("run", run.ID), zap.String("path", path))

	if s.Notifier != nil {
		if err := s.Notifier.PostRun(run, path); err != nil {
			s.logger().Warn("slack post failed", zap.String("run", run.ID), zap.Error(err))
		}
	}
	return Outcome{Run: run, Report: content, ReportPath: path}, nil
}

// AnalyzeLatest analyses the most recent date that can serve as D.
func (s *Service) AnalyzeLatest(ctx context.Context, userID string) (Outcome, error) {
	_, eligible, err := s.Dates(userID)
	if err != nil {
		return Outcome{}, err
	}
	if len(eligible) == 0 {
		return Outcome{}, fmt.Errorf("%s: %w", userID, ErrNoEligibleDate)
	}
	return s.Analyze(ctx, userID, eligible[len(eligible)-1], 0)
}

// CachedResults reads back what the last analysis of a date stored.
func (s *Service) CachedResults(userID string, date time.Time, hr int) ([]domain.CachedResult, error) {
	return sqlite.GetCachedResults(s.DB, userID, date, hr)
}
