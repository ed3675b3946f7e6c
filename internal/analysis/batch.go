package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"abcdreport/internal/domain"
	"abcdreport/internal/roster"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

type Request struct {
	UserID   string
	Sequence domain.ReferenceSequence
	Cells    domain.CellLookup
	// Hours is the D-day hour entry; it decides which planet each HR reads.
	Hours domain.HourEntry
	// Available limits the run to topics with data on the D-day. Nil means
	// every roster topic.
	Available map[string]bool
	// HR restricts the run to one hour-context when non-zero.
	HR int
}

// Runner classifies every topic for every hour-context of a reference sequence.
type Runner struct {
	Roster  roster.Roster
	Workers int
	Logger  *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewRunner(r roster.Roster, workers int, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Roster:  r,
		Workers: workers,
		Logger:  logger,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

type job struct {
	hour  int
	topic int
}

func (r *Runner) Run(ctx context.Context, req Request) (domain.Run, error) {
	if err := req.Sequence.Validate(); err != nil {
		return domain.Run{}, err
	}
	if req.Cells == nil {
		return domain.Run{}, fmt.Errorf("no cell data for %s", req.Sequence)
	}

	topics := r.Roster.Topics
	if req.Available != nil {
		topics = r.Roster.Present(req.Available)
	}

	for hr, planet := range req.Hours.Planets {
		if strings.TrimSpace(planet) == "" {
			r.Logger.Info("no planet selected, skipping hour", zap.Int("hr", hr), zap.String("user", req.UserID))
		}
	}

	var hours []domain.HourResult
	hrs := req.Hours.Hours()
	if req.HR != 0 {
		if _, ok := req.Hours.PlanetFor(req.HR); !ok {
			return domain.Run{}, fmt.Errorf("no planet selected for HR %d on %s", req.HR, domain.DayKey(req.Sequence.D))
		}
		hrs = []int{req.HR}
	}
	for _, hr := range hrs {
		planet, _ := req.Hours.PlanetFor(hr)
		hours = append(hours, domain.HourResult{
			HR:     hr,
			Planet: planet,
			Topics: make(domain.TopicResult, len(topics)),
			Order:  make([]string, len(topics)),
		})
	}

	log := r.Logger.With(
		zap.String("user", req.UserID),
		zap.String("sequence", req.Sequence.String()),
	)
	log.Info("analysis started", zap.Int("hours", len(hours)), zap.Int("topics", len(topics)))

	// Slots are written by index so the result does not depend on scheduling.
	results := make([][]domain.ClassificationResult, len(hours))
	sets := make([][][4]domain.DaySet, len(hours))
	for i := range hours {
		results[i] = make([]domain.ClassificationResult, len(topics))
		sets[i] = make([][4]domain.DaySet, len(topics))
	}

	workers := r.Workers
	if workers < 1 {
		workers = defaultWorkers
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for hi := range hours {
		for ti := range topics {
			j := job{hour: hi, topic: ti}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				t := topics[j.topic]
				ds := daySets(t.Name, t.Elements, req.Sequence, req.Cells, hours[j.hour].Planet)
				sets[j.hour][j.topic] = ds
				results[j.hour][j.topic] = Classify(ds[0], ds[1], ds[2], ds[3])
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return domain.Run{}, fmt.Errorf("analysis of %s: %w", req.Sequence, err)
	}

	for hi := range hours {
		var combined [4][]domain.DaySet
		for ti, t := range topics {
			hours[hi].Order[ti] = t.Name
			hours[hi].Topics[t.Name] = results[hi][ti]
			for day := 0; day < 4; day++ {
				combined[day] = append(combined[day], sets[hi][ti][day])
			}
		}
		hours[hi].Overall = Classify(
			domain.Union(combined[0]...),
			domain.Union(combined[1]...),
			domain.Union(combined[2]...),
			domain.Union(combined[3]...),
		)
		log.Debug("hour classified",
			zap.Int("hr", hours[hi].HR),
			zap.String("planet", hours[hi].Planet),
			zap.Ints("abcd", hours[hi].Overall.ABCD),
			zap.Ints("bcd", hours[hi].Overall.BCD),
		)
	}

	run := domain.Run{
		ID:        r.newID(),
		UserID:    req.UserID,
		Sequence:  req.Sequence,
		Hours:     hours,
		CreatedAt: r.now(),
	}
	log.Info("analysis finished", zap.String("run", run.ID))
	return run, nil
}
