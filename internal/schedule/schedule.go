package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job analyses one user. It is called once per user on every tick.
type Job func(ctx context.Context, userID string) error

type TickResult struct {
	Users  int
	Failed int
}

// Scheduler runs Job for every user each time the cron schedule fires.
type Scheduler struct {
	schedule cron.Schedule
	location *time.Location
	users    func() ([]string, error)
	job      Job
	logger   *zap.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func New(sched cron.Schedule, loc *time.Location, users func() ([]string, error), job Job, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		schedule: sched,
		location: loc,
		users:    users,
		job:      job,
		logger:   logger,
		now:      time.Now,
		after:    time.After,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		now := s.now().In(s.location)
		next := s.schedule.Next(now)
		wait := next.Sub(now)
		s.logger.Info("next analysis scheduled",
			zap.String("at", next.Format("Mon Jan 2 15:04")),
			zap.Duration("in", wait.Round(time.Minute)),
		)

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-s.after(wait):
		}

		res, err := s.Tick(ctx)
		if err != nil {
			s.logger.Error("scheduled analysis failed", zap.Error(err))
			continue
		}
		s.logger.Info("scheduled analysis complete",
			zap.Int("users", res.Users),
			zap.Int("failed", res.Failed),
		)
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// Tick runs the job once for every user. A failing user does not stop the
// others.
func (s *Scheduler) Tick(ctx context.Context) (TickResult, error) {
	users, err := s.users()
	if err != nil {
		return TickResult{}, fmt.Errorf("listing users: %w", err)
	}
	res := TickResult{}
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Users++
		if err := s.job(ctx, user); err != nil {
			res.Failed++
			s.logger.Warn("analysis failed", zap.String("user", user), zap.Error(err))
		}
	}
	return res, nil
}
