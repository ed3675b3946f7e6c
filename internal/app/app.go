package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"abcdreport/internal/analysis"
	"abcdreport/internal/config"
	"abcdreport/internal/httpx"
	"abcdreport/internal/integrations/llm"
	slackbot "abcdreport/internal/integrations/slack"
	"abcdreport/internal/logging"
	"abcdreport/internal/roster"
	"abcdreport/internal/schedule"
	"abcdreport/internal/storage/sqlite"

	"go.uber.org/zap"
)

func Main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// open builds a Service from configuration. The returned cleanup closes the
// database and flushes the logger.
func open(cfg config.Config) (*Service, func(), error) {
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("config loaded",
		zap.String("db", cfg.DBPath),
		zap.String("reports", cfg.ReportOutputDir),
		zap.Int("workers", cfg.Workers),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("slack", cfg.SlackConfigured()),
		zap.Bool("narrative", cfg.LLMNarrativeEnabled),
		zap.Duration("external_http_timeout", httpx.Timeout(cfg.ExternalHTTPTimeoutSeconds)),
	)

	r, err := roster.Load(cfg.RosterPath)
	if err != nil {
		return nil, nil, err
	}
	defaults, err := roster.LoadDefaults(cfg.DefaultsPath)
	if err != nil {
		return nil, nil, err
	}

	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("init database %s: %w", cfg.DBPath, err)
	}
	logger.Info("database initialized", zap.String("path", cfg.DBPath), zap.Int("topics", len(r.Topics)))

	svc := &Service{
		DB:        db,
		Runner:    analysis.NewRunner(r, cfg.Workers, logger),
		Defaults:  defaults,
		OutputDir: cfg.ReportOutputDir,
		Logger:    logger,
	}
	external := httpx.NewClient(cfg.ExternalHTTPTimeoutSeconds)
	if cfg.LLMNarrativeEnabled {
		svc.Narrator = llm.NewNarrator(cfg.AnthropicAPIKey, cfg.LLMModel, external, logger)
	}
	if cfg.SlackConfigured() {
		svc.Notifier = slackbot.NewNotifier(cfg.SlackBotToken, cfg.ReportChannelID, external, logger)
	}

	cleanup := func() {
		db.Close()
		_ = logger.Sync()
	}
	return svc, cleanup, nil
}

// scheduledJob analyses a user's latest date. Users without enough data are
// skipped rather than counted as failures.
func scheduledJob(svc *Service) schedule.Job {
	return func(ctx context.Context, userID string) error {
		out, err := svc.AnalyzeLatest(ctx, userID)
		if errors.Is(err, ErrNoEligibleDate) {
			svc.logger().Info("not enough dates yet", zap.String("user", userID))
			return nil
		}
		if err != nil {
			return err
		}
		svc.logger().Info("scheduled run done",
			zap.String("user", userID),
			zap.String("run", out.Run.ID),
			zap.String("report", out.ReportPath),
		)
		return nil
	}
}

func scheduledUsers(svc *Service, configured []string) func() ([]string, error) {
	return func() ([]string, error) {
		if len(configured) > 0 {
			return configured, nil
		}
		return sqlite.ListUsers(svc.DB)
	}
}

func serve(ctx context.Context, cfg config.Config, svc *Service) error {
	if cfg.AnalysisSchedule == "" {
		return errors.New("analysis_schedule is not set")
	}
	sched, err := config.ParseSchedule(cfg.AnalysisSchedule)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := schedule.New(sched, cfg.Location, scheduledUsers(svc, cfg.Users), scheduledJob(svc), svc.logger())
	svc.logger().Info("starting scheduler", zap.String("schedule", cfg.AnalysisSchedule))
	return s.Run(ctx)
}
