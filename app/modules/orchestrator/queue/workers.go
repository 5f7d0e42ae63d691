package orchestratorqueue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/romeda-works/romeda-bot/app/modules/orchestrator"
)

// CounterFlushWorker drains buffered counts on the flush interval.
type CounterFlushWorker struct {
	river.WorkerDefaults[CounterFlushJob]
	service *orchestrator.Service
	logger  *slog.Logger
}

func NewCounterFlushWorker(service *orchestrator.Service, logger *slog.Logger) *CounterFlushWorker {
	return &CounterFlushWorker{service: service, logger: logger}
}

func (w *CounterFlushWorker) Work(ctx context.Context, job *river.Job[CounterFlushJob]) error {
	flushed, err := w.service.Flush(ctx)
	if err != nil {
		return fmt.Errorf("counter flush failed: %w", err)
	}
	w.logger.DebugContext(ctx, "Scheduled flush finished", slog.Int("channels", flushed))
	return nil
}

// ScheduledPassWorker runs the recurring reorganization pass.
type ScheduledPassWorker struct {
	river.WorkerDefaults[ScheduledPassJob]
	service *orchestrator.Service
	logger  *slog.Logger
}

func NewScheduledPassWorker(service *orchestrator.Service, logger *slog.Logger) *ScheduledPassWorker {
	return &ScheduledPassWorker{service: service, logger: logger}
}

func (w *ScheduledPassWorker) Work(ctx context.Context, job *river.Job[ScheduledPassJob]) error {
	summary, err := w.service.RunPass(ctx, "scheduled")
	if err != nil {
		return fmt.Errorf("scheduled pass failed: %w", err)
	}
	if len(summary.Errors) > 0 {
		w.logger.WarnContext(ctx, "Scheduled pass finished with errors",
			slog.Int("errors", len(summary.Errors)),
		)
	}
	return nil
}

// LeaderboardRefreshWorker rewrites the ranking message.
type LeaderboardRefreshWorker struct {
	river.WorkerDefaults[LeaderboardRefreshJob]
	service *orchestrator.Service
	logger  *slog.Logger
}

func NewLeaderboardRefreshWorker(service *orchestrator.Service, logger *slog.Logger) *LeaderboardRefreshWorker {
	return &LeaderboardRefreshWorker{service: service, logger: logger}
}

func (w *LeaderboardRefreshWorker) Work(ctx context.Context, job *river.Job[LeaderboardRefreshJob]) error {
	if err := w.service.RefreshLeaderboard(ctx); err != nil {
		return fmt.Errorf("leaderboard refresh failed: %w", err)
	}
	return nil
}

// WeeklyRolloverWorker closes the scoring window.
type WeeklyRolloverWorker struct {
	river.WorkerDefaults[WeeklyRolloverJob]
	service *orchestrator.Service
	logger  *slog.Logger
}

func NewWeeklyRolloverWorker(service *orchestrator.Service, logger *slog.Logger) *WeeklyRolloverWorker {
	return &WeeklyRolloverWorker{service: service, logger: logger}
}

func (w *WeeklyRolloverWorker) Work(ctx context.Context, job *river.Job[WeeklyRolloverJob]) error {
	w.logger.InfoContext(ctx, "Running weekly rollover")
	if err := w.service.WeeklyRollover(ctx); err != nil {
		return fmt.Errorf("weekly rollover failed: %w", err)
	}
	return nil
}
