// Package orchestratorqueue schedules the recurring club jobs on River.
package orchestratorqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	activityservice "github.com/romeda-works/romeda-bot/app/modules/activity/application"
	"github.com/romeda-works/romeda-bot/app/modules/orchestrator"
	"github.com/romeda-works/romeda-bot/config"
)

// Service runs the periodic club jobs: counter flushes, scheduled passes,
// leaderboard refreshes, and the weekly rollover.
type Service struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a River-based queue service for the club schedules.
// River requires pgx, not database/sql, so it owns its own pool.
func NewService(ctx context.Context, dsn string, orchestratorService *orchestrator.Service, club config.ClubConfig, logger *slog.Logger) (*Service, error) {
	ctxLogger := logger.With(
		slog.String("component", "river_queue"),
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewCounterFlushWorker(orchestratorService, ctxLogger))
	river.AddWorker(workers, NewScheduledPassWorker(orchestratorService, ctxLogger))
	river.AddWorker(workers, NewLeaderboardRefreshWorker(orchestratorService, ctxLogger))
	river.AddWorker(workers, NewWeeklyRolloverWorker(orchestratorService, ctxLogger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			// One worker so passes never overlap.
			river.QueueDefault: {MaxWorkers: 1},
		},
		Workers:      workers,
		PeriodicJobs: periodicJobs(club),
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	ctxLogger.InfoContext(ctx, "Club queue service initialized",
		slog.Duration("flush_interval", club.FlushInterval),
		slog.Duration("pass_interval", club.PassInterval),
		slog.Duration("leaderboard_refresh_interval", club.LeaderboardRefreshInterval),
	)
	return &Service{
		client: riverClient,
		pool:   pool,
		logger: ctxLogger,
	}, nil
}

func periodicJobs(club config.ClubConfig) []*river.PeriodicJob {
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(club.FlushInterval),
			func() (river.JobArgs, *river.InsertOpts) { return CounterFlushJob{}, nil },
			nil,
		),
		river.NewPeriodicJob(
			river.PeriodicInterval(club.PassInterval),
			func() (river.JobArgs, *river.InsertOpts) { return ScheduledPassJob{}, nil },
			&river.PeriodicJobOpts{RunOnStart: true},
		),
		river.NewPeriodicJob(
			river.PeriodicInterval(club.LeaderboardRefreshInterval),
			func() (river.JobArgs, *river.InsertOpts) { return LeaderboardRefreshJob{}, nil },
			&river.PeriodicJobOpts{RunOnStart: true},
		),
		river.NewPeriodicJob(
			weeklyBoundarySchedule{},
			func() (river.JobArgs, *river.InsertOpts) { return WeeklyRolloverJob{}, nil },
			nil,
		),
	}
}

// weeklyBoundarySchedule fires at every Monday 00:00 guild-time boundary.
type weeklyBoundarySchedule struct{}

func (weeklyBoundarySchedule) Next(current time.Time) time.Time {
	return activityservice.WindowStart(current).AddDate(0, 0, 7)
}

// Start starts the River client.
func (s *Service) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.logger.InfoContext(ctx, "Club queue service started")
	return nil
}

// Stop drains workers and closes the pool.
func (s *Service) Stop(ctx context.Context) error {
	if err := s.client.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.pool.Close()
	s.logger.InfoContext(ctx, "Club queue service stopped")
	return nil
}
