// Package orchestrator sequences the ranking pipeline: flush the counter
// buffer, sweep the archive, build the ranking, plan, apply, persist the new
// previous scores, and report.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	clubevents "github.com/romeda-works/romeda-bot/app/events"
	activityservice "github.com/romeda-works/romeda-bot/app/modules/activity/application"
	"github.com/romeda-works/romeda-bot/app/modules/activity/infrastructure/counter"
	activitydb "github.com/romeda-works/romeda-bot/app/modules/activity/infrastructure/repositories"
	"github.com/romeda-works/romeda-bot/app/modules/placement"
	"github.com/romeda-works/romeda-bot/app/modules/ranking"
	"github.com/romeda-works/romeda-bot/app/modules/reorg"
	"github.com/romeda-works/romeda-bot/app/shared"
	"github.com/romeda-works/romeda-bot/config"
	"github.com/romeda-works/romeda-bot/internal/discord"
)

// Sweeper runs the archive/revive sweep; satisfied by reorg.Sweep.
type Sweeper interface {
	Run(ctx context.Context, mode activityservice.Mode) (reorg.SweepResult, error)
}

// Applier applies a placement plan; satisfied by reorg.Reorganizer.
type Applier interface {
	Apply(ctx context.Context, placements []placement.Placement) reorg.Result
}

// RankingBuilder builds the ordered ranking; satisfied by ranking.Builder.
type RankingBuilder interface {
	BuildRanking(ctx context.Context, mode activityservice.Mode) ([]ranking.Entry, []string, error)
}

// Service owns the pass pipeline. Passes are serialized by the caller (one
// scheduled queue worker, single-consumer resort subscription); the service
// itself guards against overlap with a best-effort mutex so a slow manual
// pass cannot interleave with a scheduled one in-process.
type Service struct {
	counter     counter.Counter
	repo        activitydb.Repository
	db          *bun.DB
	builder     RankingBuilder
	sweep       Sweeper
	reorganizer Applier
	guild       discord.GuildClient
	club        config.ClubConfig
	bus         shared.EventBus
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *Metrics

	passMu sync.Mutex

	snapshotMu sync.RWMutex
	snapshot   []ranking.Entry
	snapshotAt time.Time

	leaderboardMu        sync.Mutex
	leaderboardMessageID string
}

// NewService creates the orchestrator service.
func NewService(
	buf counter.Counter,
	repo activitydb.Repository,
	db *bun.DB,
	builder RankingBuilder,
	sweep Sweeper,
	reorganizer Applier,
	guild discord.GuildClient,
	club config.ClubConfig,
	bus shared.EventBus,
	logger *slog.Logger,
	tracer trace.Tracer,
	metrics *Metrics,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("orchestrator")
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	return &Service{
		counter:     buf,
		repo:        repo,
		db:          db,
		builder:     builder,
		sweep:       sweep,
		reorganizer: reorganizer,
		guild:       guild,
		club:        club,
		bus:         bus,
		logger:      logger,
		tracer:      tracer,
		metrics:     metrics,
	}
}

// Flush persists the buffered message counts into the store. Returns how many
// channels had pending counts.
func (s *Service) Flush(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "Service.Flush")
	defer span.End()

	counts := s.counter.FlushAll()
	flushed := 0
	var firstErr error
	for channelID, count := range counts {
		if count == 0 {
			continue
		}
		if err := s.repo.IncrementWeeklyCount(ctx, s.db, channelID, count); err != nil {
			// Put the count back so the next flush retries it.
			for i := 0; i < count; i++ {
				s.counter.Increment(channelID)
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to flush count for channel %s: %w", channelID, err)
			}
			continue
		}
		flushed++
	}

	s.logger.InfoContext(ctx, "Flushed message counts",
		slog.Int("channels", flushed),
	)
	return flushed, firstErr
}

// RunPass executes a full reorganization pass.
func (s *Service) RunPass(ctx context.Context, triggeredBy string) (clubevents.PassSummaryPayloadV1, error) {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	ctx, span := s.tracer.Start(ctx, "Service.RunPass")
	defer span.End()

	start := time.Now()
	summary := clubevents.PassSummaryPayloadV1{
		PassID:      uuid.NewString(),
		TriggeredBy: triggeredBy,
	}

	if _, err := s.Flush(ctx); err != nil {
		summary.Errors = append(summary.Errors, err.Error())
	}

	sweepResult, err := s.sweep.Run(ctx, activityservice.ModePersistedCount)
	if err != nil {
		// Misconfigured archive aborts the sweep only, never the pass.
		summary.Errors = append(summary.Errors, fmt.Sprintf("sweep aborted: %v", err))
		if !errors.Is(err, reorg.ErrArchiveNotConfigured) {
			s.logger.ErrorContext(ctx, "Sweep failed", slog.Any("error", err))
		}
	}
	summary.Archived = sweepResult.Archived
	summary.Revived = sweepResult.Revived
	summary.Errors = append(summary.Errors, sweepResult.Errors...)

	entries, skipped, err := s.builder.BuildRanking(ctx, activityservice.ModePersistedCount)
	if err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		summary.FinishedAt = time.Now()
		s.finishPass(ctx, &summary, start)
		return summary, err
	}
	summary.Ranked = len(entries)
	summary.Skipped = len(skipped)
	s.storeSnapshot(entries)

	placements, warnings := placement.Plan(toPlacementEntries(entries), s.placementConfig())
	summary.Errors = append(summary.Errors, warnings...)

	applyResult := s.reorganizer.Apply(ctx, placements)
	summary.Moved = applyResult.Moved
	summary.Renamed = applyResult.Renamed
	summary.Errors = append(summary.Errors, applyResult.Errors...)

	// Record the scores this pass saw; next pass's deltas measure against them.
	for _, e := range entries {
		if err := s.repo.SetPreviousScore(ctx, s.db, e.ChannelID, e.ActivityScore); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("persist score %s: %v", e.ChannelID, err))
		}
	}

	summary.FinishedAt = time.Now()
	s.finishPass(ctx, &summary, start)
	return summary, nil
}

// DryRun computes the plan the next pass would apply without touching Discord
// or the previous-score records.
func (s *Service) DryRun(ctx context.Context, requestedBy string) (clubevents.DryRunResultPayloadV1, error) {
	ctx, span := s.tracer.Start(ctx, "Service.DryRun")
	defer span.End()

	if _, err := s.Flush(ctx); err != nil {
		return clubevents.DryRunResultPayloadV1{}, err
	}

	entries, _, err := s.builder.BuildRanking(ctx, activityservice.ModePersistedCount)
	if err != nil {
		return clubevents.DryRunResultPayloadV1{}, err
	}

	placements, warnings := placement.Plan(toPlacementEntries(entries), s.placementConfig())

	result := clubevents.DryRunResultPayloadV1{
		RequestedBy: requestedBy,
		Warnings:    warnings,
		ComputedAt:  time.Now(),
	}
	for _, p := range placements {
		result.Entries = append(result.Entries, clubevents.PlannedMoveV1{
			ChannelID:        p.ChannelID,
			ActivityScore:    p.ActivityScore,
			PointChange:      p.PointChange,
			TargetCategoryID: p.TargetCategoryID,
			Position:         p.Position,
			NewName:          p.NewName,
		})
	}
	return result, nil
}

// WeeklyRollover closes the scoring window: one final pass on the week's
// counts, then the counts reset to zero for the new window.
func (s *Service) WeeklyRollover(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "Service.WeeklyRollover")
	defer span.End()

	if _, err := s.RunPass(ctx, "weekly-rollover"); err != nil {
		s.logger.ErrorContext(ctx, "Rollover pass failed, resetting counts anyway", slog.Any("error", err))
	}
	if err := s.repo.ResetWeeklyCounts(ctx, s.db); err != nil {
		return fmt.Errorf("failed to reset weekly counts: %w", err)
	}
	s.logger.InfoContext(ctx, "Weekly counts reset")
	return nil
}

// RefreshLeaderboard rewrites the permanent ranking message.
func (s *Service) RefreshLeaderboard(ctx context.Context) error {
	if s.club.LeaderboardChannelID == "" {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "Service.RefreshLeaderboard")
	defer span.End()

	entries, _, err := s.builder.BuildRanking(ctx, activityservice.ModePersistedCount)
	if err != nil {
		return fmt.Errorf("failed to build ranking for leaderboard: %w", err)
	}

	content := renderLeaderboard(entries, time.Now())

	s.leaderboardMu.Lock()
	defer s.leaderboardMu.Unlock()

	if s.leaderboardMessageID != "" {
		if _, err := s.guild.EditMessage(ctx, s.club.LeaderboardChannelID, s.leaderboardMessageID, content); err == nil {
			return nil
		}
		// Message deleted or unreachable: fall through and recreate.
		s.logger.WarnContext(ctx, "Leaderboard message edit failed, recreating",
			slog.String("message_id", s.leaderboardMessageID),
		)
	}

	msg, err := s.guild.SendMessage(ctx, s.club.LeaderboardChannelID, content)
	if err != nil {
		return fmt.Errorf("failed to post leaderboard message: %w", err)
	}
	s.leaderboardMessageID = msg.ID
	return nil
}

// Snapshot returns the ranking computed by the most recent pass. ok is false
// until the first pass of the process has finished.
func (s *Service) Snapshot() (entries []ranking.Entry, at time.Time, ok bool) {
	s.snapshotMu.RLock()
	defer s.snapshotMu.RUnlock()
	if s.snapshotAt.IsZero() {
		return nil, time.Time{}, false
	}
	out := make([]ranking.Entry, len(s.snapshot))
	copy(out, s.snapshot)
	return out, s.snapshotAt, true
}

func (s *Service) storeSnapshot(entries []ranking.Entry) {
	s.snapshotMu.Lock()
	defer s.snapshotMu.Unlock()
	s.snapshot = entries
	s.snapshotAt = time.Now()
}

const leaderboardSize = 10

// renderLeaderboard formats the top entries with period-over-period deltas.
func renderLeaderboard(entries []ranking.Entry, now time.Time) string {
	var b strings.Builder
	b.WriteString("🏆 **部活アクティビティランキング**\n")
	b.WriteString(now.In(activityservice.Zone).Format("2006/01/02 15:04") + " 更新\n\n")

	medals := []string{"🥇", "🥈", "🥉"}
	for i, e := range entries {
		if i >= leaderboardSize {
			break
		}
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		delta := fmt.Sprintf("+%d", e.PointChange)
		if e.PointChange < 0 {
			delta = fmt.Sprintf("%d", e.PointChange)
		}
		fmt.Fprintf(&b, "%s <#%s> — %dpt (%s)\n", rank, e.ChannelID, e.ActivityScore, delta)
	}
	if len(entries) == 0 {
		b.WriteString("まだ活動がありません\n")
	}
	return b.String()
}

func (s *Service) placementConfig() placement.Config {
	return placement.Config{
		PopularCategoryID: s.club.PopularCategoryID,
		CategorySequence:  s.club.ClubCategoryIDs,
	}
}

func toPlacementEntries(entries []ranking.Entry) []placement.Entry {
	out := make([]placement.Entry, len(entries))
	for i, e := range entries {
		out[i] = placement.Entry{
			ChannelID:        e.ChannelID,
			Name:             e.Name,
			ActivityScore:    e.ActivityScore,
			PointChange:      e.PointChange,
			OriginalPosition: e.OriginalPosition,
		}
	}
	return out
}

// finishPass records metrics and publishes the pass summary.
func (s *Service) finishPass(ctx context.Context, summary *clubevents.PassSummaryPayloadV1, start time.Time) {
	s.metrics.ObservePass(*summary, time.Since(start))

	s.logger.InfoContext(ctx, "Pass completed",
		slog.String("triggered_by", summary.TriggeredBy),
		slog.Int("ranked", summary.Ranked),
		slog.Int("moved", summary.Moved),
		slog.Int("renamed", summary.Renamed),
		slog.Int("archived", summary.Archived),
		slog.Int("revived", summary.Revived),
		slog.Int("errors", len(summary.Errors)),
	)

	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to marshal pass summary", slog.Any("error", err))
		return
	}
	if err := s.bus.Publish(clubevents.PassSummaryV1, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish pass summary", slog.Any("error", err))
	}
}
