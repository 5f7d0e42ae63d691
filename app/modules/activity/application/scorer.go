package activityservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	activitydb "github.com/romeda-works/romeda-bot/app/modules/activity/infrastructure/repositories"
	"github.com/romeda-works/romeda-bot/internal/discord"
)

const (
	// historyBatchSize is the page size for backward history walks.
	historyBatchSize = 100
	// maxLookback caps how many messages a single walk may touch. Channels
	// busier than this get an approximate count, which is accepted.
	maxLookback = 1000
)

// Mode selects where the weekly message count comes from.
type Mode int

const (
	// ModeHistoryWalk counts messages by walking channel history back to the
	// window boundary.
	ModeHistoryWalk Mode = iota
	// ModePersistedCount reads the flushed weekly counter instead. Callers
	// must flush the buffer first or the count will trail the live walk.
	ModePersistedCount
)

// Score is one channel's window-bounded activity.
type Score struct {
	ActiveMemberCount  int
	WeeklyMessageCount int
	ActivityScore      int
}

// Scorer computes window-bounded activity scores. It is the single scoring
// entry point for every call site; the two accumulation paths live behind
// Mode so they cannot drift apart.
type Scorer struct {
	guild  discord.GuildClient
	repo   activitydb.Repository
	db     *bun.DB
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewScorer creates a new Scorer.
func NewScorer(
	guild discord.GuildClient,
	repo activitydb.Repository,
	db *bun.DB,
	logger *slog.Logger,
	tracer trace.Tracer,
) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("activity")
	}
	return &Scorer{
		guild:  guild,
		repo:   repo,
		db:     db,
		logger: logger,
		tracer: tracer,
		now:    time.Now,
	}
}

// SetNow overrides the clock. Test hook.
func (s *Scorer) SetNow(now func() time.Time) {
	s.now = now
}

// Score computes one channel's activity for the current window. Pure read: no
// store writes, no Discord mutations.
func (s *Scorer) Score(ctx context.Context, channelID string, mode Mode) (Score, error) {
	ctx, span := s.tracer.Start(ctx, "Scorer.Score")
	defer span.End()

	boundary := WindowStart(s.now())

	walk, err := s.walkHistory(ctx, channelID, boundary)
	if err != nil {
		return Score{}, fmt.Errorf("failed to walk history for channel %s: %w", channelID, err)
	}

	messageCount := walk.messageCount
	if mode == ModePersistedCount {
		persisted, err := s.repo.GetWeeklyCount(ctx, s.db, channelID)
		if err != nil {
			return Score{}, fmt.Errorf("failed to read weekly count for channel %s: %w", channelID, err)
		}
		messageCount = persisted
	}

	return Score{
		ActiveMemberCount:  walk.activeMembers,
		WeeklyMessageCount: messageCount,
		ActivityScore:      walk.activeMembers * messageCount,
	}, nil
}

type walkResult struct {
	activeMembers int
	messageCount  int
}

// walkHistory pages backward through channel history until it crosses the
// window boundary or hits the lookback cap. Bot messages never count.
func (s *Scorer) walkHistory(ctx context.Context, channelID string, boundary time.Time) (walkResult, error) {
	authors := make(map[string]bool)
	messageCount := 0
	fetched := 0
	beforeID := ""

	for fetched < maxLookback {
		batch, err := s.guild.ChannelMessages(ctx, channelID, historyBatchSize, beforeID)
		if err != nil {
			return walkResult{}, err
		}
		if len(batch) == 0 {
			break
		}

		crossedBoundary := false
		for _, msg := range batch {
			if msg.Timestamp.Before(boundary) {
				crossedBoundary = true
				break
			}
			if msg.Author == nil || msg.Author.Bot {
				continue
			}
			messageCount++
			authors[msg.Author.ID] = true
		}

		fetched += len(batch)
		if crossedBoundary || len(batch) < historyBatchSize {
			break
		}
		beforeID = batch[len(batch)-1].ID
	}

	if fetched >= maxLookback {
		s.logger.DebugContext(ctx, "History walk hit lookback cap",
			slog.String("channel_id", channelID),
			slog.Int("fetched", fetched),
		)
	}

	return walkResult{activeMembers: len(authors), messageCount: messageCount}, nil
}
