package reorg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	activityservice "github.com/romeda-works/romeda-bot/app/modules/activity/application"
	activitydb "github.com/romeda-works/romeda-bot/app/modules/activity/infrastructure/repositories"
	"github.com/romeda-works/romeda-bot/app/modules/placement"
	"github.com/romeda-works/romeda-bot/config"
	"github.com/romeda-works/romeda-bot/internal/discord"
)

// ErrArchiveNotConfigured aborts a sweep when no archive category is set.
// Fatal for the sweep only; the rest of a pass proceeds without it.
var ErrArchiveNotConfigured = errors.New("archive category is not configured")

// Scorer is the scoring dependency; satisfied by activityservice.Scorer.
type Scorer interface {
	Score(ctx context.Context, channelID string, mode activityservice.Mode) (activityservice.Score, error)
}

// SweepResult summarizes one archive/revive sweep.
type SweepResult struct {
	Archived int
	Revived  int
	Errors   []string
}

// Sweep demotes dead clubs into the archive tree and promotes revived ones
// back out. It runs ahead of the main reorganization so the ranking computed
// in the same pass sees the channels where they belong.
//
// Demotion rule: score 0 for the window AND no registered leader. A leaderless
// club that is still active stays; an inactive club with a leader stays too,
// leaving the leader a week to rally.
type Sweep struct {
	guild   discord.GuildClient
	scorer  Scorer
	repo    activitydb.Repository
	db      *bun.DB
	guildID string
	club    config.ClubConfig
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewSweep creates a new Sweep.
func NewSweep(
	guild discord.GuildClient,
	scorer Scorer,
	repo activitydb.Repository,
	db *bun.DB,
	guildID string,
	club config.ClubConfig,
	logger *slog.Logger,
	tracer trace.Tracer,
) *Sweep {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("reorg")
	}
	return &Sweep{
		guild:   guild,
		scorer:  scorer,
		repo:    repo,
		db:      db,
		guildID: guildID,
		club:    club,
		logger:  logger,
		tracer:  tracer,
	}
}

// Run executes one sweep. Per-channel failures accumulate in the result; only
// misconfiguration aborts the sweep as a whole.
func (s *Sweep) Run(ctx context.Context, mode activityservice.Mode) (SweepResult, error) {
	ctx, span := s.tracer.Start(ctx, "Sweep.Run")
	defer span.End()

	var result SweepResult

	if s.club.ArchiveCategoryID == "" {
		return result, ErrArchiveNotConfigured
	}

	channels, err := s.guild.GuildChannels(ctx, s.guildID)
	if err != nil {
		return result, fmt.Errorf("failed to list guild channels: %w", err)
	}

	clubCategories := make(map[string]bool, len(s.club.ClubCategoryIDs)+1)
	clubCategories[s.club.PopularCategoryID] = true
	for _, id := range s.club.ClubCategoryIDs {
		clubCategories[id] = true
	}
	excluded := make(map[string]bool, len(s.club.ExcludedChannelIDs))
	for _, id := range s.club.ExcludedChannelIDs {
		excluded[id] = true
	}

	archiveFill := 0
	for _, ch := range channels {
		if ch.ParentID == s.club.ArchiveCategoryID {
			archiveFill++
		}
	}

	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText || excluded[ch.ID] {
			continue
		}

		switch {
		case clubCategories[ch.ParentID]:
			archived, err := s.maybeArchive(ctx, ch, mode, &archiveFill)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("archive check %s: %v", ch.ID, err))
				continue
			}
			if archived {
				result.Archived++
			}

		case ch.ParentID == s.club.ArchiveCategoryID || ch.ParentID == s.club.ArchiveOverflowCategoryID:
			revived, err := s.maybeRevive(ctx, ch, mode)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("revive check %s: %v", ch.ID, err))
				continue
			}
			if revived {
				result.Revived++
				if ch.ParentID == s.club.ArchiveCategoryID {
					archiveFill--
				}
			}
		}
	}

	return result, nil
}

// maybeArchive demotes a dead club. archiveFill tracks the primary archive's
// occupancy so overflow kicks in at the capacity ceiling.
func (s *Sweep) maybeArchive(ctx context.Context, ch *discordgo.Channel, mode activityservice.Mode, archiveFill *int) (bool, error) {
	score, err := s.scorer.Score(ctx, ch.ID, mode)
	if err != nil {
		return false, err
	}
	if score.ActivityScore > 0 {
		return false, nil
	}

	if _, err := s.repo.GetLeader(ctx, s.db, ch.ID); err == nil {
		// Dead but led: the leader gets another window.
		return false, nil
	} else if !errors.Is(err, activitydb.ErrNotFound) {
		return false, fmt.Errorf("failed to read leader binding: %w", err)
	}

	target := s.club.ArchiveCategoryID
	if *archiveFill >= placement.CategoryCapacity {
		if s.club.ArchiveOverflowCategoryID == "" {
			return false, fmt.Errorf("archive category full and no overflow configured")
		}
		target = s.club.ArchiveOverflowCategoryID
	}

	if err := moveWithOverwrites(ctx, s.guild, ch, target); err != nil {
		return false, err
	}
	if target == s.club.ArchiveCategoryID {
		*archiveFill++
	}

	s.logger.InfoContext(ctx, "Archived dead club",
		slog.String("channel_id", ch.ID),
		slog.String("target_category", target),
	)
	return true, nil
}

// maybeRevive promotes an archived club that has activity again. It lands in
// the last overflow category; the next ranking pass places it properly.
func (s *Sweep) maybeRevive(ctx context.Context, ch *discordgo.Channel, mode activityservice.Mode) (bool, error) {
	score, err := s.scorer.Score(ctx, ch.ID, mode)
	if err != nil {
		return false, err
	}
	if score.ActivityScore == 0 {
		return false, nil
	}

	target := s.club.PopularCategoryID
	if len(s.club.ClubCategoryIDs) > 0 {
		target = s.club.ClubCategoryIDs[len(s.club.ClubCategoryIDs)-1]
	}
	if err := moveWithOverwrites(ctx, s.guild, ch, target); err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "Revived club",
		slog.String("channel_id", ch.ID),
		slog.Int("activity_score", score.ActivityScore),
	)
	return true, nil
}
