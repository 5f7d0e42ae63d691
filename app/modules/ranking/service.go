// Package ranking builds the ordered club ranking from live guild state and
// the activity store.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	activityservice "github.com/romeda-works/romeda-bot/app/modules/activity/application"
	activitydb "github.com/romeda-works/romeda-bot/app/modules/activity/infrastructure/repositories"
	"github.com/romeda-works/romeda-bot/config"
	"github.com/romeda-works/romeda-bot/internal/discord"
)

// scoreConcurrency caps concurrent history walks so a pass does not fan out
// into Discord's rate limits.
const scoreConcurrency = 4

// Scorer is the scoring dependency; satisfied by activityservice.Scorer.
type Scorer interface {
	Score(ctx context.Context, channelID string, mode activityservice.Mode) (activityservice.Score, error)
}

// Entry is one ranked channel.
type Entry struct {
	ChannelID          string
	Name               string
	ActiveMemberCount  int
	WeeklyMessageCount int
	ActivityScore      int
	PointChange        int
	OriginalPosition   int
}

// Builder collects eligible club channels, scores them, and produces the
// total order the planner consumes. It never writes; persisting the new
// previous-scores is the caller's job after the pass applies.
type Builder struct {
	guild   discord.GuildClient
	scorer  Scorer
	repo    activitydb.Repository
	db      *bun.DB
	guildID string
	club    config.ClubConfig
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewBuilder creates a new Builder.
func NewBuilder(
	guild discord.GuildClient,
	scorer Scorer,
	repo activitydb.Repository,
	db *bun.DB,
	guildID string,
	club config.ClubConfig,
	logger *slog.Logger,
	tracer trace.Tracer,
) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("ranking")
	}
	return &Builder{
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

// BuildRanking returns the ordered ranking plus the list of channels that
// could not be scored this pass. A skipped channel is not a fatal error.
func (b *Builder) BuildRanking(ctx context.Context, mode activityservice.Mode) ([]Entry, []string, error) {
	ctx, span := b.tracer.Start(ctx, "Builder.BuildRanking")
	defer span.End()

	channels, err := b.guild.GuildChannels(ctx, b.guildID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list guild channels: %w", err)
	}

	eligible := b.eligibleChannels(channels)

	entries := make([]Entry, 0, len(eligible))
	var skipped []string
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, scoreConcurrency)

	for _, ch := range eligible {
		wg.Add(1)
		go func(ch *discordgo.Channel) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			entry, err := b.scoreChannel(ctx, ch, mode)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				b.logger.WarnContext(ctx, "Skipping channel this pass",
					slog.String("channel_id", ch.ID),
					slog.Any("error", err),
				)
				skipped = append(skipped, ch.ID)
				return
			}
			entries = append(entries, entry)
		}(ch)
	}
	wg.Wait()

	sortEntries(entries)
	sort.Strings(skipped)

	return entries, skipped, nil
}

// eligibleChannels filters to text channels under the club categories,
// excluding the deny list.
func (b *Builder) eligibleChannels(channels []*discordgo.Channel) []*discordgo.Channel {
	clubCategories := make(map[string]bool, len(b.club.ClubCategoryIDs)+1)
	clubCategories[b.club.PopularCategoryID] = true
	for _, id := range b.club.ClubCategoryIDs {
		clubCategories[id] = true
	}
	excluded := make(map[string]bool, len(b.club.ExcludedChannelIDs))
	for _, id := range b.club.ExcludedChannelIDs {
		excluded[id] = true
	}

	var out []*discordgo.Channel
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		if !clubCategories[ch.ParentID] || excluded[ch.ID] {
			continue
		}
		out = append(out, ch)
	}
	return out
}

func (b *Builder) scoreChannel(ctx context.Context, ch *discordgo.Channel, mode activityservice.Mode) (Entry, error) {
	score, err := b.scorer.Score(ctx, ch.ID, mode)
	if err != nil {
		return Entry{}, err
	}

	previous, err := b.repo.GetPreviousScore(ctx, b.db, ch.ID)
	if err != nil {
		if !errors.Is(err, activitydb.ErrNotFound) {
			return Entry{}, fmt.Errorf("failed to read previous score: %w", err)
		}
		previous = 0
	}

	return Entry{
		ChannelID:          ch.ID,
		Name:               ch.Name,
		ActiveMemberCount:  score.ActiveMemberCount,
		WeeklyMessageCount: score.WeeklyMessageCount,
		ActivityScore:      score.ActivityScore,
		PointChange:        score.ActivityScore - previous,
		OriginalPosition:   ch.Position,
	}, nil
}

// sortEntries orders by score descending, ties broken by original position
// ascending, then channel ID for a strict total order.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ActivityScore != entries[j].ActivityScore {
			return entries[i].ActivityScore > entries[j].ActivityScore
		}
		if entries[i].OriginalPosition != entries[j].OriginalPosition {
			return entries[i].OriginalPosition < entries[j].OriginalPosition
		}
		return entries[i].ChannelID < entries[j].ChannelID
	})
}
