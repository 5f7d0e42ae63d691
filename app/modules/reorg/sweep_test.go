package reorg

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"

	activityservice "github.com/romeda-works/romeda-bot/app/modules/activity/application"
	"github.com/romeda-works/romeda-bot/app/modules/activity/infrastructure/repositories/activitydbtest"
	"github.com/romeda-works/romeda-bot/config"
	"github.com/romeda-works/romeda-bot/internal/discord/discordtest"
)

type fakeScorer struct {
	scores map[string]int
	errs   map[string]error
}

func (f *fakeScorer) Score(ctx context.Context, channelID string, mode activityservice.Mode) (activityservice.Score, error) {
	if err, ok := f.errs[channelID]; ok {
		return activityservice.Score{}, err
	}
	score := f.scores[channelID]
	return activityservice.Score{ActivityScore: score}, nil
}

func sweepConfig() config.ClubConfig {
	return config.ClubConfig{
		PopularCategoryID:         "cat-popular",
		ClubCategoryIDs:           []string{"cat-a", "cat-b"},
		ArchiveCategoryID:         "cat-archive",
		ArchiveOverflowCategoryID: "cat-archive-2",
	}
}

func TestSweepArchivesDeadLeaderlessClubs(t *testing.T) {
	guild := discordtest.NewFakeGuildClient()
	guild.GuildChannelsFunc = func(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
		return []*discordgo.Channel{
			liveChannel("dead-led", "cat-a", "dead-led", 0),
			liveChannel("dead-leaderless", "cat-a", "dead-leaderless", 1),
			liveChannel("alive", "cat-a", "alive", 2),
		}, nil
	}

	var moves []string
	guild.EditChannelFunc = func(ctx context.Context, channelID string, edit *discordgo.ChannelEdit) (*discordgo.Channel, error) {
		if edit.ParentID != "" {
			moves = append(moves, fmt.Sprintf("%s->%s", channelID, edit.ParentID))
		}
		return nil, nil
	}

	scorer := &fakeScorer{scores: map[string]int{"dead-led": 0, "dead-leaderless": 0, "alive": 30}}
	repo := activitydbtest.NewFakeRepository()
	repo.Leaders["dead-led"] = "user-leader"

	s := NewSweep(guild, scorer, repo, nil, "guild-1", sweepConfig(), slog.Default(), nil)
	result, err := s.Run(context.Background(), activityservice.ModeHistoryWalk)

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Archived)
	assert.Equal(t, 0, result.Revived)
	assert.Empty(t, result.Errors)
	// Only the leaderless dead club moved; the led one keeps its window.
	assert.Equal(t, []string{"dead-leaderless->cat-archive"}, moves)
}

func TestSweepOverflowsWhenArchiveIsFull(t *testing.T) {
	channels := []*discordgo.Channel{
		liveChannel("dead", "cat-a", "dead", 0),
	}
	// Fill the primary archive to the ceiling.
	for i := 0; i < 50; i++ {
		channels = append(channels, liveChannel(fmt.Sprintf("tomb-%02d", i), "cat-archive", "tomb", i))
	}

	guild := discordtest.NewFakeGuildClient()
	guild.GuildChannelsFunc = func(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
		return channels, nil
	}
	var moves []string
	guild.EditChannelFunc = func(ctx context.Context, channelID string, edit *discordgo.ChannelEdit) (*discordgo.Channel, error) {
		if edit.ParentID != "" {
			moves = append(moves, fmt.Sprintf("%s->%s", channelID, edit.ParentID))
		}
		return nil, nil
	}

	scorer := &fakeScorer{scores: map[string]int{"dead": 0}} // tombs score 0 too

	s := NewSweep(guild, scorer, activitydbtest.NewFakeRepository(), nil, "guild-1", sweepConfig(), slog.Default(), nil)
	result, err := s.Run(context.Background(), activityservice.ModeHistoryWalk)

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Archived)
	assert.Equal(t, []string{"dead->cat-archive-2"}, moves)
}

func TestSweepRevivesActiveArchivedClubs(t *testing.T) {
	guild := discordtest.NewFakeGuildClient()
	guild.GuildChannelsFunc = func(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
		return []*discordgo.Channel{
			liveChannel("phoenix", "cat-archive", "phoenix", 0),
			liveChannel("still-dead", "cat-archive", "still-dead", 1),
			liveChannel("overflow-phoenix", "cat-archive-2", "overflow-phoenix", 0),
		}, nil
	}
	var moves []string
	guild.EditChannelFunc = func(ctx context.Context, channelID string, edit *discordgo.ChannelEdit) (*discordgo.Channel, error) {
		if edit.ParentID != "" {
			moves = append(moves, fmt.Sprintf("%s->%s", channelID, edit.ParentID))
		}
		return nil, nil
	}

	scorer := &fakeScorer{scores: map[string]int{"phoenix": 12, "still-dead": 0, "overflow-phoenix": 4}}

	s := NewSweep(guild, scorer, activitydbtest.NewFakeRepository(), nil, "guild-1", sweepConfig(), slog.Default(), nil)
	result, err := s.Run(context.Background(), activityservice.ModeHistoryWalk)

	assert.NoError(t, err)
	assert.Equal(t, 2, result.Revived)
	assert.Equal(t, 0, result.Archived)
	// Revived clubs land in the last overflow category until the next pass.
	assert.ElementsMatch(t, []string{"phoenix->cat-b", "overflow-phoenix->cat-b"}, moves)
}

func TestSweepRevivesIntoPopularWithoutClubCategories(t *testing.T) {
	guild := discordtest.NewFakeGuildClient()
	guild.GuildChannelsFunc = func(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
		return []*discordgo.Channel{
			liveChannel("phoenix", "cat-archive", "phoenix", 0),
		}, nil
	}
	var moves []string
	guild.EditChannelFunc = func(ctx context.Context, channelID string, edit *discordgo.ChannelEdit) (*discordgo.Channel, error) {
		if edit.ParentID != "" {
			moves = append(moves, fmt.Sprintf("%s->%s", channelID, edit.ParentID))
		}
		return nil, nil
	}

	cfg := sweepConfig()
	cfg.ClubCategoryIDs = nil

	scorer := &fakeScorer{scores: map[string]int{"phoenix": 12}}

	s := NewSweep(guild, scorer, activitydbtest.NewFakeRepository(), nil, "guild-1", cfg, slog.Default(), nil)
	result, err := s.Run(context.Background(), activityservice.ModeHistoryWalk)

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Revived)
	assert.Equal(t, []string{"phoenix->cat-popular"}, moves)
}

func TestSweepMissingArchiveCategoryIsFatal(t *testing.T) {
	cfg := sweepConfig()
	cfg.ArchiveCategoryID = ""

	s := NewSweep(discordtest.NewFakeGuildClient(), &fakeScorer{}, activitydbtest.NewFakeRepository(), nil, "guild-1", cfg, slog.Default(), nil)
	_, err := s.Run(context.Background(), activityservice.ModeHistoryWalk)

	assert.ErrorIs(t, err, ErrArchiveNotConfigured)
}

func TestSweepAccumulatesPerChannelErrors(t *testing.T) {
	guild := discordtest.NewFakeGuildClient()
	guild.GuildChannelsFunc = func(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
		return []*discordgo.Channel{
			liveChannel("broken", "cat-a", "broken", 0),
			liveChannel("dead", "cat-a", "dead", 1),
		}, nil
	}
	scorer := &fakeScorer{
		scores: map[string]int{"dead": 0},
		errs:   map[string]error{"broken": fmt.Errorf("history fetch failed")},
	}

	s := NewSweep(guild, scorer, activitydbtest.NewFakeRepository(), nil, "guild-1", sweepConfig(), slog.Default(), nil)
	result, err := s.Run(context.Background(), activityservice.ModeHistoryWalk)

	assert.NoError(t, err)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Archived)
}
