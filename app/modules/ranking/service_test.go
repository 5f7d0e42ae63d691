package ranking

import (
	"context"
	"errors"
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
	scores map[string]activityservice.Score
	errs   map[string]error
}

func (f *fakeScorer) Score(ctx context.Context, channelID string, mode activityservice.Mode) (activityservice.Score, error) {
	if err, ok := f.errs[channelID]; ok {
		return activityservice.Score{}, err
	}
	return f.scores[channelID], nil
}

func clubConfig() config.ClubConfig {
	return config.ClubConfig{
		PopularCategoryID:  "cat-popular",
		ClubCategoryIDs:    []string{"cat-a", "cat-b"},
		ExcludedChannelIDs: []string{"chan-excluded"},
	}
}

func textChannel(id, parentID string, position int) *discordgo.Channel {
	return &discordgo.Channel{
		ID:       id,
		Name:     "club-" + id,
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: parentID,
		Position: position,
	}
}

func scoreOf(members, messages int) activityservice.Score {
	return activityservice.Score{
		ActiveMemberCount:  members,
		WeeklyMessageCount: messages,
		ActivityScore:      members * messages,
	}
}

func TestBuildRankingSevenChannelScenario(t *testing.T) {
	// (members, messages) per channel; scores [500 150 100 1 0 800 16].
	counts := [][2]int{{5, 100}, {3, 50}, {10, 10}, {1, 1}, {0, 0}, {2, 400}, {4, 4}}

	channels := make([]*discordgo.Channel, 0, len(counts))
	scorer := &fakeScorer{scores: map[string]activityservice.Score{}}
	ids := []string{"a", "b", "c", "d", "e", "f", "g"}
	for i, id := range ids {
		channels = append(channels, textChannel(id, "cat-a", i))
		scorer.scores[id] = scoreOf(counts[i][0], counts[i][1])
	}

	guild := discordtest.NewFakeGuildClient()
	guild.GuildChannelsFunc = func(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
		return channels, nil
	}

	b := NewBuilder(guild, scorer, activitydbtest.NewFakeRepository(), nil, "guild-1", clubConfig(), slog.Default(), nil)

	entries, skipped, err := b.BuildRanking(context.Background(), activityservice.ModeHistoryWalk)
	assert.NoError(t, err)
	assert.Empty(t, skipped)

	gotOrder := make([]string, len(entries))
	gotScores := make([]int, len(entries))
	for i, e := range entries {
		gotOrder[i] = e.ChannelID
		gotScores[i] = e.ActivityScore
	}
	assert.Equal(t, []string{"f", "a", "b", "c", "g", "d", "e"}, gotOrder)
	assert.Equal(t, []int{800, 500, 150, 100, 16, 1, 0}, gotScores)
}

func TestBuildRankingTieBreakByPosition(t *testing.T) {
	// All permutations of three tied channels must come out in position order.
	perms := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	ids := []string{"x", "y", "z"} // positions 0, 1, 2 respectively

	for _, perm := range perms {
		channels := make([]*discordgo.Channel, 3)
		for i, p := range perm {
			channels[i] = textChannel(ids[p], "cat-a", p)
		}

		guild := discordtest.NewFakeGuildClient()
		guild.GuildChannelsFunc = func(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
			return channels, nil
		}
		scorer := &fakeScorer{scores: map[string]activityservice.Score{
			"x": scoreOf(2, 5), "y": scoreOf(2, 5), "z": scoreOf(2, 5),
		}}

		b := NewBuilder(guild, scorer, activitydbtest.NewFakeRepository(), nil, "guild-1", clubConfig(), slog.Default(), nil)
		entries, _, err := b.BuildRanking(context.Background(), activityservice.ModeHistoryWalk)
		assert.NoError(t, err)

		got := []string{entries[0].ChannelID, entries[1].ChannelID, entries[2].ChannelID}
		assert.Equal(t, []string{"x", "y", "z"}, got, "input order %v", perm)
	}
}

func TestBuildRankingPointChange(t *testing.T) {
	guild := discordtest.NewFakeGuildClient()
	guild.GuildChannelsFunc = func(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
		return []*discordgo.Channel{
			textChannel("up", "cat-a", 0),
			textChannel("down", "cat-a", 1),
			textChannel("new", "cat-a", 2),
		}, nil
	}
	scorer := &fakeScorer{scores: map[string]activityservice.Score{
		"up":   scoreOf(10, 10), // 100
		"down": scoreOf(2, 10),  // 20
		"new":  scoreOf(5, 10),  // 50
	}}

	repo := activitydbtest.NewFakeRepository()
	repo.PreviousScores["up"] = 40
	repo.PreviousScores["down"] = 90
	// "new" has no previous score: treated as 0

	b := NewBuilder(guild, scorer, repo, nil, "guild-1", clubConfig(), slog.Default(), nil)
	entries, _, err := b.BuildRanking(context.Background(), activityservice.ModeHistoryWalk)
	assert.NoError(t, err)

	changes := map[string]int{}
	for _, e := range entries {
		changes[e.ChannelID] = e.PointChange
	}
	assert.Equal(t, map[string]int{"up": 60, "down": -70, "new": 50}, changes)
}

func TestBuildRankingFiltersChannels(t *testing.T) {
	guild := discordtest.NewFakeGuildClient()
	guild.GuildChannelsFunc = func(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
		return []*discordgo.Channel{
			textChannel("club", "cat-a", 0),
			textChannel("chan-excluded", "cat-a", 1),
			textChannel("outside", "cat-unrelated", 2),
			{ID: "voice", Type: discordgo.ChannelTypeGuildVoice, ParentID: "cat-a"},
			{ID: "cat-a", Type: discordgo.ChannelTypeGuildCategory},
		}, nil
	}
	scorer := &fakeScorer{scores: map[string]activityservice.Score{"club": scoreOf(1, 1)}}

	b := NewBuilder(guild, scorer, activitydbtest.NewFakeRepository(), nil, "guild-1", clubConfig(), slog.Default(), nil)
	entries, skipped, err := b.BuildRanking(context.Background(), activityservice.ModeHistoryWalk)
	assert.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Len(t, entries, 1)
	assert.Equal(t, "club", entries[0].ChannelID)
}

func TestBuildRankingSkipsFailedChannels(t *testing.T) {
	guild := discordtest.NewFakeGuildClient()
	guild.GuildChannelsFunc = func(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
		return []*discordgo.Channel{
			textChannel("good", "cat-a", 0),
			textChannel("broken", "cat-a", 1),
		}, nil
	}
	scorer := &fakeScorer{
		scores: map[string]activityservice.Score{"good": scoreOf(3, 4)},
		errs:   map[string]error{"broken": errors.New("fetch failed")},
	}

	b := NewBuilder(guild, scorer, activitydbtest.NewFakeRepository(), nil, "guild-1", clubConfig(), slog.Default(), nil)
	entries, skipped, err := b.BuildRanking(context.Background(), activityservice.ModeHistoryWalk)
	assert.NoError(t, err)
	assert.Equal(t, []string{"broken"}, skipped)
	assert.Len(t, entries, 1)
	assert.Equal(t, "good", entries[0].ChannelID)
}

func TestBuildRankingGuildFetchErrorIsFatal(t *testing.T) {
	guild := discordtest.NewFakeGuildClient()
	guild.GuildChannelsFunc = func(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
		return nil, errors.New("guild unavailable")
	}

	b := NewBuilder(guild, &fakeScorer{}, activitydbtest.NewFakeRepository(), nil, "guild-1", clubConfig(), slog.Default(), nil)
	_, _, err := b.BuildRanking(context.Background(), activityservice.ModeHistoryWalk)
	assert.Error(t, err)
}
