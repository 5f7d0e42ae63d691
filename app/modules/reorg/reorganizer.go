// Package reorg applies placement plans to the live channel graph and runs
// the archive/revive sweep. All Discord mutations in the engine happen here.
package reorg

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/romeda-works/romeda-bot/app/modules/placement"
	"github.com/romeda-works/romeda-bot/internal/discord"
)

// Result summarizes a batch apply.
type Result struct {
	Moved        int
	Repositioned int
	Renamed      int
	Errors       []string
}

// Reorganizer applies a plan channel by channel. Each mutation (move,
// reposition, rename) is idempotent and attempted independently; one failure
// never blocks the rest of the channel or the rest of the plan, so a
// partially failed pass can simply be re-run.
type Reorganizer struct {
	guild   discord.GuildClient
	guildID string
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewReorganizer creates a new Reorganizer.
func NewReorganizer(guild discord.GuildClient, guildID string, logger *slog.Logger, tracer trace.Tracer) *Reorganizer {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("reorg")
	}
	return &Reorganizer{guild: guild, guildID: guildID, logger: logger, tracer: tracer}
}

// Apply executes the plan against the live guild. Best-effort batch: the
// external platform has no multi-object transaction, so this never pretends
// to be one.
func (r *Reorganizer) Apply(ctx context.Context, placements []placement.Placement) Result {
	ctx, span := r.tracer.Start(ctx, "Reorganizer.Apply")
	defer span.End()

	var result Result

	channels, err := r.guild.GuildChannels(ctx, r.guildID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to list guild channels: %v", err))
		return result
	}
	byID := make(map[string]*discordgo.Channel, len(channels))
	for _, ch := range channels {
		byID[ch.ID] = ch
	}

	for _, p := range placements {
		ch, ok := byID[p.ChannelID]
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("channel %s disappeared before apply", p.ChannelID))
			continue
		}

		if ch.ParentID != p.TargetCategoryID {
			if err := moveWithOverwrites(ctx, r.guild, ch, p.TargetCategoryID); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("move %s: %v", p.ChannelID, err))
				r.logger.WarnContext(ctx, "Channel move failed",
					slog.String("channel_id", p.ChannelID),
					slog.Any("error", err),
				)
			} else {
				result.Moved++
			}
		}

		if ch.Position != p.Position {
			pos := p.Position
			if _, err := r.guild.EditChannel(ctx, p.ChannelID, &discordgo.ChannelEdit{Position: &pos}); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("reposition %s: %v", p.ChannelID, err))
				r.logger.WarnContext(ctx, "Channel reposition failed",
					slog.String("channel_id", p.ChannelID),
					slog.Any("error", err),
				)
			} else {
				result.Repositioned++
			}
		}

		if ch.Name != p.NewName {
			if _, err := r.guild.EditChannel(ctx, p.ChannelID, &discordgo.ChannelEdit{Name: p.NewName}); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("rename %s: %v", p.ChannelID, err))
				r.logger.WarnContext(ctx, "Channel rename failed",
					slog.String("channel_id", p.ChannelID),
					slog.Any("error", err),
				)
			} else {
				result.Renamed++
			}
		}
	}

	return result
}

// moveWithOverwrites moves a channel to a new category and re-applies its
// permission overwrites one by one. Discord does not guarantee overwrites
// survive a parent change, so the re-apply is explicit.
func moveWithOverwrites(ctx context.Context, guild discord.GuildClient, ch *discordgo.Channel, targetCategoryID string) error {
	captured := make([]*discordgo.PermissionOverwrite, len(ch.PermissionOverwrites))
	copy(captured, ch.PermissionOverwrites)

	if _, err := guild.EditChannel(ctx, ch.ID, &discordgo.ChannelEdit{ParentID: targetCategoryID}); err != nil {
		return err
	}

	var firstErr error
	for _, ow := range captured {
		if err := guild.SetChannelPermission(ctx, ch.ID, ow); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to re-apply overwrite for %s: %w", ow.ID, err)
		}
	}
	return firstErr
}
