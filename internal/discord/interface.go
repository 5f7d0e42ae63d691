package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// GuildClient is the guild surface the ranking engine touches. Everything is
// asynchronous, rate-limited I/O on the Discord side; implementations pace
// their own calls.
type GuildClient interface {
	// GuildChannels returns every channel in the guild, categories included.
	GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error)

	// ChannelMessages returns up to limit messages before beforeID, newest first.
	ChannelMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]*discordgo.Message, error)

	// EditChannel applies a channel edit (name, parent, position, overwrites).
	EditChannel(ctx context.Context, channelID string, edit *discordgo.ChannelEdit) (*discordgo.Channel, error)

	// SetChannelPermission re-applies a single permission overwrite.
	SetChannelPermission(ctx context.Context, channelID string, overwrite *discordgo.PermissionOverwrite) error

	// ChannelMessage fetches a single message.
	ChannelMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)

	// SendMessage posts a message to a channel.
	SendMessage(ctx context.Context, channelID, content string) (*discordgo.Message, error)

	// EditMessage rewrites an existing message.
	EditMessage(ctx context.Context, channelID, messageID, content string) (*discordgo.Message, error)
}
