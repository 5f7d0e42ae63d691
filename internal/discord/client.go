package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

const (
	// Reads are paced well under Discord's per-route budget.
	readsPerSecond = 10
	readBurst      = 5

	// Mutations (moves, renames, permission edits) are the calls that trip
	// 429s during a reorganization pass, so they get a tighter limiter.
	writesPerSecond = 2
	writeBurst      = 1
)

// Client implements GuildClient on top of a discordgo session, pacing REST
// calls with token-bucket limiters.
type Client struct {
	session *discordgo.Session
	logger  *slog.Logger
	reads   *rate.Limiter
	writes  *rate.Limiter
}

// NewClient wraps an open discordgo session.
func NewClient(session *discordgo.Session, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		session: session,
		logger:  logger,
		reads:   rate.NewLimiter(rate.Limit(readsPerSecond), readBurst),
		writes:  rate.NewLimiter(rate.Limit(writesPerSecond), writeBurst),
	}
}

var _ GuildClient = (*Client)(nil)

// GuildChannels returns every channel in the guild.
func (c *Client) GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	if err := c.reads.Wait(ctx); err != nil {
		return nil, err
	}
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guild channels: %w", err)
	}
	return channels, nil
}

// ChannelMessages returns up to limit messages before beforeID.
func (c *Client) ChannelMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]*discordgo.Message, error) {
	if err := c.reads.Wait(ctx); err != nil {
		return nil, err
	}
	msgs, err := c.session.ChannelMessages(channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages for channel %s: %w", channelID, err)
	}
	return msgs, nil
}

// EditChannel applies a channel edit.
func (c *Client) EditChannel(ctx context.Context, channelID string, edit *discordgo.ChannelEdit) (*discordgo.Channel, error) {
	if err := c.writes.Wait(ctx); err != nil {
		return nil, err
	}
	ch, err := c.session.ChannelEditComplex(channelID, edit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to edit channel %s: %w", channelID, err)
	}
	return ch, nil
}

// SetChannelPermission re-applies a single permission overwrite.
func (c *Client) SetChannelPermission(ctx context.Context, channelID string, overwrite *discordgo.PermissionOverwrite) error {
	if err := c.writes.Wait(ctx); err != nil {
		return err
	}
	err := c.session.ChannelPermissionSet(
		channelID,
		overwrite.ID,
		overwrite.Type,
		overwrite.Allow,
		overwrite.Deny,
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to set permission overwrite on channel %s: %w", channelID, err)
	}
	return nil
}

// ChannelMessage fetches a single message.
func (c *Client) ChannelMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	if err := c.reads.Wait(ctx); err != nil {
		return nil, err
	}
	msg, err := c.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %s in channel %s: %w", messageID, channelID, err)
	}
	return msg, nil
}

// SendMessage posts a message.
func (c *Client) SendMessage(ctx context.Context, channelID, content string) (*discordgo.Message, error) {
	if err := c.writes.Wait(ctx); err != nil {
		return nil, err
	}
	msg, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return msg, nil
}

// EditMessage rewrites an existing message.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID, content string) (*discordgo.Message, error) {
	if err := c.writes.Wait(ctx); err != nil {
		return nil, err
	}
	msg, err := c.session.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to edit message %s in channel %s: %w", messageID, channelID, err)
	}
	return msg, nil
}
