// Package discordtest provides a function-field fake GuildClient shared by
// tests across the ranking modules.
package discordtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/romeda-works/romeda-bot/internal/discord"
)

// FakeGuildClient implements discord.GuildClient. Behavior is overridden per
// test via the *Func fields; every call is recorded in the trace.
type FakeGuildClient struct {
	mu    sync.Mutex
	trace []string

	GuildChannelsFunc        func(ctx context.Context, guildID string) ([]*discordgo.Channel, error)
	ChannelMessagesFunc      func(ctx context.Context, channelID string, limit int, beforeID string) ([]*discordgo.Message, error)
	EditChannelFunc          func(ctx context.Context, channelID string, edit *discordgo.ChannelEdit) (*discordgo.Channel, error)
	SetChannelPermissionFunc func(ctx context.Context, channelID string, overwrite *discordgo.PermissionOverwrite) error
	ChannelMessageFunc       func(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)
	SendMessageFunc          func(ctx context.Context, channelID, content string) (*discordgo.Message, error)
	EditMessageFunc          func(ctx context.Context, channelID, messageID, content string) (*discordgo.Message, error)
}

// NewFakeGuildClient returns an empty fake; calls without a configured Func
// return zero values.
func NewFakeGuildClient() *FakeGuildClient {
	return &FakeGuildClient{trace: []string{}}
}

func (f *FakeGuildClient) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeGuildClient) GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	f.record("GuildChannels")
	if f.GuildChannelsFunc != nil {
		return f.GuildChannelsFunc(ctx, guildID)
	}
	return nil, nil
}

func (f *FakeGuildClient) ChannelMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]*discordgo.Message, error) {
	f.record("ChannelMessages:" + channelID)
	if f.ChannelMessagesFunc != nil {
		return f.ChannelMessagesFunc(ctx, channelID, limit, beforeID)
	}
	return nil, nil
}

func (f *FakeGuildClient) EditChannel(ctx context.Context, channelID string, edit *discordgo.ChannelEdit) (*discordgo.Channel, error) {
	f.record("EditChannel:" + channelID)
	if f.EditChannelFunc != nil {
		return f.EditChannelFunc(ctx, channelID, edit)
	}
	return nil, nil
}

func (f *FakeGuildClient) SetChannelPermission(ctx context.Context, channelID string, overwrite *discordgo.PermissionOverwrite) error {
	f.record(fmt.Sprintf("SetChannelPermission:%s:%s", channelID, overwrite.ID))
	if f.SetChannelPermissionFunc != nil {
		return f.SetChannelPermissionFunc(ctx, channelID, overwrite)
	}
	return nil
}

func (f *FakeGuildClient) ChannelMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	f.record("ChannelMessage:" + channelID)
	if f.ChannelMessageFunc != nil {
		return f.ChannelMessageFunc(ctx, channelID, messageID)
	}
	return nil, nil
}

func (f *FakeGuildClient) SendMessage(ctx context.Context, channelID, content string) (*discordgo.Message, error) {
	f.record("SendMessage:" + channelID)
	if f.SendMessageFunc != nil {
		return f.SendMessageFunc(ctx, channelID, content)
	}
	return &discordgo.Message{ID: "sent", ChannelID: channelID, Content: content}, nil
}

func (f *FakeGuildClient) EditMessage(ctx context.Context, channelID, messageID, content string) (*discordgo.Message, error) {
	f.record("EditMessage:" + channelID)
	if f.EditMessageFunc != nil {
		return f.EditMessageFunc(ctx, channelID, messageID, content)
	}
	return &discordgo.Message{ID: messageID, ChannelID: channelID, Content: content}, nil
}

// Trace returns a copy of the recorded call sequence.
func (f *FakeGuildClient) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Mutations returns only the mutating calls from the trace.
func (f *FakeGuildClient) Mutations() []string {
	var out []string
	for _, step := range f.Trace() {
		switch {
		case len(step) >= 11 && step[:11] == "EditChannel",
			len(step) >= 20 && step[:20] == "SetChannelPermission",
			len(step) >= 11 && step[:11] == "SendMessage",
			len(step) >= 11 && step[:11] == "EditMessage":
			out = append(out, step)
		}
	}
	return out
}

var _ discord.GuildClient = (*FakeGuildClient)(nil)
