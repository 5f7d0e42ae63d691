package orchestrator

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bwmarrin/discordgo"

	clubevents "github.com/romeda-works/romeda-bot/app/events"
	"github.com/romeda-works/romeda-bot/app/shared"
	"github.com/romeda-works/romeda-bot/config"
)

// NewMessageCreateHandler returns the gateway callback that turns guild
// messages into counted events. Bot authors and deny-listed channels are
// filtered at the edge; archived club channels still count so a revived club
// can climb back out.
func NewMessageCreateHandler(bus shared.EventBus, club config.ClubConfig, logger *slog.Logger) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	if logger == nil {
		logger = slog.Default()
	}

	excluded := make(map[string]struct{}, len(club.ExcludedChannelIDs))
	for _, id := range club.ExcludedChannelIDs {
		excluded[id] = struct{}{}
	}

	countedParents := make(map[string]struct{})
	for _, id := range club.ClubCategoryIDs {
		countedParents[id] = struct{}{}
	}
	if club.PopularCategoryID != "" {
		countedParents[club.PopularCategoryID] = struct{}{}
	}
	if club.ArchiveCategoryID != "" {
		countedParents[club.ArchiveCategoryID] = struct{}{}
	}
	if club.ArchiveOverflowCategoryID != "" {
		countedParents[club.ArchiveOverflowCategoryID] = struct{}{}
	}

	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}
		if _, ok := excluded[m.ChannelID]; ok {
			return
		}

		// The state cache resolves the parent category without a REST call.
		// On a cache miss the message is counted anyway; the scorer only reads
		// counts for channels that are actually in the club tree.
		if ch, err := s.State.Channel(m.ChannelID); err == nil {
			if _, ok := countedParents[ch.ParentID]; !ok {
				return
			}
		}

		payload, err := json.Marshal(clubevents.MessageCountedPayloadV1{
			ChannelID: m.ChannelID,
			AuthorID:  m.Author.ID,
			Timestamp: time.Now(),
		})
		if err != nil {
			logger.Error("Failed to marshal message-counted payload", slog.Any("error", err))
			return
		}
		if err := bus.Publish(clubevents.MessageCountedV1, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
			logger.Error("Failed to publish message-counted event",
				slog.String("channel_id", m.ChannelID),
				slog.Any("error", err),
			)
		}
	}
}
