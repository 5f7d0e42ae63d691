package activitydb

import (
	"time"

	"github.com/uptrace/bun"
)

// WeeklyCount is the authoritative flushed message count for the current
// scoring window. One row per club channel; reset by the weekly rollover.
type WeeklyCount struct {
	bun.BaseModel `bun:"table:club_weekly_counts"`

	ChannelID string    `bun:"channel_id,pk"`
	Count     int       `bun:"count,notnull,default:0"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// PreviousScore is the last computed activity score for a channel, kept for
// the next pass's delta. Overwritten every ranking pass.
type PreviousScore struct {
	bun.BaseModel `bun:"table:club_previous_scores"`

	ChannelID string    `bun:"channel_id,pk"`
	Score     int       `bun:"score,notnull,default:0"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Leader binds a club channel to its leader's user ID. Written by the club
// administration commands; the ranking core only reads it for the archive
// sweep's demotion rule.
type Leader struct {
	bun.BaseModel `bun:"table:club_leaders"`

	ChannelID string    `bun:"channel_id,pk"`
	UserID    string    `bun:"user_id,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
