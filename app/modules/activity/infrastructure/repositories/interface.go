package activitydb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository is the persistence contract for the activity store.
type Repository interface {
	// IncrementWeeklyCount atomically adds delta to a channel's weekly count,
	// creating the row when missing.
	IncrementWeeklyCount(ctx context.Context, db bun.IDB, channelID string, delta int) error
	// GetWeeklyCount returns a channel's flushed count; missing rows read as 0.
	GetWeeklyCount(ctx context.Context, db bun.IDB, channelID string) (int, error)
	// GetWeeklyCounts returns every channel's flushed count.
	GetWeeklyCounts(ctx context.Context, db bun.IDB) (map[string]int, error)
	// ResetWeeklyCounts zeroes all counts at the weekly boundary.
	ResetWeeklyCounts(ctx context.Context, db bun.IDB) error

	// GetPreviousScore returns a channel's last recorded score, or ErrNotFound.
	GetPreviousScore(ctx context.Context, db bun.IDB, channelID string) (int, error)
	// SetPreviousScore records a channel's score for the next pass's delta.
	SetPreviousScore(ctx context.Context, db bun.IDB, channelID string, score int) error

	// GetLeader returns the leader user ID for a club, or ErrNotFound.
	GetLeader(ctx context.Context, db bun.IDB, channelID string) (string, error)
	// SetLeader binds a club to a leader.
	SetLeader(ctx context.Context, db bun.IDB, channelID, userID string) error
	// RemoveLeader clears a club's leader binding.
	RemoveLeader(ctx context.Context, db bun.IDB, channelID string) error
}
