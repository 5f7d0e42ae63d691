package activitydb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a key has no row.
var ErrNotFound = errors.New("activity record not found")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new activity repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// IncrementWeeklyCount atomically adds delta to a channel's weekly count.
// Single-statement upsert, so concurrent flushes never lose increments.
func (r *Impl) IncrementWeeklyCount(ctx context.Context, db bun.IDB, channelID string, delta int) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(&WeeklyCount{ChannelID: channelID, Count: delta, UpdatedAt: time.Now()}).
		On("CONFLICT (channel_id) DO UPDATE").
		Set("count = club_weekly_counts.count + EXCLUDED.count").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to increment weekly count: %w", err)
	}
	return nil
}

// GetWeeklyCount returns a channel's flushed count; missing rows read as 0.
func (r *Impl) GetWeeklyCount(ctx context.Context, db bun.IDB, channelID string) (int, error) {
	db = r.resolveDB(db)
	wc := new(WeeklyCount)
	err := db.NewSelect().
		Model(wc).
		Where("channel_id = ?", channelID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get weekly count: %w", err)
	}
	return wc.Count, nil
}

// GetWeeklyCounts returns every channel's flushed count.
func (r *Impl) GetWeeklyCounts(ctx context.Context, db bun.IDB) (map[string]int, error) {
	db = r.resolveDB(db)
	var rows []WeeklyCount
	if err := db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list weekly counts: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.ChannelID] = row.Count
	}
	return out, nil
}

// ResetWeeklyCounts zeroes all counts at the weekly boundary.
func (r *Impl) ResetWeeklyCounts(ctx context.Context, db bun.IDB) error {
	db = r.resolveDB(db)
	_, err := db.NewUpdate().
		Model((*WeeklyCount)(nil)).
		Set("count = 0").
		Set("updated_at = ?", time.Now()).
		Where("count <> 0").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset weekly counts: %w", err)
	}
	return nil
}

// GetPreviousScore returns a channel's last recorded score.
func (r *Impl) GetPreviousScore(ctx context.Context, db bun.IDB, channelID string) (int, error) {
	db = r.resolveDB(db)
	ps := new(PreviousScore)
	err := db.NewSelect().
		Model(ps).
		Where("channel_id = ?", channelID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to get previous score: %w", err)
	}
	return ps.Score, nil
}

// SetPreviousScore records a channel's score for the next pass's delta.
func (r *Impl) SetPreviousScore(ctx context.Context, db bun.IDB, channelID string, score int) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(&PreviousScore{ChannelID: channelID, Score: score, UpdatedAt: time.Now()}).
		On("CONFLICT (channel_id) DO UPDATE").
		Set("score = EXCLUDED.score").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set previous score: %w", err)
	}
	return nil
}

// GetLeader returns the leader user ID for a club.
func (r *Impl) GetLeader(ctx context.Context, db bun.IDB, channelID string) (string, error) {
	db = r.resolveDB(db)
	leader := new(Leader)
	err := db.NewSelect().
		Model(leader).
		Where("channel_id = ?", channelID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get leader: %w", err)
	}
	return leader.UserID, nil
}

// SetLeader binds a club to a leader.
func (r *Impl) SetLeader(ctx context.Context, db bun.IDB, channelID, userID string) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(&Leader{ChannelID: channelID, UserID: userID, UpdatedAt: time.Now()}).
		On("CONFLICT (channel_id) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set leader: %w", err)
	}
	return nil
}

// RemoveLeader clears a club's leader binding.
func (r *Impl) RemoveLeader(ctx context.Context, db bun.IDB, channelID string) error {
	db = r.resolveDB(db)
	_, err := db.NewDelete().
		Model((*Leader)(nil)).
		Where("channel_id = ?", channelID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove leader: %w", err)
	}
	return nil
}
