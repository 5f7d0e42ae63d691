package activityservice

import (
	"context"

	"github.com/uptrace/bun"

	activitydb "github.com/romeda-works/romeda-bot/app/modules/activity/infrastructure/repositories"
)

// ------------------------
// Fake Activity Repo
// ------------------------

type FakeActivityRepo struct {
	trace []string

	IncrementWeeklyCountFunc func(ctx context.Context, db bun.IDB, channelID string, delta int) error
	GetWeeklyCountFunc       func(ctx context.Context, db bun.IDB, channelID string) (int, error)
	GetWeeklyCountsFunc      func(ctx context.Context, db bun.IDB) (map[string]int, error)
	ResetWeeklyCountsFunc    func(ctx context.Context, db bun.IDB) error
	GetPreviousScoreFunc     func(ctx context.Context, db bun.IDB, channelID string) (int, error)
	SetPreviousScoreFunc     func(ctx context.Context, db bun.IDB, channelID string, score int) error
	GetLeaderFunc            func(ctx context.Context, db bun.IDB, channelID string) (string, error)
	SetLeaderFunc            func(ctx context.Context, db bun.IDB, channelID, userID string) error
	RemoveLeaderFunc         func(ctx context.Context, db bun.IDB, channelID string) error
}

func NewFakeActivityRepo() *FakeActivityRepo {
	return &FakeActivityRepo{trace: []string{}}
}

func (f *FakeActivityRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeActivityRepo) IncrementWeeklyCount(ctx context.Context, db bun.IDB, channelID string, delta int) error {
	f.record("IncrementWeeklyCount")
	if f.IncrementWeeklyCountFunc != nil {
		return f.IncrementWeeklyCountFunc(ctx, db, channelID, delta)
	}
	return nil
}

func (f *FakeActivityRepo) GetWeeklyCount(ctx context.Context, db bun.IDB, channelID string) (int, error) {
	f.record("GetWeeklyCount")
	if f.GetWeeklyCountFunc != nil {
		return f.GetWeeklyCountFunc(ctx, db, channelID)
	}
	return 0, nil
}

func (f *FakeActivityRepo) GetWeeklyCounts(ctx context.Context, db bun.IDB) (map[string]int, error) {
	f.record("GetWeeklyCounts")
	if f.GetWeeklyCountsFunc != nil {
		return f.GetWeeklyCountsFunc(ctx, db)
	}
	return map[string]int{}, nil
}

func (f *FakeActivityRepo) ResetWeeklyCounts(ctx context.Context, db bun.IDB) error {
	f.record("ResetWeeklyCounts")
	if f.ResetWeeklyCountsFunc != nil {
		return f.ResetWeeklyCountsFunc(ctx, db)
	}
	return nil
}

func (f *FakeActivityRepo) GetPreviousScore(ctx context.Context, db bun.IDB, channelID string) (int, error) {
	f.record("GetPreviousScore")
	if f.GetPreviousScoreFunc != nil {
		return f.GetPreviousScoreFunc(ctx, db, channelID)
	}
	return 0, activitydb.ErrNotFound
}

func (f *FakeActivityRepo) SetPreviousScore(ctx context.Context, db bun.IDB, channelID string, score int) error {
	f.record("SetPreviousScore")
	if f.SetPreviousScoreFunc != nil {
		return f.SetPreviousScoreFunc(ctx, db, channelID, score)
	}
	return nil
}

func (f *FakeActivityRepo) GetLeader(ctx context.Context, db bun.IDB, channelID string) (string, error) {
	f.record("GetLeader")
	if f.GetLeaderFunc != nil {
		return f.GetLeaderFunc(ctx, db, channelID)
	}
	return "", activitydb.ErrNotFound
}

func (f *FakeActivityRepo) SetLeader(ctx context.Context, db bun.IDB, channelID, userID string) error {
	f.record("SetLeader")
	if f.SetLeaderFunc != nil {
		return f.SetLeaderFunc(ctx, db, channelID, userID)
	}
	return nil
}

func (f *FakeActivityRepo) RemoveLeader(ctx context.Context, db bun.IDB, channelID string) error {
	f.record("RemoveLeader")
	if f.RemoveLeaderFunc != nil {
		return f.RemoveLeaderFunc(ctx, db, channelID)
	}
	return nil
}

// --- Accessors for assertions ---

func (f *FakeActivityRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Ensure the fake actually satisfies the interface
var _ activitydb.Repository = (*FakeActivityRepo)(nil)
