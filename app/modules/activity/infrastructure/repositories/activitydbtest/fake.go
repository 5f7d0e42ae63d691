// Package activitydbtest provides an in-memory Repository fake for tests in
// the modules that sit above the activity store.
package activitydbtest

import (
	"context"
	"sync"

	"github.com/uptrace/bun"

	activitydb "github.com/romeda-works/romeda-bot/app/modules/activity/infrastructure/repositories"
)

// FakeRepository is an in-memory activitydb.Repository. Default behavior is a
// working map-backed store; individual calls can be overridden via the *Func
// fields.
type FakeRepository struct {
	mu sync.Mutex

	WeeklyCounts   map[string]int
	PreviousScores map[string]int
	Leaders        map[string]string

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

// NewFakeRepository returns an empty in-memory repository.
func NewFakeRepository() *FakeRepository {
	return &FakeRepository{
		WeeklyCounts:   make(map[string]int),
		PreviousScores: make(map[string]int),
		Leaders:        make(map[string]string),
	}
}

var _ activitydb.Repository = (*FakeRepository)(nil)

func (f *FakeRepository) IncrementWeeklyCount(ctx context.Context, db bun.IDB, channelID string, delta int) error {
	if f.IncrementWeeklyCountFunc != nil {
		return f.IncrementWeeklyCountFunc(ctx, db, channelID, delta)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WeeklyCounts[channelID] += delta
	return nil
}

func (f *FakeRepository) GetWeeklyCount(ctx context.Context, db bun.IDB, channelID string) (int, error) {
	if f.GetWeeklyCountFunc != nil {
		return f.GetWeeklyCountFunc(ctx, db, channelID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.WeeklyCounts[channelID], nil
}

func (f *FakeRepository) GetWeeklyCounts(ctx context.Context, db bun.IDB) (map[string]int, error) {
	if f.GetWeeklyCountsFunc != nil {
		return f.GetWeeklyCountsFunc(ctx, db)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.WeeklyCounts))
	for k, v := range f.WeeklyCounts {
		out[k] = v
	}
	return out, nil
}

func (f *FakeRepository) ResetWeeklyCounts(ctx context.Context, db bun.IDB) error {
	if f.ResetWeeklyCountsFunc != nil {
		return f.ResetWeeklyCountsFunc(ctx, db)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.WeeklyCounts {
		f.WeeklyCounts[k] = 0
	}
	return nil
}

func (f *FakeRepository) GetPreviousScore(ctx context.Context, db bun.IDB, channelID string) (int, error) {
	if f.GetPreviousScoreFunc != nil {
		return f.GetPreviousScoreFunc(ctx, db, channelID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	score, ok := f.PreviousScores[channelID]
	if !ok {
		return 0, activitydb.ErrNotFound
	}
	return score, nil
}

func (f *FakeRepository) SetPreviousScore(ctx context.Context, db bun.IDB, channelID string, score int) error {
	if f.SetPreviousScoreFunc != nil {
		return f.SetPreviousScoreFunc(ctx, db, channelID, score)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PreviousScores[channelID] = score
	return nil
}

func (f *FakeRepository) GetLeader(ctx context.Context, db bun.IDB, channelID string) (string, error) {
	if f.GetLeaderFunc != nil {
		return f.GetLeaderFunc(ctx, db, channelID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.Leaders[channelID]
	if !ok {
		return "", activitydb.ErrNotFound
	}
	return userID, nil
}

func (f *FakeRepository) SetLeader(ctx context.Context, db bun.IDB, channelID, userID string) error {
	if f.SetLeaderFunc != nil {
		return f.SetLeaderFunc(ctx, db, channelID, userID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Leaders[channelID] = userID
	return nil
}

func (f *FakeRepository) RemoveLeader(ctx context.Context, db bun.IDB, channelID string) error {
	if f.RemoveLeaderFunc != nil {
		return f.RemoveLeaderFunc(ctx, db, channelID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Leaders, channelID)
	return nil
}
