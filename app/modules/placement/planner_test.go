package placement

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func testConfig() Config {
	return Config{
		PopularCategoryID: "cat-popular",
		CategorySequence:  []string{"cat-a", "cat-b"},
	}
}

func TestSlotPopularCarveOut(t *testing.T) {
	cfg := testConfig()
	for rank := 0; rank < PopularSize; rank++ {
		cat, pos, degraded := Slot(rank, cfg)
		assert.Equal(t, "cat-popular", cat)
		assert.Equal(t, rank, pos)
		assert.False(t, degraded)
	}
}

func TestSlotOverflowSequence(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		rank     int
		wantCat  string
		wantPos  int
		degraded bool
	}{
		{5, "cat-a", 2, false},  // first overflow entry lands after the pinned slots
		{6, "cat-a", 3, false},
		{52, "cat-a", 49, false}, // last slot of cat-a: 5 + 48 entries fill positions 2..49
		{53, "cat-b", 2, false},  // next category starts over
		{100, "cat-b", 49, false},
		{101, "cat-b", 50, true}, // sequence exhausted: forced into the last category
		{110, "cat-b", 59, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("rank_%d", tt.rank), func(t *testing.T) {
			cat, pos, degraded := Slot(tt.rank, cfg)
			assert.Equal(t, tt.wantCat, cat)
			assert.Equal(t, tt.wantPos, pos)
			assert.Equal(t, tt.degraded, degraded)
		})
	}
}

func TestPlanCapacityInvariant(t *testing.T) {
	cfg := testConfig()

	entries := make([]Entry, 101)
	for i := range entries {
		entries[i] = Entry{
			ChannelID:     fmt.Sprintf("chan-%03d", i),
			Name:          fmt.Sprintf("club-%03d", i),
			ActivityScore: 1000 - i,
		}
	}

	placements, warnings := Plan(entries, cfg)
	assert.Len(t, placements, 101)
	assert.Empty(t, warnings)

	perCategory := map[string]int{}
	for _, p := range placements {
		perCategory[p.TargetCategoryID]++
	}
	assert.Equal(t, PopularSize, perCategory["cat-popular"])
	for cat, n := range perCategory {
		if cat == "cat-popular" {
			continue
		}
		// 48 entries plus the 2 reserved pinned slots never exceed 50.
		assert.LessOrEqual(t, n+PinnedOffset, CategoryCapacity, "category %s", cat)
	}
}

func TestPlanLastCategoryDegradationIsFlagged(t *testing.T) {
	cfg := testConfig()

	entries := make([]Entry, 120)
	for i := range entries {
		entries[i] = Entry{ChannelID: fmt.Sprintf("chan-%03d", i), Name: "club", ActivityScore: 2000 - i}
	}

	placements, warnings := Plan(entries, cfg)
	assert.Len(t, placements, 120)
	assert.NotEmpty(t, warnings, "overflow past the sequence must be flagged")

	// Everything past the sequence still got placed, all in the last category.
	for _, p := range placements[101:] {
		assert.Equal(t, "cat-b", p.TargetCategoryID)
	}
}

func TestSlotWithoutOverflowSequence(t *testing.T) {
	cfg := Config{PopularCategoryID: "cat-popular"}

	// Top ranks are unaffected.
	cat, pos, degraded := Slot(0, cfg)
	assert.Equal(t, "cat-popular", cat)
	assert.Equal(t, 0, pos)
	assert.False(t, degraded)

	// Past the top there is nowhere to overflow to: everything stays in the
	// popular category, flagged as degraded.
	cat, pos, degraded = Slot(7, cfg)
	assert.Equal(t, "cat-popular", cat)
	assert.Equal(t, 7, pos)
	assert.True(t, degraded)
}

func TestPlanWithoutOverflowSequence(t *testing.T) {
	cfg := Config{PopularCategoryID: "cat-popular"}

	entries := make([]Entry, 8)
	for i := range entries {
		entries[i] = Entry{ChannelID: fmt.Sprintf("chan-%d", i), Name: "club", ActivityScore: 100 - i}
	}

	placements, warnings := Plan(entries, cfg)
	assert.Len(t, placements, 8)
	assert.NotEmpty(t, warnings)
	for _, p := range placements {
		assert.Equal(t, "cat-popular", p.TargetCategoryID)
	}
}

func TestPlanSevenChannelScenario(t *testing.T) {
	// Seven clubs with (members, messages) = (5,100) (3,50) (10,10) (1,1)
	// (0,0) (2,400) (4,4), already ranked by score desc with position
	// tie-breaks applied upstream.
	entries := []Entry{
		{ChannelID: "f", Name: "club-f", ActivityScore: 800, OriginalPosition: 5},
		{ChannelID: "a", Name: "club-a", ActivityScore: 500, OriginalPosition: 0},
		{ChannelID: "b", Name: "club-b", ActivityScore: 150, OriginalPosition: 1},
		{ChannelID: "c", Name: "club-c", ActivityScore: 100, OriginalPosition: 2},
		{ChannelID: "g", Name: "club-g", ActivityScore: 16, OriginalPosition: 6},
		{ChannelID: "d", Name: "club-d", ActivityScore: 1, OriginalPosition: 3},
		{ChannelID: "e", Name: "club-e", ActivityScore: 0, OriginalPosition: 4},
	}

	placements, warnings := Plan(entries, testConfig())
	assert.Empty(t, warnings)

	want := []Placement{
		{ChannelID: "f", ActivityScore: 800, TargetCategoryID: "cat-popular", Position: 0, NewName: "club-f✨800"},
		{ChannelID: "a", ActivityScore: 500, TargetCategoryID: "cat-popular", Position: 1, NewName: "club-a✨500"},
		{ChannelID: "b", ActivityScore: 150, TargetCategoryID: "cat-popular", Position: 2, NewName: "club-b✨150"},
		{ChannelID: "c", ActivityScore: 100, TargetCategoryID: "cat-popular", Position: 3, NewName: "club-c✨100"},
		{ChannelID: "g", ActivityScore: 16, TargetCategoryID: "cat-popular", Position: 4, NewName: "club-g🌱16"},
		{ChannelID: "d", ActivityScore: 1, TargetCategoryID: "cat-a", Position: 2, NewName: "club-d🌱1"},
		{ChannelID: "e", ActivityScore: 0, TargetCategoryID: "cat-a", Position: 3, NewName: "club-e🌱0"},
	}

	if diff := cmp.Diff(want, placements); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}
