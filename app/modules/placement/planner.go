// Package placement turns a sorted ranking into category/position/name
// assignments. Everything here is pure: no I/O, no clocks.
package placement

import "fmt"

const (
	// CategoryCapacity is Discord's hard ceiling on channels per category.
	CategoryCapacity = 50
	// PinnedOffset reserves the leading positions of every overflow category
	// for manually pinned channels.
	PinnedOffset = 2
	// PopularSize is how many top entries the popular category always holds.
	PopularSize = 5
)

// Entry is one ranked channel, in ranking order.
type Entry struct {
	ChannelID        string
	Name             string
	ActivityScore    int
	PointChange      int
	OriginalPosition int
}

// Placement is the planned target for one channel.
type Placement struct {
	ChannelID        string
	ActivityScore    int
	PointChange      int
	TargetCategoryID string
	Position         int
	NewName          string
}

// Config is the category layout the planner places into.
type Config struct {
	PopularCategoryID string
	// CategorySequence is the ordered overflow sequence below the top.
	CategorySequence []string
	Capacity         int
	PinnedOffset     int
	PopularSize      int
}

// withDefaults fills zero fields with the production constants.
func (c Config) withDefaults() Config {
	if c.Capacity == 0 {
		c.Capacity = CategoryCapacity
	}
	if c.PinnedOffset == 0 {
		c.PinnedOffset = PinnedOffset
	}
	if c.PopularSize == 0 {
		c.PopularSize = PopularSize
	}
	return c
}

// Slot computes the category and intra-category position for a rank index.
// The boolean reports whether the entry overflowed past the configured
// sequence into the last category (the documented degradation).
func Slot(rankIndex int, cfg Config) (categoryID string, position int, degraded bool) {
	cfg = cfg.withDefaults()

	if rankIndex < cfg.PopularSize {
		return cfg.PopularCategoryID, rankIndex, false
	}

	overflowIndex := rankIndex - cfg.PopularSize
	perCategory := cfg.Capacity - cfg.PinnedOffset
	catIdx := overflowIndex / perCategory
	position = cfg.PinnedOffset + overflowIndex%perCategory

	if len(cfg.CategorySequence) == 0 {
		// No overflow sequence configured: everything below the top lands in
		// the popular category, past its ceiling. Flagged, not hidden.
		return cfg.PopularCategoryID, cfg.PopularSize + overflowIndex, true
	}

	if catIdx >= len(cfg.CategorySequence) {
		// Sequence exhausted: force everything remaining into the last
		// category, past its ceiling. Flagged, not hidden.
		last := len(cfg.CategorySequence) - 1
		position = cfg.PinnedOffset + (overflowIndex - last*perCategory)
		return cfg.CategorySequence[last], position, true
	}

	return cfg.CategorySequence[catIdx], position, false
}

// Plan assigns every entry a target category, position, and rewritten name.
// Entries must already be in ranking order. Returned warnings flag capacity
// degradations; the plan itself is always complete.
func Plan(entries []Entry, cfg Config) ([]Placement, []string) {
	cfg = cfg.withDefaults()

	placements := make([]Placement, 0, len(entries))
	var warnings []string
	degradedOnce := false

	for i, e := range entries {
		categoryID, position, degraded := Slot(i, cfg)
		if degraded && !degradedOnce {
			degradedOnce = true
			warnings = append(warnings, fmt.Sprintf(
				"category sequence exhausted at rank %d; forcing remaining entries into %s past capacity",
				i, categoryID,
			))
		}
		placements = append(placements, Placement{
			ChannelID:        e.ChannelID,
			ActivityScore:    e.ActivityScore,
			PointChange:      e.PointChange,
			TargetCategoryID: categoryID,
			Position:         position,
			NewName:          RewriteName(e.Name, e.ActivityScore),
		})
	}

	return placements, warnings
}
