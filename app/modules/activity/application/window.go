package activityservice

import "time"

// Zone is the guild's locale. All weekly boundaries are computed here so a
// pass at 23:59 Sunday JST and one at 00:01 Monday JST land in different
// windows regardless of server timezone.
var Zone = time.FixedZone("UTC+9", 9*60*60)

// WindowStart returns the most recent Monday 00:00 in the guild zone at or
// before now. Messages at the exact boundary instant count toward the new
// window.
func WindowStart(now time.Time) time.Time {
	local := now.In(Zone)
	// Monday = 0 ... Sunday = 6
	daysSinceMonday := (int(local.Weekday()) + 6) % 7
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Zone)
	return midnight.AddDate(0, 0, -daysSinceMonday)
}
