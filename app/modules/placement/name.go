package placement

import (
	"fmt"
	"regexp"
	"strconv"
)

// Band icons appended to channel names, highest threshold first.
const (
	IconBlaze  = "🔥" // score >= 10000
	IconBolt   = "⚡" // score >= 1000
	IconSpark  = "✨" // score >= 100
	IconSprout = "🌱" // everything else
)

// scoreSuffix matches a previously encoded band icon plus digits at the end
// of a name, so re-encoding is idempotent.
var scoreSuffix = regexp.MustCompile(`(?:🔥|⚡|✨|🌱)[0-9]+$`)

// BandIcon returns the icon for a score.
func BandIcon(score int) string {
	switch {
	case score >= 10000:
		return IconBlaze
	case score >= 1000:
		return IconBolt
	case score >= 100:
		return IconSpark
	default:
		return IconSprout
	}
}

// RewriteName strips any existing score suffix from name and appends the band
// icon and the literal score. RewriteName(RewriteName(n, s), s) == RewriteName(n, s).
func RewriteName(name string, score int) string {
	base := scoreSuffix.ReplaceAllString(name, "")
	return fmt.Sprintf("%s%s%s", base, BandIcon(score), strconv.Itoa(score))
}
