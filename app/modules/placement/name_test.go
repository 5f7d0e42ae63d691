package placement

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
)

func TestBandIcon(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{12000, IconBlaze},
		{10000, IconBlaze},
		{9999, IconBolt},
		{1000, IconBolt},
		{999, IconSpark},
		{100, IconSpark},
		{99, IconSprout},
		{1, IconSprout},
		{0, IconSprout},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BandIcon(tt.score), "score %d", tt.score)
	}
}

func TestRewriteName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		score   int
		want    string
	}{
		{
			name:  "strips old band and digits",
			in:    "🎮｜games🔥12000",
			score: 850,
			want:  "🎮｜games✨850",
		},
		{
			name:  "plain name gets suffix appended",
			in:    "📚｜reading",
			score: 1500,
			want:  "📚｜reading⚡1500",
		},
		{
			name:  "zero score gets the low-activity glyph",
			in:    "🎣｜fishing🌱3",
			score: 0,
			want:  "🎣｜fishing🌱0",
		},
		{
			name:  "digits without an icon are part of the name",
			in:    "🎲｜trpg2024",
			score: 200,
			want:  "🎲｜trpg2024✨200",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RewriteName(tt.in, tt.score))
		})
	}
}

func TestRewriteNameIdempotent(t *testing.T) {
	gofakeit.Seed(11)

	scores := []int{0, 1, 99, 100, 999, 1000, 9999, 10000, 123456}
	for i := 0; i < 50; i++ {
		name := "🏷｜" + gofakeit.Word()
		for _, score := range scores {
			once := RewriteName(name, score)
			twice := RewriteName(once, score)
			assert.Equal(t, once, twice, "name %q score %d", name, score)
		}
	}

	// Also idempotent starting from an already encoded name with a different band.
	encoded := RewriteName("🎮｜games🔥12000", 850)
	assert.Equal(t, encoded, RewriteName(encoded, 850))
}
