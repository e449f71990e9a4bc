package arena

import (
	"testing"

	"limbopet-arena/internal/store"

	"github.com/stretchr/testify/assert"
)

func TestEloDeltaEqualRatings(t *testing.T) {
	assert.Equal(t, 12, EloDelta(1000, 1000, true, 24))
	assert.Equal(t, -12, EloDelta(1000, 1000, false, 24))
}

func TestEloDeltaFavoriteGainsLess(t *testing.T) {
	fav := EloDelta(1400, 1000, true, 24)
	dog := EloDelta(1000, 1400, true, 24)
	assert.Less(t, fav, dog)
	assert.Greater(t, fav, 0)
}

func TestEloDeltaClamped(t *testing.T) {
	assert.Equal(t, 200, EloDelta(400, 4000, true, 1000))
	assert.Equal(t, -200, EloDelta(4000, 400, false, 1000))
}

func TestRematchDeltaBonus(t *testing.T) {
	assert.Equal(t, 18, rematchDelta(12, 1.5))
	assert.Equal(t, -18, rematchDelta(-12, 1.5))
	assert.Equal(t, 300, rematchDelta(250, 1.5))
	assert.Equal(t, 18, rematchDelta(12, 0))
}

func TestNextStreak(t *testing.T) {
	cases := []struct {
		prev int
		won  bool
		want int
	}{
		{0, true, 1},
		{2, true, 3},
		{-3, true, 1},
		{0, false, -1},
		{-2, false, -3},
		{4, false, -1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NextStreak(tc.prev, tc.won), "prev=%d won=%v", tc.prev, tc.won)
	}
}

func TestApplyOutcomeClampsRating(t *testing.T) {
	r := applyOutcome(store.Rating{Rating: 410, Streak: 2}, -50, false)
	assert.Equal(t, store.MinRating, r.Rating)
	assert.Equal(t, 1, r.Losses)
	assert.Equal(t, -1, r.Streak)

	r = applyOutcome(store.Rating{Rating: 3990}, 30, true)
	assert.Equal(t, store.MaxRating, r.Rating)
	assert.Equal(t, 1, r.Wins)
}
