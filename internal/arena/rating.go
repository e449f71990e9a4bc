package arena

import (
	"math"

	"limbopet-arena/internal/store"
)

const (
	maxEloDelta        = 200
	maxRematchEloDelta = 300
	RematchEloBonus    = 1.5
)

// ExpectedScore is the Elo win expectation of a rating against b.
func ExpectedScore(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}

// EloDelta is round(K*(actual-expected)) clamped to ±200.
func EloDelta(rating, opponent int, won bool, k int) int {
	actual := 0.0
	if won {
		actual = 1
	}
	d := int(math.Round(float64(k) * (actual - ExpectedScore(rating, opponent))))
	return clampInt(d, -maxEloDelta, maxEloDelta)
}

// rematchDelta scales a delta when the rematch requester wins.
func rematchDelta(d int, mult float64) int {
	if mult <= 0 {
		mult = RematchEloBonus
	}
	return clampInt(int(math.Round(float64(d)*mult)), -maxRematchEloDelta, maxRematchEloDelta)
}

// NextStreak is signed: positive counts wins in a row, negative losses.
func NextStreak(prev int, won bool) int {
	if won {
		if prev >= 0 {
			return prev + 1
		}
		return 1
	}
	if prev <= 0 {
		return prev - 1
	}
	return -1
}

func applyOutcome(r store.Rating, delta int, won bool) store.Rating {
	r.Rating = clampInt(r.Rating+delta, store.MinRating, store.MaxRating)
	if won {
		r.Wins++
	} else {
		r.Losses++
	}
	r.Streak = NextStreak(r.Streak, won)
	return r
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
