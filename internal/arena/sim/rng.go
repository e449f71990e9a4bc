package sim

import "math"

// hash32 is 32-bit FNV-1a over the bytes of s.
func hash32(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// rng is a mulberry32 generator. Streams are cheap; derive one per concern.
type rng struct {
	state uint32
}

func newRNG(seed uint32) *rng {
	return &rng{state: seed}
}

// stream returns a generator keyed by seed and label.
func stream(seed, label string) *rng {
	return newRNG(hash32(seed + ":" + label))
}

// Float returns a value in [0, 1).
func (r *rng) Float() float64 {
	r.state += 0x6d2b79f5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}

// Intn returns an int in [min, max].
func (r *rng) Intn(min, max int) int {
	if max <= min {
		return min
	}
	return int(math.Floor(r.Float()*float64(max-min+1))) + min
}

func pick[T any](r *rng, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[int(r.Float()*float64(len(items)))]
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
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

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// SeededInt draws one int in [min, max] from the stream keyed by seed and label.
func SeededInt(seed, label string, min, max int) int {
	return stream(seed, label).Intn(min, max)
}
