package sim

import (
	"math"
	"strconv"
)

const (
	DefaultRounds = 3
	MaxRounds     = 9

	MomentumLeadChange = "lead change"
	MomentumSurge      = "surge"
	MomentumWobble     = "wobble"
	MomentumSteady     = "steady"

	// MaxCheerBuff bounds the spectator shift applied to side A's win probability.
	MaxCheerBuff = 0.03
)

// Round is one step of the match narrative. Win probabilities are for
// side A and B after this round's deltas.
type Round struct {
	RoundNum      int     `json:"round_num"`
	AAction       string  `json:"a_action"`
	BAction       string  `json:"b_action"`
	AScoreDelta   int     `json:"a_score_delta"`
	BScoreDelta   int     `json:"b_score_delta"`
	WinProbA      float64 `json:"win_prob_a"`
	WinProbB      float64 `json:"win_prob_b"`
	MomentumShift string  `json:"momentum_shift"`
	Highlight     string  `json:"highlight,omitempty"`
}

// WinProbFromState is side A's win probability given cumulative scores (x10)
// and ratings. Score difference dominates; rating adds a small tilt.
func WinProbFromState(aCum10, bCum10, ratingA, ratingB int) float64 {
	base := 0.5 + float64(aCum10-bCum10)/80
	tilt := float64(ratingA-ratingB) / 4000 * 0.1
	return clamp01(base + tilt)
}

// CheerBuff converts cheer counts into a win-probability shift for side A,
// hard-capped at ±MaxCheerBuff.
func CheerBuff(aCount, bCount int) float64 {
	if aCount < 0 {
		aCount = 0
	}
	if bCount < 0 {
		bCount = 0
	}
	raw := float64(aCount-bCount) / float64(aCount+bCount+4) * MaxCheerBuff
	return round3(clampFloat(raw, -MaxCheerBuff, MaxCheerBuff))
}

// partitionScore10 splits total into n non-negative parts by random cuts,
// then shuffles so rounds are not front-loaded.
func partitionScore10(r *rng, total, n int) []int {
	n = clampInt(n, 1, MaxRounds)
	out := make([]int, n)
	if total <= 0 {
		return out
	}
	if n == 1 {
		out[0] = total
		return out
	}
	cuts := make([]int, n-1)
	for i := range cuts {
		cuts[i] = r.Intn(0, total)
	}
	sortInts(cuts)
	prev := 0
	for i, c := range cuts {
		out[i] = c - prev
		prev = c
	}
	out[n-1] = total - prev
	for i := n - 1; i > 0; i-- {
		j := r.Intn(0, i)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func sortInts(v []int) {
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j] < v[j-1]; j-- {
			v[j], v[j-1] = v[j-1], v[j]
		}
	}
}

type roundsInput struct {
	seed      string
	mode      Mode
	aTotal10  int
	bTotal10  int
	ratingA   int
	ratingB   int
	aHints    Hints
	bHints    Hints
	rounds    int
	cheerBuff float64
}

func buildRounds(in roundsInput) []Round {
	n := in.rounds
	if n <= 0 {
		n = DefaultRounds
	}
	n = clampInt(n, 1, MaxRounds)
	r := stream(in.seed, "rounds")
	aParts := partitionScore10(stream(in.seed, "rounds:a"), in.aTotal10, n)
	bParts := partitionScore10(stream(in.seed, "rounds:b"), in.bTotal10, n)
	hl := highlightsFor(in.mode)

	probA := func(aCum, bCum int) float64 {
		return clamp01(WinProbFromState(aCum, bCum, in.ratingA, in.ratingB) + in.cheerBuff)
	}

	out := make([]Round, 0, n)
	aCum, bCum := 0, 0
	prevP := probA(0, 0)
	prevLead := ""
	for i := 0; i < n; i++ {
		aDelta := clampInt(aParts[i], 0, 1000)
		bDelta := clampInt(bParts[i], 0, 1000)
		aCum += aDelta
		bCum += bDelta

		pA := probA(aCum, bCum)
		shift := pA - prevP

		lead := ""
		switch {
		case aCum > bCum:
			lead = "a"
		case bCum > aCum:
			lead = "b"
		}
		leadChanged := prevLead != "" && lead != "" && prevLead != lead
		if lead != "" {
			prevLead = lead
		}

		momentum := MomentumSteady
		switch {
		case leadChanged:
			momentum = MomentumLeadChange
		case math.Abs(shift) >= 0.18:
			momentum = MomentumSurge
		case math.Abs(shift) >= 0.08:
			momentum = MomentumWobble
		}

		highlight := ""
		gap := aDelta - bDelta
		switch {
		case leadChanged:
			highlight = pick(r, hl.reversal)
		case math.Abs(shift) >= 0.22:
			if shift > 0 {
				highlight = pick(r, hl.reversal)
			} else {
				highlight = pick(r, hl.domination)
			}
		case gap >= 18 || gap <= -18:
			highlight = pick(r, hl.domination)
		case gap <= 2 && gap >= -2 && r.Float() < 0.35:
			highlight = pick(r, hl.close)
		case r.Float() < 0.12:
			highlight = pick(r, minorHighlights)
		}

		roundKey := "r" + strconv.Itoa(i+1)
		out = append(out, Round{
			RoundNum:      i + 1,
			AAction:       actionLabelFor(in.mode, in.aHints, stream(in.seed, roundKey+":a")),
			BAction:       actionLabelFor(in.mode, in.bHints, stream(in.seed, roundKey+":b")),
			AScoreDelta:   aDelta,
			BScoreDelta:   bDelta,
			WinProbA:      round3(pA),
			WinProbB:      round3(1 - pA),
			MomentumShift: momentum,
			Highlight:     highlight,
		})
		prevP = pA
	}
	return out
}
