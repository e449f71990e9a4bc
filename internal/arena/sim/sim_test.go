package sim

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contestant(id string, rating int) Contestant {
	return Contestant{AgentID: id, Rating: rating, Stats: DefaultStats}
}

func baseInput(seed string, mode Mode) Input {
	return Input{
		Seed:  seed,
		Mode:  mode,
		A:     contestant("agent-a", 1000),
		B:     contestant("agent-b", 1000),
		Wager: 3,
	}
}

func TestSimulateDeterministic(t *testing.T) {
	for _, mode := range AllModes {
		in := baseInput("seed-det", mode)
		in.A.Hints = Hints{Calm: 0.4, Study: 0.2}
		in.CheerBuff = CheerBuff(4, 1)
		first := Simulate(in)
		second := Simulate(in)
		assert.Equal(t, first, second, "mode %s", mode)
	}
}

func TestSimulateRoundCount(t *testing.T) {
	cases := []struct {
		requested int
		want      int
	}{
		{0, DefaultRounds},
		{1, 1},
		{5, 5},
		{42, MaxRounds},
	}
	for _, tc := range cases {
		in := baseInput("seed-rounds", ModeDebateClash)
		in.Rounds = tc.requested
		out := Simulate(in)
		require.Len(t, out.Rounds, tc.want)
		for i, r := range out.Rounds {
			assert.Equal(t, i+1, r.RoundNum)
			assert.InDelta(t, 1.0, r.WinProbA+r.WinProbB, 0.0011)
		}
	}
}

func TestSimulateWinnerFollowsScores(t *testing.T) {
	for i := 0; i < 120; i++ {
		mode := AllModes[i%len(AllModes)]
		out := Simulate(baseInput(fmt.Sprintf("seed-%d", i), mode))
		sumA, sumB := 0, 0
		for _, r := range out.Rounds {
			sumA += r.AScoreDelta
			sumB += r.BScoreDelta
		}
		assert.Equal(t, out.AScore10, sumA)
		assert.Equal(t, out.BScore10, sumB)

		last := out.Rounds[len(out.Rounds)-1]
		if out.Winner == SideA {
			assert.GreaterOrEqual(t, sumA, sumB)
			assert.Greater(t, last.WinProbA, 0.5)
		} else {
			assert.GreaterOrEqual(t, sumB, sumA)
			assert.Less(t, last.WinProbA, 0.5)
		}
	}
}

func TestCheerBuffNeverExceedsCapOrFlipsWinner(t *testing.T) {
	for i := 0; i < 60; i++ {
		seed := fmt.Sprintf("cheer-%d", i)
		plain := Simulate(baseInput(seed, ModeCourtTrial))
		for _, buff := range []float64{MaxCheerBuff, -MaxCheerBuff, 0.5, -0.5} {
			in := baseInput(seed, ModeCourtTrial)
			in.CheerBuff = buff
			cheered := Simulate(in)
			assert.Equal(t, plain.Winner, cheered.Winner)
			require.Len(t, cheered.Rounds, len(plain.Rounds))
			for j := range plain.Rounds {
				shift := cheered.Rounds[j].WinProbA - plain.Rounds[j].WinProbA
				assert.LessOrEqual(t, math.Abs(shift), MaxCheerBuff+0.0011)
			}
		}
	}
}

func TestCheerBuff(t *testing.T) {
	assert.Equal(t, 0.0, CheerBuff(0, 0))
	assert.InDelta(t, 0.0075, CheerBuff(3, 1), 0.001)
	assert.InDelta(t, -0.0075, CheerBuff(1, 3), 0.001)
	assert.Equal(t, MaxCheerBuff, CheerBuff(100000, 0))
	assert.Equal(t, -MaxCheerBuff, CheerBuff(0, 100000))
	assert.Equal(t, CheerBuff(0, 0), CheerBuff(-5, -5))
}

func TestWinProbFromState(t *testing.T) {
	assert.Equal(t, 0.5, WinProbFromState(0, 0, 1000, 1000))
	assert.Equal(t, 1.0, WinProbFromState(80, 0, 1000, 1000))
	assert.Equal(t, 0.0, WinProbFromState(0, 80, 1000, 1000))
	assert.InDelta(t, 0.51, WinProbFromState(0, 0, 1400, 1000), 1e-9)
	assert.InDelta(t, 0.625, WinProbFromState(20, 10, 1000, 1000), 1e-9)
}

func TestPartitionScore10SumsToTotal(t *testing.T) {
	r := newRNG(7)
	for total := 0; total <= 100; total += 7 {
		for n := 1; n <= MaxRounds; n++ {
			parts := partitionScore10(r, total, n)
			require.Len(t, parts, n)
			sum := 0
			for _, p := range parts {
				assert.GreaterOrEqual(t, p, 0)
				sum += p
			}
			assert.Equal(t, total, sum)
		}
	}
}

func TestMathRaceAlwaysHasSolver(t *testing.T) {
	type attempt struct {
		Correct bool `json:"correct"`
	}
	for i := 0; i < 200; i++ {
		in := baseInput(fmt.Sprintf("math-%d", i), ModeMathRace)
		in.A.Stats = Stats{Energy: 5, Mood: 10, Stress: 95, Curiosity: 5}
		in.B.Stats = Stats{Energy: 5, Mood: 10, Stress: 95, Curiosity: 5}
		out := Simulate(in)

		var payload map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(out.ModePayload, &payload))
		var a, b attempt
		require.NoError(t, json.Unmarshal(payload["a"], &a))
		require.NoError(t, json.Unmarshal(payload["b"], &b))
		assert.True(t, a.Correct || b.Correct, "seed %s", in.Seed)
	}
}

func TestScoreBonusRateRaisesScore(t *testing.T) {
	in := baseInput("bonus", ModePromptBattle)
	plain := Simulate(in)
	in.A.ScoreBonusRate = 0.10
	boosted := Simulate(in)
	assert.GreaterOrEqual(t, boosted.AScore, plain.AScore)
	assert.Equal(t, plain.BScore, boosted.BScore)
}

func TestBuildHints(t *testing.T) {
	h := BuildHints([]Nudge{
		{Kind: NudgeKindCoachNote, Text: "Stay calm and study the evidence", Confidence: 1},
	})
	assert.InDelta(t, 0.55, h.Calm, 1e-9)
	assert.InDelta(t, 0.33, h.Study, 1e-9)
	assert.Zero(t, h.Aggressive)

	h = BuildHints([]Nudge{
		{Kind: "coaching", Text: "Don't waste coins, save your budget", Confidence: 1.5},
	})
	assert.InDelta(t, 0.65, h.Budget, 1e-9)
	assert.Zero(t, h.ImpulseStop)

	h = BuildHints([]Nudge{
		{Kind: "coaching", Text: "Never overbid on impulse", Confidence: 1},
		{Kind: "coaching", Text: "Stop chasing, avoid the splurge", Confidence: 1},
	})
	assert.Equal(t, 1.0, h.ImpulseStop)

	assert.Equal(t, Hints{}, BuildHints([]Nudge{{Kind: "", Text: "calm"}, {Kind: "coaching", Text: "   "}}))
}

func TestCoachingBonusRate(t *testing.T) {
	signal := Hints{Calm: 0.3}
	assert.Zero(t, CoachingBonusRate(nil, signal))
	assert.Zero(t, CoachingBonusRate([]Nudge{{Kind: "coaching", Text: "calm", Confidence: 1}}, Hints{Calm: 0.01}))
	assert.InDelta(t, 0.10, CoachingBonusRate([]Nudge{{Kind: "coaching", Confidence: 1}}, signal), 1e-9)
	assert.InDelta(t, 0.06, CoachingBonusRate([]Nudge{{Kind: "coaching", Confidence: 0.2}}, signal), 1e-9)
}

func TestInterventionBoosts(t *testing.T) {
	h, ok := InterventionBoosts("calm")
	require.True(t, ok)
	assert.Equal(t, Hints{Calm: 1}, h)

	h, ok = InterventionBoosts(" Debate_Pressure ")
	require.True(t, ok)
	assert.Equal(t, Hints{Aggressive: 0.7}, h)

	h, ok = InterventionBoosts(ActionClear)
	require.True(t, ok)
	assert.Equal(t, Hints{}, h)

	_, ok = InterventionBoosts("dance")
	assert.False(t, ok)
}

func TestPickModeRespectsWeights(t *testing.T) {
	weights := map[Mode]float64{}
	for _, m := range AllModes {
		weights[m] = 0
	}
	weights[ModeCourtTrial] = 1
	for i := 0; i < 50; i++ {
		assert.Equal(t, ModeCourtTrial, PickMode(fmt.Sprintf("pick-%d", i), weights))
	}

	seen := map[Mode]bool{}
	for i := 0; i < 400; i++ {
		seen[PickMode(fmt.Sprintf("pick-%d", i), DefaultModeWeights)] = true
	}
	assert.Len(t, seen, len(AllModes))
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode(" math_race ")
	require.True(t, ok)
	assert.Equal(t, ModeMathRace, m)
	assert.Equal(t, "Math Race", m.Label())

	_, ok = ParseMode("CHESS")
	assert.False(t, ok)
}
