package arena

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"limbopet-arena/internal/arena/sim"
	"limbopet-arena/internal/store"

	"github.com/stretchr/testify/assert"
)

func TestSplitPredictionPot(t *testing.T) {
	cases := []struct {
		name             string
		total, winners   int
		pot, per, remain int64
	}{
		{"nobody right", 4, 0, 7, 0, 0},
		{"single winner", 1, 1, 4, 4, 0},
		{"even split", 5, 2, 8, 4, 0},
		{"remainder", 4, 3, 7, 2, 1},
		{"pot capped by predictors", 40, 10, 15, 1, 5},
		{"more winners than pot", 30, 20, 20, 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := splitPredictionPot(tc.total, tc.winners)
			assert.Equal(t, tc.total, got.Total)
			assert.Equal(t, tc.winners, got.Winners)
			assert.Equal(t, tc.pot, got.Pot)
			assert.Equal(t, tc.per, got.PerWinner)
			assert.Equal(t, tc.remain, got.Remainder)
			if tc.winners > 0 {
				assert.Equal(t, got.Pot, got.PerWinner*int64(tc.winners)+got.Remainder)
			}
		})
	}
}

func TestInInterventionWindow(t *testing.T) {
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	live := &store.LiveInfo{StartedAt: start, EndsAt: start.Add(30 * time.Second)}

	assert.True(t, inInterventionWindow(start.Add(10*time.Second), live))
	assert.True(t, inInterventionWindow(start.Add(-5*time.Second), live))
	assert.True(t, inInterventionWindow(start.Add(31*time.Second), live))
	assert.False(t, inInterventionWindow(start.Add(-6*time.Second), live))
	assert.False(t, inInterventionWindow(start.Add(32*time.Second), live))
	assert.False(t, inInterventionWindow(start, nil))
	assert.False(t, inInterventionWindow(time.Time{}, live))
}

func TestCoachingText(t *testing.T) {
	assert.Equal(t, "stay calm", coachingText(json.RawMessage(`{"text":"  stay calm "}`)))
	assert.Equal(t, "plain", coachingText(json.RawMessage(`"plain"`)))
	assert.Equal(t, "", coachingText(json.RawMessage(`{"other":1}`)))
	long := `{"text":"` + strings.Repeat("z", 300) + `"}`
	assert.Len(t, coachingText(json.RawMessage(long)), coachingTextMax)
}

func TestContestantPrefersSnapshot(t *testing.T) {
	a := &store.Agent{ID: "a1", JobCode: "chef", Stats: sim.Stats{Energy: 90, Mood: 90, Stress: 10, Curiosity: 90}}
	snap := &store.SideSnapshot{Stats: sim.Stats{Energy: 20, Mood: 30, Stress: 70, Curiosity: 40}, JobCode: "lawyer"}
	c := contestant(a, 1100, snap, sim.Hints{Calm: 0.5}, 0.07)
	assert.Equal(t, snap.Stats, c.Stats)
	assert.Equal(t, "lawyer", c.JobCode)
	assert.Equal(t, 1100, c.Rating)
	assert.Equal(t, 0.07, c.ScoreBonusRate)

	bare := contestant(&store.Agent{ID: "b1"}, 1000, nil, sim.Hints{}, 0)
	assert.Equal(t, sim.DefaultStats, bare.Stats)
}

func TestResolvedHeadline(t *testing.T) {
	assert.Equal(t, "Court Trial: Mochi wins the case against Bean (+4 coins)",
		resolvedHeadline(sim.ModeCourtTrial, "Mochi", "Bean", 4))
	assert.Equal(t, "Math Race: Mochi outpaces Bean", resolvedHeadline(sim.ModeMathRace, "Mochi", "Bean", 0))
}

func TestForfeitHeadline(t *testing.T) {
	m := &store.Match{Mode: sim.ModeDebateClash, Meta: store.MatchMeta{
		Cast:   &store.CastInfo{AID: "a", BID: "b", AName: "Mochi", BName: "Bean"},
		Result: &store.Result{WinnerID: "b", WinnerSide: "b", Forfeit: true},
	}}
	assert.Equal(t, "Debate Clash: Bean wins by forfeit", forfeitHeadline(m))
	m.Meta.Result = &store.Result{Forfeit: true}
	assert.Equal(t, "Debate Clash: called off", forfeitHeadline(m))
}

func TestStakePlanOfFallsBackToSeed(t *testing.T) {
	m := &store.Match{Seed: "seed-1", Meta: store.MatchMeta{Stake: &store.StakeInfo{Wager: 3, FeePlan: 1, FeePct: 15}}}
	plan := stakePlanOf(m)
	assert.Equal(t, int64(3), plan.Wager)
	assert.Equal(t, int64(1), plan.FeePlan)

	m.Meta.Stake = nil
	plan = stakePlanOf(m)
	assert.GreaterOrEqual(t, plan.Wager, int64(1))
	assert.LessOrEqual(t, plan.Wager, int64(5))
}
