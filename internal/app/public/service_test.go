package public

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"limbopet-arena/internal/arena/sim"
	"limbopet-arena/internal/store"
)

func TestClampLeaderboardPage(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		offset    int
		wantLimit int
		wantOK    bool
	}{
		{name: "default limit", limit: 0, offset: 0, wantLimit: 50, wantOK: true},
		{name: "explicit small limit", limit: 20, offset: 0, wantLimit: 20, wantOK: true},
		{name: "limit clipped at top200 boundary", limit: 10, offset: 195, wantLimit: 5, wantOK: true},
		{name: "limit exactly remaining", limit: 1, offset: 199, wantLimit: 1, wantOK: true},
		{name: "offset 200 rejected", limit: 10, offset: 200, wantLimit: 0, wantOK: false},
		{name: "offset beyond 200 rejected", limit: 10, offset: 350, wantLimit: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLimit, gotOK := clampLeaderboardPage(tt.limit, tt.offset)
			if gotOK != tt.wantOK {
				t.Fatalf("ok = %v, want %v", gotOK, tt.wantOK)
			}
			if gotLimit != tt.wantLimit {
				t.Fatalf("limit = %d, want %d", gotLimit, tt.wantLimit)
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	if got := clampLimit(0, 20, 50); got != 20 {
		t.Fatalf("default = %d, want 20", got)
	}
	if got := clampLimit(-3, 20, 50); got != 20 {
		t.Fatalf("negative = %d, want 20", got)
	}
	if got := clampLimit(500, 20, 50); got != 50 {
		t.Fatalf("capped = %d, want 50", got)
	}
	if got := clampLimit(7, 20, 50); got != 7 {
		t.Fatalf("kept = %d, want 7", got)
	}
}

func hist(id string, mode sim.Mode, outcome, oppID, oppName string, before, oppBefore, after int) store.HistoryItem {
	return store.HistoryItem{
		Participant: store.Participant{
			MatchID:      id,
			Outcome:      outcome,
			RatingBefore: before,
			RatingAfter:  after,
		},
		Mode:                 mode,
		Status:               store.MatchResolved,
		OpponentID:           oppID,
		OpponentName:         oppName,
		OpponentRatingBefore: oppBefore,
	}
}

func TestComputeStats(t *testing.T) {
	items := []store.HistoryItem{
		hist("m5", sim.ModeCourtTrial, store.OutcomeWin, "o1", "Bean", 1000, 1100, 1015),
		hist("m4", sim.ModeCourtTrial, store.OutcomeWin, "o2", "Pip", 990, 900, 1000),
		hist("m3", sim.ModeMathRace, store.OutcomeLose, "o1", "Bean", 1000, 1000, 990),
		hist("m2", sim.ModeCourtTrial, store.OutcomeWin, "o1", "Bean", 1000, 1050, 1000),
		hist("m1", sim.ModeMathRace, store.OutcomeWin, "o2", "Pip", 980, 980, 1000),
	}
	got := computeStats(items)

	if got.TotalMatches != 5 || got.Wins != 4 || got.Losses != 1 {
		t.Fatalf("totals = %d/%d/%d, want 5/4/1", got.TotalMatches, got.Wins, got.Losses)
	}
	if got.WinRate != 0.8 {
		t.Fatalf("win rate = %v, want 0.8", got.WinRate)
	}
	if got.CurrentStreak != 2 {
		t.Fatalf("current streak = %d, want 2", got.CurrentStreak)
	}
	if got.BestStreak != 2 {
		t.Fatalf("best streak = %d, want 2", got.BestStreak)
	}
	if want := strings.ToLower(string(sim.ModeCourtTrial)); got.FavoriteMode != want {
		t.Fatalf("favorite mode = %q, want %q", got.FavoriteMode, want)
	}
	if got.Rival == nil || got.Rival.ID != "o1" || got.Rival.Matches != 3 {
		t.Fatalf("rival = %+v, want o1 with 3 matches", got.Rival)
	}
	if got.Nemesis == nil || got.Nemesis.ID != "o1" || got.Nemesis.Losses != 1 {
		t.Fatalf("nemesis = %+v, want o1 with 1 loss", got.Nemesis)
	}
	wantUpset := &UpsetView{MatchID: "m5", MyRating: 1000, OpponentRating: 1100, Won: true}
	if !reflect.DeepEqual(got.BiggestUpset, wantUpset) {
		t.Fatalf("upset = %+v, want %+v", got.BiggestUpset, wantUpset)
	}
	if want := []int{1000, 1000, 990, 1000, 1015}; !reflect.DeepEqual(got.EloHistory, want) {
		t.Fatalf("elo history = %v, want %v", got.EloHistory, want)
	}
}

func TestComputeStatsLosingStreakAndEmpty(t *testing.T) {
	got := computeStats([]store.HistoryItem{
		hist("m3", sim.ModeMathRace, store.OutcomeForfeit, "o1", "Bean", 0, 0, 0),
		hist("m2", sim.ModeMathRace, store.OutcomeLose, "o1", "Bean", 1000, 1000, 988),
		hist("m1", sim.ModeMathRace, store.OutcomeWin, "o1", "Bean", 1000, 1000, 1012),
	})
	if got.CurrentStreak != -2 {
		t.Fatalf("current streak = %d, want -2", got.CurrentStreak)
	}
	if got.EloHistory[2] != store.DefaultRating {
		t.Fatalf("missing rating should read as default, got %d", got.EloHistory[2])
	}

	empty := computeStats(nil)
	if empty.TotalMatches != 0 || empty.WinRate != 0 || empty.Rival != nil || empty.BiggestUpset != nil {
		t.Fatalf("empty stats = %+v", empty)
	}
	if empty.EloHistory == nil {
		t.Fatal("elo history should be an empty list, not nil")
	}
}

func TestTopKeyBreaksTiesByName(t *testing.T) {
	if got := topKey(map[string]int{"math_race": 2, "court_trial": 2, "debate_clash": 1}); got != "court_trial" {
		t.Fatalf("topKey = %q, want court_trial", got)
	}
	if got := topKey(nil); got != "" {
		t.Fatalf("topKey(nil) = %q", got)
	}
}

func TestParticipantViewScalesScore(t *testing.T) {
	v := participantView(store.Participant{AgentID: "a", Score: 125, Outcome: store.OutcomeWin}, "Mochi")
	if v.Score != 12.5 || v.Name != "Mochi" {
		t.Fatalf("view = %+v", v)
	}
}

func TestMatchPhase(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	live := &store.LiveInfo{StartedAt: now.Add(-30 * time.Second), EndsAt: now}
	tests := []struct {
		name   string
		status store.MatchStatus
		live   *store.LiveInfo
		at     time.Time
		want   string
	}{
		{name: "scheduled", status: store.MatchScheduled, want: PhasePreLive},
		{name: "live before end", status: store.MatchLive, live: live, at: now.Add(-time.Nanosecond), want: PhaseLive},
		{name: "live at end", status: store.MatchLive, live: live, at: now, want: PhaseJudging},
		{name: "live without window", status: store.MatchLive, at: now, want: PhaseJudging},
		{name: "resolved", status: store.MatchResolved, at: now, want: PhaseFinal},
		{name: "forfeited", status: store.MatchForfeited, at: now, want: PhaseFinal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &store.Match{Status: tt.status, Meta: store.MatchMeta{Live: tt.live}}
			if got := matchPhase(m, tt.at); got != tt.want {
				t.Fatalf("phase = %q, want %q", got, tt.want)
			}
		})
	}
}
