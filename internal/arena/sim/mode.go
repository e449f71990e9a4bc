package sim

import "strings"

type Mode string

const (
	ModeAuctionDuel  Mode = "AUCTION_DUEL"
	ModePuzzleSprint Mode = "PUZZLE_SPRINT"
	ModeDebateClash  Mode = "DEBATE_CLASH"
	ModeMathRace     Mode = "MATH_RACE"
	ModeCourtTrial   Mode = "COURT_TRIAL"
	ModePromptBattle Mode = "PROMPT_BATTLE"
)

var AllModes = []Mode{
	ModeAuctionDuel,
	ModePuzzleSprint,
	ModeDebateClash,
	ModeMathRace,
	ModeCourtTrial,
	ModePromptBattle,
}

var modeLabels = map[Mode]string{
	ModeAuctionDuel:  "Auction Duel",
	ModePuzzleSprint: "Puzzle Sprint",
	ModeDebateClash:  "Debate Clash",
	ModeMathRace:     "Math Race",
	ModeCourtTrial:   "Court Trial",
	ModePromptBattle: "Prompt Battle",
}

// DefaultModeWeights drives the scheduler's weighted mode draw. Zero disables a mode.
var DefaultModeWeights = map[Mode]float64{
	ModeDebateClash:  2.0,
	ModeCourtTrial:   1.5,
	ModeAuctionDuel:  1.0,
	ModePuzzleSprint: 1.0,
	ModeMathRace:     1.0,
	ModePromptBattle: 1.0,
}

func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := modeLabels[m]
	return m, ok
}

func (m Mode) Label() string {
	if l, ok := modeLabels[m]; ok {
		return l
	}
	return string(m)
}

// PickMode draws a mode from weights with a seeded stream. Modes with
// non-positive weight are skipped; an empty pool falls back to uniform.
func PickMode(seed string, weights map[Mode]float64) Mode {
	r := stream(seed, "mode")
	type entry struct {
		m Mode
		w float64
	}
	pool := make([]entry, 0, len(AllModes))
	total := 0.0
	for _, m := range AllModes {
		w, ok := weights[m]
		if !ok {
			w = 1.0
		}
		if w <= 0 {
			continue
		}
		pool = append(pool, entry{m: m, w: w})
		total += w
	}
	if len(pool) == 0 {
		return pick(r, AllModes)
	}
	x := r.Float() * total
	for _, e := range pool {
		x -= e.w
		if x <= 0 {
			return e.m
		}
	}
	return pool[len(pool)-1].m
}
