package sim

import (
	"encoding/json"
	"fmt"
	"math"
)

type Side string

const (
	SideA Side = "a"
	SideB Side = "b"
)

func ParseSide(s string) (Side, bool) {
	switch Side(s) {
	case SideA, SideB:
		return Side(s), true
	}
	return "", false
}

func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// Contestant is everything the simulator knows about one side.
type Contestant struct {
	AgentID        string
	Rating         int
	Stats          Stats
	JobCode        string
	Hints          Hints
	ScoreBonusRate float64
}

type Input struct {
	Seed      string
	Mode      Mode
	A         Contestant
	B         Contestant
	Wager     int64
	CheerBuff float64
	Rounds    int
}

// Output scores are 0..10; the x10 integers are what the rounds partition.
type Output struct {
	Rounds      []Round
	Winner      Side
	AScore      float64
	BScore      float64
	AScore10    int
	BScore10    int
	NearMiss    string
	Tags        []string
	ModePayload json.RawMessage
}

const (
	TagClose   = "close"
	TagBlowout = "blowout"
)

// Simulate runs one match. It is pure: identical input yields identical output.
func Simulate(in Input) Output {
	mode := in.Mode
	if _, ok := modeLabels[mode]; !ok {
		mode = ModePuzzleSprint
	}
	buff := clampFloat(in.CheerBuff, -MaxCheerBuff, MaxCheerBuff)

	a := newSideCtx(in.Seed, mode, in.A)
	b := newSideCtx(in.Seed, mode, in.B)
	challengeRNG := stream(in.Seed, string(mode)+":challenge")

	var aPerf, bPerf perf
	var challenge any
	extra := map[string]any{}
	switch mode {
	case ModeMathRace:
		ch := buildMathChallenge(challengeRNG)
		aPerf, bPerf = perfNumber(a, ch), perfNumber(b, ch)
		if side := bothWrongGuard(in.Seed, &aPerf, &bPerf, ch); side != "" {
			extra["corrected_side"] = side
		}
		challenge = ch
	case ModePuzzleSprint:
		ch := buildPuzzle(challengeRNG)
		aPerf, bPerf = perfNumber(a, ch), perfNumber(b, ch)
		challenge = ch
	case ModeCourtTrial:
		cc := buildCourtCase(challengeRNG)
		aPerf, bPerf = perfCourt(a, cc), perfCourt(b, cc)
		challenge = cc
	case ModePromptBattle:
		th := buildPromptTheme(challengeRNG)
		aPerf, bPerf = perfPrompt(a, th), perfPrompt(b, th)
		challenge = th
	case ModeAuctionDuel:
		lot := buildAuctionLot(challengeRNG, in.Wager)
		fair := challengeRNG.Intn(lot.MaxBid/3, lot.MaxBid*3/4)
		aPerf, bPerf = perfAuction(a, lot, fair), perfAuction(b, lot, fair)
		challenge = lot
		extra["fair_value"] = fair
	case ModeDebateClash:
		topic := buildDebateTopic(challengeRNG)
		aStance, bStance := "pro", "con"
		if challengeRNG.Float() < 0.5 {
			aStance, bStance = bStance, aStance
		}
		aPerf, bPerf = perfDebate(a, aStance), perfDebate(b, bStance)
		challenge = topic
	}

	aScore := applyBonus(aPerf.score, in.A.ScoreBonusRate)
	bScore := applyBonus(bPerf.score, in.B.ScoreBonusRate)
	aTotal10 := int(math.Round(aScore * 10))
	bTotal10 := int(math.Round(bScore * 10))

	winner := SideA
	switch {
	case bTotal10 > aTotal10:
		winner = SideB
	case aTotal10 == bTotal10 && bScore > aScore:
		winner = SideB
	case aTotal10 == bTotal10 && aScore == bScore && hash32(in.Seed+":tiebreak")%2 == 1:
		winner = SideB
	}

	rounds := buildRounds(roundsInput{
		seed:      in.Seed,
		mode:      mode,
		aTotal10:  aTotal10,
		bTotal10:  bTotal10,
		ratingA:   in.A.Rating,
		ratingB:   in.B.Rating,
		aHints:    in.A.Hints,
		bHints:    in.B.Hints,
		rounds:    in.Rounds,
		cheerBuff: buff,
	})
	settleFinalRound(rounds, winner)

	payload := map[string]any{
		"challenge": challenge,
		"a":         aPerf.payload,
		"b":         bPerf.payload,
	}
	for k, v := range extra {
		payload[k] = v
	}
	raw, _ := json.Marshal(payload)

	gap10 := aTotal10 - bTotal10
	if gap10 < 0 {
		gap10 = -gap10
	}
	tags := make([]string, 0, 2)
	nearMiss := ""
	switch {
	case gap10 < 10:
		tags = append(tags, TagClose)
		nearMiss = nearMissLine(aTotal10, bTotal10, winner)
	case gap10 >= 40:
		tags = append(tags, TagBlowout)
	}

	return Output{
		Rounds:      rounds,
		Winner:      winner,
		AScore:      round3(aScore),
		BScore:      round3(bScore),
		AScore10:    aTotal10,
		BScore10:    bTotal10,
		NearMiss:    nearMiss,
		Tags:        tags,
		ModePayload: raw,
	}
}

func applyBonus(score, rate float64) float64 {
	rate = clampFloat(rate, 0, 0.10)
	return clampFloat(score*(1+rate), 0, 10)
}

// settleFinalRound keeps the terminal probability on the side of the verdict.
func settleFinalRound(rounds []Round, winner Side) {
	if len(rounds) == 0 {
		return
	}
	last := &rounds[len(rounds)-1]
	p := last.WinProbA
	if winner == SideA && p < 0.51 {
		p = 0.51
	}
	if winner == SideB && p > 0.49 {
		p = 0.49
	}
	last.WinProbA = round3(p)
	last.WinProbB = round3(1 - p)
}

func nearMissLine(a10, b10 int, winner Side) string {
	if a10 == b10 {
		return fmt.Sprintf("%.1f vs %.1f, decided on the wire", float64(a10)/10, float64(b10)/10)
	}
	loser, win := a10, b10
	if winner == SideA {
		loser, win = b10, a10
	}
	return fmt.Sprintf("%.1f vs %.1f, short by %.1f", float64(win)/10, float64(loser)/10, float64(win-loser)/10)
}
