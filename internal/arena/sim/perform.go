package sim

import (
	"fmt"
	"strings"
)

// Stats are the contestant's condition attributes, each 0..100.
type Stats struct {
	Energy    int `json:"energy"`
	Mood      int `json:"mood"`
	Stress    int `json:"stress"`
	Curiosity int `json:"curiosity"`
}

func (s Stats) normalized() Stats {
	return Stats{
		Energy:    clampInt(s.Energy, 0, 100),
		Mood:      clampInt(s.Mood, 0, 100),
		Stress:    clampInt(s.Stress, 0, 100),
		Curiosity: clampInt(s.Curiosity, 0, 100),
	}
}

// DefaultStats is used when an agent has no recorded condition.
var DefaultStats = Stats{Energy: 50, Mood: 50, Stress: 25, Curiosity: 50}

type perf struct {
	score   float64
	payload map[string]any
}

type sideCtx struct {
	c     Contestant
	stats Stats
	job   string
	rng   *rng
}

func newSideCtx(seed string, mode Mode, c Contestant) sideCtx {
	return sideCtx{
		c:     c,
		stats: c.Stats.normalized(),
		job:   strings.ToLower(strings.TrimSpace(c.JobCode)),
		rng:   stream(seed, string(mode)+":"+c.AgentID),
	}
}

func (s sideCtx) rating() float64 {
	if s.c.Rating <= 0 {
		return 1000
	}
	return float64(s.c.Rating)
}

func jobBonus(job string, table map[string]float64) float64 {
	return table[job]
}

// --- PUZZLE_SPRINT / MATH_RACE ---

type numberChallenge struct {
	Kind     string `json:"kind"`
	Question string `json:"question"`
	Answer   int    `json:"answer"`
}

func buildPuzzle(r *rng) numberChallenge {
	if pick(r, []string{"SEQ_MUL", "SEQ_ADD"}) == "SEQ_ADD" {
		start, step := r.Intn(3, 15), r.Intn(2, 9)
		return numberChallenge{
			Kind:     "SEQ_ADD",
			Question: fmt.Sprintf("Sequence: %d, %d, %d, %d, next?", start, start+step, start+2*step, start+3*step),
			Answer:   start + 4*step,
		}
	}
	start, mul := r.Intn(2, 9), r.Intn(2, 4)
	return numberChallenge{
		Kind:     "SEQ_MUL",
		Question: fmt.Sprintf("Sequence: %d, %d, %d, %d, next?", start, start*mul, start*mul*mul, start*mul*mul*mul),
		Answer:   start * mul * mul * mul * mul,
	}
}

func buildMathChallenge(r *rng) numberChallenge {
	switch pick(r, []string{"ARITH_ADD_MUL", "ARITH_MUL_ADD", "SEQ_ADD", "SEQ_MUL"}) {
	case "SEQ_ADD":
		start, step := r.Intn(5, 30), r.Intn(2, 12)
		return numberChallenge{
			Kind:     "SEQ_ADD",
			Question: fmt.Sprintf("Sequence: %d, %d, %d, %d, next?", start, start+step, start+2*step, start+3*step),
			Answer:   start + 4*step,
		}
	case "SEQ_MUL":
		start, mul := r.Intn(2, 12), r.Intn(2, 4)
		return numberChallenge{
			Kind:     "SEQ_MUL",
			Question: fmt.Sprintf("Sequence: %d, %d, %d, %d, next?", start, start*mul, start*mul*mul, start*mul*mul*mul),
			Answer:   start * mul * mul * mul * mul,
		}
	case "ARITH_MUL_ADD":
		a, b, c := r.Intn(3, 19), r.Intn(3, 17), r.Intn(2, 29)
		return numberChallenge{Kind: "ARITH_MUL_ADD", Question: fmt.Sprintf("(%d x %d) + %d = ?", a, b, c), Answer: a*b + c}
	default:
		a, b, c := r.Intn(5, 30), r.Intn(2, 20), r.Intn(2, 9)
		return numberChallenge{Kind: "ARITH_ADD_MUL", Question: fmt.Sprintf("(%d + %d) x %d = ?", a, b, c), Answer: (a + b) * c}
	}
}

func scoreNumberAttempt(correct bool, timeMs, distance int) float64 {
	t := clampInt(timeMs, 900, 9900)
	speed := clamp01(float64(9500-t)/9500) * 5
	penalty := clampFloat(float64(distance)/10, 0, 1.2) * 0.8
	base := 0.0
	if correct {
		base = 5
	}
	return clampFloat(base+speed-penalty, 0, 10)
}

var numberJobBonus = map[string]float64{"engineer": 0.16, "detective": 0.1, "journalist": 0.06}

var wrongAnswerOffsets = []int{-11, -7, -5, -3, -2, -1, 1, 2, 3, 5, 7, 11}

func perfNumber(s sideCtx, ch numberChallenge) perf {
	st := s.stats
	jb := jobBonus(s.job, numberJobBonus)
	study := s.c.Hints.Study
	pCorrect := clamp01(0.46 + jb + study*0.22 + (s.rating()-1000)/3200 +
		float64(st.Energy-50)/420 - float64(st.Stress-25)/520 + float64(st.Curiosity-50)/520)
	correct := s.rng.Float() < pCorrect

	base := 4300 - study*1400 - jb*900 - float64(st.Energy-50)*18 + float64(st.Stress-25)*22
	timeMs := clampInt(int(base)+s.rng.Intn(-650, 2200), 900, 9500)
	if !correct {
		timeMs = clampInt(timeMs+s.rng.Intn(250, 1400), 900, 9900)
	}
	answer := ch.Answer
	if !correct {
		answer += pick(s.rng, wrongAnswerOffsets)
	}
	distance := answer - ch.Answer
	if distance < 0 {
		distance = -distance
	}
	score := scoreNumberAttempt(correct, timeMs, distance)
	return perf{score: score, payload: map[string]any{
		"answer":  answer,
		"correct": correct,
		"time_ms": timeMs,
		"score":   round3(score),
	}}
}

// bothWrongGuard marks the closer (then faster) side correct when nobody solved
// the race, so every math match has a solver.
func bothWrongGuard(seed string, a, b *perf, ch numberChallenge) string {
	if a.payload["correct"] == true || b.payload["correct"] == true {
		return ""
	}
	dist := func(p *perf) int {
		d := p.payload["answer"].(int) - ch.Answer
		if d < 0 {
			return -d
		}
		return d
	}
	aDist, bDist := dist(a), dist(b)
	aTime, bTime := a.payload["time_ms"].(int), b.payload["time_ms"].(int)
	side := "a"
	switch {
	case bDist < aDist:
		side = "b"
	case aDist == bDist && bTime < aTime:
		side = "b"
	case aDist == bDist && aTime == bTime && hash32(seed+":both_wrong_guard")%2 == 1:
		side = "b"
	}
	forced := a
	if side == "b" {
		forced = b
	}
	t := forced.payload["time_ms"].(int)
	forced.payload["correct"] = true
	forced.payload["answer"] = ch.Answer
	s := scoreNumberAttempt(true, t, 0)
	if s > forced.score {
		forced.score = s
	}
	forced.payload["score"] = round3(forced.score)
	return side
}

// --- COURT_TRIAL ---

type courtCase struct {
	Title          string   `json:"title"`
	Charge         string   `json:"charge"`
	Facts          []string `json:"facts"`
	Statute        string   `json:"statute"`
	CorrectVerdict string   `json:"correct_verdict"`
}

const (
	verdictGuilty    = "guilty"
	verdictNotGuilty = "not guilty"
)

func verdictFor(evidence int) string {
	if evidence >= 2 {
		return verdictGuilty
	}
	return verdictNotGuilty
}

func yesNo(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func buildCourtCase(r *rng) courtCase {
	switch pick(r, []string{"THEFT", "DATA_TAMPER", "DEFAMATION"}) {
	case "DATA_TAMPER":
		logs, witness, motive := r.Float() < 0.55, r.Float() < 0.5, r.Float() < 0.6
		return courtCase{
			Title:  "Research data tampering",
			Charge: "data tampering",
			Facts: []string{
				"Unexplained edits were found in the lab repository.",
				yesNo(logs, "The audit log caught the change.", "The audit log has a suspicious gap."),
				yesNo(witness, "A colleague says they saw it happen.", "Nobody witnessed it."),
				yesNo(motive, "There was a clear rivalry.", "No obvious motive."),
			},
			Statute:        "Two or more pieces of evidence: guilty. Otherwise: not guilty.",
			CorrectVerdict: verdictFor(boolInt(logs) + boolInt(witness) + boolInt(motive)),
		}
	case "DEFAMATION":
		quote, intent, truth := r.Float() < 0.6, r.Float() < 0.55, r.Float() < 0.35
		return courtCase{
			Title:  "Plaza defamation",
			Charge: "defamation",
			Facts: []string{
				"A post targeting another pet appeared in the plaza.",
				yesNo(quote, "A screenshot of the original survives.", "The original was deleted."),
				yesNo(intent, "Similar posts were made repeatedly.", "This is a first offense."),
				yesNo(truth, "Part of the claim was verified as true.", "Truth of the claim is unclear."),
			},
			Statute:        "Original evidence plus repetition: guilty, reduced if true.",
			CorrectVerdict: verdictFor(boolInt(quote) + boolInt(intent) - boolInt(truth)),
		}
	default:
		cctv, receipt, returned := r.Float() < 0.62, r.Float() < 0.4, r.Float() < 0.3
		item := pick(r, []string{"case files", "strategy notebook", "training log", "evidence drive"})
		return courtCase{
			Title:  "Theft of the " + item,
			Charge: "theft",
			Facts: []string{
				"The " + item + " was reported missing.",
				yesNo(cctv, "CCTV caught a similar silhouette.", "The CCTV was broken."),
				yesNo(receipt, "A purchase record was matched.", "There is no paper trail."),
				yesNo(returned, "The item quietly reappeared the next day.", "The item is still missing."),
			},
			Statute:        "Two or more pieces of evidence: guilty. Otherwise: not guilty.",
			CorrectVerdict: verdictFor(boolInt(cctv) + boolInt(receipt) - boolInt(returned)),
		}
	}
}

var courtJobBonus = map[string]float64{"detective": 0.14, "journalist": 0.1, "engineer": 0.05}

func perfCourt(s sideCtx, cc courtCase) perf {
	st := s.stats
	jb := jobBonus(s.job, courtJobBonus)
	study, calm := s.c.Hints.Study, s.c.Hints.Calm
	pCorrect := clamp01(0.42 + jb + study*0.18 + calm*0.08 + (s.rating()-1000)/3600 +
		float64(st.Energy-50)/520 - float64(st.Stress-25)/520 + float64(st.Curiosity-50)/900)
	correct := s.rng.Float() < pCorrect

	base := 5200 - study*900 - jb*700 - calm*600 - float64(st.Energy-50)*14 + float64(st.Stress-25)*18
	timeMs := clampInt(int(base)+s.rng.Intn(-900, 2600), 1200, 11000)
	if !correct {
		timeMs = clampInt(timeMs+s.rng.Intn(200, 1700), 1200, 11500)
	}
	verdict := cc.CorrectVerdict
	if !correct {
		verdict = yesNo(cc.CorrectVerdict == verdictGuilty, verdictNotGuilty, verdictGuilty)
	}
	speed := clamp01(float64(11000-timeMs)/11000) * 5
	score := clampFloat(float64(5*boolInt(correct))+speed, 0, 10)
	return perf{score: score, payload: map[string]any{
		"verdict": verdict,
		"correct": correct,
		"time_ms": timeMs,
		"score":   round3(score),
	}}
}

// --- PROMPT_BATTLE ---

type promptTheme struct {
	Theme    string   `json:"theme"`
	Required []string `json:"required"`
}

func buildPromptTheme(r *rng) promptTheme {
	place := pick(r, []string{"dawn academy", "neon plaza", "research lab", "subway station", "rainy courthouse lobby", "tiny library"})
	subject := pick(r, []string{"cat CEO", "puppy in a spacesuit", "sleeping robot", "pet with an umbrella", "smiling citizen"})
	style := pick(r, []string{"pixel art", "watercolor", "isometric", "3D render", "comic style"})
	keyword := pick(r, []string{"neon", "cozy", "tension", "rain", "festival", "mystery"})
	return promptTheme{
		Theme:    fmt.Sprintf("%s at the %s, %s, keyword: %s", subject, place, style, keyword),
		Required: []string{place, keyword},
	}
}

var promptJobFlair = map[string]float64{"journalist": 0.15, "merchant": 0.1}

func perfPrompt(s sideCtx, th promptTheme) perf {
	st := s.stats
	study, calm := s.c.Hints.Study, s.c.Hints.Calm
	flair := clamp01(float64(st.Curiosity-40)/80)*0.6 + jobBonus(s.job, promptJobFlair)
	forget := clamp01(0.08 + float64(st.Stress-25)/240 - calm*0.06)
	missingOne := len(th.Required) > 0 && s.rng.Float() < forget

	parts := []string{
		th.Theme,
		yesNo(s.rng.Float() < 0.5, "vertical 9:16", "high resolution"),
		"lighting: " + pick(s.rng, []string{"soft", "harsh", "dreamy", "cold"}),
		"framing: " + pick(s.rng, []string{"close-up", "wide shot", "low angle", "high angle"}),
	}
	if flair > 0.35 {
		parts = append(parts, "detail: "+pick(s.rng, []string{"glittering dust", "wet floor reflections", "subtle expression", "swaying signboard"}))
	}
	if study > 0.55 {
		parts = append(parts, "respect constraints, no overlaid text")
	}
	prompt := strings.Join(parts, ", ")
	if missingOne {
		drop := pick(s.rng, th.Required)
		prompt = strings.Join(strings.Fields(strings.ReplaceAll(prompt, drop, "")), " ")
	}

	hits := 0
	missing := make([]string, 0)
	for _, k := range th.Required {
		if strings.Contains(prompt, k) {
			hits++
		} else {
			missing = append(missing, k)
		}
	}
	lenScore := 0.0
	switch n := len(prompt); {
	case n >= 80 && n <= 260:
		lenScore = 2
	case n >= 50 && n <= 360:
		lenScore = 1
	}
	reqScore := 3.0
	if len(th.Required) > 0 {
		reqScore = float64(hits) / float64(len(th.Required)) * 5
	}
	spice := clamp01((s.rating()-1000)/1800)*0.6 + clamp01(float64(st.Energy-50)/100)*0.3
	score := clampFloat(reqScore+lenScore+spice+flair*0.5, 0, 10)
	return perf{score: score, payload: map[string]any{
		"prompt":  prompt,
		"missing": missing,
		"score":   round3(score),
	}}
}

// --- AUCTION_DUEL ---

type auctionLot struct {
	Item   string `json:"item"`
	Vibe   string `json:"vibe"`
	Rule   string `json:"rule"`
	MaxBid int    `json:"max_bid"`
}

func buildAuctionLot(r *rng, wager int64) auctionLot {
	maxBid := int(wager) * 4
	if maxBid < 10 {
		maxBid = 10
	}
	return auctionLot{
		Item:   pick(r, []string{"rare casebook", "secret playbook", "lab hint", "arena charm", "plaza ad slot", "training manual"}),
		Vibe:   pick(r, []string{"one shot", "emotion", "calculation", "pride", "revenge"}),
		Rule:   "Closest bid to the fair value without going over wins; ties go to the faster, cooler bidder.",
		MaxBid: maxBid,
	}
}

var auctionJobBonus = map[string]float64{"merchant": 0.25}

func perfAuction(s sideCtx, lot auctionLot, fairValue int) perf {
	st := s.stats
	budget, impulseStop, aggro := s.c.Hints.Budget, s.c.Hints.ImpulseStop, s.c.Hints.Aggressive
	mb := jobBonus(s.job, auctionJobBonus)
	discipline := clamp01(0.45 + budget*0.35 + impulseStop*0.15 + mb - float64(st.Stress-25)/220)
	greed := clamp01(0.38 + float64(st.Mood-50)/140 + aggro*0.15 - impulseStop*0.1)

	// Disciplined bidders aim near fair value; greedy ones overshoot.
	target := float64(fairValue) * (0.75 + greed*0.5 - discipline*0.2)
	noise := (s.rng.Float() - 0.5) * float64(lot.MaxBid) * 0.2 * (1 - discipline)
	bid := clampInt(int(target+noise+0.5), 0, lot.MaxBid)

	timeMs := clampInt(int(4200-discipline*1200-mb*700-float64(st.Energy-50)*14+float64(st.Stress-25)*18)+s.rng.Intn(-500, 1600), 900, 9500)

	over := bid > fairValue
	closeness := 1 - clamp01(absFloat(float64(fairValue-bid))/float64(maxInt(fairValue, 1)))
	score := closeness*7 + discipline*2 + clamp01(float64(9500-timeMs)/9500)
	if over {
		score *= 0.45
	}
	score = clampFloat(score, 0, 10)

	posture := "emotion took over; the paddle went up first"
	switch {
	case discipline >= 0.68:
		posture = "locked the number in, unshaken"
	case discipline >= 0.52:
		posture = "one more raise? fingers trembling"
	}
	return perf{score: score, payload: map[string]any{
		"bid":     bid,
		"over":    over,
		"time_ms": timeMs,
		"posture": posture,
		"score":   round3(score),
	}}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// --- DEBATE_CLASH ---

type debateTopic struct {
	Topic string `json:"topic"`
	Rule  string `json:"rule"`
	Judge string `json:"judge"`
}

func buildDebateTopic(r *rng) debateTopic {
	return debateTopic{
		Topic: pick(r, []string{
			"Should the transaction tax go up?",
			"Is the arena gambling or sport?",
			"Should lab research be open by default?",
			"Does the plaza need moderation?",
			"Should newcomers get starter capital?",
			"Should arena losers get a consolation prize?",
			"Who owns lab data?",
		}),
		Rule: pick(r, []string{
			"logic, composure, impact",
			"evidence, rebuttal, summary",
			"cite numbers, no emotional appeals",
			"metaphors allowed, no personal attacks",
		}),
		Judge: pick(r, []string{"editor", "reporter", "judge", "economist", "philosopher", "former champion"}),
	}
}

var debateClaims = map[tone][]string{
	toneAggressive: {
		"Your own numbers contradict you.",
		"Name one case where that worked.",
		"This is a tax on the people who can least afford it.",
	},
	toneComposed: {
		"Let's agree on what we both want first.",
		"Fair point, and it still leads to my conclusion.",
		"The trade-off is real; here is how to price it.",
	},
	toneAnalytic: {
		"Three data points support this, in order.",
		"The premise fails at step two.",
		"Second-order effects reverse the first-order gain.",
	},
	toneBase: {
		"I believe this is the right call.",
		"History shows this pattern.",
		"It is simply fairer.",
	},
}

var debateJobBonus = map[string]float64{"journalist": 3.0, "janitor": 1.5}

func perfDebate(s sideCtx, stance string) perf {
	st := s.stats
	h := s.c.Hints
	jb := jobBonus(s.job, debateJobBonus)
	calm := h.Calm * 2.5
	aggro := h.Aggressive * 1.2
	composure := float64(st.Mood-50)/10 + float64(st.Energy-50)/15 - float64(st.Stress-25)/10
	blowup := 0.0
	if composure < -1.2 && aggro > 1.2 {
		blowup = -2
	}
	raw := (s.rating()-1000)/40 + jb + calm + aggro + h.Study*1.5 + composure + blowup + (s.rng.Float()-0.5)*2
	score := clampFloat(5+raw*0.6, 0, 10)

	claims := make([]string, 0, 3)
	bank := debateClaims[toneFor(h)]
	for i := 0; i < 3 && len(bank) > 0; i++ {
		claims = append(claims, pick(s.rng, bank))
	}
	return perf{score: score, payload: map[string]any{
		"stance": stance,
		"claims": claims,
		"score":  round3(score),
	}}
}
