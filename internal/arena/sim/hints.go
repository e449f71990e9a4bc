package sim

import (
	"regexp"
	"sort"
	"strings"
)

// Hints is the coaching weight vector. Every component lives in [0, 1].
type Hints struct {
	Calm        float64 `json:"calm"`
	Study       float64 `json:"study"`
	Aggressive  float64 `json:"aggressive"`
	Budget      float64 `json:"budget"`
	ImpulseStop float64 `json:"impulse_stop"`
}

func (h Hints) Add(o Hints) Hints {
	return Hints{
		Calm:        h.Calm + o.Calm,
		Study:       h.Study + o.Study,
		Aggressive:  h.Aggressive + o.Aggressive,
		Budget:      h.Budget + o.Budget,
		ImpulseStop: h.ImpulseStop + o.ImpulseStop,
	}
}

func (h Hints) Clamp() Hints {
	return Hints{
		Calm:        clamp01(h.Calm),
		Study:       clamp01(h.Study),
		Aggressive:  clamp01(h.Aggressive),
		Budget:      clamp01(h.Budget),
		ImpulseStop: clamp01(h.ImpulseStop),
	}
}

func (h Hints) Rounded() Hints {
	return Hints{
		Calm:        round3(h.Calm),
		Study:       round3(h.Study),
		Aggressive:  round3(h.Aggressive),
		Budget:      round3(h.Budget),
		ImpulseStop: round3(h.ImpulseStop),
	}
}

func (h Hints) entries() []hintEntry {
	return []hintEntry{
		{"calm", h.Calm},
		{"study", h.Study},
		{"aggressive", h.Aggressive},
		{"budget", h.Budget},
		{"impulse_stop", h.ImpulseStop},
	}
}

type hintEntry struct {
	key   string
	score float64
}

// HasSignal reports whether any component is above the noise floor.
func (h Hints) HasSignal() bool {
	for _, e := range h.entries() {
		if e.score > 0.02 {
			return true
		}
	}
	return false
}

// Dominant returns up to two strongest hint keys above 0.01.
func (h Hints) Dominant() []string {
	es := h.entries()
	sort.SliceStable(es, func(i, j int) bool {
		if es[i].score == es[j].score {
			return es[i].key < es[j].key
		}
		return es[i].score > es[j].score
	})
	out := make([]string, 0, 2)
	for _, e := range es {
		if e.score <= 0.01 || len(out) == 2 {
			break
		}
		out = append(out, e.key)
	}
	return out
}

// Nudge is a piece of coaching text: an owner's coach note or a stored coaching memory.
type Nudge struct {
	Kind       string
	Text       string
	Confidence float64
}

const NudgeKindCoachNote = "coach_note"

var (
	reBudgetWords  = regexp.MustCompile(`(?i)money|coin|save|saving|budget|waste|frugal`)
	reBudgetAction = regexp.MustCompile(`(?i)save|saving|don'?t waste|cut back|spend less|hold back`)
	reImpulseWords = regexp.MustCompile(`(?i)impulse|splurge|overbid|chase`)
	reNo           = regexp.MustCompile(`(?i)don'?t|do not|never|stop|avoid|no more|less`)
	reStudy        = regexp.MustCompile(`(?i)study|puzzle|quiz|research|analy[sz]e|evidence|precedent|logic|rebut|strategy|prepare|contradiction`)
	reCalm         = regexp.MustCompile(`(?i)calm|don'?t fight|steady|quiet|patient|careful|composed|cool`)
	reAggro        = regexp.MustCompile(`(?i)\bwin\b|push|fight|crush|dominate|attack|pressure|persuade|hard|emotional appeal`)
)

// BuildHints turns coaching text into a hint vector. Each matching nudge adds
// 0.7..1.3 (by confidence) to a component; sums are halved and clamped.
func BuildHints(nudges []Nudge) Hints {
	var h Hints
	for _, n := range nudges {
		text := strings.TrimSpace(n.Text)
		kind := strings.ToLower(strings.TrimSpace(n.Kind))
		if text == "" || kind == "" {
			continue
		}
		conf := n.Confidence
		if conf == 0 {
			conf = 1.0
		}
		w := 0.7 + clamp01(conf/1.5)*0.6

		if reBudgetWords.MatchString(text) && reBudgetAction.MatchString(text) {
			h.Budget += w
		}
		if reImpulseWords.MatchString(text) && reNo.MatchString(text) {
			h.ImpulseStop += w
		}
		if reStudy.MatchString(text) {
			if kind == NudgeKindCoachNote {
				h.Study += w * 0.6
			} else {
				h.Study += w
			}
		}
		if reCalm.MatchString(text) {
			h.Calm += w
		}
		if reAggro.MatchString(text) {
			h.Aggressive += w
		}
	}
	return Hints{
		Calm:        clamp01(h.Calm / 2),
		Study:       clamp01(h.Study / 2),
		Aggressive:  clamp01(h.Aggressive / 2),
		Budget:      clamp01(h.Budget / 2),
		ImpulseStop: clamp01(h.ImpulseStop / 2),
	}
}

// CoachingBonusRate is the score multiplier bonus (0.05..0.10) earned when
// cited coaching memories actually moved the hint vector.
func CoachingBonusRate(memories []Nudge, h Hints) float64 {
	if len(memories) == 0 || !h.HasSignal() {
		return 0
	}
	sum := 0.0
	for _, m := range memories {
		sum += clamp01(m.Confidence)
	}
	avg := sum / float64(len(memories))
	return clampFloat(round3(0.05+avg*0.05), 0.05, 0.10)
}

const ActionClear = "clear"

var genericActions = map[string]Hints{
	"calm":         {Calm: 1},
	"study":        {Study: 1},
	"aggressive":   {Aggressive: 1},
	"budget":       {Budget: 1},
	"impulse_stop": {ImpulseStop: 1},
}

var modeStrategies = map[string]Hints{
	"debate_logic_attack":  {Study: 0.4},
	"debate_emotion":       {Aggressive: 0.3},
	"debate_counter":       {Calm: 0.35},
	"debate_pressure":      {Aggressive: 0.7},
	"court_evidence":       {Study: 0.5},
	"court_cross":          {Aggressive: 0.3},
	"court_precedent":      {Calm: 0.5},
	"auction_snipe":        {Budget: 0.5},
	"auction_conservative": {Budget: 0.7},
	"auction_bluff":        {Aggressive: 0.5},
	"math_speed":           {Aggressive: 0.3},
	"math_accuracy":        {Study: 0.5},
	"puzzle_hint":          {Study: 0.6},
	"puzzle_pattern":       {Study: 0.3},
	"prompt_creative":      {Aggressive: 0.3},
	"prompt_precise":       {Study: 0.5},
	"prompt_keyword":       {Calm: 0.3},
}

// InterventionBoosts returns the boost vector for a live coaching action.
// "clear" is valid but carries no boosts.
func InterventionBoosts(action string) (Hints, bool) {
	a := strings.ToLower(strings.TrimSpace(action))
	if a == ActionClear {
		return Hints{}, true
	}
	if h, ok := genericActions[a]; ok {
		return h, true
	}
	h, ok := modeStrategies[a]
	return h, ok
}
