package sim

type tone string

const (
	toneAggressive tone = "aggressive"
	toneComposed   tone = "composed"
	toneAnalytic   tone = "analytic"
	toneBase       tone = "base"
)

func toneFor(h Hints) tone {
	switch {
	case h.Aggressive >= 0.6:
		return toneAggressive
	case h.Calm >= 0.6 || h.Budget >= 0.6 || h.ImpulseStop >= 0.6:
		return toneComposed
	case h.Study >= 0.6:
		return toneAnalytic
	default:
		return toneBase
	}
}

var actionLabels = map[Mode]map[tone][]string{
	ModeDebateClash: {
		toneAggressive: {
			"jabs at a hole in the opposing case",
			"swings the room with an emotional appeal",
			"fires question after question",
			"grabs the floor with a hard tone",
		},
		toneComposed: {
			"answers without raising their voice",
			"concedes a point and reframes it",
			"lets the opponent overreach",
		},
		toneAnalytic: {
			"cites the numbers line by line",
			"maps the argument back to first principles",
			"dismantles the premise step by step",
		},
		toneBase: {
			"states the position plainly",
			"trades points evenly",
			"closes with a one-liner",
		},
	},
	ModeCourtTrial: {
		toneAggressive: {
			"presses the witness on cross",
			"objects before the question lands",
			"hammers the motive angle",
		},
		toneComposed: {
			"walks the bench through the timeline",
			"waits out the objection",
			"keeps the record clean",
		},
		toneAnalytic: {
			"lines up evidence against the statute",
			"spots a contradiction in the testimony",
			"cites the controlling precedent",
		},
		toneBase: {
			"summarizes the facts",
			"files a routine motion",
			"rests the point",
		},
	},
	ModeAuctionDuel: {
		toneAggressive: {
			"jumps the bid without blinking",
			"bluffs a bigger budget",
			"raises on pure pride",
		},
		toneComposed: {
			"holds the number and waits",
			"lets the other side bid against itself",
			"walks away from a bad price",
		},
		toneAnalytic: {
			"prices the item to the coin",
			"reads the opponent's tell",
			"times the bid to the last second",
		},
		toneBase: {
			"places a fair bid",
			"matches the last offer",
			"hesitates, then bids",
		},
	},
	ModePuzzleSprint: {
		toneAggressive: {
			"guesses fast and moves on",
			"brute-forces the pattern",
			"races through the first steps",
		},
		toneComposed: {
			"double-checks before answering",
			"slows down on the tricky step",
			"keeps the scratchpad tidy",
		},
		toneAnalytic: {
			"spots the recurrence immediately",
			"reduces the problem to a known form",
			"derives the next term cleanly",
		},
		toneBase: {
			"works the problem",
			"writes down an answer",
			"crosses out a wrong guess",
		},
	},
	ModePromptBattle: {
		toneAggressive: {
			"stacks bold style keywords",
			"goes for a dramatic composition",
			"pushes the lighting to the limit",
		},
		toneComposed: {
			"trims the prompt to essentials",
			"keeps every required keyword",
			"balances subject and setting",
		},
		toneAnalytic: {
			"orders the constraints by weight",
			"adds camera and framing specs",
			"checks the theme word by word",
		},
		toneBase: {
			"drafts a prompt",
			"adds a detail",
			"rewrites the opening line",
		},
	},
}

var fallbackActions = []string{"makes a move", "slips up", "grits their teeth and holds on"}

func actionLabelFor(mode Mode, h Hints, r *rng) string {
	if mode == ModeMathRace {
		mode = ModePuzzleSprint
	}
	set, ok := actionLabels[mode]
	if !ok {
		return pick(r, fallbackActions)
	}
	labels := set[toneFor(h)]
	if len(labels) == 0 {
		labels = set[toneBase]
	}
	return pick(r, labels)
}

type highlightSet struct {
	reversal   []string
	close      []string
	domination []string
}

var defaultHighlights = highlightSet{
	reversal: []string{
		"Reversal! The board just flipped!",
		"Nobody saw that coming!",
		"Momentum changes hands!",
		"Back from the brink!",
		"This is where the match really starts!",
	},
	close: []string{
		"Neck and neck!",
		"Either side could take it.",
		"Razor-thin margin.",
		"Nobody is giving an inch.",
		"One move decides this.",
	},
	domination: []string{
		"Total control.",
		"The gap keeps widening.",
		"A clinic in progress.",
		"The opponent cannot find footing.",
		"Unstoppable run!",
	},
}

var courtHighlights = highlightSet{
	reversal: []string{
		"One cross-examination question turns the case!",
		"The key issue just shifted.",
		"Witness credibility collapses. The case flips.",
		"A fatal contradiction surfaces!",
	},
	close: []string{
		"The bench is torn. One line is missing.",
		"Evidence is even. Law decides.",
		"It comes down to credibility.",
		"A single sentence is the tipping point.",
	},
	domination: []string{
		"The issues are framed. The bench nods along.",
		"Evidence chain is airtight.",
		"The burden of proof is crumbling.",
		"Controls the legal frame completely.",
	},
}

var minorHighlights = []string{"Nice move!", "So close...", "A small opening.", "Unshaken."}

func highlightsFor(mode Mode) highlightSet {
	if mode == ModeCourtTrial {
		return courtHighlights
	}
	return defaultHighlights
}
