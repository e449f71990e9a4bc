package store

import (
	"encoding/json"
	"time"

	"limbopet-arena/internal/arena/sim"
)

const maxTags = 8

// MatchMeta is the arena_matches.meta document. Every sub-structure is
// optional; absent fields decode to nil or zero values.
type MatchMeta struct {
	Origin      string             `json:"origin,omitempty"`
	Headline    string             `json:"headline,omitempty"`
	ModeLabel   string             `json:"mode_label,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	Cast        *CastInfo          `json:"cast,omitempty"`
	StartsAt    *time.Time         `json:"starts_at,omitempty"`
	Live        *LiveInfo          `json:"live,omitempty"`
	Stake       *StakeInfo         `json:"stake,omitempty"`
	Snapshot    *Snapshot          `json:"snapshot,omitempty"`
	Rounds      []sim.Round        `json:"rounds,omitempty"`
	NearMiss    string             `json:"near_miss,omitempty"`
	ModePayload json.RawMessage    `json:"mode_payload,omitempty"`
	Result      *Result            `json:"result,omitempty"`
	Predict     *PredictSummary    `json:"predict,omitempty"`
	Cheer       *CheerSummary      `json:"cheer,omitempty"`
	Training    *TrainingInfluence `json:"training_influence,omitempty"`
	Votes       []Vote             `json:"votes,omitempty"`
	Rematch     *RematchInfo       `json:"rematch,omitempty"`
	RecapPostID string             `json:"recap_post_id,omitempty"`
}

const (
	OriginTick      = "tick"
	OriginChallenge = "challenge"
	OriginRematch   = "rematch"
)

type CastInfo struct {
	AID   string `json:"a_id"`
	BID   string `json:"b_id"`
	AName string `json:"a_name,omitempty"`
	BName string `json:"b_name,omitempty"`
}

// SideOf returns "a", "b" or "" for an agent.
func (c *CastInfo) SideOf(agentID string) string {
	switch {
	case c == nil || agentID == "":
		return ""
	case c.AID == agentID:
		return "a"
	case c.BID == agentID:
		return "b"
	}
	return ""
}

func (c *CastInfo) Has(agentID string) bool {
	return c.SideOf(agentID) != ""
}

type LiveInfo struct {
	StartedAt     time.Time `json:"started_at"`
	EndsAt        time.Time `json:"ends_at"`
	WindowSeconds int       `json:"window_seconds"`
}

// Open reports whether now falls inside the live window.
func (l *LiveInfo) Open(now time.Time) bool {
	return l != nil && now.Before(l.EndsAt)
}

// StakeInfo carries the wager plan at creation and the settled amounts after resolution.
type StakeInfo struct {
	Wager     int64 `json:"wager"`
	FeePlan   int64 `json:"fee_plan"`
	FeePct    int   `json:"fee_pct"`
	Amount    int64 `json:"amount,omitempty"`
	FeeBurned int64 `json:"fee_burned,omitempty"`
	ToWinner  int64 `json:"to_winner,omitempty"`
	Forfeit   bool  `json:"forfeit,omitempty"`
	Settled   bool  `json:"settled,omitempty"`
}

// Snapshot freezes what each side looked like when the pairing was made.
type Snapshot struct {
	Season string       `json:"season"`
	A      SideSnapshot `json:"a"`
	B      SideSnapshot `json:"b"`
}

type SideSnapshot struct {
	RatingBefore int       `json:"rating_before"`
	Stats        sim.Stats `json:"stats"`
	JobCode      string    `json:"job_code,omitempty"`
}

type Result struct {
	WinnerID      string    `json:"winner_id"`
	LoserID       string    `json:"loser_id"`
	WinnerSide    string    `json:"winner_side"`
	Forfeit       bool      `json:"forfeit,omitempty"`
	ForfeitReason string    `json:"forfeit_reason,omitempty"`
	AScore        float64   `json:"a_score"`
	BScore        float64   `json:"b_score"`
	RatingDeltaA  int       `json:"rating_delta_a"`
	RatingDeltaB  int       `json:"rating_delta_b"`
	ResolvedAt    time.Time `json:"resolved_at"`
}

type PredictSummary struct {
	Total     int   `json:"total"`
	Winners   int   `json:"winners"`
	Pot       int64 `json:"pot"`
	PerWinner int64 `json:"per_winner"`
	Remainder int64 `json:"remainder"`
	Voided    bool  `json:"voided,omitempty"`
}

type CheerMessage struct {
	Side  string `json:"side"`
	Text  string `json:"text"`
	Count int    `json:"count"`
}

type CheerSummary struct {
	ACount      int            `json:"a_count"`
	BCount      int            `json:"b_count"`
	Messages    []CheerMessage `json:"messages"`
	BestCheer   *CheerMessage  `json:"best_cheer,omitempty"`
	BuffApplied float64        `json:"buff_applied,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type MemoryRef struct {
	Kind       string  `json:"kind"`
	Key        string  `json:"key"`
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence"`
}

type SideInfluence struct {
	Hints            sim.Hints   `json:"hints"`
	Dominant         []string    `json:"dominant,omitempty"`
	Interventions    []string    `json:"interventions,omitempty"`
	CoachNoteApplied bool        `json:"coach_note_applied,omitempty"`
	MemoryRefs       []MemoryRef `json:"memory_refs,omitempty"`
	ScoreBonusRate   float64     `json:"score_bonus_rate,omitempty"`
}

type TrainingInfluence struct {
	A *SideInfluence `json:"a,omitempty"`
	B *SideInfluence `json:"b,omitempty"`
}

type Vote struct {
	VoterID   string    `json:"voter_id"`
	Vote      string    `json:"vote"`
	CreatedAt time.Time `json:"created_at"`
}

type VoteTally struct {
	Fair   int `json:"fair"`
	Unfair int `json:"unfair"`
	Total  int `json:"total"`
}

type RematchInfo struct {
	SourceMatchID      string  `json:"source_match_id"`
	RequestedBy        string  `json:"requested_by"`
	EloBonusMultiplier float64 `json:"elo_bonus_multiplier"`
	FeePaid            int64   `json:"fee_paid"`
}

// AddTag appends tag if missing, keeping at most maxTags entries.
func (m *MatchMeta) AddTag(tag string) {
	if tag == "" {
		return
	}
	for _, t := range m.Tags {
		if t == tag {
			return
		}
	}
	if len(m.Tags) >= maxTags {
		return
	}
	m.Tags = append(m.Tags, tag)
}

func (m *MatchMeta) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// VoteOf returns the voter's ballot, if any.
func (m *MatchMeta) VoteOf(voterID string) (Vote, bool) {
	for _, v := range m.Votes {
		if v.VoterID == voterID {
			return v, true
		}
	}
	return Vote{}, false
}

func (m *MatchMeta) Tally() VoteTally {
	var t VoteTally
	for _, v := range m.Votes {
		switch v.Vote {
		case "fair":
			t.Fair++
		case "unfair":
			t.Unfair++
		}
	}
	t.Total = t.Fair + t.Unfair
	return t
}

func decodeMeta(raw []byte) (MatchMeta, error) {
	var m MatchMeta
	if len(raw) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return MatchMeta{}, err
	}
	return m, nil
}
