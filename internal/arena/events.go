package arena

import (
	"limbopet-arena/internal/store"
)

const (
	AggregateMatch = "arena_match"

	EventMatchCreated   = "match_created"
	EventMatchResolved  = "match_resolved"
	EventMatchForfeited = "match_forfeited"
)

// MatchEvent is the outbox payload for every match event type.
type MatchEvent struct {
	MatchID      string           `json:"match_id"`
	Day          string           `json:"day"`
	Slot         int              `json:"slot"`
	Mode         string           `json:"mode"`
	ModeLabel    string           `json:"mode_label,omitempty"`
	Status       string           `json:"status"`
	Origin       string           `json:"origin,omitempty"`
	Headline     string           `json:"headline,omitempty"`
	AID          string           `json:"a_id,omitempty"`
	BID          string           `json:"b_id,omitempty"`
	AName        string           `json:"a_name,omitempty"`
	BName        string           `json:"b_name,omitempty"`
	WinnerID     string           `json:"winner_id,omitempty"`
	LoserID      string           `json:"loser_id,omitempty"`
	AScore       float64          `json:"a_score,omitempty"`
	BScore       float64          `json:"b_score,omitempty"`
	RatingDeltaA int              `json:"rating_delta_a,omitempty"`
	RatingDeltaB int              `json:"rating_delta_b,omitempty"`
	Stake        *store.StakeInfo `json:"stake,omitempty"`
	Tags         []string         `json:"tags,omitempty"`
}

func matchEvent(m *store.Match) MatchEvent {
	ev := MatchEvent{
		MatchID:   m.ID,
		Day:       m.Day,
		Slot:      m.Slot,
		Mode:      string(m.Mode),
		ModeLabel: m.Meta.ModeLabel,
		Status:    string(m.Status),
		Origin:    m.Meta.Origin,
		Headline:  m.Meta.Headline,
		Stake:     m.Meta.Stake,
		Tags:      m.Meta.Tags,
	}
	if c := m.Meta.Cast; c != nil {
		ev.AID, ev.BID, ev.AName, ev.BName = c.AID, c.BID, c.AName, c.BName
	}
	if r := m.Meta.Result; r != nil {
		ev.WinnerID = r.WinnerID
		ev.LoserID = r.LoserID
		ev.AScore = r.AScore
		ev.BScore = r.BScore
		ev.RatingDeltaA = r.RatingDeltaA
		ev.RatingDeltaB = r.RatingDeltaB
	}
	return ev
}
