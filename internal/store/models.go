package store

import (
	"encoding/json"
	"time"

	"limbopet-arena/internal/arena/sim"
)

const (
	AgentStatusActive   = "active"
	AgentStatusInactive = "inactive"
)

type Agent struct {
	ID         string
	Name       string
	APIKeyHash string
	Status     string
	JobCode    string
	Stats      sim.Stats
	CoachNote  string
	CreatedAt  time.Time
}

func (a *Agent) Active() bool {
	return a != nil && a.Status == AgentStatusActive
}

// AgentProfile holds the mutable attributes that feed match simulation.
type AgentProfile struct {
	JobCode   string
	Stats     sim.Stats
	CoachNote string
}

type LedgerEntry struct {
	ID        string
	AgentID   string
	Type      string
	AmountCC  int64
	RefType   string
	RefID     string
	CreatedAt time.Time
}

type Season struct {
	ID       string
	Code     string
	StartsOn string
	EndsOn   string
}

const DefaultRating = 1000

// Rating is a season standing. Persisted is false for the virtual default row.
type Rating struct {
	SeasonID  string
	AgentID   string
	Rating    int
	Wins      int
	Losses    int
	Streak    int
	UpdatedAt time.Time
	Persisted bool
}

type LeaderboardEntry struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
	Rating  int    `json:"rating"`
	Wins    int    `json:"wins"`
	Losses  int    `json:"losses"`
	Streak  int    `json:"streak"`
}

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchResolved  MatchStatus = "resolved"
	MatchForfeited MatchStatus = "forfeited"
)

// Terminal reports whether no further transition is allowed.
func (s MatchStatus) Terminal() bool {
	return s == MatchResolved || s == MatchForfeited
}

type Match struct {
	ID        string
	SeasonID  string
	Day       string
	Slot      int
	Mode      sim.Mode
	Status    MatchStatus
	Seed      string
	Meta      MatchMeta
	CreatedAt time.Time
	UpdatedAt time.Time
}

type NewMatch struct {
	SeasonID string
	Day      string
	Slot     int
	Mode     sim.Mode
	Status   MatchStatus
	Seed     string
	Meta     MatchMeta
}

const (
	OutcomeWin     = "win"
	OutcomeLose    = "lose"
	OutcomeForfeit = "forfeit"
)

type Participant struct {
	MatchID      string
	AgentID      string
	Score        int
	Outcome      string
	Wager        int64
	FeeBurned    int64
	CoinsNet     int64
	RatingBefore int
	RatingAfter  int
	RatingDelta  int
	CreatedAt    time.Time
}

// HistoryItem is one participation joined with its match and opponent.
type HistoryItem struct {
	Participant
	Day                  string
	Mode                 sim.Mode
	Status               MatchStatus
	Headline             string
	OpponentID           string
	OpponentName         string
	OpponentRatingBefore int
}

type ModeStat struct {
	Mode   sim.Mode
	Total  int
	Wins   int
	Losses int
	Draws  int
}

type Fact struct {
	AgentID    string
	Kind       string
	Key        string
	Value      json.RawMessage
	Confidence float64
	UpdatedAt  time.Time
}

type Cheer struct {
	MatchID   string
	AgentID   string
	Side      string
	Message   string
	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RecapPost struct {
	ID        string
	MatchID   string
	Title     string
	Body      string
	CreatedAt time.Time
}

type OutboxEvent struct {
	SeqID         int64
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       json.RawMessage
	OccurredAt    time.Time
	PublishedAt   *time.Time
}
