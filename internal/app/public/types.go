package public

import (
	"time"

	"limbopet-arena/internal/store"
)

type SeasonView struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	StartsOn string `json:"starts_on"`
	EndsOn   string `json:"ends_on"`
}

type RatingView struct {
	Rating    int        `json:"rating"`
	Wins      int        `json:"wins"`
	Losses    int        `json:"losses"`
	Streak    int        `json:"streak"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type ParticipantView struct {
	AgentID      string  `json:"agent_id"`
	Name         string  `json:"name,omitempty"`
	Score        float64 `json:"score"`
	Outcome      string  `json:"outcome"`
	Wager        int64   `json:"wager"`
	FeeBurned    int64   `json:"fee_burned"`
	CoinsNet     int64   `json:"coins_net"`
	RatingBefore int     `json:"rating_before"`
	RatingAfter  int     `json:"rating_after"`
	RatingDelta  int     `json:"rating_delta"`
}

const (
	PhasePreLive = "pre_live"
	PhaseLive    = "live"
	PhaseJudging = "judging"
	PhaseFinal   = "final"
)

type MatchView struct {
	ID           string            `json:"id"`
	Day          string            `json:"day"`
	Slot         int               `json:"slot"`
	Mode         string            `json:"mode"`
	ModeLabel    string            `json:"mode_label"`
	Status       string            `json:"status"`
	Phase        string            `json:"phase"`
	Headline     string            `json:"headline,omitempty"`
	Meta         store.MatchMeta   `json:"meta"`
	Participants []ParticipantView `json:"participants"`
}

type RecapView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type MatchDetail struct {
	MatchView
	Votes store.VoteTally `json:"votes_tally"`
	Recap *RecapView      `json:"recap,omitempty"`
}

type TodayResponse struct {
	Day     string      `json:"day"`
	Season  *SeasonView `json:"season"`
	My      *RatingView `json:"my"`
	Matches []MatchView `json:"matches"`
}

type LeaderboardItem struct {
	Rank    int    `json:"rank"`
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
	Rating  int    `json:"rating"`
	Wins    int    `json:"wins"`
	Losses  int    `json:"losses"`
	Streak  int    `json:"streak"`
}

type LeaderboardResponse struct {
	Season *SeasonView       `json:"season"`
	Items  []LeaderboardItem `json:"leaderboard"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

type OpponentView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	RatingBefore int    `json:"rating_before"`
}

type HistoryItem struct {
	MatchID  string          `json:"match_id"`
	Day      string          `json:"day"`
	Mode     string          `json:"mode"`
	Status   string          `json:"status"`
	Headline string          `json:"headline,omitempty"`
	My       ParticipantView `json:"my"`
	Opponent *OpponentView   `json:"opponent"`
}

type HistoryResponse struct {
	History []HistoryItem `json:"history"`
}

type ModeStatView struct {
	Total   int `json:"total"`
	Wins    int `json:"wins"`
	Losses  int `json:"losses"`
	Draws   int `json:"draws"`
	WinRate int `json:"win_rate"`
}

type ModeStatsResponse struct {
	Stats map[string]ModeStatView `json:"stats"`
}

type RivalView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Matches int    `json:"matches,omitempty"`
	Losses  int    `json:"losses,omitempty"`
}

type UpsetView struct {
	MatchID        string `json:"match_id"`
	MyRating       int    `json:"my_rating"`
	OpponentRating int    `json:"opponent_rating"`
	Won            bool   `json:"won"`
}

type AgentStats struct {
	TotalMatches  int        `json:"total_matches"`
	Wins          int        `json:"wins"`
	Losses        int        `json:"losses"`
	WinRate       float64    `json:"win_rate"`
	CurrentStreak int        `json:"current_streak"`
	BestStreak    int        `json:"best_streak"`
	FavoriteMode  string     `json:"favorite_mode,omitempty"`
	Rival         *RivalView `json:"rival"`
	Nemesis       *RivalView `json:"nemesis"`
	BiggestUpset  *UpsetView `json:"biggest_upset"`
	EloHistory    []int      `json:"elo_history"`
}
