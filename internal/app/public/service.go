package public

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"limbopet-arena/internal/store"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	leaderboardMaxRows = 200
	todayMaxMatches    = 50
	historyMaxRows     = 100
	statsHistoryRows   = 500
	eloHistoryRows     = 20
)

// Resolver settles a live match whose window has closed and returns the
// match as it stands afterwards.
type Resolver interface {
	ResolveIfDue(ctx context.Context, matchID string) (*store.Match, bool, error)
}

type Service struct {
	store    *store.Store
	resolver Resolver
	flight   singleflight.Group
	now      func() time.Time
}

func NewService(st *store.Store, resolver Resolver) *Service {
	return &Service{store: st, resolver: resolver, now: time.Now}
}

func (s *Service) day(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return store.Today(s.now()), nil
	}
	if _, err := store.ParseDay(raw); err != nil {
		return "", ErrInvalidDay
	}
	return raw, nil
}

// Today lists the day's matches and, when agentID is set, that agent's
// season standing. Agents without a rating row see the default.
func (s *Service) Today(ctx context.Context, day string, limit int, agentID string) (*TodayResponse, error) {
	day, err := s.day(day)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit, 20, todayMaxMatches)
	season, err := s.season(ctx, day)
	if err != nil {
		return nil, err
	}
	resp := &TodayResponse{Day: day, Season: seasonView(season), Matches: []MatchView{}}
	if agentID != "" {
		r := store.Rating{SeasonID: season.ID, AgentID: agentID, Rating: store.DefaultRating}
		if season.ID != "" {
			if r, err = s.store.GetRating(ctx, season.ID, agentID); err != nil {
				return nil, err
			}
		}
		resp.My = ratingView(r)
	}
	matches, err := s.store.ListMatchesByDay(ctx, day, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	parts, err := s.store.ListParticipantsByMatches(ctx, ids)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range matches {
		resp.Matches = append(resp.Matches, matchView(&matches[i], parts[matches[i].ID], now))
	}
	return resp, nil
}

// season looks up the season covering day without creating it. A week the
// tick has not reached yet comes back with an empty ID.
func (s *Service) season(ctx context.Context, day string) (store.Season, error) {
	code, startsOn, endsOn, err := store.SeasonWindow(day)
	if err != nil {
		return store.Season{}, ErrInvalidDay
	}
	season, err := s.store.GetSeasonByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return store.Season{Code: code, StartsOn: startsOn, EndsOn: endsOn}, nil
	}
	return season, err
}

// Leaderboard pages through the top of the season table for day.
func (s *Service) Leaderboard(ctx context.Context, day string, limit, offset int) (*LeaderboardResponse, error) {
	day, err := s.day(day)
	if err != nil {
		return nil, err
	}
	season, err := s.season(ctx, day)
	if err != nil {
		return nil, err
	}
	var all []store.LeaderboardEntry
	if season.ID != "" {
		if all, err = s.store.ListLeaderboard(ctx, season.ID, leaderboardMaxRows); err != nil {
			return nil, err
		}
	}
	total := len(all)
	limit, ok := clampLeaderboardPage(limit, offset)
	resp := &LeaderboardResponse{Season: seasonView(season), Items: []LeaderboardItem{}, Total: total, Limit: limit, Offset: offset}
	if !ok || offset < 0 || offset >= total {
		return resp, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	for idx, it := range all[offset:end] {
		resp.Items = append(resp.Items, LeaderboardItem{
			Rank:    offset + idx + 1,
			AgentID: it.AgentID,
			Name:    it.Name,
			Rating:  it.Rating,
			Wins:    it.Wins,
			Losses:  it.Losses,
			Streak:  it.Streak,
		})
	}
	return resp, nil
}

func (s *Service) History(ctx context.Context, agentID string, limit int) (*HistoryResponse, error) {
	if agentID == "" {
		return nil, ErrInvalidRequest
	}
	items, err := s.store.ListAgentHistory(ctx, agentID, clampLimit(limit, 20, historyMaxRows))
	if err != nil {
		return nil, err
	}
	out := make([]HistoryItem, 0, len(items))
	for _, h := range items {
		it := HistoryItem{
			MatchID:  h.MatchID,
			Day:      h.Day,
			Mode:     string(h.Mode),
			Status:   string(h.Status),
			Headline: h.Headline,
			My:       participantView(h.Participant, ""),
		}
		if h.OpponentID != "" {
			it.Opponent = &OpponentView{ID: h.OpponentID, Name: h.OpponentName, RatingBefore: h.OpponentRatingBefore}
		}
		out = append(out, it)
	}
	return &HistoryResponse{History: out}, nil
}

// ModeStats aggregates resolved matches per mode. WinRate is a whole
// percentage.
func (s *Service) ModeStats(ctx context.Context, agentID string) (*ModeStatsResponse, error) {
	if agentID == "" {
		return nil, ErrInvalidRequest
	}
	rows, err := s.store.ListModeStats(ctx, agentID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]ModeStatView, len(rows))
	for _, r := range rows {
		v := ModeStatView{Total: r.Total, Wins: r.Wins, Losses: r.Losses, Draws: r.Draws}
		if r.Total > 0 {
			v.WinRate = int(math.Round(float64(r.Wins) / float64(r.Total) * 100))
		}
		out[string(r.Mode)] = v
	}
	return &ModeStatsResponse{Stats: out}, nil
}

func (s *Service) Stats(ctx context.Context, agentID string) (*AgentStats, error) {
	if agentID == "" {
		return nil, ErrInvalidRequest
	}
	items, err := s.store.ListAgentHistory(ctx, agentID, statsHistoryRows)
	if err != nil {
		return nil, err
	}
	return computeStats(items), nil
}

// MatchDetail loads one match, resolving it first when its live window has
// closed. Concurrent readers of the same match share one resolution attempt.
// A failed resolution is left for the next tick or read; the match is then
// shown as it stands, in the judging phase.
func (s *Service) MatchDetail(ctx context.Context, matchID string) (*MatchDetail, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, ErrInvalidRequest
	}
	v, err, _ := s.flight.Do(matchID, func() (any, error) {
		m, _, err := s.resolver.ResolveIfDue(ctx, matchID)
		return m, err
	})
	var m *store.Match
	if err == nil {
		m = v.(*store.Match)
	} else {
		cur, getErr := s.store.GetMatch(ctx, matchID)
		if getErr != nil {
			return nil, err
		}
		log.Warn().Err(err).Str("match_id", matchID).Msg("lazy resolve failed")
		m = cur
	}
	parts, err := s.store.ListParticipants(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	out := &MatchDetail{MatchView: matchView(m, parts, s.now()), Votes: m.Meta.Tally()}
	if m.Meta.RecapPostID != "" {
		post, err := s.store.GetRecapPostByMatch(ctx, m.ID)
		switch {
		case err == nil:
			out.Recap = &RecapView{ID: post.ID, Title: post.Title, Body: post.Body, CreatedAt: post.CreatedAt}
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
	}
	return out, nil
}

func matchView(m *store.Match, parts []store.Participant, now time.Time) MatchView {
	label := m.Meta.ModeLabel
	if label == "" {
		label = m.Mode.Label()
	}
	v := MatchView{
		ID:           m.ID,
		Day:          m.Day,
		Slot:         m.Slot,
		Mode:         string(m.Mode),
		ModeLabel:    label,
		Status:       string(m.Status),
		Phase:        matchPhase(m, now),
		Headline:     m.Meta.Headline,
		Meta:         m.Meta,
		Participants: make([]ParticipantView, 0, len(parts)),
	}
	v.Meta.Votes = nil
	for _, p := range parts {
		v.Participants = append(v.Participants, participantView(p, castName(m.Meta.Cast, p.AgentID)))
	}
	return v
}

// matchPhase tells a live match still taking interactions apart from one
// whose window has passed and is waiting on resolution.
func matchPhase(m *store.Match, now time.Time) string {
	switch m.Status {
	case store.MatchScheduled:
		return PhasePreLive
	case store.MatchLive:
		if m.Meta.Live.Open(now) {
			return PhaseLive
		}
		return PhaseJudging
	}
	return PhaseFinal
}

func castName(c *store.CastInfo, agentID string) string {
	switch c.SideOf(agentID) {
	case "a":
		return c.AName
	case "b":
		return c.BName
	}
	return ""
}

func participantView(p store.Participant, name string) ParticipantView {
	return ParticipantView{
		AgentID:      p.AgentID,
		Name:         name,
		Score:        float64(p.Score) / 10,
		Outcome:      p.Outcome,
		Wager:        p.Wager,
		FeeBurned:    p.FeeBurned,
		CoinsNet:     p.CoinsNet,
		RatingBefore: p.RatingBefore,
		RatingAfter:  p.RatingAfter,
		RatingDelta:  p.RatingDelta,
	}
}

func seasonView(s store.Season) *SeasonView {
	return &SeasonView{ID: s.ID, Code: s.Code, StartsOn: s.StartsOn, EndsOn: s.EndsOn}
}

func ratingView(r store.Rating) *RatingView {
	v := &RatingView{Rating: r.Rating, Wins: r.Wins, Losses: r.Losses, Streak: r.Streak}
	if r.Persisted {
		at := r.UpdatedAt
		v.UpdatedAt = &at
	}
	return v
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func clampLeaderboardPage(limit, offset int) (int, bool) {
	if offset >= leaderboardMaxRows {
		return 0, false
	}
	if limit <= 0 {
		limit = 50
	}
	remaining := leaderboardMaxRows - offset
	if limit > remaining {
		limit = remaining
	}
	return limit, true
}

// computeStats summarises newest-first participations.
func computeStats(items []store.HistoryItem) *AgentStats {
	st := &AgentStats{TotalMatches: len(items), EloHistory: []int{}}
	isWin := func(o string) bool { return o == store.OutcomeWin }
	isLoss := func(o string) bool { return o == store.OutcomeLose || o == store.OutcomeForfeit }

	for _, h := range items {
		switch {
		case isWin(h.Outcome):
			st.Wins++
		case isLoss(h.Outcome):
			st.Losses++
		}
	}
	if st.TotalMatches > 0 {
		st.WinRate = math.Round(float64(st.Wins)/float64(st.TotalMatches)*1000) / 1000
	}

	for _, h := range items {
		if isWin(h.Outcome) {
			if st.CurrentStreak < 0 {
				break
			}
			st.CurrentStreak++
		} else if isLoss(h.Outcome) {
			if st.CurrentStreak > 0 {
				break
			}
			st.CurrentStreak--
		} else {
			break
		}
	}

	run := 0
	for i := len(items) - 1; i >= 0; i-- {
		if isWin(items[i].Outcome) {
			run++
			if run > st.BestStreak {
				st.BestStreak = run
			}
		} else {
			run = 0
		}
	}

	modes := map[string]int{}
	rivals := map[string]*RivalView{}
	nemeses := map[string]*RivalView{}
	bestSwing := 0
	for _, h := range items {
		if m := strings.ToLower(string(h.Mode)); m != "" {
			modes[m]++
		}
		if h.OpponentID != "" {
			r := rivals[h.OpponentID]
			if r == nil {
				r = &RivalView{ID: h.OpponentID, Name: h.OpponentName}
				rivals[h.OpponentID] = r
			}
			r.Matches++
			if isLoss(h.Outcome) {
				n := nemeses[h.OpponentID]
				if n == nil {
					n = &RivalView{ID: h.OpponentID, Name: h.OpponentName}
					nemeses[h.OpponentID] = n
				}
				n.Losses++
			}
		}
		mine, theirs := ratingOr(h.RatingBefore), ratingOr(h.OpponentRatingBefore)
		won := isWin(h.Outcome)
		swing := 0
		if won {
			swing = theirs - mine
		} else if isLoss(h.Outcome) {
			swing = mine - theirs
		}
		if swing > bestSwing {
			bestSwing = swing
			st.BiggestUpset = &UpsetView{MatchID: h.MatchID, MyRating: mine, OpponentRating: theirs, Won: won}
		}
	}
	st.FavoriteMode = topKey(modes)
	st.Rival = topRival(rivals, func(r *RivalView) int { return r.Matches })
	st.Nemesis = topRival(nemeses, func(r *RivalView) int { return r.Losses })

	n := len(items)
	if n > eloHistoryRows {
		n = eloHistoryRows
	}
	for i := n - 1; i >= 0; i-- {
		st.EloHistory = append(st.EloHistory, ratingOr(items[i].RatingAfter))
	}
	return st
}

func ratingOr(r int) int {
	if r <= 0 {
		return store.DefaultRating
	}
	return r
}

func topKey(counts map[string]int) string {
	best, bestN := "", 0
	for k, n := range counts {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best
}

func topRival(m map[string]*RivalView, weight func(*RivalView) int) *RivalView {
	if len(m) == 0 {
		return nil
	}
	list := make([]*RivalView, 0, len(m))
	for _, r := range m {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		if wi, wj := weight(list[i]), weight(list[j]); wi != wj {
			return wi > wj
		}
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return list[0]
}
