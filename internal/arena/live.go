package arena

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"limbopet-arena/internal/arena/sim"
	"limbopet-arena/internal/store"
)

const (
	maxCheerRunes    = 140
	maxCheerMessages = 8
	TagBestCheer     = "best cheer"
)

type InterveneResult struct {
	OK      bool      `json:"ok"`
	Cleared bool      `json:"cleared,omitempty"`
	Action  string    `json:"action"`
	Boosts  sim.Hints `json:"boosts"`
	EndsAt  time.Time `json:"ends_at"`
}

type interventionValue struct {
	MatchID   string    `json:"match_id"`
	Action    string    `json:"action"`
	Boosts    sim.Hints `json:"boosts"`
	CreatedAt time.Time `json:"created_at"`
}

type PredictResult struct {
	OK            bool      `json:"ok"`
	Pick          string    `json:"pick"`
	PickedAgentID string    `json:"picked_agent_id"`
	EndsAt        time.Time `json:"ends_at"`
}

type predictionValue struct {
	MatchID       string    `json:"match_id"`
	Pick          string    `json:"pick"`
	PickedAgentID string    `json:"picked_agent_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type CheerResult struct {
	OK      bool                `json:"ok"`
	Side    string              `json:"side"`
	Message string              `json:"message,omitempty"`
	Cheer   *store.CheerSummary `json:"cheer"`
	EndsAt  time.Time           `json:"ends_at"`
}

type VoteResult struct {
	MatchID string          `json:"match_id"`
	MyVote  string          `json:"my_vote"`
	Result  store.VoteTally `json:"result"`
}

func lockMatch(ctx context.Context, q *store.Queries, matchID string) (*store.Match, error) {
	m, err := q.GetMatchForUpdate(ctx, matchID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrMatchNotFound
	}
	return m, err
}

// lockLive locks the match and re-checks the live window under the lock.
func (s *Service) lockLive(ctx context.Context, q *store.Queries, matchID string) (*store.Match, error) {
	m, err := lockMatch(ctx, q, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != store.MatchLive || !m.Meta.Live.Open(s.clock()) {
		return nil, ErrMatchNotLive
	}
	return m, nil
}

// Intervene records a cast member's coaching action for the running match.
// The latest action wins; "clear" removes it.
func (s *Service) Intervene(ctx context.Context, matchID, agentID, action string) (InterveneResult, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	boosts, ok := sim.InterventionBoosts(action)
	if !ok {
		return InterveneResult{}, ErrInvalidAction
	}
	var res InterveneResult
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		m, err := s.lockLive(ctx, q, matchID)
		if err != nil {
			return err
		}
		if !m.Meta.Cast.Has(agentID) {
			return ErrNotParticipant
		}
		key := store.InterveneKey(m.ID)
		res = InterveneResult{OK: true, Action: action, Boosts: boosts, EndsAt: m.Meta.Live.EndsAt}
		if action == sim.ActionClear {
			res.Cleared = true
			_, err := q.DeleteFact(ctx, agentID, store.FactKindArenaLive, key)
			return err
		}
		return q.UpsertFact(ctx, agentID, store.FactKindArenaLive, key, interventionValue{
			MatchID:   m.ID,
			Action:    action,
			Boosts:    boosts,
			CreatedAt: s.clock(),
		}, 1)
	})
	if err != nil {
		return InterveneResult{}, err
	}
	metricInterventionTotal.Add(1)
	return res, nil
}

// Predict stores the agent's pick for the winner. Any agent may predict.
func (s *Service) Predict(ctx context.Context, matchID, agentID, pick string) (PredictResult, error) {
	side, ok := sim.ParseSide(strings.ToLower(strings.TrimSpace(pick)))
	if !ok {
		return PredictResult{}, ErrInvalidPick
	}
	var res PredictResult
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		m, err := s.lockLive(ctx, q, matchID)
		if err != nil {
			return err
		}
		picked := castID(m.Meta.Cast, side)
		res = PredictResult{OK: true, Pick: string(side), PickedAgentID: picked, EndsAt: m.Meta.Live.EndsAt}
		return q.UpsertFact(ctx, agentID, store.FactKindArenaPred, store.PredictKey(m.ID), predictionValue{
			MatchID:       m.ID,
			Pick:          string(side),
			PickedAgentID: picked,
			CreatedAt:     s.clock(),
		}, 1)
	})
	if err != nil {
		return PredictResult{}, err
	}
	metricPredictionTotal.Add(1)
	return res, nil
}

// Cheer upserts one cheer per agent and recomputes the aggregate from the full set.
func (s *Service) Cheer(ctx context.Context, matchID, agentID, side, message string) (CheerResult, error) {
	sd, ok := sim.ParseSide(strings.ToLower(strings.TrimSpace(side)))
	if !ok {
		return CheerResult{}, ErrInvalidSide
	}
	message = trimRunes(strings.TrimSpace(message), maxCheerRunes)
	var res CheerResult
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		m, err := s.lockLive(ctx, q, matchID)
		if err != nil {
			return err
		}
		if err := q.UpsertCheer(ctx, store.Cheer{
			MatchID: m.ID,
			AgentID: agentID,
			Side:    string(sd),
			Message: message,
			Source:  store.CheerSourceUser,
		}); err != nil {
			return err
		}
		cheers, err := q.ListCheers(ctx, m.ID)
		if err != nil {
			return err
		}
		summary := aggregateCheers(cheers, s.clock())
		m.Meta.Cheer = &summary
		if summary.BestCheer != nil {
			m.Meta.AddTag(TagBestCheer)
		}
		if err := q.UpdateMatchMeta(ctx, m.ID, m.Meta); err != nil {
			return err
		}
		res = CheerResult{OK: true, Side: string(sd), Message: message, Cheer: &summary, EndsAt: m.Meta.Live.EndsAt}
		return nil
	})
	if err != nil {
		return CheerResult{}, err
	}
	metricCheerTotal.Add(1)
	return res, nil
}

// Vote records a fair/unfair ballot on a resolved match, one per voter.
func (s *Service) Vote(ctx context.Context, matchID, voterID, vote string) (VoteResult, error) {
	vote = strings.ToLower(strings.TrimSpace(vote))
	if vote != "fair" && vote != "unfair" {
		return VoteResult{}, ErrBadVote
	}
	var res VoteResult
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		m, err := lockMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		if m.Status != store.MatchResolved {
			return ErrMatchNotResolved
		}
		if _, voted := m.Meta.VoteOf(voterID); voted {
			return ErrAlreadyVoted
		}
		m.Meta.Votes = append(m.Meta.Votes, store.Vote{VoterID: voterID, Vote: vote, CreatedAt: s.clock()})
		if err := q.UpdateMatchMeta(ctx, m.ID, m.Meta); err != nil {
			return err
		}
		res = VoteResult{MatchID: m.ID, MyVote: vote, Result: m.Meta.Tally()}
		return nil
	})
	if err != nil {
		return VoteResult{}, err
	}
	metricVoteTotal.Add(1)
	return res, nil
}

type cheerGroup struct {
	msg    store.CheerMessage
	latest time.Time
}

// aggregateCheers counts cheers per side and groups identical messages. The
// best cheer is the most repeated message with at least two voices; ties go
// to the most recent.
func aggregateCheers(cheers []store.Cheer, now time.Time) store.CheerSummary {
	out := store.CheerSummary{Messages: []store.CheerMessage{}, UpdatedAt: now}
	groups := map[string]*cheerGroup{}
	for _, c := range cheers {
		switch c.Side {
		case string(sim.SideA):
			out.ACount++
		case string(sim.SideB):
			out.BCount++
		default:
			continue
		}
		text := strings.TrimSpace(c.Message)
		if text == "" {
			continue
		}
		key := c.Side + "\x00" + text
		g, ok := groups[key]
		if !ok {
			g = &cheerGroup{msg: store.CheerMessage{Side: c.Side, Text: text}}
			groups[key] = g
		}
		g.msg.Count++
		if c.UpdatedAt.After(g.latest) {
			g.latest = c.UpdatedAt
		}
	}
	list := make([]*cheerGroup, 0, len(groups))
	for _, g := range groups {
		list = append(list, g)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].msg.Count != list[j].msg.Count {
			return list[i].msg.Count > list[j].msg.Count
		}
		if !list[i].latest.Equal(list[j].latest) {
			return list[i].latest.After(list[j].latest)
		}
		if list[i].msg.Text != list[j].msg.Text {
			return list[i].msg.Text < list[j].msg.Text
		}
		return list[i].msg.Side < list[j].msg.Side
	})
	for i, g := range list {
		if i == maxCheerMessages {
			break
		}
		out.Messages = append(out.Messages, g.msg)
	}
	if len(list) > 0 && list[0].msg.Count >= 2 {
		best := list[0].msg
		out.BestCheer = &best
	}
	return out
}

func castID(c *store.CastInfo, side sim.Side) string {
	if c == nil {
		return ""
	}
	if side == sim.SideA {
		return c.AID
	}
	return c.BID
}

func trimRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
