package arena

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"limbopet-arena/internal/arena/sim"
	"limbopet-arena/internal/ledger"
	"limbopet-arena/internal/store"
)

const (
	rematchWindow     = 24 * time.Hour
	revengeFactTTL    = 14 * 24 * time.Hour
	challengePoolSize = 500
)

type ChallengeResult struct {
	Already bool         `json:"already"`
	MatchID string       `json:"match_id"`
	Match   *store.Match `json:"-"`
}

type RematchResult struct {
	Already bool         `json:"already"`
	MatchID string       `json:"match_id"`
	FeePaid int64        `json:"fee_paid"`
	Match   *store.Match `json:"-"`
}

type rematchRequest struct {
	MatchID   string    `json:"match_id"`
	CreatedAt time.Time `json:"created_at"`
}

type revengeMarker struct {
	SourceMatchID      string    `json:"source_match_id"`
	MatchID            string    `json:"match_id"`
	EloBonusMultiplier float64   `json:"elo_bonus_multiplier"`
	ManualRematch      bool      `json:"manual_rematch"`
	ExpiresAt          time.Time `json:"expires_at"`
}

func dayLockKey(day string) string {
	return "arena:" + day
}

// challengeModeSeed picks the mode of a mode-less challenge. It is fixed per
// agent and day so a retried request finds the match it already created.
func challengeModeSeed(agentID, day string) string {
	return "challenge:" + agentID + ":" + day
}

// CreateChallengeMatch starts a live match for agentID against the closest
// rated free agent. An active match for the same day and mode is returned
// with Already set instead of creating a second one.
func (s *Service) CreateChallengeMatch(ctx context.Context, agentID, mode, day string) (ChallengeResult, error) {
	day = strings.TrimSpace(day)
	if day == "" {
		day = s.Today()
	} else if _, err := store.ParseDay(day); err != nil {
		return ChallengeResult{}, ErrInvalidDay
	}
	var m sim.Mode
	if strings.TrimSpace(mode) != "" {
		parsed, ok := sim.ParseMode(mode)
		if !ok {
			return ChallengeResult{}, ErrInvalidMode
		}
		m = parsed
	}

	var res ChallengeResult
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		if err := q.AdvisoryXactLock(ctx, dayLockKey(day)); err != nil {
			return err
		}
		me, err := q.GetAgentByID(ctx, agentID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAgentNotFound
		}
		if err != nil {
			return err
		}
		if !me.Active() {
			return ErrAgentInactive
		}
		slot, err := q.MaxSlot(ctx, day)
		if err != nil {
			return err
		}
		slot++
		if m == "" {
			m = sim.PickMode(challengeModeSeed(agentID, day), s.cfg.ModeWeights)
		}
		existing, err := q.FindActiveMatchForAgent(ctx, day, m, agentID)
		if err == nil {
			res = ChallengeResult{Already: true, MatchID: existing.ID, Match: existing}
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		season, err := q.EnsureSeasonForDay(ctx, day)
		if err != nil {
			return fmt.Errorf("ensure season: %w", err)
		}
		opp, myRating, oppRating, err := closestOpponent(ctx, q, season, day, me)
		if err != nil {
			return err
		}
		created, err := s.createMatch(ctx, q, newMatchParams{
			Season:  season,
			Day:     day,
			Slot:    slot,
			Mode:    m,
			Origin:  store.OriginChallenge,
			A:       me,
			B:       opp,
			ARating: myRating,
			BRating: oppRating,
		})
		if err != nil {
			return err
		}
		res = ChallengeResult{MatchID: created.ID, Match: created}
		return nil
	})
	if err != nil {
		return ChallengeResult{}, err
	}
	return res, nil
}

// closestOpponent picks the active agent with no live or scheduled match
// today whose rating is nearest to me; ties go to the lower id.
func closestOpponent(ctx context.Context, q *store.Queries, season store.Season, day string, me *store.Agent) (*store.Agent, int, int, error) {
	busy, err := q.ListBusyAgentIDs(ctx, day)
	if err != nil {
		return nil, 0, 0, err
	}
	agents, err := q.ListActiveAgents(ctx, challengePoolSize)
	if err != nil {
		return nil, 0, 0, err
	}
	ids := make([]string, 0, len(agents)+1)
	ids = append(ids, me.ID)
	for _, a := range agents {
		ids = append(ids, a.ID)
	}
	ratings, err := q.RatingsForAgents(ctx, season.ID, ids)
	if err != nil {
		return nil, 0, 0, err
	}
	mine := ratingOr(ratings, me.ID)
	pool := make([]store.Agent, 0, len(agents))
	for _, a := range agents {
		if a.ID == me.ID || busy[a.ID] {
			continue
		}
		pool = append(pool, a)
	}
	if len(pool) == 0 {
		return nil, 0, 0, ErrNoOpponent
	}
	sort.Slice(pool, func(i, j int) bool {
		di := absInt(ratingOr(ratings, pool[i].ID) - mine)
		dj := absInt(ratingOr(ratings, pool[j].ID) - mine)
		if di != dj {
			return di < dj
		}
		return pool[i].ID < pool[j].ID
	})
	opp := pool[0]
	return &opp, mine, ratingOr(ratings, opp.ID), nil
}

func ratingOr(ratings map[string]store.Rating, id string) int {
	if r, ok := ratings[id]; ok {
		return r.Rating
	}
	return store.DefaultRating
}

// RequestRematch lets the loser of a resolved match pay a fee for a revenge
// match against the same opponent in the same mode. Repeat requests for the
// same source match return the first rematch.
func (s *Service) RequestRematch(ctx context.Context, agentID, matchID string) (RematchResult, error) {
	var res RematchResult
	now := s.clock()
	day := store.Today(now)
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		// The day lock comes before any match row lock, the same order TickDay uses.
		if err := q.AdvisoryXactLock(ctx, dayLockKey(day)); err != nil {
			return err
		}
		src, err := lockMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		if src.Status != store.MatchResolved || src.Meta.Result == nil {
			return ErrMatchNotResolved
		}
		result := src.Meta.Result
		if result.LoserID != agentID {
			return ErrNotLoser
		}
		resolvedAt := result.ResolvedAt
		if resolvedAt.IsZero() {
			resolvedAt = src.UpdatedAt
		}
		if now.Sub(resolvedAt) > rematchWindow {
			return ErrWindowExpired
		}

		prior, err := q.GetFact(ctx, agentID, store.FactKindArena, store.RematchReqKey(src.ID))
		if err == nil {
			var v rematchRequest
			if json.Unmarshal(prior.Value, &v) == nil && v.MatchID != "" {
				res = RematchResult{Already: true, MatchID: v.MatchID}
				return nil
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		agents, err := q.GetAgentsByIDs(ctx, []string{agentID, result.WinnerID})
		if err != nil {
			return err
		}
		me, opp := agents[agentID], agents[result.WinnerID]
		if me == nil || opp == nil {
			return ErrAgentNotFound
		}
		if !me.Active() || !opp.Active() {
			return ErrAgentInactive
		}
		if existing, err := q.FindActiveMatchForAgent(ctx, day, src.Mode, agentID); err == nil {
			res = RematchResult{Already: true, MatchID: existing.ID, Match: existing}
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		fee := s.cfg.RematchFee
		if err := ledger.BurnRematchFee(ctx, q, agentID, src.ID, fee); err != nil {
			if errors.Is(err, ledger.ErrInsufficientFunds) {
				return ErrInsufficientFunds
			}
			return dependency("rematch fee", err)
		}

		season, err := q.EnsureSeasonForDay(ctx, day)
		if err != nil {
			return fmt.Errorf("ensure season: %w", err)
		}
		ratings, err := q.RatingsForAgents(ctx, season.ID, []string{me.ID, opp.ID})
		if err != nil {
			return err
		}
		slot, err := q.MaxSlot(ctx, day)
		if err != nil {
			return err
		}
		created, err := s.createMatch(ctx, q, newMatchParams{
			Season:  season,
			Day:     day,
			Slot:    slot + 1,
			Mode:    src.Mode,
			Origin:  store.OriginRematch,
			A:       me,
			B:       opp,
			ARating: ratingOr(ratings, me.ID),
			BRating: ratingOr(ratings, opp.ID),
			Revenge: true,
			Rematch: &store.RematchInfo{
				SourceMatchID:      src.ID,
				RequestedBy:        agentID,
				EloBonusMultiplier: RematchEloBonus,
				FeePaid:            fee,
			},
		})
		if err != nil {
			return err
		}
		if _, err := q.InsertFactIfAbsent(ctx, agentID, store.FactKindArena, store.RematchReqKey(src.ID),
			rematchRequest{MatchID: created.ID, CreatedAt: now}, 1); err != nil {
			return err
		}
		if err := q.UpsertFact(ctx, agentID, store.FactKindArena, store.RevengeKey(opp.ID), revengeMarker{
			SourceMatchID:      src.ID,
			MatchID:            created.ID,
			EloBonusMultiplier: RematchEloBonus,
			ManualRematch:      true,
			ExpiresAt:          now.Add(revengeFactTTL),
		}, 1); err != nil {
			return err
		}
		res = RematchResult{MatchID: created.ID, FeePaid: fee, Match: created}
		return nil
	})
	if err != nil {
		return RematchResult{}, err
	}
	if !res.Already {
		metricRematchTotal.Add(1)
	}
	return res, nil
}
