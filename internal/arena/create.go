package arena

import (
	"context"
	"fmt"
	"time"

	"limbopet-arena/internal/arena/sim"
	"limbopet-arena/internal/ledger"
	"limbopet-arena/internal/store"
)

const TagRematch = "rematch"

type newMatchParams struct {
	Season   store.Season
	Day      string
	Slot     int
	Mode     sim.Mode
	Origin   string
	A        *store.Agent
	B        *store.Agent
	ARating  int
	BRating  int
	Revenge  bool
	Rematch  *store.RematchInfo
	StartsAt *time.Time
}

func matchSeed(p newMatchParams) string {
	return fmt.Sprintf("%s:%s:%s:%d:%s:%s", p.Origin, p.Season.Code, p.Day, p.Slot, p.A.ID, p.B.ID)
}

func (s *Service) liveWindow(now time.Time) *store.LiveInfo {
	return &store.LiveInfo{
		StartedAt:     now,
		EndsAt:        now.Add(s.cfg.LiveWindow()),
		WindowSeconds: s.cfg.LiveWindowSeconds,
	}
}

// createMatch inserts a live match, or a scheduled one when StartsAt lies in
// the future, with its stake plan and pairing snapshot.
func (s *Service) createMatch(ctx context.Context, q *store.Queries, p newMatchParams) (*store.Match, error) {
	now := s.clock()
	seed := matchSeed(p)
	plan := ledger.PlanStake(seed, p.Revenge)
	meta := store.MatchMeta{
		Origin:    p.Origin,
		ModeLabel: p.Mode.Label(),
		Headline:  fmt.Sprintf("%s: %s vs %s", p.Mode.Label(), p.A.Name, p.B.Name),
		Cast:      &store.CastInfo{AID: p.A.ID, BID: p.B.ID, AName: p.A.Name, BName: p.B.Name},
		Stake:     &store.StakeInfo{Wager: plan.Wager, FeePlan: plan.FeePlan, FeePct: plan.FeePct},
		Snapshot: &store.Snapshot{
			Season: p.Season.Code,
			A:      store.SideSnapshot{RatingBefore: p.ARating, Stats: p.A.Stats, JobCode: p.A.JobCode},
			B:      store.SideSnapshot{RatingBefore: p.BRating, Stats: p.B.Stats, JobCode: p.B.JobCode},
		},
		Rematch: p.Rematch,
	}
	if p.Origin == store.OriginRematch {
		meta.AddTag(TagRematch)
	}
	status := store.MatchLive
	if p.StartsAt != nil && p.StartsAt.After(now) {
		status = store.MatchScheduled
		meta.StartsAt = p.StartsAt
	} else {
		meta.Live = s.liveWindow(now)
	}
	m, err := q.CreateMatch(ctx, store.NewMatch{
		SeasonID: p.Season.ID,
		Day:      p.Day,
		Slot:     p.Slot,
		Mode:     p.Mode,
		Status:   status,
		Seed:     seed,
		Meta:     meta,
	})
	if err != nil {
		return nil, fmt.Errorf("create match slot %d: %w", p.Slot, err)
	}
	if _, err := q.InsertOutboxEvent(ctx, AggregateMatch, m.ID, EventMatchCreated, matchEvent(m)); err != nil {
		return nil, dependency("outbox "+EventMatchCreated, err)
	}
	metricMatchCreatedTotal.Add(1)
	return m, nil
}

// goLive opens the live window of a scheduled match.
func (s *Service) goLive(ctx context.Context, q *store.Queries, m *store.Match) error {
	m.Status = store.MatchLive
	m.Meta.StartsAt = nil
	m.Meta.Live = s.liveWindow(s.clock())
	return q.UpdateMatch(ctx, m)
}
