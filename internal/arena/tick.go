package arena

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"limbopet-arena/internal/arena/sim"
	"limbopet-arena/internal/store"

	"github.com/rs/zerolog/log"
)

const maxMatchesPerDay = 200

type TickOptions struct {
	Day string
	// MatchesPerDay below zero selects the configured default.
	MatchesPerDay      int
	ResolveImmediately bool
	// StaggerSeconds schedules new slot k to start (k-1)*StaggerSeconds from
	// now instead of going live at once.
	StaggerSeconds int
}

type TickResult struct {
	Day        string        `json:"day"`
	SeasonCode string        `json:"season_code,omitempty"`
	Skipped    bool          `json:"skipped"`
	Created    int           `json:"created"`
	Started    int           `json:"started"`
	Resolved   int           `json:"resolved"`
	Failed     int           `json:"failed"`
	Matches    []store.Match `json:"-"`
}

type tickState struct {
	day           string
	matchesPerDay int
	opts          TickOptions
	season        store.Season
	planner       *pairPlanner
	res           *TickResult
}

// TickDay brings the day's schedule forward: due matches resolve, scheduled
// ones go live and empty slots are paired. It is idempotent, and a tick that
// finds another one running for the same day returns with Skipped set.
func (s *Service) TickDay(ctx context.Context, opts TickOptions) (TickResult, error) {
	day := strings.TrimSpace(opts.Day)
	if day == "" {
		day = s.Today()
	} else if _, err := store.ParseDay(day); err != nil {
		return TickResult{}, ErrInvalidDay
	}
	n := opts.MatchesPerDay
	if n < 0 {
		n = s.cfg.MatchesPerDay
	}
	n = clampInt(n, 0, maxMatchesPerDay)

	res := TickResult{Day: day}
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		ok, err := q.TryAdvisoryXactLock(ctx, "arena_tick:"+day)
		if err != nil {
			return err
		}
		if !ok {
			res.Skipped = true
			return nil
		}
		// Challenges and rematches create matches under the day lock too.
		if err := q.AdvisoryXactLock(ctx, dayLockKey(day)); err != nil {
			return err
		}
		season, err := q.EnsureSeasonForDay(ctx, day)
		if err != nil {
			return fmt.Errorf("ensure season: %w", err)
		}
		res.SeasonCode = season.Code
		maxSlot, err := q.MaxSlot(ctx, day)
		if err != nil {
			return err
		}
		st := &tickState{day: day, matchesPerDay: n, opts: opts, season: season, res: &res}
		for slot := 1; slot <= max(n, maxSlot); slot++ {
			err := q.BestEffort(ctx, fmt.Sprintf("arena_tick_slot_%d", slot), func(sq *store.Queries) error {
				return s.tickSlot(ctx, sq, st, slot)
			})
			if err != nil {
				res.Failed++
				metricTickSlotErrors.Add(1)
			}
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("tick %s: %w", day, err)
	}
	metricTickTotal.Add(1)
	if res.Skipped {
		metricTickSkippedTotal.Add(1)
	}
	matches, err := s.store.ListMatchesByDay(ctx, day, maxMatchesPerDay)
	if err != nil {
		return res, fmt.Errorf("list matches: %w", err)
	}
	res.Matches = matches
	return res, nil
}

func (s *Service) tickSlot(ctx context.Context, q *store.Queries, st *tickState, slot int) error {
	m, err := q.GetMatchBySlotForUpdate(ctx, st.day, slot)
	if errors.Is(err, store.ErrNotFound) {
		if slot > st.matchesPerDay {
			return nil
		}
		return s.fillSlot(ctx, q, st, slot)
	}
	if err != nil {
		return err
	}
	now := s.clock()
	switch m.Status {
	case store.MatchScheduled:
		if !st.opts.ResolveImmediately && m.Meta.StartsAt != nil && m.Meta.StartsAt.After(now) {
			return nil
		}
		if err := s.goLive(ctx, q, m); err != nil {
			return err
		}
		st.res.Started++
		if !st.opts.ResolveImmediately {
			return nil
		}
	case store.MatchLive:
		if !st.opts.ResolveImmediately && m.Meta.Live.Open(now) {
			return nil
		}
	default:
		return nil
	}
	if err := s.resolveLocked(ctx, q, m); err != nil {
		return err
	}
	st.res.Resolved++
	return nil
}

func (s *Service) fillSlot(ctx context.Context, q *store.Queries, st *tickState, slot int) error {
	if st.planner == nil {
		p, err := loadPairPlanner(ctx, q, st.season, st.day)
		if err != nil {
			return err
		}
		st.planner = p
	}
	a, b, ok := st.planner.next(slot)
	if !ok {
		return nil
	}
	mode := sim.PickMode(fmt.Sprintf("%s:%d:%s", st.day, slot, store.PairKey(a.agent.ID, b.agent.ID)), s.cfg.ModeWeights)
	p := newMatchParams{
		Season:  st.season,
		Day:     st.day,
		Slot:    slot,
		Mode:    mode,
		Origin:  store.OriginTick,
		A:       &a.agent,
		B:       &b.agent,
		ARating: a.rating,
		BRating: b.rating,
	}
	if st.opts.StaggerSeconds > 0 && !st.opts.ResolveImmediately && slot > 1 {
		at := s.clock().Add(time.Duration((slot-1)*st.opts.StaggerSeconds) * time.Second)
		p.StartsAt = &at
	}
	m, err := s.createMatch(ctx, q, p)
	if err != nil {
		return err
	}
	st.planner.commit(a, b)
	st.res.Created++
	if !st.opts.ResolveImmediately {
		return nil
	}
	if err := s.resolveLocked(ctx, q, m); err != nil {
		return err
	}
	st.res.Resolved++
	return nil
}

// RunPoller ticks today's schedule every interval until ctx is done.
func (s *Service) RunPoller(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = s.cfg.TickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	res, err := s.TickDay(ctx, TickOptions{MatchesPerDay: -1})
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("arena tick failed")
		}
		return
	}
	if res.Created+res.Started+res.Resolved+res.Failed == 0 {
		return
	}
	log.Info().
		Str("day", res.Day).
		Int("created", res.Created).
		Int("started", res.Started).
		Int("resolved", res.Resolved).
		Int("failed", res.Failed).
		Msg("arena tick")
}
