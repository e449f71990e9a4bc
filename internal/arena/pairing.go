package arena

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"limbopet-arena/internal/arena/sim"
	"limbopet-arena/internal/store"
)

const (
	recentPairDays    = 3
	recentPairPenalty = 150
	pairJitterMax     = 40
	pairPoolLimit     = 500
)

type candidate struct {
	agent  store.Agent
	rating int
}

// pairPlanner hands out tick pairings for one day. Each agent plays at most
// once per day from the tick, and pairs that met today are never repeated.
type pairPlanner struct {
	day       string
	pool      []candidate
	exposures map[string]int
	busy      map[string]bool
	today     map[string]bool
	recent    map[string]string
}

func loadPairPlanner(ctx context.Context, q *store.Queries, season store.Season, day string) (*pairPlanner, error) {
	agents, err := q.ListActiveAgents(ctx, pairPoolLimit)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	ids := make([]string, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
	}
	ratings, err := q.RatingsForAgents(ctx, season.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("ratings: %w", err)
	}
	exposures, err := q.CountExposures(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("exposures: %w", err)
	}
	busy, err := q.ListBusyAgentIDs(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("busy agents: %w", err)
	}
	since, err := shiftDay(day, -recentPairDays)
	if err != nil {
		return nil, err
	}
	pairs, err := q.ListPairsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("recent pairs: %w", err)
	}
	p := &pairPlanner{
		day:       day,
		exposures: exposures,
		busy:      busy,
		today:     map[string]bool{},
		recent:    map[string]string{},
	}
	for k, d := range pairs {
		if d == day {
			p.today[k] = true
		} else {
			p.recent[k] = d
		}
	}
	for _, a := range agents {
		r := store.DefaultRating
		if rt, ok := ratings[a.ID]; ok {
			r = rt.Rating
		}
		p.pool = append(p.pool, candidate{agent: a, rating: r})
	}
	return p, nil
}

func (p *pairPlanner) eligible() []candidate {
	out := make([]candidate, 0, len(p.pool))
	for _, c := range p.pool {
		if p.exposures[c.agent.ID] > 0 || p.busy[c.agent.ID] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// next picks the pairing for slot: the primary is the eligible agent with
// the fewest exposures (seeded order among equals) and the opponent the
// closest rating after jitter and the recent-pair penalty.
func (p *pairPlanner) next(slot int) (candidate, candidate, bool) {
	pool := p.eligible()
	if len(pool) < 2 {
		return candidate{}, candidate{}, false
	}
	slotSeed := p.day + ":" + strconv.Itoa(slot)
	sort.Slice(pool, func(i, j int) bool {
		ei, ej := p.exposures[pool[i].agent.ID], p.exposures[pool[j].agent.ID]
		if ei != ej {
			return ei < ej
		}
		hi := sim.SeededInt(slotSeed, "order:"+pool[i].agent.ID, 0, 1<<30)
		hj := sim.SeededInt(slotSeed, "order:"+pool[j].agent.ID, 0, 1<<30)
		if hi != hj {
			return hi < hj
		}
		return pool[i].agent.ID < pool[j].agent.ID
	})
	for i, primary := range pool {
		best, bestCost := -1, 0
		for j, c := range pool {
			if j == i {
				continue
			}
			key := store.PairKey(primary.agent.ID, c.agent.ID)
			if p.today[key] {
				continue
			}
			cost := absInt(primary.rating-c.rating) + sim.SeededInt(slotSeed, "jitter:"+key, 0, pairJitterMax)
			if _, ok := p.recent[key]; ok {
				cost += recentPairPenalty
			}
			if best < 0 || cost < bestCost || (cost == bestCost && c.agent.ID < pool[best].agent.ID) {
				best, bestCost = j, cost
			}
		}
		if best >= 0 {
			return primary, pool[best], true
		}
	}
	return candidate{}, candidate{}, false
}

func (p *pairPlanner) commit(a, b candidate) {
	p.exposures[a.agent.ID]++
	p.exposures[b.agent.ID]++
	p.today[store.PairKey(a.agent.ID, b.agent.ID)] = true
}

func shiftDay(day string, days int) (string, error) {
	t, err := store.ParseDay(day)
	if err != nil {
		return "", err
	}
	return store.FormatDay(t.Add(time.Duration(days) * 24 * time.Hour)), nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
