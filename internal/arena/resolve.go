package arena

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"limbopet-arena/internal/arena/sim"
	"limbopet-arena/internal/ledger"
	"limbopet-arena/internal/store"
)

const (
	TagNearMiss = "near miss"
	TagUpset    = "upset"
	TagBigStake = "big stake"
	TagForfeit  = "forfeit"

	ForfeitAgentInactive = "agent_inactive"
	ForfeitMissingCast   = "missing_cast"

	coachNoteConfidence = 1.2
	coachingFactLimit   = 5
	coachingTextMax     = 120

	interventionLead  = 5 * time.Second
	interventionGrace = time.Second

	upsetExpectation = 0.36
	bigStakeAmount   = 4
)

// Resolve settles a live match immediately, ignoring its live window.
// Matches that are already terminal come back unchanged; scheduled ones are
// rejected because they never opened for interactions.
func (s *Service) Resolve(ctx context.Context, matchID string) (*store.Match, error) {
	var out *store.Match
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		m, err := lockMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		if m.Status == store.MatchScheduled {
			return ErrMatchNotLive
		}
		if err := s.resolveLocked(ctx, q, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		metricResolveErrors.Add(1)
		return nil, err
	}
	return out, nil
}

// ResolveIfDue resolves a live match whose window has closed and reports
// whether this call did the resolving.
func (s *Service) ResolveIfDue(ctx context.Context, matchID string) (*store.Match, bool, error) {
	var (
		out      *store.Match
		resolved bool
	)
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		m, err := lockMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		out = m
		if m.Status != store.MatchLive || m.Meta.Live.Open(s.clock()) {
			return nil
		}
		if err := s.resolveLocked(ctx, q, m); err != nil {
			return err
		}
		resolved = true
		return nil
	})
	if err != nil {
		metricResolveErrors.Add(1)
		return nil, false, err
	}
	return out, resolved, nil
}

// resolveLocked runs the whole resolution on a match the caller has locked.
// Any error leaves the transaction to be rolled back by the caller.
func (s *Service) resolveLocked(ctx context.Context, q *store.Queries, m *store.Match) error {
	if m.Status.Terminal() {
		return nil
	}
	cast := m.Meta.Cast
	if cast == nil || cast.AID == "" || cast.BID == "" {
		return s.forfeit(ctx, q, m, nil, nil, ForfeitMissingCast)
	}
	agents, err := q.GetAgentsByIDs(ctx, []string{cast.AID, cast.BID})
	if err != nil {
		return fmt.Errorf("load cast: %w", err)
	}
	a, b := agents[cast.AID], agents[cast.BID]
	if !a.Active() || !b.Active() {
		return s.forfeit(ctx, q, m, a, b, ForfeitAgentInactive)
	}
	now := s.clock()

	ra, rb, err := lockRatings(ctx, q, m.SeasonID, a.ID, b.ID)
	if err != nil {
		return fmt.Errorf("lock ratings: %w", err)
	}

	infA, hintsA, err := s.sideInfluence(ctx, q, m, a)
	if err != nil {
		return err
	}
	infB, hintsB, err := s.sideInfluence(ctx, q, m, b)
	if err != nil {
		return err
	}

	cheers, err := q.ListCheers(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("list cheers: %w", err)
	}
	cheerSummary := aggregateCheers(cheers, now)
	buff := sim.CheerBuff(cheerSummary.ACount, cheerSummary.BCount)
	if len(cheers) > 0 {
		cheerSummary.BuffApplied = buff
		m.Meta.Cheer = &cheerSummary
	}

	plan := stakePlanOf(m)
	var snapA, snapB *store.SideSnapshot
	if m.Meta.Snapshot != nil {
		snapA, snapB = &m.Meta.Snapshot.A, &m.Meta.Snapshot.B
	}
	out := sim.Simulate(sim.Input{
		Seed:      m.Seed,
		Mode:      m.Mode,
		A:         contestant(a, ra.Rating, snapA, hintsA, infA.ScoreBonusRate),
		B:         contestant(b, rb.Rating, snapB, hintsB, infB.ScoreBonusRate),
		Wager:     plan.Wager,
		CheerBuff: buff,
		Rounds:    s.cfg.Rounds,
	})

	winner, loser := a, b
	wr, lr := ra, rb
	if out.Winner == sim.SideB {
		winner, loser = b, a
		wr, lr = rb, ra
	}

	dW := EloDelta(wr.Rating, lr.Rating, true, s.cfg.EloK)
	dL := EloDelta(lr.Rating, wr.Rating, false, s.cfg.EloK)
	if rm := m.Meta.Rematch; rm != nil && rm.RequestedBy == winner.ID {
		dW = rematchDelta(dW, rm.EloBonusMultiplier)
		dL = rematchDelta(dL, rm.EloBonusMultiplier)
	}

	settled, err := ledger.SettleStake(ctx, q, m.ID, winner.ID, loser.ID, plan)
	if err != nil {
		return dependency("settle stake", err)
	}

	newW := applyOutcome(wr, dW, true)
	newL := applyOutcome(lr, dL, false)
	if err := q.UpsertRating(ctx, newW); err != nil {
		return fmt.Errorf("update winner rating: %w", err)
	}
	if err := q.UpsertRating(ctx, newL); err != nil {
		return fmt.Errorf("update loser rating: %w", err)
	}

	predict, err := s.payPredictions(ctx, q, m, out.Winner)
	if err != nil {
		return dependency("prediction payout", err)
	}

	loserOutcome := store.OutcomeLose
	if settled.Forfeit {
		loserOutcome = store.OutcomeForfeit
	}
	wScore, lScore := out.AScore10, out.BScore10
	if out.Winner == sim.SideB {
		wScore, lScore = lScore, wScore
	}
	parts := []store.Participant{
		{
			MatchID:      m.ID,
			AgentID:      winner.ID,
			Score:        wScore,
			Outcome:      store.OutcomeWin,
			Wager:        settled.Amount,
			CoinsNet:     settled.ToWinner,
			RatingBefore: wr.Rating,
			RatingAfter:  newW.Rating,
			RatingDelta:  newW.Rating - wr.Rating,
		},
		{
			MatchID:      m.ID,
			AgentID:      loser.ID,
			Score:        lScore,
			Outcome:      loserOutcome,
			Wager:        settled.Amount,
			FeeBurned:    settled.Fee,
			CoinsNet:     -settled.Amount,
			RatingBefore: lr.Rating,
			RatingAfter:  newL.Rating,
			RatingDelta:  newL.Rating - lr.Rating,
		},
	}
	for _, p := range parts {
		if err := q.InsertParticipant(ctx, p); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}

	res := &store.Result{
		WinnerID:   winner.ID,
		LoserID:    loser.ID,
		WinnerSide: string(out.Winner),
		AScore:     out.AScore,
		BScore:     out.BScore,
		ResolvedAt: now,
	}
	if out.Winner == sim.SideA {
		res.RatingDeltaA, res.RatingDeltaB = parts[0].RatingDelta, parts[1].RatingDelta
	} else {
		res.RatingDeltaA, res.RatingDeltaB = parts[1].RatingDelta, parts[0].RatingDelta
	}

	m.Meta.Rounds = out.Rounds
	m.Meta.NearMiss = out.NearMiss
	m.Meta.ModePayload = out.ModePayload
	for _, t := range out.Tags {
		m.Meta.AddTag(t)
	}
	if out.NearMiss != "" {
		m.Meta.AddTag(TagNearMiss)
	}
	if ExpectedScore(wr.Rating, lr.Rating) < upsetExpectation {
		m.Meta.AddTag(TagUpset)
	}
	if settled.Amount >= bigStakeAmount {
		m.Meta.AddTag(TagBigStake)
	}
	if settled.Forfeit {
		m.Meta.AddTag(TagForfeit)
	}
	m.Meta.Stake = &store.StakeInfo{
		Wager:     plan.Wager,
		FeePlan:   plan.FeePlan,
		FeePct:    plan.FeePct,
		Amount:    settled.Amount,
		FeeBurned: settled.Fee,
		ToWinner:  settled.ToWinner,
		Forfeit:   settled.Forfeit,
		Settled:   true,
	}
	m.Meta.Training = &store.TrainingInfluence{A: infA, B: infB}
	m.Meta.Result = res
	m.Meta.Predict = predict
	m.Meta.Headline = resolvedHeadline(m.Mode, winner.Name, loser.Name, settled.ToWinner)
	m.Meta.Live = nil
	m.Status = store.MatchResolved
	if err := q.UpdateMatch(ctx, m); err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	if _, err := q.InsertOutboxEvent(ctx, AggregateMatch, m.ID, EventMatchResolved, matchEvent(m)); err != nil {
		return dependency("outbox "+EventMatchResolved, err)
	}
	s.publishRecap(ctx, q, m)
	metricMatchResolvedTotal.Add(1)
	return nil
}

// forfeit closes a match that cannot be played. No ratings, stake or
// prediction payouts move; the active side, if any, is recorded as winner.
func (s *Service) forfeit(ctx context.Context, q *store.Queries, m *store.Match, a, b *store.Agent, reason string) error {
	res := &store.Result{Forfeit: true, ForfeitReason: reason, ResolvedAt: s.clock()}
	switch {
	case a.Active() && !b.Active():
		res.WinnerID, res.WinnerSide = a.ID, string(sim.SideA)
		if m.Meta.Cast != nil {
			res.LoserID = m.Meta.Cast.BID
		}
	case b.Active() && !a.Active():
		res.WinnerID, res.WinnerSide = b.ID, string(sim.SideB)
		if m.Meta.Cast != nil {
			res.LoserID = m.Meta.Cast.AID
		}
	}
	total, err := s.countPredictions(ctx, q, m.ID)
	if err != nil {
		return err
	}
	m.Meta.Predict = &store.PredictSummary{Total: total, Voided: true}
	m.Meta.Result = res
	m.Meta.Live = nil
	m.Meta.StartsAt = nil
	m.Meta.AddTag(TagForfeit)
	m.Meta.Headline = forfeitHeadline(m)
	m.Status = store.MatchForfeited
	if err := q.UpdateMatch(ctx, m); err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	if _, err := q.InsertOutboxEvent(ctx, AggregateMatch, m.ID, EventMatchForfeited, matchEvent(m)); err != nil {
		return dependency("outbox "+EventMatchForfeited, err)
	}
	metricMatchForfeitedTotal.Add(1)
	return nil
}

func (s *Service) publishRecap(ctx context.Context, q *store.Queries, m *store.Match) {
	if s.recap == nil {
		return
	}
	err := q.BestEffort(ctx, "arena_recap", func(sq *store.Queries) error {
		id, err := s.recap.Publish(ctx, sq, m)
		if err != nil {
			return err
		}
		meta := m.Meta
		meta.RecapPostID = id
		if err := sq.UpdateMatchMeta(ctx, m.ID, meta); err != nil {
			return err
		}
		m.Meta.RecapPostID = id
		return nil
	})
	if err != nil {
		metricRecapErrors.Add(1)
	}
}

// lockRatings locks both rating rows in id order.
func lockRatings(ctx context.Context, q *store.Queries, seasonID, aID, bID string) (store.Rating, store.Rating, error) {
	first, second := aID, bID
	if second < first {
		first, second = second, first
	}
	r1, err := q.LockRating(ctx, seasonID, first)
	if err != nil {
		return store.Rating{}, store.Rating{}, err
	}
	r2, err := q.LockRating(ctx, seasonID, second)
	if err != nil {
		return store.Rating{}, store.Rating{}, err
	}
	if first == aID {
		return r1, r2, nil
	}
	return r2, r1, nil
}

func stakePlanOf(m *store.Match) ledger.StakePlan {
	if st := m.Meta.Stake; st != nil {
		return ledger.StakePlan{Wager: st.Wager, FeePlan: st.FeePlan, FeePct: st.FeePct}
	}
	return ledger.PlanStake(m.Seed, m.Meta.Origin == store.OriginRematch)
}

func contestant(a *store.Agent, rating int, snap *store.SideSnapshot, h sim.Hints, bonus float64) sim.Contestant {
	c := sim.Contestant{
		AgentID:        a.ID,
		Rating:         rating,
		Stats:          a.Stats,
		JobCode:        a.JobCode,
		Hints:          h,
		ScoreBonusRate: bonus,
	}
	if snap != nil {
		if snap.Stats != (sim.Stats{}) {
			c.Stats = snap.Stats
		}
		if snap.JobCode != "" {
			c.JobCode = snap.JobCode
		}
	}
	if c.Stats == (sim.Stats{}) {
		c.Stats = sim.DefaultStats
	}
	return c
}

// sideInfluence gathers the coaching that shapes one side: the owner's
// coach note, the strongest coaching memories and an in-window intervention.
func (s *Service) sideInfluence(ctx context.Context, q *store.Queries, m *store.Match, a *store.Agent) (*store.SideInfluence, sim.Hints, error) {
	inf := &store.SideInfluence{}
	var nudges, memories []sim.Nudge
	if note := strings.TrimSpace(a.CoachNote); note != "" {
		nudges = append(nudges, sim.Nudge{Kind: sim.NudgeKindCoachNote, Text: note, Confidence: coachNoteConfidence})
		inf.CoachNoteApplied = true
	}
	facts, err := q.ListAgentFacts(ctx, a.ID, store.FactKindCoaching, coachingFactLimit)
	if err != nil {
		return nil, sim.Hints{}, fmt.Errorf("coaching facts: %w", err)
	}
	for _, f := range facts {
		text := coachingText(f.Value)
		if text == "" {
			continue
		}
		conf := math.Max(0.2, math.Min(1, math.Max(0, f.Confidence)))
		n := sim.Nudge{Kind: store.FactKindCoaching, Text: text, Confidence: conf}
		nudges = append(nudges, n)
		memories = append(memories, n)
		inf.MemoryRefs = append(inf.MemoryRefs, store.MemoryRef{Kind: f.Kind, Key: f.Key, Text: text, Confidence: conf})
	}
	hints := sim.BuildHints(nudges)
	inf.ScoreBonusRate = sim.CoachingBonusRate(memories, hints)

	iv, ok, err := interventionFor(ctx, q, m, a.ID)
	if err != nil {
		return nil, sim.Hints{}, err
	}
	if ok {
		hints = hints.Add(iv.Boosts).Clamp()
		inf.Interventions = []string{iv.Action}
	}
	inf.Hints = hints.Rounded()
	inf.Dominant = hints.Dominant()
	return inf, hints, nil
}

func coachingText(raw json.RawMessage) string {
	var v struct {
		Text string `json:"text"`
	}
	text := ""
	if err := json.Unmarshal(raw, &v); err == nil {
		text = v.Text
	} else {
		_ = json.Unmarshal(raw, &text)
	}
	return trimRunes(strings.TrimSpace(text), coachingTextMax)
}

func interventionFor(ctx context.Context, q *store.Queries, m *store.Match, agentID string) (interventionValue, bool, error) {
	f, err := q.GetFact(ctx, agentID, store.FactKindArenaLive, store.InterveneKey(m.ID))
	if errors.Is(err, store.ErrNotFound) {
		return interventionValue{}, false, nil
	}
	if err != nil {
		return interventionValue{}, false, fmt.Errorf("intervention fact: %w", err)
	}
	var v interventionValue
	if err := json.Unmarshal(f.Value, &v); err != nil {
		return interventionValue{}, false, nil
	}
	if !inInterventionWindow(v.CreatedAt, m.Meta.Live) {
		return interventionValue{}, false, nil
	}
	return v, true, nil
}

// inInterventionWindow accepts actions from shortly before the window opened
// until just after it closed.
func inInterventionWindow(at time.Time, live *store.LiveInfo) bool {
	if live == nil || at.IsZero() {
		return false
	}
	return !at.Before(live.StartedAt.Add(-interventionLead)) && !at.After(live.EndsAt.Add(interventionGrace))
}

func (s *Service) countPredictions(ctx context.Context, q *store.Queries, matchID string) (int, error) {
	facts, err := q.ListFactsByKey(ctx, store.FactKindArenaPred, store.PredictKey(matchID))
	if err != nil {
		return 0, fmt.Errorf("list predictions: %w", err)
	}
	n := 0
	for _, f := range facts {
		if _, ok := predictionSide(f.Value); ok {
			n++
		}
	}
	return n, nil
}

func predictionSide(raw json.RawMessage) (sim.Side, bool) {
	var v predictionValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	return sim.ParseSide(v.Pick)
}

// payPredictions mints the prediction pot for correct predictors, earliest first.
func (s *Service) payPredictions(ctx context.Context, q *store.Queries, m *store.Match, winner sim.Side) (*store.PredictSummary, error) {
	facts, err := q.ListFactsByKey(ctx, store.FactKindArenaPred, store.PredictKey(m.ID))
	if err != nil {
		return nil, err
	}
	total := 0
	winners := make([]string, 0, len(facts))
	for _, f := range facts {
		side, ok := predictionSide(f.Value)
		if !ok {
			continue
		}
		total++
		if side == winner {
			winners = append(winners, f.AgentID)
		}
	}
	if total == 0 {
		return nil, nil
	}
	sum := splitPredictionPot(total, len(winners))
	for i, id := range winners {
		amount := sum.PerWinner
		if int64(i) < sum.Remainder {
			amount++
		}
		if err := ledger.MintPayout(ctx, q, id, m.ID, amount); err != nil {
			return nil, err
		}
	}
	return &sum, nil
}

// splitPredictionPot sizes the minted pot from the number of predictors and
// splits it evenly; the remainder is paid one coin at a time.
func splitPredictionPot(total, winners int) store.PredictSummary {
	pot := int64(clampInt(3+min(12, total), 0, 60))
	out := store.PredictSummary{Total: total, Winners: winners, Pot: pot}
	if winners <= 0 {
		return out
	}
	if pot < int64(winners) {
		pot = int64(winners)
		out.Pot = pot
	}
	out.PerWinner = pot / int64(winners)
	out.Remainder = pot - out.PerWinner*int64(winners)
	return out
}

var modeVerbs = map[sim.Mode]string{
	sim.ModeAuctionDuel:  "outbids",
	sim.ModePuzzleSprint: "outsolves",
	sim.ModeDebateClash:  "out-argues",
	sim.ModeMathRace:     "outpaces",
	sim.ModeCourtTrial:   "wins the case against",
	sim.ModePromptBattle: "outwrites",
}

func resolvedHeadline(mode sim.Mode, winner, loser string, coins int64) string {
	verb, ok := modeVerbs[mode]
	if !ok {
		verb = "beats"
	}
	h := fmt.Sprintf("%s: %s %s %s", mode.Label(), winner, verb, loser)
	if coins > 0 {
		h += fmt.Sprintf(" (+%d coins)", coins)
	}
	return h
}

func forfeitHeadline(m *store.Match) string {
	if c := m.Meta.Cast; c != nil && m.Meta.Result != nil && m.Meta.Result.WinnerID != "" {
		name := c.AName
		if m.Meta.Result.WinnerSide == string(sim.SideB) {
			name = c.BName
		}
		return fmt.Sprintf("%s: %s wins by forfeit", m.Mode.Label(), name)
	}
	return fmt.Sprintf("%s: called off", m.Mode.Label())
}
