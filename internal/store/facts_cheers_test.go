package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"limbopet-arena/internal/arena/sim"
)

func mustCreateMatch(t *testing.T, st *Store, ctx context.Context, day string, slot int) *Match {
	t.Helper()
	season, err := st.EnsureSeasonForDay(ctx, day)
	if err != nil {
		t.Fatalf("ensure season: %v", err)
	}
	var m *Match
	err = st.InTx(ctx, func(q *Queries) error {
		var err error
		m, err = q.CreateMatch(ctx, NewMatch{
			SeasonID: season.ID,
			Day:      day,
			Slot:     slot,
			Mode:     sim.ModeMathRace,
			Status:   MatchLive,
			Seed:     "seed",
		})
		return err
	})
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	return m
}

func TestFactsLifecycle(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	a := mustCreateAgent(t, st, ctx, "A", "key-a", 0)
	b := mustCreateAgent(t, st, ctx, "B", "key-b", 0)

	inserted, err := st.InsertFactIfAbsent(ctx, a, FactKindArenaPred, PredictKey("m1"), map[string]string{"pick": "a"}, 1)
	if err != nil || !inserted {
		t.Fatalf("first insert = %v, %v", inserted, err)
	}
	inserted, err = st.InsertFactIfAbsent(ctx, a, FactKindArenaPred, PredictKey("m1"), map[string]string{"pick": "b"}, 1)
	if err != nil || inserted {
		t.Fatalf("second insert = %v, %v", inserted, err)
	}
	if err := st.UpsertFact(ctx, b, FactKindArenaPred, PredictKey("m1"), map[string]string{"pick": "b"}, 1); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	f, err := st.GetFact(ctx, a, FactKindArenaPred, PredictKey("m1"))
	if err != nil {
		t.Fatalf("get fact: %v", err)
	}
	var v map[string]string
	if err := json.Unmarshal(f.Value, &v); err != nil || v["pick"] != "a" {
		t.Fatalf("fact value = %s, %v", f.Value, err)
	}

	byKey, err := st.ListFactsByKey(ctx, FactKindArenaPred, PredictKey("m1"))
	if err != nil || len(byKey) != 2 {
		t.Fatalf("facts by key = %+v, %v", byKey, err)
	}

	deleted, err := st.DeleteFact(ctx, a, FactKindArenaPred, PredictKey("m1"))
	if err != nil || !deleted {
		t.Fatalf("delete = %v, %v", deleted, err)
	}
	if _, err := st.GetFact(ctx, a, FactKindArenaPred, PredictKey("m1")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCheersOnePerAgent(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	a := mustCreateAgent(t, st, ctx, "A", "key-a", 0)
	m := mustCreateMatch(t, st, ctx, "2026-03-02", 1)

	if err := st.UpsertCheer(ctx, Cheer{MatchID: m.ID, AgentID: a, Side: "a", Message: "go"}); err != nil {
		t.Fatalf("cheer: %v", err)
	}
	if err := st.UpsertCheer(ctx, Cheer{MatchID: m.ID, AgentID: a, Side: "b"}); err != nil {
		t.Fatalf("cheer again: %v", err)
	}
	cheers, err := st.ListCheers(ctx, m.ID)
	if err != nil {
		t.Fatalf("list cheers: %v", err)
	}
	if len(cheers) != 1 || cheers[0].Side != "b" || cheers[0].Message != "" || cheers[0].Source != CheerSourceUser {
		t.Fatalf("unexpected cheers %+v", cheers)
	}
}

func TestRecapPostIdempotent(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	m := mustCreateMatch(t, st, ctx, "2026-03-02", 1)
	id1, err := st.InsertRecapPost(ctx, m.ID, "t", "b")
	if err != nil {
		t.Fatalf("insert recap: %v", err)
	}
	id2, err := st.InsertRecapPost(ctx, m.ID, "t2", "b2")
	if err != nil {
		t.Fatalf("insert recap again: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected the existing post id, got %s then %s", id1, id2)
	}
	post, err := st.GetRecapPostByMatch(ctx, m.ID)
	if err != nil || post.Title != "t" {
		t.Fatalf("recap = %+v, %v", post, err)
	}
	if _, err := st.GetRecapPostByMatch(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
