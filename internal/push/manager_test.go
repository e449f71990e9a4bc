package push

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"limbopet-arena/internal/arena"
	"limbopet-arena/internal/push/platforms"
	"limbopet-arena/internal/store"
)

type fakeAdapter struct {
	mu        sync.Mutex
	calls     int
	failFirst int
	forceFail bool
	cards     []platforms.Card
	forgotten []string
}

func (f *fakeAdapter) Name() string { return "fake" }

func (f *fakeAdapter) Send(_ context.Context, _ string, _ string, card platforms.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.cards = append(f.cards, card)
	if f.forceFail || f.calls <= f.failFirst {
		return errors.New("fail")
	}
	return nil
}

func (f *fakeAdapter) Forget(_ string, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgotten = append(f.forgotten, key)
}

func (f *fakeAdapter) snapshot() (int, []platforms.Card, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, append([]platforms.Card(nil), f.cards...), append([]string(nil), f.forgotten...)
}

func newTestManager(t *testing.T, adapter *fakeAdapter, cfg Config) (*Manager, context.CancelFunc) {
	t.Helper()
	cfg.Enabled = true
	if len(cfg.Targets) == 0 {
		cfg.Targets = []Target{{Platform: "fake", Endpoint: "https://example.com/hook", ScopeType: ScopeAll, Enabled: true}}
	}
	m := NewManager(cfg)
	m.adapters = map[string]platforms.Adapter{"fake": adapter}
	ctx, cancel := context.WithCancel(context.Background())
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start manager: %v", err)
	}
	return m, cancel
}

func outboxEvent(t *testing.T, evType string, ev arena.MatchEvent) store.OutboxEvent {
	t.Helper()
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return store.OutboxEvent{
		EventID:       "e-" + evType,
		AggregateType: arena.AggregateMatch,
		AggregateID:   ev.MatchID,
		EventType:     evType,
		Payload:       raw,
		OccurredAt:    time.Now(),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestManagerPublishDeliversAndForgetsTerminalCard(t *testing.T) {
	adapter := &fakeAdapter{}
	m, cancel := newTestManager(t, adapter, Config{Workers: 1})
	defer cancel()

	ev := arena.MatchEvent{MatchID: "m1", Mode: "MATH_RACE", AID: "a", BID: "b", AName: "Mochi", BName: "Bean"}
	if err := m.Publish(context.Background(), outboxEvent(t, arena.EventMatchCreated, ev)); err != nil {
		t.Fatalf("publish created: %v", err)
	}
	waitFor(t, func() bool { calls, _, _ := adapter.snapshot(); return calls == 1 })

	ev.WinnerID = "a"
	if err := m.Publish(context.Background(), outboxEvent(t, arena.EventMatchResolved, ev)); err != nil {
		t.Fatalf("publish resolved: %v", err)
	}
	waitFor(t, func() bool { _, _, forgotten := adapter.snapshot(); return len(forgotten) == 1 })

	_, cards, forgotten := adapter.snapshot()
	if cards[0].Key != "match:m1" || cards[1].Key != "match:m1" {
		t.Fatalf("cards should share a key: %q %q", cards[0].Key, cards[1].Key)
	}
	if forgotten[0] != "match:m1" {
		t.Fatalf("unexpected forgotten key: %s", forgotten[0])
	}
}

func TestManagerIgnoresOtherAggregatesAndBadPayloads(t *testing.T) {
	adapter := &fakeAdapter{}
	m, cancel := newTestManager(t, adapter, Config{Workers: 1})
	defer cancel()

	if err := m.Publish(context.Background(), store.OutboxEvent{AggregateType: "season", EventType: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := store.OutboxEvent{AggregateType: arena.AggregateMatch, EventType: arena.EventMatchCreated, Payload: json.RawMessage(`{`)}
	if err := m.Publish(context.Background(), bad); err != nil {
		t.Fatalf("bad payload should be skipped, got %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if calls, _, _ := adapter.snapshot(); calls != 0 {
		t.Fatalf("expected no sends, got %d", calls)
	}
}

func TestManagerRetryThenSuccess(t *testing.T) {
	adapter := &fakeAdapter{failFirst: 1}
	m, cancel := newTestManager(t, adapter, Config{Workers: 1, RetryMax: 2, RetryBase: 5 * time.Millisecond, FailureThreshold: 10})
	defer cancel()

	if !m.enqueue(job{Target: m.targets[0], Card: platforms.Card{Title: "x"}}) {
		t.Fatal("enqueue failed")
	}
	waitFor(t, func() bool { calls, _, _ := adapter.snapshot(); return calls == 2 })
}

func TestRetryStopsAtMaxAttempts(t *testing.T) {
	adapter := &fakeAdapter{forceFail: true}
	m, cancel := newTestManager(t, adapter, Config{Workers: 1, RetryMax: 1, RetryBase: 5 * time.Millisecond, FailureThreshold: 10})
	defer cancel()

	if !m.enqueue(job{Target: m.targets[0], Card: platforms.Card{Title: "x"}}) {
		t.Fatal("enqueue failed")
	}
	time.Sleep(120 * time.Millisecond)
	if calls, _, _ := adapter.snapshot(); calls != 2 {
		t.Fatalf("expected 2 calls (initial + 1 retry), got %d", calls)
	}
}

func TestCircuitOpensAfterThreshold(t *testing.T) {
	m := NewManager(Config{Enabled: true, FailureThreshold: 2, CircuitOpenFor: time.Minute})
	now := time.Now()
	key := "k"
	m.afterFailure(key, now)
	if err := m.beforeSend(key, now); err != nil {
		t.Fatalf("breaker opened too early: %v", err)
	}
	m.afterFailure(key, now)
	if err := m.beforeSend(key, now.Add(time.Second)); !errors.Is(err, errCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if err := m.beforeSend(key, now.Add(2*time.Minute)); err != nil {
		t.Fatalf("breaker should half-open after window: %v", err)
	}
	m.afterSuccess(key)
	if _, ok := m.breakerByKey[key]; ok {
		t.Fatal("success should reset breaker state")
	}
}

func TestDisabledManagerIsNoop(t *testing.T) {
	m := NewManager(Config{})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Publish(context.Background(), store.OutboxEvent{AggregateType: arena.AggregateMatch}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(m.dispatchCh) != 0 {
		t.Fatal("disabled manager should not queue")
	}
}
