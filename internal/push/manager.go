package push

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"limbopet-arena/internal/arena"
	"limbopet-arena/internal/push/platforms"
	"limbopet-arena/internal/store"

	"github.com/rs/zerolog/log"
)

type breakerState struct {
	consecutiveFailures int
	openUntil           time.Time
}

// Manager fans outbox match events out to webhook targets on a worker
// pool. Delivery is best-effort: a full queue drops the card.
type Manager struct {
	cfg      Config
	router   Router
	adapters map[string]platforms.Adapter

	dispatchCh chan job
	retryQ     *retryQueue
	done       chan struct{}

	mu           sync.Mutex
	started      bool
	targets      []Target
	breakerByKey map[string]breakerState
}

func NewManager(cfg Config) *Manager {
	cfg.applyDefaults()
	client := platforms.NewHTTPClient(cfg.RequestTimeout)
	m := &Manager{
		cfg:    cfg,
		router: Router{},
		adapters: map[string]platforms.Adapter{
			"discord": platforms.NewDiscordAdapter(client),
			"feishu":  platforms.NewFeishuAdapter(client),
		},
		dispatchCh:   make(chan job, cfg.DispatchBuffer),
		done:         make(chan struct{}),
		targets:      cfg.Targets,
		breakerByKey: map[string]breakerState{},
	}
	m.retryQ = newRetryQueue(m.dispatchCh, m.done)
	return m
}

func (m *Manager) Name() string { return "push" }

// Start launches the workers and the targets file watcher. They stop when
// ctx is cancelled.
func (m *Manager) Start(ctx context.Context) error {
	if !m.cfg.Enabled {
		return nil
	}
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	for i := 0; i < m.cfg.Workers; i++ {
		go m.worker(ctx)
	}
	if m.cfg.ConfigPath != "" {
		go m.watchConfigLoop(ctx)
	}
	go func() {
		<-ctx.Done()
		close(m.done)
	}()
	log.Info().Int("workers", m.cfg.Workers).Int("targets", len(m.currentTargets())).Msg("push manager started")
	return nil
}

// Publish routes one outbox event. Undecodable payloads are logged and
// skipped so they do not block the relay.
func (m *Manager) Publish(_ context.Context, ev store.OutboxEvent) error {
	if !m.cfg.Enabled || ev.AggregateType != arena.AggregateMatch {
		return nil
	}
	var payload arena.MatchEvent
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		log.Warn().Err(err).Str("event_id", ev.EventID).Msg("push skipped undecodable event")
		return nil
	}
	n := noticeFrom(ev, payload)
	targets := m.router.MatchTargets(m.currentTargets(), n)
	if len(targets) == 0 {
		return nil
	}
	card, ok := FormatCard(n)
	if !ok {
		return nil
	}
	for _, t := range targets {
		if !m.enqueue(job{Target: t, Notice: n, Card: card, Terminal: terminal(n.EventType)}) {
			metricPushDroppedTotal.Add(1)
		}
	}
	return nil
}

func noticeFrom(ev store.OutboxEvent, p arena.MatchEvent) Notice {
	n := Notice{
		EventID:    ev.EventID,
		EventType:  ev.EventType,
		OccurredAt: ev.OccurredAt,
		MatchID:    p.MatchID,
		Day:        p.Day,
		Slot:       p.Slot,
		Mode:       p.Mode,
		ModeLabel:  p.ModeLabel,
		Origin:     p.Origin,
		Headline:   p.Headline,
		AID:        p.AID,
		BID:        p.BID,
		AName:      p.AName,
		BName:      p.BName,
		WinnerID:   p.WinnerID,
		AScore:     p.AScore,
		BScore:     p.BScore,
		DeltaA:     p.RatingDeltaA,
		DeltaB:     p.RatingDeltaB,
		Tags:       p.Tags,
	}
	if p.Stake != nil {
		n.StakeCoins = p.Stake.Wager
	}
	if n.MatchID == "" {
		n.MatchID = ev.AggregateID
	}
	return n
}

func (m *Manager) enqueue(j job) bool {
	select {
	case <-m.done:
		return false
	case m.dispatchCh <- j:
		metricPushQueuedTotal.Add(1)
		metricPushQueueLen.Set(int64(len(m.dispatchCh)))
		return true
	default:
		return false
	}
}

func (m *Manager) currentTargets() []Target {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Target, len(m.targets))
	copy(out, m.targets)
	return out
}

func (m *Manager) watchConfigLoop(ctx context.Context) {
	last, _ := os.ReadFile(m.cfg.ConfigPath)
	ticker := time.NewTicker(m.cfg.ConfigReload)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			raw, err := os.ReadFile(m.cfg.ConfigPath)
			if err != nil {
				metricPushConfigReloadError.Add(1)
				continue
			}
			if bytes.Equal(bytes.TrimSpace(raw), bytes.TrimSpace(last)) {
				continue
			}
			targets, err := parseTargets(raw)
			if err != nil {
				metricPushConfigReloadError.Add(1)
				log.Warn().Err(err).Str("path", m.cfg.ConfigPath).Msg("push targets reload failed")
				continue
			}
			m.mu.Lock()
			m.targets = targets
			m.mu.Unlock()
			last = raw
			metricPushConfigReloadTotal.Add(1)
			log.Info().Int("targets", len(targets)).Msg("push targets reloaded")
		}
	}
}
