// Package outbox relays committed arena_outbox rows to external sinks.
package outbox

import (
	"context"
	"fmt"
	"time"

	"limbopet-arena/internal/config"
	"limbopet-arena/internal/store"

	"github.com/rs/zerolog/log"
)

// Sink receives each outbox event at least once, in seq order.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev store.OutboxEvent) error
}

type Relay struct {
	store    *store.Store
	sinks    []Sink
	interval time.Duration
	batch    int
	now      func() time.Time
}

func NewRelay(st *store.Store, cfg config.OutboxConfig, sinks ...Sink) *Relay {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	return &Relay{store: st, sinks: sinks, interval: interval, batch: batch, now: time.Now}
}

// Run polls until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	if len(r.sinks) == 0 {
		log.Info().Msg("outbox relay has no sinks; not started")
		return nil
	}
	log.Info().Dur("interval", r.interval).Int("batch", r.batch).Msg("outbox relay started")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox relay stopped")
			return nil
		case <-ticker.C:
			n, err := r.RelayOnce(ctx)
			if err != nil && ctx.Err() == nil {
				log.Error().Err(err).Int("published", n).Msg("outbox relay batch failed")
			}
		}
	}
}

// RelayOnce claims one batch and hands every event to every sink. Events
// before the first failure are marked published; the rest stay pending for
// the next poll.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var published int
	var sinkErr error
	err := r.store.InTx(ctx, func(q *store.Queries) error {
		events, err := q.ClaimUnpublishedOutbox(ctx, r.batch)
		if err != nil {
			return err
		}
		done := make([]int64, 0, len(events))
		for _, ev := range events {
			if sinkErr = r.dispatch(ctx, ev); sinkErr != nil {
				break
			}
			done = append(done, ev.SeqID)
		}
		if err := q.MarkOutboxPublished(ctx, done, r.now().UTC()); err != nil {
			return err
		}
		published = len(done)
		return nil
	})
	if err != nil {
		metricOutboxErrorsTotal.Add(1)
		return 0, fmt.Errorf("relay outbox: %w", err)
	}
	metricOutboxPublishedTotal.Add(int64(published))
	if sinkErr != nil {
		metricOutboxErrorsTotal.Add(1)
		return published, sinkErr
	}
	return published, nil
}

func (r *Relay) dispatch(ctx context.Context, ev store.OutboxEvent) error {
	for _, s := range r.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			return fmt.Errorf("sink %s event %s: %w", s.Name(), ev.EventID, err)
		}
	}
	return nil
}
