package push

import (
	"context"
	"errors"
	"time"

	"limbopet-arena/internal/push/platforms"

	"github.com/rs/zerolog/log"
)

var errCircuitOpen = errors.New("circuit_open")

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-m.dispatchCh:
			metricPushQueueLen.Set(int64(len(m.dispatchCh)))
			m.processJob(ctx, j)
		}
	}
}

func (m *Manager) processJob(ctx context.Context, j job) {
	adapter := m.adapters[j.Target.Platform]
	if adapter == nil {
		metricPushDroppedTotal.Add(1)
		return
	}
	key := j.Target.key()
	if err := m.beforeSend(key, time.Now()); err != nil {
		metricPushCircuitOpenTotal.Add(1)
		m.retryOrDrop(j, err)
		return
	}
	if err := adapter.Send(ctx, j.Target.Endpoint, j.Target.Secret, j.Card); err != nil {
		metricPushFailedTotal.Add(1)
		m.afterFailure(key, time.Now())
		m.retryOrDrop(j, err)
		return
	}
	metricPushSentTotal.Add(1)
	m.afterSuccess(key)
	if j.Terminal {
		if f, ok := adapter.(platforms.CardForgetter); ok {
			f.Forget(j.Target.Endpoint, j.Card.Key)
		}
	}
}

func (m *Manager) retryOrDrop(j job, err error) bool {
	if j.Attempt >= m.cfg.RetryMax {
		metricPushRetryDroppedTotal.Add(1)
		log.Warn().Err(err).
			Str("platform", j.Target.Platform).
			Str("match_id", j.Notice.MatchID).
			Str("event_type", j.Notice.EventType).
			Msg("push dropped after retries")
		return false
	}
	j.Attempt++
	metricPushRetryTotal.Add(1)
	m.retryQ.Enqueue(j, m.cfg.RetryBase*time.Duration(1<<(j.Attempt-1)))
	return true
}

func (m *Manager) beforeSend(key string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.breakerByKey[key]
	if !state.openUntil.IsZero() && now.Before(state.openUntil) {
		return errCircuitOpen
	}
	return nil
}

func (m *Manager) afterFailure(key string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.breakerByKey[key]
	state.consecutiveFailures++
	if state.consecutiveFailures >= m.cfg.FailureThreshold {
		state.openUntil = now.Add(m.cfg.CircuitOpenFor)
		state.consecutiveFailures = 0
	}
	m.breakerByKey[key] = state
}

func (m *Manager) afterSuccess(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.breakerByKey, key)
}
