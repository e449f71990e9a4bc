package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// InsertOutboxEvent queues an event in the caller's transaction.
func (q *Queries) InsertOutboxEvent(ctx context.Context, aggregateType, aggregateID, eventType string, payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	eventID := uuid.New().String()
	_, err = q.db.Exec(ctx,
		`INSERT INTO arena_outbox (event_id, aggregate_type, aggregate_id, event_type, payload)
		 VALUES ($1, $2, $3, $4, $5::jsonb)`,
		eventID, aggregateType, aggregateID, eventType, b)
	return eventID, err
}

// ClaimUnpublishedOutbox locks up to limit pending events; other relays skip them.
func (q *Queries) ClaimUnpublishedOutbox(ctx context.Context, limit int) ([]OutboxEvent, error) {
	if !q.Transactional() {
		return nil, ErrNoTx
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.db.Query(ctx,
		`SELECT seq_id, event_id::text, aggregate_type, aggregate_id, event_type, payload, occurred_at, published_at
		 FROM arena_outbox WHERE published_at IS NULL
		 ORDER BY seq_id ASC LIMIT $1
		 FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]OutboxEvent, 0)
	for rows.Next() {
		var e OutboxEvent
		var raw []byte
		if err := rows.Scan(&e.SeqID, &e.EventID, &e.AggregateType, &e.AggregateID, &e.EventType, &raw, &e.OccurredAt, &e.PublishedAt); err != nil {
			return nil, err
		}
		e.Payload = json.RawMessage(raw)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *Queries) MarkOutboxPublished(ctx context.Context, seqIDs []int64, at time.Time) error {
	if len(seqIDs) == 0 {
		return nil
	}
	_, err := q.db.Exec(ctx,
		`UPDATE arena_outbox SET published_at = $2 WHERE seq_id = ANY($1)`, seqIDs, at)
	return err
}

func (q *Queries) CountUnpublishedOutbox(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM arena_outbox WHERE published_at IS NULL`).Scan(&n)
	return n, err
}
