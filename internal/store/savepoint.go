package store

import (
	"context"

	"github.com/rs/zerolog/log"
)

// BestEffort runs fn inside a savepoint. On error the savepoint is rolled
// back, the error is logged and returned, and the outer transaction stays usable.
func (q *Queries) BestEffort(ctx context.Context, label string, fn func(q *Queries) error) error {
	if !q.Transactional() {
		return ErrNoTx
	}
	sp, err := q.tx.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(q.WithTx(sp)); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			log.Error().Err(rbErr).Str("step", label).Msg("savepoint rollback failed")
		}
		log.Warn().Err(err).Str("step", label).Msg("best-effort step rolled back")
		return err
	}
	return sp.Commit(ctx)
}

// TryAdvisoryXactLock takes a transaction-scoped advisory lock on key without waiting.
func (q *Queries) TryAdvisoryXactLock(ctx context.Context, key string) (bool, error) {
	if !q.Transactional() {
		return false, ErrNoTx
	}
	var ok bool
	err := q.db.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock(hashtextextended($1, 0))`, key).Scan(&ok)
	return ok, err
}

// AdvisoryXactLock waits for a transaction-scoped advisory lock on key.
func (q *Queries) AdvisoryXactLock(ctx context.Context, key string) error {
	if !q.Transactional() {
		return ErrNoTx
	}
	_, err := q.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key)
	return err
}
