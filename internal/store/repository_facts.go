package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
)

const (
	FactKindArenaLive = "arena_live"
	FactKindArenaPred = "arena_pred"
	FactKindArena     = "arena"
	FactKindCoaching  = "coaching"
)

func InterveneKey(matchID string) string { return "intervene:" + matchID }

func PredictKey(matchID string) string { return "predict:" + matchID }

func RematchReqKey(matchID string) string { return "rematch_req:" + matchID }

func RevengeKey(opponentID string) string { return "revenge:" + opponentID }

const factColumns = `agent_id, kind, key, value, confidence, updated_at`

func scanFact(row pgx.Row) (Fact, error) {
	var f Fact
	var raw []byte
	if err := row.Scan(&f.AgentID, &f.Kind, &f.Key, &raw, &f.Confidence, &f.UpdatedAt); err != nil {
		return Fact{}, mapNotFound(err)
	}
	f.Value = json.RawMessage(raw)
	return f, nil
}

// UpsertFact writes the fact, replacing value and confidence on conflict.
func (q *Queries) UpsertFact(ctx context.Context, agentID, kind, key string, value any, confidence float64) error {
	b, err := jsonParam(value)
	if err != nil {
		return err
	}
	_, err = q.db.Exec(ctx,
		`INSERT INTO facts (agent_id, kind, key, value, confidence, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5, NOW())
		 ON CONFLICT (agent_id, kind, key) DO UPDATE
		 SET value = EXCLUDED.value, confidence = EXCLUDED.confidence, updated_at = NOW()`,
		agentID, kind, key, b, confidence)
	return err
}

// InsertFactIfAbsent reports whether the fact was newly written.
func (q *Queries) InsertFactIfAbsent(ctx context.Context, agentID, kind, key string, value any, confidence float64) (bool, error) {
	b, err := jsonParam(value)
	if err != nil {
		return false, err
	}
	tag, err := q.db.Exec(ctx,
		`INSERT INTO facts (agent_id, kind, key, value, confidence, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5, NOW())
		 ON CONFLICT (agent_id, kind, key) DO NOTHING`,
		agentID, kind, key, b, confidence)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (q *Queries) GetFact(ctx context.Context, agentID, kind, key string) (Fact, error) {
	return scanFact(q.db.QueryRow(ctx,
		`SELECT `+factColumns+` FROM facts WHERE agent_id = $1 AND kind = $2 AND key = $3`,
		agentID, kind, key))
}

func (q *Queries) DeleteFact(ctx context.Context, agentID, kind, key string) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`DELETE FROM facts WHERE agent_id = $1 AND kind = $2 AND key = $3`, agentID, kind, key)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListFactsByKey returns every agent's fact for kind/key, oldest first.
func (q *Queries) ListFactsByKey(ctx context.Context, kind, key string) ([]Fact, error) {
	return q.queryFacts(ctx,
		`SELECT `+factColumns+` FROM facts WHERE kind = $1 AND key = $2 ORDER BY updated_at ASC, agent_id ASC`,
		kind, key)
}

// ListAgentFacts returns an agent's facts of one kind, most confident first.
func (q *Queries) ListAgentFacts(ctx context.Context, agentID, kind string, limit int) ([]Fact, error) {
	if limit <= 0 {
		limit = 20
	}
	return q.queryFacts(ctx,
		`SELECT `+factColumns+` FROM facts WHERE agent_id = $1 AND kind = $2
		 ORDER BY confidence DESC, updated_at DESC LIMIT $3`,
		agentID, kind, limit)
}

func (q *Queries) queryFacts(ctx context.Context, sql string, args ...any) ([]Fact, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Fact, 0)
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
