package store

import "context"

const (
	CheerSourceUser  = "user"
	CheerSourceAgent = "agent"
)

// UpsertCheer keeps one cheer per agent per match; a repeat replaces side and message.
func (q *Queries) UpsertCheer(ctx context.Context, c Cheer) error {
	if c.Source == "" {
		c.Source = CheerSourceUser
	}
	_, err := q.db.Exec(ctx,
		`INSERT INTO cheers (match_id, agent_id, side, message, source, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 ON CONFLICT (match_id, agent_id) DO UPDATE
		 SET side = EXCLUDED.side, message = EXCLUDED.message, source = EXCLUDED.source, updated_at = NOW()`,
		c.MatchID, c.AgentID, c.Side, textParam(c.Message), c.Source)
	return err
}

func (q *Queries) ListCheers(ctx context.Context, matchID string) ([]Cheer, error) {
	rows, err := q.db.Query(ctx,
		`SELECT match_id, agent_id, side, COALESCE(message, ''), source, created_at, updated_at
		 FROM cheers WHERE match_id = $1 ORDER BY updated_at ASC, agent_id ASC`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Cheer, 0)
	for rows.Next() {
		var c Cheer
		if err := rows.Scan(&c.MatchID, &c.AgentID, &c.Side, &c.Message, &c.Source, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
