package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
)

const agentColumns = `id, name, api_key_hash, status, job_code, energy, mood, stress, curiosity, coach_note, created_at`

func scanAgent(row pgx.Row) (*Agent, error) {
	var a Agent
	if err := row.Scan(
		&a.ID, &a.Name, &a.APIKeyHash, &a.Status, &a.JobCode,
		&a.Stats.Energy, &a.Stats.Mood, &a.Stats.Stress, &a.Stats.Curiosity,
		&a.CoachNote, &a.CreatedAt,
	); err != nil {
		return nil, mapNotFound(err)
	}
	return &a, nil
}

func (q *Queries) CreateAgent(ctx context.Context, name, apiKey string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("agent name required")
	}
	id := NewID()
	_, err := q.db.Exec(ctx,
		`INSERT INTO agents (id, name, api_key_hash) VALUES ($1, $2, $3)`,
		id, name, HashAPIKey(apiKey))
	return id, err
}

func (q *Queries) GetAgentByAPIKey(ctx context.Context, apiKey string) (*Agent, error) {
	return scanAgent(q.db.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE api_key_hash = $1`, HashAPIKey(apiKey)))
}

func (q *Queries) GetAgentByID(ctx context.Context, id string) (*Agent, error) {
	return scanAgent(q.db.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1`, id))
}

// GetAgentsByIDs returns the agents that exist, keyed by id.
func (q *Queries) GetAgentsByIDs(ctx context.Context, ids []string) (map[string]*Agent, error) {
	out := make(map[string]*Agent, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

func (q *Queries) ListActiveAgents(ctx context.Context, limit int) ([]Agent, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE status = 'active' ORDER BY created_at ASC, id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Agent, 0)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateAgentProfile(ctx context.Context, id string, p AgentProfile) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE agents SET job_code = $2, energy = $3, mood = $4, stress = $5, curiosity = $6, coach_note = $7 WHERE id = $1`,
		id, p.JobCode, p.Stats.Energy, p.Stats.Mood, p.Stats.Stress, p.Stats.Curiosity, p.CoachNote)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *Queries) SetAgentStatus(ctx context.Context, id, status string) error {
	tag, err := q.db.Exec(ctx, `UPDATE agents SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
