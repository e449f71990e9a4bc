package store

import (
	"context"
	"encoding/json"
	"fmt"

	"limbopet-arena/internal/arena/sim"

	"github.com/jackc/pgx/v5"
)

const matchColumns = `id, season_id, day::text, slot, mode, status, seed, meta, created_at, updated_at`

func scanMatch(row pgx.Row) (*Match, error) {
	var (
		m    Match
		mode string
		st   string
		raw  []byte
	)
	if err := row.Scan(&m.ID, &m.SeasonID, &m.Day, &m.Slot, &mode, &st, &m.Seed, &raw, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, mapNotFound(err)
	}
	m.Mode = sim.Mode(mode)
	m.Status = MatchStatus(st)
	meta, err := decodeMeta(raw)
	if err != nil {
		return nil, fmt.Errorf("decode meta for match %s: %w", m.ID, err)
	}
	m.Meta = meta
	return &m, nil
}

func collectMatches(rows pgx.Rows) ([]Match, error) {
	defer rows.Close()
	out := make([]Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (q *Queries) CreateMatch(ctx context.Context, in NewMatch) (*Match, error) {
	meta, err := json.Marshal(in.Meta)
	if err != nil {
		return nil, err
	}
	return scanMatch(q.db.QueryRow(ctx,
		`INSERT INTO arena_matches (id, season_id, day, slot, mode, status, seed, meta)
		 VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8::jsonb)
		 RETURNING `+matchColumns,
		NewID(), in.SeasonID, in.Day, in.Slot, string(in.Mode), string(in.Status), in.Seed, meta))
}

func (q *Queries) GetMatch(ctx context.Context, id string) (*Match, error) {
	return scanMatch(q.db.QueryRow(ctx, `SELECT `+matchColumns+` FROM arena_matches WHERE id = $1`, id))
}

// GetMatchForUpdate row-locks the match until the transaction ends.
func (q *Queries) GetMatchForUpdate(ctx context.Context, id string) (*Match, error) {
	if !q.Transactional() {
		return nil, ErrNoTx
	}
	return scanMatch(q.db.QueryRow(ctx, `SELECT `+matchColumns+` FROM arena_matches WHERE id = $1 FOR UPDATE`, id))
}

func (q *Queries) GetMatchBySlotForUpdate(ctx context.Context, day string, slot int) (*Match, error) {
	if !q.Transactional() {
		return nil, ErrNoTx
	}
	return scanMatch(q.db.QueryRow(ctx,
		`SELECT `+matchColumns+` FROM arena_matches WHERE day = $1::date AND slot = $2 FOR UPDATE`, day, slot))
}

func (q *Queries) ListMatchesByDay(ctx context.Context, day string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+matchColumns+` FROM arena_matches WHERE day = $1::date ORDER BY slot ASC, created_at ASC LIMIT $2`,
		day, limit)
	if err != nil {
		return nil, err
	}
	return collectMatches(rows)
}

// FindActiveMatchForAgent returns a live or scheduled match on day in mode with
// the agent in its cast, or ErrNotFound.
func (q *Queries) FindActiveMatchForAgent(ctx context.Context, day string, mode sim.Mode, agentID string) (*Match, error) {
	return scanMatch(q.db.QueryRow(ctx,
		`SELECT `+matchColumns+` FROM arena_matches
		 WHERE day = $1::date AND mode = $2 AND status IN ('live', 'scheduled')
		   AND (meta->'cast'->>'a_id' = $3 OR meta->'cast'->>'b_id' = $3)
		 ORDER BY slot ASC LIMIT 1`,
		day, string(mode), agentID))
}

// ListBusyAgentIDs returns agents cast in any live or scheduled match on day.
func (q *Queries) ListBusyAgentIDs(ctx context.Context, day string) (map[string]bool, error) {
	rows, err := q.db.Query(ctx,
		`SELECT meta->'cast'->>'a_id', meta->'cast'->>'b_id' FROM arena_matches
		 WHERE day = $1::date AND status IN ('live', 'scheduled')`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var a, b *string
		if err := rows.Scan(&a, &b); err != nil {
			return nil, err
		}
		if a != nil {
			out[*a] = true
		}
		if b != nil {
			out[*b] = true
		}
	}
	return out, rows.Err()
}

// CountExposures counts matches per agent on day regardless of status.
func (q *Queries) CountExposures(ctx context.Context, day string) (map[string]int, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, n FROM (
		   SELECT meta->'cast'->>'a_id' AS id, COUNT(*) AS n FROM arena_matches WHERE day = $1::date GROUP BY 1
		   UNION ALL
		   SELECT meta->'cast'->>'b_id' AS id, COUNT(*) AS n FROM arena_matches WHERE day = $1::date GROUP BY 1
		 ) t WHERE id IS NOT NULL`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] += n
	}
	return out, rows.Err()
}

// ListPairsSince returns unordered cast pairs ("x|y" with x<y) of matches on or after day.
func (q *Queries) ListPairsSince(ctx context.Context, day string) (map[string]string, error) {
	rows, err := q.db.Query(ctx,
		`SELECT meta->'cast'->>'a_id', meta->'cast'->>'b_id', day::text FROM arena_matches
		 WHERE day >= $1::date AND meta->'cast' IS NOT NULL
		 ORDER BY day ASC`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var a, b *string
		var d string
		if err := rows.Scan(&a, &b, &d); err != nil {
			return nil, err
		}
		if a == nil || b == nil {
			continue
		}
		out[PairKey(*a, *b)] = d
	}
	return out, rows.Err()
}

func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func (q *Queries) MaxSlot(ctx context.Context, day string) (int, error) {
	var n int
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(slot), 0) FROM arena_matches WHERE day = $1::date`, day).Scan(&n)
	return n, err
}

// UpdateMatch writes status and meta together.
func (q *Queries) UpdateMatch(ctx context.Context, m *Match) error {
	meta, err := json.Marshal(m.Meta)
	if err != nil {
		return err
	}
	tag, err := q.db.Exec(ctx,
		`UPDATE arena_matches SET status = $2, meta = $3::jsonb, updated_at = NOW() WHERE id = $1`,
		m.ID, string(m.Status), meta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *Queries) UpdateMatchMeta(ctx context.Context, id string, meta MatchMeta) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	tag, err := q.db.Exec(ctx,
		`UPDATE arena_matches SET meta = $2::jsonb, updated_at = NOW() WHERE id = $1`, id, b)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *Queries) UpdateMatchStatus(ctx context.Context, id string, status MatchStatus) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE arena_matches SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *Queries) InsertParticipant(ctx context.Context, p Participant) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO arena_match_participants
		   (match_id, agent_id, score, outcome, wager, fee_burned, coins_net, rating_before, rating_after, rating_delta)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (match_id, agent_id) DO NOTHING`,
		p.MatchID, p.AgentID, p.Score, p.Outcome, p.Wager, p.FeeBurned, p.CoinsNet,
		p.RatingBefore, p.RatingAfter, p.RatingDelta)
	return err
}

const participantColumns = `p.match_id, p.agent_id, p.score, p.outcome, p.wager, p.fee_burned, p.coins_net,
	p.rating_before, p.rating_after, p.rating_delta, p.created_at`

func (q *Queries) ListParticipants(ctx context.Context, matchID string) ([]Participant, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+participantColumns+` FROM arena_match_participants p WHERE p.match_id = $1 ORDER BY p.agent_id`, matchID)
	if err != nil {
		return nil, err
	}
	return collectParticipants(rows)
}

// ListParticipantsByMatches groups participants by match id, winners first.
func (q *Queries) ListParticipantsByMatches(ctx context.Context, matchIDs []string) (map[string][]Participant, error) {
	out := make(map[string][]Participant, len(matchIDs))
	if len(matchIDs) == 0 {
		return out, nil
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+participantColumns+` FROM arena_match_participants p
		 WHERE p.match_id = ANY($1)
		 ORDER BY p.match_id, p.outcome = 'win' DESC, p.score DESC`, matchIDs)
	if err != nil {
		return nil, err
	}
	parts, err := collectParticipants(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range parts {
		out[p.MatchID] = append(out[p.MatchID], p)
	}
	return out, nil
}

func collectParticipants(rows pgx.Rows) ([]Participant, error) {
	defer rows.Close()
	out := make([]Participant, 0, 2)
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.MatchID, &p.AgentID, &p.Score, &p.Outcome, &p.Wager, &p.FeeBurned, &p.CoinsNet,
			&p.RatingBefore, &p.RatingAfter, &p.RatingDelta, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListModeStats aggregates the agent's resolved matches per mode.
func (q *Queries) ListModeStats(ctx context.Context, agentID string) ([]ModeStat, error) {
	rows, err := q.db.Query(ctx,
		`SELECT m.mode,
		        COUNT(*)::int,
		        COUNT(*) FILTER (WHERE p.outcome = 'win')::int,
		        COUNT(*) FILTER (WHERE p.outcome IN ('lose', 'forfeit'))::int,
		        COUNT(*) FILTER (WHERE p.outcome = 'draw')::int
		 FROM arena_match_participants p
		 JOIN arena_matches m ON m.id = p.match_id
		 WHERE p.agent_id = $1 AND m.status = 'resolved'
		 GROUP BY m.mode
		 ORDER BY m.mode`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ModeStat, 0)
	for rows.Next() {
		var st ModeStat
		var mode string
		if err := rows.Scan(&mode, &st.Total, &st.Wins, &st.Losses, &st.Draws); err != nil {
			return nil, err
		}
		st.Mode = sim.Mode(mode)
		out = append(out, st)
	}
	return out, rows.Err()
}

// ListAgentHistory returns the agent's participations, newest first.
func (q *Queries) ListAgentHistory(ctx context.Context, agentID string, limit int) ([]HistoryItem, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+participantColumns+`,
		        m.day::text, m.mode, m.status, COALESCE(m.meta->>'headline', ''),
		        COALESCE(o.agent_id, ''), COALESCE(oa.name, ''), COALESCE(o.rating_before, 0)
		 FROM arena_match_participants p
		 JOIN arena_matches m ON m.id = p.match_id
		 LEFT JOIN arena_match_participants o ON o.match_id = p.match_id AND o.agent_id <> p.agent_id
		 LEFT JOIN agents oa ON oa.id = o.agent_id
		 WHERE p.agent_id = $1
		 ORDER BY p.created_at DESC, p.match_id DESC
		 LIMIT $2`, agentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]HistoryItem, 0)
	for rows.Next() {
		var h HistoryItem
		var mode, st string
		if err := rows.Scan(&h.MatchID, &h.AgentID, &h.Score, &h.Outcome, &h.Wager, &h.FeeBurned, &h.CoinsNet,
			&h.RatingBefore, &h.RatingAfter, &h.RatingDelta, &h.CreatedAt,
			&h.Day, &mode, &st, &h.Headline,
			&h.OpponentID, &h.OpponentName, &h.OpponentRatingBefore); err != nil {
			return nil, err
		}
		h.Mode = sim.Mode(mode)
		h.Status = MatchStatus(st)
		out = append(out, h)
	}
	return out, rows.Err()
}
