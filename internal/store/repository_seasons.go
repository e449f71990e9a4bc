package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	MinRating = 400
	MaxRating = 4000
)

// SeasonWindow maps a day to its ISO-week season: code S{isoYear}W{ww},
// running Monday through Sunday.
func SeasonWindow(day string) (code, startsOn, endsOn string, err error) {
	t, err := ParseDay(day)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid day %q: %w", day, err)
	}
	year, week := t.ISOWeek()
	offset := (int(t.Weekday()) + 6) % 7
	start := t.AddDate(0, 0, -offset)
	end := start.AddDate(0, 0, 6)
	return fmt.Sprintf("S%04dW%02d", year, week), FormatDay(start), FormatDay(end), nil
}

// EnsureSeasonForDay returns the season covering day, creating it if needed.
// Concurrent creators converge on the same row.
func (q *Queries) EnsureSeasonForDay(ctx context.Context, day string) (Season, error) {
	code, startsOn, endsOn, err := SeasonWindow(day)
	if err != nil {
		return Season{}, err
	}
	s, err := q.GetSeasonByCode(ctx, code)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Season{}, err
	}
	row := q.db.QueryRow(ctx,
		`INSERT INTO arena_seasons (id, code, starts_on, ends_on)
		 VALUES ($1, $2, $3::date, $4::date)
		 ON CONFLICT (code) DO NOTHING
		 RETURNING id, code, starts_on::text, ends_on::text`,
		NewID(), code, startsOn, endsOn)
	if err := row.Scan(&s.ID, &s.Code, &s.StartsOn, &s.EndsOn); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return q.GetSeasonByCode(ctx, code)
		}
		return Season{}, err
	}
	return s, nil
}

func (q *Queries) GetSeasonByCode(ctx context.Context, code string) (Season, error) {
	var s Season
	err := q.db.QueryRow(ctx,
		`SELECT id, code, starts_on::text, ends_on::text FROM arena_seasons WHERE code = $1`, code).
		Scan(&s.ID, &s.Code, &s.StartsOn, &s.EndsOn)
	if err != nil {
		return Season{}, mapNotFound(err)
	}
	return s, nil
}

const ratingColumns = `season_id, agent_id, rating, wins, losses, streak, updated_at`

func scanRating(row pgx.Row) (Rating, error) {
	var r Rating
	if err := row.Scan(&r.SeasonID, &r.AgentID, &r.Rating, &r.Wins, &r.Losses, &r.Streak, &r.UpdatedAt); err != nil {
		return Rating{}, err
	}
	r.Persisted = true
	return r, nil
}

func defaultRating(seasonID, agentID string) Rating {
	return Rating{SeasonID: seasonID, AgentID: agentID, Rating: DefaultRating}
}

// GetRating returns the stored rating or the unpersisted default.
func (q *Queries) GetRating(ctx context.Context, seasonID, agentID string) (Rating, error) {
	r, err := scanRating(q.db.QueryRow(ctx,
		`SELECT `+ratingColumns+` FROM arena_ratings WHERE season_id = $1 AND agent_id = $2`,
		seasonID, agentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return defaultRating(seasonID, agentID), nil
	}
	return r, err
}

// LockRating materializes the rating row if missing and locks it.
func (q *Queries) LockRating(ctx context.Context, seasonID, agentID string) (Rating, error) {
	if !q.Transactional() {
		return Rating{}, ErrNoTx
	}
	if _, err := q.db.Exec(ctx,
		`INSERT INTO arena_ratings (season_id, agent_id, rating) VALUES ($1, $2, $3)
		 ON CONFLICT (season_id, agent_id) DO NOTHING`,
		seasonID, agentID, DefaultRating); err != nil {
		return Rating{}, err
	}
	return scanRating(q.db.QueryRow(ctx,
		`SELECT `+ratingColumns+` FROM arena_ratings WHERE season_id = $1 AND agent_id = $2 FOR UPDATE`,
		seasonID, agentID))
}

func (q *Queries) UpsertRating(ctx context.Context, r Rating) error {
	if r.Rating < MinRating {
		r.Rating = MinRating
	}
	if r.Rating > MaxRating {
		r.Rating = MaxRating
	}
	_, err := q.db.Exec(ctx,
		`INSERT INTO arena_ratings (season_id, agent_id, rating, wins, losses, streak, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (season_id, agent_id) DO UPDATE
		 SET rating = EXCLUDED.rating, wins = EXCLUDED.wins, losses = EXCLUDED.losses,
		     streak = EXCLUDED.streak, updated_at = NOW()`,
		r.SeasonID, r.AgentID, r.Rating, r.Wins, r.Losses, r.Streak)
	return err
}

// RatingsForAgents returns ratings keyed by agent id, filling defaults for agents without a row.
func (q *Queries) RatingsForAgents(ctx context.Context, seasonID string, agentIDs []string) (map[string]Rating, error) {
	out := make(map[string]Rating, len(agentIDs))
	for _, id := range agentIDs {
		out[id] = defaultRating(seasonID, id)
	}
	if len(agentIDs) == 0 {
		return out, nil
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+ratingColumns+` FROM arena_ratings WHERE season_id = $1 AND agent_id = ANY($2)`,
		seasonID, agentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		out[r.AgentID] = r
	}
	return out, rows.Err()
}

func (q *Queries) ListLeaderboard(ctx context.Context, seasonID string, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.db.Query(ctx,
		`SELECT r.agent_id, a.name, r.rating, r.wins, r.losses, r.streak
		 FROM arena_ratings r
		 JOIN agents a ON a.id = r.agent_id
		 WHERE r.season_id = $1
		 ORDER BY r.rating DESC, r.wins DESC, r.agent_id ASC
		 LIMIT $2`, seasonID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LeaderboardEntry, 0)
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.AgentID, &e.Name, &e.Rating, &e.Wins, &e.Losses, &e.Streak); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Today returns the current UTC day.
func Today(now time.Time) string {
	return FormatDay(now)
}
