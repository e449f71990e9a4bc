package store

import "context"

// InsertRecapPost stores the recap for a match; a second insert for the same
// match returns the existing post id.
func (q *Queries) InsertRecapPost(ctx context.Context, matchID, title, body string) (string, error) {
	var id string
	err := q.db.QueryRow(ctx,
		`INSERT INTO arena_recap_posts (id, match_id, title, body) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (match_id) DO UPDATE SET match_id = EXCLUDED.match_id
		 RETURNING id`,
		NewID(), matchID, title, body).Scan(&id)
	return id, err
}

func (q *Queries) GetRecapPostByMatch(ctx context.Context, matchID string) (RecapPost, error) {
	var p RecapPost
	err := q.db.QueryRow(ctx,
		`SELECT id, match_id, title, body, created_at FROM arena_recap_posts WHERE match_id = $1`, matchID).
		Scan(&p.ID, &p.MatchID, &p.Title, &p.Body, &p.CreatedAt)
	if err != nil {
		return RecapPost{}, mapNotFound(err)
	}
	return p, nil
}
