package store

import "context"

func (q *Queries) insertLedgerEntry(ctx context.Context, agentID, entryType string, amount int64, refType, refID string) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO ledger_entries (id, agent_id, type, amount_cc, ref_type, ref_id) VALUES ($1, $2, $3, $4, $5, $6)`,
		NewID(), agentID, entryType, amount, refType, refID)
	return err
}

func (q *Queries) ListLedgerEntries(ctx context.Context, agentID string, limit int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return q.queryLedger(ctx,
		`SELECT id, agent_id, type, amount_cc, ref_type, ref_id, created_at
		 FROM ledger_entries WHERE agent_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		agentID, limit)
}

func (q *Queries) ListLedgerEntriesByRef(ctx context.Context, refType, refID string) ([]LedgerEntry, error) {
	return q.queryLedger(ctx,
		`SELECT id, agent_id, type, amount_cc, ref_type, ref_id, created_at
		 FROM ledger_entries WHERE ref_type = $1 AND ref_id = $2 ORDER BY created_at ASC, id ASC`,
		refType, refID)
}

func (q *Queries) queryLedger(ctx context.Context, sql string, args ...any) ([]LedgerEntry, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LedgerEntry, 0)
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.AgentID, &e.Type, &e.AmountCC, &e.RefType, &e.RefID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
