package store

import (
	"context"
	"errors"
)

func (q *Queries) EnsureAccount(ctx context.Context, agentID string, initial int64) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO accounts (agent_id, balance_cc) VALUES ($1, $2) ON CONFLICT (agent_id) DO NOTHING`,
		agentID, initial)
	return err
}

func (q *Queries) GetAccountBalance(ctx context.Context, agentID string) (int64, error) {
	var bal int64
	if err := q.db.QueryRow(ctx,
		`SELECT balance_cc FROM accounts WHERE agent_id = $1`, agentID).Scan(&bal); err != nil {
		return 0, mapNotFound(err)
	}
	return bal, nil
}

func (q *Queries) getAccountBalanceForUpdate(ctx context.Context, agentID string) (int64, error) {
	var bal int64
	if err := q.db.QueryRow(ctx,
		`SELECT balance_cc FROM accounts WHERE agent_id = $1 FOR UPDATE`, agentID).Scan(&bal); err != nil {
		return 0, mapNotFound(err)
	}
	return bal, nil
}

// GetAccountBalanceForUpdate locks the account row for the rest of the transaction.
func (q *Queries) GetAccountBalanceForUpdate(ctx context.Context, agentID string) (int64, error) {
	if !q.Transactional() {
		return 0, ErrNoTx
	}
	return q.getAccountBalanceForUpdate(ctx, agentID)
}

// Debit removes amount from the account and writes a negative ledger entry.
// It must run inside a transaction.
func (q *Queries) Debit(ctx context.Context, agentID string, amount int64, entryType, refType, refID string) (int64, error) {
	if amount < 0 {
		return 0, errors.New("amount must be positive")
	}
	if !q.Transactional() {
		return 0, ErrNoTx
	}
	bal, err := q.getAccountBalanceForUpdate(ctx, agentID)
	if err != nil {
		return 0, err
	}
	if bal < amount {
		return 0, ErrInsufficientBalance
	}
	newBal := bal - amount
	if err := q.setBalance(ctx, agentID, newBal); err != nil {
		return 0, err
	}
	if err := q.insertLedgerEntry(ctx, agentID, entryType, -amount, refType, refID); err != nil {
		return 0, err
	}
	return newBal, nil
}

// Credit adds amount to the account and writes a positive ledger entry.
// It must run inside a transaction.
func (q *Queries) Credit(ctx context.Context, agentID string, amount int64, entryType, refType, refID string) (int64, error) {
	if amount < 0 {
		return 0, errors.New("amount must be positive")
	}
	if !q.Transactional() {
		return 0, ErrNoTx
	}
	bal, err := q.getAccountBalanceForUpdate(ctx, agentID)
	if err != nil {
		return 0, err
	}
	newBal := bal + amount
	if err := q.setBalance(ctx, agentID, newBal); err != nil {
		return 0, err
	}
	if err := q.insertLedgerEntry(ctx, agentID, entryType, amount, refType, refID); err != nil {
		return 0, err
	}
	return newBal, nil
}

func (q *Queries) setBalance(ctx context.Context, agentID string, balance int64) error {
	_, err := q.db.Exec(ctx,
		`UPDATE accounts SET balance_cc = $2, updated_at = NOW() WHERE agent_id = $1`,
		agentID, balance)
	return err
}

// Debit runs a standalone debit in its own transaction.
func (s *Store) Debit(ctx context.Context, agentID string, amount int64, entryType, refType, refID string) (int64, error) {
	var bal int64
	err := s.InTx(ctx, func(q *Queries) error {
		var err error
		bal, err = q.Debit(ctx, agentID, amount, entryType, refType, refID)
		return err
	})
	return bal, err
}

// Credit runs a standalone credit in its own transaction.
func (s *Store) Credit(ctx context.Context, agentID string, amount int64, entryType, refType, refID string) (int64, error) {
	var bal int64
	err := s.InTx(ctx, func(q *Queries) error {
		var err error
		bal, err = q.Credit(ctx, agentID, amount, entryType, refType, refID)
		return err
	})
	return bal, err
}
