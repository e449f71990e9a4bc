// Package ledger moves arena coins through store accounts. Every function
// runs on a transaction-bound *store.Queries so payouts commit or roll back
// with the resolution that caused them.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"limbopet-arena/internal/arena/sim"
	"limbopet-arena/internal/store"
)

const (
	RefTypeMatch   = "arena_match"
	RefTypeRematch = "arena_rematch"

	EntryWagerLoss     = "arena_wager_loss"
	EntryWagerWin      = "arena_wager_win"
	EntryFeeBurn       = "arena_fee_burn"
	EntryPredictPayout = "arena_predict_payout"
	EntryRematchFee    = "arena_rematch_fee"

	WagerMin = 1
	WagerMax = 5
	FeePct   = 15
)

// StakePlan is fixed when a match is created.
type StakePlan struct {
	Wager   int64
	FeePlan int64
	FeePct  int
}

// PlanStake draws the wager from the match seed. Revenge matches double it.
func PlanStake(seed string, revenge bool) StakePlan {
	wager := int64(sim.SeededInt(seed, "wager", WagerMin, WagerMax))
	if revenge {
		wager *= 2
	}
	return StakePlan{Wager: wager, FeePlan: feeFor(wager, FeePct), FeePct: FeePct}
}

func feeFor(wager int64, pct int) int64 {
	if pct <= 0 || wager <= 0 {
		return 0
	}
	fee := wager * int64(pct) / 100
	if fee == 0 && wager >= 3 {
		fee = 1
	}
	if fee > wager {
		fee = wager
	}
	return fee
}

// Settlement is what actually moved.
type Settlement struct {
	Amount   int64
	Fee      int64
	ToWinner int64
	Forfeit  bool
}

// ComputeSettlement caps the plan by the loser's balance. A loser with
// nothing to pay forfeits the stake.
func ComputeSettlement(plan StakePlan, loserBalance int64) Settlement {
	if loserBalance < 0 {
		loserBalance = 0
	}
	amount := plan.Wager
	if loserBalance < amount {
		amount = loserBalance
	}
	if amount < 0 {
		amount = 0
	}
	var fee int64
	if amount > 1 {
		fee = plan.FeePlan
		if fee > amount-1 {
			fee = amount - 1
		}
		if fee < 0 {
			fee = 0
		}
	}
	return Settlement{
		Amount:   amount,
		Fee:      fee,
		ToWinner: amount - fee,
		Forfeit:  amount == 0,
	}
}

// SettleStake transfers the stake from loser to winner and burns the fee.
// Any failure is returned so the caller can abort the whole resolution.
func SettleStake(ctx context.Context, q *store.Queries, matchID, winnerID, loserID string, plan StakePlan) (Settlement, error) {
	if err := q.EnsureAccount(ctx, winnerID, 0); err != nil {
		return Settlement{}, fmt.Errorf("ensure winner account: %w", err)
	}
	if err := q.EnsureAccount(ctx, loserID, 0); err != nil {
		return Settlement{}, fmt.Errorf("ensure loser account: %w", err)
	}
	bal, err := q.GetAccountBalanceForUpdate(ctx, loserID)
	if err != nil {
		return Settlement{}, fmt.Errorf("lock loser balance: %w", err)
	}
	s := ComputeSettlement(plan, bal)
	if s.ToWinner > 0 {
		if _, err := q.Debit(ctx, loserID, s.ToWinner, EntryWagerLoss, RefTypeMatch, matchID); err != nil {
			return Settlement{}, fmt.Errorf("debit loser: %w", err)
		}
		if _, err := q.Credit(ctx, winnerID, s.ToWinner, EntryWagerWin, RefTypeMatch, matchID); err != nil {
			return Settlement{}, fmt.Errorf("credit winner: %w", err)
		}
	}
	if s.Fee > 0 {
		if _, err := q.Debit(ctx, loserID, s.Fee, EntryFeeBurn, RefTypeMatch, matchID); err != nil {
			return Settlement{}, fmt.Errorf("burn fee: %w", err)
		}
	}
	return s, nil
}

// MintPayout credits newly minted coins, such as a prediction pot share.
func MintPayout(ctx context.Context, q *store.Queries, agentID, matchID string, amount int64) error {
	if amount <= 0 {
		return nil
	}
	if err := q.EnsureAccount(ctx, agentID, 0); err != nil {
		return err
	}
	_, err := q.Credit(ctx, agentID, amount, EntryPredictPayout, RefTypeMatch, matchID)
	return err
}

// ErrInsufficientFunds is returned when a fee cannot be covered.
var ErrInsufficientFunds = errors.New("insufficient_funds")

// BurnRematchFee destroys the rematch fee from the requester's balance.
func BurnRematchFee(ctx context.Context, q *store.Queries, agentID, matchID string, fee int64) error {
	if fee <= 0 {
		return nil
	}
	if _, err := q.Debit(ctx, agentID, fee, EntryRematchFee, RefTypeRematch, matchID); err != nil {
		if errors.Is(err, store.ErrInsufficientBalance) || errors.Is(err, store.ErrNotFound) {
			return ErrInsufficientFunds
		}
		return err
	}
	return nil
}
