/*
balance.go - Derived balance calculation

PURPOSE:
  Answers "how much money does this account hold?" by replaying the
  account's entry log. There is no stored balance column anywhere: the
  ledger is the source of truth and the balance is always recomputed.

  balance = sum(deposit, transfer_credit) - sum(withdrawal, transfer_debit, merchant_payment)

  A correct engine never lets this go negative; sufficiency is checked
  before every debit inside the same unit of work as the append.
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// SumEntries folds an entry log into a balance: credits minus debits.
func SumEntries(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Signed())
	}
	return total
}

// =============================================================================
// BALANCE CALCULATOR
// =============================================================================

// BalanceCalculator derives point-in-time balances from the entry log.
// Reads have no side effects and are idempotent.
type BalanceCalculator struct {
	Store Store
}

func NewBalanceCalculator(store Store) *BalanceCalculator {
	return &BalanceCalculator{Store: store}
}

// Balance recomputes the account's balance from all of its entries.
// Fails with ErrAccountNotFound if the id does not resolve.
func (bc *BalanceCalculator) Balance(ctx context.Context, id AccountID) (decimal.Decimal, error) {
	account, err := bc.Store.AccountByID(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	if account == nil {
		return decimal.Zero, ErrAccountNotFound
	}

	entries, err := bc.Store.Entries(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return SumEntries(entries), nil
}
