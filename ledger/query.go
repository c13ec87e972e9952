/*
query.go - Read paths: balance, single entry, paginated history

All reads are side-effect free. Single-entry lookup applies the role's
kind-visibility policy (see roles.go): an entry that exists but is outside
the requesting role's visible kinds reads as not found, so the policy
cannot be probed.
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// QUERIES
// =============================================================================

type Queries struct {
	Store    Store
	Balances *BalanceCalculator
}

func NewQueries(store Store) *Queries {
	return &Queries{
		Store:    store,
		Balances: NewBalanceCalculator(store),
	}
}

// Balance delegates to the balance calculator.
func (q *Queries) Balance(ctx context.Context, id AccountID) (decimal.Decimal, error) {
	return q.Balances.Balance(ctx, id)
}

// BalanceByOwner resolves the owner's account and returns its balance.
func (q *Queries) BalanceByOwner(ctx context.Context, owner UserID) (decimal.Decimal, error) {
	account, err := q.Store.AccountByOwner(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}
	if account == nil {
		return decimal.Zero, ErrAccountNotFound
	}
	return q.Balances.Balance(ctx, account.ID)
}

// Entry returns one ledger entry, subject to the role's visibility.
// Absent and invisible are indistinguishable to the caller.
func (q *Queries) Entry(ctx context.Context, id EntryID, role Role) (*Entry, error) {
	entry, err := q.Store.EntryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil || !role.CanView(entry.Kind) {
		return nil, ErrEntryNotFound
	}
	return entry, nil
}

// History returns the account's entries, newest first, paginated.
// Fails with ErrAccountNotFound when the account does not exist.
func (q *Queries) History(ctx context.Context, id AccountID, page, pageSize int) ([]Entry, error) {
	account, err := q.Store.AccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	return q.Store.List(ctx, EntryFilter{
		AccountID: id,
		Page:      page,
		PageSize:  pageSize,
	})
}

// HistoryByOwner resolves the owner's account and returns its history.
func (q *Queries) HistoryByOwner(ctx context.Context, owner UserID, page, pageSize int) ([]Entry, error) {
	account, err := q.Store.AccountByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return q.History(ctx, account.ID, page, pageSize)
}

// ScopedEntries returns the ledger entries visible to the role across all
// accounts, newest first, paginated. This backs the distributor listing.
func (q *Queries) ScopedEntries(ctx context.Context, role Role, page, pageSize int) ([]Entry, error) {
	return q.Store.List(ctx, EntryFilter{
		Kinds:    role.VisibleKinds(),
		Page:     page,
		PageSize: pageSize,
	})
}
