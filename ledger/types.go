/*
Package ledger is the core money-movement engine.

PURPOSE:
  This package contains the domain types and algorithms for a mobile-money
  ledger: accounts, immutable ledger entries, derived balances, and the four
  movement operations (deposit, withdrawal, transfer, merchant payment).

KEY CONCEPTS IN THIS FILE (types.go):
  - Entry: An immutable ledger record of one money movement
  - Account: A user's money-holding anchor (never stores a balance)
  - Merchant: A payee identified by a short unique code (e.g. PAY535)
  - Limits: Configured minimum/maximum transaction amounts

DESIGN PRINCIPLES:
  1. Immutability: Entries are never updated or deleted, only appended
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Derived balance: Balance is always recomputed from entries
  4. Auditability: Every entry carries a unique human-readable reference

SEE ALSO:
  - engine.go: Movement operations
  - balance.go: Balance calculation from entries
  - store.go: Persistence interfaces
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type EntryID string
type MerchantID string
type UserID string

// =============================================================================
// ENTRY - Immutable record of one money movement
// =============================================================================

type EntryKind string

const (
	KindDeposit         EntryKind = "deposit"          // Cash-in by a distributor
	KindWithdrawal      EntryKind = "withdrawal"       // Cash-out by a distributor
	KindTransferDebit   EntryKind = "transfer_debit"   // Sender side of a transfer
	KindTransferCredit  EntryKind = "transfer_credit"  // Recipient side of a transfer
	KindMerchantPayment EntryKind = "merchant_payment" // Payment to a merchant by code
)

// IsCredit reports whether the kind adds to an account's balance.
func (k EntryKind) IsCredit() bool {
	return k == KindDeposit || k == KindTransferCredit
}

// Valid reports whether the kind is one of the five movement kinds.
func (k EntryKind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindTransferDebit, KindTransferCredit, KindMerchantPayment:
		return true
	}
	return false
}

// Entry is one immutable fact that money moved.
//
// INVARIANTS:
//   - Amount > 0 always; the kind decides credit vs debit.
//   - Reference is unique across the entire ledger.
//   - MerchantID is set iff Kind == KindMerchantPayment.
//   - Created exactly once by the Engine; never updated or deleted.
type Entry struct {
	ID         EntryID
	AccountID  AccountID
	Kind       EntryKind
	Amount     decimal.Decimal
	Reference  string
	MerchantID *MerchantID
	CreatedAt  time.Time
}

// Signed returns the entry amount with its balance effect applied:
// positive for credits, negative for debits.
func (e Entry) Signed() decimal.Decimal {
	if e.Kind.IsCredit() {
		return e.Amount
	}
	return e.Amount.Neg()
}

// =============================================================================
// ACCOUNT - One user's money-holding anchor
// =============================================================================

// Account never stores a balance. Balance is always derived from entries.
// Exactly one account exists per owner, created when the owner is registered.
type Account struct {
	ID        AccountID
	OwnerID   UserID
	Phone     string // canonical form, unique
	CreatedAt time.Time
}

// =============================================================================
// MERCHANT - Payee resolved by unique code
// =============================================================================

// Merchant records are maintained by an external administrative process
// and are read-only to the engine.
type Merchant struct {
	ID   MerchantID
	Code string
	Name string
}

// =============================================================================
// LIMITS - Configured amount bounds for all movement operations
// =============================================================================

type Limits struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// DefaultLimits mirrors the production policy: 100 to 1,000,000.
func DefaultLimits() Limits {
	return Limits{
		Min: decimal.NewFromInt(100),
		Max: decimal.NewFromInt(1_000_000),
	}
}

// Allows reports whether amount is positive and within [Min, Max].
func (l Limits) Allows(amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}
	return amount.GreaterThanOrEqual(l.Min) && amount.LessThanOrEqual(l.Max)
}

// MustAmount parses a decimal string, panicking on malformed input.
// Intended for constants and tests.
func MustAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
