/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is / errors.As; the HTTP layer maps these
  to status codes.

ERROR CATEGORIES:
  1. Not-found errors - client/account/merchant/entry absent
  2. Validation errors - business rule violations (amount, self transfer)
  3. Store errors - reference conflicts, timeouts, connectivity

SEE ALSO:
  - engine.go: Produces most of these
  - store.go: Store implementations translate driver errors to these
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrClientNotFound is returned when no client matches the given
	// phone identifier or user id.
	ErrClientNotFound = errors.New("client not found")

	// ErrAccountNotFound is returned when a client exists but has no
	// account, or an account id does not resolve.
	ErrAccountNotFound = errors.New("account not found")

	// ErrMerchantNotFound is returned when no merchant matches the code.
	ErrMerchantNotFound = errors.New("merchant not found")

	// ErrEntryNotFound is returned when a ledger entry is absent or not
	// visible to the requesting role.
	ErrEntryNotFound = errors.New("transaction not found")

	// ErrAmountOutOfRange is returned when an amount is not positive or
	// falls outside the configured minimum/maximum bounds.
	ErrAmountOutOfRange = errors.New("amount out of range")

	// ErrInsufficientFunds is returned when the derived balance cannot
	// cover the requested debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSelfTransfer is returned when sender and recipient resolve to
	// the same account.
	ErrSelfTransfer = errors.New("self transfer forbidden")

	// ErrAccountExists is returned when provisioning would create a
	// second account for the same owner or phone.
	ErrAccountExists = errors.New("account already exists")

	// ErrDuplicateReference is returned by stores when an appended entry
	// collides with an existing reference. The engine retries with a
	// fresh reference; callers should not see this under normal operation.
	ErrDuplicateReference = errors.New("duplicate reference")

	// ErrStoreUnavailable is returned when the ledger store times out or
	// cannot be reached, and after the reference retry budget is spent.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError reports how short the account is.
type InsufficientFundsError struct {
	AccountID AccountID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s, requested %s",
		e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// AmountRangeError reports the violated bounds.
type AmountRangeError struct {
	Amount decimal.Decimal
	Limits Limits
}

func (e *AmountRangeError) Error() string {
	return fmt.Sprintf("amount %s outside allowed range [%s, %s]",
		e.Amount.StringFixed(2), e.Limits.Min.StringFixed(2), e.Limits.Max.StringFixed(2))
}

func (e *AmountRangeError) Unwrap() error {
	return ErrAmountOutOfRange
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrMerchantNotFound) ||
		errors.Is(err, ErrEntryNotFound)
}

// IsClientError returns true if the error is due to invalid caller input
// or a business rule, as opposed to a technical failure.
func IsClientError(err error) bool {
	return IsNotFound(err) ||
		errors.Is(err, ErrAmountOutOfRange) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrSelfTransfer) ||
		errors.Is(err, ErrAccountExists)
}

// IsRetryable returns true for purely technical conflicts that might
// succeed on retry. Business failures are never retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDuplicateReference)
}
