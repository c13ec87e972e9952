/*
engine.go - The money movement engine

PURPOSE:
  Implements the four movement operations: deposit, withdrawal, transfer,
  and merchant payment. Each operation is Validate -> Append -> Commit
  inside one store transaction; any failure rolls the whole unit back so
  no entry is ever left half-committed.

CONCURRENCY:
  The balance-sufficiency check runs inside the same transaction as the
  append. Two concurrent withdrawals against the same account therefore
  cannot both pass the check against a stale balance: the store serializes
  the units of work and the second one sees the first one's entry.

RETRIES:
  Business failures (insufficient funds, not found) are never retried.
  Reference collisions are retried transparently with a fresh candidate,
  bounded by a small budget before surfacing ErrStoreUnavailable.

SEE ALSO:
  - balance.go: Derived balance used by the sufficiency check
  - reference.go: Candidate reference generation
  - query.go: Read paths
*/
package ledger

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// DefaultReferenceRetries bounds reference regeneration on collisions.
const DefaultReferenceRetries = 5

// AccountObserver is notified after an account is committed. It runs off
// the critical path and must never block or fail an engine operation.
type AccountObserver interface {
	AccountCreated(a Account)
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Store         TxStore
	Refs          References
	Limits        Limits
	CountryPrefix string
	RefRetries    int
	Observer      AccountObserver // optional

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewEngine(store TxStore, refs References, limits Limits, countryPrefix string) *Engine {
	if refs == nil {
		refs = NewReferenceGenerator(DefaultReferencePrefix, DefaultReferenceLength)
	}
	if countryPrefix == "" {
		countryPrefix = DefaultCountryPrefix
	}
	return &Engine{
		Store:         store,
		Refs:          refs,
		Limits:        limits,
		CountryPrefix: countryPrefix,
		RefRetries:    DefaultReferenceRetries,
		entropy:       ulid.Monotonic(rand.Reader, 0),
	}
}

func (e *Engine) newEntryID() EntryID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EntryID(ulid.MustNew(ulid.Timestamp(time.Now()), e.entropy).String())
}

// =============================================================================
// ACCOUNT PROVISIONING - contract exposed to the identity collaborator
// =============================================================================

// CreateAccount provisions exactly one account for a newly registered
// owner. The phone identifier is canonicalized before storage so later
// lookups resolve. The observer is notified asynchronously after commit.
func (e *Engine) CreateAccount(ctx context.Context, owner UserID, phone string) (*Account, error) {
	account := Account{
		ID:        AccountID(uuid.NewString()),
		OwnerID:   owner,
		Phone:     CanonicalPhone(phone, e.CountryPrefix),
		CreatedAt: time.Now().UTC(),
	}

	if err := e.Store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	if e.Observer != nil {
		go e.Observer.AccountCreated(account)
	}
	return &account, nil
}

// =============================================================================
// MOVEMENT OPERATIONS
// =============================================================================

// DepositInput identifies the client by phone; ActorID is the distributor
// performing the cash-in.
type DepositInput struct {
	Phone   string
	Amount  decimal.Decimal
	ActorID UserID
}

// Deposit appends one deposit entry to the client's account.
func (e *Engine) Deposit(ctx context.Context, in DepositInput) (*Entry, error) {
	if err := e.checkAmount(in.Amount); err != nil {
		return nil, err
	}

	var entry *Entry
	err := e.Store.WithTx(ctx, func(s Store) error {
		account, err := e.resolveByPhone(ctx, s, in.Phone)
		if err != nil {
			return err
		}

		var txErr error
		entry, txErr = e.append(ctx, s, Entry{
			AccountID: account.ID,
			Kind:      KindDeposit,
			Amount:    in.Amount,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

type WithdrawalInput struct {
	Phone   string
	Amount  decimal.Decimal
	ActorID UserID
}

// Withdraw appends one withdrawal entry after checking that the derived
// balance covers the amount. The check and the append share one unit of
// work, so concurrent withdrawals cannot jointly overdraw the account.
func (e *Engine) Withdraw(ctx context.Context, in WithdrawalInput) (*Entry, error) {
	if err := e.checkAmount(in.Amount); err != nil {
		return nil, err
	}

	var entry *Entry
	err := e.Store.WithTx(ctx, func(s Store) error {
		account, err := e.resolveByPhone(ctx, s, in.Phone)
		if err != nil {
			return err
		}

		if err := e.checkFunds(ctx, s, account.ID, in.Amount); err != nil {
			return err
		}

		var txErr error
		entry, txErr = e.append(ctx, s, Entry{
			AccountID: account.ID,
			Kind:      KindWithdrawal,
			Amount:    in.Amount,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

type TransferInput struct {
	SenderPhone    string
	RecipientPhone string
	Amount         decimal.Decimal
}

// TransferResult carries both sides of a committed transfer.
type TransferResult struct {
	Debit  Entry
	Credit Entry
}

// Transfer appends a transfer_debit on the sender and a transfer_credit
// on the recipient, committed together or not at all. A partial transfer
// is a correctness violation; the shared transaction prevents it.
func (e *Engine) Transfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	if err := e.checkAmount(in.Amount); err != nil {
		return nil, err
	}

	var result TransferResult
	err := e.Store.WithTx(ctx, func(s Store) error {
		sender, err := e.resolveByPhone(ctx, s, in.SenderPhone)
		if err != nil {
			if errors.Is(err, ErrClientNotFound) {
				return fmt.Errorf("sender: %w", err)
			}
			return err
		}

		recipient, err := e.resolveByPhone(ctx, s, in.RecipientPhone)
		if err != nil {
			if errors.Is(err, ErrClientNotFound) {
				return fmt.Errorf("recipient: %w", err)
			}
			return err
		}

		if sender.ID == recipient.ID {
			return ErrSelfTransfer
		}

		if err := e.checkFunds(ctx, s, sender.ID, in.Amount); err != nil {
			return err
		}

		debit, err := e.append(ctx, s, Entry{
			AccountID: sender.ID,
			Kind:      KindTransferDebit,
			Amount:    in.Amount,
		})
		if err != nil {
			return err
		}

		credit, err := e.append(ctx, s, Entry{
			AccountID: recipient.ID,
			Kind:      KindTransferCredit,
			Amount:    in.Amount,
		})
		if err != nil {
			return err
		}

		result = TransferResult{Debit: *debit, Credit: *credit}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type PaymentInput struct {
	MerchantCode string
	Amount       decimal.Decimal
	ClientID     UserID // already authenticated identity, not a phone lookup
}

// PayMerchant appends one merchant_payment entry with the merchant id set.
func (e *Engine) PayMerchant(ctx context.Context, in PaymentInput) (*Entry, error) {
	if err := e.checkAmount(in.Amount); err != nil {
		return nil, err
	}

	var entry *Entry
	err := e.Store.WithTx(ctx, func(s Store) error {
		merchant, err := s.MerchantByCode(ctx, in.MerchantCode)
		if err != nil {
			return err
		}
		if merchant == nil {
			return ErrMerchantNotFound
		}

		account, err := s.AccountByOwner(ctx, in.ClientID)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrAccountNotFound
		}

		if err := e.checkFunds(ctx, s, account.ID, in.Amount); err != nil {
			return err
		}

		merchantID := merchant.ID
		var txErr error
		entry, txErr = e.append(ctx, s, Entry{
			AccountID:  account.ID,
			Kind:       KindMerchantPayment,
			Amount:     in.Amount,
			MerchantID: &merchantID,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (e *Engine) checkAmount(amount decimal.Decimal) error {
	if !e.Limits.Allows(amount) {
		return &AmountRangeError{Amount: amount, Limits: e.Limits}
	}
	return nil
}

// resolveByPhone canonicalizes the identifier and resolves the client's
// account. "Client exists but has no account" cannot happen here because
// account lookup is keyed by phone; a missing row means no client.
func (e *Engine) resolveByPhone(ctx context.Context, s Store, phone string) (*Account, error) {
	canonical := CanonicalPhone(phone, e.CountryPrefix)
	account, err := s.AccountByPhone(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrClientNotFound
	}
	return account, nil
}

func (e *Engine) checkFunds(ctx context.Context, s Store, id AccountID, amount decimal.Decimal) error {
	entries, err := s.Entries(ctx, id)
	if err != nil {
		return err
	}
	available := SumEntries(entries)
	if available.LessThan(amount) {
		return &InsufficientFundsError{AccountID: id, Available: available, Requested: amount}
	}
	return nil
}

// append stamps the entry with an id, timestamp, and a fresh unique
// reference, retrying generation on collision up to the retry budget.
func (e *Engine) append(ctx context.Context, s Store, entry Entry) (*Entry, error) {
	entry.ID = e.newEntryID()
	entry.CreatedAt = time.Now().UTC()
	entry.Amount = entry.Amount.Round(2)

	retries := e.RefRetries
	if retries <= 0 {
		retries = DefaultReferenceRetries
	}

	for attempt := 0; attempt < retries; attempt++ {
		ref, err := e.Refs.Generate()
		if err != nil {
			return nil, err
		}

		// Cheap pre-check; the UNIQUE constraint is the real guarantee.
		taken, err := s.ReferenceExists(ctx, ref)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}

		entry.Reference = ref
		err = s.Append(ctx, entry)
		if err == nil {
			return &entry, nil
		}
		if errors.Is(err, ErrDuplicateReference) {
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("reference generation exhausted after %d attempts: %w", retries, ErrStoreUnavailable)
}
