/*
store.go - Persistence interfaces for the ledger

PURPOSE:
  Defines the interface between the domain logic and the database.
  The Store keeps the entry log append-only: there is no Update and no
  Delete on entries, ever.

KEY INTERFACES:
  Store:   Account/merchant lookup plus append-only entry persistence
  TxStore: Unit-of-work wrapper; every engine operation runs inside one

APPEND-ONLY CONTRACT:
  Append() is the only entry write. The store must enforce a UNIQUE
  constraint on the reference column and report collisions as
  ErrDuplicateReference so the engine can retry generation.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - ledger/store: in-memory store for tests

SEE ALSO:
  - engine.go: Runs validate+append inside WithTx
  - balance.go: Derives balances from Entries
*/
package ledger

import "context"

// =============================================================================
// STORE - Accounts, merchants, and the append-only entry log
// =============================================================================

type Store interface {
	// CreateAccount persists a new account. Returns ErrAccountExists if
	// the owner or phone already has one.
	CreateAccount(ctx context.Context, a Account) error

	// AccountByID returns the account, or (nil, nil) if absent.
	AccountByID(ctx context.Context, id AccountID) (*Account, error)

	// AccountByPhone returns the account whose canonical phone matches,
	// or (nil, nil) if absent.
	AccountByPhone(ctx context.Context, phone string) (*Account, error)

	// AccountByOwner returns the owner's account, or (nil, nil) if absent.
	AccountByOwner(ctx context.Context, owner UserID) (*Account, error)

	// SaveMerchant upserts a merchant record. Used by the administrative
	// seeding path only; the engine never writes merchants.
	SaveMerchant(ctx context.Context, m Merchant) error

	// MerchantByCode returns the merchant, or (nil, nil) if absent.
	MerchantByCode(ctx context.Context, code string) (*Merchant, error)

	// ListMerchants returns all merchants ordered by code.
	ListMerchants(ctx context.Context) ([]Merchant, error)

	// Append persists one entry. This is the ONLY entry write.
	// Returns ErrDuplicateReference on a reference collision.
	Append(ctx context.Context, e Entry) error

	// Entries returns all entries for an account, oldest first.
	Entries(ctx context.Context, id AccountID) ([]Entry, error)

	// EntryByID returns one entry, or (nil, nil) if absent.
	EntryByID(ctx context.Context, id EntryID) (*Entry, error)

	// List returns entries matching the filter, newest first.
	List(ctx context.Context, f EntryFilter) ([]Entry, error)

	// ReferenceExists checks whether a reference is already taken.
	ReferenceExists(ctx context.Context, ref string) (bool, error)
}

// EntryFilter selects and pages entries for List.
// Zero AccountID matches all accounts; empty Kinds matches all kinds.
// Page is 1-based; PageSize <= 0 falls back to the store default.
type EntryFilter struct {
	AccountID AccountID
	Kinds     []EntryKind
	Page      int
	PageSize  int
}

const DefaultPageSize = 20

// Normalize fills in paging defaults.
func (f EntryFilter) Normalize() EntryFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	return f
}

// =============================================================================
// TRANSACTIONAL STORE - Unit of work for movement operations
// =============================================================================

// TxStore wraps Store with transaction support.
//
// WithTx executes fn against a transactional view of the store. If fn
// returns an error the unit of work is rolled back in full; otherwise it
// is committed. Release (commit or rollback) is guaranteed on every exit
// path, including panics inside fn.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
