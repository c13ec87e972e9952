/*
Package sqlite provides the SQLite-backed implementation of the ledger
storage interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore on database/sql + SQLite.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

APPEND-ONLY ENFORCEMENT:
  No UPDATE and no DELETE statements exist for the entries table.
  Once written, an entry is permanent.

KEY TABLES:
  accounts:  One row per owner; phone and owner_id are UNIQUE
  merchants: Read-only payee directory, seeded administratively
  entries:   The immutable ledger; reference is UNIQUE

CONCURRENCY:
  Opened with WAL so readers don't block. A sync.Mutex serializes write
  transactions: each WithTx holds the lock for the full validate+append
  unit of work, so a balance computed inside the transaction cannot go
  stale before its append commits.

USAGE:
  st, err := sqlite.New("./data/ledger.db")
  if err != nil { ... }
  defer st.Close()
  engine := ledger.NewEngine(st, nil, ledger.DefaultLimits(), "")

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kalpay/ledger-engine/ledger"
)

// timeLayout is fixed-width so lexicographic ORDER BY on the stored
// text matches chronological order (RFC3339Nano trims trailing zeros).
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Compile-time check: *Store must satisfy ledger.TxStore.
var _ ledger.TxStore = (*Store)(nil)

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Accounts: one per owner, no balance column by design
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);

	-- Merchants: read-only payee directory
	CREATE TABLE IF NOT EXISTS merchants (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	);

	-- Entries: the append-only ledger
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		kind TEXT NOT NULL CHECK (kind IN
			('deposit', 'withdrawal', 'transfer_debit', 'transfer_credit', 'merchant_payment')),
		amount TEXT NOT NULL,
		reference TEXT NOT NULL UNIQUE,
		merchant_id TEXT REFERENCES merchants(id),
		created_at TEXT NOT NULL
	);

	-- Balance replay and history (hot path)
	CREATE INDEX IF NOT EXISTS idx_entries_account_created
		ON entries(account_id, created_at DESC);

	-- Kind-scoped listings
	CREATE INDEX IF NOT EXISTS idx_entries_kind
		ON entries(kind);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// QUERY TARGET - sql.DB and sql.Tx both satisfy this
// =============================================================================

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) error {
	return createAccount(ctx, s.db, a)
}

func createAccount(ctx context.Context, db dbtx, a ledger.Account) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO accounts (id, owner_id, phone, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Phone, a.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrAccountExists
		}
		return storeErr("failed to create account", err)
	}
	return nil
}

func (s *Store) AccountByID(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	return accountWhere(ctx, s.db, "id = ?", id)
}

func (s *Store) AccountByPhone(ctx context.Context, phone string) (*ledger.Account, error) {
	return accountWhere(ctx, s.db, "phone = ?", phone)
}

func (s *Store) AccountByOwner(ctx context.Context, owner ledger.UserID) (*ledger.Account, error) {
	return accountWhere(ctx, s.db, "owner_id = ?", owner)
}

func accountWhere(ctx context.Context, db dbtx, where string, arg any) (*ledger.Account, error) {
	var (
		a         ledger.Account
		createdAt string
	)
	err := db.QueryRowContext(ctx,
		"SELECT id, owner_id, phone, created_at FROM accounts WHERE "+where, arg,
	).Scan(&a.ID, &a.OwnerID, &a.Phone, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("failed to load account", err)
	}
	a.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &a, nil
}

// =============================================================================
// MERCHANTS
// =============================================================================

func (s *Store) SaveMerchant(ctx context.Context, m ledger.Merchant) error {
	return saveMerchant(ctx, s.db, m)
}

func saveMerchant(ctx context.Context, db dbtx, m ledger.Merchant) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO merchants (id, code, name) VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET name = excluded.name`,
		m.ID, m.Code, m.Name,
	)
	if err != nil {
		return storeErr("failed to save merchant", err)
	}
	return nil
}

func (s *Store) MerchantByCode(ctx context.Context, code string) (*ledger.Merchant, error) {
	return merchantByCode(ctx, s.db, code)
}

func merchantByCode(ctx context.Context, db dbtx, code string) (*ledger.Merchant, error) {
	var m ledger.Merchant
	err := db.QueryRowContext(ctx,
		"SELECT id, code, name FROM merchants WHERE code = ?", code,
	).Scan(&m.ID, &m.Code, &m.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("failed to load merchant", err)
	}
	return &m, nil
}

func (s *Store) ListMerchants(ctx context.Context) ([]ledger.Merchant, error) {
	return listMerchants(ctx, s.db)
}

func listMerchants(ctx context.Context, db dbtx) ([]ledger.Merchant, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, code, name FROM merchants ORDER BY code")
	if err != nil {
		return nil, storeErr("failed to list merchants", err)
	}
	defer rows.Close()

	var merchants []ledger.Merchant
	for rows.Next() {
		var m ledger.Merchant
		if err := rows.Scan(&m.ID, &m.Code, &m.Name); err != nil {
			return nil, err
		}
		merchants = append(merchants, m)
	}
	return merchants, rows.Err()
}

// =============================================================================
// ENTRIES - Append-only ledger
// =============================================================================

func (s *Store) Append(ctx context.Context, e ledger.Entry) error {
	return appendEntry(ctx, s.db, e)
}

func appendEntry(ctx context.Context, db dbtx, e ledger.Entry) error {
	var merchantID any
	if e.MerchantID != nil {
		merchantID = string(*e.MerchantID)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO entries (id, account_id, kind, amount, reference, merchant_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AccountID, e.Kind,
		e.Amount.StringFixed(2),
		e.Reference,
		merchantID,
		e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrDuplicateReference
		}
		return storeErr("failed to append entry", err)
	}
	return nil
}

const entryColumns = "id, account_id, kind, amount, reference, merchant_id, created_at"

func (s *Store) Entries(ctx context.Context, id ledger.AccountID) ([]ledger.Entry, error) {
	return entriesByAccount(ctx, s.db, id)
}

func entriesByAccount(ctx context.Context, db dbtx, id ledger.AccountID) ([]ledger.Entry, error) {
	query := "SELECT " + entryColumns + ` FROM entries
		WHERE account_id = ?
		ORDER BY created_at ASC, id ASC`
	return queryEntries(ctx, db, query, id)
}

func (s *Store) EntryByID(ctx context.Context, id ledger.EntryID) (*ledger.Entry, error) {
	return entryByID(ctx, s.db, id)
}

func entryByID(ctx context.Context, db dbtx, id ledger.EntryID) (*ledger.Entry, error) {
	entries, err := queryEntries(ctx, db,
		"SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (s *Store) List(ctx context.Context, f ledger.EntryFilter) ([]ledger.Entry, error) {
	return listEntries(ctx, s.db, f)
}

func listEntries(ctx context.Context, db dbtx, f ledger.EntryFilter) ([]ledger.Entry, error) {
	f = f.Normalize()

	var (
		where []string
		args  []any
	)
	if f.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if len(f.Kinds) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.Kinds)), ", ")
		where = append(where, "kind IN ("+placeholders+")")
		for _, k := range f.Kinds {
			args = append(args, k)
		}
	}

	query := "SELECT " + entryColumns + " FROM entries"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)

	return queryEntries(ctx, db, query, args...)
}

func (s *Store) ReferenceExists(ctx context.Context, ref string) (bool, error) {
	return referenceExists(ctx, s.db, ref)
}

func referenceExists(ctx context.Context, db dbtx, ref string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entries WHERE reference = ?", ref,
	).Scan(&count)
	if err != nil {
		return false, storeErr("failed to check reference", err)
	}
	return count > 0, nil
}

func queryEntries(ctx context.Context, db dbtx, query string, args ...any) ([]ledger.Entry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("failed to query entries", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (ledger.Entry, error) {
	var (
		e          ledger.Entry
		amount     string
		merchantID sql.NullString
		createdAt  string
	)
	err := rows.Scan(&e.ID, &e.AccountID, &e.Kind, &amount, &e.Reference, &merchantID, &createdAt)
	if err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}

	e.Amount = ledger.MustAmount(amount)
	if merchantID.Valid {
		id := ledger.MerchantID(merchantID.String)
		e.MerchantID = &id
	}
	e.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return e, nil
}

// =============================================================================
// TRANSACTIONS (ledger.TxStore)
// =============================================================================

// WithTx runs fn inside one database transaction. The store-level mutex
// is held for the duration, so the read-validate-append sequence of a
// movement operation is serialized against all other units of work.
// Rollback is guaranteed on error or panic; commit only on success.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("failed to begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return storeErr("failed to commit transaction", err)
	}
	return nil
}

// txStore routes every call through the open sql.Tx so reads inside the
// unit of work observe its own uncommitted writes.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) CreateAccount(ctx context.Context, a ledger.Account) error {
	return createAccount(ctx, ts.tx, a)
}

func (ts *txStore) AccountByID(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	return accountWhere(ctx, ts.tx, "id = ?", id)
}

func (ts *txStore) AccountByPhone(ctx context.Context, phone string) (*ledger.Account, error) {
	return accountWhere(ctx, ts.tx, "phone = ?", phone)
}

func (ts *txStore) AccountByOwner(ctx context.Context, owner ledger.UserID) (*ledger.Account, error) {
	return accountWhere(ctx, ts.tx, "owner_id = ?", owner)
}

func (ts *txStore) SaveMerchant(ctx context.Context, m ledger.Merchant) error {
	return saveMerchant(ctx, ts.tx, m)
}

func (ts *txStore) MerchantByCode(ctx context.Context, code string) (*ledger.Merchant, error) {
	return merchantByCode(ctx, ts.tx, code)
}

func (ts *txStore) ListMerchants(ctx context.Context) ([]ledger.Merchant, error) {
	return listMerchants(ctx, ts.tx)
}

func (ts *txStore) Append(ctx context.Context, e ledger.Entry) error {
	return appendEntry(ctx, ts.tx, e)
}

func (ts *txStore) Entries(ctx context.Context, id ledger.AccountID) ([]ledger.Entry, error) {
	return entriesByAccount(ctx, ts.tx, id)
}

func (ts *txStore) EntryByID(ctx context.Context, id ledger.EntryID) (*ledger.Entry, error) {
	return entryByID(ctx, ts.tx, id)
}

func (ts *txStore) List(ctx context.Context, f ledger.EntryFilter) ([]ledger.Entry, error) {
	return listEntries(ctx, ts.tx, f)
}

func (ts *txStore) ReferenceExists(ctx context.Context, ref string) (bool, error) {
	return referenceExists(ctx, ts.tx, ref)
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// storeErr wraps low-level failures. Timeouts and cancellations surface
// as ledger.ErrStoreUnavailable so callers can tell technical faults
// from business failures.
func storeErr(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %v: %w", msg, err, ledger.ErrStoreUnavailable)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
