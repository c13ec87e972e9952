// Package store provides an in-memory ledger.TxStore for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/kalpay/ledger-engine/ledger"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu         sync.Mutex
	accounts   map[ledger.AccountID]ledger.Account
	byPhone    map[string]ledger.AccountID
	byOwner    map[ledger.UserID]ledger.AccountID
	merchants  map[string]ledger.Merchant // keyed by code
	entries    map[ledger.AccountID][]ledger.Entry
	byEntryID  map[ledger.EntryID]ledger.Entry
	references map[string]bool
	order      []ledger.EntryID // append order, for global listing
}

func NewMemory() *Memory {
	return &Memory{
		accounts:   make(map[ledger.AccountID]ledger.Account),
		byPhone:    make(map[string]ledger.AccountID),
		byOwner:    make(map[ledger.UserID]ledger.AccountID),
		merchants:  make(map[string]ledger.Merchant),
		entries:    make(map[ledger.AccountID][]ledger.Entry),
		byEntryID:  make(map[ledger.EntryID]ledger.Entry),
		references: make(map[string]bool),
	}
}

// Compile-time check: *Memory must satisfy ledger.TxStore.
var _ ledger.TxStore = (*Memory)(nil)

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) CreateAccount(_ context.Context, a ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createAccountLocked(a)
}

func (m *Memory) createAccountLocked(a ledger.Account) error {
	if _, ok := m.byOwner[a.OwnerID]; ok {
		return ledger.ErrAccountExists
	}
	if _, ok := m.byPhone[a.Phone]; ok {
		return ledger.ErrAccountExists
	}
	m.accounts[a.ID] = a
	m.byPhone[a.Phone] = a.ID
	m.byOwner[a.OwnerID] = a.ID
	return nil
}

func (m *Memory) AccountByID(_ context.Context, id ledger.AccountID) (*ledger.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accountByIDLocked(id), nil
}

func (m *Memory) accountByIDLocked(id ledger.AccountID) *ledger.Account {
	if a, ok := m.accounts[id]; ok {
		return &a
	}
	return nil
}

func (m *Memory) AccountByPhone(_ context.Context, phone string) (*ledger.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byPhone[phone]; ok {
		return m.accountByIDLocked(id), nil
	}
	return nil, nil
}

func (m *Memory) AccountByOwner(_ context.Context, owner ledger.UserID) (*ledger.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byOwner[owner]; ok {
		return m.accountByIDLocked(id), nil
	}
	return nil, nil
}

// =============================================================================
// MERCHANTS
// =============================================================================

func (m *Memory) SaveMerchant(_ context.Context, mer ledger.Merchant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.merchants[mer.Code] = mer
	return nil
}

func (m *Memory) MerchantByCode(_ context.Context, code string) (*ledger.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mer, ok := m.merchants[code]; ok {
		return &mer, nil
	}
	return nil, nil
}

func (m *Memory) ListMerchants(_ context.Context) ([]ledger.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ledger.Merchant, 0, len(m.merchants))
	for _, mer := range m.merchants {
		result = append(result, mer)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// =============================================================================
// ENTRIES - Append-only
// =============================================================================

func (m *Memory) Append(_ context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(e)
}

func (m *Memory) appendLocked(e ledger.Entry) error {
	if m.references[e.Reference] {
		return ledger.ErrDuplicateReference
	}
	m.entries[e.AccountID] = append(m.entries[e.AccountID], e)
	m.byEntryID[e.ID] = e
	m.references[e.Reference] = true
	m.order = append(m.order, e.ID)
	return nil
}

func (m *Memory) Entries(_ context.Context, id ledger.AccountID) ([]ledger.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entriesLocked(id), nil
}

func (m *Memory) entriesLocked(id ledger.AccountID) []ledger.Entry {
	result := make([]ledger.Entry, len(m.entries[id]))
	copy(result, m.entries[id])
	return result
}

func (m *Memory) EntryByID(_ context.Context, id ledger.EntryID) (*ledger.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.byEntryID[id]; ok {
		return &e, nil
	}
	return nil, nil
}

func (m *Memory) List(_ context.Context, f ledger.EntryFilter) ([]ledger.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(f), nil
}

func (m *Memory) listLocked(f ledger.EntryFilter) []ledger.Entry {
	f = f.Normalize()

	var matched []ledger.Entry
	// Walk append order backwards: newest first.
	for i := len(m.order) - 1; i >= 0; i-- {
		e := m.byEntryID[m.order[i]]
		if f.AccountID != "" && e.AccountID != f.AccountID {
			continue
		}
		if len(f.Kinds) > 0 && !kindIn(e.Kind, f.Kinds) {
			continue
		}
		matched = append(matched, e)
	}

	start := (f.Page - 1) * f.PageSize
	if start >= len(matched) {
		return nil
	}
	end := start + f.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end]
}

func kindIn(k ledger.EntryKind, kinds []ledger.EntryKind) bool {
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func (m *Memory) ReferenceExists(_ context.Context, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.references[ref], nil
}

// =============================================================================
// TRANSACTIONS - Snapshot and restore on error
// =============================================================================

// WithTx executes fn against a view that writes directly into the store
// while holding the lock. On error the pre-transaction state is restored,
// giving all-or-nothing semantics. The lock also serializes concurrent
// units of work, so a balance read inside fn cannot go stale.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	view := &txView{parent: m}

	if err := fn(view); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	accounts   map[ledger.AccountID]ledger.Account
	byPhone    map[string]ledger.AccountID
	byOwner    map[ledger.UserID]ledger.AccountID
	merchants  map[string]ledger.Merchant
	entries    map[ledger.AccountID][]ledger.Entry
	byEntryID  map[ledger.EntryID]ledger.Entry
	references map[string]bool
	order      []ledger.EntryID
}

func (m *Memory) snapshot() memorySnapshot {
	entries := make(map[ledger.AccountID][]ledger.Entry, len(m.entries))
	for k, v := range m.entries {
		entries[k] = append([]ledger.Entry(nil), v...)
	}
	return memorySnapshot{
		accounts:   copyMap(m.accounts),
		byPhone:    copyMap(m.byPhone),
		byOwner:    copyMap(m.byOwner),
		merchants:  copyMap(m.merchants),
		entries:    entries,
		byEntryID:  copyMap(m.byEntryID),
		references: copyMap(m.references),
		order:      append([]ledger.EntryID(nil), m.order...),
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.accounts = s.accounts
	m.byPhone = s.byPhone
	m.byOwner = s.byOwner
	m.merchants = s.merchants
	m.entries = s.entries
	m.byEntryID = s.byEntryID
	m.references = s.references
	m.order = s.order
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// txView reads and writes the parent's maps directly; the parent holds
// the lock for the duration of WithTx.
type txView struct {
	parent *Memory
}

func (tv *txView) CreateAccount(_ context.Context, a ledger.Account) error {
	return tv.parent.createAccountLocked(a)
}

func (tv *txView) AccountByID(_ context.Context, id ledger.AccountID) (*ledger.Account, error) {
	return tv.parent.accountByIDLocked(id), nil
}

func (tv *txView) AccountByPhone(_ context.Context, phone string) (*ledger.Account, error) {
	if id, ok := tv.parent.byPhone[phone]; ok {
		return tv.parent.accountByIDLocked(id), nil
	}
	return nil, nil
}

func (tv *txView) AccountByOwner(_ context.Context, owner ledger.UserID) (*ledger.Account, error) {
	if id, ok := tv.parent.byOwner[owner]; ok {
		return tv.parent.accountByIDLocked(id), nil
	}
	return nil, nil
}

func (tv *txView) SaveMerchant(_ context.Context, mer ledger.Merchant) error {
	tv.parent.merchants[mer.Code] = mer
	return nil
}

func (tv *txView) MerchantByCode(_ context.Context, code string) (*ledger.Merchant, error) {
	if mer, ok := tv.parent.merchants[code]; ok {
		return &mer, nil
	}
	return nil, nil
}

func (tv *txView) ListMerchants(ctx context.Context) ([]ledger.Merchant, error) {
	result := make([]ledger.Merchant, 0, len(tv.parent.merchants))
	for _, mer := range tv.parent.merchants {
		result = append(result, mer)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (tv *txView) Append(_ context.Context, e ledger.Entry) error {
	return tv.parent.appendLocked(e)
}

func (tv *txView) Entries(_ context.Context, id ledger.AccountID) ([]ledger.Entry, error) {
	return tv.parent.entriesLocked(id), nil
}

func (tv *txView) EntryByID(_ context.Context, id ledger.EntryID) (*ledger.Entry, error) {
	if e, ok := tv.parent.byEntryID[id]; ok {
		return &e, nil
	}
	return nil, nil
}

func (tv *txView) List(_ context.Context, f ledger.EntryFilter) ([]ledger.Entry, error) {
	return tv.parent.listLocked(f), nil
}

func (tv *txView) ReferenceExists(_ context.Context, ref string) (bool, error) {
	return tv.parent.references[ref], nil
}
