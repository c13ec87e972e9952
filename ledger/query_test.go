package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kalpay/ledger-engine/ledger"
	"github.com/kalpay/ledger-engine/ledger/store"
)

// seedMixedHistory runs one of every movement so each entry kind exists.
func seedMixedHistory(t *testing.T, engine *ledger.Engine, mem *store.Memory) *ledger.Account {
	t.Helper()

	account := mustCreateAccount(t, engine, "user-1", "+221771111111")
	mustCreateAccount(t, engine, "user-2", "+221772222222")
	seedMerchant(t, mem, "PAY535", "Orange Money")

	mustDeposit(t, engine, "+221771111111", "5000")

	if _, err := engine.Withdraw(context.Background(), ledger.WithdrawalInput{
		Phone: "+221771111111", Amount: amt("1000"), ActorID: "dist-1",
	}); err != nil {
		t.Fatalf("withdrawal failed: %v", err)
	}
	if _, err := engine.Transfer(context.Background(), ledger.TransferInput{
		SenderPhone: "+221771111111", RecipientPhone: "+221772222222", Amount: amt("1000"),
	}); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if _, err := engine.PayMerchant(context.Background(), ledger.PaymentInput{
		MerchantCode: "PAY535", Amount: amt("500"), ClientID: "user-1",
	}); err != nil {
		t.Fatalf("payment failed: %v", err)
	}
	return account
}

func TestHistory_NewestFirstAndPaged(t *testing.T) {
	// GIVEN: An account with 5 deposits made in order
	// WHEN: Fetching page 1 and page 2 with a page size of 3
	// THEN: Entries come newest first, split across pages without overlap

	engine, mem := newTestEngine()
	account := mustCreateAccount(t, engine, "user-1", "+221771234567")
	for i := 0; i < 5; i++ {
		mustDeposit(t, engine, "+221771234567", "1000")
	}

	queries := ledger.NewQueries(mem)

	page1, err := queries.History(context.Background(), account.ID, 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page2, err := queries.History(context.Background(), account.ID, 2, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(page1) != 3 || len(page2) != 2 {
		t.Fatalf("expected pages of 3 and 2, got %d and %d", len(page1), len(page2))
	}

	all := append(append([]ledger.Entry{}, page1...), page2...)
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Errorf("entries not in newest-first order at index %d", i)
		}
	}
}

func TestHistory_UnknownAccount(t *testing.T) {
	// GIVEN: No account with the ID
	// WHEN: Fetching history
	// THEN: ErrAccountNotFound, not an empty page

	_, mem := newTestEngine()
	queries := ledger.NewQueries(mem)

	_, err := queries.History(context.Background(), "missing", 1, 10)
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestScopedEntries_DistributorSeesOnlyCashMovements(t *testing.T) {
	// GIVEN: A history containing all four movement kinds
	// WHEN: A distributor lists transactions
	// THEN: Only deposits and withdrawals appear

	engine, mem := newTestEngine()
	seedMixedHistory(t, engine, mem)

	queries := ledger.NewQueries(mem)
	entries, err := queries.ScopedEntries(context.Background(), ledger.RoleDistributor, 1, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 cash movements, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Kind != ledger.KindDeposit && e.Kind != ledger.KindWithdrawal {
			t.Errorf("distributor saw entry of kind %s", e.Kind)
		}
	}
}

func TestScopedEntries_AdminSeesEverything(t *testing.T) {
	// GIVEN: A history containing all four movement kinds
	// WHEN: An admin lists transactions
	// THEN: All 5 entries appear (transfer counts twice)

	engine, mem := newTestEngine()
	seedMixedHistory(t, engine, mem)

	queries := ledger.NewQueries(mem)
	entries, err := queries.ScopedEntries(context.Background(), ledger.RoleAdmin, 1, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 5 {
		t.Errorf("expected 5 entries, got %d", len(entries))
	}
}

func TestEntry_InvisibleKindReadsAsNotFound(t *testing.T) {
	// GIVEN: A merchant payment entry
	// WHEN: A distributor fetches it by ID
	// THEN: ErrEntryNotFound, indistinguishable from a missing entry

	engine, mem := newTestEngine()
	mustCreateAccount(t, engine, "user-1", "+221771234567")
	mustDeposit(t, engine, "+221771234567", "5000")
	seedMerchant(t, mem, "PAY535", "Orange Money")

	payment, err := engine.PayMerchant(context.Background(), ledger.PaymentInput{
		MerchantCode: "PAY535", Amount: amt("500"), ClientID: "user-1",
	})
	if err != nil {
		t.Fatalf("payment failed: %v", err)
	}

	queries := ledger.NewQueries(mem)

	if _, err := queries.Entry(context.Background(), payment.ID, ledger.RoleDistributor); !errors.Is(err, ledger.ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound for distributor, got %v", err)
	}

	entry, err := queries.Entry(context.Background(), payment.ID, ledger.RoleAdmin)
	if err != nil {
		t.Fatalf("admin should see the entry: %v", err)
	}
	if entry.ID != payment.ID {
		t.Errorf("expected entry %s, got %s", payment.ID, entry.ID)
	}
}

func TestBalanceByOwner(t *testing.T) {
	// GIVEN: An owner with a funded account
	// WHEN: Querying the balance by owner
	// THEN: The derived balance matches the deposits

	engine, mem := newTestEngine()
	mustCreateAccount(t, engine, "user-1", "+221771234567")
	mustDeposit(t, engine, "+221771234567", "3000")

	queries := ledger.NewQueries(mem)
	balance, err := queries.BalanceByOwner(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.Equal(amt("3000")) {
		t.Errorf("expected 3000, got %s", balance)
	}

	if _, err := queries.BalanceByOwner(context.Background(), "ghost"); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}
