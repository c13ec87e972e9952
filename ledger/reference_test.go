package ledger_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kalpay/ledger-engine/ledger"
	"github.com/kalpay/ledger-engine/ledger/store"
)

func TestReferenceGenerator_Shape(t *testing.T) {
	// GIVEN: The default generator
	// WHEN: Generating a reference
	// THEN: "TRF-" followed by exactly 10 base-36 uppercase characters

	gen := ledger.NewReferenceGenerator(ledger.DefaultReferencePrefix, ledger.DefaultReferenceLength)

	ref, err := gen.Generate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(ref, "TRF-") {
		t.Fatalf("expected TRF- prefix, got %q", ref)
	}

	random := strings.TrimPrefix(ref, "TRF-")
	if len(random) != 10 {
		t.Errorf("expected 10 random characters, got %d in %q", len(random), ref)
	}
	for _, c := range random {
		if !strings.ContainsRune("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ", c) {
			t.Errorf("character %q outside the base-36 uppercase alphabet in %q", c, ref)
		}
	}
}

func TestReferenceGenerator_NoObviousRepeats(t *testing.T) {
	// 36^10 values; a few thousand draws colliding would mean a broken source
	gen := ledger.NewReferenceGenerator("TRF", 10)

	seen := make(map[string]bool)
	for i := 0; i < 2000; i++ {
		ref, err := gen.Generate()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[ref] {
			t.Fatalf("duplicate reference %q after %d draws", ref, i)
		}
		seen[ref] = true
	}
}

// stubRefs returns a scripted sequence of references, repeating the last.
type stubRefs struct {
	refs []string
	next int
}

func (s *stubRefs) Generate() (string, error) {
	if s.next < len(s.refs)-1 {
		ref := s.refs[s.next]
		s.next++
		return ref, nil
	}
	return s.refs[len(s.refs)-1], nil
}

func TestEngine_RetriesOnReferenceCollision(t *testing.T) {
	// GIVEN: A generator that first produces an already-used reference
	// WHEN: Depositing
	// THEN: The engine retries and commits under the fresh reference

	mem := store.NewMemory()
	engine := ledger.NewEngine(mem, &stubRefs{refs: []string{"TRF-TAKEN00000", "TRF-FRESH00000"}},
		ledger.DefaultLimits(), "+221")

	account := mustCreateAccount(t, engine, "user-1", "+221771234567")
	if err := mem.Append(context.Background(), ledger.Entry{
		ID: "seed", AccountID: account.ID, Kind: ledger.KindDeposit,
		Amount: amt("500"), Reference: "TRF-TAKEN00000",
	}); err != nil {
		t.Fatalf("failed to seed colliding entry: %v", err)
	}

	entry, err := engine.Deposit(context.Background(), ledger.DepositInput{
		Phone: "+221771234567", Amount: amt("1000"), ActorID: "dist-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Reference != "TRF-FRESH00000" {
		t.Errorf("expected retry to land on TRF-FRESH00000, got %q", entry.Reference)
	}
}

func TestEngine_GivesUpAfterRetryBudget(t *testing.T) {
	// GIVEN: A generator stuck on one already-used reference
	// WHEN: Depositing
	// THEN: ErrStoreUnavailable once the retry budget is spent

	mem := store.NewMemory()
	engine := ledger.NewEngine(mem, &stubRefs{refs: []string{"TRF-STUCK00000"}},
		ledger.DefaultLimits(), "+221")
	engine.RefRetries = 3

	account := mustCreateAccount(t, engine, "user-1", "+221771234567")
	if err := mem.Append(context.Background(), ledger.Entry{
		ID: "seed", AccountID: account.ID, Kind: ledger.KindDeposit,
		Amount: amt("500"), Reference: "TRF-STUCK00000",
	}); err != nil {
		t.Fatalf("failed to seed colliding entry: %v", err)
	}

	_, err := engine.Deposit(context.Background(), ledger.DepositInput{
		Phone: "+221771234567", Amount: amt("1000"), ActorID: "dist-1",
	})
	if !errors.Is(err, ledger.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}
