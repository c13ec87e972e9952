package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kalpay/ledger-engine/api"
	"github.com/kalpay/ledger-engine/ledger"
	"github.com/kalpay/ledger-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	router http.Handler
	engine *ledger.Engine
	store  *store.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mem := store.NewMemory()
	engine := ledger.NewEngine(mem, nil, ledger.DefaultLimits(), "+221")
	handler := api.NewHandler(engine, ledger.NewQueries(mem), mem)

	return &testServer{
		router: api.NewRouter(handler),
		engine: engine,
		store:  mem,
	}
}

// do runs a request with role headers and returns the recorded response.
func (ts *testServer) do(t *testing.T, method, path, role, actor string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if role != "" {
		req.Header.Set(api.HeaderRole, role)
	}
	if actor != "" {
		req.Header.Set(api.HeaderActorID, actor)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func (ts *testServer) provision(t *testing.T, owner, phone string) ledger.Account {
	t.Helper()
	account, err := ts.engine.CreateAccount(context.Background(), ledger.UserID(owner), phone)
	if err != nil {
		t.Fatalf("failed to provision account: %v", err)
	}
	return *account
}

func (ts *testServer) fund(t *testing.T, phone, amount string) {
	t.Helper()
	_, err := ts.engine.Deposit(context.Background(), ledger.DepositInput{
		Phone: phone, Amount: ledger.MustAmount(amount), ActorID: "dist-1",
	})
	if err != nil {
		t.Fatalf("failed to fund account: %v", err)
	}
}

// =============================================================================
// AUTH AND ROLE SCOPING
// =============================================================================

func TestAPI_MissingRoleRejected(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/client/balance", "", "user-1", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAPI_RoleWithoutCapabilityRejected(t *testing.T) {
	// Clients cannot perform distributor cash movements
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/distributor/deposit", "client", "user-1",
		api.CashMovementRequest{Phone: "+221771234567", Amount: "5000"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func TestAPI_CreateAccount(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/accounts", "distributor", "dist-1",
		api.CreateAccountRequest{OwnerID: "user-1", Phone: "77 123 45 67"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	account := decode[api.AccountDTO](t, rec)
	if account.Phone != "+221771234567" {
		t.Errorf("expected canonical phone, got %s", account.Phone)
	}

	// Same owner again conflicts
	rec = ts.do(t, http.MethodPost, "/api/v1/accounts", "distributor", "dist-1",
		api.CreateAccountRequest{OwnerID: "user-1", Phone: "+221779999999"})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

// =============================================================================
// DISTRIBUTOR FLOWS
// =============================================================================

func TestAPI_DepositAndWithdrawal(t *testing.T) {
	ts := newTestServer(t)
	ts.provision(t, "user-1", "+221771234567")

	rec := ts.do(t, http.MethodPost, "/api/v1/distributor/deposit", "distributor", "dist-1",
		api.CashMovementRequest{Phone: "+221771234567", Amount: "5000"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	entry := decode[api.EntryDTO](t, rec)
	if entry.Kind != "deposit" || entry.Amount != "5000.00" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.Reference == "" {
		t.Errorf("entry must carry a reference")
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/distributor/withdrawal", "distributor", "dist-1",
		api.CashMovementRequest{Phone: "+221771234567", Amount: "2000"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// Overdraw maps to 422
	rec = ts.do(t, http.MethodPost, "/api/v1/distributor/withdrawal", "distributor", "dist-1",
		api.CashMovementRequest{Phone: "+221771234567", Amount: "4000"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_DepositUnknownPhoneIs404(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/distributor/deposit", "distributor", "dist-1",
		api.CashMovementRequest{Phone: "+221770000000", Amount: "5000"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestAPI_DepositAmountOutOfRangeIs400(t *testing.T) {
	ts := newTestServer(t)
	ts.provision(t, "user-1", "+221771234567")

	rec := ts.do(t, http.MethodPost, "/api/v1/distributor/deposit", "distributor", "dist-1",
		api.CashMovementRequest{Phone: "+221771234567", Amount: "50"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/distributor/deposit", "distributor", "dist-1",
		api.CashMovementRequest{Phone: "+221771234567", Amount: "not-a-number"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed amount, got %d", rec.Code)
	}
}

func TestAPI_DistributorTransactionVisibility(t *testing.T) {
	// Distributors see cash movements but not transfers by ID
	ts := newTestServer(t)
	ts.provision(t, "user-1", "+221771111111")
	ts.provision(t, "user-2", "+221772222222")
	ts.fund(t, "+221771111111", "5000")

	result, err := ts.engine.Transfer(context.Background(), ledger.TransferInput{
		SenderPhone: "+221771111111", RecipientPhone: "+221772222222",
		Amount: ledger.MustAmount("1000"),
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/distributor/transactions/"+string(result.Debit.ID),
		"distributor", "dist-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for invisible kind, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/distributor/transactions?page=1&page_size=10",
		"distributor", "dist-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	history := decode[api.HistoryDTO](t, rec)
	for _, e := range history.Entries {
		if e.Kind != "deposit" && e.Kind != "withdrawal" {
			t.Errorf("distributor listing leaked kind %s", e.Kind)
		}
	}
}

// =============================================================================
// CLIENT FLOWS
// =============================================================================

func TestAPI_ClientBalanceAndHistory(t *testing.T) {
	ts := newTestServer(t)
	ts.provision(t, "user-1", "+221771234567")
	ts.fund(t, "+221771234567", "5000")

	rec := ts.do(t, http.MethodGet, "/api/v1/client/balance", "client", "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	balance := decode[api.BalanceDTO](t, rec)
	if balance.Balance != "5000.00" {
		t.Errorf("expected 5000.00, got %s", balance.Balance)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/client/transactions", "client", "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	history := decode[api.HistoryDTO](t, rec)
	if len(history.Entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(history.Entries))
	}
}

func TestAPI_ClientTransfer(t *testing.T) {
	ts := newTestServer(t)
	ts.provision(t, "user-1", "+221771111111")
	ts.provision(t, "user-2", "+221772222222")
	ts.fund(t, "+221771111111", "5000")

	rec := ts.do(t, http.MethodPost, "/api/v1/client/transfer", "client", "user-1",
		api.TransferRequest{RecipientPhone: "+221772222222", Amount: "1000"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	transfer := decode[api.TransferDTO](t, rec)
	if transfer.Debit.Kind != "transfer_debit" || transfer.Credit.Kind != "transfer_credit" {
		t.Errorf("unexpected transfer kinds: %+v", transfer)
	}

	// Self transfer maps to 422
	rec = ts.do(t, http.MethodPost, "/api/v1/client/transfer", "client", "user-1",
		api.TransferRequest{RecipientPhone: "77 111 11 11", Amount: "1000"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for self transfer, got %d", rec.Code)
	}
}

func TestAPI_ClientPayment(t *testing.T) {
	ts := newTestServer(t)
	ts.provision(t, "user-1", "+221771234567")
	ts.fund(t, "+221771234567", "5000")

	err := ts.store.SaveMerchant(context.Background(),
		ledger.Merchant{ID: "m-1", Code: "PAY535", Name: "Orange Money"})
	if err != nil {
		t.Fatalf("failed to seed merchant: %v", err)
	}

	rec := ts.do(t, http.MethodPost, "/api/v1/client/payment", "client", "user-1",
		api.PaymentRequest{MerchantCode: "PAY535", Amount: "500"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	entry := decode[api.EntryDTO](t, rec)
	if entry.MerchantID != "m-1" {
		t.Errorf("expected merchant m-1 on entry, got %q", entry.MerchantID)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/client/payment", "client", "user-1",
		api.PaymentRequest{MerchantCode: "PAY999", Amount: "500"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown merchant, got %d", rec.Code)
	}
}

// =============================================================================
// DIRECTORY
// =============================================================================

func TestAPI_ListMerchants(t *testing.T) {
	ts := newTestServer(t)

	err := ts.store.SaveMerchant(context.Background(),
		ledger.Merchant{ID: "m-1", Code: "PAY535", Name: "Orange Money"})
	if err != nil {
		t.Fatalf("failed to seed merchant: %v", err)
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/merchants", "client", "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	merchants := decode[[]api.MerchantDTO](t, rec)
	if len(merchants) != 1 || merchants[0].Code != "PAY535" {
		t.Errorf("unexpected merchants: %+v", merchants)
	}
}

func TestAPI_Health(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
