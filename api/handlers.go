/*
handlers.go - HTTP API handlers for the money movement service

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Accounts:
    POST   /api/v1/accounts                        Provision a wallet

  Client:
    GET    /api/v1/client/balance                  Own derived balance
    GET    /api/v1/client/transactions             Own history, newest first
    POST   /api/v1/client/transfer                 Send money to another client
    POST   /api/v1/client/payment                  Pay a merchant by code

  Distributor:
    POST   /api/v1/distributor/deposit             Cash in for a client
    POST   /api/v1/distributor/withdrawal          Cash out for a client
    GET    /api/v1/distributor/transactions        Cash movements, newest first
    GET    /api/v1/distributor/transactions/{id}   Single visible entry

  Directory:
    GET    /api/v1/merchants                       Payee directory

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (engine, queries)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input, amount outside bounds
  - 404: Account, merchant, or entry not found
  - 409: Duplicate account
  - 422: Insufficient funds, self transfer
  - 503: Storage unavailable
  - 500: Internal errors

AUTHENTICATION NOTE:
  The gateway in front of this service authenticates users and injects
  X-Role and X-Actor-Id headers. This service trusts them.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kalpay/ledger-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine  *ledger.Engine
	Queries *ledger.Queries
	Store   ledger.Store
}

// NewHandler creates a new handler around the engine and query layer.
func NewHandler(engine *ledger.Engine, queries *ledger.Queries, store ledger.Store) *Handler {
	return &Handler{Engine: engine, Queries: queries, Store: store}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// CreateAccount provisions a wallet.
// POST /api/v1/accounts
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.OwnerID == "" || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "owner_id and phone are required", nil)
		return
	}

	account, err := h.Engine.CreateAccount(r.Context(), ledger.UserID(req.OwnerID), req.Phone)
	if err != nil {
		writeDomainError(w, "Failed to create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountDTO(*account))
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// ClientBalance returns the caller's derived balance.
// GET /api/v1/client/balance
func (h *Handler) ClientBalance(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)

	account, err := h.Store.AccountByOwner(r.Context(), actor)
	if err != nil {
		writeDomainError(w, "Failed to load account", err)
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "Account not found", nil)
		return
	}

	balance, err := h.Queries.Balance(r.Context(), account.ID)
	if err != nil {
		writeDomainError(w, "Failed to compute balance", err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceDTO{
		AccountID: string(account.ID),
		Balance:   balance.StringFixed(2),
	})
}

// ClientTransactions returns one page of the caller's history, newest first.
// GET /api/v1/client/transactions?page=1&page_size=20
func (h *Handler) ClientTransactions(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	page, pageSize := pagination(r)

	entries, err := h.Queries.HistoryByOwner(r.Context(), actor, page, pageSize)
	if err != nil {
		writeDomainError(w, "Failed to load history", err)
		return
	}

	writeJSON(w, http.StatusOK, HistoryDTO{
		Entries:  toEntryDTOs(entries),
		Page:     page,
		PageSize: pageSize,
	})
}

// ClientTransfer sends money from the caller to another client.
// POST /api/v1/client/transfer
func (h *Handler) ClientTransfer(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}

	sender, err := h.Store.AccountByOwner(r.Context(), actor)
	if err != nil {
		writeDomainError(w, "Failed to load account", err)
		return
	}
	if sender == nil {
		writeError(w, http.StatusNotFound, "Account not found", nil)
		return
	}

	result, err := h.Engine.Transfer(r.Context(), ledger.TransferInput{
		SenderPhone:    sender.Phone,
		RecipientPhone: req.RecipientPhone,
		Amount:         amount,
	})
	if err != nil {
		writeDomainError(w, "Transfer failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, TransferDTO{
		Debit:  toEntryDTO(result.Debit),
		Credit: toEntryDTO(result.Credit),
	})
}

// ClientPayment pays a merchant identified by code.
// POST /api/v1/client/payment
func (h *Handler) ClientPayment(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)

	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}

	entry, err := h.Engine.PayMerchant(r.Context(), ledger.PaymentInput{
		MerchantCode: req.MerchantCode,
		Amount:       amount,
		ClientID:     actor,
	})
	if err != nil {
		writeDomainError(w, "Payment failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEntryDTO(*entry))
}

// =============================================================================
// DISTRIBUTOR HANDLERS
// =============================================================================

// Deposit records a cash-in for the client identified by phone.
// POST /api/v1/distributor/deposit
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.cashMovement(w, r, func(r2 *http.Request, in ledger.DepositInput) (*ledger.Entry, error) {
		return h.Engine.Deposit(r2.Context(), in)
	})
}

// Withdraw records a cash-out for the client identified by phone.
// POST /api/v1/distributor/withdrawal
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.cashMovement(w, r, func(r2 *http.Request, in ledger.DepositInput) (*ledger.Entry, error) {
		return h.Engine.Withdraw(r2.Context(), ledger.WithdrawalInput(in))
	})
}

func (h *Handler) cashMovement(
	w http.ResponseWriter,
	r *http.Request,
	move func(*http.Request, ledger.DepositInput) (*ledger.Entry, error),
) {
	var req CashMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}

	entry, err := move(r, ledger.DepositInput{
		Phone:   req.Phone,
		Amount:  amount,
		ActorID: actorID(r),
	})
	if err != nil {
		writeDomainError(w, "Movement failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEntryDTO(*entry))
}

// DistributorTransactions lists the cash movements a distributor may see.
// GET /api/v1/distributor/transactions?page=1&page_size=20
func (h *Handler) DistributorTransactions(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)

	entries, err := h.Queries.ScopedEntries(r.Context(), roleOf(r), page, pageSize)
	if err != nil {
		writeDomainError(w, "Failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, HistoryDTO{
		Entries:  toEntryDTOs(entries),
		Page:     page,
		PageSize: pageSize,
	})
}

// DistributorTransaction returns a single entry if the role may see it.
// GET /api/v1/distributor/transactions/{id}
func (h *Handler) DistributorTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntryID(chi.URLParam(r, "id"))

	entry, err := h.Queries.Entry(r.Context(), id, roleOf(r))
	if err != nil {
		writeDomainError(w, "Failed to load transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, toEntryDTO(*entry))
}

// =============================================================================
// DIRECTORY HANDLERS
// =============================================================================

// ListMerchants returns the payee directory.
// GET /api/v1/merchants
func (h *Handler) ListMerchants(w http.ResponseWriter, r *http.Request) {
	merchants, err := h.Store.ListMerchants(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list merchants", err)
		return
	}
	writeJSON(w, http.StatusOK, toMerchantDTOs(merchants))
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func pagination(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = ledger.DefaultPageSize
	}
	return page, pageSize
}

func parseAmount(w http.ResponseWriter, raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return decimal.Decimal{}, false
	}
	return amount, true
}

// statusFromError maps domain errors to HTTP status codes.
func statusFromError(err error) int {
	switch {
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAmountOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrSelfTransfer):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		zap.L().Error(message, zap.Error(err))
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
