/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY FORMAT:
  Amounts travel as JSON strings ("5000.00"), never floats. Float
  rounding must not touch money.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Domain types these mirror
*/
package api

import (
	"time"

	"github.com/kalpay/ledger-engine/ledger"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateAccountRequest provisions a wallet for an owner.
type CreateAccountRequest struct {
	OwnerID string `json:"owner_id"`
	Phone   string `json:"phone"`
}

// CashMovementRequest covers deposits and withdrawals: a distributor
// moves cash for the client identified by phone.
type CashMovementRequest struct {
	Phone  string `json:"phone"`
	Amount string `json:"amount"`
}

// TransferRequest moves money between two clients.
type TransferRequest struct {
	RecipientPhone string `json:"recipient_phone"`
	Amount         string `json:"amount"`
}

// PaymentRequest pays a merchant identified by code.
type PaymentRequest struct {
	MerchantCode string `json:"merchant_code"`
	Amount       string `json:"amount"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// AccountDTO represents an account in API responses.
type AccountDTO struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"created_at,omitempty"`
}

// EntryDTO represents one ledger entry.
type EntryDTO struct {
	ID         string `json:"id"`
	AccountID  string `json:"account_id"`
	Kind       string `json:"kind"`
	Amount     string `json:"amount"`
	Reference  string `json:"reference"`
	MerchantID string `json:"merchant_id,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// BalanceDTO is the derived balance of an account.
type BalanceDTO struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}

// TransferDTO carries both halves of a completed transfer.
type TransferDTO struct {
	Debit  EntryDTO `json:"debit"`
	Credit EntryDTO `json:"credit"`
}

// HistoryDTO is one page of an account's history, newest first.
type HistoryDTO struct {
	Entries  []EntryDTO `json:"entries"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// MerchantDTO represents a payee in the directory.
type MerchantDTO struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		ID:        string(a.ID),
		OwnerID:   string(a.OwnerID),
		Phone:     a.Phone,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	dto := EntryDTO{
		ID:        string(e.ID),
		AccountID: string(e.AccountID),
		Kind:      string(e.Kind),
		Amount:    e.Amount.StringFixed(2),
		Reference: e.Reference,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
	if e.MerchantID != nil {
		dto.MerchantID = string(*e.MerchantID)
	}
	return dto
}

func toEntryDTOs(entries []ledger.Entry) []EntryDTO {
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	return dtos
}

func toMerchantDTOs(merchants []ledger.Merchant) []MerchantDTO {
	dtos := make([]MerchantDTO, len(merchants))
	for i, m := range merchants {
		dtos[i] = MerchantDTO{ID: string(m.ID), Code: m.Code, Name: m.Name}
	}
	return dtos
}
