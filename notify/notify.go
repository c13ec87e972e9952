/*
Package notify delivers account-lifecycle notifications.

PURPOSE:
  When an account is provisioned, downstream systems (welcome SMS, QR
  card generation) want to know. The engine fires its observer
  asynchronously; implementations here must never block money movement.

IMPLEMENTATIONS:
  Webhook: POSTs a JSON payload to a configured URL
  Logger:  Structured log line only (default when no URL is set)

SEE ALSO:
  - ledger/engine.go: AccountObserver interface and the async dispatch
*/
package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kalpay/ledger-engine/ledger"
)

// Webhook notifies an external endpoint about new accounts.
type Webhook struct {
	URL    string
	Client *http.Client
}

var _ ledger.AccountObserver = (*Webhook)(nil)

// NewWebhook builds a webhook notifier with a 5 second timeout client.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		URL:    url,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

type accountCreatedPayload struct {
	Event     string    `json:"event"`
	AccountID string    `json:"account_id"`
	OwnerID   string    `json:"owner_id"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountCreated delivers the event. Failures are logged, never returned:
// notification is best-effort and must not affect account creation.
func (w *Webhook) AccountCreated(a ledger.Account) {
	payload := accountCreatedPayload{
		Event:     "account.created",
		AccountID: string(a.ID),
		OwnerID:   string(a.OwnerID),
		Phone:     a.Phone,
		CreatedAt: a.CreatedAt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("failed to marshal notification", zap.Error(err))
		return
	}

	resp, err := w.Client.Post(w.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		zap.L().Warn("account notification failed",
			zap.String("account_id", string(a.ID)),
			zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		zap.L().Warn("account notification rejected",
			zap.String("account_id", string(a.ID)),
			zap.Int("status", resp.StatusCode))
		return
	}

	zap.L().Info("account notification delivered",
		zap.String("account_id", string(a.ID)))
}

// Logger is the no-endpoint fallback: it just records the event.
type Logger struct{}

var _ ledger.AccountObserver = Logger{}

func (Logger) AccountCreated(a ledger.Account) {
	zap.L().Info("account created",
		zap.String("account_id", string(a.ID)),
		zap.String("phone", a.Phone))
}
