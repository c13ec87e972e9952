package notify_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kalpay/ledger-engine/ledger"
	"github.com/kalpay/ledger-engine/notify"
)

func TestWebhook_DeliversAccountCreated(t *testing.T) {
	received := make(chan map[string]any, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		received <- payload
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	hook := notify.NewWebhook(server.URL)
	hook.AccountCreated(ledger.Account{
		ID:        "acc-1",
		OwnerID:   "user-1",
		Phone:     "+221771234567",
		CreatedAt: time.Now().UTC(),
	})

	select {
	case payload := <-received:
		if payload["event"] != "account.created" {
			t.Errorf("expected account.created event, got %v", payload["event"])
		}
		if payload["account_id"] != "acc-1" {
			t.Errorf("expected account acc-1, got %v", payload["account_id"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never delivered")
	}
}

func TestWebhook_SwallowsDeliveryFailures(t *testing.T) {
	// The engine calls observers in a goroutine with no error channel,
	// so delivery failures must not panic.
	hook := notify.NewWebhook("http://127.0.0.1:0")
	hook.AccountCreated(ledger.Account{ID: "acc-1"})
}
