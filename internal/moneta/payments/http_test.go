package payments_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/moneta-bot/moneta/internal/moneta/payments"
)

func newServer(t *testing.T, handler http.HandlerFunc) *payments.HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return payments.NewHTTPClient(payments.HTTPConfig{BaseURL: srv.URL, APIKey: "test-key"})
}

func TestBalance(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/acct-1/balance" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"balance": map[string]any{
				"account_id": "acct-1",
				"available":  "123.45",
				"currency":   "USD",
			},
		})
	})

	balance, err := client.Balance(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !balance.Available.Equal(decimal.RequireFromString("123.45")) {
		t.Errorf("available = %s", balance.Available)
	}
}

func TestTransferUpstreamError(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    payments.ErrCodeInsufficientBalance,
				"message": "not enough funds",
			},
		})
	})

	_, err := client.Transfer(context.Background(), payments.Transfer{
		FromAccount: "acct-1",
		Amount:      decimal.NewFromInt(999),
		Currency:    "USD",
		ToName:      "john",
	})
	var upstream *payments.Error
	if !errors.As(err, &upstream) {
		t.Fatalf("error = %v, want *payments.Error", err)
	}
	if upstream.Code != payments.ErrCodeInsufficientBalance || upstream.Retryable {
		t.Errorf("error = %+v", upstream)
	}
}

func TestTransferSendsBody(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["amount"] != "12.50" || body["to_username"] != "@bob" {
			t.Errorf("body = %v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"transaction": map[string]any{
				"id": "tx-1", "kind": "transfer", "amount": "12.50",
				"currency": "USD", "status": "completed",
			},
		})
	})

	tx, err := client.Transfer(context.Background(), payments.Transfer{
		FromAccount: "acct-1",
		Amount:      decimal.RequireFromString("12.5"),
		Currency:    "USD",
		ToUsername:  "@bob",
	})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if tx.ID != "tx-1" || tx.Status != "completed" {
		t.Errorf("transaction = %+v", tx)
	}
}

func TestLookupAnonymous(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code": "SESSION_NOT_FOUND", "message": "no session",
			},
		})
	})

	session, err := client.Lookup(context.Background(), "@new:example.org")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if session != nil {
		t.Errorf("session = %+v, want nil for anonymous", session)
	}
}

func TestServerErrorsAreRetryable(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code": payments.ErrCodeTransactionFailed, "message": "ledger timeout",
			},
		})
	})

	_, err := client.Balance(context.Background(), "acct-1")
	var upstream *payments.Error
	if !errors.As(err, &upstream) {
		t.Fatalf("error = %v", err)
	}
	if !upstream.Retryable {
		t.Errorf("5xx error not marked retryable")
	}
}
