// Package payments defines the upstream payments/ledger collaborator at
// its interface boundary. The wire protocol of the upstream API is owned
// by the implementation the application wires in.
package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Balance is a point-in-time view of an account's available funds.
type Balance struct {
	AccountID string          `json:"account_id"`
	Available decimal.Decimal `json:"available"`
	Currency  string          `json:"currency"`
	AsOf      time.Time       `json:"as_of"`
}

// Transfer describes a money movement that has already been confirmed by
// the user. Exactly one of ToUsername, ToPhone, or ToName identifies the
// recipient, in that resolution priority.
type Transfer struct {
	FromAccount string
	Amount      decimal.Decimal
	Currency    string
	ToUsername  string
	ToPhone     string
	ToName      string
	Memo        string
}

// PaymentRequest asks a counterparty to send money to the account.
type PaymentRequest struct {
	AccountID    string
	Amount       decimal.Decimal
	Currency     string
	FromUsername string
	FromPhone    string
	FromName     string
	Memo         string
}

// Transaction is the ledger outcome of a transfer or request.
type Transaction struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"` // "transfer" or "request"
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Counterparty string          `json:"counterparty"`
	Memo         string          `json:"memo,omitempty"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Error is a structured failure from the upstream API. Code values map
// onto the engine's business error codes.
type Error struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("payments: %s: %s", e.Code, e.Message)
}

// Upstream error codes surfaced to handlers.
const (
	ErrCodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrCodeRecipientNotFound   = "RECIPIENT_NOT_FOUND"
	ErrCodeTransactionFailed   = "TRANSACTION_FAILED"
	ErrCodeInvalidCode         = "INVALID_CODE"
)

// Client is the payments collaborator. Transfer and RequestPayment are
// invoked only after a confirmation record has been consumed — never
// speculatively.
type Client interface {
	Balance(ctx context.Context, accountID string) (*Balance, error)
	Transfer(ctx context.Context, t Transfer) (*Transaction, error)
	RequestPayment(ctx context.Context, r PaymentRequest) (*Transaction, error)
	History(ctx context.Context, accountID string, limit int) ([]Transaction, error)
	// VerifyCode completes account linking with a 6-digit code delivered
	// out of band.
	VerifyCode(ctx context.Context, subjectID, code string) error
}
