package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/moneta-bot/moneta/internal/moneta/auth"
)

const defaultTimeout = 10 * time.Second

// HTTPConfig configures the payments API client.
type HTTPConfig struct {
	// BaseURL is the API endpoint, e.g. https://payments.example.org/v1.
	BaseURL string

	// APIKey is the bearer token for authentication.
	APIKey string

	// Timeout is the HTTP request timeout. Defaults to 10 s.
	Timeout time.Duration
}

// HTTPClient implements Client against the payments REST API. It also
// serves as the auth collaborator: the same API owns the mapping from
// chat subjects to accounts. Safe for concurrent use.
type HTTPClient struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPClient creates a payments API client.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// --- wire types ---

type apiError struct {
	Error *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
	} `json:"error,omitempty"`
}

type transferRequest struct {
	FromAccount string `json:"from_account"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	ToUsername  string `json:"to_username,omitempty"`
	ToPhone     string `json:"to_phone,omitempty"`
	ToName      string `json:"to_name,omitempty"`
	Memo        string `json:"memo,omitempty"`
}

type paymentRequestBody struct {
	AccountID    string `json:"account_id"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	FromUsername string `json:"from_username,omitempty"`
	FromPhone    string `json:"from_phone,omitempty"`
	FromName     string `json:"from_name,omitempty"`
	Memo         string `json:"memo,omitempty"`
}

type sessionResponse struct {
	Session *auth.Session `json:"session"`
	apiError
}

// Balance fetches the account's available funds.
func (c *HTTPClient) Balance(ctx context.Context, accountID string) (*Balance, error) {
	var out struct {
		Balance *Balance `json:"balance"`
		apiError
	}
	if err := c.do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(accountID)+"/balance", nil, &out); err != nil {
		return nil, err
	}
	if out.Balance == nil {
		return nil, fmt.Errorf("payments: balance response missing body")
	}
	return out.Balance, nil
}

// Transfer executes a confirmed money movement.
func (c *HTTPClient) Transfer(ctx context.Context, t Transfer) (*Transaction, error) {
	body := transferRequest{
		FromAccount: t.FromAccount,
		Amount:      t.Amount.StringFixed(2),
		Currency:    t.Currency,
		ToUsername:  t.ToUsername,
		ToPhone:     t.ToPhone,
		ToName:      t.ToName,
		Memo:        t.Memo,
	}
	var out struct {
		Transaction *Transaction `json:"transaction"`
		apiError
	}
	if err := c.do(ctx, http.MethodPost, "/transfers", body, &out); err != nil {
		return nil, err
	}
	if out.Transaction == nil {
		return nil, fmt.Errorf("payments: transfer response missing body")
	}
	return out.Transaction, nil
}

// RequestPayment asks a counterparty to send money.
func (c *HTTPClient) RequestPayment(ctx context.Context, r PaymentRequest) (*Transaction, error) {
	body := paymentRequestBody{
		AccountID:    r.AccountID,
		Amount:       r.Amount.StringFixed(2),
		Currency:     r.Currency,
		FromUsername: r.FromUsername,
		FromPhone:    r.FromPhone,
		FromName:     r.FromName,
		Memo:         r.Memo,
	}
	var out struct {
		Transaction *Transaction `json:"transaction"`
		apiError
	}
	if err := c.do(ctx, http.MethodPost, "/requests", body, &out); err != nil {
		return nil, err
	}
	if out.Transaction == nil {
		return nil, fmt.Errorf("payments: request response missing body")
	}
	return out.Transaction, nil
}

// History lists the account's most recent transactions.
func (c *HTTPClient) History(ctx context.Context, accountID string, limit int) ([]Transaction, error) {
	path := "/accounts/" + url.PathEscape(accountID) + "/transactions?limit=" + strconv.Itoa(limit)
	var out struct {
		Transactions []Transaction `json:"transactions"`
		apiError
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// VerifyCode completes account linking with a 6-digit code.
func (c *HTTPClient) VerifyCode(ctx context.Context, subjectID, code string) error {
	body := map[string]string{"subject_id": subjectID, "code": code}
	var out apiError
	return c.do(ctx, http.MethodPost, "/links/verify", body, &out)
}

// Lookup implements auth.Resolver: the session for a chat subject, or
// (nil, nil) for anonymous subjects.
func (c *HTTPClient) Lookup(ctx context.Context, subjectID string) (*auth.Session, error) {
	var out sessionResponse
	err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(subjectID), nil, &out)
	if err != nil {
		var upstream *Error
		if errors.As(err, &upstream) && upstream.Code == "SESSION_NOT_FOUND" {
			return nil, nil
		}
		return nil, err
	}
	return out.Session, nil
}

// BeginLink implements auth.Accounts.
func (c *HTTPClient) BeginLink(ctx context.Context, subjectID, phone string) error {
	body := map[string]string{"subject_id": subjectID, "phone": phone}
	var out apiError
	return c.do(ctx, http.MethodPost, "/links", body, &out)
}

// Unlink implements auth.Accounts.
func (c *HTTPClient) Unlink(ctx context.Context, subjectID string) error {
	var out apiError
	return c.do(ctx, http.MethodDelete, "/links/"+url.PathEscape(subjectID), nil, &out)
}

// do performs one API round trip: marshal, send, decode, and surface
// API errors as *Error values.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("payments: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("payments: create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("payments: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("payments: read response body: %w", err)
	}

	// Decode into a shared error envelope first so API failures carry
	// their structured code regardless of the expected response shape.
	var envelope apiError
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return fmt.Errorf("payments: decode response: %w", err)
		}
	}
	if envelope.Error != nil {
		return &Error{
			Code:      envelope.Error.Code,
			Message:   envelope.Error.Message,
			Retryable: envelope.Error.Retryable || resp.StatusCode >= 500,
		}
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("payments: unexpected HTTP status %d", resp.StatusCode)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("payments: decode response: %w", err)
		}
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
var _ auth.Resolver = (*HTTPClient)(nil)
var _ auth.Accounts = (*HTTPClient)(nil)
