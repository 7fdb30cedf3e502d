// Package handlers contains the concrete command implementations wired
// into the engine's registry.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/moneta-bot/moneta/internal/moneta/auth"
	"github.com/moneta-bot/moneta/internal/moneta/commands"
	"github.com/moneta-bot/moneta/internal/moneta/confirm"
	"github.com/moneta-bot/moneta/internal/moneta/dedupe"
	"github.com/moneta-bot/moneta/internal/moneta/payments"
)

// Command categories shown in help output.
const (
	CategoryGeneral  = "general"
	CategoryPayments = "payments"
	CategoryAccount  = "account"
	CategoryAdmin    = "admin"
)

// Deps bundles the collaborators the handlers share.
type Deps struct {
	Payments      payments.Client
	Accounts      auth.Accounts
	Confirmations *confirm.Service
	Deduper       *dedupe.Deduper
	Preferences   *Preferences
	Sessions      *auth.CachingResolver
	Stats         *StatsCollector
	Logger        *slog.Logger
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Register wires every handler into the registry.
func Register(r *commands.Registry, deps *Deps) {
	r.Register(NewHelp(r))
	r.Register(NewBalance(deps))
	r.Register(NewSend(deps))
	r.Register(NewRequest(deps))
	r.Register(NewHistory(deps))
	r.Register(NewVerify(deps))
	r.Register(NewLink(deps))
	r.Register(NewUnlink(deps))
	r.Register(NewVoice(deps))
	r.Register(NewVoiceOnly(deps))
	r.Register(NewStats(deps))
}

// parseAmount validates a money argument: positive, at most two decimal
// places.
func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q is not a number", raw)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be greater than zero")
	}
	if amount.Exponent() < -2 {
		return decimal.Zero, fmt.Errorf("amount can have at most two decimal places")
	}
	return amount, nil
}

// formatMoney renders an amount for replies, always with cents.
func formatMoney(amount decimal.Decimal, currency string) string {
	if currency == "" || currency == "USD" {
		return "$" + amount.StringFixed(2)
	}
	return amount.StringFixed(2) + " " + currency
}

// paymentsFail maps an upstream payments error onto a command result.
func paymentsFail(err error) *commands.Result {
	var upstream *payments.Error
	if errors.As(err, &upstream) {
		code := commands.CodeUpstreamError
		switch upstream.Code {
		case payments.ErrCodeInsufficientBalance:
			code = commands.CodeInsufficientBalance
		case payments.ErrCodeRecipientNotFound:
			code = commands.CodeRecipientNotFound
		case payments.ErrCodeTransactionFailed:
			code = commands.CodeTransactionFailed
		case payments.ErrCodeInvalidCode:
			code = commands.CodeInvalidArguments
		}
		res := commands.Failf(code, "%s", upstream.Message)
		res.Error.Retryable = upstream.Retryable
		res.Error.Details = map[string]any{"upstream_code": upstream.Code}
		return res
	}
	return commands.Failf(commands.CodeUpstreamError,
		"the payments service is unavailable right now, please try again shortly")
}

// recipientSummary names the counterparty for prompts and receipts.
func recipientSummary(cmd *commands.Command) string {
	switch {
	case cmd.Arg("username") != "":
		return cmd.Arg("username")
	case cmd.Arg("phone") != "":
		return cmd.Arg("phone")
	default:
		return cmd.Arg("recipient")
	}
}
