package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/moneta-bot/moneta/internal/moneta/commands"
	"github.com/moneta-bot/moneta/internal/moneta/payments"
)

// Request asks a counterparty for money. It follows the same
// confirmation protocol as Send.
type Request struct {
	commands.BaseHandler
	deps *Deps
}

func NewRequest(deps *Deps) *Request {
	return &Request{
		BaseHandler: commands.BaseHandler{
			HandlerName:        "request",
			HandlerAliases:     []string{"collect"},
			HandlerDescription: "request money from someone",
			HandlerCategory:    CategoryPayments,
			HandlerType:        commands.TypeRequest,
			NeedsAuth:          true,
		},
		deps: deps,
	}
}

func (h *Request) Validate(cmdCtx *commands.Context) error {
	if err := commands.RequireArgs(cmdCtx, "amount"); err != nil {
		return err
	}
	if recipientSummary(cmdCtx.Command) == "" {
		return errors.New("missing counterparty")
	}
	_, err := parseAmount(cmdCtx.Command.Arg("amount"))
	return err
}

func (h *Request) Execute(ctx context.Context, cmdCtx *commands.Context) *commands.Result {
	amount, _ := parseAmount(cmdCtx.Command.Arg("amount"))
	counterparty := recipientSummary(cmdCtx.Command)

	if !cmdCtx.Confirmed {
		_, err := h.deps.Confirmations.Store(ctx,
			cmdCtx.SenderID, cmdCtx.ConversationID, cmdCtx.Session.AccountID, cmdCtx.Command)
		if err != nil {
			h.deps.logger().Error("request: storing confirmation failed",
				"sender", cmdCtx.SenderID, "err", err)
			return commands.Failf(commands.CodeStorageError,
				"I couldn't set that up, please try again")
		}
		msg := fmt.Sprintf("Request %s from %s", formatMoney(amount, "USD"), counterparty)
		if memo := cmdCtx.Command.Arg("memo"); memo != "" {
			msg += fmt.Sprintf(" for %q", memo)
		}
		res := commands.OK(msg + "? Reply **yes** to confirm or **no** to cancel.")
		res.Data = map[string]any{"pending": true}
		return res
	}

	tx, err := h.deps.Payments.RequestPayment(ctx, payments.PaymentRequest{
		AccountID:    cmdCtx.Session.AccountID,
		Amount:       amount,
		Currency:     "USD",
		FromUsername: cmdCtx.Command.Arg("username"),
		FromPhone:    cmdCtx.Command.Arg("phone"),
		FromName:     cmdCtx.Command.Arg("recipient"),
		Memo:         cmdCtx.Command.Arg("memo"),
	})
	if err != nil {
		return paymentsFail(err)
	}

	res := commands.OK(fmt.Sprintf("Requested %s from %s. I'll let you know when they respond.",
		formatMoney(tx.Amount, tx.Currency), counterparty))
	res.Data = map[string]any{"transaction": tx}
	return res
}
