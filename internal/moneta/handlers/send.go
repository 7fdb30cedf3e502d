package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/moneta-bot/moneta/internal/moneta/commands"
	"github.com/moneta-bot/moneta/internal/moneta/payments"
)

// Send moves money to another account. A send arriving without prior
// confirmation is parked in the confirmation store and answered with a
// prompt; only a confirmed context reaches the payments client.
type Send struct {
	commands.BaseHandler
	deps *Deps
}

func NewSend(deps *Deps) *Send {
	return &Send{
		BaseHandler: commands.BaseHandler{
			HandlerName:        "send",
			HandlerAliases:     []string{"pay", "transfer"},
			HandlerDescription: "send money to someone",
			HandlerCategory:    CategoryPayments,
			HandlerType:        commands.TypeSend,
			NeedsAuth:          true,
		},
		deps: deps,
	}
}

func (h *Send) Validate(cmdCtx *commands.Context) error {
	if err := commands.RequireArgs(cmdCtx, "amount"); err != nil {
		return err
	}
	if recipientSummary(cmdCtx.Command) == "" {
		return errors.New("missing recipient")
	}
	_, err := parseAmount(cmdCtx.Command.Arg("amount"))
	return err
}

func (h *Send) Execute(ctx context.Context, cmdCtx *commands.Context) *commands.Result {
	amount, _ := parseAmount(cmdCtx.Command.Arg("amount"))
	recipient := recipientSummary(cmdCtx.Command)

	if !cmdCtx.Confirmed {
		_, err := h.deps.Confirmations.Store(ctx,
			cmdCtx.SenderID, cmdCtx.ConversationID, cmdCtx.Session.AccountID, cmdCtx.Command)
		if err != nil {
			h.deps.logger().Error("send: storing confirmation failed",
				"sender", cmdCtx.SenderID, "err", err)
			return commands.Failf(commands.CodeStorageError,
				"I couldn't set that up, please try again")
		}
		msg := fmt.Sprintf("Send %s to %s", formatMoney(amount, "USD"), recipient)
		if memo := cmdCtx.Command.Arg("memo"); memo != "" {
			msg += fmt.Sprintf(" for %q", memo)
		}
		res := commands.OK(msg + "? Reply **yes** to confirm or **no** to cancel.")
		res.Data = map[string]any{"pending": true}
		return res
	}

	tx, err := h.deps.Payments.Transfer(ctx, payments.Transfer{
		FromAccount: cmdCtx.Session.AccountID,
		Amount:      amount,
		Currency:    "USD",
		ToUsername:  cmdCtx.Command.Arg("username"),
		ToPhone:     cmdCtx.Command.Arg("phone"),
		ToName:      cmdCtx.Command.Arg("recipient"),
		Memo:        cmdCtx.Command.Arg("memo"),
	})
	if err != nil {
		return paymentsFail(err)
	}

	// The cached balance is stale the moment money moves.
	if err := h.deps.Deduper.Invalidate(ctx, "balance:"+cmdCtx.Session.AccountID); err != nil {
		h.deps.logger().Warn("send: balance cache invalidation failed",
			"account", cmdCtx.Session.AccountID, "err", err)
	}

	h.deps.Stats.RecordPayment(amount)
	res := commands.OK(fmt.Sprintf("Sent %s to %s.",
		formatMoney(tx.Amount, tx.Currency), recipient))
	res.Data = map[string]any{"transaction": tx}
	return res
}
