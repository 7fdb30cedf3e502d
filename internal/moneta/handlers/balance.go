package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/moneta-bot/moneta/internal/moneta/commands"
	"github.com/moneta-bot/moneta/internal/moneta/payments"
)

// balanceCacheTTL bounds how stale a repeated balance reply can be.
const balanceCacheTTL = 15 * time.Second

// Balance reports available funds. Lookups are deduplicated per
// account, so a burst of "balance" messages costs one upstream call.
type Balance struct {
	commands.BaseHandler
	deps *Deps
}

func NewBalance(deps *Deps) *Balance {
	return &Balance{
		BaseHandler: commands.BaseHandler{
			HandlerName:        "balance",
			HandlerAliases:     []string{"bal"},
			HandlerDescription: "check your available balance",
			HandlerCategory:    CategoryPayments,
			HandlerType:        commands.TypeBalance,
			NeedsAuth:          true,
		},
		deps: deps,
	}
}

func (h *Balance) Execute(ctx context.Context, cmdCtx *commands.Context) *commands.Result {
	accountID := cmdCtx.Session.AccountID
	fingerprint := "balance:" + accountID

	raw, err := h.deps.Deduper.Do(ctx, fingerprint, balanceCacheTTL,
		func(ctx context.Context) ([]byte, error) {
			balance, err := h.deps.Payments.Balance(ctx, accountID)
			if err != nil {
				return nil, err
			}
			return json.Marshal(balance)
		})
	if err != nil {
		return paymentsFail(err)
	}

	var balance payments.Balance
	if err := json.Unmarshal(raw, &balance); err != nil {
		return commands.Failf(commands.CodeInternalError, "could not read your balance, please try again")
	}

	res := commands.OK(fmt.Sprintf("Your balance is %s.",
		formatMoney(balance.Available, balance.Currency)))
	res.Data = map[string]any{"balance": &balance}
	return res
}
