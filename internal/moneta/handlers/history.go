package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/moneta-bot/moneta/internal/moneta/commands"
	"github.com/moneta-bot/moneta/internal/moneta/payments"
)

const (
	defaultHistoryCount = 10
	maxHistoryCount     = 50

	// historyCacheTTL bounds how stale a repeated history reply can be.
	historyCacheTTL = 15 * time.Second
)

// History lists recent transactions. Lookups are deduplicated per
// account and count, like balance.
type History struct {
	commands.BaseHandler
	deps *Deps
}

func NewHistory(deps *Deps) *History {
	return &History{
		BaseHandler: commands.BaseHandler{
			HandlerName:        "history",
			HandlerAliases:     []string{"transactions"},
			HandlerDescription: "show your recent transactions",
			HandlerCategory:    CategoryPayments,
			HandlerType:        commands.TypeHistory,
			NeedsAuth:          true,
		},
		deps: deps,
	}
}

func (h *History) Validate(cmdCtx *commands.Context) error {
	if raw := cmdCtx.Command.Arg("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return fmt.Errorf("count %q is not a positive number", raw)
		}
	}
	return nil
}

func (h *History) Execute(ctx context.Context, cmdCtx *commands.Context) *commands.Result {
	count := defaultHistoryCount
	if raw := cmdCtx.Command.Arg("count"); raw != "" {
		count, _ = strconv.Atoi(raw)
		if count > maxHistoryCount {
			count = maxHistoryCount
		}
	}

	fingerprint := fmt.Sprintf("history:%s:%d", cmdCtx.Session.AccountID, count)
	raw, err := h.deps.Deduper.Do(ctx, fingerprint, historyCacheTTL,
		func(ctx context.Context) ([]byte, error) {
			txs, err := h.deps.Payments.History(ctx, cmdCtx.Session.AccountID, count)
			if err != nil {
				return nil, err
			}
			return json.Marshal(txs)
		})
	if err != nil {
		return paymentsFail(err)
	}

	var txs []payments.Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return commands.Failf(commands.CodeInternalError, "could not read your history, please try again")
	}
	if len(txs) == 0 {
		return commands.OK("No transactions yet.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your last %d transactions:\n", len(txs))
	for _, tx := range txs {
		fmt.Fprintf(&b, "- %s %s %s %s (%s)",
			tx.CreatedAt.Format("Jan 2"), tx.Kind,
			formatMoney(tx.Amount, tx.Currency), tx.Counterparty, tx.Status)
		if tx.Memo != "" {
			fmt.Fprintf(&b, " — %s", tx.Memo)
		}
		b.WriteString("\n")
	}

	res := commands.OK(b.String())
	res.Data = map[string]any{"transactions": txs}
	return res
}
