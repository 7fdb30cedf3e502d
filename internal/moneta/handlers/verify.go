package handlers

import (
	"context"
	"regexp"

	"github.com/moneta-bot/moneta/internal/moneta/commands"
)

var codeRe = regexp.MustCompile(`^\d{6}$`)

// Verify completes account linking with the 6-digit code delivered out
// of band. It runs without a session: the code is what establishes one.
type Verify struct {
	commands.BaseHandler
	deps *Deps
}

func NewVerify(deps *Deps) *Verify {
	return &Verify{
		BaseHandler: commands.BaseHandler{
			HandlerName:        "verify",
			HandlerAliases:     []string{"code"},
			HandlerDescription: "verify your account with a 6-digit code",
			HandlerCategory:    CategoryAccount,
			HandlerType:        commands.TypeVerify,
		},
		deps: deps,
	}
}

func (h *Verify) Validate(cmdCtx *commands.Context) error {
	if err := commands.RequireArgs(cmdCtx, "code"); err != nil {
		return err
	}
	if !codeRe.MatchString(cmdCtx.Command.Arg("code")) {
		return errInvalidCode
	}
	return nil
}

func (h *Verify) Execute(ctx context.Context, cmdCtx *commands.Context) *commands.Result {
	code := cmdCtx.Command.Arg("code")

	if err := h.deps.Payments.VerifyCode(ctx, cmdCtx.SenderID, code); err != nil {
		return paymentsFail(err)
	}

	// The cached session (if any) predates verification; drop it so the
	// next message sees the verified state.
	if h.deps.Sessions != nil {
		if err := h.deps.Sessions.Evict(ctx, cmdCtx.SenderID); err != nil {
			h.deps.logger().Warn("verify: session cache evict failed",
				"sender", cmdCtx.SenderID, "err", err)
		}
	}

	return commands.OK("You're verified. Your account is now linked — try `balance`.")
}
