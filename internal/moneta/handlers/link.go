package handlers

import (
	"context"
	"errors"
	"regexp"

	"github.com/moneta-bot/moneta/internal/moneta/commands"
)

var (
	errInvalidCode  = errors.New("the verification code is 6 digits")
	errInvalidPhone = errors.New("that doesn't look like a phone number")

	linkPhoneRe = regexp.MustCompile(`^\+?\d{7,15}$`)
)

// Link starts account linking; a verification code goes out to the
// given phone number and `verify` completes the flow.
type Link struct {
	commands.BaseHandler
	deps *Deps
}

func NewLink(deps *Deps) *Link {
	return &Link{
		BaseHandler: commands.BaseHandler{
			HandlerName:        "link",
			HandlerAliases:     []string{"signin", "connect"},
			HandlerDescription: "link your payments account",
			HandlerCategory:    CategoryAccount,
			HandlerType:        commands.TypeLink,
		},
		deps: deps,
	}
}

func (h *Link) Validate(cmdCtx *commands.Context) error {
	if phone := cmdCtx.Command.Arg("phone"); phone != "" && !linkPhoneRe.MatchString(phone) {
		return errInvalidPhone
	}
	return nil
}

func (h *Link) Execute(ctx context.Context, cmdCtx *commands.Context) *commands.Result {
	if cmdCtx.Session != nil && cmdCtx.Session.Verified {
		return commands.OK("Your account is already linked.")
	}

	phone := cmdCtx.Command.Arg("phone")
	if phone == "" {
		return commands.OK("Send `link <phone number>` and I'll text you a verification code.")
	}

	if err := h.deps.Accounts.BeginLink(ctx, cmdCtx.SenderID, phone); err != nil {
		h.deps.logger().Error("link failed", "sender", cmdCtx.SenderID, "err", err)
		return commands.Failf(commands.CodeUpstreamError,
			"I couldn't start linking right now, please try again shortly")
	}

	return commands.OK("Code sent. Reply with the 6-digit code to finish linking.")
}

// Unlink severs the account link and drops the cached session.
type Unlink struct {
	commands.BaseHandler
	deps *Deps
}

func NewUnlink(deps *Deps) *Unlink {
	return &Unlink{
		BaseHandler: commands.BaseHandler{
			HandlerName:        "unlink",
			HandlerAliases:     []string{"signout", "disconnect"},
			HandlerDescription: "unlink your payments account",
			HandlerCategory:    CategoryAccount,
			HandlerType:        commands.TypeUnlink,
			NeedsAuth:          true,
		},
		deps: deps,
	}
}

func (h *Unlink) Execute(ctx context.Context, cmdCtx *commands.Context) *commands.Result {
	if err := h.deps.Accounts.Unlink(ctx, cmdCtx.SenderID); err != nil {
		h.deps.logger().Error("unlink failed", "sender", cmdCtx.SenderID, "err", err)
		return commands.Failf(commands.CodeUpstreamError,
			"I couldn't unlink your account right now, please try again shortly")
	}

	if h.deps.Sessions != nil {
		if err := h.deps.Sessions.Evict(ctx, cmdCtx.SenderID); err != nil {
			h.deps.logger().Warn("unlink: session cache evict failed",
				"sender", cmdCtx.SenderID, "err", err)
		}
	}
	if err := h.deps.Confirmations.Clear(ctx, cmdCtx.SenderID); err != nil {
		h.deps.logger().Warn("unlink: clearing pending confirmation failed",
			"sender", cmdCtx.SenderID, "err", err)
	}

	return commands.OK("Your account has been unlinked.")
}
