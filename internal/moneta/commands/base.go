package commands

import (
	"context"
	"fmt"
)

// BaseHandler holds the static metadata every handler declares and
// provides default no-op validation. Concrete handlers embed it and
// implement Execute.
type BaseHandler struct {
	HandlerName        string
	HandlerAliases     []string
	HandlerDescription string
	HandlerCategory    string
	HandlerType        Type
	NeedsAuth          bool
	NeedsAdmin         bool
}

func (b *BaseHandler) Name() string        { return b.HandlerName }
func (b *BaseHandler) Aliases() []string   { return b.HandlerAliases }
func (b *BaseHandler) Description() string { return b.HandlerDescription }
func (b *BaseHandler) Category() string    { return b.HandlerCategory }
func (b *BaseHandler) CommandType() Type   { return b.HandlerType }
func (b *BaseHandler) RequiresAuth() bool  { return b.NeedsAuth }
func (b *BaseHandler) AdminOnly() bool     { return b.NeedsAdmin }

func (b *BaseHandler) Validate(*Context) error { return nil }

// RequireArgs is a validation helper: every named argument must be
// present and non-empty.
func RequireArgs(cmdCtx *Context, names ...string) error {
	for _, name := range names {
		if cmdCtx.Command.Arg(name) == "" {
			return fmt.Errorf("missing argument %q", name)
		}
	}
	return nil
}

// runHandler applies the shared pre-execution contract around a
// handler: authentication, session validity, admin gating, argument
// validation, and panic containment. Handlers past these gates can
// assume a well-formed context.
func runHandler(ctx context.Context, h Handler, cmdCtx *Context) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failf(CodeInternalError, "something went wrong, please try again")
			res.Data = map[string]any{"panic": fmt.Sprint(r)}
		}
	}()

	if h.RequiresAuth() {
		if cmdCtx.Session == nil {
			return Failf(CodeNotAuthenticated,
				"you need to link your account first — send `link` to get started")
		}
		if !cmdCtx.Session.Verified {
			return Failf(CodeSessionExpired,
				"your session needs verification — reply with the 6-digit code you received")
		}
	}
	if h.AdminOnly() && !cmdCtx.IsAdmin {
		return Failf(CodeInsufficientPermissions, "this command is restricted to administrators")
	}
	if err := h.Validate(cmdCtx); err != nil {
		return Failf(CodeInvalidArguments, "%s", err.Error())
	}

	return h.Execute(ctx, cmdCtx)
}
