package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/moneta-bot/moneta/internal/moneta/auth"
	"github.com/moneta-bot/moneta/internal/moneta/commands"
	"github.com/moneta-bot/moneta/internal/moneta/confirm"
	"github.com/moneta-bot/moneta/internal/moneta/handlers"
	"github.com/moneta-bot/moneta/internal/moneta/ratelimit"
)

// Rate-limit categories.
const (
	categoryMessage = "message"
	categoryPayment = "payment"
)

// Inbound is one message entering the engine, already stripped of
// transport specifics.
type Inbound struct {
	MessageID      string
	ConversationID string
	SenderID       string
	GroupID        string
	GroupName      string
	DisplayName    string
	Text           string
	Voice          bool
	Timestamp      time.Time
}

// Engine runs the full message pipeline: guardrail, admission, session
// resolution, confirmation replies, parsing, and execution. It always
// produces a result to reply with; transport adapters only ship text.
type Engine struct {
	parser        *commands.Parser
	executor      *commands.Executor
	limiter       *ratelimit.Limiter
	sessions      auth.Resolver
	confirmations *confirm.Service
	prefs         *handlers.Preferences
	logger        *slog.Logger
}

// EngineConfig wires an Engine.
type EngineConfig struct {
	Parser        *commands.Parser
	Executor      *commands.Executor
	Limiter       *ratelimit.Limiter
	Sessions      auth.Resolver
	Confirmations *confirm.Service
	Preferences   *handlers.Preferences
	Logger        *slog.Logger
}

func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		parser:        cfg.Parser,
		executor:      cfg.Executor,
		limiter:       cfg.Limiter,
		sessions:      cfg.Sessions,
		confirmations: cfg.Confirmations,
		prefs:         cfg.Preferences,
		logger:        logger,
	}
}

// Handle processes one inbound message end to end.
func (e *Engine) Handle(ctx context.Context, in *Inbound) *commands.Result {
	// Refuse sensitive content before parsing; unknown-command replies
	// echo raw text, which must never reproduce a card number.
	if sensitive, reason := commands.SensitiveContent(in.Text); sensitive {
		e.logger.Warn("message refused by guardrail",
			"sender", in.SenderID, "text", commands.Redact(in.Text))
		return commands.Failf(commands.CodeInvalidArguments, "%s", reason)
	}

	group := in.GroupID
	if group == "" {
		group = in.ConversationID
	}

	if decision := e.limiter.Allow(ctx, group, in.SenderID, categoryMessage); !decision.Allowed {
		return rateLimited(decision)
	}

	session := e.resolveSession(ctx, in.SenderID)

	// A live pending confirmation claims yes/no replies before parsing;
	// anything else leaves the confirmation in place and is handled as a
	// fresh command.
	if res, handled := e.handleConfirmationReply(ctx, in, session); handled {
		return res
	}

	cmd := e.parser.Parse(in.Text, in.Voice)

	if cmd.IsPayment() {
		if decision := e.limiter.Allow(ctx, group, in.SenderID, categoryPayment); !decision.Allowed {
			return rateLimited(decision)
		}
	}

	res := e.execute(ctx, in, session, cmd, false)
	e.applyVoicePrefs(ctx, in.SenderID, res)
	return res
}

func (e *Engine) handleConfirmationReply(ctx context.Context, in *Inbound, session *auth.Session) (*commands.Result, bool) {
	pending, err := e.confirmations.Get(ctx, in.SenderID)
	if errors.Is(err, confirm.ErrNoPending) {
		return nil, false
	}
	if err != nil {
		e.logger.Error("pending confirmation lookup failed", "sender", in.SenderID, "err", err)
		return nil, false
	}

	switch confirm.ClassifyReply(in.Text) {
	case confirm.ReplyYes:
		// Clear before executing: if the transfer panics or the process
		// dies, a retry must not find the confirmation again.
		if err := e.confirmations.Clear(ctx, in.SenderID); err != nil {
			e.logger.Error("confirmation clear failed", "sender", in.SenderID, "err", err)
			return commands.Failf(commands.CodeStorageError,
				"I couldn't process that confirmation, please try again"), true
		}
		res := e.execute(ctx, in, session, pending.Command, true)
		e.applyVoicePrefs(ctx, in.SenderID, res)
		return res, true

	case confirm.ReplyNo:
		if err := e.confirmations.Clear(ctx, in.SenderID); err != nil {
			e.logger.Error("confirmation clear failed", "sender", in.SenderID, "err", err)
		}
		return commands.OK("Cancelled, nothing was sent."), true

	default:
		return nil, false
	}
}

func (e *Engine) execute(ctx context.Context, in *Inbound, session *auth.Session, cmd *commands.Command, confirmed bool) *commands.Result {
	return e.executor.Execute(ctx, &commands.Request{
		MessageID:      in.MessageID,
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		GroupID:        in.GroupID,
		GroupName:      in.GroupName,
		DisplayName:    in.DisplayName,
		Timestamp:      in.Timestamp,
		Command:        cmd,
		Session:        session,
		Voice:          in.Voice || cmd.VoiceCommand,
		Confirmed:      confirmed,
	})
}

func (e *Engine) resolveSession(ctx context.Context, subjectID string) *auth.Session {
	session, err := e.sessions.Lookup(ctx, subjectID)
	if err != nil {
		// Auth trouble degrades to anonymous: commands that need a
		// session fail with NOT_AUTHENTICATED instead of the whole
		// pipeline erroring out.
		e.logger.Error("session lookup failed", "subject", subjectID, "err", err)
		return nil
	}
	return session
}

func (e *Engine) applyVoicePrefs(ctx context.Context, subjectID string, res *commands.Result) {
	if e.prefs == nil {
		return
	}
	prefs, err := e.prefs.Voice(ctx, subjectID)
	if err != nil {
		e.logger.Warn("voice prefs lookup failed", "subject", subjectID, "err", err)
		return
	}
	if prefs.VoiceReplies || prefs.VoiceOnly {
		res.Voice = true
	}
	if prefs.VoiceOnly {
		res.VoiceOnly = true
	}
}

func rateLimited(decision ratelimit.Decision) *commands.Result {
	msg := "you're sending messages too quickly, please slow down"
	if decision.Blocked {
		msg = "you've been temporarily blocked for sending too many messages"
	}
	if decision.RetryAfter > 0 {
		msg = fmt.Sprintf("%s, try again in %s", msg, decision.RetryAfter.Round(time.Second))
	}
	return commands.Failf(commands.CodeRateLimited, "%s", msg)
}
