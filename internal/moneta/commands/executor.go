package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moneta-bot/moneta/internal/moneta/auth"
)

// Event kinds emitted around command execution.
const (
	EventCommandReceived = "command.received"
	EventCommandExecuted = "command.executed"
	EventCommandFailed   = "command.failed"
	EventCommandUnknown  = "command.unknown"
)

// Event is an execution lifecycle notification.
type Event struct {
	ID          string
	Kind        string
	Timestamp   time.Time
	MessageID   string
	SenderID    string
	CommandType Type
	ErrorCode   string
	Duration    time.Duration
}

// EventSink receives execution events. Sinks must not block; slow
// consumers should buffer internally.
type EventSink interface {
	Emit(ctx context.Context, ev Event)
}

// LogSink writes events to structured logs. It is the default sink.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) Emit(_ context.Context, ev Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("command event",
		"event_id", ev.ID,
		"kind", ev.Kind,
		"message_id", ev.MessageID,
		"sender", ev.SenderID,
		"command", ev.CommandType,
		"error_code", ev.ErrorCode,
		"duration", ev.Duration,
	)
}

// Request is one command execution request, assembled by the engine
// from an inbound message and its resolved session.
type Request struct {
	MessageID      string
	ConversationID string
	SenderID       string
	GroupID        string
	GroupName      string
	DisplayName    string
	Locale         string
	Timestamp      time.Time

	Command *Command
	Session *auth.Session

	Voice     bool
	Confirmed bool
}

// Executor resolves a parsed command to its handler and runs it under
// the shared execution contract. Every execution produces a result;
// the executor never returns nil.
type Executor struct {
	registry *Registry
	admins   auth.AdminChecker
	sink     EventSink
	logger   *slog.Logger
	now      func() time.Time
}

func NewExecutor(registry *Registry, admins auth.AdminChecker, sink EventSink, logger *slog.Logger) *Executor {
	if sink == nil {
		sink = &LogSink{Logger: logger}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if admins == nil {
		admins = auth.StaticAdmins(nil)
	}
	return &Executor{
		registry: registry,
		admins:   admins,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}
}

// Execute runs one request end to end.
func (e *Executor) Execute(ctx context.Context, req *Request) *Result {
	start := e.now()

	cmdCtx, err := NewContextBuilder().
		WithMessage(req.MessageID, req.ConversationID).
		WithSender(req.SenderID, req.DisplayName).
		WithGroup(req.GroupID, req.GroupName).
		WithCommand(req.Command).
		WithSession(req.Session).
		WithLocale(req.Locale).
		WithTimestamp(req.Timestamp).
		WithVoice(req.Voice).
		WithConfirmed(req.Confirmed).
		Build()
	if err != nil {
		res := Failf(CodeInternalError, "could not process that message")
		res.ExecutionTime = e.now().Sub(start)
		e.logger.Error("executor: context build failed", "err", err, "message_id", req.MessageID)
		return res
	}

	e.emit(ctx, EventCommandReceived, cmdCtx, "", 0)

	handler, ok := e.registry.LookupType(cmdCtx.Command.Type)
	if !ok {
		res := e.unknownResult(cmdCtx)
		res.ExecutionTime = e.now().Sub(start)
		e.emit(ctx, EventCommandUnknown, cmdCtx, CodeUnknownCommand, res.ExecutionTime)
		return res
	}

	isAdmin, err := e.admins.IsAdmin(ctx, cmdCtx.SenderID)
	if err != nil {
		e.logger.Warn("executor: admin check failed", "sender", cmdCtx.SenderID, "err", err)
		isAdmin = false
	}
	cmdCtx.IsAdmin = isAdmin

	res := runHandler(ctx, handler, cmdCtx)
	if res == nil {
		res = Failf(CodeInternalError, "something went wrong, please try again")
	}
	res.ExecutionTime = e.now().Sub(start)
	if !res.Voice {
		res.Voice = cmdCtx.Command.VoiceRequested || cmdCtx.Command.VoiceCommand
	}

	if res.Success {
		e.emit(ctx, EventCommandExecuted, cmdCtx, "", res.ExecutionTime)
	} else {
		code := ""
		if res.Error != nil {
			code = res.Error.Code
		}
		e.emit(ctx, EventCommandFailed, cmdCtx, code, res.ExecutionTime)
		if panicMsg, ok := res.Data["panic"]; ok {
			e.logger.Error("executor: handler panic",
				"command", cmdCtx.Command.Type, "message_id", cmdCtx.MessageID, "panic", panicMsg)
		}
	}
	return res
}

// unknownResult builds the reply for an unrecognized command: a voice
// retry hint for speech input, or up to five "did you mean" suggestions
// for text.
func (e *Executor) unknownResult(cmdCtx *Context) *Result {
	if cmdCtx.Voice {
		res := Failf(CodeUnknownCommand,
			"sorry, I didn't catch that — could you repeat it, or type the command instead?")
		res.Voice = true
		return res
	}

	suggestions := e.registry.Suggest(cmdCtx.Command.RawText, 5)
	if len(suggestions) == 0 {
		return Failf(CodeUnknownCommand,
			"I don't recognize that command — send `help` to see what I can do")
	}
	res := Failf(CodeUnknownCommand,
		"I don't recognize that command — did you mean %s? Send `help` for the full list",
		"`"+strings.Join(suggestions, "`, `")+"`")
	for _, name := range suggestions {
		res.Buttons = append(res.Buttons, Button{ID: name, Title: name})
	}
	return res
}

func (e *Executor) emit(ctx context.Context, kind string, cmdCtx *Context, code string, dur time.Duration) {
	e.sink.Emit(ctx, Event{
		ID:          uuid.NewString(),
		Kind:        kind,
		Timestamp:   e.now(),
		MessageID:   cmdCtx.MessageID,
		SenderID:    cmdCtx.SenderID,
		CommandType: cmdCtx.Command.Type,
		ErrorCode:   code,
		Duration:    dur,
	})
}

var _ fmt.Stringer = Type("")

// String implements fmt.Stringer for log output.
func (t Type) String() string { return string(t) }
