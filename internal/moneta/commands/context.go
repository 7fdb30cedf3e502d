package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/moneta-bot/moneta/internal/moneta/auth"
)

// ErrIncompleteContext is returned by Builder.Build when a required
// field is missing.
var ErrIncompleteContext = errors.New("incomplete command context")

// Context carries everything a handler needs about one inbound command:
// who sent it, where, with what parsed intent, and under which session.
// It is built once per message and treated as read-only afterwards.
type Context struct {
	MessageID      string
	ConversationID string
	SenderID       string
	GroupID        string
	GroupName      string
	DisplayName    string
	Locale         string
	Timestamp      time.Time

	Command *Command
	// Session is nil for unauthenticated senders.
	Session *auth.Session
	// Metadata carries transport-specific extras that handlers may
	// inspect but the engine never interprets.
	Metadata map[string]string

	// IsAdmin is stamped by the executor from the admin checker.
	IsAdmin bool
	// Voice reports the message arrived as a speech transcript.
	Voice bool
	// Confirmed means this command was re-submitted through the
	// confirmation flow and may execute without prompting again.
	Confirmed bool
}

// Authenticated reports whether the sender has a linked session.
func (c *Context) Authenticated() bool {
	return c.Session != nil
}

// Builder assembles a Context. Zero value is ready to use.
type Builder struct {
	ctx Context
}

func NewContextBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) WithMessage(messageID, conversationID string) *Builder {
	b.ctx.MessageID = messageID
	b.ctx.ConversationID = conversationID
	return b
}

func (b *Builder) WithSender(senderID, displayName string) *Builder {
	b.ctx.SenderID = senderID
	b.ctx.DisplayName = displayName
	return b
}

func (b *Builder) WithGroup(groupID, groupName string) *Builder {
	b.ctx.GroupID = groupID
	b.ctx.GroupName = groupName
	return b
}

func (b *Builder) WithCommand(cmd *Command) *Builder {
	b.ctx.Command = cmd
	return b
}

func (b *Builder) WithSession(session *auth.Session) *Builder {
	b.ctx.Session = session
	return b
}

func (b *Builder) WithLocale(locale string) *Builder {
	b.ctx.Locale = locale
	return b
}

// WithMetadata adds one transport extra; repeated calls accumulate.
func (b *Builder) WithMetadata(key, value string) *Builder {
	if b.ctx.Metadata == nil {
		b.ctx.Metadata = make(map[string]string)
	}
	b.ctx.Metadata[key] = value
	return b
}

func (b *Builder) WithTimestamp(ts time.Time) *Builder {
	b.ctx.Timestamp = ts
	return b
}

func (b *Builder) WithVoice(voice bool) *Builder {
	b.ctx.Voice = voice
	return b
}

func (b *Builder) WithConfirmed(confirmed bool) *Builder {
	b.ctx.Confirmed = confirmed
	return b
}

// Build validates required fields and returns the context. The builder
// must not be reused after a successful Build.
func (b *Builder) Build() (*Context, error) {
	switch {
	case b.ctx.MessageID == "":
		return nil, fmt.Errorf("%w: message id", ErrIncompleteContext)
	case b.ctx.ConversationID == "":
		return nil, fmt.Errorf("%w: conversation id", ErrIncompleteContext)
	case b.ctx.SenderID == "":
		return nil, fmt.Errorf("%w: sender id", ErrIncompleteContext)
	case b.ctx.Command == nil:
		return nil, fmt.Errorf("%w: command", ErrIncompleteContext)
	}
	if b.ctx.Timestamp.IsZero() {
		b.ctx.Timestamp = time.Now()
	}
	ctx := b.ctx
	return &ctx, nil
}
