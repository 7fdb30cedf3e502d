// Package commands implements the conversational command engine: the
// text parser, the handler registry, the per-request context, and the
// executor that orchestrates them.
package commands

// Type identifies the intent a message was parsed into.
type Type string

const (
	// TypeUnknown means no pattern matched. It is a valid terminal value,
	// not an error.
	TypeUnknown Type = "unknown"

	TypeHelp    Type = "help"
	TypeBalance Type = "balance"
	TypeSend    Type = "send"
	TypeRequest Type = "request"
	TypeHistory Type = "history"
	TypeVerify  Type = "verify"
	TypeLink    Type = "link"
	TypeUnlink  Type = "unlink"
	// TypeVoice toggles voice replies on or off.
	TypeVoice Type = "voice"
	// TypeVoiceOnly switches replies to voice-only mode.
	TypeVoiceOnly Type = "voice_only"
	TypeStats     Type = "stats"
)

// Command is the typed representation of a parsed user intent. It is
// immutable once produced by the parser.
type Command struct {
	Type Type
	// Args holds the named values extracted for this command type, e.g.
	// amount/recipient/memo for a send.
	Args map[string]string
	// RawText preserves the original, uncorrected message text so error
	// messages can echo exactly what the user sent.
	RawText string

	// VoiceCommand reports that the command came in as voice input or as
	// a "voice <command>" compound form.
	VoiceCommand bool
	// VoiceRequested reports that a generic voice filler prefix ("please",
	// "say it") was stripped; the reply should be spoken without the
	// classification having changed.
	VoiceRequested bool
	// RequiresConfirmation marks money-moving intents recognised from
	// natural speech; they must be re-confirmed before execution.
	RequiresConfirmation bool
}

// Arg returns the named argument or "" when absent.
func (c *Command) Arg(name string) string {
	return c.Args[name]
}

// IsPayment reports whether the command moves money.
func (c *Command) IsPayment() bool {
	return c.Type == TypeSend || c.Type == TypeRequest
}
