package commands

import (
	"fmt"
	"time"
)

// Stable error codes surfaced to callers and logs. Messages may be
// localized later; codes never change.
const (
	CodeInvalidArguments        = "INVALID_ARGUMENTS"
	CodeNotAuthenticated        = "NOT_AUTHENTICATED"
	CodeSessionExpired          = "SESSION_EXPIRED"
	CodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	CodeRateLimited             = "RATE_LIMITED"
	CodeInsufficientBalance     = "INSUFFICIENT_BALANCE"
	CodeRecipientNotFound       = "RECIPIENT_NOT_FOUND"
	CodeTransactionFailed       = "TRANSACTION_FAILED"
	CodeUpstreamError           = "UPSTREAM_ERROR"
	CodeStorageError            = "STORAGE_ERROR"
	CodeInternalError           = "INTERNAL_ERROR"
	CodeUnknownCommand          = "UNKNOWN_COMMAND"
)

// ResultError carries a stable machine code alongside the human
// message.
type ResultError struct {
	Code    string
	Message string
	// Details holds machine-readable context for logs; never shown to
	// the user.
	Details map[string]any
	// Retryable hints that the same request may succeed if repeated.
	Retryable bool
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf builds a ResultError with a formatted message.
func Errorf(code string, format string, args ...any) *ResultError {
	return &ResultError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Button is a quick-reply option. Transports without button support
// render the list as numbered text.
type Button struct {
	ID    string
	Title string
}

// Result is what a handler produces for one command.
type Result struct {
	Success bool
	// Message is the user-facing reply text (markdown).
	Message string
	// Data holds structured values for callers that render richer
	// replies than plain text.
	Data map[string]any
	// Error is set when Success is false.
	Error *ResultError
	// Voice requests the reply be spoken rather than typed.
	Voice bool
	// VoiceOnly suppresses the text rendering when a spoken reply is
	// possible.
	VoiceOnly bool
	// VoiceAudio is synthesized speech supplied by a text-to-speech
	// collaborator when one is wired.
	VoiceAudio []byte
	// Media is an optional attachment with its caption.
	Media        []byte
	MediaCaption string
	// Buttons are quick-reply options for the message.
	Buttons []Button
	// ExecutionTime is stamped by the executor on every result, success
	// or failure.
	ExecutionTime time.Duration
}

// OK builds a successful result with a reply message.
func OK(message string) *Result {
	return &Result{Success: true, Message: message}
}

// Fail builds a failed result from a ResultError.
func Fail(err *ResultError) *Result {
	return &Result{Success: false, Message: err.Message, Error: err}
}

// Failf builds a failed result with a formatted message.
func Failf(code string, format string, args ...any) *Result {
	return Fail(Errorf(code, format, args...))
}
