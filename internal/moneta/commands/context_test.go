package commands_test

import (
	"errors"
	"testing"
	"time"

	"github.com/moneta-bot/moneta/internal/moneta/auth"
	"github.com/moneta-bot/moneta/internal/moneta/commands"
)

func TestContextBuilderBuild(t *testing.T) {
	ts := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	session := &auth.Session{AccountID: "acct-1", SubjectID: "@u:example.org", Verified: true}
	cmd := &commands.Command{Type: commands.TypeBalance, Args: map[string]string{}}

	ctx, err := commands.NewContextBuilder().
		WithMessage("m1", "conv1").
		WithSender("@u:example.org", "Uma").
		WithGroup("g1", "family").
		WithCommand(cmd).
		WithSession(session).
		WithLocale("en").
		WithTimestamp(ts).
		WithVoice(true).
		WithConfirmed(true).
		WithMetadata("platform", "matrix").
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if ctx.MessageID != "m1" || ctx.ConversationID != "conv1" {
		t.Errorf("message fields = %q/%q", ctx.MessageID, ctx.ConversationID)
	}
	if ctx.SenderID != "@u:example.org" || ctx.DisplayName != "Uma" {
		t.Errorf("sender fields = %q/%q", ctx.SenderID, ctx.DisplayName)
	}
	if ctx.GroupID != "g1" || ctx.GroupName != "family" {
		t.Errorf("group fields = %q/%q", ctx.GroupID, ctx.GroupName)
	}
	if ctx.Command != cmd || ctx.Session != session {
		t.Errorf("command or session not carried through")
	}
	if !ctx.Timestamp.Equal(ts) || ctx.Locale != "en" {
		t.Errorf("timestamp/locale = %v/%q", ctx.Timestamp, ctx.Locale)
	}
	if !ctx.Voice || !ctx.Confirmed {
		t.Errorf("voice/confirmed flags lost")
	}
	if ctx.Metadata["platform"] != "matrix" {
		t.Errorf("metadata = %v", ctx.Metadata)
	}
	if !ctx.Authenticated() {
		t.Errorf("Authenticated() = false with a session")
	}
}

func TestContextBuilderRequiredFields(t *testing.T) {
	cmd := &commands.Command{Type: commands.TypeHelp}

	builders := map[string]*commands.Builder{
		"missing message": commands.NewContextBuilder().
			WithSender("@u:example.org", "").WithCommand(cmd),
		"missing sender": commands.NewContextBuilder().
			WithMessage("m1", "conv1").WithCommand(cmd),
		"missing command": commands.NewContextBuilder().
			WithMessage("m1", "conv1").WithSender("@u:example.org", ""),
	}
	for name, b := range builders {
		t.Run(name, func(t *testing.T) {
			_, err := b.Build()
			if !errors.Is(err, commands.ErrIncompleteContext) {
				t.Errorf("Build() error = %v, want ErrIncompleteContext", err)
			}
		})
	}
}

func TestContextBuilderDefaultsTimestamp(t *testing.T) {
	ctx, err := commands.NewContextBuilder().
		WithMessage("m1", "conv1").
		WithSender("@u:example.org", "").
		WithCommand(&commands.Command{Type: commands.TypeHelp}).
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if ctx.Timestamp.IsZero() {
		t.Errorf("timestamp not defaulted")
	}
	if ctx.Authenticated() {
		t.Errorf("Authenticated() = true without a session")
	}
}
