package commands_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/moneta-bot/moneta/internal/moneta/auth"
	"github.com/moneta-bot/moneta/internal/moneta/commands"
)

type recordingSink struct {
	mu     sync.Mutex
	events []commands.Event
}

func (s *recordingSink) Emit(_ context.Context, ev commands.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, ev := range s.events {
		out = append(out, ev.Kind)
	}
	return out
}

func newRequest(cmd *commands.Command, session *auth.Session) *commands.Request {
	return &commands.Request{
		MessageID:      "m1",
		ConversationID: "conv1",
		SenderID:       "@u:example.org",
		Command:        cmd,
		Session:        session,
	}
}

func verifiedSession() *auth.Session {
	return &auth.Session{AccountID: "acct-1", SubjectID: "@u:example.org", Verified: true}
}

func TestExecutorRunsHandler(t *testing.T) {
	r := commands.NewRegistry()
	handler := newStub("balance", commands.TypeBalance)
	handler.execute = func(context.Context, *commands.Context) *commands.Result {
		return commands.OK("your balance is $10")
	}
	r.Register(handler)
	sink := &recordingSink{}
	e := commands.NewExecutor(r, nil, sink, nil)

	res := e.Execute(context.Background(),
		newRequest(&commands.Command{Type: commands.TypeBalance}, nil))
	if !res.Success {
		t.Fatalf("result = %+v, want success", res)
	}
	if res.ExecutionTime < 0 {
		t.Errorf("execution time not stamped")
	}

	kinds := sink.kinds()
	want := []string{commands.EventCommandReceived, commands.EventCommandExecuted}
	if len(kinds) != 2 || kinds[0] != want[0] || kinds[1] != want[1] {
		t.Errorf("event kinds = %v, want %v", kinds, want)
	}
	for _, ev := range sink.events {
		if ev.ID == "" {
			t.Errorf("event %q missing id", ev.Kind)
		}
	}
}

func TestExecutorRequiresAuth(t *testing.T) {
	r := commands.NewRegistry()
	called := false
	handler := newStub("send", commands.TypeSend)
	handler.NeedsAuth = true
	handler.execute = func(context.Context, *commands.Context) *commands.Result {
		called = true
		return commands.OK("sent")
	}
	r.Register(handler)
	e := commands.NewExecutor(r, nil, &recordingSink{}, nil)

	res := e.Execute(context.Background(),
		newRequest(&commands.Command{Type: commands.TypeSend}, nil))
	if res.Success {
		t.Fatal("unauthenticated send succeeded")
	}
	if res.Error == nil || res.Error.Code != commands.CodeNotAuthenticated {
		t.Errorf("error = %+v, want %s", res.Error, commands.CodeNotAuthenticated)
	}
	if called {
		t.Errorf("handler ran without authentication")
	}

	// Unverified session reads as expired.
	session := verifiedSession()
	session.Verified = false
	res = e.Execute(context.Background(),
		newRequest(&commands.Command{Type: commands.TypeSend}, session))
	if res.Error == nil || res.Error.Code != commands.CodeSessionExpired {
		t.Errorf("error = %+v, want %s", res.Error, commands.CodeSessionExpired)
	}
}

func TestExecutorAdminGate(t *testing.T) {
	r := commands.NewRegistry()
	handler := newStub("stats", commands.TypeStats)
	handler.NeedsAdmin = true
	r.Register(handler)
	admins := auth.StaticAdmins{"@op:example.org"}
	e := commands.NewExecutor(r, admins, &recordingSink{}, nil)

	res := e.Execute(context.Background(),
		newRequest(&commands.Command{Type: commands.TypeStats}, nil))
	if res.Error == nil || res.Error.Code != commands.CodeInsufficientPermissions {
		t.Fatalf("error = %+v, want %s", res.Error, commands.CodeInsufficientPermissions)
	}

	req := newRequest(&commands.Command{Type: commands.TypeStats}, nil)
	req.SenderID = "@op:example.org"
	if res := e.Execute(context.Background(), req); !res.Success {
		t.Errorf("admin denied: %+v", res.Error)
	}
}

func TestExecutorValidation(t *testing.T) {
	r := commands.NewRegistry()
	handler := &validatingHandler{stubHandler: *newStub("send", commands.TypeSend)}
	r.Register(handler)
	e := commands.NewExecutor(r, nil, &recordingSink{}, nil)

	res := e.Execute(context.Background(),
		newRequest(&commands.Command{Type: commands.TypeSend, Args: map[string]string{}}, nil))
	if res.Error == nil || res.Error.Code != commands.CodeInvalidArguments {
		t.Errorf("error = %+v, want %s", res.Error, commands.CodeInvalidArguments)
	}
}

type validatingHandler struct {
	stubHandler
}

func (h *validatingHandler) Validate(cmdCtx *commands.Context) error {
	return commands.RequireArgs(cmdCtx, "amount")
}

func TestExecutorPanicRecovery(t *testing.T) {
	r := commands.NewRegistry()
	handler := newStub("balance", commands.TypeBalance)
	handler.execute = func(context.Context, *commands.Context) *commands.Result {
		panic("boom")
	}
	r.Register(handler)
	sink := &recordingSink{}
	e := commands.NewExecutor(r, nil, sink, nil)

	res := e.Execute(context.Background(),
		newRequest(&commands.Command{Type: commands.TypeBalance}, nil))
	if res.Success {
		t.Fatal("panicking handler reported success")
	}
	if res.Error == nil || res.Error.Code != commands.CodeInternalError {
		t.Errorf("error = %+v, want %s", res.Error, commands.CodeInternalError)
	}
}

func TestExecutorUnknownCommandSuggestions(t *testing.T) {
	r := commands.NewRegistry()
	r.Register(newStub("balance", commands.TypeBalance, "bal"))
	r.Register(newStub("send", commands.TypeSend))
	e := commands.NewExecutor(r, nil, &recordingSink{}, nil)

	res := e.Execute(context.Background(), newRequest(&commands.Command{
		Type:    commands.TypeUnknown,
		RawText: "balan 20",
	}, nil))
	if res.Success {
		t.Fatal("unknown command reported success")
	}
	if res.Error == nil || res.Error.Code != commands.CodeUnknownCommand {
		t.Fatalf("error = %+v, want %s", res.Error, commands.CodeUnknownCommand)
	}
	if !strings.Contains(res.Message, "balance") {
		t.Errorf("reply %q does not suggest balance", res.Message)
	}
	if len(res.Buttons) == 0 || res.Buttons[0].Title != "balance" {
		t.Errorf("buttons = %+v, want balance quick-reply", res.Buttons)
	}
}

func TestExecutorUnknownVoiceRetryHint(t *testing.T) {
	r := commands.NewRegistry()
	r.Register(newStub("balance", commands.TypeBalance))
	e := commands.NewExecutor(r, nil, &recordingSink{}, nil)

	req := newRequest(&commands.Command{
		Type:         commands.TypeUnknown,
		RawText:      "mumbled audio",
		VoiceCommand: true,
	}, nil)
	req.Voice = true

	res := e.Execute(context.Background(), req)
	if !res.Voice {
		t.Errorf("voice retry hint not marked for speech")
	}
	if !strings.Contains(res.Message, "repeat") {
		t.Errorf("reply %q is not a retry hint", res.Message)
	}
}
