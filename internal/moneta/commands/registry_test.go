package commands_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/moneta-bot/moneta/internal/moneta/commands"
)

type stubHandler struct {
	commands.BaseHandler
	execute func(ctx context.Context, cmdCtx *commands.Context) *commands.Result
}

func (h *stubHandler) Execute(ctx context.Context, cmdCtx *commands.Context) *commands.Result {
	if h.execute == nil {
		return commands.OK("ok")
	}
	return h.execute(ctx, cmdCtx)
}

func newStub(name string, t commands.Type, aliases ...string) *stubHandler {
	return &stubHandler{
		BaseHandler: commands.BaseHandler{
			HandlerName:     name,
			HandlerAliases:  aliases,
			HandlerType:     t,
			HandlerCategory: "test",
		},
	}
}

func TestRegistryLookupCaseInsensitive(t *testing.T) {
	r := commands.NewRegistry()
	r.Register(newStub("balance", commands.TypeBalance, "Bal"))

	for _, name := range []string{"balance", "BALANCE", "Balance", "bal", "BAL"} {
		if _, ok := r.Lookup(name); !ok {
			t.Errorf("Lookup(%q) not found", name)
		}
	}
	if _, ok := r.Lookup("nope"); ok {
		t.Errorf("Lookup(nope) unexpectedly found")
	}
}

func TestRegistryLookupType(t *testing.T) {
	r := commands.NewRegistry()
	want := newStub("send", commands.TypeSend)
	r.Register(want)

	got, ok := r.LookupType(commands.TypeSend)
	if !ok {
		t.Fatal("LookupType(send) not found")
	}
	if got != commands.Handler(want) {
		t.Errorf("LookupType returned a different handler")
	}
	if _, ok := r.LookupType(commands.TypeStats); ok {
		t.Errorf("LookupType(stats) unexpectedly found")
	}
}

func TestRegistryReRegisterReplaces(t *testing.T) {
	r := commands.NewRegistry()
	r.Register(newStub("help", commands.TypeHelp))
	replacement := newStub("help", commands.TypeHelp)
	r.Register(replacement)

	got, _ := r.Lookup("help")
	if got != commands.Handler(replacement) {
		t.Errorf("re-registration did not replace handler")
	}
	if n := len(r.List()); n != 1 {
		t.Errorf("List() length = %d, want 1", n)
	}
}

func TestRegistryListForHelpHidesAdmin(t *testing.T) {
	r := commands.NewRegistry()
	r.Register(newStub("help", commands.TypeHelp))
	stats := newStub("stats", commands.TypeStats)
	stats.NeedsAdmin = true
	r.Register(stats)

	if got := len(r.ListForHelp(false)); got != 1 {
		t.Errorf("ListForHelp(false) length = %d, want 1", got)
	}
	if got := len(r.ListForHelp(true)); got != 2 {
		t.Errorf("ListForHelp(true) length = %d, want 2", got)
	}
}

func TestRegistrySuggest(t *testing.T) {
	r := commands.NewRegistry()
	r.Register(newStub("send", commands.TypeSend, "pay", "transfer"))
	r.Register(newStub("balance", commands.TypeBalance, "bal"))
	r.Register(newStub("history", commands.TypeHistory))

	got := r.Suggest("balanse something", 5)
	if !reflect.DeepEqual(got, []string{"balance"}) {
		// "balanse" shares the "bal" prefix relationship via the alias.
		t.Errorf("Suggest(balanse) = %v, want [balance]", got)
	}

	if got := r.Suggest("zzz", 5); len(got) != 0 {
		t.Errorf("Suggest(zzz) = %v, want none", got)
	}

	// The limit is honored.
	if got := r.Suggest("s", 1); len(got) > 1 {
		t.Errorf("Suggest limit exceeded: %v", got)
	}
}
