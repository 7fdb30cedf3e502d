package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/moneta-bot/moneta/internal/moneta/commands"
)

// Help lists the available commands, grouped by category. Admin-only
// commands appear only for administrators.
type Help struct {
	commands.BaseHandler
	registry *commands.Registry
}

func NewHelp(registry *commands.Registry) *Help {
	return &Help{
		BaseHandler: commands.BaseHandler{
			HandlerName:        "help",
			HandlerAliases:     []string{"commands", "menu", "?"},
			HandlerDescription: "show what I can do",
			HandlerCategory:    CategoryGeneral,
			HandlerType:        commands.TypeHelp,
		},
		registry: registry,
	}
}

func (h *Help) Execute(_ context.Context, cmdCtx *commands.Context) *commands.Result {
	groups := make(map[string][]string)
	for _, handler := range h.registry.ListForHelp(cmdCtx.IsAdmin) {
		line := fmt.Sprintf("- `%s` — %s", handler.Name(), handler.Description())
		groups[handler.Category()] = append(groups[handler.Category()], line)
	}

	categories := make([]string, 0, len(groups))
	for cat := range groups {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var b strings.Builder
	b.WriteString("Here's what I can do:\n")
	for _, cat := range categories {
		fmt.Fprintf(&b, "\n**%s**\n", cat)
		b.WriteString(strings.Join(groups[cat], "\n"))
		b.WriteString("\n")
	}
	b.WriteString("\nYou can also just talk to me: try \"send five dollars to john\".")

	return commands.OK(b.String())
}
