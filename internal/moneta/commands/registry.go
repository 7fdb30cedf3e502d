package commands

import (
	"context"
	"sort"
	"strings"
)

// Handler implements one command.
type Handler interface {
	// Name is the canonical command name, e.g. "send".
	Name() string
	// Aliases are alternative names resolving to this handler.
	Aliases() []string
	// Description is the one-line help text.
	Description() string
	// Category groups commands in help output, e.g. "payments".
	Category() string
	// CommandType is the parser type this handler serves.
	CommandType() Type

	// RequiresAuth means the sender must have a linked session.
	RequiresAuth() bool
	// AdminOnly restricts the command to configured administrators.
	AdminOnly() bool

	// Validate checks the parsed arguments before execution.
	Validate(cmdCtx *Context) error
	// Execute runs the command. It must return a non-nil result.
	Execute(ctx context.Context, cmdCtx *Context) *Result
}

// Registry resolves command names, aliases, and parser types to
// handlers. Registration happens once at startup before any lookup, so
// the maps are not locked.
type Registry struct {
	byName  map[string]Handler
	byAlias map[string]Handler
	byType  map[Type]Handler
	ordered []Handler
}

func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]Handler),
		byAlias: make(map[string]Handler),
		byType:  make(map[Type]Handler),
	}
}

// Register adds a handler. Names and aliases are case-insensitive;
// re-registering a name replaces the previous handler.
func (r *Registry) Register(h Handler) {
	name := strings.ToLower(h.Name())
	if _, exists := r.byName[name]; !exists {
		r.ordered = append(r.ordered, h)
	}
	r.byName[name] = h
	r.byType[h.CommandType()] = h
	for _, alias := range h.Aliases() {
		r.byAlias[strings.ToLower(alias)] = h
	}
}

// Lookup resolves a name or alias, case-insensitively.
func (r *Registry) Lookup(name string) (Handler, bool) {
	name = strings.ToLower(name)
	if h, ok := r.byName[name]; ok {
		return h, true
	}
	h, ok := r.byAlias[name]
	return h, ok
}

// LookupType resolves a parser command type.
func (r *Registry) LookupType(t Type) (Handler, bool) {
	h, ok := r.byType[t]
	return h, ok
}

// List returns all handlers in registration order.
func (r *Registry) List() []Handler {
	out := make([]Handler, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// ListByCategory groups handlers by category, each group in
// registration order.
func (r *Registry) ListByCategory() map[string][]Handler {
	groups := make(map[string][]Handler)
	for _, h := range r.ordered {
		groups[h.Category()] = append(groups[h.Category()], h)
	}
	return groups
}

// ListForHelp returns the handlers to show in help output, hiding
// admin-only commands unless includeAdmin is set.
func (r *Registry) ListForHelp(includeAdmin bool) []Handler {
	var out []Handler
	for _, h := range r.ordered {
		if h.AdminOnly() && !includeAdmin {
			continue
		}
		out = append(out, h)
	}
	return out
}

// Suggest returns up to limit command names resembling input, for
// "did you mean" replies on unknown commands. Matching is by shared
// prefix or substring against names and aliases.
func (r *Registry) Suggest(input string, limit int) []string {
	input = strings.ToLower(strings.TrimSpace(input))
	if first, _, ok := strings.Cut(input, " "); ok {
		input = first
	}
	if input == "" || limit <= 0 {
		return nil
	}

	seen := make(map[string]bool)
	var suggestions []string
	consider := func(candidate string, canonical string) {
		if seen[canonical] {
			return
		}
		if strings.HasPrefix(candidate, input) || strings.HasPrefix(input, candidate) ||
			strings.Contains(candidate, input) {
			seen[canonical] = true
			suggestions = append(suggestions, canonical)
		}
	}
	for _, h := range r.ordered {
		name := strings.ToLower(h.Name())
		consider(name, name)
		for _, alias := range h.Aliases() {
			consider(strings.ToLower(alias), name)
		}
	}
	sort.Strings(suggestions)
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}
