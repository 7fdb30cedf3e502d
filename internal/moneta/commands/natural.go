package commands

import (
	"regexp"
	"strings"
)

// The natural-language layer maps colloquial spoken phrasing to a
// Command. It runs for voice input only, before the structured grammar,
// so a transcript like "send five dollars to john" resolves through the
// templated rules rather than falling to unknown.
//
// Precedence is the order of the naturalRules slice — a single ordered
// table, not scattered conditionals.

type naturalRule struct {
	name  string
	match func(text string) *Command
}

var (
	nlSendRe = regexp.MustCompile(
		`^(?:i (?:want|need|would like) to |can you |could you |)` +
			`(?:send|transfer|pay)\s+\$?(?P<amount>\d+(?:\.\d{1,2})?)` +
			`\s*(?:dollars?|bucks?|usd)?` +
			`\s+to\s+(?P<recipient>[^,]+?)` +
			`(?:\s+for\s+(?P<memo>.+))?$`)

	nlRequestRe = regexp.MustCompile(
		`^(?:i (?:want|need|would like) to |can you |could you |)` +
			`(?:request|ask for|collect)\s+\$?(?P<amount>\d+(?:\.\d{1,2})?)` +
			`\s*(?:dollars?|bucks?|usd)?` +
			`\s+from\s+(?P<recipient>[^,]+?)` +
			`(?:\s+for\s+(?P<memo>.+))?$`)
)

var naturalRules = []naturalRule{
	{
		name: "send",
		match: func(text string) *Command {
			m := namedGroups(nlSendRe, text)
			if m == nil {
				return nil
			}
			args := map[string]string{"amount": m["amount"]}
			classifyRecipient(strings.TrimSpace(m["recipient"]), args)
			if memo := strings.TrimSpace(m["memo"]); memo != "" {
				args["memo"] = memo
			}
			return &Command{Type: TypeSend, Args: args}
		},
	},
	{
		name: "request",
		match: func(text string) *Command {
			m := namedGroups(nlRequestRe, text)
			if m == nil {
				return nil
			}
			args := map[string]string{"amount": m["amount"]}
			classifyRecipient(strings.TrimSpace(m["recipient"]), args)
			if memo := strings.TrimSpace(m["memo"]); memo != "" {
				args["memo"] = memo
			}
			return &Command{Type: TypeRequest, Args: args}
		},
	},
	{
		name: "balance",
		match: keywordRule(TypeBalance,
			"balance",
			"how much money do i have",
			"how much do i have",
			"what do i have in my account",
		),
	},
	{
		name: "history",
		match: keywordRule(TypeHistory,
			"transactions",
			"transaction history",
			"payment history",
			"recent payments",
			"what did i spend",
		),
	},
	{
		name: "help",
		match: keywordRule(TypeHelp,
			"what can you do",
			"help me",
			"how does this work",
		),
	},
}

// keywordRule builds a substring matcher for command types that have no
// arguments to extract.
func keywordRule(t Type, keywords ...string) func(string) *Command {
	return func(text string) *Command {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return &Command{Type: t, Args: map[string]string{}}
			}
		}
		return nil
	}
}

// matchNatural tries the natural-language rules in order against the
// spoken-number-normalized text. Returns nil when no rule matches.
func matchNatural(text string) *Command {
	normalized := normalizeSpokenNumbers(text)
	for _, rule := range naturalRules {
		if cmd := rule.match(normalized); cmd != nil {
			return cmd
		}
	}
	return nil
}
