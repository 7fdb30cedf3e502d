package commands

import (
	"regexp"
	"strings"
)

// Structured grammar for typed input. Rules are checked in slice order;
// the first match wins and yields the full command, so more specific
// patterns must precede broader ones.

type grammarRule struct {
	commandType Type
	pattern     *regexp.Regexp
	// extract turns the named-group matches into command args. When
	// nil the matched groups are copied through verbatim.
	extract func(m map[string]string, args map[string]string)
}

var usernameRe = regexp.MustCompile(`^@[A-Za-z0-9_.-]{2,}$`)
var phoneRe = regexp.MustCompile(`^\+?\d{7,15}$`)

// classifyRecipient records the recipient under the most specific arg
// key it qualifies for: an @username, then a phone number, then free
// text (a display name the payment backend resolves).
func classifyRecipient(recipient string, args map[string]string) {
	switch {
	case usernameRe.MatchString(recipient):
		args["username"] = recipient
	case phoneRe.MatchString(recipient):
		args["phone"] = recipient
	default:
		args["recipient"] = recipient
	}
}

func paymentExtract(m map[string]string, args map[string]string) {
	args["amount"] = m["amount"]
	classifyRecipient(strings.TrimSpace(m["counterparty"]), args)
	if memo := strings.TrimSpace(m["memo"]); memo != "" {
		args["memo"] = memo
	}
}

var grammarRules = []grammarRule{
	{
		commandType: TypeVerify,
		pattern:     regexp.MustCompile(`^(?:verify|code)\s+(?P<code>\d{6})$`),
	},
	{
		commandType: TypeSend,
		pattern: regexp.MustCompile(
			`^(?:send|pay|transfer)\s+\$?(?P<amount>\d+(?:\.\d{1,2})?)` +
				`\s+to\s+(?P<counterparty>.+?)(?:\s+for\s+(?P<memo>.+))?$`),
		extract: paymentExtract,
	},
	{
		commandType: TypeRequest,
		pattern: regexp.MustCompile(
			`^(?:request|collect)\s+\$?(?P<amount>\d+(?:\.\d{1,2})?)` +
				`\s+from\s+(?P<counterparty>.+?)(?:\s+for\s+(?P<memo>.+))?$`),
		extract: paymentExtract,
	},
	{
		commandType: TypeHistory,
		pattern:     regexp.MustCompile(`^(?:history|transactions)(?:\s+(?P<count>\d{1,3}))?$`),
	},
	{
		commandType: TypeBalance,
		pattern:     regexp.MustCompile(`^(?:balance|bal)(?:\s+check)?$|^check\s+balance$|^my\s+balance$`),
	},
	{
		commandType: TypeHelp,
		pattern:     regexp.MustCompile(`^(?:help|commands|menu)$`),
	},
	{
		commandType: TypeLink,
		pattern:     regexp.MustCompile(`^link(?:\s+account)?(?:\s+(?P<phone>\+?\d{7,15}))?$`),
	},
	{
		commandType: TypeUnlink,
		pattern:     regexp.MustCompile(`^unlink(?:\s+account)?$`),
	},
	{
		commandType: TypeVoice,
		pattern:     regexp.MustCompile(`^voice\s+(?P<setting>on|off)$`),
		extract: func(m map[string]string, args map[string]string) {
			if m["setting"] == "on" {
				args["enabled"] = "true"
			} else {
				args["enabled"] = "false"
			}
		},
	},
	{
		commandType: TypeStats,
		pattern:     regexp.MustCompile(`^stats$`),
	},
}

// namedGroups matches text against re and returns the named capture
// groups, or nil when the pattern does not match.
func namedGroups(re *regexp.Regexp, text string) map[string]string {
	match := re.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	groups := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" {
			groups[name] = match[i]
		}
	}
	return groups
}

// matchGrammar tries the structured rules in order. Returns nil when no
// rule matches.
func matchGrammar(text string) *Command {
	for _, rule := range grammarRules {
		m := namedGroups(rule.pattern, text)
		if m == nil {
			continue
		}
		args := map[string]string{}
		if rule.extract != nil {
			rule.extract(m, args)
		} else {
			for k, v := range m {
				if v != "" {
					args[k] = v
				}
			}
		}
		return &Command{Type: rule.commandType, Args: args}
	}
	return nil
}
