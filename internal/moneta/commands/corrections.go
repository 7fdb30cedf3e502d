package commands

import "strings"

// corrections maps common typos and shorthand to canonical command
// words. The lookup rewrites the first token (or the whole string for
// short messages) before grammar matching; unknown tokens pass through
// unchanged.
var corrections = map[string]string{
	"sent":        "send",
	"snd":         "send",
	"sedn":        "send",
	"sned":        "send",
	"pya":         "pay",
	"bal":         "balance",
	"balanc":      "balance",
	"ballance":    "balance",
	"blance":      "balance",
	"balnce":      "balance",
	"recv":        "receive",
	"recieve":     "receive",
	"receieve":    "receive",
	"req":         "request",
	"reqest":      "request",
	"rquest":      "request",
	"hist":        "history",
	"histroy":     "history",
	"transctions": "history",
	"hlp":         "help",
	"halp":        "help",
	"hepl":        "help",
	"verfy":       "verify",
	"veriy":       "verify",
	"lgoin":       "link",
	"singin":      "link",
}

// maxWholeStringCorrection is the longest message for which the whole
// string is tried against the correction table before falling back to
// the first token.
const maxWholeStringCorrection = 12

// applyCorrections rewrites known typos in text. text is expected to be
// lower-cased and trimmed.
func applyCorrections(text string) string {
	if len(text) <= maxWholeStringCorrection {
		if fixed, ok := corrections[text]; ok {
			return fixed
		}
	}

	first, rest, found := strings.Cut(text, " ")
	fixed, ok := corrections[first]
	if !ok {
		return text
	}
	if !found {
		return fixed
	}
	return fixed + " " + rest
}
