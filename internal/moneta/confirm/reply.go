package confirm

import "strings"

// Reply is the classification of a message as a confirmation answer.
type Reply int

const (
	// ReplyNone means the message is not a yes/no answer and should be
	// parsed as a fresh command.
	ReplyNone Reply = iota
	ReplyYes
	ReplyNo
)

var positiveReplies = map[string]bool{
	"yes":     true,
	"y":       true,
	"yeah":    true,
	"yep":     true,
	"yup":     true,
	"sure":    true,
	"ok":      true,
	"okay":    true,
	"confirm": true,
	"do it":   true,
	"go":      true,
	"approve": true,
	"send it": true,
}

var negativeReplies = map[string]bool{
	"no":        true,
	"n":         true,
	"nope":      true,
	"nah":       true,
	"cancel":    true,
	"stop":      true,
	"abort":     true,
	"deny":      true,
	"reject":    true,
	"never":     true,
	"dont":      true,
	"don't":     true,
	"forget it": true,
}

// ClassifyReply interprets text as a confirmation answer. Matching is
// exact on the trimmed, lower-cased message so "yes please send more"
// is a fresh command and not an approval.
func ClassifyReply(text string) Reply {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.TrimRight(normalized, ".!")
	switch {
	case positiveReplies[normalized]:
		return ReplyYes
	case negativeReplies[normalized]:
		return ReplyNo
	default:
		return ReplyNone
	}
}
