package commands

import (
	"regexp"
	"strings"
)

// Messages are screened before parsing: a chat thread is the wrong
// place for card numbers and credentials, and unknown-command replies
// echo the raw text back, which must never reproduce them.

var (
	cardNumberRe = regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)
	credentialRe = regexp.MustCompile(`(?i)\b(?:password|passwd|pin|cvv|cvc)\b\s*[:=]?\s*\S+`)
)

// SensitiveContent reports whether text contains something that should
// never transit chat, with a short reason for the refusal reply.
func SensitiveContent(text string) (bool, string) {
	if m := cardNumberRe.FindString(text); m != "" && luhnValid(m) {
		return true, "that looks like a card number — never share card details here"
	}
	if credentialRe.MatchString(text) {
		return true, "never share passwords or PINs in chat"
	}
	return false, ""
}

// luhnValid checks the card-number checksum so ordinary long numbers
// (phone numbers, reference ids) are not refused.
func luhnValid(s string) bool {
	var digits []int
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		} else if r != ' ' && r != '-' {
			return false
		}
	}
	if len(digits) < 13 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// Redact masks any detected card number for safe logging.
func Redact(text string) string {
	return cardNumberRe.ReplaceAllStringFunc(text, func(m string) string {
		if !luhnValid(m) {
			return m
		}
		clean := strings.NewReplacer(" ", "", "-", "").Replace(m)
		return "****" + clean[len(clean)-4:]
	})
}
