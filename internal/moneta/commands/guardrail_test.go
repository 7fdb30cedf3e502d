package commands_test

import (
	"strings"
	"testing"

	"github.com/moneta-bot/moneta/internal/moneta/commands"
)

func TestSensitiveContent(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"card number", "my card is 4111 1111 1111 1111", true},
		{"card number dashed", "4111-1111-1111-1111", true},
		{"password", "my password: hunter2", true},
		{"pin", "the PIN is 1234", true},
		{"phone number", "call me at +15551234567", false},
		{"plain command", "send 20 to @bob", false},
		{"long reference id", "order 1234567890123456", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, reason := commands.SensitiveContent(tc.text)
			if got != tc.want {
				t.Errorf("SensitiveContent(%q) = %v, want %v", tc.text, got, tc.want)
			}
			if got && reason == "" {
				t.Errorf("refusal without a reason")
			}
		})
	}
}

func TestRedact(t *testing.T) {
	got := commands.Redact("card 4111 1111 1111 1111 thanks")
	if strings.Contains(got, "4111 1111") {
		t.Errorf("Redact left the card number in place: %q", got)
	}
	if !strings.Contains(got, "****1111") {
		t.Errorf("Redact(%q) = %q, want masked suffix", "card ...", got)
	}

	// Non-card digit runs pass through.
	const ref = "order 1234567890123456"
	if got := commands.Redact(ref); got != ref {
		t.Errorf("Redact(%q) = %q, want unchanged", ref, got)
	}
}
