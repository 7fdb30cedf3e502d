package commands

import (
	"log/slog"
	"regexp"
	"strings"
)

var verifyCodeRe = regexp.MustCompile(`^\d{6}$`)

// Parser turns raw message text into a Command. Parsing is pure and
// deterministic: the same text and voice flag always produce the same
// command, and no input ever returns an error — unrecognized text
// resolves to TypeUnknown.
type Parser struct {
	logger *slog.Logger
}

// NewParser returns a parser. logger may be nil.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse classifies text. voiceInput marks the message as a speech
// transcript, which unlocks the natural-language rules and marks
// money-moving results as requiring confirmation.
func (p *Parser) Parse(text string, voiceInput bool) (cmd *Command) {
	raw := text

	// A panic inside a matcher must never take down the message loop;
	// the message degrades to unknown instead.
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("parser panic recovered", "panic", r)
			cmd = unknownCommand(raw, voiceInput)
		}
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		return unknownCommand(raw, voiceInput)
	}

	// Bare six digits is always a verification code, before any other
	// interpretation gets a chance.
	if verifyCodeRe.MatchString(text) {
		return p.finish(&Command{
			Type: TypeVerify,
			Args: map[string]string{"code": text},
		}, raw, voiceInput, false, false)
	}

	text = strings.ToLower(text)

	voiceRequested := false
	for stripped := true; stripped; {
		stripped = false
		for _, prefix := range voiceFillerPrefixes {
			if strings.HasPrefix(text, prefix) {
				text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
				voiceRequested = true
				stripped = true
				break
			}
		}
	}

	// "voice balance" is a voice-originated balance check, but "voice
	// only" is a settings command and keeps its prefix.
	voiceCompound := false
	if rest, ok := strings.CutPrefix(text, "voice "); ok && !isVoiceSettingRemainder(rest) {
		text = strings.TrimSpace(rest)
		voiceCompound = true
	}

	text = applyCorrections(text)

	if cmd := matchExactPhrase(text); cmd != nil {
		return p.finish(cmd, raw, voiceInput, voiceCompound, voiceRequested)
	}

	if voiceInput || voiceCompound {
		if cmd := matchNatural(text); cmd != nil {
			if cmd.IsPayment() {
				cmd.RequiresConfirmation = true
			}
			return p.finish(cmd, raw, voiceInput, voiceCompound, voiceRequested)
		}
	}

	if cmd := matchGrammar(text); cmd != nil {
		return p.finish(cmd, raw, voiceInput, voiceCompound, voiceRequested)
	}

	return p.finish(unknownCommand(raw, voiceInput), raw, voiceInput, voiceCompound, voiceRequested)
}

func (p *Parser) finish(cmd *Command, raw string, voiceInput, voiceCompound, voiceRequested bool) *Command {
	cmd.RawText = raw
	cmd.VoiceCommand = cmd.VoiceCommand || voiceInput || voiceCompound
	cmd.VoiceRequested = cmd.VoiceRequested || voiceRequested
	if cmd.Args == nil {
		cmd.Args = map[string]string{}
	}
	return cmd
}

func unknownCommand(raw string, voiceInput bool) *Command {
	return &Command{
		Type:         TypeUnknown,
		Args:         map[string]string{},
		RawText:      raw,
		VoiceCommand: voiceInput,
	}
}
