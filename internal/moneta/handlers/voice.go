package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/moneta-bot/moneta/internal/moneta/commands"
	"github.com/moneta-bot/moneta/internal/moneta/kvstore"
)

// VoicePrefs is a subject's reply-mode preference.
type VoicePrefs struct {
	// VoiceReplies enables spoken replies.
	VoiceReplies bool `json:"voice_replies"`
	// VoiceOnly suppresses text entirely; implies VoiceReplies.
	VoiceOnly bool `json:"voice_only"`
}

// Preferences persists per-subject settings in the encrypted store.
// Preferences have no TTL; they live until changed.
type Preferences struct {
	store  *kvstore.Encrypted
	logger *slog.Logger
}

func NewPreferences(store *kvstore.Encrypted, logger *slog.Logger) *Preferences {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preferences{store: store, logger: logger}
}

func prefsKey(subjectID string) string {
	return "prefs:" + subjectID
}

// Voice returns the subject's reply-mode preference, defaulting to text
// replies when none is stored.
func (p *Preferences) Voice(ctx context.Context, subjectID string) (VoicePrefs, error) {
	var prefs VoicePrefs
	err := p.store.GetEncrypted(ctx, prefsKey(subjectID), &prefs)
	if errors.Is(err, kvstore.ErrNotFound) {
		return VoicePrefs{}, nil
	}
	if err != nil {
		return VoicePrefs{}, fmt.Errorf("load prefs for %q: %w", subjectID, err)
	}
	return prefs, nil
}

// SetVoice stores the subject's reply-mode preference.
func (p *Preferences) SetVoice(ctx context.Context, subjectID string, prefs VoicePrefs) error {
	if err := p.store.SetEncrypted(ctx, prefsKey(subjectID), prefs, 0); err != nil {
		return fmt.Errorf("store prefs for %q: %w", subjectID, err)
	}
	return nil
}

// Voice toggles spoken replies on or off.
type Voice struct {
	commands.BaseHandler
	deps *Deps
}

func NewVoice(deps *Deps) *Voice {
	return &Voice{
		BaseHandler: commands.BaseHandler{
			HandlerName:        "voice",
			HandlerDescription: "turn voice replies on or off",
			HandlerCategory:    CategoryGeneral,
			HandlerType:        commands.TypeVoice,
		},
		deps: deps,
	}
}

func (h *Voice) Validate(cmdCtx *commands.Context) error {
	return commands.RequireArgs(cmdCtx, "enabled")
}

func (h *Voice) Execute(ctx context.Context, cmdCtx *commands.Context) *commands.Result {
	enabled := cmdCtx.Command.Arg("enabled") == "true"

	prefs := VoicePrefs{VoiceReplies: enabled}
	if err := h.deps.Preferences.SetVoice(ctx, cmdCtx.SenderID, prefs); err != nil {
		h.deps.logger().Error("voice prefs store failed", "sender", cmdCtx.SenderID, "err", err)
		return commands.Failf(commands.CodeStorageError,
			"I couldn't save that setting, please try again")
	}

	if enabled {
		res := commands.OK("Voice replies are on.")
		res.Voice = true
		return res
	}
	return commands.OK("Voice replies are off.")
}

// VoiceOnly switches replies to speech only.
type VoiceOnly struct {
	commands.BaseHandler
	deps *Deps
}

func NewVoiceOnly(deps *Deps) *VoiceOnly {
	return &VoiceOnly{
		BaseHandler: commands.BaseHandler{
			HandlerName:        "voiceonly",
			HandlerAliases:     []string{"voice-only"},
			HandlerDescription: "reply with voice only",
			HandlerCategory:    CategoryGeneral,
			HandlerType:        commands.TypeVoiceOnly,
		},
		deps: deps,
	}
}

func (h *VoiceOnly) Execute(ctx context.Context, cmdCtx *commands.Context) *commands.Result {
	prefs := VoicePrefs{VoiceReplies: true, VoiceOnly: true}
	if err := h.deps.Preferences.SetVoice(ctx, cmdCtx.SenderID, prefs); err != nil {
		h.deps.logger().Error("voice prefs store failed", "sender", cmdCtx.SenderID, "err", err)
		return commands.Failf(commands.CodeStorageError,
			"I couldn't save that setting, please try again")
	}

	res := commands.OK("Got it, voice only from now on. Send `voice off` to switch back.")
	res.Voice = true
	return res
}
