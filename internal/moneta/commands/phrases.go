package commands

// Exact phrase overrides are checked verbatim before the generic
// grammar: the generic voice-setting pattern ("voice on|off") would
// otherwise mis-classify "voice only" phrasings. Precedence is the order
// of this single table, nothing else.

type phraseOverride struct {
	phrases []string
	cmdType Type
	args    map[string]string
}

var exactPhraseOverrides = []phraseOverride{
	{
		phrases: []string{
			"voice only",
			"voice only mode",
			"only voice",
			"voice messages only",
			"reply with voice only",
			"answer with voice only",
		},
		cmdType: TypeVoiceOnly,
		args:    map[string]string{"mode": "only"},
	},
	{
		phrases: []string{
			"voice on",
			"enable voice",
			"turn voice on",
			"turn on voice",
			"voice replies on",
		},
		cmdType: TypeVoice,
		args:    map[string]string{"enabled": "true"},
	},
	{
		phrases: []string{
			"voice off",
			"disable voice",
			"turn voice off",
			"turn off voice",
			"voice replies off",
			"text only",
		},
		cmdType: TypeVoice,
		args:    map[string]string{"enabled": "false"},
	},
}

// matchExactPhrase returns a Command when text equals one of the fixed
// phrases, nil otherwise. text is expected lower-cased and trimmed.
func matchExactPhrase(text string) *Command {
	for _, o := range exactPhraseOverrides {
		for _, p := range o.phrases {
			if text == p {
				args := make(map[string]string, len(o.args))
				for k, v := range o.args {
					args[k] = v
				}
				return &Command{Type: o.cmdType, Args: args}
			}
		}
	}
	return nil
}

// voiceSettingRemainders is what can legitimately follow the word
// "voice" as a settings command. The "voice <command>" compound prefix
// is only stripped when the remainder is NOT one of these, so "voice
// only" keeps its meaning while "voice balance" becomes a voice-
// originated balance check.
var voiceSettingRemainders = map[string]bool{
	"on":            true,
	"off":           true,
	"only":          true,
	"only mode":     true,
	"mode":          true,
	"replies on":    true,
	"replies off":   true,
	"messages only": true,
}

func isVoiceSettingRemainder(rest string) bool {
	return voiceSettingRemainders[rest]
}

// voiceFillerPrefixes are generic spoken-politeness prefixes that are
// stripped and recorded as a voice request without altering
// classification.
var voiceFillerPrefixes = []string{
	"please ",
	"say it ",
	"say ",
	"tell me ",
}
