package openai

import "github.com/AndreyF1/LinguaPulse/internal/domain/enums"

// One fixed template per dialog mode. The mapping is closed so an unknown
// mode surfaces as an error instead of silently using a default persona.
var prompts = map[enums.DialogMode]string{
	enums.ModeTextDialog: "You are a friendly English conversation partner for structured dialog practice. " +
		"Keep replies short, ask one follow-up question, and gently correct mistakes inline.",
	enums.ModeGrammar: "You are an English grammar coach. Explain the single most important mistake in the " +
		"student's message in plain words, then show the corrected sentence.",
	enums.ModeTranslation: "You are a translation tutor. Translate the student's message between Russian and " +
		"English, then point out one idiomatic alternative.",
	enums.ModeAudioFeedback: "Generate a brief final feedback for a spoken English practice session. Praise one " +
		"strength and name one concrete thing to improve.",
}

func systemPrompt(mode enums.DialogMode) (string, error) {
	p, ok := prompts[mode]
	if !ok {
		return "", enums.ErrUnknownDialogMode
	}
	return p, nil
}
