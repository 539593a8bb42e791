package enums

import (
	"errors"
	"strings"
)

var ErrUnknownDialogMode = errors.New("unknown dialog mode")

// DialogMode selects the completion prompt template for a conversation turn.
// Unknown modes are an error, never a silent fallback.
type DialogMode string

const (
	ModeTextDialog    DialogMode = "text_dialog"
	ModeGrammar       DialogMode = "grammar"
	ModeTranslation   DialogMode = "translation"
	ModeAudioFeedback DialogMode = "audio_feedback"
)

func ParseDialogMode(raw string) (DialogMode, error) {
	switch DialogMode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeTextDialog:
		return ModeTextDialog, nil
	case ModeGrammar:
		return ModeGrammar, nil
	case ModeTranslation:
		return ModeTranslation, nil
	case ModeAudioFeedback:
		return ModeAudioFeedback, nil
	default:
		return "", ErrUnknownDialogMode
	}
}
