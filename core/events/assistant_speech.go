package events

// KindSpeechStarted identifies the start of spoken assistant output.
const KindSpeechStarted Kind = "assistant_speech.started"

// SpeechStarted carries the text that started playing. Fallback is set when
// the text is the canned phrase spoken for a missing backend reply.
type SpeechStarted struct {
	Base
	TurnID   string
	Text     string
	Fallback bool
}

func NewSpeechStarted(turnID, text string, fallback bool) SpeechStarted {
	return SpeechStarted{Base: NewBase(KindSpeechStarted), TurnID: turnID, Text: text, Fallback: fallback}
}
