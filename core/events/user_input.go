package events

// KindTranscriptReceived identifies a final recognition result.
const KindTranscriptReceived Kind = "user_input.transcript_received"

// TranscriptReceived carries a final transcript from the recognizer.
type TranscriptReceived struct {
	Base
	Transcript string
}

func NewTranscriptReceived(transcript string) TranscriptReceived {
	return TranscriptReceived{Base: NewBase(KindTranscriptReceived), Transcript: transcript}
}

// KindRecognizerStopped identifies a recognizer that stopped listening on its
// own.
const KindRecognizerStopped Kind = "user_input.recognizer_stopped"

type RecognizerStopped struct {
	Base
	Err error
}

func NewRecognizerStopped(err error) RecognizerStopped {
	return RecognizerStopped{Base: NewBase(KindRecognizerStopped), Err: err}
}
