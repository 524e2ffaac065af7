package events

import "testing"

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "transcript received", event: NewTranscriptReceived("lola hi"), expected: KindTranscriptReceived},
		{name: "interrupt requested", event: NewInterruptRequested("notification"), expected: KindInterruptRequested},
		{name: "recognizer stopped", event: NewRecognizerStopped(nil), expected: KindRecognizerStopped},
		{name: "state changed", event: NewStateChanged("listening", "capturing"), expected: KindStateChanged},
		{name: "turn started", event: NewTurnStarted("id", "prompt"), expected: KindTurnStarted},
		{name: "turn completed", event: NewTurnCompleted("id"), expected: KindTurnCompleted},
		{name: "turn cancelled", event: NewTurnCancelled("id"), expected: KindTurnCancelled},
		{name: "speech started", event: NewSpeechStarted("id", "It's sunny", false), expected: KindSpeechStarted},
		{name: "tool calls executed", event: NewToolCallsExecuted("id", 1, 0, 0), expected: KindToolCallsExecuted},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
			if testCase.event.Timestamp().IsZero() {
				t.Fatalf("expected timestamp to be set")
			}
		})
	}
}
