package wakeword

import "testing"

func TestGateMatchesPhraseCaseInsensitively(t *testing.T) {
	gate := New("lola")

	testCases := []struct {
		transcript string
		expected   bool
	}{
		{transcript: "Hey Lola, what's up", expected: true},
		{transcript: "hey lola what's the weather", expected: true},
		{transcript: "LOLA", expected: true},
		{transcript: "hello there", expected: false},
		{transcript: "", expected: false},
		{transcript: "   ", expected: false},
	}

	for _, tc := range testCases {
		if got := gate.Matches(tc.transcript); got != tc.expected {
			t.Fatalf("Matches(%q): expected %t, got %t", tc.transcript, tc.expected, got)
		}
	}
}

func TestGateMatchesAnyConfiguredPhrase(t *testing.T) {
	gate := New("hey lola", "ok computer")

	if !gate.Matches("OK   Computer, open maps") {
		t.Fatalf("expected whitespace-insensitive match on second phrase")
	}
	if !gate.Matches("well hey Lola") {
		t.Fatalf("expected match on first phrase")
	}
	if gate.Matches("lola alone") {
		t.Fatalf("expected multi-word phrase to require all words")
	}
}

func TestGateWithoutPhrasesNeverMatches(t *testing.T) {
	gate := New("", "   ")

	if len(gate.Phrases()) != 0 {
		t.Fatalf("expected blank phrases to be dropped, got %v", gate.Phrases())
	}
	if gate.Matches("lola") {
		t.Fatalf("expected gate without phrases to never match")
	}
}
