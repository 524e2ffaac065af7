// Package wakeword decides whether a transcript addresses the assistant.
package wakeword

import "strings"

const DefaultPhrase = "lola"

// Gate matches transcripts against a set of wake phrases. A Gate is
// immutable and safe for concurrent use.
type Gate struct {
	phrases []string
}

// New builds a gate for the given phrases. Blank phrases are ignored, a gate
// without phrases never matches.
func New(phrases ...string) Gate {
	gate := Gate{}
	for _, phrase := range phrases {
		if normalized := normalize(phrase); normalized != "" {
			gate.phrases = append(gate.phrases, normalized)
		}
	}
	return gate
}

func (g Gate) Phrases() []string { return append([]string(nil), g.phrases...) }

// Matches reports whether transcript contains any wake phrase, ignoring case
// and differences in whitespace.
func (g Gate) Matches(transcript string) bool {
	normalized := normalize(transcript)
	if normalized == "" {
		return false
	}

	for _, phrase := range g.phrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
