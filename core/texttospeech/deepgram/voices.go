package deepgram

import (
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidVoice = errors.New("invalid voice")

type Voice string

const DefaultVoice Voice = "aura-2-thalia-en"

var availableVoices = []Voice{
	"aura-2-thalia-en",
	"aura-2-andromeda-en",
	"aura-2-helena-en",
	"aura-2-apollo-en",
	"aura-2-arcas-en",
	"aura-2-aries-en",
	"aura-asteria-en",
	"aura-luna-en",
	"aura-stella-en",
	"aura-athena-en",
	"aura-hera-en",
	"aura-orion-en",
	"aura-arcas-en",
	"aura-perseus-en",
	"aura-angus-en",
	"aura-orpheus-en",
	"aura-helios-en",
	"aura-zeus-en",
}

func GetAvailableVoices() []Voice {
	return slices.Clone(availableVoices)
}

// ParseVoice returns the voice with the given model name.
func ParseVoice(name string) (Voice, error) {
	voice := Voice(name)
	if !slices.Contains(availableVoices, voice) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVoice, name)
	}
	return voice, nil
}
