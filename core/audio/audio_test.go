package audio

import (
	"testing"
	"time"
)

func TestClipDuration(t *testing.T) {
	clip := Clip{
		Audio:        make([]byte, DefaultSampleRate*2),
		EncodingInfo: GetDefaultEncodingInfo(),
	}

	if got := clip.Duration(); got != time.Second {
		t.Fatalf("expected one second of linear16 audio, got %s", got)
	}

	mulaw := Clip{Audio: make([]byte, 4000), EncodingInfo: EncodingInfo{SampleRate: 8000, Format: EncodingMulaw}}
	if got := mulaw.Duration(); got != 500*time.Millisecond {
		t.Fatalf("expected half a second of mulaw audio, got %s", got)
	}

	if got := (Clip{Audio: []byte{1, 2}}).Duration(); got != 0 {
		t.Fatalf("expected zero duration without encoding info, got %s", got)
	}
}
