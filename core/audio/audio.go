package audio

import (
	"context"
	"time"
)

// Clip is a fully rendered piece of audio.
type Clip struct {
	Audio        []byte
	EncodingInfo EncodingInfo
}

// Duration estimates how long the clip plays for.
func (c Clip) Duration() time.Duration {
	bytesPerSample := c.EncodingInfo.Format.ByteSize()
	if c.EncodingInfo.SampleRate <= 0 || bytesPerSample <= 0 {
		return 0
	}

	samples := len(c.Audio) / bytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(c.EncodingInfo.SampleRate)
}

// Playback is a clip that is currently playing.
type Playback interface {
	// Stop ends playback early. The onEnded callback passed to Play is not
	// invoked for stopped playbacks. Stopping twice is a no-op.
	Stop() error
}

// Player plays clips. Several clips may be playing at the same time.
type Player interface {
	// Play starts clip and calls onEnded once it has been played through.
	// onEnded may be called before Play returns.
	Play(ctx context.Context, clip Clip, onEnded func()) (Playback, error)
}

// Source produces captured audio, typically from a microphone.
type Source interface {
	EncodingInfo() EncodingInfo
	// Stream forwards captured audio to onAudio until ctx is done or
	// capture fails.
	Stream(ctx context.Context, onAudio func(audio []byte)) error
	Close()
}
