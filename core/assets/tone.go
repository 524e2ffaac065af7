package assets

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/koscakluka/lola/core/audio"
)

// Chirp synthesises a short rising two note cue as linear16 at sampleRate.
func Chirp(sampleRate int) audio.Clip {
	const (
		noteLength = 90 * time.Millisecond
		amplitude  = 0.25 * math.MaxInt16
	)

	var pcm []byte
	for _, frequency := range []float64{660, 990} {
		samples := int(float64(sampleRate) * noteLength.Seconds())
		for i := range samples {
			// Short linear fades avoid clicks at note boundaries.
			envelope := math.Min(1, math.Min(float64(i), float64(samples-i))/(float64(samples)*0.1))
			value := amplitude * envelope * math.Sin(2*math.Pi*frequency*float64(i)/float64(sampleRate))
			pcm = binary.LittleEndian.AppendUint16(pcm, uint16(int16(value)))
		}
	}

	return audio.Clip{
		Audio:        pcm,
		EncodingInfo: audio.EncodingInfo{SampleRate: sampleRate, Format: audio.EncodingLinear16},
	}
}
