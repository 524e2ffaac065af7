package deepgram

import (
	"errors"
	"fmt"

	"github.com/koscakluka/lola/core/audio"
)

var ErrUnsupportedEncoding = errors.New("unsupported encoding")

type encodingInfo struct {
	SampleRate int
	Format     string
}

func convertEncoding(encoding audio.EncodingInfo) (encodingInfo, error) {
	converted := encodingInfo{}
	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
		converted.SampleRate = encoding.SampleRate
	default:
		return encodingInfo{}, fmt.Errorf("%w: sample rate %d", ErrUnsupportedEncoding, encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.EncodingLinear16:
		converted.Format = "linear16"
	case audio.EncodingALaw, audio.EncodingMulaw:
		if converted.SampleRate != 8000 {
			return encodingInfo{}, fmt.Errorf("%w: %s requires 8000 Hz", ErrUnsupportedEncoding, encoding.Format.Name())
		}
		converted.Format = encoding.Format.Name()
	default:
		return encodingInfo{}, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, encoding.Format.Name())
	}

	return converted, nil
}
