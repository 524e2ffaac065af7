package assets

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/koscakluka/lola/core/audio"
)

var ErrUnsupportedWAV = errors.New("unsupported wav file")

const (
	wavFormatPCM   = 1
	wavFormatALaw  = 6
	wavFormatMulaw = 7
)

// DecodeWAV reads a mono WAV file into a clip. Only 16-bit PCM, A-law and
// mu-law are supported.
func DecodeWAV(data []byte) (audio.Clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return audio.Clip{}, fmt.Errorf("%w: missing RIFF/WAVE header", ErrUnsupportedWAV)
	}

	var (
		encodingInfo audio.EncodingInfo
		haveFormat   bool
	)
	for offset := 12; offset+8 <= len(data); {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := data[offset+8:]
		if chunkSize > len(body) {
			chunkSize = len(body)
		}
		body = body[:chunkSize]

		switch chunkID {
		case "fmt ":
			if len(body) < 16 {
				return audio.Clip{}, fmt.Errorf("%w: short fmt chunk", ErrUnsupportedWAV)
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			channels := binary.LittleEndian.Uint16(body[2:4])
			sampleRate := binary.LittleEndian.Uint32(body[4:8])
			bitsPerSample := binary.LittleEndian.Uint16(body[14:16])
			if channels != 1 {
				return audio.Clip{}, fmt.Errorf("%w: %d channels", ErrUnsupportedWAV, channels)
			}

			switch {
			case format == wavFormatPCM && bitsPerSample == 16:
				encodingInfo.Format = audio.EncodingLinear16
			case format == wavFormatALaw && bitsPerSample == 8:
				encodingInfo.Format = audio.EncodingALaw
			case format == wavFormatMulaw && bitsPerSample == 8:
				encodingInfo.Format = audio.EncodingMulaw
			default:
				return audio.Clip{}, fmt.Errorf("%w: format %d with %d bits per sample", ErrUnsupportedWAV, format, bitsPerSample)
			}
			encodingInfo.SampleRate = int(sampleRate)
			haveFormat = true

		case "data":
			if !haveFormat {
				return audio.Clip{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrUnsupportedWAV)
			}
			return audio.Clip{
				Audio:        append([]byte(nil), body...),
				EncodingInfo: encodingInfo,
			}, nil
		}

		// Chunks are padded to an even size.
		offset += 8 + chunkSize + chunkSize%2
	}

	return audio.Clip{}, fmt.Errorf("%w: no data chunk", ErrUnsupportedWAV)
}

// EncodeWAV wraps a clip in a canonical 44 byte WAV header.
func EncodeWAV(clip audio.Clip) ([]byte, error) {
	var format, bitsPerSample uint16
	switch clip.EncodingInfo.Format {
	case audio.EncodingLinear16:
		format, bitsPerSample = wavFormatPCM, 16
	case audio.EncodingALaw:
		format, bitsPerSample = wavFormatALaw, 8
	case audio.EncodingMulaw:
		format, bitsPerSample = wavFormatMulaw, 8
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedWAV, clip.EncodingInfo.Format.Name())
	}

	dataLen := len(clip.Audio)
	blockAlign := bitsPerSample / 8
	byteRate := uint32(clip.EncodingInfo.SampleRate) * uint32(blockAlign)

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], format)
	binary.LittleEndian.PutUint16(header[22:24], 1)
	binary.LittleEndian.PutUint32(header[24:28], uint32(clip.EncodingInfo.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	return append(header, clip.Audio...), nil
}
