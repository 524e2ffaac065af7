// Package portaudio captures microphone audio through PortAudio.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/lola/core/audio"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/lola/core/audio/portaudio"

var logger = otelslog.NewLogger(scopeName)

const DefaultBufferSize = 480

// Source implements [audio.Source] on the default input device.
type Source struct {
	bufferSize int
	sampleRate int
	stream     *portaudio.Stream
	in         []int16

	mu        sync.Mutex
	streaming bool
}

func NewSource(bufferSize int, sampleRate int) (*Source, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	in := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), bufferSize, in)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open PortAudio stream: %w", err)
	}

	return &Source{
		bufferSize: bufferSize,
		sampleRate: sampleRate,
		stream:     stream,
		in:         in,
	}, nil
}

func (s *Source) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: s.sampleRate,
		Format:     audio.EncodingLinear16,
	}
}

// Stream reads the input device until ctx is done.
func (s *Source) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		return fmt.Errorf("capture already streaming")
	}
	s.streaming = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.streaming = false
		s.mu.Unlock()
	}()

	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("failed to start PortAudio stream: %w", err)
	}
	defer func() {
		if err := s.stream.Stop(); err != nil {
			logger.Warn("failed to stop PortAudio stream", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := s.stream.Read(); err != nil {
			// Overflows drop a buffer but the stream stays usable.
			logger.Debug("failed to read from PortAudio stream", "error", err)
			continue
		}

		audioBuffer := bytes.Buffer{}
		if err := binary.Write(&audioBuffer, binary.LittleEndian, s.in); err != nil {
			return fmt.Errorf("failed to encode captured audio: %w", err)
		}
		onAudio(audioBuffer.Bytes())
	}
}

func (s *Source) Close() {
	if err := s.stream.Close(); err != nil {
		logger.Warn("failed to close PortAudio stream", "error", err)
	}
	if err := portaudio.Terminate(); err != nil {
		logger.Warn("failed to terminate PortAudio", "error", err)
	}
}
