package miniaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/lola/core/audio"
)

var ErrEncodingMismatch = errors.New("clip encoding does not match playback device")

type player struct {
	device       *malgo.Device
	encodingInfo audio.EncodingInfo
	mixer        mixer

	mu sync.Mutex
}

func (p *player) Init(audioContext *malgo.AllocatedContext, encodingInfo audio.EncodingInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	sampleRate := uint32(encodingInfo.SampleRate)
	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = sampleRate
	config.Playback.Format = format
	config.Playback.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	config.Periods = 4

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			need := int(frameCount) * bytesPerFrame
			if need > len(pOutput) {
				need = len(pOutput)
			}
			for _, ended := range p.mixer.fill(pOutput[:need]) {
				// Never block the device callback.
				go ended.onEnded()
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	p.device = device
	p.encodingInfo = encodingInfo
	return nil
}

func (p *player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device == nil {
		return fmt.Errorf("device not initialized")
	} else if p.device.IsStarted() {
		return nil
	}

	if err := p.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

func (p *player) Play(_ context.Context, clip audio.Clip, onEnded func()) (audio.Playback, error) {
	if clip.EncodingInfo != p.encodingInfo {
		return nil, fmt.Errorf("%w: got %s at %d Hz", ErrEncodingMismatch, clip.EncodingInfo.Format.Name(), clip.EncodingInfo.SampleRate)
	}
	if onEnded == nil {
		onEnded = func() {}
	}

	p.mu.Lock()
	started := p.device != nil && p.device.IsStarted()
	p.mu.Unlock()
	if !started {
		return nil, fmt.Errorf("device not started")
	}

	if len(clip.Audio) < 2 {
		onEnded()
		return stoppedPlayback{}, nil
	}

	return &playback{mixer: &p.mixer, voice: p.mixer.add(clip.Audio, onEnded)}, nil
}

func (p *player) Uninit() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.mixer.clear()
	if p.device == nil {
		return fmt.Errorf("device not initialized")
	}

	p.device.Uninit()
	p.device = nil
	return nil
}

type playback struct {
	mixer *mixer
	voice *voice
}

func (p *playback) Stop() error {
	p.mixer.remove(p.voice)
	return nil
}

type stoppedPlayback struct{}

func (stoppedPlayback) Stop() error { return nil }
