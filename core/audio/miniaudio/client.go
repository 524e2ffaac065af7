// Package miniaudio plays and captures audio through miniaudio (malgo).
package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/lola/core/audio"
)

// Client owns one playback and one capture device sharing a malgo context.
// It is both an [audio.Player] and an [audio.Source].
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	encodingInfo audio.EncodingInfo
	withCapture  bool

	player  player
	capture captureClient
}

type ClientOption func(*Client)

// WithSampleRate sets the sample rate of both devices. Audio is always
// linear16 mono.
func WithSampleRate(sampleRate int) ClientOption {
	return func(c *Client) { c.encodingInfo.SampleRate = sampleRate }
}

// WithoutCapture skips opening the capture device, for setups where audio is
// captured elsewhere.
func WithoutCapture() ClientOption {
	return func(c *Client) { c.withCapture = false }
}

func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		encodingInfo: audio.EncodingInfo{SampleRate: audio.DefaultSampleRate, Format: audio.EncodingLinear16},
		withCapture:  true,
	}
	for _, opt := range opts {
		opt(client)
	}

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("malgo InitContext failed: %w", err)
	}
	client.audioContext = audioCtx

	if err := client.player.Init(audioCtx, client.encodingInfo); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	if err := client.player.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	if client.withCapture {
		if err := client.capture.Init(audioCtx, client.encodingInfo); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to initialize capture client: %w", err)
		}
	}

	return client, nil
}

func (c *Client) Play(ctx context.Context, clip audio.Clip, onEnded func()) (audio.Playback, error) {
	return c.player.Play(ctx, clip, onEnded)
}

func (c *Client) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	return c.capture.Stream(ctx, onAudio)
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.encodingInfo
}

func (c *Client) Close() {
	_ = c.capture.Uninit()
	_ = c.player.Uninit()
	if c.audioContext != nil {
		_ = c.audioContext.Uninit()
		c.audioContext.Free()
		c.audioContext = nil
	}
}
