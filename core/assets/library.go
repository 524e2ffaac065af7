// Package assets loads the static audio clips the assistant plays.
package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/koscakluka/lola/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PromptAccepted is the cue played when the wake phrase is recognised.
const PromptAccepted = "prompt-accepted"

// Library holds preloaded clips by name. Clip names are file names without
// the .wav extension.
type Library struct {
	directory    string
	encodingInfo audio.EncodingInfo

	mu    sync.RWMutex
	clips map[string]audio.Clip
}

type LibraryOption func(*Library)

// WithDirectory loads every .wav file in dir on Preload.
func WithDirectory(dir string) LibraryOption {
	return func(l *Library) { l.directory = dir }
}

// WithEncodingInfo sets the encoding clips must have to be playable.
// Mismatched files are skipped.
func WithEncodingInfo(encodingInfo audio.EncodingInfo) LibraryOption {
	return func(l *Library) {
		if !encodingInfo.IsZero() {
			l.encodingInfo = encodingInfo
		}
	}
}

func NewLibrary(opts ...LibraryOption) *Library {
	l := &Library{
		encodingInfo: audio.GetDefaultEncodingInfo(),
		clips:        map[string]audio.Clip{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Preload reads the configured directory. Clips that were loaded before an
// error are kept. The prompt accepted cue is synthesised when no file
// provides it, so it is available even when Preload fails.
func (l *Library) Preload(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "preload audio assets")
	defer span.End()

	defer l.ensurePromptAccepted()

	if l.directory == "" {
		return nil
	}

	entries, err := os.ReadDir(l.directory)
	if err != nil {
		err = fmt.Errorf("failed to read asset directory: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	loaded := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if err := l.load(name, filepath.Join(l.directory, entry.Name())); err != nil {
			logger.Warn("skipping audio asset", "asset", name, "error", err)
			continue
		}
		loaded++
	}

	span.SetAttributes(attribute.Int("assets.loaded", loaded))
	return nil
}

func (l *Library) load(name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	clip, err := DecodeWAV(data)
	if err != nil {
		return err
	}
	if clip.EncodingInfo != l.encodingInfo {
		return fmt.Errorf("encoding %s at %d Hz does not match %s at %d Hz",
			clip.EncodingInfo.Format.Name(), clip.EncodingInfo.SampleRate,
			l.encodingInfo.Format.Name(), l.encodingInfo.SampleRate)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.clips[name] = clip
	return nil
}

func (l *Library) ensurePromptAccepted() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.clips[PromptAccepted]; ok {
		return
	}
	if l.encodingInfo.Format != audio.EncodingLinear16 {
		return
	}
	l.clips[PromptAccepted] = Chirp(l.encodingInfo.SampleRate)
}

func (l *Library) Clip(name string) (audio.Clip, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	clip, ok := l.clips[name]
	return clip, ok
}

func (l *Library) PromptAccepted() (audio.Clip, bool) {
	return l.Clip(PromptAccepted)
}
