// Package playback tracks speech that is currently playing so that all of
// it can be stopped at once.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/koscakluka/lola/core/audio"
	"github.com/koscakluka/lola/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrNoRenderer = errors.New("speech renderer not configured")
	ErrNoPlayer   = errors.New("audio player not configured")
)

// Registry owns every live [Handle]. Handles are keyed by an id that is
// never reused.
type Registry struct {
	renderer texttospeech.Renderer
	player   audio.Player

	mu      sync.Mutex
	lastID  uint64
	handles map[uint64]*Handle
}

func NewRegistry(renderer texttospeech.Renderer, player audio.Player) *Registry {
	return &Registry{
		renderer: renderer,
		player:   player,
		handles:  map[uint64]*Handle{},
	}
}

// Begin renders text and starts playing it.
func (r *Registry) Begin(ctx context.Context, text string) (*Handle, error) {
	ctx, span := tracer.Start(ctx, "begin speech")
	defer span.End()
	span.SetAttributes(attribute.Int("speech.text_length", len(text)))

	if r.renderer == nil {
		return nil, ErrNoRenderer
	}

	clip, err := r.renderer.Render(ctx, text)
	if err != nil {
		err = fmt.Errorf("failed to render speech: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int64("speech.duration_ms", clip.Duration().Milliseconds()))

	handle, err := r.BeginClip(ctx, text, clip)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int64("playback.handle_id", int64(handle.ID())))
	return handle, nil
}

// BeginClip starts playing an already rendered clip.
//
// If ctx is cancelled while the clip is being started the handle is
// cancelled before BeginClip returns, so a handle never outlives the
// context that created it.
func (r *Registry) BeginClip(ctx context.Context, label string, clip audio.Clip) (*Handle, error) {
	if r.player == nil {
		return nil, ErrNoPlayer
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	handle := r.register(label)
	playback, err := r.player.Play(ctx, clip, handle.end)
	if err != nil {
		handle.release(false)
		return nil, fmt.Errorf("failed to start playback: %w", err)
	}
	handle.attach(playback)

	// Registration happens before this check, so a concurrent CancelAll
	// either sees the handle or the cancelled context is seen here.
	if err := ctx.Err(); err != nil {
		handle.Cancel()
		return nil, err
	}

	return handle, nil
}

// CancelAll stops every live handle and reports how many were stopped. It is
// safe to call at any time, including with no live handles.
func (r *Registry) CancelAll() int {
	r.mu.Lock()
	live := make([]*Handle, 0, len(r.handles))
	for _, handle := range r.handles {
		live = append(live, handle)
	}
	r.mu.Unlock()

	cancelled := 0
	for _, handle := range live {
		if handle.release(true) {
			cancelled++
		}
	}

	if cancelled > 0 {
		logger.Info("cancelled speech playback", "handles", cancelled)
	}
	return cancelled
}

// Len reports the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

func (r *Registry) register(label string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	handle := &Handle{
		id:       r.lastID,
		label:    label,
		registry: r,
		done:     make(chan struct{}),
	}
	r.handles[handle.id] = handle
	return handle
}

func (r *Registry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
}
