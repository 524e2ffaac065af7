package playback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/lola/core/audio"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBeginEndsNaturally(t *testing.T) {
	player := &stubPlayer{}
	registry := NewRegistry(stubRenderer{}, player)

	handle, err := registry.Begin(context.Background(), "It's sunny")
	if err != nil {
		t.Fatalf("unexpected begin error: %v", err)
	}
	if handle.Label() != "It's sunny" {
		t.Fatalf("unexpected label: %q", handle.Label())
	}
	if got := registry.Len(); got != 1 {
		t.Fatalf("expected 1 live handle, got %d", got)
	}

	player.finishAll()

	waitForDone(t, handle)
	if handle.Cancelled() {
		t.Fatalf("expected natural end, handle reports cancelled")
	}
	if got := registry.Len(); got != 0 {
		t.Fatalf("expected empty registry, got %d", got)
	}
	if got := player.stops(); got != 0 {
		t.Fatalf("expected no stop calls, got %d", got)
	}
}

func TestCancelAllStopsEveryHandle(t *testing.T) {
	player := &stubPlayer{}
	registry := NewRegistry(stubRenderer{}, player)

	cue, err := registry.BeginClip(context.Background(), "cue", audio.Clip{Audio: []byte{1}})
	if err != nil {
		t.Fatalf("unexpected begin error: %v", err)
	}
	reply, err := registry.Begin(context.Background(), "reply")
	if err != nil {
		t.Fatalf("unexpected begin error: %v", err)
	}
	if cue.ID() >= reply.ID() {
		t.Fatalf("expected increasing ids, got %d then %d", cue.ID(), reply.ID())
	}

	if got := registry.CancelAll(); got != 2 {
		t.Fatalf("expected 2 cancelled handles, got %d", got)
	}
	if got := registry.CancelAll(); got != 0 {
		t.Fatalf("expected second cancel to be a no-op, got %d", got)
	}

	for _, handle := range []*Handle{cue, reply} {
		waitForDone(t, handle)
		if !handle.Cancelled() {
			t.Fatalf("expected handle %d to be cancelled", handle.ID())
		}
	}
	if got := registry.Len(); got != 0 {
		t.Fatalf("expected empty registry, got %d", got)
	}
	if got := player.stops(); got != 2 {
		t.Fatalf("expected 2 stop calls, got %d", got)
	}

	// Ending a stopped clip must not resurrect or double-close anything.
	player.finishAll()
}

func TestCancelAllWithNoHandles(t *testing.T) {
	registry := NewRegistry(stubRenderer{}, &stubPlayer{})
	if got := registry.CancelAll(); got != 0 {
		t.Fatalf("expected 0 cancelled handles, got %d", got)
	}
}

func TestCancelRacesNaturalEnd(t *testing.T) {
	for i := 0; i < 200; i++ {
		player := &stubPlayer{}
		registry := NewRegistry(stubRenderer{}, player)

		handle, err := registry.Begin(context.Background(), "race")
		if err != nil {
			t.Fatalf("unexpected begin error: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			registry.CancelAll()
		}()
		go func() {
			defer wg.Done()
			player.finishAll()
		}()
		wg.Wait()

		waitForDone(t, handle)
		if got := registry.Len(); got != 0 {
			t.Fatalf("iteration %d: expected empty registry, got %d", i, got)
		}
		if got := player.stops(); got > 1 {
			t.Fatalf("iteration %d: expected at most one stop, got %d", i, got)
		}
	}
}

func TestClipEndingBeforePlayReturns(t *testing.T) {
	player := &stubPlayer{endImmediately: true}
	registry := NewRegistry(stubRenderer{}, player)

	handle, err := registry.Begin(context.Background(), "short")
	if err != nil {
		t.Fatalf("unexpected begin error: %v", err)
	}

	waitForDone(t, handle)
	if handle.Cancelled() {
		t.Fatalf("expected natural end")
	}
	if got := registry.Len(); got != 0 {
		t.Fatalf("expected empty registry, got %d", got)
	}
	if got := player.stops(); got != 0 {
		t.Fatalf("expected no stop calls, got %d", got)
	}
}

func TestBeginWithCancelledContext(t *testing.T) {
	player := &stubPlayer{}
	registry := NewRegistry(stubRenderer{}, player)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := registry.Begin(ctx, "late"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := registry.Len(); got != 0 {
		t.Fatalf("expected empty registry, got %d", got)
	}
	if got := player.plays(); got != 0 {
		t.Fatalf("expected no playback, got %d", got)
	}
}

func TestContextCancelledDuringPlayStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	player := &stubPlayer{onPlay: cancel}
	registry := NewRegistry(stubRenderer{}, player)

	if _, err := registry.Begin(ctx, "interrupted"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := registry.Len(); got != 0 {
		t.Fatalf("expected empty registry, got %d", got)
	}
	if got := player.stops(); got != 1 {
		t.Fatalf("expected started clip to be stopped, got %d stops", got)
	}
}

func TestBeginRenderFailure(t *testing.T) {
	registry := NewRegistry(stubRenderer{err: errors.New("tts down")}, &stubPlayer{})

	if _, err := registry.Begin(context.Background(), "nope"); err == nil {
		t.Fatalf("expected render error")
	}
	if got := registry.Len(); got != 0 {
		t.Fatalf("expected empty registry, got %d", got)
	}
}

func TestBeginPlayFailure(t *testing.T) {
	registry := NewRegistry(stubRenderer{}, &stubPlayer{err: errors.New("no device")})

	if _, err := registry.Begin(context.Background(), "nope"); err == nil {
		t.Fatalf("expected play error")
	}
	if got := registry.Len(); got != 0 {
		t.Fatalf("expected empty registry, got %d", got)
	}
}

func TestBeginWithoutRenderer(t *testing.T) {
	registry := NewRegistry(nil, &stubPlayer{})
	if _, err := registry.Begin(context.Background(), "x"); !errors.Is(err, ErrNoRenderer) {
		t.Fatalf("expected ErrNoRenderer, got %v", err)
	}
}

func waitForDone(t *testing.T, handle *Handle) {
	t.Helper()
	select {
	case <-handle.Done():
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for handle %d", handle.ID())
	}
}

type stubRenderer struct {
	err error
}

func (r stubRenderer) Render(_ context.Context, text string) (audio.Clip, error) {
	if r.err != nil {
		return audio.Clip{}, r.err
	}
	return audio.Clip{Audio: []byte(text)}, nil
}

type stubPlayer struct {
	err            error
	endImmediately bool
	onPlay         func()

	mu       sync.Mutex
	started  []*stubPlayback
	stopped  atomic.Int32
	playedCt int
}

func (p *stubPlayer) Play(_ context.Context, _ audio.Clip, onEnded func()) (audio.Playback, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.onPlay != nil {
		p.onPlay()
	}

	playback := &stubPlayback{player: p, onEnded: onEnded}
	p.mu.Lock()
	p.started = append(p.started, playback)
	p.playedCt++
	p.mu.Unlock()

	if p.endImmediately {
		playback.finish()
	}
	return playback, nil
}

func (p *stubPlayer) finishAll() {
	p.mu.Lock()
	started := append([]*stubPlayback(nil), p.started...)
	p.mu.Unlock()
	for _, playback := range started {
		playback.finish()
	}
}

func (p *stubPlayer) stops() int { return int(p.stopped.Load()) }

func (p *stubPlayer) plays() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playedCt
}

type stubPlayback struct {
	player  *stubPlayer
	onEnded func()

	mu   sync.Mutex
	over bool
}

func (p *stubPlayback) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.over {
		return nil
	}
	p.over = true
	p.player.stopped.Add(1)
	return nil
}

func (p *stubPlayback) finish() {
	p.mu.Lock()
	if p.over {
		p.mu.Unlock()
		return
	}
	p.over = true
	p.mu.Unlock()
	p.onEnded()
}
