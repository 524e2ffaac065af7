package playback

import (
	"sync"

	"github.com/koscakluka/lola/core/audio"
)

// Handle is a clip that was started through a [Registry].
//
// A handle ends exactly once, either naturally or by cancellation; both
// paths go through release.
type Handle struct {
	id       uint64
	label    string
	registry *Registry

	mu        sync.Mutex
	playback  audio.Playback
	ended     bool
	cancelled bool
	done      chan struct{}
}

func (h *Handle) ID() uint64            { return h.id }
func (h *Handle) Label() string         { return h.label }
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancelled reports whether the handle was stopped rather than played
// through.
func (h *Handle) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// Cancel stops playback. Cancelling an ended handle is a no-op.
func (h *Handle) Cancel() { h.release(true) }

func (h *Handle) end() { h.release(false) }

func (h *Handle) attach(playback audio.Playback) {
	h.mu.Lock()
	if h.ended {
		cancelled := h.cancelled
		h.mu.Unlock()
		if cancelled {
			h.stop(playback)
		}
		return
	}
	h.playback = playback
	h.mu.Unlock()
}

func (h *Handle) release(cancel bool) bool {
	h.mu.Lock()
	if h.ended {
		h.mu.Unlock()
		return false
	}
	h.ended = true
	h.cancelled = cancel
	playback := h.playback
	h.mu.Unlock()

	h.registry.remove(h.id)
	if cancel && playback != nil {
		h.stop(playback)
	}
	close(h.done)
	return true
}

func (h *Handle) stop(playback audio.Playback) {
	if err := playback.Stop(); err != nil {
		logger.Warn("failed to stop playback", "handle", h.id, "error", err)
	}
}
