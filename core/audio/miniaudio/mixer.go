package miniaudio

import (
	"encoding/binary"
	"math"
	"sync"
)

// mixer sums any number of signed 16-bit little endian voices into one
// output buffer.
type mixer struct {
	mu     sync.Mutex
	voices []*voice
}

type voice struct {
	remaining []byte
	onEnded   func()
}

func (m *mixer) add(audio []byte, onEnded func()) *voice {
	v := &voice{remaining: audio, onEnded: onEnded}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices = append(m.voices, v)
	return v
}

// remove drops v without calling its onEnded. It reports whether v was still
// playing.
func (m *mixer) remove(v *voice) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, candidate := range m.voices {
		if candidate == v {
			m.voices = append(m.voices[:i], m.voices[i+1:]...)
			return true
		}
	}
	return false
}

func (m *mixer) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices = nil
}

func (m *mixer) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// fill mixes the next len(out) bytes into out and returns the voices that
// ran out of audio. The caller is responsible for notifying them.
func (m *mixer) fill(out []byte) []*voice {
	clear(out)

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.voices) == 0 {
		return nil
	}

	var ended []*voice
	active := m.voices[:0]
	for _, v := range m.voices {
		n := min(len(out), len(v.remaining)) &^ 1
		for i := 0; i < n; i += 2 {
			sum := int32(int16(binary.LittleEndian.Uint16(out[i:]))) +
				int32(int16(binary.LittleEndian.Uint16(v.remaining[i:])))
			sum = max(min(sum, math.MaxInt16), math.MinInt16)
			binary.LittleEndian.PutUint16(out[i:], uint16(int16(sum)))
		}
		v.remaining = v.remaining[n:]

		if len(v.remaining) < 2 {
			ended = append(ended, v)
			continue
		}
		active = append(active, v)
	}
	clear(m.voices[len(active):])
	m.voices = active

	return ended
}
