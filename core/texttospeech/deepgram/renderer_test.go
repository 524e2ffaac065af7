package deepgram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestRenderCollectsAudioUntilFlushed(t *testing.T) {
	spoken := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("model") != string(DefaultVoice) || r.Header.Get("Authorization") != "token secret" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var speak speakMsg
		if err := conn.ReadJSON(&speak); err != nil {
			return
		}
		spoken <- speak.Text

		var flush controlMsg
		if err := conn.ReadJSON(&flush); err != nil || flush.Type != "Flush" {
			return
		}

		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2})
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Metadata"}`))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{3, 4})
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Flushed","sequence_id":0}`))

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	renderer, err := NewRenderer(WithAPIKey("secret"), WithSpeakURL("ws"+strings.TrimPrefix(server.URL, "http")))
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	clip, err := renderer.Render(context.Background(), "It's sunny")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}

	if string(clip.Audio) != string([]byte{1, 2, 3, 4}) {
		t.Fatalf("unexpected audio %v", clip.Audio)
	}
	if clip.EncodingInfo != renderer.EncodingInfo() {
		t.Fatalf("expected clip encoding %+v, got %+v", renderer.EncodingInfo(), clip.EncodingInfo)
	}
	if got := <-spoken; got != "It's sunny" {
		t.Fatalf("unexpected spoken text %q", got)
	}
}

func TestRenderHonoursContextCancellation(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	renderer, err := NewRenderer(WithAPIKey("secret"), WithSpeakURL("ws"+strings.TrimPrefix(server.URL, "http")))
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := renderer.Render(ctx, "never flushed"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNewRendererValidation(t *testing.T) {
	if _, err := NewRenderer(WithAPIKey("secret"), WithVoice("robot")); !errors.Is(err, ErrInvalidVoice) {
		t.Fatalf("expected ErrInvalidVoice, got %v", err)
	}
	if _, err := NewRenderer(WithAPIKey("")); !errors.Is(err, ErrAPIKeyMissing) {
		t.Fatalf("expected ErrAPIKeyMissing, got %v", err)
	}
}
