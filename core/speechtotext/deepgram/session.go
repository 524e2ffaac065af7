package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/lola/core/audio"
)

const closeTimeout = 2 * time.Second

// session is one listening period on one websocket connection.
type session struct {
	conn    *websocket.Conn
	cancel  context.CancelFunc
	emit    func(transcript string)
	stopped func(err error)

	writeMu   sync.Mutex
	closed    atomic.Bool
	closing   atomic.Bool
	closeOnce sync.Once
	readDone  chan struct{}

	// Only touched by the read loop.
	accumulated    []string
	unendedSegment bool
}

func startSession(ctx context.Context, conn *websocket.Conn, source audio.Source, emit func(string), stopped func(error)) *session {
	ctx, cancel := context.WithCancel(ctx)
	s := &session{
		conn:     conn,
		cancel:   cancel,
		emit:     emit,
		stopped:  stopped,
		readDone: make(chan struct{}),
	}

	go s.readAndProcessMessages()
	go s.stream(ctx, source)
	return s
}

func (s *session) isClosed() bool { return s.closed.Load() }

func (s *session) stream(ctx context.Context, source audio.Source) {
	err := source.Stream(ctx, func(audio []byte) {
		if err := s.sendAudio(audio); err != nil {
			logger.Debug("dropping captured audio", "error", err)
		}
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("audio capture stopped", "error", err)
		s.closed.Store(true)
		s.conn.Close()
	}
}

func (s *session) sendAudio(audio []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return errors.New("session closed")
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

func (s *session) close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		s.closed.Store(true)
		s.cancel()

		s.writeMu.Lock()
		err = s.conn.WriteJSON(struct {
			Type string `json:"type"`
		}{Type: string(api.TypeCloseStreamResponse)})
		s.writeMu.Unlock()
		if err != nil {
			err = fmt.Errorf("failed to close deepgram stream: %w", err)
		}

		select {
		case <-s.readDone:
		case <-time.After(closeTimeout):
		}
		s.conn.Close()
	})
	return err
}

func (s *session) readAndProcessMessages() {
	defer close(s.readDone)
	defer s.cancel()

	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Error("failed to read deepgram websocket message", "error", err)
			}
			s.closed.Store(true)
			// Sessions closed on request are not reported.
			if !s.closing.Load() {
				s.stopped(err)
			}
			return
		}

		if msgType == websocket.TextMessage {
			s.processMessage(msg)
		}
	}
}

func (s *session) processMessage(msg []byte) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram message", "error", err)
			return
		}
		if !msgResp.IsFinal {
			return
		}

		if len(msgResp.Channel.Alternatives) > 0 {
			if transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript); transcript != "" {
				s.accumulated = append(s.accumulated, transcript)
			}
		}
		if msgResp.SpeechFinal {
			s.onSpeechEnded()
		}

	case api.TypeUtteranceEndResponse:
		if s.unendedSegment {
			s.onSpeechEnded()
		}

	case api.TypeSpeechStartedResponse:
		s.unendedSegment = true
	}
}

func (s *session) onSpeechEnded() {
	s.unendedSegment = false
	transcript := strings.Join(s.accumulated, " ")
	s.accumulated = s.accumulated[:0]

	if transcript == "" || s.closed.Load() {
		return
	}
	s.emit(transcript)
}
