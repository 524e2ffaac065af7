// Package deepgram renders speech through Deepgram's streaming speak API.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/lola/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultSpeakURL = "wss://api.deepgram.com/v1/speak"

var ErrAPIKeyMissing = errors.New("deepgram api key not found")

// Renderer implements texttospeech.Renderer. Every Render opens its own
// connection so concurrent renders do not share state.
type Renderer struct {
	apiKey       string
	speakURL     string
	voice        Voice
	encodingInfo audio.EncodingInfo
	dialer       *websocket.Dialer
}

type RendererOption func(*Renderer)

// WithAPIKey overrides the key read from DEEPGRAM_API_KEY.
func WithAPIKey(apiKey string) RendererOption {
	return func(r *Renderer) { r.apiKey = apiKey }
}

func WithSpeakURL(speakURL string) RendererOption {
	return func(r *Renderer) { r.speakURL = speakURL }
}

func WithVoice(voice Voice) RendererOption {
	return func(r *Renderer) { r.voice = voice }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) RendererOption {
	return func(r *Renderer) { r.encodingInfo = encodingInfo }
}

func NewRenderer(opts ...RendererOption) (*Renderer, error) {
	r := &Renderer{
		apiKey:       os.Getenv("DEEPGRAM_API_KEY"),
		speakURL:     DefaultSpeakURL,
		voice:        DefaultVoice,
		encodingInfo: audio.GetDefaultEncodingInfo(),
		dialer:       websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(r)
	}

	if _, err := ParseVoice(string(r.voice)); err != nil {
		return nil, err
	}
	if r.apiKey == "" {
		return nil, ErrAPIKeyMissing
	}
	return r, nil
}

func (r *Renderer) EncodingInfo() audio.EncodingInfo { return r.encodingInfo }

// Render synthesises text into a single clip.
func (r *Renderer) Render(ctx context.Context, text string) (audio.Clip, error) {
	ctx, span := tracer.Start(ctx, "render speech")
	defer span.End()
	span.SetAttributes(
		attribute.String("tts.voice", string(r.voice)),
		attribute.Int("tts.text_length", len(text)),
	)

	speech, err := r.render(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return audio.Clip{}, err
	}

	span.SetAttributes(attribute.Int("tts.audio_bytes", len(speech)))
	return audio.Clip{Audio: speech, EncodingInfo: r.encodingInfo}, nil
}

func (r *Renderer) render(ctx context.Context, text string) ([]byte, error) {
	conn, err := r.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// Unblocks ReadMessage when the caller gives up.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.WriteJSON(speakMsg{Type: "Speak", Text: text}); err != nil {
		return nil, fmt.Errorf("failed to send text to deepgram through websocket: %w", err)
	}
	if err := conn.WriteJSON(controlMsg{Type: "Flush"}); err != nil {
		return nil, fmt.Errorf("failed to flush deepgram buffer through websocket: %w", err)
	}

	var speech []byte
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("websocket read error: %w", err)
		}

		if msgType == websocket.BinaryMessage {
			speech = append(speech, msg...)
			continue
		}

		var parsedMsg controlMsg
		if err := json.Unmarshal(msg, &parsedMsg); err != nil {
			logger.Warn("failed to unmarshal deepgram message", "error", err)
			continue
		}
		if parsedMsg.Type == "Flushed" {
			break
		}
	}

	if err := conn.WriteJSON(controlMsg{Type: "Close"}); err != nil {
		logger.Debug("failed to send close message to deepgram websocket", "error", err)
	}
	return speech, nil
}

func (r *Renderer) dial(ctx context.Context) (*websocket.Conn, error) {
	speakURL, err := url.Parse(r.speakURL)
	if err != nil {
		return nil, fmt.Errorf("invalid speak url: %w", err)
	}

	urlValues := speakURL.Query()
	urlValues.Set("encoding", r.encodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(r.encodingInfo.SampleRate))
	urlValues.Set("model", string(r.voice))
	urlValues.Set("container", "none")
	speakURL.RawQuery = urlValues.Encode()

	conn, _, err := r.dialer.DialContext(ctx, speakURL.String(),
		http.Header{"Authorization": {"token " + r.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}

type controlMsg struct {
	Type string `json:"type"`
}

type speakMsg struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
