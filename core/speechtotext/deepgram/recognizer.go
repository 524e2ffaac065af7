// Package deepgram recognizes speech through Deepgram's streaming listen API.
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/lola/core/audio"
	"github.com/koscakluka/lola/core/speechtotext"
	"go.opentelemetry.io/otel/codes"
)

const DefaultListenURL = "wss://api.deepgram.com/v1/listen"

var ErrAPIKeyMissing = errors.New("deepgram api key not found")

// Recognizer implements [speechtotext.Recognizer]. While listening it streams
// audio from its source over one websocket connection; stopping closes the
// connection.
type Recognizer struct {
	source    audio.Source
	apiKey    string
	listenURL string
	model     string
	language  string
	dialer    *websocket.Dialer

	encoding    encodingInfo
	initialized bool

	mu        sync.Mutex
	onResult  func(speechtotext.Result)
	onStopped func(error)
	session   *session
}

type RecognizerOption func(*Recognizer)

// WithAPIKey overrides the key read from DEEPGRAM_API_KEY.
func WithAPIKey(apiKey string) RecognizerOption {
	return func(r *Recognizer) { r.apiKey = apiKey }
}

func WithListenURL(listenURL string) RecognizerOption {
	return func(r *Recognizer) { r.listenURL = listenURL }
}

func WithModel(model string) RecognizerOption {
	return func(r *Recognizer) { r.model = model }
}

func WithLanguage(language string) RecognizerOption {
	return func(r *Recognizer) { r.language = language }
}

func NewRecognizer(source audio.Source, opts ...RecognizerOption) *Recognizer {
	r := &Recognizer{
		source:    source,
		apiKey:    os.Getenv("DEEPGRAM_API_KEY"),
		listenURL: DefaultListenURL,
		model:     "nova-3",
		language:  "en-US",
		dialer:    websocket.DefaultDialer,
		onResult:  func(speechtotext.Result) {},
		onStopped: func(error) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recognizer) InitializeModel(ctx context.Context) error {
	_, span := tracer.Start(ctx, "initialize deepgram recognizer")
	defer span.End()

	if r.apiKey == "" {
		span.RecordError(ErrAPIKeyMissing)
		span.SetStatus(codes.Error, ErrAPIKeyMissing.Error())
		return ErrAPIKeyMissing
	}
	if r.source == nil {
		err := errors.New("audio source not configured")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	encoding, err := convertEncoding(r.source.EncodingInfo())
	if err != nil {
		err = fmt.Errorf("invalid encoding: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	r.mu.Lock()
	r.encoding = encoding
	r.initialized = true
	r.mu.Unlock()
	return nil
}

func (r *Recognizer) Available(context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized, nil
}

func (r *Recognizer) OnResult(callback func(speechtotext.Result)) {
	if callback == nil {
		callback = func(speechtotext.Result) {}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.onResult = callback
}

func (r *Recognizer) OnStopped(callback func(error)) {
	if callback == nil {
		callback = func(error) {}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.onStopped = callback
}

func (r *Recognizer) IsListening(context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil && !r.session.isClosed(), nil
}

func (r *Recognizer) StartListening(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "start listening")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return speechtotext.ErrNotInitialized
	}
	if r.session != nil && !r.session.isClosed() {
		return nil
	}

	conn, err := r.dial(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// Streaming outlives the call that started it.
	r.session = startSession(context.WithoutCancel(ctx), conn, r.source, r.emit, r.stopped)
	return nil
}

func (r *Recognizer) StopListening(ctx context.Context) error {
	_, span := tracer.Start(ctx, "stop listening")
	defer span.End()

	r.mu.Lock()
	session := r.session
	r.session = nil
	r.mu.Unlock()

	if session == nil {
		return nil
	}
	if err := session.close(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (r *Recognizer) emit(transcript string) {
	r.mu.Lock()
	onResult := r.onResult
	r.mu.Unlock()

	onResult(speechtotext.Result{Text: transcript})
}

func (r *Recognizer) stopped(err error) {
	logger.Warn("deepgram session ended unexpectedly", "error", err)

	r.mu.Lock()
	onStopped := r.onStopped
	r.mu.Unlock()

	onStopped(err)
}

func (r *Recognizer) dial(ctx context.Context) (*websocket.Conn, error) {
	listenURL, err := url.Parse(r.listenURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listen url: %w", err)
	}

	queryParams := listenURL.Query()
	queryParams.Set("encoding", r.encoding.Format)
	queryParams.Set("sample_rate", strconv.Itoa(r.encoding.SampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", r.model)
	queryParams.Set("language", r.language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("endpointing", "300")
	queryParams.Set("vad_events", "true")
	listenURL.RawQuery = queryParams.Encode()

	conn, _, err := r.dialer.DialContext(ctx, listenURL.String(),
		http.Header{"Authorization": {"Token " + r.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}
