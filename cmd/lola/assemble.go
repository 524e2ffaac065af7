package main

import (
	"fmt"

	orchestration "github.com/koscakluka/lola/core"
	"github.com/koscakluka/lola/core/assets"
	"github.com/koscakluka/lola/core/audio"
	"github.com/koscakluka/lola/core/audio/miniaudio"
	"github.com/koscakluka/lola/core/audio/portaudio"
	"github.com/koscakluka/lola/core/capabilities"
	"github.com/koscakluka/lola/core/conversations"
	"github.com/koscakluka/lola/core/events"
	"github.com/koscakluka/lola/core/metadata"
	"github.com/koscakluka/lola/core/platform"
	"github.com/koscakluka/lola/core/platform/desktop"
	"github.com/koscakluka/lola/core/playback"
	sttdeepgram "github.com/koscakluka/lola/core/speechtotext/deepgram"
	ttsdeepgram "github.com/koscakluka/lola/core/texttospeech/deepgram"
	"github.com/koscakluka/lola/core/wakeword"
	"github.com/koscakluka/lola/internal/config"
)

// assembly is a fully wired assistant and the resources it holds.
type assembly struct {
	orchestrator *orchestration.Orchestrator
	closers      []func()
}

func (a *assembly) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func assemble(cfg *config.Config, notifier platform.Notifier, observer func(events.Event)) (*assembly, error) {
	a := &assembly{}
	encodingInfo := audio.EncodingInfo{SampleRate: cfg.Audio.SampleRate, Format: audio.EncodingLinear16}

	clientOpts := []miniaudio.ClientOption{miniaudio.WithSampleRate(cfg.Audio.SampleRate)}
	if cfg.Audio.Capture != config.CaptureMiniaudio {
		clientOpts = append(clientOpts, miniaudio.WithoutCapture())
	}
	audioClient, err := miniaudio.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio devices: %w", err)
	}
	a.closers = append(a.closers, audioClient.Close)

	var source audio.Source = audioClient
	if cfg.Audio.Capture == config.CapturePortaudio {
		portaudioSource, err := portaudio.NewSource(portaudio.DefaultBufferSize, cfg.Audio.SampleRate)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open portaudio capture: %w", err)
		}
		a.closers = append(a.closers, portaudioSource.Close)
		source = portaudioSource
	}

	recognizer := sttdeepgram.NewRecognizer(source,
		sttdeepgram.WithAPIKey(cfg.Deepgram.APIKey),
		sttdeepgram.WithModel(cfg.Deepgram.Model),
		sttdeepgram.WithLanguage(cfg.Deepgram.Language),
	)

	voice, err := ttsdeepgram.ParseVoice(cfg.Deepgram.Voice)
	if err != nil {
		a.Close()
		return nil, err
	}
	renderer, err := ttsdeepgram.NewRenderer(
		ttsdeepgram.WithAPIKey(cfg.Deepgram.APIKey),
		ttsdeepgram.WithVoice(voice),
		ttsdeepgram.WithEncodingInfo(encodingInfo),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create speech renderer: %w", err)
	}

	permissions := desktop.NewPermissions(cfg.Denied()...)
	inventory := desktop.NewAppInventory()
	launcher := desktop.NewAppLauncher(inventory)

	collectorOpts := []metadata.CollectorOption{
		metadata.WithAppInventory(inventory),
		metadata.WithAppsTimeout(cfg.Metadata.AppsTimeout),
		metadata.WithPositionTimeout(cfg.Metadata.PositionTimeout),
		metadata.WithContactsTimeout(cfg.Metadata.ContactsTimeout),
		metadata.WithContactBook(permissions.GuardContacts(desktop.StaticContacts(cfg.ContactBook()))),
	}
	if locator := newLocator(cfg.Metadata.Position); locator != nil {
		collectorOpts = append(collectorOpts, metadata.WithLocator(permissions.GuardLocator(locator)))
	}

	client := conversations.NewClient(cfg.Backend.URL,
		conversations.WithEndpoint(cfg.Backend.Endpoint),
		conversations.WithSecret(cfg.Backend.Secret),
		conversations.WithTimeout(cfg.Backend.Timeout),
	)

	dispatcher := capabilities.NewDispatcher(
		capabilities.WithHandler(capabilities.OpenApp(launcher)),
		capabilities.WithHandler(capabilities.OpenAppWithIntent(launcher)),
	)

	library := assets.NewLibrary(
		assets.WithDirectory(cfg.Audio.AssetsDir),
		assets.WithEncodingInfo(encodingInfo),
	)

	a.orchestrator = orchestration.NewOrchestrator(
		orchestration.WithRecognizer(recognizer),
		orchestration.WithWakeWordGate(wakeword.New(cfg.Assistant.WakePhrases...)),
		orchestration.WithMetadataCollector(metadata.NewCollector(collectorOpts...)),
		orchestration.WithConversationClient(client),
		orchestration.WithSpeechRegistry(playback.NewRegistry(renderer, audioClient)),
		orchestration.WithToolExecutor(dispatcher),
		orchestration.WithNotifier(notifier),
		orchestration.WithBackground(desktop.Background{}),
		orchestration.WithPermissions(permissions),
		orchestration.WithAssets(library),
		orchestration.WithRetryPolicy(cfg.RetryPolicy()),
		orchestration.WithFallbackPhrase(cfg.Assistant.FallbackPhrase),
		orchestration.WithReadyPhrase(cfg.Assistant.ReadyPhrase),
		orchestration.WithEventQueueSize(cfg.Assistant.EventQueueSize),
		orchestration.WithDispatchTimeout(cfg.Assistant.DispatchTimeout),
		orchestration.WithEventObserver(observer),
	)

	return a, nil
}

func newLocator(position config.PositionConfig) platform.Locator {
	switch position.Source {
	case config.PositionStatic:
		return desktop.StaticLocator{Position: platform.Position{
			Latitude:  position.Latitude,
			Longitude: position.Longitude,
		}}
	case config.PositionIP:
		opts := []desktop.IPLocatorOption{}
		if position.URL != "" {
			opts = append(opts, desktop.WithIPLocationURL(position.URL))
		}
		return desktop.NewIPLocator(opts...)
	}
	return nil
}
