package orchestration

import (
	"context"
	"time"

	"github.com/koscakluka/lola/core/audio"
	"github.com/koscakluka/lola/core/capabilities"
	"github.com/koscakluka/lola/core/conversations"
	"github.com/koscakluka/lola/core/events"
	"github.com/koscakluka/lola/core/metadata"
	"github.com/koscakluka/lola/core/platform"
	"github.com/koscakluka/lola/core/playback"
	"github.com/koscakluka/lola/core/retry"
	"github.com/koscakluka/lola/core/speechtotext"
	"github.com/koscakluka/lola/core/wakeword"
)

type OrchestratorOption func(*Orchestrator)

func WithRecognizer(recognizer speechtotext.Recognizer) OrchestratorOption {
	return func(o *Orchestrator) { o.recognizer = recognizer }
}

func WithWakeWordGate(gate wakeword.Gate) OrchestratorOption {
	return func(o *Orchestrator) { o.gate = gate }
}

type MetadataCollector interface {
	Collect(ctx context.Context) metadata.TurnMetadata
}

func WithMetadataCollector(collector MetadataCollector) OrchestratorOption {
	return func(o *Orchestrator) {
		if collector != nil {
			o.collector = collector
		}
	}
}

// ConversationClient sends a prompt to the backend. A nil history means the
// backend could not produce a reply.
type ConversationClient interface {
	Dispatch(ctx context.Context, prompt string, turnMetadata metadata.TurnMetadata) *conversations.History
}

func WithConversationClient(client ConversationClient) OrchestratorOption {
	return func(o *Orchestrator) { o.conversation = client }
}

func WithSpeechRegistry(registry *playback.Registry) OrchestratorOption {
	return func(o *Orchestrator) { o.registry = registry }
}

// ToolExecutor performs the device side effects requested by a reply.
type ToolExecutor interface {
	Execute(ctx context.Context, calls []conversations.ToolMessage) capabilities.Report
}

func WithToolExecutor(executor ToolExecutor) OrchestratorOption {
	return func(o *Orchestrator) { o.tools = executor }
}

func WithNotifier(notifier platform.Notifier) OrchestratorOption {
	return func(o *Orchestrator) {
		if notifier != nil {
			o.notifier = notifier
		}
	}
}

func WithBackground(background platform.Background) OrchestratorOption {
	return func(o *Orchestrator) { o.background = background }
}

func WithPermissions(permissions platform.Permissions) OrchestratorOption {
	return func(o *Orchestrator) { o.permissions = permissions }
}

// AssetLibrary provides static clips, most importantly the cue played when a
// prompt is accepted.
type AssetLibrary interface {
	Preload(ctx context.Context) error
	PromptAccepted() (audio.Clip, bool)
}

func WithAssets(assets AssetLibrary) OrchestratorOption {
	return func(o *Orchestrator) { o.assets = assets }
}

// WithRetryPolicy sets the policy used for recognizer initialisation and
// arming. The default retries forever once per second.
func WithRetryPolicy(policy retry.Policy) OrchestratorOption {
	return func(o *Orchestrator) { o.retryPolicy = policy }
}

// WithFallbackPhrase sets what is spoken when the backend gives no reply.
func WithFallbackPhrase(phrase string) OrchestratorOption {
	return func(o *Orchestrator) {
		if phrase != "" {
			o.fallbackPhrase = phrase
		}
	}
}

// WithReadyPhrase sets a phrase spoken once when Run starts listening. Empty
// disables it.
func WithReadyPhrase(phrase string) OrchestratorOption {
	return func(o *Orchestrator) { o.readyPhrase = phrase }
}

// WithEventQueueSize bounds the number of pending transcripts.
func WithEventQueueSize(size int) OrchestratorOption {
	return func(o *Orchestrator) {
		if size > 0 {
			o.queueSize = size
		}
	}
}

// WithDispatchTimeout bounds the backend call. Zero, the default, waits
// indefinitely.
func WithDispatchTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.dispatchTimeout = timeout }
}

// WithEventObserver receives lifecycle events. The observer is called
// synchronously from the event loop and from the running turn, so it must be
// safe for concurrent use and must not block.
func WithEventObserver(observer func(events.Event)) OrchestratorOption {
	return func(o *Orchestrator) {
		if observer != nil {
			o.observer = observer
		}
	}
}
