package orchestration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
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
	"github.com/koscakluka/lola/internal/utils"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWakePhraseTurnSpeaksReplyAndResumesListening(t *testing.T) {
	h := newHarness(t, harnessConfig{
		history: historyOf(
			message(conversations.RoleUser, "Lola, what's the weather?"),
			message(conversations.RoleAssistant, "It's sunny"),
		),
		endImmediately: true,
	})
	h.run(t)

	h.orchestrator.SubmitTranscript("Lola, what's the weather?")

	waitForCondition(t, time.Second, "turn completion", func() bool {
		return h.recorder.count(events.KindTurnCompleted) == 1 && h.orchestrator.State() == StateListening
	})
	h.stop(t)

	speeches := h.recorder.speeches()
	if len(speeches) != 1 || speeches[0].Text != "It's sunny" || speeches[0].Fallback {
		t.Fatalf("expected one reply speech, got %+v", speeches)
	}
	if got := h.tools.calls(); got != 0 {
		t.Fatalf("expected no tool dispatch, got %d", got)
	}
	if prompts := h.conversation.prompts(); len(prompts) != 1 || prompts[0] != "Lola, what's the weather?" {
		t.Fatalf("unexpected prompts: %v", prompts)
	}

	scheduled := h.notifier.scheduled()
	if len(scheduled) != 1 {
		t.Fatalf("expected one speech notification, got %d", len(scheduled))
	}
	if scheduled[0].Body != "Lola says: It's sunny" || scheduled[0].ActionTypeID != InterruptActionTypeID {
		t.Fatalf("unexpected notification: %+v", scheduled[0])
	}

	if !h.notifier.hasToast(`You asked Lola: "Lola, what's the weather?"`) {
		t.Fatalf("expected prompt toast, got %v", h.notifier.toasts())
	}
}

func TestMissingReplySpeaksFallbackOnce(t *testing.T) {
	h := newHarness(t, harnessConfig{endImmediately: true})
	h.run(t)

	h.orchestrator.SubmitTranscript("lola tell me a joke")

	waitForCondition(t, time.Second, "fallback turn completion", func() bool {
		return h.recorder.count(events.KindTurnCompleted) == 1 && h.orchestrator.State() == StateListening
	})
	h.stop(t)

	speeches := h.recorder.speeches()
	if len(speeches) != 1 || speeches[0].Text != DefaultFallbackPhrase || !speeches[0].Fallback {
		t.Fatalf("expected single fallback speech, got %+v", speeches)
	}
}

func TestInterruptCancelsCueAndReply(t *testing.T) {
	h := newHarness(t, harnessConfig{
		history: historyOf(message(conversations.RoleAssistant, "A very long story")),
		cue:     true,
	})
	h.run(t)

	h.orchestrator.SubmitTranscript("Lola, tell me a story")

	waitForCondition(t, time.Second, "cue and reply playing", func() bool {
		return h.registry.Len() == 2 && h.orchestrator.State() == StateSpeaking
	})

	h.orchestrator.Interrupt("test")

	waitForCondition(t, time.Second, "listening after interrupt", func() bool {
		return h.recorder.count(events.KindTurnCancelled) == 1 && h.orchestrator.State() == StateListening
	})
	h.stop(t)

	if got := h.registry.Len(); got != 0 {
		t.Fatalf("expected no live speech, got %d", got)
	}
	if got := h.player.stops(); got != 2 {
		t.Fatalf("expected cue and reply stopped, got %d stops", got)
	}
	if got := h.recorder.count(events.KindTurnCompleted); got != 0 {
		t.Fatalf("expected no completed turn, got %d", got)
	}
	for _, speech := range h.recorder.speeches() {
		if speech.Fallback {
			t.Fatalf("fallback spoken after interrupt")
		}
	}
	if got := h.notifier.cancelled(); got == 0 {
		t.Fatalf("expected notifications to be cancelled")
	}
	if !h.recorder.passedThrough(StateInterrupting) {
		t.Fatalf("expected interrupting state, got %v", h.recorder.states())
	}
}

func TestInterruptWhileListeningKeepsListening(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	h.run(t)

	h.orchestrator.Interrupt("test")

	waitForCondition(t, time.Second, "interrupt handled", func() bool {
		return h.recorder.passedThrough(StateInterrupting) && h.orchestrator.State() == StateListening
	})
	h.stop(t)

	if got := h.recorder.count(events.KindTurnCancelled); got != 0 {
		t.Fatalf("expected no cancelled turn, got %d", got)
	}
}

func TestTranscriptWithoutWakePhraseIsIgnored(t *testing.T) {
	h := newHarness(t, harnessConfig{endImmediately: true})
	h.run(t)

	h.orchestrator.SubmitTranscript("what's the weather?")

	waitForCondition(t, time.Second, "recognizer re-armed", func() bool {
		return h.recognizer.starts() == 2 && h.orchestrator.State() == StateListening
	})
	h.stop(t)

	if got := len(h.conversation.prompts()); got != 0 {
		t.Fatalf("expected no dispatch, got %d", got)
	}
	if got := h.recorder.count(events.KindTurnStarted); got != 0 {
		t.Fatalf("expected no turn, got %d", got)
	}
}

func TestBlankTranscriptIsIgnored(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	h.run(t)

	h.orchestrator.SubmitTranscript("   ")
	h.orchestrator.Interrupt("sync")

	waitForCondition(t, time.Second, "events processed", func() bool {
		return h.recorder.passedThrough(StateInterrupting) && h.orchestrator.State() == StateListening
	})
	h.stop(t)

	if h.recorder.passedThrough(StateCapturing) {
		t.Fatalf("blank transcript should not be captured")
	}
	if got := h.recognizer.stops(); got != 1 {
		t.Fatalf("expected only the shutdown stop, got %d", got)
	}
}

func TestTranscriptWhileSpeakingIsDropped(t *testing.T) {
	h := newHarness(t, harnessConfig{
		history: historyOf(message(conversations.RoleAssistant, "Still talking")),
	})
	h.run(t)

	h.orchestrator.SubmitTranscript("Lola, talk to me")
	waitForCondition(t, time.Second, "speaking", func() bool {
		return h.orchestrator.State() == StateSpeaking
	})

	h.orchestrator.SubmitTranscript("Lola, something else")
	h.orchestrator.Interrupt("test")

	waitForCondition(t, time.Second, "listening after interrupt", func() bool {
		return h.recorder.count(events.KindTurnCancelled) == 1 && h.orchestrator.State() == StateListening
	})
	h.stop(t)

	if prompts := h.conversation.prompts(); len(prompts) != 1 {
		t.Fatalf("expected a single dispatch, got %v", prompts)
	}
}

func TestEmptyAssistantReplyListensWithoutSpeaking(t *testing.T) {
	h := newHarness(t, harnessConfig{
		history: historyOf(
			message(conversations.RoleAssistant, ""),
			message(conversations.RoleTool, `{"archetype":"frontend-capability","kind":"open-app","data":{"url":"https://youtube.com"}}`),
		),
		endImmediately: true,
	})
	h.run(t)

	h.orchestrator.SubmitTranscript("Lola, open youtube")

	waitForCondition(t, time.Second, "turn completion", func() bool {
		return h.recorder.count(events.KindTurnCompleted) == 1 && h.orchestrator.State() == StateListening
	})
	h.stop(t)

	if speeches := h.recorder.speeches(); len(speeches) != 0 {
		t.Fatalf("expected nothing to be spoken, got %+v", speeches)
	}
	if texts := h.renderer.texts(); len(texts) != 0 {
		t.Fatalf("expected nothing to be rendered, got %v", texts)
	}
	if got := h.tools.calls(); got != 0 {
		t.Fatalf("expected tools to be skipped, got %d", got)
	}
	if h.recorder.passedThrough(StateSpeaking) {
		t.Fatalf("expected no speaking state, got %v", h.recorder.states())
	}
}

func TestHistoryWithoutAssistantSpeaksFallback(t *testing.T) {
	h := newHarness(t, harnessConfig{
		history:        historyOf(message(conversations.RoleUser, "Lola, hello")),
		endImmediately: true,
	})
	h.run(t)

	h.orchestrator.SubmitTranscript("Lola, hello")

	waitForCondition(t, time.Second, "turn completion", func() bool {
		return h.recorder.count(events.KindTurnCompleted) == 1 && h.orchestrator.State() == StateListening
	})
	h.stop(t)

	if texts := h.renderer.texts(); len(texts) != 1 || texts[0] != DefaultFallbackPhrase {
		t.Fatalf("expected fallback to be rendered once, got %v", texts)
	}
}

func TestToolCallsRunAlongsideSpeech(t *testing.T) {
	toolCall := `{"archetype":"frontend-capability","kind":"open-app","data":{"url":"https://youtube.com"}}`
	h := newHarness(t, harnessConfig{
		history: historyOf(
			message(conversations.RoleAssistant, "Opening YouTube"),
			message(conversations.RoleTool, toolCall),
		),
		endImmediately: true,
	})
	h.run(t)

	h.orchestrator.SubmitTranscript("Lola, open youtube")

	waitForCondition(t, time.Second, "turn completion", func() bool {
		return h.recorder.count(events.KindTurnCompleted) == 1 && h.orchestrator.State() == StateListening
	})
	h.stop(t)

	if got := h.tools.calls(); got != 1 {
		t.Fatalf("expected one tool dispatch, got %d", got)
	}
	if got := h.tools.lastCalls(); len(got) != 1 || got[0].Content != toolCall {
		t.Fatalf("unexpected tool calls: %+v", got)
	}
	if got := h.recorder.count(events.KindToolCallsExecuted); got != 1 {
		t.Fatalf("expected tool execution event, got %d", got)
	}
	if speeches := h.recorder.speeches(); len(speeches) != 1 || speeches[0].Text != "Opening YouTube" {
		t.Fatalf("unexpected speeches: %+v", speeches)
	}
}

func TestStartRetriesModelInitialization(t *testing.T) {
	h := newHarness(t, harnessConfig{initFailures: 2})

	if err := h.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if got := h.recognizer.initCalls(); got != 3 {
		t.Fatalf("expected 3 initialisation attempts, got %d", got)
	}
	if !h.notifier.hasToast("model unavailable - Trying again...") {
		t.Fatalf("expected retry toast, got %v", h.notifier.toasts())
	}
	if !h.notifier.hasToast("Lola's speech-to-text model is initialized.") {
		t.Fatalf("expected initialised toast, got %v", h.notifier.toasts())
	}
	if got := h.notifier.actionTypes(); len(got) != 1 || got[0].ID != InterruptActionTypeID {
		t.Fatalf("unexpected action types: %+v", got)
	}

	if err := h.orchestrator.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestRecognizerResultsAndNotificationActionsReachTheLoop(t *testing.T) {
	h := newHarness(t, harnessConfig{
		history: historyOf(message(conversations.RoleAssistant, "Hello")),
	})
	if err := h.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	h.run(t)

	h.recognizer.emit("Lola, say hello")
	waitForCondition(t, time.Second, "speaking", func() bool {
		return h.orchestrator.State() == StateSpeaking
	})

	h.notifier.perform(platform.ActionPerformed{ActionID: InterruptActionID})

	waitForCondition(t, time.Second, "listening after interrupt", func() bool {
		return h.recorder.count(events.KindTurnCancelled) == 1 && h.orchestrator.State() == StateListening
	})
	h.stop(t)
}

func TestCollectedMetadataReachesTheBackend(t *testing.T) {
	collector := metadata.NewCollector(
		metadata.WithAppInventory(staticApps{"WeatherApp"}),
		metadata.WithLocator(stalledLocator{}),
		metadata.WithPositionTimeout(20*time.Millisecond),
	)
	h := newHarness(t, harnessConfig{
		history:        historyOf(message(conversations.RoleAssistant, "It's sunny")),
		endImmediately: true,
		collector:      collector,
	})
	h.run(t)

	h.orchestrator.SubmitTranscript("Lola, what's the weather?")

	waitForCondition(t, time.Second, "turn completion", func() bool {
		return h.recorder.count(events.KindTurnCompleted) == 1 && h.orchestrator.State() == StateListening
	})
	h.stop(t)

	dispatched := h.conversation.dispatchedMetadata()
	if len(dispatched) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(dispatched))
	}
	if apps := dispatched[0].InstalledApps; len(apps) != 1 || apps[0] != "WeatherApp" {
		t.Fatalf("unexpected installed apps: %v", apps)
	}
	if dispatched[0].GPSPosition != nil {
		t.Fatalf("expected timed out position to be absent, got %+v", dispatched[0].GPSPosition)
	}
}

func TestPanickingToolsDoNotStopTheReply(t *testing.T) {
	h := newHarness(t, harnessConfig{
		history: historyOf(
			message(conversations.RoleAssistant, "Opening YouTube"),
			message(conversations.RoleTool, `{"archetype":"frontend-capability","kind":"open-app","data":{"url":"https://youtube.com"}}`),
		),
		endImmediately: true,
		tools:          &fakeTools{panics: true},
	})
	h.run(t)

	h.orchestrator.SubmitTranscript("Lola, open youtube")

	waitForCondition(t, time.Second, "turn completion", func() bool {
		return h.recorder.count(events.KindTurnCompleted) == 1 && h.orchestrator.State() == StateListening
	})
	h.stop(t)

	if speeches := h.recorder.speeches(); len(speeches) != 1 || speeches[0].Text != "Opening YouTube" {
		t.Fatalf("expected reply to be spoken, got %+v", speeches)
	}
	if got := h.tools.calls(); got != 1 {
		t.Fatalf("expected one tool dispatch, got %d", got)
	}
}

func TestFailingToolsStillCompleteTheTurn(t *testing.T) {
	h := newHarness(t, harnessConfig{
		history: historyOf(
			message(conversations.RoleAssistant, "Opening YouTube"),
			message(conversations.RoleTool, `{"archetype":"frontend-capability","kind":"open-app","data":{"url":"https://youtube.com"}}`),
		),
		endImmediately: true,
		tools:          &fakeTools{fails: true},
	})
	h.run(t)

	h.orchestrator.SubmitTranscript("Lola, open youtube")

	waitForCondition(t, time.Second, "turn completion", func() bool {
		return h.recorder.count(events.KindTurnCompleted) == 1 && h.orchestrator.State() == StateListening
	})
	h.stop(t)

	if speeches := h.recorder.speeches(); len(speeches) != 1 || speeches[0].Text != "Opening YouTube" {
		t.Fatalf("expected reply to be spoken, got %+v", speeches)
	}
	if got := h.recorder.count(events.KindToolCallsExecuted); got != 1 {
		t.Fatalf("expected tool execution event, got %d", got)
	}
}

func TestSlowToolsDoNotDelaySpeech(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, harnessConfig{
		history: historyOf(
			message(conversations.RoleAssistant, "Opening YouTube"),
			message(conversations.RoleTool, `{"archetype":"frontend-capability","kind":"open-app","data":{"url":"https://youtube.com"}}`),
		),
		endImmediately: true,
		tools:          &fakeTools{release: release},
	})
	h.run(t)

	h.orchestrator.SubmitTranscript("Lola, open youtube")

	waitForCondition(t, time.Second, "speech while tools are running", func() bool {
		return len(h.recorder.speeches()) == 1 && h.tools.calls() == 1
	})
	if got := h.recorder.count(events.KindTurnCompleted); got != 0 {
		t.Fatalf("turn should wait for its tools, got %d completions", got)
	}

	close(release)

	waitForCondition(t, time.Second, "turn completion", func() bool {
		return h.recorder.count(events.KindTurnCompleted) == 1 && h.orchestrator.State() == StateListening
	})
	h.stop(t)
}

func TestDroppedRecognizerIsArmedAgain(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	if err := h.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	h.run(t)

	h.recognizer.drop(errors.New("websocket: close 1006"))

	waitForCondition(t, time.Second, "recognizer armed again", func() bool {
		return h.recognizer.starts() == 2 && h.recognizer.isListening()
	})
	if state := h.orchestrator.State(); state != StateListening {
		t.Fatalf("expected listening, got %s", state)
	}
	h.stop(t)
}

func TestSpeechNotificationsAreWithdrawn(t *testing.T) {
	h := newHarness(t, harnessConfig{
		history:        historyOf(message(conversations.RoleAssistant, "It's sunny")),
		endImmediately: true,
	})
	h.run(t)

	h.orchestrator.SubmitTranscript("Lola, what's the weather?")

	waitForCondition(t, time.Second, "turn completion", func() bool {
		return h.recorder.count(events.KindTurnCompleted) == 1 && h.orchestrator.State() == StateListening
	})
	if got := len(h.notifier.scheduled()); got != 1 {
		t.Fatalf("expected one speech notification, got %d", got)
	}
	afterTurn := h.notifier.cancelled()
	if afterTurn == 0 {
		t.Fatalf("expected notifications to be withdrawn after a finished turn")
	}

	h.orchestrator.Interrupt("notification")

	waitForCondition(t, time.Second, "interrupt handled", func() bool {
		return h.notifier.cancelled() > afterTurn && h.orchestrator.State() == StateListening
	})
	h.stop(t)
}

func TestRunWithoutRecognizer(t *testing.T) {
	orchestrator := NewOrchestrator()

	if err := orchestrator.Run(context.Background()); !errors.Is(err, ErrRecognizerNotConfigured) {
		t.Fatalf("expected ErrRecognizerNotConfigured, got %v", err)
	}
	if err := orchestrator.Start(context.Background()); !errors.Is(err, ErrRecognizerNotConfigured) {
		t.Fatalf("expected ErrRecognizerNotConfigured, got %v", err)
	}
}

func TestCollapseNewlines(t *testing.T) {
	if got := collapseNewlines("line one\n\nline two\r\nline three\n"); got != "line one line two line three" {
		t.Fatalf("unexpected collapsed text: %q", got)
	}
}

func waitForCondition(t *testing.T, timeout time.Duration, description string, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %s", description)
}

type harnessConfig struct {
	history        *conversations.History
	endImmediately bool
	cue            bool
	initFailures   int
	collector      MetadataCollector
	tools          *fakeTools
}

type harness struct {
	orchestrator *Orchestrator
	recognizer   *fakeRecognizer
	conversation *fakeConversation
	renderer     *fakeRenderer
	player       *fakePlayer
	registry     *playback.Registry
	notifier     *fakeNotifier
	tools        *fakeTools
	recorder     *eventRecorder

	cancel context.CancelFunc
	done   chan error
}

func newHarness(t *testing.T, config harnessConfig) *harness {
	t.Helper()

	h := &harness{
		recognizer:   &fakeRecognizer{initFailures: config.initFailures},
		conversation: &fakeConversation{history: config.history},
		renderer:     &fakeRenderer{},
		player:       &fakePlayer{endImmediately: config.endImmediately},
		notifier:     &fakeNotifier{},
		tools:        config.tools,
		recorder:     &eventRecorder{},
	}
	if h.tools == nil {
		h.tools = &fakeTools{}
	}
	h.registry = playback.NewRegistry(h.renderer, h.player)

	opts := []OrchestratorOption{
		WithRecognizer(h.recognizer),
		WithConversationClient(h.conversation),
		WithSpeechRegistry(h.registry),
		WithToolExecutor(h.tools),
		WithNotifier(h.notifier),
		WithEventObserver(h.recorder.record),
		WithRetryPolicy(retry.Policy{Delay: time.Millisecond, Backoff: retry.BackoffConstant}),
	}
	if config.cue {
		opts = append(opts, WithAssets(fakeAssets{}))
	}
	if config.collector != nil {
		opts = append(opts, WithMetadataCollector(config.collector))
	}

	h.orchestrator = NewOrchestrator(opts...)
	return h
}

func (h *harness) run(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan error, 1)
	go func() { h.done <- h.orchestrator.Run(ctx) }()

	waitForCondition(t, time.Second, "listening", func() bool {
		return h.orchestrator.State() == StateListening && h.recognizer.isListening()
	})
}

func (h *harness) stop(t *testing.T) {
	t.Helper()

	h.cancel()
	select {
	case err := <-h.done:
		if err != nil {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for run to return")
	}
	if state := h.orchestrator.State(); state != StateIdle {
		t.Fatalf("expected idle after shutdown, got %s", state)
	}
}

func historyOf(messages ...conversations.Message) *conversations.History {
	return &conversations.History{Messages: messages}
}

func message(role conversations.Role, content string) conversations.Message {
	return conversations.Message{Role: role, Content: utils.Ptr(content)}
}

type fakeRecognizer struct {
	mu           sync.Mutex
	initFailures int
	initAttempts int
	listening    bool
	startCalls   int
	stopCalls    int
	onResult     func(speechtotext.Result)
	onStopped    func(error)
}

func (r *fakeRecognizer) InitializeModel(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initAttempts++
	if r.initAttempts <= r.initFailures {
		return errors.New("model unavailable")
	}
	return nil
}

func (r *fakeRecognizer) Available(context.Context) (bool, error) { return true, nil }

func (r *fakeRecognizer) StartListening(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startCalls++
	r.listening = true
	return nil
}

func (r *fakeRecognizer) StopListening(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopCalls++
	r.listening = false
	return nil
}

func (r *fakeRecognizer) IsListening(context.Context) (bool, error) {
	return r.isListening(), nil
}

func (r *fakeRecognizer) OnResult(callback func(speechtotext.Result)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onResult = callback
}

func (r *fakeRecognizer) OnStopped(callback func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onStopped = callback
}

// drop simulates the engine losing its connection while listening.
func (r *fakeRecognizer) drop(err error) {
	r.mu.Lock()
	r.listening = false
	callback := r.onStopped
	r.mu.Unlock()
	callback(err)
}

func (r *fakeRecognizer) emit(text string) {
	r.mu.Lock()
	callback := r.onResult
	r.mu.Unlock()
	callback(speechtotext.Result{Text: text})
}

func (r *fakeRecognizer) isListening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listening
}

func (r *fakeRecognizer) starts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startCalls
}

func (r *fakeRecognizer) stops() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopCalls
}

func (r *fakeRecognizer) initCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initAttempts
}

type fakeConversation struct {
	mu       sync.Mutex
	history  *conversations.History
	received []string
	metadata []metadata.TurnMetadata
}

func (c *fakeConversation) Dispatch(_ context.Context, prompt string, turnMetadata metadata.TurnMetadata) *conversations.History {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, prompt)
	c.metadata = append(c.metadata, turnMetadata)
	return c.history
}

func (c *fakeConversation) dispatchedMetadata() []metadata.TurnMetadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]metadata.TurnMetadata(nil), c.metadata...)
}

func (c *fakeConversation) prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.received...)
}

type fakeRenderer struct {
	mu       sync.Mutex
	rendered []string
}

func (r *fakeRenderer) Render(_ context.Context, text string) (audio.Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendered = append(r.rendered, text)
	return audio.Clip{Audio: []byte(text), EncodingInfo: audio.GetDefaultEncodingInfo()}, nil
}

func (r *fakeRenderer) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.rendered...)
}

type fakePlayer struct {
	mu             sync.Mutex
	endImmediately bool
	stopCalls      int
}

func (p *fakePlayer) Play(_ context.Context, _ audio.Clip, onEnded func()) (audio.Playback, error) {
	if p.endImmediately {
		onEnded()
	}
	return &fakePlayback{player: p}, nil
}

func (p *fakePlayer) stops() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopCalls
}

type fakePlayback struct {
	player *fakePlayer
}

func (p *fakePlayback) Stop() error {
	p.player.mu.Lock()
	defer p.player.mu.Unlock()
	p.player.stopCalls++
	return nil
}

type fakeNotifier struct {
	mu            sync.Mutex
	types         []platform.ActionType
	notifications []platform.Notification
	shown         []string
	cancelCalls   int
	onAction      func(platform.ActionPerformed)
}

func (n *fakeNotifier) RegisterActionType(_ context.Context, actionType platform.ActionType) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.types = append(n.types, actionType)
	return nil
}

func (n *fakeNotifier) Schedule(_ context.Context, notification platform.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
	return nil
}

func (n *fakeNotifier) CancelAll(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelCalls++
	return nil
}

func (n *fakeNotifier) Toast(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = append(n.shown, text)
	return nil
}

func (n *fakeNotifier) OnAction(callback func(platform.ActionPerformed)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onAction = callback
}

func (n *fakeNotifier) perform(action platform.ActionPerformed) {
	n.mu.Lock()
	callback := n.onAction
	n.mu.Unlock()
	callback(action)
}

func (n *fakeNotifier) actionTypes() []platform.ActionType {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]platform.ActionType(nil), n.types...)
}

func (n *fakeNotifier) scheduled() []platform.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]platform.Notification(nil), n.notifications...)
}

func (n *fakeNotifier) toasts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.shown...)
}

func (n *fakeNotifier) hasToast(text string) bool {
	for _, toast := range n.toasts() {
		if toast == text {
			return true
		}
	}
	return false
}

func (n *fakeNotifier) cancelled() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cancelCalls
}

type fakeTools struct {
	mu       sync.Mutex
	executed [][]conversations.ToolMessage
	// release, when set, holds Execute until it is closed.
	release chan struct{}
	panics  bool
	fails   bool
}

func (f *fakeTools) Execute(ctx context.Context, calls []conversations.ToolMessage) capabilities.Report {
	f.mu.Lock()
	f.executed = append(f.executed, calls)
	f.mu.Unlock()

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
		}
	}
	if f.panics {
		panic("tool handler exploded")
	}
	if f.fails {
		return capabilities.Report{Failed: len(calls), Errors: []error{errors.New("launcher unavailable")}}
	}
	return capabilities.Report{Executed: len(calls)}
}

func (f *fakeTools) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.executed)
}

func (f *fakeTools) lastCalls() []conversations.ToolMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.executed) == 0 {
		return nil
	}
	return f.executed[len(f.executed)-1]
}

type staticApps []string

func (a staticApps) InstalledApps(context.Context) ([]string, error) {
	return append([]string(nil), a...), nil
}

type stalledLocator struct{}

func (stalledLocator) CurrentPosition(ctx context.Context) (platform.Position, error) {
	<-ctx.Done()
	return platform.Position{}, ctx.Err()
}

type fakeAssets struct{}

func (fakeAssets) Preload(context.Context) error { return nil }

func (fakeAssets) PromptAccepted() (audio.Clip, bool) {
	return audio.Clip{Audio: []byte{0, 0}, EncodingInfo: audio.GetDefaultEncodingInfo()}, true
}

type eventRecorder struct {
	mu       sync.Mutex
	recorded []events.Event
}

func (r *eventRecorder) record(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, event)
}

func (r *eventRecorder) snapshot() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.recorded...)
}

func (r *eventRecorder) count(kind events.Kind) int {
	count := 0
	for _, event := range r.snapshot() {
		if event.Kind() == kind {
			count++
		}
	}
	return count
}

func (r *eventRecorder) speeches() []events.SpeechStarted {
	var speeches []events.SpeechStarted
	for _, event := range r.snapshot() {
		if speech, ok := event.(events.SpeechStarted); ok {
			speeches = append(speeches, speech)
		}
	}
	return speeches
}

func (r *eventRecorder) states() []string {
	var states []string
	for _, event := range r.snapshot() {
		if changed, ok := event.(events.StateChanged); ok {
			states = append(states, changed.To)
		}
	}
	return states
}

func (r *eventRecorder) passedThrough(state State) bool {
	for _, to := range r.states() {
		if strings.EqualFold(to, string(state)) {
			return true
		}
	}
	return false
}
