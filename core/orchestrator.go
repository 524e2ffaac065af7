package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/lola/core/events"
	"github.com/koscakluka/lola/core/metadata"
	"github.com/koscakluka/lola/core/platform"
	"github.com/koscakluka/lola/core/playback"
	"github.com/koscakluka/lola/core/retry"
	"github.com/koscakluka/lola/core/speechtotext"
	"github.com/koscakluka/lola/core/wakeword"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultFallbackPhrase = "I didn't get that, could you try again?"
	DefaultEventQueueSize = 16

	// InterruptActionTypeID is the notification action type attached to
	// everything the assistant says.
	InterruptActionTypeID = "lola-speech"
	// InterruptActionID is the action that stops the current turn.
	InterruptActionID = "interrupt"

	armRecognizerOperation = "arm recognizer"
)

var (
	ErrRecognizerNotConfigured = errors.New("speech recognizer not configured")
	ErrAlreadyStarted          = errors.New("orchestrator already started")
	ErrAlreadyRunning          = errors.New("orchestrator already running")
)

// Orchestrator drives the always-listening turn cycle: listen for a final
// transcript, check the wake phrase, ask the backend, then speak the reply
// and run its tool effects before listening again.
//
// All state transitions except those made by the running turn happen on the
// Run goroutine, the single consumer of the event channel.
type Orchestrator struct {
	recognizer   speechtotext.Recognizer
	gate         wakeword.Gate
	collector    MetadataCollector
	conversation ConversationClient
	registry     *playback.Registry
	tools        ToolExecutor
	notifier     platform.Notifier
	background   platform.Background
	permissions  platform.Permissions
	assets       AssetLibrary

	retryPolicy     retry.Policy
	runner          *retry.Runner
	fallbackPhrase  string
	readyPhrase     string
	queueSize       int
	dispatchTimeout time.Duration
	observer        eventEmitter

	events   chan events.Event
	turnDone chan turnResult
	done     chan struct{}

	started atomic.Bool
	running atomic.Bool

	mu    sync.Mutex
	state State
	turn  *activeTurn
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		gate:           wakeword.New(wakeword.DefaultPhrase),
		collector:      metadata.NewCollector(),
		notifier:       platform.NoopNotifier{},
		retryPolicy:    retry.DefaultPolicy(),
		fallbackPhrase: DefaultFallbackPhrase,
		queueSize:      DefaultEventQueueSize,
		observer:       noopEventEmitter,
		state:          StateIdle,
		turnDone:       make(chan turnResult, 1),
		done:           make(chan struct{}),
	}

	for _, opt := range opts {
		opt(o)
	}

	o.events = make(chan events.Event, o.queueSize)
	o.runner = retry.NewRunner(
		retry.WithPolicy(o.retryPolicy),
		retry.WithFailureCallback(func(name string, attempt uint64, err error) {
			o.toast(context.Background(), fmt.Sprintf("%v - Trying again...", err))
		}),
		retry.WithRecoveryCallback(func(name string, attempts uint64) {
			if name == armRecognizerOperation {
				o.toast(context.Background(), "Lola can hear you again.")
			}
		}),
	)
	return o
}

// State reports the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SubmitTranscript queues a final transcript. Transcripts that do not fit in
// the queue are dropped.
func (o *Orchestrator) SubmitTranscript(transcript string) {
	select {
	case o.events <- events.NewTranscriptReceived(transcript):
	default:
		logger.Warn("event queue full, dropping transcript", "transcript", transcript)
	}
}

// Interrupt stops the current turn and everything it is saying. Interrupts
// are never dropped while Run is active; they are ignored once it returned.
func (o *Orchestrator) Interrupt(source string) {
	select {
	case o.events <- events.NewInterruptRequested(source):
	case <-o.done:
	}
}

func (o *Orchestrator) onResult(result speechtotext.Result) {
	o.SubmitTranscript(result.Text)
}

// onStopped reports a recognizer that stopped on its own. It is never
// dropped, the loop would otherwise keep waiting for transcripts that cannot
// arrive.
func (o *Orchestrator) onStopped(err error) {
	select {
	case o.events <- events.NewRecognizerStopped(err):
	case <-o.done:
	}
}

func (o *Orchestrator) onAction(action platform.ActionPerformed) {
	if action.ActionID == InterruptActionID {
		go o.Interrupt("notification")
	}
}

// Run listens and responds until ctx is done. It must be called once, after
// [Orchestrator.Start].
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.recognizer == nil {
		return ErrRecognizerNotConfigured
	}
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(o.done)

	o.listen(ctx)
	o.toast(ctx, "Lola is ready to listen for commands.")
	o.announceReady(ctx)

	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return nil
		case event := <-o.events:
			o.handle(ctx, event)
		case result := <-o.turnDone:
			o.completeTurn(ctx, result)
		}
	}
}

func (o *Orchestrator) handle(ctx context.Context, event events.Event) {
	switch typedEvent := event.(type) {
	case events.TranscriptReceived:
		o.capture(ctx, typedEvent.Transcript)
	case events.InterruptRequested:
		o.interrupt(ctx, typedEvent.Source)
	case events.RecognizerStopped:
		o.rearm(ctx, typedEvent.Err)
	default:
		logger.Debug("ignoring unexpected event", "event", event.Kind())
	}
}

// listen arms the recognizer, retrying until it succeeds or ctx is done.
func (o *Orchestrator) listen(ctx context.Context) {
	o.setState(StateListening)

	err := o.runner.Run(ctx, armRecognizerOperation, func(ctx context.Context) error {
		listening, err := o.recognizer.IsListening(ctx)
		if err != nil {
			return err
		}
		if listening {
			return nil
		}
		return o.recognizer.StartListening(ctx)
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("failed to arm recognizer", "error", err)
	}
}

// rearm restarts a recognizer that stopped while the loop was waiting for a
// transcript. In every other state the next listen arms it anyway.
func (o *Orchestrator) rearm(ctx context.Context, cause error) {
	if state := o.State(); state != StateListening {
		logger.Debug("recognizer stopped outside listening", "state", state, "error", cause)
		return
	}

	logger.Warn("recognizer stopped while listening, arming it again", "error", cause)
	o.listen(ctx)
}

func (o *Orchestrator) capture(ctx context.Context, transcript string) {
	if state := o.State(); state != StateListening {
		logger.Info("dropping transcript outside listening", "state", state, "transcript", transcript)
		return
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return
	}

	o.setState(StateCapturing)
	if err := o.recognizer.StopListening(ctx); err != nil {
		logger.Warn("failed to stop recognizer", "error", err)
	}

	if !o.gate.Matches(transcript) {
		logger.Debug("transcript without wake phrase", "transcript", transcript)
		o.listen(ctx)
		return
	}

	o.startTurn(ctx, transcript)
}

func (o *Orchestrator) interrupt(ctx context.Context, source string) {
	ctx, span := tracer.Start(ctx, "interrupt")
	defer span.End()

	o.mu.Lock()
	turn := o.turn
	from := o.state
	o.state = StateInterrupting
	if turn != nil {
		// Cancelled under the lock so the turn cannot move the state past
		// Interrupting.
		turn.cancel()
	}
	o.mu.Unlock()
	o.emit(events.NewStateChanged(string(from), string(StateInterrupting)))

	cancelled := o.cancelOutput(ctx)
	logger.Info("interrupted", "source", source, "from", from, "handles", cancelled)

	// With a turn in flight completeTurn resumes listening once the turn
	// goroutine has unwound.
	if turn == nil {
		o.listen(ctx)
	}
}

func (o *Orchestrator) completeTurn(ctx context.Context, result turnResult) {
	o.mu.Lock()
	if o.turn != result.turn {
		o.mu.Unlock()
		return
	}
	o.turn = nil
	o.mu.Unlock()

	interrupted := result.turn.ctx.Err() != nil
	result.turn.cancel()
	o.cancelOutput(ctx)

	switch {
	case interrupted:
		o.emit(events.NewTurnCancelled(result.turn.id))
	case result.err != nil:
		logger.Error("turn failed", "turn", result.turn.id, "error", result.err)
		o.emit(events.NewTurnCompleted(result.turn.id))
	default:
		o.emit(events.NewTurnCompleted(result.turn.id))
	}

	if ctx.Err() == nil {
		o.listen(ctx)
	}
}

// cancelOutput stops all speech and withdraws every notification announcing
// it, including those of speech that already finished.
func (o *Orchestrator) cancelOutput(ctx context.Context) int {
	cancelled := 0
	if o.registry != nil {
		cancelled = o.registry.CancelAll()
	}
	if err := o.notifier.CancelAll(ctx); err != nil {
		logger.Warn("failed to cancel notifications", "error", err)
	}
	return cancelled
}

func (o *Orchestrator) shutdown() {
	o.mu.Lock()
	turn := o.turn
	o.turn = nil
	if turn != nil {
		turn.cancel()
	}
	o.mu.Unlock()

	if turn != nil {
		<-o.turnDone
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if o.registry != nil {
		o.registry.CancelAll()
	}
	if err := o.notifier.CancelAll(ctx); err != nil {
		logger.Warn("failed to cancel notifications", "error", err)
	}
	if err := o.recognizer.StopListening(ctx); err != nil {
		logger.Warn("failed to stop recognizer", "error", err)
	}
	o.setState(StateIdle)
}

func (o *Orchestrator) announceReady(ctx context.Context) {
	if o.readyPhrase == "" || o.registry == nil {
		return
	}

	if _, err := o.registry.Begin(ctx, o.readyPhrase); err != nil {
		logger.Warn("failed to speak ready phrase", "error", err)
	}
}

func (o *Orchestrator) setState(to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	o.mu.Unlock()

	if from != to {
		o.emit(events.NewStateChanged(string(from), string(to)))
	}
}

// transition moves the state on behalf of a turn. It refuses once the turn
// has been cancelled.
func (o *Orchestrator) transition(turnCtx context.Context, to State) bool {
	o.mu.Lock()
	if turnCtx.Err() != nil {
		o.mu.Unlock()
		return false
	}
	from := o.state
	o.state = to
	o.mu.Unlock()

	if from != to {
		o.emit(events.NewStateChanged(string(from), string(to)))
	}
	return true
}

func (o *Orchestrator) toast(ctx context.Context, text string) {
	if err := o.notifier.Toast(ctx, text); err != nil {
		logger.Warn("failed to show toast", "error", err)
	}
}

func recordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
