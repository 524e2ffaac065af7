package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/koscakluka/lola/core/conversations"
	"github.com/koscakluka/lola/core/events"
	"github.com/koscakluka/lola/core/platform"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel/attribute"
)

// activeTurn is one accepted prompt and everything done in response to it.
type activeTurn struct {
	id     string
	prompt string
	ctx    context.Context
	cancel context.CancelFunc
}

type turnResult struct {
	turn *activeTurn
	err  error
}

func (o *Orchestrator) startTurn(ctx context.Context, prompt string) {
	turnCtx, cancel := context.WithCancel(ctx)
	turn := &activeTurn{
		id:     uuid.NewString(),
		prompt: prompt,
		ctx:    turnCtx,
		cancel: cancel,
	}

	o.mu.Lock()
	o.turn = turn
	o.mu.Unlock()

	logger.Info("turn started", "turn", turn.id, "prompt", prompt)
	o.emit(events.NewTurnStarted(turn.id, prompt))

	go func() {
		err := panicSafeNamedWorker("turn", func(ctx context.Context) error {
			return o.respond(ctx, turn)
		})(turnCtx)
		o.turnDone <- turnResult{turn: turn, err: err}
	}()
}

// respond plays the acceptance cue, asks the backend and acts on the reply.
func (o *Orchestrator) respond(ctx context.Context, turn *activeTurn) error {
	ctx, span := tracer.Start(ctx, "respond")
	defer span.End()
	span.SetAttributes(attribute.String("turn.id", turn.id))

	o.toast(ctx, fmt.Sprintf("You asked Lola: %q", turn.prompt))
	o.playCue(ctx)

	if !o.transition(ctx, StateDispatching) {
		return ctx.Err()
	}

	if o.conversation == nil {
		return o.speak(ctx, turn, o.fallbackPhrase, true)
	}

	turnMetadata := o.collector.Collect(ctx)

	dispatchCtx := ctx
	if o.dispatchTimeout > 0 {
		var cancel context.CancelFunc
		dispatchCtx, cancel = context.WithTimeout(ctx, o.dispatchTimeout)
		defer cancel()
	}
	history := o.conversation.Dispatch(dispatchCtx, turn.prompt, turnMetadata)
	if err := ctx.Err(); err != nil {
		return err
	}

	if history == nil {
		return o.speak(ctx, turn, o.fallbackPhrase, true)
	}

	reply := history.Partition()
	if reply.LastAssistant == nil {
		logger.Warn("history has no assistant message", "turn", turn.id)
		return o.speak(ctx, turn, o.fallbackPhrase, true)
	}
	if reply.IsEmpty() {
		logger.Info("reply has nothing to say, skipping its tool calls", "turn", turn.id, "tool_calls", len(reply.ToolCalls))
		return nil
	}

	var (
		speakErr error
		wg       conc.WaitGroup
	)
	wg.Go(func() {
		speakErr = o.speak(ctx, turn, reply.Text(), false)
	})
	if len(reply.ToolCalls) > 0 && o.tools != nil {
		wg.Go(func() {
			o.executeTools(ctx, turn, reply.ToolCalls)
		})
	}
	if recovered := wg.WaitAndRecover(); recovered != nil {
		err := recovered.AsError()
		recordError(ctx, err)
		return err
	}

	if speakErr != nil {
		recordError(ctx, speakErr)
	}
	return speakErr
}

func (o *Orchestrator) playCue(ctx context.Context) {
	if o.assets == nil || o.registry == nil {
		return
	}

	clip, ok := o.assets.PromptAccepted()
	if !ok {
		return
	}
	if _, err := o.registry.BeginClip(ctx, "prompt accepted", clip); err != nil && ctx.Err() == nil {
		logger.Warn("failed to play prompt accepted cue", "error", err)
	}
}

// speak says text and waits until it finished playing or the turn was
// cancelled.
func (o *Orchestrator) speak(ctx context.Context, turn *activeTurn, text string, fallback bool) error {
	if !o.transition(ctx, StateSpeaking) {
		return ctx.Err()
	}
	if o.registry == nil {
		logger.Warn("no speech registry configured, not speaking", "text", text)
		return nil
	}

	handle, err := o.registry.Begin(ctx, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("failed to speak: %w", err)
	}
	o.emit(events.NewSpeechStarted(turn.id, text, fallback))

	notification := platform.Notification{
		ID:           uuid.NewString(),
		Title:        "Lola",
		Body:         "Lola says: " + collapseNewlines(text),
		ActionTypeID: InterruptActionTypeID,
	}
	if err := o.notifier.Schedule(ctx, notification); err != nil {
		logger.Warn("failed to schedule speech notification", "error", err)
	}

	select {
	case <-handle.Done():
		if handle.Cancelled() && ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	case <-ctx.Done():
		handle.Cancel()
		return ctx.Err()
	}
}

func (o *Orchestrator) executeTools(ctx context.Context, turn *activeTurn, calls []conversations.ToolMessage) {
	report := o.tools.Execute(ctx, calls)
	if err := errors.Join(report.Errors...); err != nil {
		logger.Warn("some tool calls failed", "turn", turn.id, "error", err)
	}
	logger.Info("tool calls executed",
		"turn", turn.id,
		"executed", report.Executed,
		"failed", report.Failed,
		"ignored", report.Ignored)
	o.emit(events.NewToolCallsExecuted(turn.id, report.Executed, report.Failed, report.Ignored))
}
