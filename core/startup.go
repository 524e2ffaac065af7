package orchestration

import (
	"context"
	"fmt"

	"github.com/koscakluka/lola/core/platform"
)

// Start prepares the host and the recognizer. Platform steps that the user
// can decline, like permissions, only log; everything else is fatal. Model
// initialisation is retried according to the retry policy.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.recognizer == nil {
		return ErrRecognizerNotConfigured
	}
	if !o.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, span := tracer.Start(ctx, "start orchestrator")
	defer span.End()

	if err := o.start(ctx); err != nil {
		recordError(ctx, err)
		return err
	}
	return nil
}

func (o *Orchestrator) start(ctx context.Context) error {
	if o.background != nil {
		if err := o.background.Enable(ctx); err != nil {
			return fmt.Errorf("failed to enable background execution: %w", err)
		}
	}

	if o.permissions != nil {
		granted, err := o.permissions.RequestPermissions(ctx,
			platform.PermissionNotifications,
			platform.PermissionMicrophone,
			platform.PermissionLocation,
			platform.PermissionContacts,
		)
		if err != nil {
			logger.Warn("failed to request permissions", "error", err)
		} else {
			logger.Info("permissions requested", "granted", granted)
		}
	}

	if o.background != nil {
		if err := o.background.DisableBatteryOptimizations(ctx); err != nil {
			return fmt.Errorf("failed to disable battery optimizations: %w", err)
		}
		if err := o.background.MoveToBackground(ctx); err != nil {
			return fmt.Errorf("failed to move to background: %w", err)
		}
	}

	if o.assets != nil {
		if err := o.assets.Preload(ctx); err != nil {
			logger.Warn("failed to preload assets", "error", err)
		}
	}

	err := o.notifier.RegisterActionType(ctx, platform.ActionType{
		ID:      InterruptActionTypeID,
		Actions: []platform.Action{{ID: InterruptActionID, Title: "Stop"}},
	})
	if err != nil {
		return fmt.Errorf("failed to register notification actions: %w", err)
	}
	o.notifier.OnAction(o.onAction)
	o.recognizer.OnResult(o.onResult)
	o.recognizer.OnStopped(o.onStopped)

	o.toast(ctx, "Lola is initializing her speech-to-speech capabilities. Please wait...")
	if err := o.runner.Run(ctx, "initialize recognition model", o.recognizer.InitializeModel); err != nil {
		return fmt.Errorf("failed to initialize speech recognition: %w", err)
	}
	o.toast(ctx, "Lola's speech-to-text model is initialized.")

	return nil
}
