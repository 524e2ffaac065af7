package platform

import "context"

type Action struct {
	ID    string
	Title string
}

// ActionType groups the actions a notification can offer. It has to be
// registered once before notifications referencing it are scheduled.
type ActionType struct {
	ID      string
	Actions []Action
}

type Notification struct {
	ID           string
	Title        string
	Body         string
	ActionTypeID string
}

// ActionPerformed is delivered when the user picks an action on a
// notification.
type ActionPerformed struct {
	ActionID       string
	NotificationID string
}

type Notifier interface {
	RegisterActionType(ctx context.Context, actionType ActionType) error
	Schedule(ctx context.Context, notification Notification) error
	// CancelAll removes every pending or displayed notification.
	CancelAll(ctx context.Context) error
	// Toast shows a short informational message without actions.
	Toast(ctx context.Context, text string) error
	// OnAction registers the callback for performed actions. Only the
	// latest callback is kept.
	OnAction(callback func(ActionPerformed))
}

// NoopNotifier drops every notification. It is the fallback when no
// notification surface is configured.
type NoopNotifier struct{}

func (NoopNotifier) RegisterActionType(context.Context, ActionType) error { return nil }
func (NoopNotifier) Schedule(context.Context, Notification) error         { return nil }
func (NoopNotifier) CancelAll(context.Context) error                      { return nil }
func (NoopNotifier) Toast(context.Context, string) error                  { return nil }
func (NoopNotifier) OnAction(func(ActionPerformed))                       {}
