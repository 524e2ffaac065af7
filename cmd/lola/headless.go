package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	orchestration "github.com/koscakluka/lola/core"
	"github.com/koscakluka/lola/core/platform"
)

// headlessNotifier prints notifications as lines of text. The first action
// of the visible notification is performed on SIGUSR1.
type headlessNotifier struct {
	out io.Writer
	now func() time.Time

	mu          sync.Mutex
	actionTypes map[string]platform.ActionType
	current     *platform.Notification
	onAction    func(platform.ActionPerformed)
}

func newHeadlessNotifier(out io.Writer) *headlessNotifier {
	return &headlessNotifier{
		out:         out,
		now:         time.Now,
		actionTypes: map[string]platform.ActionType{},
	}
}

func (n *headlessNotifier) RegisterActionType(_ context.Context, actionType platform.ActionType) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actionTypes[actionType.ID] = actionType
	return nil
}

func (n *headlessNotifier) Schedule(_ context.Context, notification platform.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.current = &notification
	n.printf("%s: %s", notification.Title, notification.Body)
	if actions := n.actionTypes[notification.ActionTypeID].Actions; len(actions) > 0 {
		n.printf("  send SIGUSR1 to pid %d to %s", os.Getpid(), actions[0].Title)
	}
	return nil
}

func (n *headlessNotifier) CancelAll(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = nil
	return nil
}

func (n *headlessNotifier) Toast(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.printf("%s", text)
	return nil
}

func (n *headlessNotifier) OnAction(callback func(platform.ActionPerformed)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onAction = callback
}

// perform delivers the first action of the visible notification, or a bare
// interrupt when nothing is visible.
func (n *headlessNotifier) perform() {
	n.mu.Lock()
	action := platform.ActionPerformed{ActionID: orchestration.InterruptActionID}
	if n.current != nil {
		action.NotificationID = n.current.ID
		if actions := n.actionTypes[n.current.ActionTypeID].Actions; len(actions) > 0 {
			action.ActionID = actions[0].ID
		}
	}
	callback := n.onAction
	n.mu.Unlock()

	if callback != nil {
		callback(action)
	}
}

// watchSignals performs the visible action on every SIGUSR1 until ctx is
// done. The signal handler is installed before watchSignals returns.
func (n *headlessNotifier) watchSignals(ctx context.Context) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGUSR1)

	go func() {
		defer signal.Stop(signals)
		for {
			select {
			case <-ctx.Done():
				return
			case <-signals:
				n.perform()
			}
		}
	}()
}

func (n *headlessNotifier) printf(format string, args ...any) {
	fmt.Fprintf(n.out, "%s %s\n", n.now().Format(time.TimeOnly), fmt.Sprintf(format, args...))
}
