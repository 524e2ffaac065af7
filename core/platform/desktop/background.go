// Package desktop provides the platform capabilities on a Linux or macOS
// desktop.
package desktop

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/koscakluka/lola/core/platform"
)

var _ platform.Background = Background{}

// Background keeps the process running after its terminal goes away.
type Background struct{}

func (Background) Enable(context.Context) error {
	signal.Ignore(syscall.SIGHUP)
	return nil
}

// DisableBatteryOptimizations is a no-op on desktops.
func (Background) DisableBatteryOptimizations(context.Context) error { return nil }

// MoveToBackground is a no-op on desktops; the process has no window.
func (Background) MoveToBackground(context.Context) error { return nil }
