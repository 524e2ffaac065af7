package desktop

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/koscakluka/lola/core/platform"
)

var _ platform.AppLauncher = (*AppLauncher)(nil)

// CommandRunner starts an external command without waiting for it to exit.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// AppLauncher opens URLs with the desktop's default handlers and launches
// applications by desktop entry id.
type AppLauncher struct {
	inventory *AppInventory
	run       CommandRunner
	lookPath  func(string) (string, error)
}

type AppLauncherOption func(*AppLauncher)

func WithCommandRunner(run CommandRunner) AppLauncherOption {
	return func(l *AppLauncher) { l.run = run }
}

func WithLookPath(lookPath func(string) (string, error)) AppLauncherOption {
	return func(l *AppLauncher) { l.lookPath = lookPath }
}

func NewAppLauncher(inventory *AppInventory, opts ...AppLauncherOption) *AppLauncher {
	l := &AppLauncher{
		inventory: inventory,
		run:       startCommand,
		lookPath:  exec.LookPath,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CanOpenURL reports whether target can be opened. target is either a URL
// with a scheme or an installed application id.
func (l *AppLauncher) CanOpenURL(ctx context.Context, target string) (bool, error) {
	if parsed, err := url.Parse(target); err == nil && parsed.Scheme != "" {
		_, err := l.lookPath(urlOpener())
		return err == nil, nil
	}

	if l.inventory == nil {
		return false, nil
	}
	return l.inventory.Has(ctx, target)
}

func (l *AppLauncher) OpenURL(ctx context.Context, target string) error {
	ctx, span := tracer.Start(ctx, "open url")
	defer span.End()

	if err := l.run(ctx, urlOpener(), target); err != nil {
		return fmt.Errorf("failed to open %q: %w", target, err)
	}
	return nil
}

func (l *AppLauncher) PerformActionOnExternalApp(ctx context.Context, pkg string, target string) error {
	ctx, span := tracer.Start(ctx, "open url in app")
	defer span.End()

	var err error
	if runtime.GOOS == "darwin" {
		err = l.run(ctx, "open", "-b", pkg, target)
	} else {
		err = l.run(ctx, "gtk-launch", pkg, target)
	}
	if err != nil {
		return fmt.Errorf("failed to open %q in %q: %w", target, pkg, err)
	}
	return nil
}

func urlOpener() string {
	if runtime.GOOS == "darwin" {
		return "open"
	}
	return "xdg-open"
}

func startCommand(_ context.Context, name string, args ...string) error {
	// Launched applications must outlive the turn that opened them, so the
	// command is not bound to ctx.
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Debug("launched command exited", "command", name, "error", err)
		}
	}()
	return nil
}
