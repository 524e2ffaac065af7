package capabilities

import (
	"context"
	"fmt"

	"github.com/koscakluka/lola/core/platform"
)

const (
	KindOpenApp           = "open-app"
	KindOpenAppWithIntent = "open-app-with-intent"
)

type OpenAppData struct {
	URL string `json:"url"`
}

type OpenAppWithIntentData struct {
	Package string `json:"package"`
	URL     string `json:"url"`
}

// OpenApp opens a URL with whatever application the host associates with it.
func OpenApp(launcher platform.AppLauncher) Handler {
	return NewHandler(KindOpenApp, func(ctx context.Context, data OpenAppData) error {
		canOpen, err := launcher.CanOpenURL(ctx, data.URL)
		if err != nil {
			return fmt.Errorf("failed to check url %q: %w", data.URL, err)
		}
		if !canOpen {
			logger.Info("no application can open url", "url", data.URL)
			return nil
		}

		if err := launcher.OpenURL(ctx, data.URL); err != nil {
			return fmt.Errorf("failed to open url %q: %w", data.URL, err)
		}
		return nil
	})
}

// OpenAppWithIntent opens a URL inside a specific application.
func OpenAppWithIntent(launcher platform.AppLauncher) Handler {
	return NewHandler(KindOpenAppWithIntent, func(ctx context.Context, data OpenAppWithIntentData) error {
		canOpen, err := launcher.CanOpenURL(ctx, data.Package)
		if err != nil {
			return fmt.Errorf("failed to check app %q: %w", data.Package, err)
		}
		if !canOpen {
			logger.Info("application is not available", "package", data.Package)
			return nil
		}

		if err := launcher.PerformActionOnExternalApp(ctx, data.Package, data.URL); err != nil {
			return fmt.Errorf("failed to open %q in %q: %w", data.URL, data.Package, err)
		}
		return nil
	})
}
