package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/koscakluka/lola/core/events"
	"github.com/koscakluka/lola/core/platform"
	"github.com/koscakluka/lola/internal/config"
	"github.com/spf13/cobra"
)

var headless bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Listen for the wake phrase and respond until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if headless {
			err = runHeadless(ctx, cfg)
		} else {
			err = runInteractive(ctx, cfg)
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	runCmd.Flags().BoolVar(&headless, "headless", false, "print notifications instead of showing the terminal UI; SIGUSR1 stops the current turn")
}

func runHeadless(ctx context.Context, cfg *config.Config) error {
	notifier := newHeadlessNotifier(os.Stdout)
	notifier.watchSignals(ctx)
	return runAssistant(ctx, cfg, notifier, nil)
}

func runInteractive(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	notifier := newTUINotifier(cancel)
	uiDone := make(chan error, 1)
	go func() {
		_, err := notifier.program.Run()
		uiDone <- err
	}()
	go notifier.forward(ctx)

	err := runAssistant(ctx, cfg, notifier, notifier.observe)
	notifier.program.Quit()
	if uiErr := <-uiDone; uiErr != nil && err == nil {
		err = fmt.Errorf("terminal ui failed: %w", uiErr)
	}
	return err
}

func runAssistant(ctx context.Context, cfg *config.Config, notifier platform.Notifier, observer func(events.Event)) error {
	assistant, err := assemble(cfg, notifier, observer)
	if err != nil {
		return err
	}
	defer assistant.Close()

	if err := assistant.orchestrator.Start(ctx); err != nil {
		return err
	}
	logger.Info("assistant started")

	return assistant.orchestrator.Run(ctx)
}
