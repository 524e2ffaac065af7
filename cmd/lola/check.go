package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/lola/internal/config"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const pingTimeout = 5 * time.Second

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Print the resolved configuration and check that the backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, line := range describe(cfg) {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out)

		client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
		if err := ping(cmd.Context(), client, cfg.Backend.URL); err != nil {
			fmt.Fprintln(out, failStyle.Render("backend unreachable: "+err.Error()))
			return err
		}
		fmt.Fprintln(out, okStyle.Render("backend reachable"))
		return nil
	},
}

// describe lists the settings that shape the assistant, with secrets
// masked.
func describe(cfg *config.Config) []string {
	contactNames := make([]string, 0, len(cfg.Metadata.Contacts))
	for _, contact := range cfg.Metadata.Contacts {
		contactNames = append(contactNames, contact.Name)
	}

	return []string{
		"backend.url = " + cfg.Backend.URL,
		"backend.endpoint = " + cfg.Backend.Endpoint,
		"backend.secret = " + mask(cfg.Backend.Secret),
		"backend.timeout = " + cfg.Backend.Timeout.String(),
		"assistant.wake_phrases = " + strings.Join(cfg.Assistant.WakePhrases, ", "),
		"assistant.fallback_phrase = " + cfg.Assistant.FallbackPhrase,
		"assistant.ready_phrase = " + cfg.Assistant.ReadyPhrase,
		fmt.Sprintf("assistant.event_queue_size = %d", cfg.Assistant.EventQueueSize),
		"assistant.dispatch_timeout = " + cfg.Assistant.DispatchTimeout.String(),
		fmt.Sprintf("retry = %+v", cfg.RetryPolicy()),
		"metadata.position.source = " + cfg.Metadata.Position.Source,
		"metadata.contacts = " + strings.Join(contactNames, ", "),
		"metadata.denied_permissions = " + strings.Join(cfg.Metadata.DeniedPermissions, ", "),
		"deepgram.api_key = " + mask(cfg.Deepgram.APIKey),
		"deepgram.voice = " + cfg.Deepgram.Voice,
		"deepgram.model = " + cfg.Deepgram.Model,
		"deepgram.language = " + cfg.Deepgram.Language,
		"audio.capture = " + cfg.Audio.Capture,
		fmt.Sprintf("audio.sample_rate = %d", cfg.Audio.SampleRate),
		"audio.assets_dir = " + cfg.Audio.AssetsDir,
	}
}

func mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "********"
}

// ping treats any HTTP response as reachable; only transport failures
// count.
func ping(ctx context.Context, client *http.Client, url string) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
