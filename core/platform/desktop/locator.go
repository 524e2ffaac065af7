package desktop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/koscakluka/lola/core/platform"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/codes"
)

const DefaultIPLocationURL = "https://ipapi.co/json/"

// StaticLocator always reports the same configured position.
type StaticLocator struct {
	Position platform.Position
}

func (l StaticLocator) CurrentPosition(context.Context) (platform.Position, error) {
	return l.Position, nil
}

// IPLocator approximates the position from the public IP address.
type IPLocator struct {
	url        string
	httpClient *http.Client
}

type IPLocatorOption func(*IPLocator)

func WithIPLocationURL(url string) IPLocatorOption {
	return func(l *IPLocator) { l.url = url }
}

func WithLocatorHTTPClient(client *http.Client) IPLocatorOption {
	return func(l *IPLocator) { l.httpClient = client }
}

func NewIPLocator(opts ...IPLocatorOption) *IPLocator {
	l := &IPLocator{
		url:        DefaultIPLocationURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *IPLocator) CurrentPosition(ctx context.Context) (platform.Position, error) {
	ctx, span := tracer.Start(ctx, "locate by ip")
	defer span.End()

	position, err := l.lookup(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return platform.Position{}, err
	}
	return position, nil
}

func (l *IPLocator) lookup(ctx context.Context) (platform.Position, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return platform.Position{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return platform.Position{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return platform.Position{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var position platform.Position
	if err := json.NewDecoder(resp.Body).Decode(&position); err != nil {
		return platform.Position{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return position, nil
}
