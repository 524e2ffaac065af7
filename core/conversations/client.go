package conversations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/lola/core/metadata"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultEndpoint = "/api/conversation"
	secretHeader    = "x-secret"
)

var ErrInvalidResponse = errors.New("invalid conversation response")

// Client sends prompts to the reasoning backend.
type Client struct {
	baseURL    string
	endpoint   string
	secret     string
	timeout    time.Duration
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithSecret(secret string) ClientOption {
	return func(c *Client) { c.secret = secret }
}

func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithTimeout bounds a single dispatch. Zero, the default, leaves dispatch
// unbounded.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.timeout = timeout }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		endpoint: DefaultEndpoint,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "conversation " + r.Method + " " + r.URL.Path
			}),
		)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type requestBody struct {
	Prompt   string                `json:"prompt"`
	Metadata metadata.TurnMetadata `json:"metadata"`
}

type responseMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

// Dispatch sends prompt and its metadata to the backend. Every failure,
// including a response that does not match the expected shape, is logged
// and reported as a nil history.
func (c *Client) Dispatch(ctx context.Context, prompt string, turnMetadata metadata.TurnMetadata) *History {
	ctx, span := tracer.Start(ctx, "dispatch conversation")
	defer span.End()

	history, err := c.dispatch(ctx, prompt, turnMetadata)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "conversation dispatch failed", "error", err)
		return nil
	}

	span.SetAttributes(attribute.Int("response.messages", len(history.Messages)))
	return history
}

func (c *Client) dispatch(ctx context.Context, prompt string, turnMetadata metadata.TurnMetadata) (*History, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	requestBodyBytes, err := json.Marshal(requestBody{Prompt: prompt, Metadata: turnMetadata})
	if err != nil {
		return nil, fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.endpoint, bytes.NewReader(requestBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(secretHeader, c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("non-OK HTTP status: %s", resp.Status)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if err := validateResponse(bodyBytes); err != nil {
		return nil, err
	}

	var wireMessages []responseMessage
	if err := json.Unmarshal(bodyBytes, &wireMessages); err != nil {
		return nil, fmt.Errorf("error unmarshalling response body: %w", err)
	}

	messages := make([]Message, 0, len(wireMessages))
	if err := copier.CopyWithOption(&messages, &wireMessages, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("error converting response messages: %w", err)
	}

	return &History{Messages: messages}, nil
}
