// Package speechtotext describes the speech recognition engine the assistant
// listens through.
package speechtotext

import (
	"context"
	"errors"
)

var ErrNotInitialized = errors.New("recognition model not initialized")

// Result is a final recognition result for one utterance.
type Result struct {
	Text string
}

// Recognizer is a start/stop speech recognition engine that reports final
// results through a callback.
type Recognizer interface {
	// InitializeModel prepares the engine. It may be retried.
	InitializeModel(ctx context.Context) error
	Available(ctx context.Context) (bool, error)
	StartListening(ctx context.Context) error
	StopListening(ctx context.Context) error
	IsListening(ctx context.Context) (bool, error)
	// OnResult registers the callback for final results. Only the last
	// registered callback is used.
	OnResult(callback func(Result))
	// OnStopped registers the callback invoked when listening ends without
	// StopListening being called, e.g. when the engine loses its connection.
	OnStopped(callback func(err error))
}
