package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/koscakluka/lola/core/platform"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPositionTimeout = 10 * time.Second
	DefaultSignalTimeout   = 10 * time.Second
)

// Collector gathers [TurnMetadata]. Signals are acquired concurrently, each
// under its own timeout, and a failing signal never affects the others.
type Collector struct {
	apps     platform.AppInventory
	locator  platform.Locator
	contacts platform.ContactBook

	appsTimeout     time.Duration
	positionTimeout time.Duration
	contactsTimeout time.Duration
}

type CollectorOption func(*Collector)

func WithAppInventory(apps platform.AppInventory) CollectorOption {
	return func(c *Collector) { c.apps = apps }
}

func WithLocator(locator platform.Locator) CollectorOption {
	return func(c *Collector) { c.locator = locator }
}

func WithContactBook(contacts platform.ContactBook) CollectorOption {
	return func(c *Collector) { c.contacts = contacts }
}

func WithPositionTimeout(timeout time.Duration) CollectorOption {
	return func(c *Collector) {
		if timeout > 0 {
			c.positionTimeout = timeout
		}
	}
}

func WithAppsTimeout(timeout time.Duration) CollectorOption {
	return func(c *Collector) {
		if timeout > 0 {
			c.appsTimeout = timeout
		}
	}
}

func WithContactsTimeout(timeout time.Duration) CollectorOption {
	return func(c *Collector) {
		if timeout > 0 {
			c.contactsTimeout = timeout
		}
	}
}

func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{
		appsTimeout:     DefaultSignalTimeout,
		positionTimeout: DefaultPositionTimeout,
		contactsTimeout: DefaultSignalTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect never fails, signals that could not be acquired are left empty.
func (c *Collector) Collect(ctx context.Context) TurnMetadata {
	ctx, span := tracer.Start(ctx, "collect turn metadata")
	defer span.End()

	var (
		metadata TurnMetadata
		group    errgroup.Group
	)

	if c.apps != nil {
		group.Go(func() error {
			if apps, ok := acquire(ctx, "installed apps", c.appsTimeout, c.apps.InstalledApps); ok {
				metadata.InstalledApps = apps
			}
			return nil
		})
	}

	if c.locator != nil {
		group.Go(func() error {
			if position, ok := acquire(ctx, "position", c.positionTimeout, c.locator.CurrentPosition); ok {
				metadata.GPSPosition = &position
			}
			return nil
		})
	}

	if c.contacts != nil {
		group.Go(func() error {
			if contacts, ok := acquire(ctx, "contacts", c.contactsTimeout, c.contacts.Contacts); ok {
				metadata.Contacts = contacts
			}
			return nil
		})
	}

	// Signals report their own failures and always return nil, so Wait only
	// joins them.
	_ = group.Wait()

	span.SetAttributes(
		attribute.Int("metadata.installed_apps", len(metadata.InstalledApps)),
		attribute.Bool("metadata.has_position", metadata.GPSPosition != nil),
		attribute.Int("metadata.contacts", len(metadata.Contacts)),
	)
	return metadata
}

// acquire runs fetch under its own timeout. The result is abandoned when the
// provider does not honour the deadline.
func acquire[T any](ctx context.Context, signal string, timeout time.Duration, fetch func(context.Context) (T, error)) (T, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	results := make(chan result, 1)
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				results <- result{err: fmt.Errorf("%s provider panicked: %v", signal, recovered)}
			}
		}()

		value, err := fetch(ctx)
		results <- result{value: value, err: err}
	}()

	var zero T
	select {
	case r := <-results:
		if r.err != nil {
			if errors.Is(r.err, platform.ErrPermissionDenied) {
				logger.InfoContext(ctx, "signal unavailable without permission", "signal", signal)
			} else {
				logger.WarnContext(ctx, "failed to acquire signal", "signal", signal, "error", r.err)
			}
			return zero, false
		}
		return r.value, true
	case <-ctx.Done():
		logger.WarnContext(ctx, "signal acquisition timed out", "signal", signal, "timeout", timeout)
		return zero, false
	}
}
