package capabilities

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// Handler performs one kind of capability.
type Handler interface {
	Kind() string
	Handle(ctx context.Context, data json.RawMessage) error
}

type typedHandler[T any] struct {
	kind      string
	schema    *gojsonschema.Schema
	schemaErr error
	run       func(context.Context, T) error
}

// NewHandler builds a [Handler] whose payload is validated against the JSON
// schema reflected from T before run is called.
func NewHandler[T any](kind string, run func(ctx context.Context, data T) error) Handler {
	handler := &typedHandler[T]{kind: kind, run: run}
	handler.schema, handler.schemaErr = payloadSchema[T]()
	return handler
}

func (h *typedHandler[T]) Kind() string { return h.kind }

func (h *typedHandler[T]) Handle(ctx context.Context, data json.RawMessage) error {
	if h.schemaErr != nil {
		return fmt.Errorf("failed to compile %s payload schema: %w", h.kind, h.schemaErr)
	}

	if err := validate(h.schema, data); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	return h.run(ctx, payload)
}

func payloadSchema[T any]() (*gojsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
		Anonymous:                 true,
	}
	schema := reflector.ReflectFromType(reflect.TypeFor[T]())
	// gojsonschema only understands drafts up to 7
	schema.Version = ""

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
}
