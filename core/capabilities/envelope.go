package capabilities

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Archetype marks tool message content meant for the device rather than the
// backend.
const Archetype = "frontend-capability"

var (
	ErrInvalidEnvelope   = errors.New("invalid capability envelope")
	ErrInvalidPayload    = errors.New("invalid capability payload")
	ErrUnknownCapability = errors.New("unknown capability")
)

const envelopeSchemaJSON = `{
	"type": "object",
	"required": ["archetype", "kind", "data"],
	"properties": {
		"archetype": {"const": "frontend-capability"},
		"kind": {"type": "string", "minLength": 1},
		"data": {"type": "object"}
	}
}`

var envelopeSchema = mustCompileSchema("capability envelope", envelopeSchemaJSON)

func mustCompileSchema(name, schema string) *gojsonschema.Schema {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("invalid %s schema: %v", name, err))
	}
	return compiled
}

// Envelope is the outer shape of a capability invocation.
type Envelope struct {
	Archetype string          `json:"archetype"`
	Kind      string          `json:"kind"`
	Data      json.RawMessage `json:"data"`
}

// ParseEnvelope validates raw tool message content and decodes it.
func ParseEnvelope(content string) (Envelope, error) {
	if !json.Valid([]byte(content)) {
		return Envelope{}, fmt.Errorf("%w: content is not JSON", ErrInvalidEnvelope)
	}

	if err := validate(envelopeSchema, []byte(content)); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}

	var envelope Envelope
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}
	return envelope, nil
}

func validate(schema *gojsonschema.Schema, document []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var violations []string
		for _, violation := range result.Errors() {
			violations = append(violations, violation.String())
		}
		return fmt.Errorf("schema validation errors: %s", strings.Join(violations, "; "))
	}

	return nil
}
