package conversations

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const responseSchemaJSON = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["role"],
		"properties": {
			"role": {"enum": ["user", "assistant", "system", "tool"]},
			"content": {"type": ["string", "null"]}
		}
	}
}`

var responseSchema = mustCompileSchema(responseSchemaJSON)

func mustCompileSchema(schema string) *gojsonschema.Schema {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("invalid conversation response schema: %v", err))
	}
	return compiled
}

// validateResponse rejects the whole body if any message does not match.
func validateResponse(body []byte) error {
	result, err := responseSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("failed to validate response: %w", err)
	}

	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, violation := range result.Errors() {
			violations = append(violations, violation.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidResponse, strings.Join(violations, "; "))
	}
	return nil
}
