package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ExtractJSONObject returns the first balanced {...} span in text. Model
// replies often wrap the object in explanatory prose; this scanner walks
// brace depth while honoring JSON string literals and escapes, so braces
// inside strings do not terminate the span. ok is false when the text
// contains no balanced object.
func ExtractJSONObject(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if start == -1 {
			if c == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// intentSchema is derived from Types so the schema enum and the prompt's
// closed list never drift apart.
var intentSchema []byte

func init() {
	enum, err := json.Marshal(Types)
	if err != nil {
		panic(fmt.Sprintf("intent: marshal type enum: %v", err))
	}
	intentSchema = []byte(fmt.Sprintf(
		`{"type":"object","required":["type","parameters"],"properties":{"type":{"type":"string","enum":%s},"parameters":{"type":"object"}}}`,
		enum,
	))
}

// validatePayload checks an extracted object against the intent schema:
// a recognized type plus a parameters object, which may be empty.
func validatePayload(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(intentSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("intent: schema validation: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("intent: payload rejected: %s", strings.Join(msgs, "; "))
	}
	return nil
}
