package assessment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const learningUnitSchemaJSON = `{
  "type": "object",
  "required": ["title", "summary"],
  "properties": {
    "title":       {"type": "string", "minLength": 1},
    "summary":     {"type": "string", "minLength": 1},
    "level":       {"type": "string"},
    "readingTime": {"type": "number"},
    "kiu":         {"type": "number"},
    "cpdPoints":   {"type": "number"}
  }
}`

const quizSchemaJSON = `{
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "minItems": 5,
      "maxItems": 5,
      "items": {
        "type": "object",
        "required": ["question", "options", "correctAnswer"],
        "properties": {
          "question":      {"type": "string", "minLength": 1},
          "options":       {"type": "array", "minItems": 4, "maxItems": 4, "items": {"type": "string"}},
          "correctAnswer": {"type": "integer", "minimum": 0, "maximum": 3},
          "explanation":   {"type": "string"}
        }
      }
    }
  }
}`

var (
	learningUnitSchema = mustSchema(learningUnitSchemaJSON)
	quizSchema         = mustSchema(quizSchemaJSON)
)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return schema
}

// decodeValidated checks raw model output against schema and decodes it.
func decodeValidated(schema *gojsonschema.Schema, raw string, out any) error {
	body := []byte(stripFences(raw))

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("response does not match schema: %s", strings.Join(msgs, "; "))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// stripFences removes a surrounding markdown code fence, which some models
// add even in JSON mode.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
