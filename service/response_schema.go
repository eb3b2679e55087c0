package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const explanationSchemaJSON = `{
  "type": "object",
  "required": ["decision", "confidence_score", "explanation", "alternatives"],
  "properties": {
    "decision": {"type": "string", "enum": ["Low Risk", "Medium Risk", "High Risk"]},
    "confidence_score": {"type": "number", "minimum": 0, "maximum": 1},
    "explanation": {"type": "string", "minLength": 1},
    "alternatives": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "string", "minLength": 1}
    }
  }
}`

var explanationSchema = mustCompileSchema(explanationSchemaJSON)

type structuredExplanation struct {
	Decision        string   `json:"decision"`
	ConfidenceScore float64  `json:"confidence_score"`
	Explanation     string   `json:"explanation"`
	Alternatives    []string `json:"alternatives"`
}

func mustCompileSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile explanation schema: %v", err))
	}
	return schema
}

// parseStructuredExplanation decodes a model reply, tolerating a markdown
// code fence around the JSON object.
func parseStructuredExplanation(content string) (structuredExplanation, error) {
	var out structuredExplanation

	body := stripCodeFence(content)
	if body == "" {
		return out, fmt.Errorf("%w: empty content", ErrMalformedExplanation)
	}

	result, err := explanationSchema.Validate(gojsonschema.NewStringLoader(body))
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedExplanation, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return out, fmt.Errorf("%w: %s", ErrMalformedExplanation, strings.Join(errs, "; "))
	}

	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedExplanation, err)
	}
	return out, nil
}

func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
