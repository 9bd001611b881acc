package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/codeflow/pkg/schema"
)

const (
	parseSchemaURL  = "https://codeflow.dev/schemas/parse-request.json"
	renderSchemaURL = "https://codeflow.dev/schemas/render-request.json"
)

// parseSchemaJSON is the JSON Schema for POST /parse bodies.
const parseSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "` + parseSchemaURL + `",
  "type": "object",
  "required": ["code"],
  "properties": {
    "code": { "type": "string" }
  }
}`

// renderSchemaJSON returns the JSON Schema for POST /render bodies. The format
// enum is generated from schema.RenderFormats.
func renderSchemaJSON() string {
	quoted := make([]string, len(schema.RenderFormats))
	for i, f := range schema.RenderFormats {
		quoted[i] = fmt.Sprintf("%q", f)
	}
	return `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "` + renderSchemaURL + `",
  "type": "object",
  "required": ["code"],
  "properties": {
    "code": { "type": "string" },
    "format": { "type": "string", "enum": [` + strings.Join(quoted, ", ") + `] }
  }
}`
}

// JSONSchemaValidator implements Validator using JSON Schema Draft 2020-12.
// It is safe for concurrent use.
type JSONSchemaValidator struct {
	parseSchema  *jsonschema.Schema
	renderSchema *jsonschema.Schema
}

var _ Validator = (*JSONSchemaValidator)(nil)

// NewJSONSchemaValidator creates a JSONSchemaValidator with both request
// schemas pre-compiled.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	resources := map[string]string{
		parseSchemaURL:  parseSchemaJSON,
		renderSchemaURL: renderSchemaJSON(),
	}
	for url, text := range resources {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
		if err != nil {
			return nil, fmt.Errorf("unmarshal schema %s: %w", url, err)
		}
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", url, err)
		}
	}

	parse, err := c.Compile(parseSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile parse schema: %w", err)
	}
	render, err := c.Compile(renderSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile render schema: %w", err)
	}

	return &JSONSchemaValidator{parseSchema: parse, renderSchema: render}, nil
}

// ValidateParse checks body against the parse request schema and decodes it.
func (v *JSONSchemaValidator) ValidateParse(body []byte) (*schema.ParseRequest, error) {
	if err := validateBody(v.parseSchema, body); err != nil {
		return nil, err
	}
	var req schema.ParseRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "malformed request body").WithCause(err)
	}
	return &req, nil
}

// ValidateRender checks body against the render request schema and decodes it.
// A missing format defaults to mermaid.
func (v *JSONSchemaValidator) ValidateRender(body []byte) (*schema.RenderRequest, error) {
	if err := validateBody(v.renderSchema, body); err != nil {
		return nil, err
	}
	var req schema.RenderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "malformed request body").WithCause(err)
	}
	if req.Format == "" {
		req.Format = schema.FormatMermaid
	}
	return &req, nil
}

func validateBody(s *jsonschema.Schema, body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return schema.NewError(schema.ErrCodeValidation, "request body is empty")
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "request body is not valid JSON").WithCause(err)
	}
	if err := s.Validate(doc); err != nil {
		return toCodeflowError(err)
	}
	return nil
}

// toCodeflowError converts a jsonschema.ValidationError into a CodeflowError
// listing every leaf violation.
func toCodeflowError(err error) *schema.CodeflowError {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}

	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
