package validation

import "github.com/rendis/codeflow/pkg/schema"

// Validator checks request envelopes before they reach the generator.
// Uses JSON Schema Draft 2020-12.
type Validator interface {
	ValidateParse(body []byte) (*schema.ParseRequest, error)
	ValidateRender(body []byte) (*schema.RenderRequest, error)
}
