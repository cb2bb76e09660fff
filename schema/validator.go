// Package schema implements SchemaValidator, SchemaFormatter, and JsonRepair:
// validating objects against a structured-schema description, formatting a
// caller-facing schema into the strict "no extra keys at every level" shape
// the library requires, and repairing slightly-malformed JSON emitted by a
// model.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	js "github.com/santhosh-tekuri/jsonschema/v6"

	"goa.design/llmcore/model"
)

// Validator compiles and caches structured-schema descriptions and validates
// arbitrary JSON-decoded values against them.
type Validator struct {
	compiler *js.Compiler
}

// NewValidator constructs a Validator with a fresh santhosh-tekuri/jsonschema
// compiler.
func NewValidator() *Validator {
	return &Validator{compiler: js.NewCompiler()}
}

// Compile compiles a raw schema (a map[string]any or *model.JSONSchema.Schema)
// after running it through Strict, which injects "additionalProperties: false"
// at every object level.
func (v *Validator) Compile(name string, rawSchema any) (*js.Schema, error) {
	strict := Strict(rawSchema)
	b, err := json.Marshal(strict)
	if err != nil {
		return nil, fmt.Errorf("schema: marshal %q: %w", name, err)
	}
	url := "mem://" + name
	doc, err := js.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("schema: decode %q: %w", name, err)
	}
	if err := v.compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("schema: add resource %q: %w", name, err)
	}
	sch, err := v.compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema: compile %q: %w", name, err)
	}
	return sch, nil
}

// Validate checks value against the compiled schema, returning the library's
// ValidationError list (empty on success).
func Validate(sch *js.Schema, value any) []model.ValidationError {
	if err := sch.Validate(value); err != nil {
		return flattenValidationError(err)
	}
	return nil
}

func flattenValidationError(err error) []model.ValidationError {
	ve, ok := err.(*js.ValidationError)
	if !ok {
		return []model.ValidationError{{Message: err.Error()}}
	}
	var out []model.ValidationError
	var walk func(*js.ValidationError)
	walk = func(e *js.ValidationError) {
		path := make([]string, 0, len(e.InstanceLocation))
		path = append(path, e.InstanceLocation...)
		if len(e.Causes) == 0 {
			out = append(out, model.ValidationError{Path: path, Message: e.Error()})
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return out
}
