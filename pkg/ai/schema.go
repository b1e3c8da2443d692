package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema validates untrusted completions against a compiled JSON schema before decoding them.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

// CompileSchema compiles the JSON schema document registered under name.
func CompileSchema(name, document string) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(document)); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", name, err)
	}

	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}

	return &Schema{name: name, compiled: compiled}, nil
}

// MustCompileSchema is like CompileSchema but panics on an invalid schema document.
func MustCompileSchema(name, document string) *Schema {
	schema, err := CompileSchema(name, document)
	if err != nil {
		panic(err)
	}
	return schema
}

// Decode locates the JSON object inside text, validates it and unmarshals it into target.
// Every failure wraps ErrInferenceMalformed.
func (s *Schema) Decode(text string, target interface{}) error {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return fmt.Errorf("%w: no json object found", ErrInferenceMalformed)
	}

	var document interface{}
	if err := json.Unmarshal([]byte(raw), &document); err != nil {
		return fmt.Errorf("%w: parse json: %v", ErrInferenceMalformed, err)
	}

	if err := s.compiled.Validate(document); err != nil {
		return fmt.Errorf("%w: schema %s: %v", ErrInferenceMalformed, s.name, err)
	}

	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrInferenceMalformed, s.name, err)
	}

	return nil
}
