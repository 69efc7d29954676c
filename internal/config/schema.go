package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var schemaSource string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func configSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString("config.schema.json", schemaSource)
	})
	return compiledSchema, schemaErr
}

// validateDocument checks a raw configuration document against the embedded
// schema. YAML documents are normalised through JSON so the validator sees the
// same value shapes for both formats.
func validateDocument(data []byte, isJSON bool) error {
	schema, err := configSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	raw := data
	if !isJSON {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse yaml: %w", err)
		}
		if doc == nil {
			return nil
		}
		raw, err = json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("normalise yaml: %w", err)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	return schema.Validate(value)
}
