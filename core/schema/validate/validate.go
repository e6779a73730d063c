package validate

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schemas/v1/*.schema.json
var schemaFiles embed.FS

const (
	configSchemaPath = "schemas/v1/config.schema.json"
	eventSchemaPath  = "schemas/v1/event.schema.json"
)

var (
	configSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
		return loadSchema(configSchemaPath)
	})
	eventSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
		return loadSchema(eventSchemaPath)
	})
)

// ValidateConfigDocument checks config.json content. Unknown keys are allowed.
func ValidateConfigDocument(data []byte) error {
	schema, err := configSchema()
	if err != nil {
		return err
	}
	return validateJSON(schema, data)
}

// ValidateEventLine checks one line of the event log.
func ValidateEventLine(data []byte) error {
	schema, err := eventSchema()
	if err != nil {
		return err
	}
	return validateJSON(schema, data)
}

// ValidateEventLog checks every non-blank line of an event log.
func ValidateEventLog(data []byte) error {
	schema, err := eventSchema()
	if err != nil {
		return err
	}
	return validateJSONL(schema, data)
}

func loadSchema(schemaPath string) (*jsonschema.Schema, error) {
	data, err := schemaFiles.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile(data)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validateJSON(schema *jsonschema.Schema, data []byte) error {
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("schema validation failed: %v", result.Errors)
}

func validateJSONL(schema *jsonschema.Schema, data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		if err := validateJSON(schema, b); err != nil {
			return fmt.Errorf("jsonl line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read jsonl: %w", err)
	}
	return nil
}
