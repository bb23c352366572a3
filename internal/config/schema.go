package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "envrun://config.schema.json"

const schemaSource = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "project_path": {"type": "string"},
    "test_path": {"type": "string"},
    "include": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "paths_to_ignore": {"type": "array", "items": {"type": "string"}},
    "isolate": {"type": "boolean"},
    "environment": {"type": "string", "pattern": "^[A-Za-z0-9_-]*$"},
    "environment_options": {"type": "object"},
    "browser": {"type": "boolean"},
    "keep_modules": {"type": "array", "items": {"type": "string"}},
    "environments": {
      "type": "object",
      "propertyNames": {"pattern": "^[A-Za-z0-9_-]+$"},
      "additionalProperties": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "setup": {"$ref": "#/definitions/command"},
          "teardown": {"$ref": "#/definitions/command"}
        }
      }
    },
    "database": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {"type": "boolean"},
        "host": {"type": "string"},
        "port": {"type": ["string", "integer"]},
        "user": {"type": "string"},
        "prefix": {"type": "string", "pattern": "^[A-Za-z0-9_]+$"}
      }
    },
    "command": {"$ref": "#/definitions/command"},
    "dotenv": {"type": "string"},
    "output_file": {"type": "string", "minLength": 1},
    "output_dir": {"type": "string", "minLength": 1},
    "log_level": {"enum": ["DEBUG", "INFO", "WARN", "ERROR", "debug", "info", "warn", "error"]}
  },
  "definitions": {
    "command": {"type": "array", "minItems": 1, "items": {"type": "string"}}
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Validate checks a decoded config document against the config schema.
func Validate(doc map[string]any) error {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString(schemaURL, schemaSource)
	})
	if schemaErr != nil {
		return fmt.Errorf("compile config schema: %w", schemaErr)
	}

	// The validator expects plain JSON values
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
