// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/soothill/roku-ecp/pkg/errors"
	"github.com/soothill/roku-ecp/pkg/util"
)

//go:embed schema.json
var schemaJSON []byte

// ValidateWithSchema checks the raw file at configPath against the embedded
// JSON schema. Unlike Load it sees the file before defaults are applied,
// so it catches misspelt keys and wrongly typed values.
//
// Example usage:
//
//	if err := config.ValidateWithSchema("ecpctl.yaml"); err != nil {
//	    log.Fatal(err)
//	}
func ValidateWithSchema(configPath string) error {
	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)

	configData, err := util.ReadFileSafely(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	// YAML is a superset of JSON, so both formats decode here
	var configObj interface{}
	if err := yaml.Unmarshal(configData, &configObj); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if configObj == nil {
		configObj = map[string]interface{}{}
	}

	configJSON, err := json.Marshal(configObj)
	if err != nil {
		return fmt.Errorf("failed to convert config to JSON: %w", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(configJSON))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		return formatValidationErrors(result.Errors())
	}
	return nil
}

// formatValidationErrors lists every schema violation in one ConfigError
func formatValidationErrors(results []gojsonschema.ResultError) error {
	if len(results) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("schema violations:")
	for i, r := range results {
		fmt.Fprintf(&b, "\n  %d. %s: %s", i+1, r.Field(), r.Description())
	}

	return errors.NewConfigError(results[0].Field(), "", fmt.Errorf("%w: %s", errors.ErrInvalidConfig, b.String()))
}

// GetSchemaJSON returns the embedded JSON schema
func GetSchemaJSON() string {
	return string(schemaJSON)
}
