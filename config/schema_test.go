// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package config

import (
	"encoding/json"
	"testing"

	"github.com/soothill/roku-ecp/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateWithSchema_ValidYAML(t *testing.T) {
	path := writeConfig(t, `
discovery:
  timeout: 5s
  interval: 5m
  mdns_service: _roku._tcp
  mdns_domain: local.
monitor:
  poll_interval: 30s
remote:
  keypress_interval: 0s
metrics:
  address: localhost:9090
notifications:
  slack_webhook_url: https://hooks.slack.com/services/TEST/WEBHOOK/URL
logging:
  level: info
`)
	assert.NoError(t, ValidateWithSchema(path))
}

func TestValidateWithSchema_ValidJSON(t *testing.T) {
	path := writeConfig(t, `{"discovery": {"timeout": "1.5s"}, "logging": {"level": "debug"}}`)
	assert.NoError(t, ValidateWithSchema(path))
}

func TestValidateWithSchema_EmptyFile(t *testing.T) {
	assert.NoError(t, ValidateWithSchema(writeConfig(t, "")))
}

func TestValidateWithSchema_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown top-level key": "database:\n  url: http://localhost:5432\n",
		"misspelt key":          "discovery:\n  timout: 5s\n",
		"numeric duration":      "discovery:\n  timeout: 5\n",
		"bad duration":          "monitor:\n  poll_interval: often\n",
		"bad log level":         "logging:\n  level: verbose\n",
		"http webhook":          "notifications:\n  slack_webhook_url: http://example.com/hook\n",
		"empty metrics address": "metrics:\n  address: \"\"\n",
		"section is not a map":  "remote: fast\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			err := ValidateWithSchema(writeConfig(t, content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
		})
	}
}

func TestValidateWithSchema_MissingFile(t *testing.T) {
	err := ValidateWithSchema("/nonexistent/ecpctl.yaml")
	require.Error(t, err)
	assert.False(t, errors.IsConfigError(err))
}

func TestValidateWithSchema_MalformedYAML(t *testing.T) {
	assert.Error(t, ValidateWithSchema(writeConfig(t, "logging: [oops\n")))
}

func TestGetSchemaJSON(t *testing.T) {
	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(GetSchemaJSON()), &schema))

	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok)
	for _, section := range []string{"discovery", "monitor", "remote", "metrics", "notifications", "logging"} {
		assert.Contains(t, props, section)
	}
}
