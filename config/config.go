// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package config provides configuration management for ecpctl.
//
// Settings are layered: YAML file, then ECP_* environment overrides, then
// defaults for anything still unset. The result is validated before use.
// The library packages never read configuration; only the CLI and the watch
// application do.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/soothill/roku-ecp/pkg/errors"
	"github.com/soothill/roku-ecp/pkg/logger"
	"github.com/soothill/roku-ecp/pkg/util"
)

// Config represents the application configuration
type Config struct {
	Discovery     DiscoveryConfig     `yaml:"discovery"`
	Monitor       MonitorConfig       `yaml:"monitor"`
	Remote        RemoteConfig        `yaml:"remote"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// DiscoveryConfig holds SSDP and mDNS discovery settings
type DiscoveryConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
	MDNSService string        `yaml:"mdns_service" validate:"omitempty,startswith=_"`
	MDNSDomain  string        `yaml:"mdns_domain" validate:"omitempty,endswith=."`
}

// MonitorConfig holds power polling settings
type MonitorConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// RemoteConfig holds keypress settings
type RemoteConfig struct {
	// KeypressInterval is the minimum gap between presses of a sequence; 0 disables pacing
	KeypressInterval time.Duration `yaml:"keypress_interval"`
}

// MetricsConfig holds the watch HTTP server settings
type MetricsConfig struct {
	Address string `yaml:"address" validate:"required,hostname_port"`
}

// NotificationsConfig holds alerting settings
type NotificationsConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url" validate:"omitempty,url,startswith=https://"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
}

var validate = newValidator()

// newValidator reports fields by their YAML names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Default returns a validated configuration built from defaults and the
// environment alone.
func Default() (*Config, error) {
	var cfg Config
	cfg.applyEnvironmentOverrides()
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Load reads configuration from a YAML file and applies environment variable overrides
func Load(path string) (*Config, error) {
	data, err := util.ReadFileSafely(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads path, or falls back to Default when path is empty
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

// applyEnvironmentOverrides applies environment variable overrides to the configuration
func (c *Config) applyEnvironmentOverrides() {
	if level := os.Getenv("ECP_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if addr := os.Getenv("ECP_METRICS_ADDRESS"); addr != "" {
		c.Metrics.Address = addr
	}
	if url := os.Getenv("SLACK_WEBHOOK_URL"); url != "" {
		c.Notifications.SlackWebhookURL = url
	}
	durationOverride("ECP_DISCOVERY_TIMEOUT", &c.Discovery.Timeout)
	durationOverride("ECP_DISCOVERY_INTERVAL", &c.Discovery.Interval)
	durationOverride("ECP_POLL_INTERVAL", &c.Monitor.PollInterval)
}

func durationOverride(name string, target *time.Duration) {
	value := os.Getenv(name)
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn().Err(err).Str("variable", name).Str("value", value).
			Msg("Ignoring unparseable duration override")
		return
	}
	*target = d
}

// setDefaults sets default values for configuration fields if not provided
func (c *Config) setDefaults() {
	if c.Discovery.Timeout == 0 {
		c.Discovery.Timeout = 5 * time.Second
	}
	if c.Discovery.Interval == 0 {
		c.Discovery.Interval = 5 * time.Minute
	}
	if c.Discovery.MDNSService != "" && c.Discovery.MDNSDomain == "" {
		c.Discovery.MDNSDomain = "local."
	}
	if c.Monitor.PollInterval == 0 {
		c.Monitor.PollInterval = 30 * time.Second
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = "localhost:9090"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.validateTags(); err != nil {
		return err
	}
	if err := c.validateDiscovery(); err != nil {
		return err
	}
	if err := c.validateMonitor(); err != nil {
		return err
	}
	return c.validateRemote()
}

// validateTags runs the struct-tag rules and reports the first violation
func (c *Config) validateTags() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errors.NewConfigError(fieldName(fe.Namespace()), fmt.Sprint(fe.Value()),
			fmt.Errorf("%w: failed %q rule", errors.ErrInvalidConfig, fe.Tag()))
	}
	return errors.NewConfigError("", "", fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err))
}

// fieldName turns "Config.metrics.address" into "metrics.address"
func fieldName(namespace string) string {
	_, field, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return field
}

func invalid(field string, value time.Duration, reason string) error {
	return errors.NewConfigError(field, value.String(), fmt.Errorf("%w: %s", errors.ErrInvalidConfig, reason))
}

// validateDiscovery validates the discovery configuration
func (c *Config) validateDiscovery() error {
	if c.Discovery.Timeout < time.Second {
		return invalid("discovery.timeout", c.Discovery.Timeout, "must be at least 1 second")
	}
	if c.Discovery.Timeout > time.Minute {
		return invalid("discovery.timeout", c.Discovery.Timeout, "must not exceed 1 minute")
	}
	if c.Discovery.Interval < c.Discovery.Timeout {
		return invalid("discovery.interval", c.Discovery.Interval, "must be at least discovery.timeout")
	}
	if c.Discovery.Interval > 24*time.Hour {
		return invalid("discovery.interval", c.Discovery.Interval, "must not exceed 24 hours")
	}
	return nil
}

// validateMonitor validates the polling configuration
func (c *Config) validateMonitor() error {
	if c.Monitor.PollInterval < time.Second {
		return invalid("monitor.poll_interval", c.Monitor.PollInterval, "must be at least 1 second")
	}
	if c.Monitor.PollInterval > time.Hour {
		return invalid("monitor.poll_interval", c.Monitor.PollInterval, "must not exceed 1 hour")
	}
	return nil
}

// validateRemote validates the keypress configuration
func (c *Config) validateRemote() error {
	if c.Remote.KeypressInterval < 0 {
		return invalid("remote.keypress_interval", c.Remote.KeypressInterval, "must not be negative")
	}
	if c.Remote.KeypressInterval > 10*time.Second {
		return invalid("remote.keypress_interval", c.Remote.KeypressInterval, "must not exceed 10 seconds")
	}
	return nil
}
