// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package errors provides structured error types for the ECP client.
//
// Device-facing operations return these values unwrapped so that the text a
// caller sees is the plain carrier form: an HTTP status line such as
// "408 Request Timeout", or the fixed Wake-on-LAN failure message. Callers
// that want more than the text can inspect them with errors.As.
//
// # Example Usage
//
//	ok, err := dev.LaunchAppByID(ctx, 12)
//	if errors.IsTimeout(err) {
//	    // device is probably powered down
//	}
//
//	var se *errors.StatusError
//	if errors.As(err, &se) {
//	    log.Printf("device answered %d", se.Code)
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError carries an HTTP status code describing a failed ECP request.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
}

// NewStatusError creates a new status error.
func NewStatusError(code int) *StatusError {
	return &StatusError{Code: code}
}

// IsStatusError checks if an error is a StatusError.
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// IsTimeout reports whether err is a StatusError with code 408.
func IsTimeout(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusRequestTimeout
}

// ParseError represents a failure to interpret a device response.
type ParseError struct {
	Op    string // What was being parsed (e.g., "device-info", "apps", "mac")
	Field string // Offending field or tag (optional)
	Err   error  // Underlying error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parse %s (field=%s): %v", e.Op, e.Field, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("parse %s failed", e.Op)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new parse error.
func NewParseError(op string, field string, err error) *ParseError {
	return &ParseError{Op: op, Field: field, Err: err}
}

// IsParseError checks if an error is a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// DiscoveryError represents an error during device discovery operations.
type DiscoveryError struct {
	Op  string // Operation being performed (e.g., "bind", "send M-SEARCH")
	Err error  // Underlying error
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("discovery %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("discovery %s failed", e.Op)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// NewDiscoveryError creates a new discovery error.
func NewDiscoveryError(op string, err error) *DiscoveryError {
	return &DiscoveryError{Op: op, Err: err}
}

// IsDiscoveryError checks if an error is a DiscoveryError.
func IsDiscoveryError(err error) bool {
	var de *DiscoveryError
	return errors.As(err, &de)
}

// NetworkError represents a network-related error outside of HTTP.
type NetworkError struct {
	Op   string // Operation being performed (e.g., "wol send")
	Addr string // Network address (if applicable)
	Err  error  // Underlying error
}

func (e *NetworkError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("network %s (%s): %v", e.Op, e.Addr, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("network %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("network %s failed", e.Op)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new network error.
func NewNetworkError(op string, addr string, err error) *NetworkError {
	return &NetworkError{Op: op, Addr: addr, Err: err}
}

// IsNetworkError checks if an error is a NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field string // Configuration field that caused the error
	Value string // Invalid value (optional)
	Err   error  // Underlying error or description
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("config error in field %q (value=%q): %v", e.Field, e.Value, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("config error in field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config error in field %q", e.Field)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new configuration error.
func NewConfigError(field string, value string, err error) *ConfigError {
	return &ConfigError{Field: field, Value: value, Err: err}
}

// IsConfigError checks if an error is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// NotificationError represents an error sending notifications.
type NotificationError struct {
	Type string // Notification type (e.g., "slack")
	Err  error  // Underlying error
}

func (e *NotificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("notification %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("notification %s failed", e.Type)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// NewNotificationError creates a new notification error.
func NewNotificationError(notifType string, err error) *NotificationError {
	return &NotificationError{Type: notifType, Err: err}
}

// IsNotificationError checks if an error is a NotificationError.
func IsNotificationError(err error) bool {
	var ne *NotificationError
	return errors.As(err, &ne)
}

// Sentinel errors for common conditions
var (
	// ErrWakeOnLAN is returned when a magic packet could not be emitted.
	// The text is part of the public contract.
	ErrWakeOnLAN = errors.New("Unable to send Wake-on-LAN")

	// ErrMissingField indicates a required device-info field was absent
	ErrMissingField = errors.New("required field missing")

	// ErrInvalidMAC indicates a MAC address string could not be parsed
	ErrInvalidMAC = errors.New("invalid MAC address")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
