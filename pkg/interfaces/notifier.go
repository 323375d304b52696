// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package interfaces

import (
	"context"
)

// Notifier delivers operator alerts from the watch application.
type Notifier interface {
	// SendAlert sends a notification with the given severity, title, and message
	SendAlert(ctx context.Context, severity, title, message string) error

	// SendPowerTransition reports that a device changed power state
	SendPowerTransition(ctx context.Context, deviceName, deviceIP, from, to string) error

	// SendDiscoveryFailure reports a discovery scan that could not run
	SendDiscoveryFailure(ctx context.Context, err error) error

	// IsEnabled returns true if the notifier is configured and enabled
	IsEnabled() bool
}
