// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package notifications

import (
	"time"

	"github.com/sony/gobreaker"

	"github.com/soothill/roku-ecp/pkg/logger"
)

const (
	breakerFailureThreshold = 3
	breakerOpenTimeout      = time.Minute
)

// newWebhookBreaker trips after breakerFailureThreshold consecutive
// delivery failures and lets one trial request through once
// breakerOpenTimeout has passed.
func newWebhookBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("notifier", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Notification circuit breaker changed state")
		},
	})
}
