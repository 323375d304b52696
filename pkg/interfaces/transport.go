// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package interfaces defines abstract interfaces for core system components.
// Devices and the discovery engine depend on these rather than on concrete
// network code, so tests can substitute fakes that record every call.
package interfaces

import (
	"context"
	"time"

	"github.com/soothill/roku-ecp/wol"
)

// Transport issues ECP HTTP requests. host is "ipv4" (port 8060 implied) or
// "ipv4:port". Failures are *errors.StatusError values.
type Transport interface {
	// Get fetches an endpoint; a timeout is reported as 408
	Get(ctx context.Context, host, endpoint string, timeout time.Duration) (string, error)

	// Post posts body to an endpoint
	Post(ctx context.Context, host, endpoint, body string, timeout time.Duration) (string, error)

	// WakingPost posts without a body, waking mac and retrying once on timeout
	WakingPost(ctx context.Context, host string, mac wol.MAC, endpoint string, timeout time.Duration) (string, error)
}

// Waker emits Wake-on-LAN magic packets.
type Waker interface {
	// Wake sends one magic packet for mac
	Wake(ctx context.Context, mac wol.MAC) error
}
