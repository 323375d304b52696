// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

//go:build windows

package main

import (
	"github.com/soothill/roku-ecp/app"
	"github.com/soothill/roku-ecp/pkg/logger"
)

// setupDebugSignalHandlers does nothing on Windows, which has no SIGUSR1 or
// SIGUSR2.
func setupDebugSignalHandlers(_ *app.App) {
	logger.Debug().Msg("Debug signal handlers not available on Windows")
}
