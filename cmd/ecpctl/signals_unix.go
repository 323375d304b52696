// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/soothill/roku-ecp/app"
)

// setupDebugSignalHandlers installs the watch debug signals.
// SIGUSR1 dumps the known devices and their last power state, SIGUSR2 dumps
// goroutine stacks.
//
// Usage:
//
//	kill -USR1 <pid>
//	kill -USR2 <pid>
func setupDebugSignalHandlers(application *app.App) {
	debugSigChan := make(chan os.Signal, 2)
	signal.Notify(debugSigChan, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		for sig := range debugSigChan {
			switch sig {
			case syscall.SIGUSR1:
				application.DumpApplicationState()
			case syscall.SIGUSR2:
				app.DumpGoroutineStackTraces()
			}
		}
	}()
}
