// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package monitoring polls the power state of known devices and publishes
// what it observes. Each device is read on its own goroutine; reads of
// different devices are independent and never wait on one another.
package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/soothill/roku-ecp/device"
	"github.com/soothill/roku-ecp/pkg/logger"
	"github.com/soothill/roku-ecp/pkg/metrics"
)

const readingsChannelSize = 100

// StateReading is one observed power state
type StateReading struct {
	DeviceIP   string
	DeviceName string
	Timestamp  time.Time
	State      device.PowerState
	Previous   device.PowerState
	Changed    bool // State differs from the previous reading of this device
}

// DeviceLookup resolves the current record for a device, so that renames
// picked up by a later discovery scan show in readings.
type DeviceLookup interface {
	GetDeviceByIP(ipv4 string) *device.Device
}

type pollEntry struct {
	cancel context.CancelFunc
}

// PowerPoller handles power-state polling
type PowerPoller struct {
	pollInterval     time.Duration
	readings         chan *StateReading
	monitoredDevices map[string]*pollEntry
	lastState        map[string]device.PowerState
	deviceMutex      sync.RWMutex
	wg               sync.WaitGroup
	stopped          bool
	lookup           DeviceLookup
}

// NewPowerPoller creates a poller. lookup may be nil.
func NewPowerPoller(pollInterval time.Duration, lookup DeviceLookup) *PowerPoller {
	return &PowerPoller{
		pollInterval:     pollInterval,
		readings:         make(chan *StateReading, readingsChannelSize),
		monitoredDevices: make(map[string]*pollEntry),
		lastState:        make(map[string]device.PowerState),
		lookup:           lookup,
	}
}

// Start begins polling the given devices
func (p *PowerPoller) Start(ctx context.Context, devices []*device.Device) {
	logger.Info().Msgf("Starting power polling for %d devices", len(devices))

	for _, d := range devices {
		p.StartMonitoringDevice(ctx, d)
	}
}

// StartMonitoringDevice starts polling d unless it is already polled.
// The first read happens immediately.
func (p *PowerPoller) StartMonitoringDevice(ctx context.Context, d *device.Device) bool {
	p.deviceMutex.Lock()
	defer p.deviceMutex.Unlock()

	if p.stopped {
		return false
	}
	if _, exists := p.monitoredDevices[d.IPv4]; exists {
		logger.Debug().Str("device_ip", d.IPv4).Str("device_name", d.Name).
			Msg("Device already being polled, skipping")
		return false
	}

	deviceCtx, cancel := context.WithCancel(ctx)
	entry := &pollEntry{cancel: cancel}
	p.monitoredDevices[d.IPv4] = entry
	metrics.DevicesMonitored.Set(float64(len(p.monitoredDevices)))

	logger.Info().Str("device_ip", d.IPv4).Str("device_name", d.Name).
		Msg("Starting power polling for device")

	p.wg.Add(1)
	go p.pollDevice(deviceCtx, d, entry)
	return true
}

// StopMonitoringDevice stops polling the device at ipv4
func (p *PowerPoller) StopMonitoringDevice(ipv4 string) {
	p.deviceMutex.Lock()
	defer p.deviceMutex.Unlock()

	if entry, exists := p.monitoredDevices[ipv4]; exists {
		entry.cancel()
		delete(p.monitoredDevices, ipv4)
		metrics.DevicesMonitored.Set(float64(len(p.monitoredDevices)))
		logger.Info().Str("device_ip", ipv4).Msg("Stopped power polling")
	}
}

// IsMonitoring reports whether the device at ipv4 is being polled
func (p *PowerPoller) IsMonitoring(ipv4 string) bool {
	p.deviceMutex.RLock()
	defer p.deviceMutex.RUnlock()
	_, exists := p.monitoredDevices[ipv4]
	return exists
}

// GetMonitoredDeviceCount returns the number of devices being polled
func (p *PowerPoller) GetMonitoredDeviceCount() int {
	p.deviceMutex.RLock()
	defer p.deviceMutex.RUnlock()
	return len(p.monitoredDevices)
}

// LastState returns the most recent state read for ipv4
func (p *PowerPoller) LastState(ipv4 string) (device.PowerState, bool) {
	p.deviceMutex.RLock()
	defer p.deviceMutex.RUnlock()
	state, ok := p.lastState[ipv4]
	return state, ok
}

// UpdatePollInterval changes the interval; running pollers pick it up after
// their next read.
func (p *PowerPoller) UpdatePollInterval(interval time.Duration) {
	p.deviceMutex.Lock()
	defer p.deviceMutex.Unlock()
	if interval > 0 {
		p.pollInterval = interval
	}
}

func (p *PowerPoller) interval() time.Duration {
	p.deviceMutex.RLock()
	defer p.deviceMutex.RUnlock()
	return p.pollInterval
}

// pollDevice reads d until ctx is cancelled
func (p *PowerPoller) pollDevice(ctx context.Context, d *device.Device, entry *pollEntry) {
	defer p.wg.Done()

	current := p.interval()
	ticker := time.NewTicker(current)
	defer ticker.Stop()

	defer func() {
		p.deviceMutex.Lock()
		if p.monitoredDevices[d.IPv4] == entry {
			delete(p.monitoredDevices, d.IPv4)
			metrics.DevicesMonitored.Set(float64(len(p.monitoredDevices)))
		}
		p.deviceMutex.Unlock()
		logger.Debug().Str("device_ip", d.IPv4).Msg("Power polling goroutine exited")
	}()

	for {
		p.read(ctx, d)

		if next := p.interval(); next != current {
			current = next
			ticker.Reset(current)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// read performs one poll and publishes the result
func (p *PowerPoller) read(ctx context.Context, d *device.Device) {
	if ctx.Err() != nil {
		return
	}

	state := d.GetPowerState(ctx)
	if ctx.Err() != nil {
		// Cancelled mid-read; the result says nothing about the device
		return
	}
	metrics.PowerStateReadsTotal.Inc()

	name := d.Name
	if p.lookup != nil {
		if current := p.lookup.GetDeviceByIP(d.IPv4); current != nil && current.Name != "" {
			name = current.Name
		}
	}

	p.deviceMutex.Lock()
	previous, seen := p.lastState[d.IPv4]
	p.lastState[d.IPv4] = state
	p.deviceMutex.Unlock()

	reading := &StateReading{
		DeviceIP:   d.IPv4,
		DeviceName: name,
		Timestamp:  time.Now(),
		State:      state,
		Previous:   previous,
		Changed:    seen && previous != state,
	}

	metrics.DevicePowerState.WithLabelValues(d.IPv4, name).Set(float64(state))
	if reading.Changed {
		metrics.PowerTransitionsTotal.WithLabelValues(d.IPv4, state.String()).Inc()
		logger.Info().
			Str("device_ip", d.IPv4).
			Str("device_name", name).
			Str("from", previous.String()).
			Str("to", state.String()).
			Msg("Power state changed")
	}

	select {
	case p.readings <- reading:
	default:
		logger.Warn().Str("device_ip", d.IPv4).Str("device_name", name).
			Msg("Readings channel full, dropping reading")
	}
}

// Readings returns the channel of observed states
func (p *PowerPoller) Readings() <-chan *StateReading {
	return p.readings
}

// Stop stops all polling and closes the readings channel
func (p *PowerPoller) Stop() {
	p.deviceMutex.Lock()
	if p.stopped {
		p.deviceMutex.Unlock()
		return
	}
	p.stopped = true

	for ipv4, entry := range p.monitoredDevices {
		logger.Debug().Str("device_ip", ipv4).Msg("Stopping power polling")
		entry.cancel()
	}
	p.deviceMutex.Unlock()

	p.wg.Wait()

	close(p.readings)
	metrics.DevicesMonitored.Set(0)
	logger.Info().Msg("Power poller stopped, readings channel closed")
}
