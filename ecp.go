// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package ecp is the entry point for controlling media players that speak
// the External Control Protocol on TCP port 8060.
//
// The types here are aliases of the ones in the device and remote packages,
// so values move freely between this package and those. Most programs only
// need Discover or FromIPv4:
//
//	devices, err := ecp.Discover(ctx, 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	for _, d := range devices {
//	    _, _ = d.SendPowerCommand(ctx, ecp.TurnOn)
//	}
package ecp

import (
	"context"
	"time"

	"github.com/soothill/roku-ecp/device"
	"github.com/soothill/roku-ecp/discovery"
	"github.com/soothill/roku-ecp/remote"
)

type (
	Device       = device.Device
	App          = device.App
	Button       = remote.Button
	PowerState   = device.PowerState
	PowerCommand = device.PowerCommand
	NetworkType  = device.NetworkType
)

const (
	Unknown    = device.Unknown
	Off        = device.Off
	DisplayOff = device.DisplayOff
	On         = device.On

	TurnOn  = device.TurnOn
	TurnOff = device.TurnOff
	Toggle  = device.Toggle

	Wireless = device.Wireless
	Ethernet = device.Ethernet
)

// Port is the ECP port of real devices
const Port = device.DefaultPort

// Discover runs one SSDP scan on the local link, collecting replies for
// timeout, and returns every device that answered. Devices whose
// device-info could not be read are included with only IPv4 and Port set.
func Discover(ctx context.Context, timeout time.Duration) ([]*Device, error) {
	return discovery.NewScanner().Discover(ctx, timeout)
}

// FromIPv4 returns a device at ipv4:port without contacting it. A port of
// zero or less means Port. Call UpdateSelf to fill in the name and MACs.
func FromIPv4(ipv4 string, port int) *Device {
	return device.FromIPv4(ipv4, port)
}

// ParseButton maps a key name to a Button, ignoring case. Unknown names
// become PowerOn.
func ParseButton(s string) Button {
	return remote.ParseButton(s)
}
