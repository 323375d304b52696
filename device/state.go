// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package device

import "strings"

// NetworkType is the link a device reports in device-info
type NetworkType int

const (
	Wireless NetworkType = iota
	Ethernet
)

// ParseNetworkType maps "ethernet" (any case) to Ethernet and anything else
// to Wireless.
func ParseNetworkType(s string) NetworkType {
	if strings.EqualFold(strings.TrimSpace(s), "ETHERNET") {
		return Ethernet
	}
	return Wireless
}

func (n NetworkType) String() string {
	if n == Ethernet {
		return "ETHERNET"
	}
	return "WIRELESS"
}

// PowerState is the power mode observed on a device. The zero value is
// Unknown.
type PowerState int

const (
	Unknown PowerState = iota
	Off
	DisplayOff
	On
)

// ParsePowerState maps a power-mode value case-insensitively:
// OFF/POWEROFF to Off, DISPLAYOFF to DisplayOff, ON/POWERON to On and
// anything else (Ready, Suspended, ...) to Unknown.
func ParsePowerState(s string) PowerState {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OFF", "POWEROFF":
		return Off
	case "DISPLAYOFF":
		return DisplayOff
	case "ON", "POWERON":
		return On
	default:
		return Unknown
	}
}

func (p PowerState) String() string {
	switch p {
	case Off:
		return "Off"
	case DisplayOff:
		return "DisplayOff"
	case On:
		return "On"
	default:
		return "Unknown"
	}
}

// PowerCommand is a requested power transition. The zero value is TurnOn.
type PowerCommand int

const (
	TurnOn PowerCommand = iota
	TurnOff
	Toggle
)

// ParsePowerCommand maps "off" to TurnOff, "toggle" to Toggle and anything
// else to TurnOn, ignoring case.
func ParsePowerCommand(s string) PowerCommand {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OFF":
		return TurnOff
	case "TOGGLE":
		return Toggle
	default:
		return TurnOn
	}
}

func (c PowerCommand) String() string {
	switch c {
	case TurnOff:
		return "Off"
	case Toggle:
		return "Toggle"
	default:
		return "On"
	}
}
