// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package device

import (
	"context"

	"github.com/soothill/roku-ecp/ecpxml"
	"github.com/soothill/roku-ecp/pkg/errors"
	"github.com/soothill/roku-ecp/pkg/logger"
	"github.com/soothill/roku-ecp/remote"
)

// GetPowerState reads power-mode from device-info. A device that does not
// answer in time is taken to be Off; every other failure is Unknown.
func (d *Device) GetPowerState(ctx context.Context) PowerState {
	body, err := d.transport.Get(ctx, d.Host(), "query/device-info", QueryTimeout)
	if err != nil {
		if errors.IsTimeout(err) {
			return Off
		}
		return Unknown
	}

	mode, found, err := ecpxml.Text(body, fieldPowerMode)
	if err != nil || !found {
		return Unknown
	}
	return ParsePowerState(mode)
}

// SendPowerCommand reads the current power state and performs the keypress
// or Wake-on-LAN needed to carry out cmd. Commands that are already
// satisfied succeed without further requests. The result reflects the
// attempt, not the state the device ends up in.
func (d *Device) SendPowerCommand(ctx context.Context, cmd PowerCommand) (bool, error) {
	current := d.GetPowerState(ctx)

	logger.Debug().
		Str("device_ip", d.IPv4).
		Str("command", cmd.String()).
		Str("state", current.String()).
		Msg("Power command")

	switch cmd {
	case TurnOff:
		if current == On {
			return d.press(ctx, remote.PowerOff)
		}
		return true, nil
	case Toggle:
		switch current {
		case On:
			return d.press(ctx, remote.PowerOff)
		case DisplayOff:
			return d.press(ctx, remote.PowerOn)
		default:
			return d.wake(ctx)
		}
	default:
		switch current {
		case On:
			return true, nil
		case DisplayOff:
			return d.press(ctx, remote.PowerOn)
		default:
			return d.wake(ctx)
		}
	}
}

func (d *Device) press(ctx context.Context, b remote.Button) (bool, error) {
	if _, err := d.transport.Post(ctx, d.Host(), remote.KeypressEndpoint(b), "", KeypressTimeout); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Device) wake(ctx context.Context) (bool, error) {
	if err := d.waker.Wake(ctx, d.WakeMAC()); err != nil {
		logger.Debug().Err(err).Str("device_ip", d.IPv4).Msg("Wake-on-LAN failed")
		return false, errors.ErrWakeOnLAN
	}
	return true, nil
}
