// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package device

import (
	"context"

	"github.com/soothill/roku-ecp/remote"
)

// The keypress operations below only work while the device is powered on.
// Use SendPowerCommand(ctx, Toggle) rather than pressing PowerOn or PowerOff.

// PressButton presses one named button
func (d *Device) PressButton(ctx context.Context, b remote.Button) error {
	_, err := d.transport.Post(ctx, d.Host(), remote.KeypressEndpoint(b), "", KeypressTimeout)
	return err
}

// PressButtons presses each button in order and stops at the first failure.
func (d *Device) PressButtons(ctx context.Context, buttons ...remote.Button) error {
	for _, b := range buttons {
		if err := d.pace(ctx); err != nil {
			return err
		}
		if err := d.PressButton(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// PressKey types a single character
func (d *Device) PressKey(ctx context.Context, r rune) error {
	_, err := d.transport.Post(ctx, d.Host(), remote.LiteralEndpoint(r), "", KeypressTimeout)
	return err
}

// PressKeys types s one character at a time and stops at the first failure.
func (d *Device) PressKeys(ctx context.Context, s string) error {
	for _, r := range s {
		if err := d.pace(ctx); err != nil {
			return err
		}
		if err := d.PressKey(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// FindRemote makes a supported remote play a sound
func (d *Device) FindRemote(ctx context.Context) error {
	return d.PressButton(ctx, remote.FindRemote)
}

func (d *Device) pace(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	return d.limiter.Wait(ctx)
}
