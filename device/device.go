// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package device models a single ECP-capable streaming device and the
// operations that can be performed against it.
//
// A Device is a plain value identified by its IPv4 address. Discovery or
// FromIPv4 creates one; UpdateSelf fills in the name, network type and MAC
// addresses reported by query/device-info. Those MACs are what the power
// and launch operations use to wake a device that is switched off.
//
// # Thread Safety
//
// A single Device must not be used from several goroutines while UpdateSelf
// runs. Distinct Devices may be used concurrently.
//
// # Example Usage
//
//	dev := device.FromIPv4("192.168.1.50", device.DefaultPort)
//	if err := dev.UpdateSelf(ctx); err != nil {
//	    return err
//	}
//
//	if _, err := dev.SendPowerCommand(ctx, device.Toggle); err != nil {
//	    return err
//	}
package device

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/soothill/roku-ecp/client"
	"github.com/soothill/roku-ecp/ecpxml"
	"github.com/soothill/roku-ecp/pkg/errors"
	"github.com/soothill/roku-ecp/pkg/interfaces"
	"github.com/soothill/roku-ecp/pkg/logger"
	"github.com/soothill/roku-ecp/wol"
)

// DefaultPort is the ECP port of real devices
const DefaultPort = client.DefaultPort

// Request timeouts
const (
	QueryTimeout    = 3 * time.Second
	KeypressTimeout = 5 * time.Second
)

// device-info fields read by UpdateSelf
const (
	fieldName             = "friendly-device-name"
	fieldNetworkType      = "network-type"
	fieldWifiMAC          = "wifi-mac"
	fieldSupportsEthernet = "supports-ethernet"
	fieldEthernetMAC      = "ethernet-mac"
	fieldPowerMode        = "power-mode"
)

// Device is one ECP endpoint on the local network
type Device struct {
	IPv4    string
	Port    int
	Name    string
	Network NetworkType
	MACWLAN wol.MAC
	MACEth  wol.MAC

	transport interfaces.Transport
	waker     interfaces.Waker
	limiter   *rate.Limiter
}

// Option configures a Device
type Option func(*Device)

// WithTransport sets the HTTP transport used for ECP requests
func WithTransport(t interfaces.Transport) Option {
	return func(d *Device) {
		d.transport = t
	}
}

// WithWaker sets the Wake-on-LAN sender used by SendPowerCommand
func WithWaker(w interfaces.Waker) Option {
	return func(d *Device) {
		d.waker = w
	}
}

// WithKeypressLimiter paces PressButtons and PressKeys: each press waits for
// the limiter before it is sent. A nil limiter disables pacing.
func WithKeypressLimiter(l *rate.Limiter) Option {
	return func(d *Device) {
		d.limiter = l
	}
}

// New creates an empty device using the shared transport
func New(opts ...Option) *Device {
	d := &Device{
		Port:      DefaultPort,
		transport: client.Default(),
		waker:     wol.NewSender(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FromIPv4 creates a device at ipv4:port. Nothing is fetched until
// UpdateSelf or another operation is called.
func FromIPv4(ipv4 string, port int, opts ...Option) *Device {
	d := New(opts...)
	d.IPv4 = ipv4
	if port > 0 {
		d.Port = port
	}
	return d
}

// Host returns the ipv4:port the device is reached at
func (d *Device) Host() string {
	return net.JoinHostPort(d.IPv4, strconv.Itoa(d.Port))
}

// WakeMAC returns the MAC used for Wake-on-LAN: the Ethernet address on
// wired devices, the wireless address otherwise.
func (d *Device) WakeMAC() wol.MAC {
	if d.Network == Ethernet {
		return d.MACEth
	}
	return d.MACWLAN
}

func (d *Device) String() string {
	if d.Name != "" {
		return d.Name + " (" + d.IPv4 + ")"
	}
	return d.IPv4
}

// GetInfo fetches query/device-info as a flat tag → text map
func (d *Device) GetInfo(ctx context.Context) (map[string]string, error) {
	body, err := d.transport.Get(ctx, d.Host(), "query/device-info", QueryTimeout)
	if err != nil {
		return nil, err
	}
	return ecpxml.DeviceInfo(body)
}

// UpdateSelf refreshes Name, Network and the MAC addresses from device-info.
//
// When the fetch fails the device is left untouched. When a required field
// is missing or a MAC does not parse, fields are filled in order up to that
// point and the ParseError is returned.
func (d *Device) UpdateSelf(ctx context.Context) error {
	info, err := d.GetInfo(ctx)
	if err != nil {
		logger.Debug().Err(err).Str("device_ip", d.IPv4).Msg("device-info fetch failed")
		return err
	}

	name, ok := info[fieldName]
	if !ok {
		return missing(fieldName)
	}
	d.Name = name

	network, ok := info[fieldNetworkType]
	if !ok {
		return missing(fieldNetworkType)
	}
	d.Network = ParseNetworkType(network)

	wifi, ok := info[fieldWifiMAC]
	if !ok {
		return missing(fieldWifiMAC)
	}
	mac, err := wol.ParseMAC(wifi)
	if err != nil {
		return err
	}
	d.MACWLAN = mac

	d.MACEth = wol.MAC{}
	if strings.EqualFold(info[fieldSupportsEthernet], "TRUE") {
		if eth, ok := info[fieldEthernetMAC]; ok {
			mac, err := wol.ParseMAC(eth)
			if err != nil {
				return err
			}
			d.MACEth = mac
		}
	}

	logger.Debug().
		Str("device_ip", d.IPv4).
		Str("device_name", d.Name).
		Str("network", d.Network.String()).
		Str("mac_wlan", d.MACWLAN.String()).
		Msg("Device enriched")
	return nil
}

func missing(field string) error {
	return errors.NewParseError("device-info", field, errors.ErrMissingField)
}
